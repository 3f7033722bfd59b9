package mask

import "golang.org/x/xerrors"

// Resize scales m to newWidth x newHeight with nearest-neighbor sampling:
// target (i, j) reads source (floor(i*w/newWidth), floor(j*h/newHeight)).
// The result is a new mask; m is left untouched. A zero target dimension
// yields an empty mask.
func Resize(m Mask, newWidth int, newHeight int) (Mask, error) {
	if m.Empty() {
		return Mask{}, xerrors.Errorf("resize source %dx%d: %w", m.width, m.height, ErrInvalidDimension)
	}
	if newWidth < 0 || newHeight < 0 {
		return Mask{}, xerrors.Errorf("resize target %dx%d: %w", newWidth, newHeight, ErrInvalidDimension)
	}
	if newWidth == 0 || newHeight == 0 {
		return Mask{width: newWidth, height: newHeight}, nil
	}

	resized := newMask(newWidth, newHeight)

	srcX := make([]int, newWidth)
	for i := range srcX {
		srcX[i] = i * m.width / newWidth
	}

	for j := 0; j < newHeight; j++ {
		srcRow := m.bits[(j*m.height/newHeight)*m.width:]
		dstRow := resized.bits[j*newWidth : (j+1)*newWidth]
		for i, x := range srcX {
			dstRow[i] = srcRow[x]
		}
	}

	return resized, nil
}
