package image

import (
	"image"
	"image-comparator/internal/mask"
	"image/color"

	"golang.org/x/xerrors"
)

var (
	foregroundColor = color.RGBA{A: 255}
	backgroundColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	mismatchColor   = color.RGBA{R: 255, A: 255}
	uncoveredColor  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// MaskDiff scores two images by their zero-red masks and draws where the
// masks disagree.
type MaskDiff struct{}

func NewMaskDiff() *MaskDiff {
	return &MaskDiff{}
}

var _ Differ = (*MaskDiff)(nil)

func (m *MaskDiff) Score(baseline mask.PixelBuffer, target mask.PixelBuffer) (float64, error) {
	return mask.CompareImages(baseline, target)
}

func (m *MaskDiff) Calculate(baseline mask.PixelBuffer, target mask.PixelBuffer) (*DiffResult, error) {
	resized, original, err := mask.Align(baseline, target)
	if err != nil {
		return nil, xerrors.Errorf("failed to align masks: %w", err)
	}

	score, err := mask.Compare(resized, original)
	if err != nil {
		return nil, xerrors.Errorf("failed to compare masks: %w", err)
	}

	return &DiffResult{
		Image:      Render(resized, original),
		Score:      score,
		DiffAmount: 1.0 - score,
	}, nil
}

// Render paints the bounding area of a and b: black where both are set,
// white where both are unset, red where they differ and gray where only one
// mask has a cell.
func Render(a mask.Mask, b mask.Mask) *image.RGBA {
	bounds := image.Rect(0, 0, max(a.Width(), b.Width()), max(a.Height(), b.Height()))
	result := image.NewRGBA(bounds)

	for y := 0; y < bounds.Max.Y; y++ {
		for x := 0; x < bounds.Max.X; x++ {
			c := uncoveredColor
			if x < a.Width() && y < a.Height() && x < b.Width() && y < b.Height() {
				av, bv := a.At(x, y), b.At(x, y)
				switch {
				case av != bv:
					c = mismatchColor
				case av == 1:
					c = foregroundColor
				default:
					c = backgroundColor
				}
			}

			offset := result.PixOffset(x, y)
			result.Pix[offset] = c.R
			result.Pix[offset+1] = c.G
			result.Pix[offset+2] = c.B
			result.Pix[offset+3] = c.A
		}
	}

	return result
}
