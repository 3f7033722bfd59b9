package mask

import (
	"image"
	"image/draw"

	"golang.org/x/xerrors"
)

// PixelBuffer is a decoded image as alpha-premultiplied RGBA bytes, row-major
// with the origin at the top-left corner.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

func NewPixelBuffer(width int, height int, pix []uint8) (PixelBuffer, error) {
	if width <= 0 || height <= 0 {
		return PixelBuffer{}, xerrors.Errorf("pixel buffer %dx%d: %w", width, height, ErrInvalidDimension)
	}
	if len(pix) != width*height*4 {
		return PixelBuffer{}, xerrors.Errorf("pixel buffer %dx%d has %d bytes, want %d: %w", width, height, len(pix), width*height*4, ErrInvalidDimension)
	}
	return PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    pix,
	}, nil
}

func (p PixelBuffer) offset(x int, y int) int {
	return (y*p.Width + x) * 4
}

// FromImage copies img into a PixelBuffer. Images other than a tightly packed
// *image.RGBA are drawn onto an RGBA canvas first, so the channel values are
// the premultiplied ones a canvas readback would produce.
func FromImage(img image.Image) (PixelBuffer, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return PixelBuffer{}, xerrors.Errorf("image %dx%d: %w", width, height, ErrInvalidDimension)
	}

	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == width*4 {
		start := rgba.PixOffset(bounds.Min.X, bounds.Min.Y)
		pix := make([]uint8, width*height*4)
		copy(pix, rgba.Pix[start:start+len(pix)])
		return NewPixelBuffer(width, height, pix)
	}

	canvas := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Src)
	return NewPixelBuffer(width, height, canvas.Pix)
}
