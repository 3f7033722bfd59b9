package image

import (
	"image"
	"image-comparator/internal/mask"
)

type DiffResult struct {
	Image      image.Image
	Score      float64
	DiffAmount float64
}

// Differ scores decoded images. Score skips drawing the disagreement image
// that Calculate returns.
type Differ interface {
	Score(baseline mask.PixelBuffer, target mask.PixelBuffer) (float64, error)
	Calculate(baseline mask.PixelBuffer, target mask.PixelBuffer) (*DiffResult, error)
}
