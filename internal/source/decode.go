package source

import (
	"bytes"
	"fmt"
	"image"
	"image-comparator/internal/mask"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

type DecodeOptions struct {
	// MaxDimension, when positive, shrinks images whose width or height
	// exceeds it before masking, keeping the aspect ratio.
	MaxDimension uint
	// MaxPixels, when positive, rejects images whose header declares more
	// pixels than this before any pixel data is decoded.
	MaxPixels int64
}

// Decode turns encoded image bytes into a pixel buffer.
func Decode(data []byte, opts DecodeOptions) (mask.PixelBuffer, error) {
	if opts.MaxPixels > 0 {
		config, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return mask.PixelBuffer{}, fmt.Errorf("failed to decode image header: %w: %w", ErrDecodeFailure, err)
		}
		if pixels := int64(config.Width) * int64(config.Height); pixels > opts.MaxPixels {
			return mask.PixelBuffer{}, fmt.Errorf("image %dx%d exceeds %d pixels: %w", config.Width, config.Height, opts.MaxPixels, ErrDecodeFailure)
		}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return mask.PixelBuffer{}, fmt.Errorf("failed to decode image: %w: %w", ErrDecodeFailure, err)
	}

	if opts.MaxDimension > 0 {
		img = resize.Thumbnail(opts.MaxDimension, opts.MaxDimension, img, resize.NearestNeighbor)
	}

	buffer, err := mask.FromImage(img)
	if err != nil {
		return mask.PixelBuffer{}, fmt.Errorf("failed to read %s pixels: %w: %w", format, ErrDecodeFailure, err)
	}
	return buffer, nil
}
