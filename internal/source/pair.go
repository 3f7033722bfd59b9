package source

import (
	"context"
	"image-comparator/internal/mask"

	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// LoadPair loads and decodes two references concurrently. The first failure
// cancels the other load.
func LoadPair(ctx context.Context, l Loader, baseline string, target string, opts DecodeOptions) (mask.PixelBuffer, mask.PixelBuffer, error) {
	var baselineBuffer mask.PixelBuffer
	var targetBuffer mask.PixelBuffer

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		buffer, err := load(ctx, l, baseline, opts)
		if err != nil {
			return xerrors.Errorf("failed to load baseline: %w", err)
		}
		baselineBuffer = buffer
		return nil
	})

	eg.Go(func() error {
		buffer, err := load(ctx, l, target, opts)
		if err != nil {
			return xerrors.Errorf("failed to load target: %w", err)
		}
		targetBuffer = buffer
		return nil
	})

	if err := eg.Wait(); err != nil {
		return mask.PixelBuffer{}, mask.PixelBuffer{}, err
	}

	return baselineBuffer, targetBuffer, nil
}

func load(ctx context.Context, l Loader, ref string, opts DecodeOptions) (mask.PixelBuffer, error) {
	data, err := l.Load(ctx, ref)
	if err != nil {
		return mask.PixelBuffer{}, err
	}
	return Decode(data, opts)
}

// Compare loads both references and scores them.
func Compare(ctx context.Context, l Loader, baseline string, target string, opts DecodeOptions) (float64, error) {
	baselineBuffer, targetBuffer, err := LoadPair(ctx, l, baseline, target, opts)
	if err != nil {
		return 0.0, err
	}
	return mask.CompareImages(baselineBuffer, targetBuffer)
}
