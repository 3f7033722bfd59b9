package mask

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/xerrors"
)

// Compare returns the fraction of cells on which a and b agree, over the
// bounding area of both masks. Cells that exist in only one of the masks are
// counted in the area but never as agreement, so masks of different sizes are
// penalized for every uncovered cell.
func Compare(a Mask, b Mask) (float64, error) {
	width := max(a.width, b.width)
	height := max(a.height, b.height)
	totalCellCount := int64(width) * int64(height)
	if totalCellCount == 0 {
		return 0.0, xerrors.Errorf("compare %dx%d with %dx%d: %w", a.width, a.height, b.width, b.height, ErrDegenerateComparison)
	}

	// Only rows and columns covered by both masks can agree.
	sharedWidth := min(a.width, b.width)
	sharedHeight := min(a.height, b.height)

	// Use GOMAXPROCS instead of runtime.NumCPU() to consider cgroup.
	numWorkers := min(runtime.GOMAXPROCS(0), max(sharedHeight, 1))
	rowsPerWorker := sharedHeight / numWorkers

	var agreedCellCount int64
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		startY := i * rowsPerWorker
		endY := startY + rowsPerWorker
		if i == numWorkers-1 {
			endY = sharedHeight
		}

		go func(startY int, endY int) {
			defer wg.Done()
			atomic.AddInt64(&agreedCellCount, countAgreement(a, b, sharedWidth, startY, endY))
		}(startY, endY)
	}
	wg.Wait()

	return float64(agreedCellCount) / float64(totalCellCount), nil
}

func countAgreement(a Mask, b Mask, width int, startY int, endY int) int64 {
	var local int64
	for y := startY; y < endY; y++ {
		rowA := a.bits[y*a.width : y*a.width+width]
		rowB := b.bits[y*b.width : y*b.width+width]
		for x := range rowA {
			if rowA[x] == rowB[x] {
				local++
			}
		}
	}
	return local
}

// Align builds a mask for each buffer and brings them to a common resolution.
// The image that is wider or taller than the other is treated as the larger
// one; on a tie, or when neither dimension of a exceeds b's, b is the larger.
// This is an OR on the dimensions, not an area comparison: a 10x1 image is
// "larger" than a 1x100 one. The smaller image's mask is resized to the
// larger image's exact dimensions and returned with the larger's own mask.
func Align(a PixelBuffer, b PixelBuffer) (resized Mask, original Mask, err error) {
	maskA := Build(a)
	maskB := Build(b)

	if a.Width > b.Width || a.Height > b.Height {
		resized, err = Resize(maskB, a.Width, a.Height)
		original = maskA
	} else {
		resized, err = Resize(maskA, b.Width, b.Height)
		original = maskB
	}
	if err != nil {
		return Mask{}, Mask{}, xerrors.Errorf("failed to resize mask: %w", err)
	}

	return resized, original, nil
}

// CompareImages scores the similarity of two decoded images in [0, 1].
func CompareImages(a PixelBuffer, b PixelBuffer) (float64, error) {
	resized, original, err := Align(a, b)
	if err != nil {
		return 0.0, err
	}

	score, err := Compare(resized, original)
	if err != nil {
		return 0.0, xerrors.Errorf("failed to compare masks: %w", err)
	}
	return score, nil
}
