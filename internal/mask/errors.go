package mask

import "errors"

var (
	ErrInvalidDimension     = errors.New("invalid dimension")
	ErrDegenerateComparison = errors.New("degenerate comparison: both masks are empty")
)
