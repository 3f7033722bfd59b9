package capture

import (
	"context"
)

// Capturer renders a page and returns it as an encoded PNG.
type Capturer interface {
	Capture(ctx context.Context, url string) ([]byte, error)
}
