// Package source resolves image references to decoded pixel buffers.
//
// A reference is a local path, a file://, http(s):// or s3:// URL. Loading
// and decoding are the only blocking steps of a comparison and any failure in
// them is reported as ErrDecodeFailure.
package source

import (
	"context"
	"errors"
)

var ErrDecodeFailure = errors.New("decode failure")

type Loader interface {
	Load(ctx context.Context, ref string) ([]byte, error)
}
