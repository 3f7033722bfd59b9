package source

import (
	"context"
	"fmt"
	"image-comparator/internal/capture"
	"image-comparator/internal/retry"
	"image-comparator/internal/storage"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"
)

type Config struct {
	HTTPClient *http.Client
	// MaxBytes bounds a single download; 0 means 64MiB.
	MaxBytes int64
	// S3 is consulted lazily, the first time an s3:// reference is loaded.
	S3 storage.S3Config
}

const defaultMaxBytes = 64 << 20

type loader struct {
	httpClient *http.Client
	maxBytes   int64
	files      storage.Storage

	s3Config storage.S3Config
	s3Once   sync.Once
	s3       storage.Storage
	s3Err    error
}

// NewHTTPClient returns a client whose transport retries as retryOn says.
func NewHTTPClient(timeout time.Duration, retryOn *retry.On) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &retry.Transport{
			Base:          http.DefaultTransport,
			RetryStrategy: retry.NewExponentialBackOff(100*time.Millisecond, 5*time.Second, 3, nil),
			RetryOn:       retryOn,
		},
	}
}

func NewLoader(ctx context.Context, c Config) (Loader, error) {
	files, err := storage.NewFileStorage(ctx, storage.FileConfig{})
	if err != nil {
		return nil, xerrors.Errorf("failed to create file storage: %w", err)
	}

	if c.HTTPClient == nil {
		c.HTTPClient = NewHTTPClient(30*time.Second, retry.NewDefaultRetryOn())
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}

	return &loader{
		httpClient: c.HTTPClient,
		maxBytes:   c.MaxBytes,
		files:      files,
		s3Config:   c.S3,
	}, nil
}

func (l *loader) Load(ctx context.Context, ref string) ([]byte, error) {
	var data []byte
	var err error
	switch {
	case isHTTP(ref):
		data, err = l.fetch(ctx, ref)
	case strings.HasPrefix(ref, "s3://"):
		data, err = l.loadS3(ctx, ref)
	default:
		data, err = l.files.Get(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w: %w", ref, ErrDecodeFailure, err)
	}
	return data, nil
}

func (l *loader) fetch(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "image/*")

	response, err := l.httpClient.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to send request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, xerrors.Errorf("unexpected status %s", response.Status)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, l.maxBytes+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, xerrors.Errorf("body exceeds %d bytes", l.maxBytes)
	}
	return data, nil
}

func (l *loader) loadS3(ctx context.Context, ref string) ([]byte, error) {
	l.s3Once.Do(func() {
		// The client outlives the first caller's context.
		l.s3, l.s3Err = storage.NewS3Storage(context.WithoutCancel(ctx), l.s3Config)
	})
	if l.s3Err != nil {
		return nil, l.s3Err
	}
	return l.s3.Get(ctx, ref)
}

func isHTTP(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

type renderLoader struct {
	base     Loader
	capturer capture.Capturer
}

// NewRenderLoader screenshots http(s) references as web pages instead of
// downloading them. Other references go to base.
func NewRenderLoader(base Loader, capturer capture.Capturer) Loader {
	return &renderLoader{
		base:     base,
		capturer: capturer,
	}
}

func (r *renderLoader) Load(ctx context.Context, ref string) ([]byte, error) {
	if !isHTTP(ref) {
		return r.base.Load(ctx, ref)
	}

	screenshot, err := r.capturer.Capture(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w: %w", ref, ErrDecodeFailure, err)
	}
	return screenshot, nil
}
