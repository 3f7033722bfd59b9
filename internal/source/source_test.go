package source_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image-comparator/internal/retry"
	"image-comparator/internal/source"
	"image-comparator/internal/storage"
	"image/color"
	"image/draw"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func encodePNG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buffer.Bytes()
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

type fakeCapturer struct {
	screenshot []byte
	err        error
	calls      int32
}

func (f *fakeCapturer) Capture(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.screenshot, f.err
}

func TestLoaderS3(t *testing.T) {
	data := encodePNG(t, 2, 2, color.Black)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/images/baseline/home.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}))
	defer server.Close()

	dir := t.TempDir()
	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	t.Setenv("AWS_REGION", "us-east-1")
	t.Setenv("AWS_CONFIG_FILE", filepath.Join(dir, "config"))
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", filepath.Join(dir, "credentials"))
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	loader, err := source.NewLoader(context.Background(), source.Config{
		S3: storage.S3Config{EndpointURL: server.URL},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := loader.Load(canceled, "s3://images/baseline/home.png"); !errors.Is(err, source.ErrDecodeFailure) {
		t.Errorf("Expected ErrDecodeFailure, got %v", err)
	}

	got, err := loader.Load(context.Background(), "s3://images/baseline/home.png")
	if err != nil {
		t.Fatalf("Expected a canceled first load not to poison later loads, got %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Expected downloaded bytes to match")
	}
}

func TestDecode(t *testing.T) {
	t.Run("PNG", func(t *testing.T) {
		buffer, err := source.Decode(encodePNG(t, 3, 2, color.Black), source.DecodeOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buffer.Width != 3 || buffer.Height != 2 {
			t.Errorf("Expected 3x2, got %dx%d", buffer.Width, buffer.Height)
		}
	})

	t.Run("MaxDimension", func(t *testing.T) {
		buffer, err := source.Decode(encodePNG(t, 400, 200, color.Black), source.DecodeOptions{MaxDimension: 100})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buffer.Width != 100 || buffer.Height != 50 {
			t.Errorf("Expected 100x50, got %dx%d", buffer.Width, buffer.Height)
		}
	})

	t.Run("MaxPixels", func(t *testing.T) {
		// A two-color 8000x8000 image compresses to a few kilobytes.
		palette := color.Palette{color.Black, color.White}
		img := image.NewPaletted(image.Rect(0, 0, 8000, 8000), palette)
		var encoded bytes.Buffer
		if err := png.Encode(&encoded, img); err != nil {
			t.Fatalf("failed to encode png: %v", err)
		}
		if encoded.Len() > 1<<20 {
			t.Fatalf("Expected a small payload, got %d bytes", encoded.Len())
		}

		_, err := source.Decode(encoded.Bytes(), source.DecodeOptions{MaxDimension: 1024, MaxPixels: 1 << 20})
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})

	t.Run("WithinMaxPixels", func(t *testing.T) {
		buffer, err := source.Decode(encodePNG(t, 64, 16, color.Black), source.DecodeOptions{MaxPixels: 64 * 16})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buffer.Width != 64 || buffer.Height != 16 {
			t.Errorf("Expected 64x16, got %dx%d", buffer.Width, buffer.Height)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := source.Decode([]byte("not an image"), source.DecodeOptions{})
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})
}

func TestLoader(t *testing.T) {
	ctx := context.Background()
	data := encodePNG(t, 2, 2, color.Black)

	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/flaky.png":
			if atomic.AddInt32(&calls, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write(data)
		case "/image.png":
			_, _ = w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	loader, err := source.NewLoader(ctx, source.Config{
		HTTPClient: source.NewHTTPClient(5*time.Second, retry.NewDefaultRetryOn()),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("HTTP", func(t *testing.T) {
		got, err := loader.Load(ctx, server.URL+"/image.png")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("Expected downloaded bytes to match")
		}
	})

	t.Run("HTTPRetried", func(t *testing.T) {
		if _, err := loader.Load(ctx, server.URL+"/flaky.png"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&calls); got != 2 {
			t.Errorf("Expected 2 calls, got %d", got)
		}
	})

	t.Run("HTTPNotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, server.URL+"/missing.png")
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})

	t.Run("File", func(t *testing.T) {
		got, err := loader.Load(ctx, writeFile(t, "image.png", data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("Expected file bytes to match")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "missing.png"))
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		small, err := source.NewLoader(ctx, source.Config{MaxBytes: 8})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := small.Load(ctx, server.URL+"/image.png"); !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})
}

func TestRenderLoader(t *testing.T) {
	ctx := context.Background()
	base, err := source.NewLoader(ctx, source.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("RendersURLs", func(t *testing.T) {
		capturer := &fakeCapturer{screenshot: []byte("png")}
		got, err := source.NewRenderLoader(base, capturer).Load(ctx, "https://example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "png" || capturer.calls != 1 {
			t.Errorf("Expected the capturer to render the page")
		}
	})

	t.Run("FilesBypassCapturer", func(t *testing.T) {
		capturer := &fakeCapturer{}
		path := writeFile(t, "image.png", []byte("file"))
		got, err := source.NewRenderLoader(base, capturer).Load(ctx, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(got) != "file" || capturer.calls != 0 {
			t.Errorf("Expected the file to be read without rendering")
		}
	})

	t.Run("CaptureFailure", func(t *testing.T) {
		capturer := &fakeCapturer{err: errors.New("browser crashed")}
		_, err := source.NewRenderLoader(base, capturer).Load(ctx, "https://example.com/")
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()
	loader, err := source.NewLoader(ctx, source.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	black := writeFile(t, "black.png", encodePNG(t, 4, 4, color.Black))
	smallBlack := writeFile(t, "small.png", encodePNG(t, 2, 2, color.Black))
	white := writeFile(t, "white.png", encodePNG(t, 4, 4, color.White))

	t.Run("Similar", func(t *testing.T) {
		score, err := source.Compare(ctx, loader, black, smallBlack, source.DecodeOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score != 1.0 {
			t.Errorf("Expected score to be 1.0, got %f", score)
		}
	})

	t.Run("Different", func(t *testing.T) {
		score, err := source.Compare(ctx, loader, black, white, source.DecodeOptions{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score != 0.0 {
			t.Errorf("Expected score to be 0.0, got %f", score)
		}
	})

	t.Run("OneSideFails", func(t *testing.T) {
		garbage := writeFile(t, "garbage.png", []byte("garbage"))
		_, err := source.Compare(ctx, loader, black, garbage, source.DecodeOptions{})
		if !errors.Is(err, source.ErrDecodeFailure) {
			t.Errorf("Expected ErrDecodeFailure, got %v", err)
		}
	})
}
