package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"flag"
	"fmt"
	"image-comparator/internal/capture"
	diffimage "image-comparator/internal/diff/image"
	"image-comparator/internal/env"
	"image-comparator/internal/retry"
	"image-comparator/internal/runnable"
	"image-comparator/internal/source"
	"image-comparator/internal/storage"
	"image/png"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/playwright-community/playwright-go"
	"github.com/robfig/cron/v3"
	"golang.org/x/xerrors"
)

type CompareOutput struct {
	Score    float64 `json:"score"`
	DiffPath string  `json:"diffPath,omitempty"`
}

type Comparer struct {
	Loader        source.Loader
	Differ        diffimage.Differ
	Storage       storage.Storage
	DecodeOptions source.DecodeOptions
	Timeout       time.Duration
}

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	var directory string
	var storageBackend string
	var withDiff bool
	var render bool
	var maxDimension uint
	var maxPixels int64
	var schedule string
	var retryOn string
	var timeout time.Duration
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory for diff images")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend for diff images (file or s3)")
	flag.BoolVar(&withDiff, "diff", env.OrDefault("DIFF", false), "Store an image of the mask disagreement")
	flag.BoolVar(&render, "render", env.OrDefault("RENDER", false), "Render http(s) references as web pages instead of downloading them")
	flag.UintVar(&maxDimension, "max-dimension", env.OrDefault("MAX_DIMENSION", uint(0)), "Shrink images larger than this before comparing (0 disables)")
	flag.Int64Var(&maxPixels, "max-pixels", env.OrDefault("MAX_PIXELS", int64(0)), "Reject images declaring more pixels than this (0 disables)")
	flag.StringVar(&schedule, "schedule", env.OrDefault("SCHEDULE", ""), "Cron schedule to repeat the comparison on (e.g. '*/5 * * * *')")
	flag.StringVar(&retryOn, "retry-on", env.OrDefault("RETRY_ON", "gateway-error,connect-failure,retriable-4xx,rate-limited"), "Conditions under which HTTP downloads are retried")
	flag.DurationVar(&timeout, "timeout", env.OrDefault("TIMEOUT", 60*time.Second), "Timeout of a single comparison")

	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		log.Fatalf("baseline, target not specified")
	}
	baseline := args[0]
	target := args[1]

	ctx := context.Background()

	on, err := retry.NewRetryOnFromString(retryOn)
	if err != nil {
		log.Fatalf("Failed to parse retry conditions: %v", err)
	}

	loader, err := source.NewLoader(ctx, source.Config{
		HTTPClient: source.NewHTTPClient(timeout, on),
		S3: storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		},
	})
	if err != nil {
		log.Fatalf("Failed to create loader: %v", err)
	}

	if render {
		if err := playwright.Install(&playwright.RunOptions{
			Browsers: []string{"chromium"},
		}); err != nil {
			log.Fatalf("Failed to install playwright browsers: %v", err)
		}

		config := capture.DefaultPlaywrightConfig()
		config.ChromeDevtoolsProtocolURL = env.OrDefault("CHROME_DEVTOOLS_PROTOCOL_URL", "")
		config.ViewportWidth = env.OrDefault("VIEWPORT_WIDTH", config.ViewportWidth)
		config.ViewportHeight = env.OrDefault("VIEWPORT_HEIGHT", config.ViewportHeight)
		config.Delay = env.OrDefault("DELAY", config.Delay)
		if os.Getenv("DISPLAY") != "" {
			config.Headless = false
		}

		capturer, err := capture.NewPlaywrightCapturer(ctx, config)
		if err != nil {
			log.Fatalf("Failed to create capturer: %v", err)
		}
		loader = source.NewRenderLoader(loader, capturer)
	}

	comparer := &Comparer{
		Loader:        loader,
		Differ:        diffimage.NewMaskDiff(),
		DecodeOptions: source.DecodeOptions{
			MaxDimension: maxDimension,
			MaxPixels:    maxPixels,
		},
		Timeout:       timeout,
	}

	if withDiff {
		switch storageBackend {
		case "file":
			comparer.Storage, err = storage.NewFileStorage(ctx, storage.FileConfig{
				Directory: directory,
			})
		case "s3":
			comparer.Storage, err = storage.NewS3Storage(ctx, storage.S3Config{
				Bucket: os.Getenv("S3_BUCKET"),
			})
		default:
			err = xerrors.Errorf("unknown storage backend: %s", storageBackend)
		}
		if err != nil {
			log.Fatalf("Failed to create storage backend: %v", err)
		}
	}

	if schedule == "" {
		output, err := comparer.Run(ctx, baseline, target)
		if err != nil {
			log.Fatalf("Failed to compare images: %v", err)
		}
		if err := writeOutput(os.Stdout, output); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		return
	}

	logger, err := runnable.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		output, err := comparer.Run(ctx, baseline, target)
		if err != nil {
			logger.Error("failed to compare images", "baseline", baseline, "target", target, "error", err)
			return
		}
		logger.Info("compared images", "baseline", baseline, "target", target, "score", output.Score, "diffPath", output.DiffPath)
		if err := writeOutput(os.Stdout, output); err != nil {
			logger.Error("failed to encode result", "error", err)
		}
	}); err != nil {
		log.Fatalf("Failed to parse schedule %q: %v", schedule, err)
	}
	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, os.Interrupt)
	<-quit

	<-c.Stop().Done()
}

// Run performs one comparison. When a storage is configured the disagreement
// image is stored next to other runs of the same pair.
func (c *Comparer) Run(ctx context.Context, baseline string, target string) (*CompareOutput, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	baselineBuffer, targetBuffer, err := source.LoadPair(ctx, c.Loader, baseline, target, c.DecodeOptions)
	if err != nil {
		return nil, err
	}

	if c.Storage == nil {
		score, err := c.Differ.Score(baselineBuffer, targetBuffer)
		if err != nil {
			return nil, xerrors.Errorf("failed to score masks: %w", err)
		}
		return &CompareOutput{Score: score}, nil
	}

	result, err := c.Differ.Calculate(baselineBuffer, targetBuffer)
	if err != nil {
		return nil, xerrors.Errorf("failed to calculate mask diff: %w", err)
	}

	output := &CompareOutput{
		Score: result.Score,
	}

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, result.Image); err != nil {
		return nil, xerrors.Errorf("failed to encode diff image: %w", err)
	}

	h := sha256.New()
	h.Write([]byte(baseline + target))
	hash := fmt.Sprintf("%x", h.Sum(nil))[:16]
	key := fmt.Sprintf("Comparison/diff/%s/%s.png", hash, time.Now().Format("20060102150405"))

	output.DiffPath, err = c.Storage.Put(ctx, key, buffer.Bytes())
	if err != nil {
		return nil, xerrors.Errorf("failed to save diff image: %w", err)
	}

	return output, nil
}

func writeOutput(w io.Writer, output *CompareOutput) error {
	return json.NewEncoder(w).Encode(output)
}
