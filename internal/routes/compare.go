package routes

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	diffimage "image-comparator/internal/diff/image"
	"image-comparator/internal/mask"
	"image-comparator/internal/myhttp"
	"image-comparator/internal/source"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/metric"
)

type CompareResponse struct {
	Score      float64 `json:"score"`
	DiffAmount float64 `json:"diffAmount"`
	DiffData   string  `json:"diffData,omitempty"`
}

// Compare scores the multipart files "baseline" and "target". With diff=true
// the response also carries the disagreement image as base64 PNG.
func Compare(maxUploadBytes int64, decodeOptions source.DecodeOptions, scoreHistogram metric.Float64Histogram) http.HandlerFunc {
	var differ diffimage.Differ = diffimage.NewMaskDiff()

	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		if r.ContentLength > maxUploadBytes {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var maxBytesError *http.MaxBytesError
			if errors.As(err, &maxBytesError) {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		withDiff := false
		if v := r.FormValue("diff"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			withDiff = b
		}

		baseline, err := readImage(r, "baseline", decodeOptions)
		if err != nil {
			logger.Info("rejected baseline", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		target, err := readImage(r, "target", decodeOptions)
		if err != nil {
			logger.Info("rejected target", "error", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		response := CompareResponse{}
		var diffImage image.Image
		if withDiff {
			var result *diffimage.DiffResult
			result, err = differ.Calculate(baseline, target)
			if err == nil {
				response.Score = result.Score
				diffImage = result.Image
			}
		} else {
			response.Score, err = differ.Score(baseline, target)
		}
		if err != nil {
			switch {
			case errors.Is(err, mask.ErrInvalidDimension):
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			case errors.Is(err, mask.ErrDegenerateComparison):
				http.Error(w, http.StatusText(http.StatusUnprocessableEntity), http.StatusUnprocessableEntity)
			default:
				logger.Error("failed to compare images", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
			return
		}
		response.DiffAmount = 1.0 - response.Score
		scoreHistogram.Record(r.Context(), response.Score)

		if diffImage != nil {
			var buffer bytes.Buffer
			if err := png.Encode(&buffer, diffImage); err != nil {
				logger.Error("failed to encode diff image", "error", err)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			response.DiffData = base64.StdEncoding.EncodeToString(buffer.Bytes())
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(response); err != nil {
			logger.Error("failed to encode response", "error", err)
		}
	}
}

func readImage(r *http.Request, field string, opts source.DecodeOptions) (mask.PixelBuffer, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return mask.PixelBuffer{}, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return mask.PixelBuffer{}, err
	}

	return source.Decode(data, opts)
}
