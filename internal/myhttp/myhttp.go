// Package myhttp wraps http.ServeMux with the tracing, profiling, metrics and
// request logging every route of the compare server shares.
package myhttp

import (
	"context"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/metric"
)

type loggerContextKey struct{}

// Logger returns the request-scoped logger installed by the middleware, or
// slog.Default outside of it.
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// NewServerMux records request latency in microseconds into the histogram,
// labeled by method, route pattern and status.
func NewServerMux(logger *slog.Logger, httpRequestsDurationMicroSeconds metric.Int64Histogram) *myRouter {
	return &myRouter{
		ServeMux:                         http.NewServeMux(),
		logger:                           logger,
		httpRequestsDurationMicroSeconds: httpRequestsDurationMicroSeconds,
	}
}
