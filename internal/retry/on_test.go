package retry_test

import (
	"errors"
	"fmt"
	"image-comparator/internal/retry"
	"io"
	"net"
	"net/http"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mustRetryOn(s string) *retry.On {
	o, err := retry.NewRetryOnFromString(s)
	if err != nil {
		panic(err)
	}
	return o
}

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		name       string
		receiver   *retry.On
		statusCode int
		want       bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("5xx"),
			500,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("5xx"),
			404,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("gateway-error"),
			503,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("gateway-error"),
			500,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("retriable-4xx"),
			409,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("rate-limited"),
			429,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("retriable-4xx"),
			429,
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("404, 410"),
			410,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			502,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			retry.NewDefaultRetryOn(),
			500,
			false,
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		statusCode := tt.statusCode
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.CheckResponse(&http.Response{StatusCode: statusCode})
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheckError(t *testing.T) {
	tests := []struct {
		name     string
		receiver *retry.On
		err      error
		want     bool
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("connect-failure"),
			io.EOF,
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("5xx"),
			&net.DNSError{IsTemporary: true},
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("connect-failure"),
			fmt.Errorf("read body: %w", io.ErrUnexpectedEOF),
			true,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("connect-failure"),
			errors.New(""),
			false,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			mustRetryOn("gateway-error"),
			io.EOF,
			false,
		},
	}
	for _, tt := range tests {
		name := tt.name
		receiver := tt.receiver
		err := tt.err
		want := tt.want
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := receiver.CheckError(err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestNewRetryOnFromString_Invalid(t *testing.T) {
	for _, s := range []string{"bogus", "99", "600"} {
		if _, err := retry.NewRetryOnFromString(s); err == nil {
			t.Errorf("Expected error for %q", s)
		}
	}
}
