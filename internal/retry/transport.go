package retry

import (
	"io"
	"net/http"
	"strconv"
	"time"
)

// Transport retries idempotent requests according to RetryOn, waiting as
// RetryStrategy says between attempts. Requests with a body that cannot be
// rewound are sent once.
type Transport struct {
	Base          http.RoundTripper
	RetryStrategy Strategy
	RetryOn       *On
}

func (t *Transport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	req := request
	for attempt := uint(0); ; attempt++ {
		response, err := t.base().RoundTrip(req)

		retriable := false
		if err != nil {
			retriable = t.RetryOn != nil && t.RetryOn.CheckError(err)
		} else {
			retriable = t.RetryOn != nil && t.RetryOn.CheckResponse(response)
		}
		if !retriable {
			return response, err
		}

		sleep, exceeded := t.retryStrategy().Sleep(attempt)
		if exceeded {
			return response, err
		}

		next, ok := rewind(request)
		if !ok {
			return response, err
		}
		req = next

		if response != nil {
			if after, ok := retryAfter(response); ok {
				sleep = t.capSleep(after)
			}
			_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, 4<<10))
			response.Body.Close()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func (t *Transport) retryStrategy() Strategy {
	if t.RetryStrategy != nil {
		return t.RetryStrategy
	}
	return NewNever()
}

func (t *Transport) capSleep(d time.Duration) time.Duration {
	type capped interface{ MaxSleep() time.Duration }
	if c, ok := t.retryStrategy().(capped); ok {
		return clamp(d, 0, c.MaxSleep())
	}
	return d
}

func rewind(request *http.Request) (*http.Request, bool) {
	if request.Body == nil || request.Body == http.NoBody {
		return request, true
	}
	if request.GetBody == nil {
		return nil, false
	}
	body, err := request.GetBody()
	if err != nil {
		return nil, false
	}
	clone := request.Clone(request.Context())
	clone.Body = body
	return clone, true
}

// retryAfter reads a delay-seconds Retry-After header on 429 and 503.
func retryAfter(response *http.Response) (time.Duration, bool) {
	if response.StatusCode != http.StatusTooManyRequests && response.StatusCode != http.StatusServiceUnavailable {
		return 0, false
	}
	seconds, err := strconv.Atoi(response.Header.Get("Retry-After"))
	if err != nil || seconds < 0 {
		return 0, false
	}
	return time.Duration(seconds) * time.Second, true
}
