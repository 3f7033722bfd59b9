package retry

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
)

// On decides which responses and transport errors are worth another attempt.
// The condition names follow envoy's x-envoy-retry-on header.
type On struct {
	serverError    bool
	gatewayError   bool
	connectFailure bool
	retriable4xx   bool
	rateLimited    bool
	statusCodes    map[int]struct{}
}

// NewDefaultRetryOn retries what an image fetch can usually recover from:
// gateway errors, dropped connections, conflicts and rate limiting.
func NewDefaultRetryOn() *On {
	return &On{
		gatewayError:   true,
		connectFailure: true,
		retriable4xx:   true,
		rateLimited:    true,
		statusCodes:    map[int]struct{}{},
	}
}

func NewRetryOnFromString(s string) (*On, error) {
	o := &On{statusCodes: map[int]struct{}{}}
	for _, condition := range strings.Split(s, ",") {
		condition = strings.TrimSpace(condition)
		switch condition {
		case "":
		case "5xx":
			o.serverError = true
		case "gateway-error":
			o.gatewayError = true
		case "connect-failure":
			o.connectFailure = true
		case "retriable-4xx":
			o.retriable4xx = true
		case "rate-limited":
			o.rateLimited = true
		default:
			statusCode, err := strconv.Atoi(condition)
			if err != nil || statusCode < 100 || statusCode > 599 {
				return nil, xerrors.Errorf("invalid retry condition: %q", condition)
			}
			o.statusCodes[statusCode] = struct{}{}
		}
	}
	return o, nil
}

func (o *On) CheckResponse(response *http.Response) bool {
	code := response.StatusCode
	switch {
	case o.serverError && code >= 500 && code < 600:
		return true
	case o.gatewayError && code >= 502 && code <= 504:
		return true
	case o.retriable4xx && code == http.StatusConflict:
		return true
	case o.rateLimited && code == http.StatusTooManyRequests:
		return true
	}

	_, ok := o.statusCodes[code]
	return ok
}

func (o *On) CheckError(err error) bool {
	if !o.connectFailure && !o.serverError {
		return false
	}

	type temporary interface{ Temporary() bool }
	var terr temporary
	return (errors.As(err, &terr) && terr.Temporary()) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
