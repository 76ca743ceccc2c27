package platform

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// RateLimitError signals that the platform rejected a call because the rate
// limit window is exhausted. Callers apply backoff instead of retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("platform: rate limited, retry after %s", e.RetryAfter)
	}
	return "platform: rate limited"
}

// APIError is a non-rate-limit platform rejection.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("platform: status %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a platform rate-limit rejection
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsNotFound reports whether err means the requested resource is gone
// (deleted post, suspended or missing account)
func IsNotFound(err error) bool {
	var api *APIError
	if errors.As(err, &api) {
		return api.StatusCode == http.StatusNotFound || api.StatusCode == http.StatusForbidden
	}
	return false
}
