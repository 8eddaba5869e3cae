package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError is a non-2xx response from the GitHub API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error (status %d): %s", e.StatusCode, e.Message)
}

// RateLimitError signals that the primary rate limit is exhausted. Reset is
// the time the quota replenishes, taken from the X-RateLimit-Reset header
// (zero when the header was absent).
type RateLimitError struct {
	Reset     time.Time
	Remaining int
}

func (e *RateLimitError) Error() string {
	if e.Reset.IsZero() {
		return "github rate limit exceeded"
	}
	return fmt.Sprintf("github rate limit exceeded, resets at %s", e.Reset.Format(time.RFC3339))
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsRateLimit reports whether err is a rate-limit condition and returns the
// reset time when known.
func IsRateLimit(err error) (time.Time, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr.Reset, true
	}
	return time.Time{}, false
}
