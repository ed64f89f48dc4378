package ghclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"

	gh "github.com/google/go-github/v57/github"
)

var (
	// ErrNotFound is returned when a referenced issue or PR does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized is returned when a call is still rejected with 401/403
	// after one forced token refresh.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTransient marks timeouts, 5xx responses and connection resets that
	// survived the client's own retries. Callers may retry later.
	ErrTransient = errors.New("transient transport error")

	// ErrRateLimited is returned when the API rate limit has been exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrDataUnavailable is returned alongside an empty result when a list
	// call did not succeed. An empty slice with this error means "unknown",
	// not "none exist".
	ErrDataUnavailable = errors.New("data unavailable")
)

// IsTransient reports whether err is worth retrying later.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return isTransientNetError(err)
}

// isTransientNetError reports connection-level failures that a retry may fix.
func isTransientNetError(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF):
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classify maps a go-github error onto the package sentinels while keeping
// the original error in the chain.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrTransient) {
		return fmt.Errorf("%s: %w", op, err)
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
	}
	var arle *gh.AbuseRateLimitError
	if errors.As(err, &arle) {
		return fmt.Errorf("%s: %w: %w", op, ErrRateLimited, err)
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch status := ghErr.Response.StatusCode; {
		case status == http.StatusNotFound, status == http.StatusGone:
			return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
		case status == http.StatusUnauthorized, status == http.StatusForbidden:
			return fmt.Errorf("%s: %w: %w", op, ErrUnauthorized, err)
		case status >= 500:
			return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if isTransientNetError(err) {
		return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
