package ghclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/chainguard-dev/clog"
	"github.com/spiffcs/linksync/internal/auth"
	"github.com/spiffcs/linksync/internal/constants"
)

// TokenSource hands out bearer tokens and accepts notice that one was
// rejected. *auth.Provider implements it.
type TokenSource interface {
	Token(ctx context.Context) (auth.AccessToken, error)
	Invalidate(rejected string)
}

// RequestObserver is told the outcome of every API request.
type RequestObserver interface {
	RequestCompleted(method string, status int, err error)
}

// rateLimitTransport wraps an http.RoundTripper to handle GitHub rate limits
type rateLimitTransport struct {
	base     http.RoundTripper
	state    *RateLimitState
	observer RequestObserver
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Check if we're already rate limited before making the request
	if t.state.IsLimited() {
		t.observe(req.Method, 0, ErrRateLimited)
		return nil, ErrRateLimited
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		t.observe(req.Method, 0, err)
		return resp, err
	}

	// Parse and update rate limit state from response headers
	remaining, limit, resetAt := parseRateLimitHeaders(resp)
	if remaining >= 0 && limit > 0 {
		t.state.Update(remaining, limit, resetAt)
	}

	if remaining <= constants.RateLimitLowWatermark && remaining > 0 {
		clog.DebugContext(req.Context(), "rate limit low", "remaining", remaining, "resets_at", resetAt.Format(time.RFC3339))
	}

	if isRateLimitResponse(resp) {
		if resetAt.IsZero() {
			resetAt = retryAfter(resp)
		}
		t.state.SetLimited(resetAt)
		_ = resp.Body.Close()
		t.observe(req.Method, resp.StatusCode, ErrRateLimited)
		return nil, ErrRateLimited
	}

	t.observe(req.Method, resp.StatusCode, nil)
	return resp, nil
}

func (t *rateLimitTransport) observe(method string, status int, err error) {
	if t.observer != nil {
		t.observer.RequestCompleted(method, status, err)
	}
}

// isRateLimitResponse reports a 403 with no remaining quota, or a 429.
func isRateLimitResponse(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		return resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.Header.Get("Retry-After") != ""
	}
	return false
}

func retryAfter(resp *http.Response) time.Time {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		return time.Now().Add(time.Duration(secs) * time.Second)
	}
	return time.Now().Add(time.Minute)
}

// parseRateLimitHeaders extracts rate limit info from response headers.
func parseRateLimitHeaders(resp *http.Response) (remaining, limit int, resetAt time.Time) {
	remaining = -1
	limit = -1

	if remainingStr := resp.Header.Get("X-RateLimit-Remaining"); remainingStr != "" {
		if rem, err := strconv.Atoi(remainingStr); err == nil {
			remaining = rem
		}
	}

	if limitStr := resp.Header.Get("X-RateLimit-Limit"); limitStr != "" {
		if lim, err := strconv.Atoi(limitStr); err == nil {
			limit = lim
		}
	}

	if resetStr := resp.Header.Get("X-RateLimit-Reset"); resetStr != "" {
		if resetTime, err := strconv.ParseInt(resetStr, 10, 64); err == nil {
			resetAt = time.Unix(resetTime, 0)
		}
	}

	return remaining, limit, resetAt
}

// authTransport sets the bearer token on every request. A 401/403 that is
// not a rate limit forces exactly one refresh and retry; a second rejection
// is returned to the caller.
type authTransport struct {
	base   http.RoundTripper
	tokens TokenSource
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	tok, err := t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(authorize(req, tok))
	if err != nil || !isAuthFailure(resp) {
		return resp, err
	}

	retry, err := rewind(req)
	if err != nil {
		// Body cannot be replayed; surface the rejection as is.
		return resp, nil
	}
	drain(resp)

	clog.FromContext(ctx).With("status", resp.StatusCode).Info("request rejected, refreshing token once")
	t.tokens.Invalidate(tok.Value())
	tok, err = t.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	return t.base.RoundTrip(authorize(retry, tok))
}

func isAuthFailure(resp *http.Response) bool {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		return !isRateLimitResponse(resp)
	}
	return false
}

// authorize returns a copy of req carrying tok. RoundTrippers must not
// modify the caller's request.
func authorize(req *http.Request, tok auth.AccessToken) *http.Request {
	out := req.Clone(req.Context())
	tok.OAuth2().SetAuthHeader(out)
	return out
}

// rewind returns a copy of req with a fresh body so it can be sent again.
func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, fmt.Errorf("request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// retryTransport retries transient failures (connection errors, timeouts
// and 5xx responses) with bounded exponential backoff. 4xx responses are
// never retried here.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	newBackOff func() backoff.BackOff
}

// newRetryBackOff stops retrying once maxElapsed has passed, so retries never
// outlive the client's request timeout.
func newRetryBackOff(maxElapsed time.Duration) backoff.BackOff {
	if maxElapsed <= 0 {
		maxElapsed = constants.DefaultRequestTimeout
	}
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	bo.MaxElapsedTime = maxElapsed
	return bo
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	var (
		resp      *http.Response
		attempt   int
		permanent error
	)

	op := func() error {
		attempt++
		r := req
		if attempt > 1 {
			var err error
			if r, err = rewind(req); err != nil {
				permanent = err
				return backoff.Permanent(err)
			}
		}

		res, err := t.base.RoundTrip(r)
		if err != nil {
			if ctx.Err() == nil && isTransientNetError(err) {
				clog.DebugContext(ctx, "transient transport error", "attempt", attempt, "error", err)
				return err
			}
			permanent = err
			return backoff.Permanent(err)
		}
		if res.StatusCode >= http.StatusInternalServerError && attempt <= t.maxRetries {
			clog.DebugContext(ctx, "server error, retrying", "attempt", attempt, "status", res.StatusCode)
			drain(res)
			return fmt.Errorf("server returned %d", res.StatusCode)
		}
		resp = res
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(t.newBackOff(), uint64(max(t.maxRetries, 0))), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if permanent != nil || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return resp, nil
}
