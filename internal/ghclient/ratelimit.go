package ghclient

import (
	"sync"
	"time"
)

// RateLimitState tracks the rate limit state seen by one client.
type RateLimitState struct {
	mu        sync.RWMutex
	now       func() time.Time
	limited   bool
	resetAt   time.Time
	remaining int
	limit     int
}

// RateLimitStatus is a point-in-time copy of RateLimitState.
type RateLimitStatus struct {
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"resetAt"`
	Limited   bool      `json:"limited"`
}

// NewRateLimitState returns an empty state using now as its clock.
func NewRateLimitState(now func() time.Time) *RateLimitState {
	if now == nil {
		now = time.Now
	}
	return &RateLimitState{now: now, remaining: -1, limit: -1}
}

// IsLimited returns true if we are currently rate limited.
func (s *RateLimitState) IsLimited() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.limited {
		return false
	}

	// Check if rate limit has reset
	return s.now().Before(s.resetAt)
}

// SetLimited marks the client as limited until resetAt.
func (s *RateLimitState) SetLimited(resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limited = true
	s.resetAt = resetAt
}

// Update updates the rate limit state from response headers.
func (s *RateLimitState) Update(remaining, limit int, resetAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remaining = remaining
	s.limit = limit
	s.resetAt = resetAt
	s.limited = remaining == 0
}

// Status returns the current rate limit status.
func (s *RateLimitState) Status() RateLimitStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RateLimitStatus{
		Remaining: s.remaining,
		Limit:     s.limit,
		ResetAt:   s.resetAt,
		Limited:   s.limited && s.now().Before(s.resetAt),
	}
}
