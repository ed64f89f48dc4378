package auth

import (
	"log/slog"
	"time"

	"github.com/spiffcs/linksync/internal/log"
	"golang.org/x/oauth2"
)

// AccessToken is a bearer token with a validity window. It is owned by the
// Provider, never persisted, and invalid once now >= ExpiresAt.
type AccessToken struct {
	// value is intentionally unexported. NEVER add MarshalJSON or any method
	// that could expose it in logs or serialized output.
	value     string
	ExpiresAt time.Time
	Scopes    []string
}

// NewAccessToken builds a token. It exists mainly for tests and callers that
// hand a token to a client directly.
func NewAccessToken(value string, expiresAt time.Time, scopes ...string) AccessToken {
	return AccessToken{value: value, ExpiresAt: expiresAt, Scopes: scopes}
}

// Value returns the raw bearer credential for the Authorization header.
func (t AccessToken) Value() string {
	return t.value
}

// ValidAt reports whether the token can be handed out at now, keeping margin
// in reserve before expiry.
func (t AccessToken) ValidAt(now time.Time, margin time.Duration) bool {
	if t.value == "" {
		return false
	}
	return now.Add(margin).Before(t.ExpiresAt)
}

// OAuth2 converts the token for use with oauth2 transports.
func (t AccessToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.value,
		TokenType:   "Bearer",
		Expiry:      t.ExpiresAt,
	}
}

// String never includes the token value.
func (t AccessToken) String() string {
	return "AccessToken(expires " + t.ExpiresAt.UTC().Format(time.RFC3339) + ")"
}

// LogValue keeps the token value out of structured logs. Only the redacted
// prefix (which names the token type, e.g. "ghs_") is shown.
func (t AccessToken) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("token", log.Redact(t.value)),
		slog.Time("expires_at", t.ExpiresAt),
		slog.Any("scopes", t.Scopes),
	)
}
