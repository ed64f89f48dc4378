// Package constants provides a centralized location for the tunables and
// magic numbers used throughout linksync.
package constants

import "time"

// Remote API constants
const (
	// DefaultAPIURL is the REST endpoint used when none is configured.
	DefaultAPIURL = "https://api.github.com/"

	// DefaultRequestTimeout bounds every outbound HTTP call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries for transient transport
	// failures (timeouts, 5xx, connection resets).
	DefaultMaxRetries = 3

	// MaxPageSize is the largest page the REST API will return.
	MaxPageSize = 100

	// UserAgent is sent on every request.
	UserAgent = "linksync"
)

// Rate limiting constants
const (
	// RateLimitLowWatermark is the threshold below which rate limit
	// warnings are logged.
	RateLimitLowWatermark = 100
)

// Token constants
const (
	// TokenRefreshMargin is subtracted from a token's expiry when deciding
	// whether the cached token can still be handed out.
	TokenRefreshMargin = 5 * time.Minute

	// AmbientTokenLifetime is the synthetic lifetime given to a CI-provided
	// token, whose real expiry is unknown.
	AmbientTokenLifetime = time.Hour

	// AmbientScope marks tokens that came from the CI environment.
	AmbientScope = "ambient-scoped"
)

// Synchronization constants
const (
	// DefaultFetchLimit bounds how many issues or PRs are read per snapshot.
	DefaultFetchLimit = 200

	// DefaultListLimit is the default limit for the PR listing operation.
	DefaultListLimit = 100

	// DefaultWorkers is the default concurrency for batch synchronization.
	DefaultWorkers = 4

	// DefaultPacingInterval is the minimum gap between per-issue
	// reconciliations in a batch run.
	DefaultPacingInterval = 100 * time.Millisecond

	// ExtractionCacheSize is the number of distinct texts whose extracted
	// references are memoized.
	ExtractionCacheSize = 4096
)

// Item state constants
const (
	// StateOpen indicates an issue or PR is open.
	StateOpen = "open"

	// StateClosed indicates an issue or PR is closed.
	StateClosed = "closed"

	// StateAll selects both open and closed items in list calls.
	StateAll = "all"

	// StateMerged is the display state of a merged PR.
	StateMerged = "merged"
)
