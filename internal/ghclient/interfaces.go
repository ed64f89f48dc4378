// Package ghclient provides GitHub API client functionality: authenticated
// REST access to issues and pull requests with pagination, transient retry,
// refresh-once on authorization failures and rate limit tracking.
package ghclient

import (
	"github.com/spiffcs/linksync/internal/auth"
)

// Ensure the token provider satisfies TokenSource.
var _ TokenSource = (*auth.Provider)(nil)
