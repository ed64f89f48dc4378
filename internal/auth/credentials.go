// Package auth converts long-lived GitHub App credentials into short-lived
// installation access tokens, or substitutes the ambient token a trusted CI
// runner already holds.
package auth

import (
	"strings"
)

// Names of the inputs a Provider consumes. Errors name these so a missing
// or invalid value can be fixed without guessing.
const (
	EnvAppID             = "LINKSYNC_APP_ID"
	EnvPrivateKey        = "LINKSYNC_APP_PRIVATE_KEY"
	EnvInstallationID    = "LINKSYNC_INSTALLATION_ID"
	EnvInstallationOwner = "LINKSYNC_INSTALLATION_OWNER"
	EnvUseAmbientToken   = "LINKSYNC_USE_AMBIENT_TOKEN"
	EnvAmbientToken      = "GITHUB_TOKEN"
)

// Credentials are the opaque inputs of a Provider. They are immutable for the
// lifetime of the process.
type Credentials struct {
	AppID int64
	// PrivateKey is PEM encoded (PKCS#1 or PKCS#8).
	PrivateKey []byte
	// InstallationID is optional; zero means resolve it at runtime.
	InstallationID int64
	// InstallationOwner selects an installation by account login when
	// InstallationID is not set.
	InstallationOwner string

	// TrustedCI is true when running inside a CI runner whose ambient token
	// may be used instead of the app credentials.
	TrustedCI bool
	// UseAmbient opts in to the ambient token.
	UseAmbient bool
	// AmbientToken is the token provided by the CI runner.
	AmbientToken string
}

// Strategy identifies how a token is acquired.
type Strategy int

const (
	// StrategyApp signs an app assertion and exchanges it for an
	// installation token.
	StrategyApp Strategy = iota
	// StrategyAmbient wraps the CI-provided token.
	StrategyAmbient
)

func (s Strategy) String() string {
	switch s {
	case StrategyAmbient:
		return "ambient"
	default:
		return "app"
	}
}

// Strategy selects the acquisition strategy for these credentials.
func (c Credentials) Strategy() Strategy {
	if c.TrustedCI && c.UseAmbient && c.AmbientToken != "" {
		return StrategyAmbient
	}
	return StrategyApp
}

// validateApp checks that the app strategy has what it needs.
func (c Credentials) validateApp() error {
	if c.AppID <= 0 {
		return &CredentialError{Input: EnvAppID, Reason: ReasonNotConfigured}
	}
	if len(strings.TrimSpace(string(c.PrivateKey))) == 0 {
		return &CredentialError{Input: EnvPrivateKey, Reason: ReasonNotConfigured}
	}
	return nil
}

// normalizeKey turns a key whose newlines were escaped (common when a PEM is
// stored in a single-line environment variable) back into valid PEM.
func normalizeKey(key []byte) []byte {
	s := strings.TrimSpace(string(key))
	if !strings.Contains(s, "\n") && strings.Contains(s, `\n`) {
		s = strings.ReplaceAll(s, `\n`, "\n")
	}
	return []byte(s)
}
