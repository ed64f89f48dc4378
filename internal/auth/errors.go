package auth

import (
	"errors"
	"fmt"
)

// ErrCredentials matches every CredentialError with errors.Is.
var ErrCredentials = errors.New("credential error")

// Credential failure reasons.
const (
	ReasonNotConfigured       = "credentials not configured"
	ReasonInvalidKey          = "failed to parse private key"
	ReasonNoInstallation      = "no installation found"
	ReasonAmbiguous           = "ambiguous installation"
	ReasonRejected            = "app credentials rejected"
	ReasonUnknownInstallation = "installation not found"
)

// CredentialError is a fatal, non-retryable credential problem. Input names
// the specific variable that is missing or invalid.
type CredentialError struct {
	Input  string
	Reason string
	Detail string
	Err    error
}

func (e *CredentialError) Error() string {
	msg := fmt.Sprintf("%s (%s)", e.Reason, e.Input)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrCredentials) true for any CredentialError.
func (e *CredentialError) Is(target error) bool {
	return target == ErrCredentials
}
