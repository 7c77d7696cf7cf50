package domain

import (
	"errors"
	"fmt"
)

var (
	// Request errors
	ErrMissingParams = errors.New("missing code and state")

	// State token errors
	ErrInvalidState   = errors.New("invalid signature")
	ErrExpiredState   = errors.New("token expired")
	ErrMalformedState = errors.New("malformed state token")

	// Nonce binding errors
	ErrMissingNonce  = errors.New("missing nonce cookie")
	ErrNonceMismatch = errors.New("nonce mismatch")

	// Upstream errors
	ErrMalformedResponse = errors.New("malformed upstream response")

	// Config errors
	ErrMissingConfig = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UpstreamError reports a non-2xx response from one of the providers.
type UpstreamError struct {
	Provider   string
	Operation  string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("request to %s failed with status %d (%s)", e.Provider, e.StatusCode, e.Operation)
}

// ValidationErrors are the request and state validation failures. They
// happen before any upstream call is made.
var ValidationErrors = []error{
	ErrMissingParams,
	ErrInvalidState,
	ErrExpiredState,
	ErrMalformedState,
	ErrMissingNonce,
	ErrNonceMismatch,
}

// ValidationCause returns the validation sentinel err wraps, or nil.
func ValidationCause(err error) error {
	for _, target := range ValidationErrors {
		if errors.Is(err, target) {
			return target
		}
	}
	return nil
}

// IsValidation reports whether err is a request or state validation failure.
func IsValidation(err error) bool {
	return ValidationCause(err) != nil
}
