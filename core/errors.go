package core

import (
	"errors"
	"fmt"
)

// Challenge store errors. The service layer collapses all of them into
// ErrInvalidChallenge before they reach a caller, so which case occurred is
// never disclosed outside the process.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge has expired")
	ErrChallengeConsumed = errors.New("challenge already consumed")
)

// Ceremony errors.
var (
	// ErrInvalidChallenge is returned when the challenge backing a finish
	// attempt could not be consumed, whatever the underlying reason.
	ErrInvalidChallenge = errors.New("invalid challenge")

	// ErrAttestationRejected is returned when the cryptographic proof
	// (attestation or assertion) fails verification.
	ErrAttestationRejected = errors.New("attestation rejected")

	// ErrPossibleCloning is returned when an assertion's sign counter does
	// not exceed the stored counter.
	ErrPossibleCloning = errors.New("possible credential cloning detected")

	// ErrUnknownSubject is returned when a login is started for a user with
	// no registered credential.
	ErrUnknownSubject = errors.New("unknown subject")

	// ErrAuthTransient is returned when a ceremony step timed out against
	// backing storage and may be retried.
	ErrAuthTransient = errors.New("transient authentication failure")
)

// Session and token errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token has expired")
)

// ErrSnippetNotFound is returned when a snippet does not exist or is owned by
// another user.
var ErrSnippetNotFound = errors.New("snippet not found")

// ValidationError reports the first structurally invalid field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}
