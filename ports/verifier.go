package ports

import (
	"context"

	"github.com/snipvault/snipvault/core"
)

// AssertionResult carries the outcome of a successful assertion verification.
type AssertionResult struct {
	CredentialID []byte // Which stored credential produced the assertion
	SignCounter  uint32 // Counter reported by the authenticator
}

// Verifier is the opaque cryptographic capability boundary. Implementations
// own the proof wire format; the ceremony state machine never inspects it.
type Verifier interface {
	// VerifyAttestation checks that the attestation is cryptographically
	// bound to the challenge and returns the new credential's public key
	// material. The returned credential has no UserID assigned yet.
	VerifyAttestation(ctx context.Context, challenge *core.Challenge, attestation []byte) (*core.Credential, error)

	// VerifyAssertion checks that the assertion is bound to the challenge
	// and signed by one of the stored credentials.
	VerifyAssertion(ctx context.Context, challenge *core.Challenge, assertion []byte, stored []*core.Credential) (*AssertionResult, error)
}
