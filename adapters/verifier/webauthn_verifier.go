// Package verifier implements the cryptographic capability boundary of the
// credential ceremonies on top of go-webauthn. The ceremony state machine
// only sees the ports.Verifier interface; everything WebAuthn-specific stays
// here.
package verifier

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

// Config identifies the relying party.
type Config struct {
	RPID          string
	RPDisplayName string
	RPOrigins     []string
}

// WebAuthnVerifier is a go-webauthn implementation of ports.Verifier.
type WebAuthnVerifier struct {
	wa *webauthn.WebAuthn
}

// NewWebAuthn creates a verifier for the given relying party.
func NewWebAuthn(cfg Config) (*WebAuthnVerifier, error) {
	wa, err := webauthn.New(&webauthn.Config{
		RPID:          cfg.RPID,
		RPDisplayName: cfg.RPDisplayName,
		RPOrigins:     cfg.RPOrigins,
	})
	if err != nil {
		return nil, fmt.Errorf("configure webauthn: %w", err)
	}
	return &WebAuthnVerifier{wa: wa}, nil
}

// VerifyAttestation checks that the attestation is bound to the challenge
// nonce and returns the new credential's key material.
func (v *WebAuthnVerifier) VerifyAttestation(ctx context.Context, challenge *core.Challenge, attestation []byte) (*core.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBytes(attestation)
	if err != nil {
		return nil, fmt.Errorf("parse attestation: %w", err)
	}

	// During registration no user record exists yet, so the challenge id is
	// the user handle; the service later adopts it as the new user's id.
	user := &ceremonyUser{id: []byte(challenge.ID)}
	credential, err := v.wa.CreateCredential(user, v.session(challenge, user), parsed)
	if err != nil {
		return nil, fmt.Errorf("verify attestation: %w", err)
	}

	return &core.Credential{
		ID:          credential.ID,
		PublicKey:   credential.PublicKey,
		SignCounter: credential.Authenticator.SignCount,
	}, nil
}

// VerifyAssertion checks that the assertion is bound to the challenge nonce
// and signed by one of the subject's stored credentials.
func (v *WebAuthnVerifier) VerifyAssertion(ctx context.Context, challenge *core.Challenge, assertion []byte, stored []*core.Credential) (*ports.AssertionResult, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBytes(assertion)
	if err != nil {
		return nil, fmt.Errorf("parse assertion: %w", err)
	}

	user := &ceremonyUser{id: []byte(challenge.Subject)}
	for _, c := range stored {
		user.credentials = append(user.credentials, webauthn.Credential{
			ID:        c.ID,
			PublicKey: c.PublicKey,
			Authenticator: webauthn.Authenticator{
				SignCount: c.SignCounter,
			},
		})
	}

	credential, err := v.wa.ValidateLogin(user, v.session(challenge, user), parsed)
	if err != nil {
		return nil, fmt.Errorf("verify assertion: %w", err)
	}

	return &ports.AssertionResult{
		CredentialID: credential.ID,
		SignCounter:  credential.Authenticator.SignCount,
	}, nil
}

func (v *WebAuthnVerifier) session(challenge *core.Challenge, user *ceremonyUser) webauthn.SessionData {
	return webauthn.SessionData{
		Challenge:      base64.RawURLEncoding.EncodeToString(challenge.Nonce),
		RelyingPartyID: v.wa.Config.RPID,
		UserID:         user.WebAuthnID(),
		Expires:        challenge.ExpiresAt,
	}
}

// ceremonyUser satisfies webauthn.User for the duration of one ceremony.
type ceremonyUser struct {
	id          []byte
	credentials []webauthn.Credential
}

func (u *ceremonyUser) WebAuthnID() []byte { return u.id }

func (u *ceremonyUser) WebAuthnName() string { return string(u.id) }

func (u *ceremonyUser) WebAuthnDisplayName() string { return string(u.id) }

func (u *ceremonyUser) WebAuthnCredentials() []webauthn.Credential { return u.credentials }

var _ ports.Verifier = (*WebAuthnVerifier)(nil)
