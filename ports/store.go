package ports

import (
	"context"
	"time"

	"github.com/snipvault/snipvault/core"
)

// ChallengeStore manages single-use, time-bounded challenges.
type ChallengeStore interface {
	// Issue creates and persists a new challenge for the given ceremony.
	// Subject is empty for registration challenges.
	Issue(ctx context.Context, kind core.ChallengeKind, subject string) (*core.Challenge, error)

	// Consume atomically retrieves and deletes the challenge with the given
	// id. At most one concurrent caller succeeds; the rest observe
	// core.ErrChallengeConsumed or core.ErrChallengeNotFound. An expired
	// challenge fails with core.ErrChallengeExpired and is deleted as a side
	// effect regardless.
	Consume(ctx context.Context, id string) (*core.Challenge, error)
}

// SessionStore persists session records. The stored record is authoritative
// for expiry.
type SessionStore interface {
	Put(ctx context.Context, session *core.Session) error

	// Get returns the session or core.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*core.Session, error)

	// Renew extends an existing, unexpired session so that its expiry is
	// derived from now. Fails with core.ErrSessionNotFound or
	// core.ErrSessionExpired; last writer wins across concurrent renewals.
	Renew(ctx context.Context, id string, now time.Time) (*core.Session, error)

	Delete(ctx context.Context, id string) error
}

// CredentialStore persists registered public-key credentials.
type CredentialStore interface {
	Put(ctx context.Context, credential *core.Credential) error

	// ForSubject returns all credentials owned by the given user.
	ForSubject(ctx context.Context, userID string) ([]*core.Credential, error)

	// UpdateSignCounter stores a new sign counter for a credential. The
	// write is conditional: it only applies when counter exceeds the stored
	// value.
	UpdateSignCounter(ctx context.Context, credentialID []byte, counter uint32) error
}
