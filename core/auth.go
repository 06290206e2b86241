package core

import "time"

// ChallengeKind distinguishes the two ceremony types a challenge can scope.
type ChallengeKind string

const (
	ChallengeRegister ChallengeKind = "register"
	ChallengeLogin    ChallengeKind = "login"
)

// Challenge represents a single-use authentication challenge.
type Challenge struct {
	ID        string        // Unique identifier, used as the store key
	Kind      ChallengeKind // Ceremony this challenge scopes
	Nonce     []byte        // Random value the authenticator signs over
	Subject   string        // User the challenge is bound to; empty for registration
	IssuedAt  time.Time     // When the challenge was created
	ExpiresAt time.Time     // When the challenge expires
}

// Expired reports whether the challenge is past its expiry at the given time.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// Credential is a public-key credential registered by an authenticator.
type Credential struct {
	ID          []byte    // Credential identifier chosen by the authenticator
	UserID      string    // Owning user
	PublicKey   []byte    // COSE-encoded public key material
	SignCounter uint32    // Last accepted signature counter
	CreatedAt   time.Time // When the credential was registered
}

// Session represents an authenticated user session. The server-side record is
// authoritative for expiry; the wire token only identifies it.
type Session struct {
	ID            string    // Unique session identifier
	UserID        string    // Authenticated user
	CreatedAt     time.Time // When the session was created
	LastRenewedAt time.Time // When the session was last renewed
	ExpiresAt     time.Time // Always LastRenewedAt + session TTL
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
