package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/snipvault/snipvault/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

func TestSessionTokenRoundTrip(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	now := time.Now().Truncate(time.Second)
	session := &core.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: now,
		ExpiresAt: now.Add(24 * time.Hour),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := tk.TokenToSession(token)
	require.NoError(t, err)
	assert.Equal(t, session.ID, parsed.ID)
	assert.Equal(t, session.UserID, parsed.UserID)
	assert.True(t, parsed.CreatedAt.Equal(session.CreatedAt))
	assert.True(t, parsed.ExpiresAt.Equal(session.ExpiresAt))
}

func TestExpiredTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))

	now := time.Now()
	session := &core.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: now.Add(-48 * time.Hour),
		ExpiresAt: now.Add(-24 * time.Hour),
	}

	token, err := tk.SessionToToken(session)
	require.NoError(t, err)

	_, err = tk.TokenToSession(token)
	assert.Error(t, err)
}

func TestTokenFromDifferentKeyRejected(t *testing.T) {
	signer := NewJWTTokenizer(newTestKey(t))
	parser := NewJWTTokenizer(newTestKey(t))

	now := time.Now()
	token, err := signer.SessionToToken(&core.Session{
		ID:        "sess-1",
		UserID:    "user-1",
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = parser.TokenToSession(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	tk := NewJWTTokenizer(newTestKey(t))
	_, err := tk.TokenToSession("not.a.jwt")
	assert.Error(t, err)
}
