package store

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

// MemoryChallengeStore is an in-memory implementation of
// ports.ChallengeStore. Expired entries are swept lazily on access.
type MemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*core.Challenge
	consumed   map[string]time.Time
	ttl        time.Duration
	now        func() time.Time
}

// NewMemoryChallengeStore creates a new in-memory challenge store.
func NewMemoryChallengeStore(ttl time.Duration) *MemoryChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryChallengeStore{
		challenges: make(map[string]*core.Challenge),
		consumed:   make(map[string]time.Time),
		ttl:        ttl,
		now:        time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *MemoryChallengeStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Issue creates and stores a new challenge.
func (s *MemoryChallengeStore) Issue(ctx context.Context, kind core.ChallengeKind, subject string) (*core.Challenge, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Kind:      kind,
		Nonce:     nonce,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.challenges[challenge.ID] = challenge
	s.sweepLocked(now)
	return challenge, nil
}

// Consume atomically retrieves and deletes the challenge. The whole
// operation runs under one lock, so exactly one concurrent caller wins.
func (s *MemoryChallengeStore) Consume(ctx context.Context, id string) (*core.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	challenge, ok := s.challenges[id]
	if !ok {
		if until, consumed := s.consumed[id]; consumed && now.Before(until) {
			return nil, core.ErrChallengeConsumed
		}
		return nil, core.ErrChallengeNotFound
	}

	delete(s.challenges, id)
	s.consumed[id] = now.Add(s.ttl)

	if challenge.Expired(now) {
		return nil, core.ErrChallengeExpired
	}
	return challenge, nil
}

// sweepLocked drops entries past their grace window. Callers hold s.mu.
func (s *MemoryChallengeStore) sweepLocked(now time.Time) {
	for id, challenge := range s.challenges {
		if now.After(challenge.ExpiresAt.Add(challengeGrace)) {
			delete(s.challenges, id)
		}
	}
	for id, until := range s.consumed {
		if now.After(until) {
			delete(s.consumed, id)
		}
	}
}

// MemorySessionStore is an in-memory implementation of ports.SessionStore.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*core.Session
	ttl      time.Duration
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*core.Session),
		ttl:      ttl,
	}
}

// Put stores a session record.
func (s *MemorySessionStore) Put(ctx context.Context, session *core.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

// Get retrieves a session record.
func (s *MemorySessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	copied := *session
	return &copied, nil
}

// Renew conditionally extends an existing, unexpired session.
func (s *MemorySessionStore) Renew(ctx context.Context, id string, now time.Time) (*core.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	if session.Expired(now) {
		delete(s.sessions, id)
		return nil, core.ErrSessionExpired
	}

	session.LastRenewedAt = now
	session.ExpiresAt = now.Add(s.ttl)
	copied := *session
	return &copied, nil
}

// Delete removes a session record.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// MemoryCredentialStore is an in-memory implementation of
// ports.CredentialStore.
type MemoryCredentialStore struct {
	mu          sync.Mutex
	credentials map[string]*core.Credential
	byUser      map[string][]string
}

// NewMemoryCredentialStore creates a new in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		credentials: make(map[string]*core.Credential),
		byUser:      make(map[string][]string),
	}
}

// Put stores a credential and indexes it under its owner.
func (s *MemoryCredentialStore) Put(ctx context.Context, credential *core.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := encodeCredentialID(credential.ID)
	if _, exists := s.credentials[key]; !exists {
		s.byUser[credential.UserID] = append(s.byUser[credential.UserID], key)
	}
	copied := *credential
	s.credentials[key] = &copied
	return nil
}

// ForSubject returns all credentials owned by the given user.
func (s *MemoryCredentialStore) ForSubject(ctx context.Context, userID string) ([]*core.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.byUser[userID]
	credentials := make([]*core.Credential, 0, len(keys))
	for _, key := range keys {
		if credential, ok := s.credentials[key]; ok {
			copied := *credential
			credentials = append(credentials, &copied)
		}
	}
	return credentials, nil
}

// UpdateSignCounter advances a credential's sign counter when it strictly
// increases.
func (s *MemoryCredentialStore) UpdateSignCounter(ctx context.Context, credentialID []byte, counter uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := encodeCredentialID(credentialID)
	credential, ok := s.credentials[key]
	if !ok {
		return fmt.Errorf("credential %s not found", key)
	}
	if counter <= credential.SignCounter {
		return fmt.Errorf("sign counter for %s did not advance", key)
	}
	credential.SignCounter = counter
	return nil
}

var (
	_ ports.ChallengeStore  = (*MemoryChallengeStore)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
)
