package store

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

const (
	// DefaultChallengeTTL is how long an issued challenge stays consumable.
	DefaultChallengeTTL = 5 * time.Minute

	// challengeGrace keeps an expired record around long enough for a late
	// consume to observe "expired" rather than "not found". Correctness does
	// not depend on it; the consume-time check does.
	challengeGrace = time.Minute

	nonceSize = 32
)

// RedisChallengeStore is a Redis implementation of ports.ChallengeStore.
// Consumption is a single GETDEL, so at most one caller ever receives the
// record; the winner leaves a tombstone so that losers can tell a consumed
// challenge from one that never existed.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisChallengeStore creates a new Redis challenge store.
func NewRedisChallengeStore(client *redis.Client, ttl time.Duration) *RedisChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &RedisChallengeStore{
		client: client,
		prefix: "snipvault:challenge:",
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue creates and persists a new challenge.
func (s *RedisChallengeStore) Issue(ctx context.Context, kind core.ChallengeKind, subject string) (*core.Challenge, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Kind:      kind,
		Nonce:     nonce,
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	payload, err := json.Marshal(challenge)
	if err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}

	// The key outlives the challenge by a grace period; redis expiry is the
	// sweep, the ExpiresAt check in Consume is the guarantee.
	if err := s.client.Set(ctx, s.prefix+challenge.ID, payload, s.ttl+challengeGrace).Err(); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	return challenge, nil
}

// Consume atomically retrieves and deletes the challenge.
func (s *RedisChallengeStore) Consume(ctx context.Context, id string) (*core.Challenge, error) {
	payload, err := s.client.GetDel(ctx, s.prefix+id).Result()
	if errors.Is(err, redis.Nil) {
		exists, terr := s.client.Exists(ctx, s.tombstone(id)).Result()
		if terr == nil && exists > 0 {
			return nil, core.ErrChallengeConsumed
		}
		return nil, core.ErrChallengeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	// Mark the id consumed for concurrent racers. Best effort: a failed
	// write only downgrades their error to not-found.
	if err := s.client.Set(ctx, s.tombstone(id), "1", s.ttl+challengeGrace).Err(); err != nil {
		return nil, fmt.Errorf("write tombstone: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal([]byte(payload), &challenge); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}

	if challenge.Expired(s.now()) {
		return nil, core.ErrChallengeExpired
	}
	return &challenge, nil
}

func (s *RedisChallengeStore) tombstone(id string) string {
	return s.prefix + "consumed:" + id
}

var _ ports.ChallengeStore = (*RedisChallengeStore)(nil)
