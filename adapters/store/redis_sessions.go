package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

// renewScript conditionally extends a session. The expiry check and the
// write happen inside Redis, so a concurrent renewal can never extend an
// already-expired record. Returns 0 when the key is missing, -1 when the
// record is past its expiry (deleting it), 1 on success.
var renewScript = redis.NewScript(`
local exp = redis.call('HGET', KEYS[1], 'expires_at')
if not exp then
  return 0
end
if tonumber(exp) <= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[1])
  return -1
end
redis.call('HSET', KEYS[1], 'last_renewed_at', ARGV[1], 'expires_at', ARGV[2])
redis.call('PEXPIREAT', KEYS[1], ARGV[2])
return 1
`)

// RedisSessionStore is a Redis implementation of ports.SessionStore. Each
// session is a hash keyed by session id; the hash TTL mirrors the record's
// expiry.
type RedisSessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSessionStore creates a new Redis session store. The TTL is the
// fixed lifetime applied on Put and on every successful Renew.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{
		client: client,
		prefix: "snipvault:session:",
		ttl:    ttl,
	}
}

// Put stores a session record.
func (s *RedisSessionStore) Put(ctx context.Context, session *core.Session) error {
	key := s.prefix + session.ID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"user_id", session.UserID,
		"created_at", session.CreatedAt.UnixMilli(),
		"last_renewed_at", session.LastRenewedAt.UnixMilli(),
		"expires_at", session.ExpiresAt.UnixMilli(),
	)
	pipe.PExpireAt(ctx, key, session.ExpiresAt)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get retrieves a session record.
func (s *RedisSessionStore) Get(ctx context.Context, id string) (*core.Session, error) {
	fields, err := s.client.HGetAll(ctx, s.prefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(fields) == 0 {
		return nil, core.ErrSessionNotFound
	}
	return sessionFromHash(id, fields)
}

// Renew conditionally extends a session so its expiry derives from now.
func (s *RedisSessionStore) Renew(ctx context.Context, id string, now time.Time) (*core.Session, error) {
	expiresAt := now.Add(s.ttl)
	res, err := renewScript.Run(ctx, s.client,
		[]string{s.prefix + id},
		now.UnixMilli(), expiresAt.UnixMilli(),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("renew session: %w", err)
	}

	switch res {
	case 0:
		return nil, core.ErrSessionNotFound
	case -1:
		return nil, core.ErrSessionExpired
	}

	session, err := s.Get(ctx, id)
	if errors.Is(err, core.ErrSessionNotFound) {
		// Deleted between the script and the read; treat as expired.
		return nil, core.ErrSessionExpired
	}
	return session, err
}

// Delete removes a session record.
func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.prefix+id).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func sessionFromHash(id string, fields map[string]string) (*core.Session, error) {
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session created_at: %w", err)
	}
	renewedAt, err := strconv.ParseInt(fields["last_renewed_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session last_renewed_at: %w", err)
	}
	expiresAt, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode session expires_at: %w", err)
	}

	return &core.Session{
		ID:            id,
		UserID:        fields["user_id"],
		CreatedAt:     time.UnixMilli(createdAt),
		LastRenewedAt: time.UnixMilli(renewedAt),
		ExpiresAt:     time.UnixMilli(expiresAt),
	}, nil
}

var _ ports.SessionStore = (*RedisSessionStore)(nil)
