package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/snipvault/snipvault/core"
	"github.com/snipvault/snipvault/ports"
)

// counterScript advances a credential's sign counter only when the new value
// strictly exceeds the stored one. Returns 0 when the credential is missing,
// -1 when the counter would not advance, 1 on success.
var counterScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'sign_counter')
if not cur then
  return 0
end
if tonumber(ARGV[1]) <= tonumber(cur) then
  return -1
end
redis.call('HSET', KEYS[1], 'sign_counter', ARGV[1])
return 1
`)

// RedisCredentialStore is a Redis implementation of ports.CredentialStore.
// Each credential is a hash keyed by its base64url id; a per-user set indexes
// the credentials a subject owns.
type RedisCredentialStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCredentialStore creates a new Redis credential store.
func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{
		client: client,
		prefix: "snipvault:credential:",
	}
}

// Put stores a credential and indexes it under its owner.
func (s *RedisCredentialStore) Put(ctx context.Context, credential *core.Credential) error {
	encodedID := encodeCredentialID(credential.ID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.prefix+encodedID,
		"user_id", credential.UserID,
		"public_key", base64.StdEncoding.EncodeToString(credential.PublicKey),
		"sign_counter", credential.SignCounter,
		"created_at", credential.CreatedAt.UnixMilli(),
	)
	pipe.SAdd(ctx, s.userKey(credential.UserID), encodedID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	return nil
}

// ForSubject returns all credentials owned by the given user.
func (s *RedisCredentialStore) ForSubject(ctx context.Context, userID string) ([]*core.Credential, error) {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	credentials := make([]*core.Credential, 0, len(ids))
	for _, encodedID := range ids {
		fields, err := s.client.HGetAll(ctx, s.prefix+encodedID).Result()
		if err != nil {
			return nil, fmt.Errorf("load credential: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		credential, err := credentialFromHash(encodedID, fields)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, credential)
	}
	return credentials, nil
}

// UpdateSignCounter conditionally advances a credential's sign counter.
func (s *RedisCredentialStore) UpdateSignCounter(ctx context.Context, credentialID []byte, counter uint32) error {
	res, err := counterScript.Run(ctx, s.client,
		[]string{s.prefix + encodeCredentialID(credentialID)},
		counter,
	).Int64()
	if err != nil {
		return fmt.Errorf("update sign counter: %w", err)
	}
	if res != 1 {
		return fmt.Errorf("sign counter for %s did not advance", encodeCredentialID(credentialID))
	}
	return nil
}

func (s *RedisCredentialStore) userKey(userID string) string {
	return s.prefix + "user:" + userID
}

func encodeCredentialID(id []byte) string {
	return base64.RawURLEncoding.EncodeToString(id)
}

func credentialFromHash(encodedID string, fields map[string]string) (*core.Credential, error) {
	id, err := base64.RawURLEncoding.DecodeString(encodedID)
	if err != nil {
		return nil, fmt.Errorf("decode credential id: %w", err)
	}
	publicKey, err := base64.StdEncoding.DecodeString(fields["public_key"])
	if err != nil {
		return nil, fmt.Errorf("decode credential public key: %w", err)
	}
	counter, err := strconv.ParseUint(fields["sign_counter"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("decode sign counter: %w", err)
	}
	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode credential created_at: %w", err)
	}

	return &core.Credential{
		ID:          id,
		UserID:      fields["user_id"],
		PublicKey:   publicKey,
		SignCounter: uint32(counter),
		CreatedAt:   time.UnixMilli(createdAt),
	}, nil
}

var _ ports.CredentialStore = (*RedisCredentialStore)(nil)
