package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in a shared Redis.
const keyPrefix = "session:"

// RedisStore keeps sessions as JSON values whose TTL ends at ExpiresAt.
type RedisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisStore creates a RedisStore on client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func redisKey(tokenHash string) string {
	return keyPrefix + tokenHash
}

// Create stores s with a TTL matching its remaining lifetime.
func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("store session: already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := r.client.Set(ctx, redisKey(s.TokenHash), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

// Get returns the session for tokenHash. The expiry check guards against
// clock skew between the app and Redis.
func (r *RedisStore) Get(ctx context.Context, tokenHash string) (*Session, error) {
	data, err := r.client.Get(ctx, redisKey(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.IsExpiredAt(r.now()) {
		return nil, ErrNotFound
	}
	return &s, nil
}

// Delete removes the key for tokenHash.
func (r *RedisStore) Delete(ctx context.Context, tokenHash string) error {
	if err := r.client.Del(ctx, redisKey(tokenHash)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts keys when their TTL ends.
func (r *RedisStore) DeleteExpired(context.Context) (int64, error) {
	return 0, nil
}

var _ Store = (*RedisStore)(nil)
