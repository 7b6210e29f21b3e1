package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "revoked:"

// RedisRegistry keeps revocation entries in Redis with a per-key PX expiry,
// so entries vanish on their own once the token would have expired anyway.
type RedisRegistry struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisRegistry wraps an existing client.
func NewRedisRegistry(client redis.UniversalClient) *RedisRegistry {
	return &RedisRegistry{client: client, now: time.Now}
}

// Block implements Registry.
func (r *RedisRegistry) Block(ctx context.Context, rawToken string) error {
	ttl, err := blockTTL(rawToken, r.now())
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, revokedKey(rawToken), 1, ttl).Err(); err != nil {
		return fmt.Errorf("store revocation: %w", err)
	}
	return nil
}

// IsBlocked implements Registry.
func (r *RedisRegistry) IsBlocked(ctx context.Context, rawToken string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKey(rawToken)).Result()
	if err != nil {
		return false, fmt.Errorf("lookup revocation: %w", err)
	}
	return n > 0, nil
}

// Ping verifies Redis connectivity.
func (r *RedisRegistry) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func revokedKey(rawToken string) string {
	return revokedKeyPrefix + Fingerprint(rawToken)
}
