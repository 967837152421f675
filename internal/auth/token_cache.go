package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const tokenCachePrefix = "auth_token:"

// TokenCache remembers recently verified bearer tokens so the hot path can
// skip the signature check. Entries expire well before the tokens do.
type TokenCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewTokenCache(client *redis.Client, ttl time.Duration) *TokenCache {
	return &TokenCache{Client: client, TTL: ttl}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return tokenCachePrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached user id for a token, or "" on a miss.
func (c *TokenCache) Get(ctx context.Context, token string) (string, error) {
	if c == nil || c.Client == nil {
		return "", nil
	}

	userID, err := c.Client.Get(ctx, cacheKey(token)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token cache: %w", err)
	}
	return userID, nil
}

// Set stores a verified token. The entry never outlives the token itself:
// its TTL is the cache TTL capped at the token's remaining validity.
func (c *TokenCache) Set(ctx context.Context, token, userID string, remaining time.Duration) error {
	if c == nil || c.Client == nil {
		return nil
	}

	ttl := cacheTTL(c.TTL, remaining)
	if ttl <= 0 {
		return nil
	}

	if err := c.Client.Set(ctx, cacheKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token in cache: %w", err)
	}
	return nil
}

func cacheTTL(base, remaining time.Duration) time.Duration {
	if remaining < base {
		return remaining
	}
	return base
}
