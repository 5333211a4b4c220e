// internal/pkg/session/blacklist.go
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes issued session tokens by jti. An entry only
// needs to live as long as the token would have, so revocations are
// stored with the token's remaining lifetime as TTL.
type TokenBlacklist struct {
	client *redis.Client
}

func NewTokenBlacklist(client *redis.Client) *TokenBlacklist {
	return &TokenBlacklist{client: client}
}

func blacklistKey(jti string) string {
	return fmt.Sprintf("panopticon:blacklist:%s", jti)
}

// Revoke marks a token as logged out for the rest of its lifetime.
func (b *TokenBlacklist) Revoke(ctx context.Context, jti string, remaining time.Duration) error {
	if remaining <= 0 {
		return nil
	}
	if err := b.client.Set(ctx, blacklistKey(jti), "1", remaining).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

// IsRevoked reports whether a token was logged out.
func (b *TokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return n > 0, nil
}
