// internal/pkg/session/limiter.go

// Package session holds the Redis-backed pieces of the operator's
// session lifecycle: throttling login attempts and revoking issued
// tokens on logout.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginAttemptLimit  = 5
	loginAttemptWindow = 15 * time.Minute
)

// LoginLimiter throttles login attempts per source IP with a fixed
// Redis window.
type LoginLimiter struct {
	client *redis.Client
}

func NewLoginLimiter(client *redis.Client) *LoginLimiter {
	return &LoginLimiter{client: client}
}

func loginKey(ip string) string {
	return fmt.Sprintf("panopticon:ratelimit:login:%s", ip)
}

// Allow counts one attempt and reports whether it is within the
// window, along with the attempts left.
func (l *LoginLimiter) Allow(ctx context.Context, ip string) (bool, int64, error) {
	key := loginKey(ip)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to count login attempt: %w", err)
	}

	// Start the window on the first attempt.
	if count == 1 {
		l.client.Expire(ctx, key, loginAttemptWindow)
	}

	remaining := int64(loginAttemptLimit) - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= loginAttemptLimit, remaining, nil
}

// Reset clears the attempt counter, called after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, ip string) error {
	return l.client.Del(ctx, loginKey(ip)).Err()
}
