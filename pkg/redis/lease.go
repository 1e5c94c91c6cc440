package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Lease is a short-lived exclusive lock held in redis (SET NX PX).
// With redis disabled every Acquire succeeds.
// ⭐ SSOT: 분산 락은 여기서만
type Lease struct {
	client *Client
	prefix string
}

// NewLease creates a lease helper
func NewLease(client *Client, prefix string) *Lease {
	return &Lease{client: client, prefix: prefix}
}

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

func (l *Lease) key(name string) string {
	return fmt.Sprintf("%s:lease:%s", l.prefix, name)
}

// Acquire tries to take the lease. Returns the holder token and whether it was taken.
func (l *Lease) Acquire(ctx context.Context, name string, ttl time.Duration) (string, bool, error) {
	if !l.client.Enabled() {
		return "", true, nil
	}

	token := uuid.NewString()
	ok, err := l.client.Redis().SetNX(ctx, l.key(name), token, ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("lease acquire failed: %w", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release gives the lease back if token still owns it
func (l *Lease) Release(ctx context.Context, name, token string) error {
	if !l.client.Enabled() || token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client.Redis(), []string{l.key(name)}, token).Err(); err != nil {
		return fmt.Errorf("lease release failed: %w", err)
	}
	return nil
}

// Lease names
const (
	RecomputeLease = "recompute"
)
