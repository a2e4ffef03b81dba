package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/logger"
)

// releaseScript deletes the lock key only when the caller still owns it,
// so a holder that outlived its TTL cannot release a successor's lock.
var releaseScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	end
	return 0
`)

// ScopeLock implements ingest.ScopeLocker with a per-scope SET NX key.
type ScopeLock struct {
	client *Client
	logger *logger.Logger
}

// NewScopeLock creates a new ScopeLock.
func NewScopeLock(client *Client, log *logger.Logger) *ScopeLock {
	return &ScopeLock{
		client: client,
		logger: log.With("component", "scope_lock"),
	}
}

func lockKey(scopeID string) string {
	return "ingest:scope:" + scopeID
}

// Acquire takes the scope lock or returns ingest.ErrScopeBusy when another
// reconciliation holds it. The returned release func is safe to call after
// the TTL expired.
func (l *ScopeLock) Acquire(ctx context.Context, scopeID string, ttl time.Duration) (func(context.Context), error) {
	key := lockKey(scopeID)
	token := uuid.NewString()

	ok, err := l.client.Raw().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire scope lock: %w", err)
	}
	if !ok {
		return nil, ingest.ErrScopeBusy
	}

	release := func(ctx context.Context) {
		if err := releaseScript.Run(ctx, l.client.Raw(), []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release scope lock", "scope_id", scopeID, "error", err)
		}
	}
	return release, nil
}
