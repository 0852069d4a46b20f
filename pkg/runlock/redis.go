/**
 * @description
 * Distributed run lock backed by Redis. It keeps the cron trigger and a manual HTTP trigger
 * from running the penalty workflow at the same time.
 */
package runlock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "penalty:lock"

// releaseScript deletes the key only if it still holds our token, so an expired lock that
// another run has since taken is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements a single-holder lock with SET NX PX.
type RedisLock struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisLock creates a lock. ttl bounds how long a crashed holder can block later runs.
func NewRedisLock(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisLock {
	trimmedPrefix := strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if trimmedPrefix == "" {
		trimmedPrefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLock{client: client, prefix: trimmedPrefix, ttl: ttl}
}

// Acquire takes the lock for key. It returns acquired=false when another holder owns it.
func (l *RedisLock) Acquire(ctx context.Context, key string) (func(), bool, error) {
	fullKey := l.key(key)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The run's context may already be cancelled.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(releaseCtx, l.client, []string{fullKey}, token).Err()
	}
	return release, true, nil
}

func (l *RedisLock) key(name string) string {
	return fmt.Sprintf("%s:%s", l.prefix, strings.TrimSpace(name))
}

// NewClient parses a redis:// URL into a client.
func NewClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(strings.TrimSpace(redisURL))
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return redis.NewClient(opts), nil
}
