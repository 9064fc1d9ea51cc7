package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's token,
// so an expired lock re-taken by another run is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisGuard is a single-key SETNX mutex with a TTL.
type RedisGuard struct {
	client *redis.Client
	script *redis.Script
	key    string
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, key string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		script: redis.NewScript(releaseScript),
		key:    key,
		ttl:    ttl,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context) (string, error) {
	if g == nil || g.client == nil {
		return "", errors.New("lock client not configured")
	}
	if g.key == "" {
		return "", errors.New("lock key is empty")
	}
	if g.ttl <= 0 {
		return "", errors.New("lock ttl must be positive")
	}

	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.key, token, g.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return "", ErrRunInProgress
	}
	return token, nil
}

func (g *RedisGuard) Release(ctx context.Context, token string) error {
	if g == nil || g.client == nil || token == "" {
		return nil
	}
	return g.script.Run(ctx, g.client, []string{g.key}, token).Err()
}
