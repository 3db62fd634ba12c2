// Package lock hands out match claims through Redis so that several bot
// processes watching the same guild dispatch a finished match only once.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "intfar:claim:"
	DefaultTTL = 7 * 24 * time.Hour
)

// releaseScript deletes the claim only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClaimer claims keys with SET NX. Claims expire after the TTL.
type RedisClaimer struct {
	rdb *redis.Client
	ttl time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedisClaimer creates a claimer. A non-positive ttl uses DefaultTTL.
func NewRedisClaimer(rdb *redis.Client, ttl time.Duration) *RedisClaimer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisClaimer{rdb: rdb, ttl: ttl, tokens: make(map[string]string)}
}

// Claim reports whether this process now owns the key.
func (c *RedisClaimer) Claim(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, keyPrefix+key, token, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	c.mu.Lock()
	c.tokens[key] = token
	c.mu.Unlock()
	return true, nil
}

// Release gives up a claim this process owns. Claims of other processes
// are left alone.
func (c *RedisClaimer) Release(ctx context.Context, key string) error {
	c.mu.Lock()
	token, ok := c.tokens[key]
	delete(c.tokens, key)
	c.mu.Unlock()
	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, c.rdb, []string{keyPrefix + key}, token).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
