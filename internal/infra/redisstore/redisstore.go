// Package redisstore keeps browser session tokens and login throttling
// counters in redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps a redis connection with a key namespace.
type Client struct {
	rdb       redis.UniversalClient // works with both single and cluster
	namespace string
}

// New connects to a single redis node.
func New(addr, password, namespace string) *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	return NewFromClient(rdb, namespace)
}

// NewFromClient wraps an existing redis client.
func NewFromClient(rdb redis.UniversalClient, namespace string) *Client {
	return &Client{rdb: rdb, namespace: namespace}
}

func (c *Client) key(parts ...string) string {
	k := c.namespace
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// Ping checks connectivity, used by /healthz.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// ============================================================
// Sessions
// ============================================================

// Sessions maps opaque session ids to bearer tokens.
type Sessions struct {
	c   *Client
	ttl time.Duration
}

// NewSessions stores tokens under <namespace>:session:<id> for ttl.
func NewSessions(c *Client, ttl time.Duration) *Sessions {
	return &Sessions{c: c, ttl: ttl}
}

// Get returns the token for id. A missing key is not an error.
func (s *Sessions) Get(ctx context.Context, id string) (string, bool, error) {
	token, err := s.c.rdb.Get(ctx, s.c.key("session", id)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("load session: %w", err)
	}
	return token, true, nil
}

func (s *Sessions) Put(ctx context.Context, id, token string) error {
	if err := s.c.rdb.Set(ctx, s.c.key("session", id), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Sessions) Delete(ctx context.Context, id string) error {
	if err := s.c.rdb.Del(ctx, s.c.key("session", id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ============================================================
// Login throttling
// ============================================================

// RateLimiter counts attempts per key inside a fixed window and blocks the
// key for blockFor once limit is exceeded.
type RateLimiter struct {
	c        *Client
	limit    int
	window   time.Duration
	blockFor time.Duration
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(c *Client, limit int, window, blockFor time.Duration) *RateLimiter {
	return &RateLimiter{c: c, limit: limit, window: window, blockFor: blockFor}
}

// Allow records one attempt for key. When redis is unavailable it returns the
// error together with allowed=true so callers can fail open.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	countKey := l.c.key("ratelimit", key)
	blockKey := countKey + ":blocked"

	ttl, err := l.c.rdb.TTL(ctx, blockKey).Result()
	if err != nil {
		return true, 0, fmt.Errorf("check block: %w", err)
	}
	if ttl > 0 {
		return false, ttl, nil
	}

	count, err := l.c.rdb.Incr(ctx, countKey).Result()
	if err != nil {
		return true, 0, fmt.Errorf("count attempt: %w", err)
	}
	if count == 1 {
		_ = l.c.rdb.Expire(ctx, countKey, l.window).Err()
	}

	if count > int64(l.limit) {
		pipe := l.c.rdb.TxPipeline()
		pipe.Set(ctx, blockKey, "1", l.blockFor)
		pipe.Del(ctx, countKey)
		if _, err := pipe.Exec(ctx); err != nil {
			return false, l.blockFor, fmt.Errorf("block key: %w", err)
		}
		return false, l.blockFor, nil
	}
	return true, 0, nil
}

// Reset clears the counter after a successful login.
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	countKey := l.c.key("ratelimit", key)
	return l.c.rdb.Del(ctx, countKey, countKey+":blocked").Err()
}
