// Package query is the shared request-caching layer between page handlers and
// the backend client: results are cached per scope and key for a fixed
// freshness window, identical in-flight queries are collapsed, errors are
// never cached, and mutations invalidate a whole resource.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/boddenberg/insurance-crm-web/internal/infra/cache"
	"github.com/boddenberg/insurance-crm-web/internal/infra/observability"
)

// DefaultTTL is how long a cached result stays fresh.
const DefaultTTL = 5 * time.Minute

// DefaultFetchTimeout bounds a shared fetch once it no longer follows the
// caller's cancellation.
const DefaultFetchTimeout = 30 * time.Second

const sep = "|"

type scopeKey struct{}

// WithScope binds the cache scope (the authenticated user) to ctx.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the scope set by WithScope, or "anon".
func ScopeFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(scopeKey{}).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// UserScope formats the scope for a user id.
func UserScope(userID int64) string {
	return fmt.Sprintf("u:%d", userID)
}

// Key identifies a query: resource plus its parameters.
type Key struct {
	Resource string
	Params   []any
}

// K builds a Key.
func K(resource string, params ...any) Key {
	return Key{Resource: resource, Params: params}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(k.Resource)
	b.WriteString(sep)
	for i, p := range k.Params {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Client caches query results.
type Client struct {
	cache        *cache.InMemory[any]
	group        singleflight.Group
	fetchTimeout time.Duration
	metrics      *observability.Metrics
	logger       *zap.Logger

	mu          sync.Mutex
	generations map[string]uint64
}

// Option configures a Client.
type Option func(*Client)

// WithFetchTimeout sets the upper bound of one shared fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates a query Client with the given freshness window.
func New(ttl time.Duration, metrics *observability.Metrics, logger *zap.Logger, opts ...Option) *Client {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Client{
		cache:        cache.New[any](ttl),
		fetchTimeout: DefaultFetchTimeout,
		metrics:      metrics,
		logger:       logger,
		generations:  make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) generation(resource string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[resource]
}

// Close stops the cache janitor.
func (c *Client) Close() {
	c.cache.Close()
}

// Fetch returns the cached value for key in ctx's scope, or runs fn once for
// all concurrent callers and caches a successful result.
//
// The shared call runs detached from the caller's cancellation, so a caller
// that goes away only abandons its own wait. A result fetched across an
// Invalidate of its resource is returned but not cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, fn func(context.Context) (T, error)) (T, error) {
	full := ScopeFromContext(ctx) + sep + key.String()

	if v, ok := c.cache.Get(full); ok {
		if typed, ok := v.(T); ok {
			c.metrics.IncrCacheHit(key.Resource)
			return typed, nil
		}
	}
	c.metrics.IncrCacheMiss(key.Resource)

	gen := c.generation(key.Resource)
	flight := fmt.Sprintf("%s#%d", full, gen)

	ch := c.group.DoChan(flight, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		v, err := fn(fctx)
		if err != nil {
			return nil, err
		}
		if c.generation(key.Resource) == gen {
			c.cache.Set(full, v)
		} else {
			c.logger.Debug("query result stale, not cached", zap.String("key", full))
		}
		return v, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		if res.Shared {
			c.logger.Debug("query shared", zap.String("key", full))
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("query %s: cached value has type %T", key.Resource, res.Val)
		}
		return typed, nil
	}
}

// Invalidate drops every cached entry of the given resources across all
// scopes, so the next Fetch refetches.
func (c *Client) Invalidate(resources ...string) {
	c.mu.Lock()
	for _, resource := range resources {
		c.generations[resource]++
	}
	c.mu.Unlock()

	for _, resource := range resources {
		marker := sep + resource + sep
		n := c.cache.DeleteFunc(func(k string) bool {
			return strings.Contains(k, marker)
		})
		c.logger.Debug("query invalidated", zap.String("resource", resource), zap.Int("entries", n))
	}
}

// Forget drops every cached entry of one scope.
func (c *Client) Forget(scope string) {
	c.cache.DeletePrefix(scope + sep)
}
