// Package debounce suppresses repeated reads of the same credential at the same reader.
package debounce

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"classroom-access-backend/config"
)

// Debouncer reports whether a scan identified by key is the first inside the window.
type Debouncer interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New builds the backend named in cfg.
func New(cfg config.DebounceConfig) (Debouncer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "none":
		return Noop{}, nil
	case "", "memory":
		return NewMemory(cfg.Window), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("debounce backend redis requires redis_addr")
		}
		return NewRedis(NewRedisClient(cfg.RedisAddr), cfg.Window), nil
	default:
		return nil, fmt.Errorf("unsupported debounce backend %q", cfg.Backend)
	}
}

// Key builds a debounce key from its parts.
func Key(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

// Noop allows every scan.
type Noop struct{}

func (Noop) Allow(context.Context, string) (bool, error) { return true, nil }

// Memory debounces within one process.
type Memory struct {
	cache  *cache.Cache
	window time.Duration
}

// NewMemory creates an in-process debouncer.
func NewMemory(window time.Duration) *Memory {
	return &Memory{
		cache:  cache.New(window, 2*window),
		window: window,
	}
}

// Allow uses the cache's atomic Add: only the first caller inside the window succeeds.
func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	return m.cache.Add(key, struct{}{}, m.window) == nil, nil
}

// Redis debounces across replicas sharing one redis.
type Redis struct {
	client *redis.Client
	window time.Duration
	prefix string
}

// NewRedisClient connects to redis with short timeouts.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
}

// NewRedis creates a redis-backed debouncer.
func NewRedis(client *redis.Client, window time.Duration) *Redis {
	return &Redis{client: client, window: window, prefix: "access:debounce:"}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, r.window).Result()
	if err != nil {
		return true, fmt.Errorf("redis debounce: %w", err)
	}
	return ok, nil
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}
