package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RemoteCache is a thin client over the shared redis store. All payloads are
// JSON text because the store is read by other dashboard processes.
type RemoteCache struct {
	client *redis.Client

	mu        sync.Mutex
	connected bool
}

// NewRemoteCache builds a client for addr ("tcp://[user:pass@]host:port[/db]").
// It does not dial; callers decide when to Connect so an unreachable store
// never blocks startup.
func NewRemoteCache(addr string) (*RemoteCache, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis address %q: %w", addr, err)
	}
	var passwd string
	if u.User != nil {
		passwd, _ = u.User.Password()
	}
	db := 0
	if len(u.Path) > 1 {
		db, err = strconv.Atoi(u.Path[1:])
		if err != nil {
			return nil, fmt.Errorf("invalid redis db in %q: %w", addr, err)
		}
	}

	client := redis.NewClient(&redis.Options{
		Network:  u.Scheme,
		Addr:     u.Host,
		Password: passwd,
		DB:       db,
	})

	return &RemoteCache{client: client}, nil
}

// Connect pings the store. Idempotent: an already-live connection is a no-op.
func (rc *RemoteCache) Connect(ctx context.Context) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.connected {
		return nil
	}
	if err := rc.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	rc.connected = true
	return nil
}

func (rc *RemoteCache) ensureConnection(ctx context.Context) error {
	return rc.Connect(ctx)
}

// markDisconnected forces the next operation to re-dial.
func (rc *RemoteCache) markDisconnected() {
	rc.mu.Lock()
	rc.connected = false
	rc.mu.Unlock()
}

// Get loads key into dest. A missing key or an undecodable payload is a
// miss, not an error.
func (rc *RemoteCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return false, err
	}
	data, err := rc.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		rc.markDisconnected()
		return false, fmt.Errorf("failed to get key %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		// Stale or foreign payload; treat as a miss.
		return false, nil
	}
	return true, nil
}

// Set stores value under key with the given expiration.
func (rc *RemoteCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if err := rc.ensureConnection(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	if err := rc.client.Set(ctx, key, data, ttl).Err(); err != nil {
		rc.markDisconnected()
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	return nil
}

// Del removes key, reporting whether it existed.
func (rc *RemoteCache) Del(ctx context.Context, key string) (bool, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return false, err
	}
	n, err := rc.client.Del(ctx, key).Result()
	if err != nil {
		rc.markDisconnected()
		return false, fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	return n > 0, nil
}

// DelPattern removes every key matching the glob pattern and returns the
// count. Uses SCAN so a large shared store is never blocked by KEYS.
func (rc *RemoteCache) DelPattern(ctx context.Context, pattern string) (int, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return 0, err
	}
	removed := 0
	iter := rc.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n, err := rc.client.Del(ctx, iter.Val()).Result()
		if err != nil {
			rc.markDisconnected()
			return removed, fmt.Errorf("failed to delete pattern %s: %w", pattern, err)
		}
		removed += int(n)
	}
	if err := iter.Err(); err != nil {
		rc.markDisconnected()
		return removed, fmt.Errorf("failed to scan pattern %s: %w", pattern, err)
	}
	return removed, nil
}

// Exists reports whether key is present.
func (rc *RemoteCache) Exists(ctx context.Context, key string) (bool, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return false, err
	}
	n, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		rc.markDisconnected()
		return false, fmt.Errorf("failed to check key %s: %w", key, err)
	}
	return n == 1, nil
}

// TTL returns the remaining lifetime of key (negative per redis semantics
// when the key is missing or has no expiry).
func (rc *RemoteCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return -1, err
	}
	d, err := rc.client.TTL(ctx, key).Result()
	if err != nil {
		rc.markDisconnected()
		return -1, fmt.Errorf("failed to get ttl for key %s: %w", key, err)
	}
	return d, nil
}

// FlushAll clears the whole remote store.
func (rc *RemoteCache) FlushAll(ctx context.Context) error {
	if err := rc.ensureConnection(ctx); err != nil {
		return err
	}
	if err := rc.client.FlushAll(ctx).Err(); err != nil {
		rc.markDisconnected()
		return fmt.Errorf("failed to flush redis: %w", err)
	}
	return nil
}

// Stats returns the redis memory info block.
func (rc *RemoteCache) Stats(ctx context.Context) (map[string]any, error) {
	if err := rc.ensureConnection(ctx); err != nil {
		return nil, err
	}
	info, err := rc.client.Info(ctx, "memory").Result()
	if err != nil {
		rc.markDisconnected()
		return nil, fmt.Errorf("failed to get redis stats: %w", err)
	}
	return map[string]any{"connected": true, "memory": info}, nil
}

func (rc *RemoteCache) Close() error {
	return rc.client.Close()
}
