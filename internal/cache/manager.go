package cache

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"
)

// RemoteTier is the slice of RemoteCache the manager drives. Kept as an
// interface so tests can stand in an unreachable remote.
type RemoteTier interface {
	Connect(ctx context.Context) error
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) (bool, error)
	DelPattern(ctx context.Context, pattern string) (int, error)
	Exists(ctx context.Context, key string) (bool, error)
	FlushAll(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close() error
}

// Manager fronts the two tiers. It prefers the remote store and demotes to
// local-only the moment any remote operation fails; promotion back happens
// only through an explicit Reconnect. Optimistic availability, not a circuit
// breaker: there is no health-check polling.
type Manager struct {
	remote RemoteTier
	local  *MemoryCache

	remoteUp   atomic.Bool
	enableLogs bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithRemote sets the remote tier. A nil remote leaves the manager
// local-only, which is the documented fallback when no store is configured.
func WithRemote(remote RemoteTier) ManagerOption {
	return func(m *Manager) { m.remote = remote }
}

// WithLocal overrides the local tier (tests use small capacities).
func WithLocal(local *MemoryCache) ManagerOption {
	return func(m *Manager) { m.local = local }
}

// WithManagerLogging toggles the manager's own log lines.
func WithManagerLogging(enabled bool) ManagerOption {
	return func(m *Manager) { m.enableLogs = enabled }
}

// NewManager builds the hybrid cache. The initial connection attempt runs in
// the background so an unreachable remote never delays startup; until it
// succeeds the manager serves from the local tier alone.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{}
	for _, opt := range opts {
		opt(m)
	}
	if m.local == nil {
		m.local = NewMemoryCache(nil)
	}
	if m.remote != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := m.remote.Connect(ctx); err != nil {
				m.logf("remote cache unavailable, serving from local tier: %v", err)
				return
			}
			m.remoteUp.Store(true)
			m.logf("remote cache connected")
		}()
	}
	return m
}

// RemoteUp reports the current tier state.
func (m *Manager) RemoteUp() bool {
	return m.remote != nil && m.remoteUp.Load()
}

// markRemoteDown demotes to local-only for subsequent operations.
func (m *Manager) markRemoteDown(op string, err error) {
	if m.remoteUp.CompareAndSwap(true, false) {
		m.logf("remote cache %s failed, demoting to local tier: %v", op, err)
	}
}

// Reconnect attempts to promote the remote tier back. Never called
// automatically; an operator or admin endpoint drives it.
func (m *Manager) Reconnect(ctx context.Context) error {
	if m.remote == nil {
		return fmt.Errorf("no remote cache configured")
	}
	if err := m.remote.Connect(ctx); err != nil {
		return err
	}
	m.remoteUp.Store(true)
	m.logf("remote cache reconnected")
	return nil
}

// Get tries the remote tier first, falling through to local on remote miss,
// remote failure, or REMOTE_DOWN. Remote failures are absorbed here.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	if m.RemoteUp() {
		hit, err := m.remote.Get(ctx, key, dest)
		if err != nil {
			m.markRemoteDown("get", err)
		} else if hit {
			return true
		}
	}
	return m.local.Get(key, dest)
}

// Set writes to the remote tier (when up) and to the local tier
// unconditionally, for redundancy. True if either write succeeded.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration, category Category) bool {
	if ttl <= 0 {
		ttl = configFor(category).ttl
	}
	remoteOK := false
	if m.RemoteUp() {
		if err := m.remote.Set(ctx, key, value, ttl); err != nil {
			m.markRemoteDown("set", err)
		} else {
			remoteOK = true
		}
	}
	localOK := m.local.Set(key, value, ttl, category)
	return remoteOK || localOK
}

// GetOrSet returns the cached value or runs fetch, caches the result in both
// tiers, and returns it. Fetch errors propagate to the caller uncached.
func (m *Manager) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, category Category, fetch func(ctx context.Context) (any, error)) error {
	if m.Get(ctx, key, dest) {
		return nil
	}
	value, err := fetch(ctx)
	if err != nil {
		return err
	}
	m.Set(ctx, key, value, ttl, category)
	return roundTrip(value, dest)
}

// Del removes key from both tiers.
func (m *Manager) Del(ctx context.Context, key string) bool {
	remoteOK := false
	if m.RemoteUp() {
		ok, err := m.remote.Del(ctx, key)
		if err != nil {
			m.markRemoteDown("del", err)
		} else {
			remoteOK = ok
		}
	}
	localOK := m.local.Delete(key)
	return remoteOK || localOK
}

// DelPattern removes matching keys from both tiers and returns the summed
// count. The tiers are not deduplicated: a key mirrored in both counts twice.
func (m *Manager) DelPattern(ctx context.Context, pattern string) int {
	count := 0
	if m.RemoteUp() {
		n, err := m.remote.DelPattern(ctx, globFor(pattern))
		count += n
		if err != nil {
			m.markRemoteDown("delPattern", err)
		}
	}
	count += m.local.ClearByPattern(pattern)
	return count
}

// Exists checks the remote tier first, then local.
func (m *Manager) Exists(ctx context.Context, key string) bool {
	if m.RemoteUp() {
		ok, err := m.remote.Exists(ctx, key)
		if err != nil {
			m.markRemoteDown("exists", err)
		} else if ok {
			return true
		}
	}
	return m.local.Has(key)
}

// InvalidateUserCache clears every cached window for one user across both
// tiers. Used when an administrator logs the user out or their underlying
// data changes.
func (m *Manager) InvalidateUserCache(ctx context.Context, userCode string) int {
	total := 0
	for _, pattern := range userPatterns(userCode) {
		total += m.DelPattern(ctx, pattern)
	}
	m.logf("invalidated cache for user %s (%d keys)", userCode, total)
	return total
}

// Flush clears both tiers.
func (m *Manager) Flush(ctx context.Context) {
	if m.RemoteUp() {
		if err := m.remote.FlushAll(ctx); err != nil {
			m.markRemoteDown("flush", err)
		}
	}
	m.local.Clear()
}

// Stats reports both tiers. The remote block is nil when the tier is down.
func (m *Manager) Stats(ctx context.Context) map[string]any {
	stats := map[string]any{
		"remoteUp": m.RemoteUp(),
		"memory":   m.local.Stats(),
	}
	if m.RemoteUp() {
		if rs, err := m.remote.Stats(ctx); err == nil {
			stats["remote"] = rs
		} else {
			m.markRemoteDown("stats", err)
		}
	}
	return stats
}

// Close stops the local sweeper and closes the remote client.
func (m *Manager) Close() error {
	m.local.Close()
	if m.remote != nil {
		return m.remote.Close()
	}
	return nil
}

func (m *Manager) logf(format string, args ...any) {
	if m.enableLogs {
		log.Printf("[cache] "+format, args...)
	}
}
