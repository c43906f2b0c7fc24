package cache

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	data       []byte
	timestamp  time.Time
	ttl        time.Duration
	compressed bool
}

func (e *entry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// MemoryStats reports local tier usage counters.
type MemoryStats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"maxSize"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	HitRate   float64 `json:"hitRate"`
	Evictions int64   `json:"evictions"`
}

// MemoryCache is the in-process fallback tier: a TTL map with a background
// sweep, oldest-first eviction past capacity, and transparent compression of
// large payloads. Safe for concurrent use.
type MemoryCache struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	opts      *Options
	hits      int64
	misses    int64
	evictions int64

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryCache creates the local tier and starts its sweep goroutine.
func NewMemoryCache(opts *Options) *MemoryCache {
	if opts == nil {
		opts = DefaultOptions()
	}
	mc := &MemoryCache{
		entries: make(map[string]*entry),
		opts:    opts,
		stop:    make(chan struct{}),
	}
	go mc.sweeper()
	return mc
}

func (mc *MemoryCache) sweeper() {
	ticker := time.NewTicker(mc.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-mc.stop:
			return
		case <-ticker.C:
			mc.sweep()
		}
	}
}

// sweep removes expired entries, then evicts oldest entries until the store
// is back under capacity. Eviction order is insertion time, not last access.
func (mc *MemoryCache) sweep() {
	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for key, e := range mc.entries {
		if e.expired(now) {
			delete(mc.entries, key)
		}
	}
	mc.evictLocked()
}

func (mc *MemoryCache) evictLocked() {
	over := len(mc.entries) - mc.opts.MaxEntries
	if over <= 0 {
		return
	}
	type aged struct {
		key string
		ts  time.Time
	}
	all := make([]aged, 0, len(mc.entries))
	for key, e := range mc.entries {
		all = append(all, aged{key, e.timestamp})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ts.Before(all[j].ts) })
	for _, a := range all[:over] {
		delete(mc.entries, a.key)
		mc.evictions++
	}
}

// Get loads the value stored under key into dest. Expired entries are
// deleted on sight and count as misses.
func (mc *MemoryCache) Get(key string, dest any) bool {
	mc.mu.Lock()
	e, ok := mc.entries[key]
	if ok && e.expired(time.Now()) {
		delete(mc.entries, key)
		ok = false
	}
	if !ok {
		mc.misses++
		mc.mu.Unlock()
		return false
	}
	mc.hits++
	data, compressed := e.data, e.compressed
	mc.mu.Unlock()

	if compressed {
		raw, err := gunzip(data)
		if err != nil {
			// Corrupt payload behaves like a miss.
			mc.Delete(key)
			return false
		}
		data = raw
	}
	if err := json.Unmarshal(data, dest); err != nil {
		mc.Delete(key)
		return false
	}
	return true
}

// Set stores value under key. A non-positive ttl selects the category
// default. Returns false only when the value cannot be serialized.
func (mc *MemoryCache) Set(key string, value any, ttl time.Duration, category Category) bool {
	cfg := configFor(category)
	if ttl <= 0 {
		ttl = cfg.ttl
	}

	data, err := json.Marshal(value)
	if err != nil {
		return false
	}
	compressed := false
	if cfg.compress && len(data) > mc.opts.CompressionThreshold {
		if packed, err := gzipBytes(data); err == nil {
			data = packed
			compressed = true
		}
	}

	mc.mu.Lock()
	mc.entries[key] = &entry{
		data:       data,
		timestamp:  time.Now(),
		ttl:        ttl,
		compressed: compressed,
	}
	mc.evictLocked()
	mc.mu.Unlock()
	return true
}

// GetOrSet returns the cached value or runs fetch and caches its result.
// Concurrent misses on the same key each run fetch; last writer wins.
func (mc *MemoryCache) GetOrSet(key string, dest any, ttl time.Duration, category Category, fetch func() (any, error)) error {
	if mc.Get(key, dest) {
		return nil
	}
	value, err := fetch()
	if err != nil {
		return err
	}
	mc.Set(key, value, ttl, category)
	return roundTrip(value, dest)
}

// Has reports whether key holds a live entry.
func (mc *MemoryCache) Has(key string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	e, ok := mc.entries[key]
	if !ok {
		return false
	}
	if e.expired(time.Now()) {
		delete(mc.entries, key)
		return false
	}
	return true
}

// Delete removes key, reporting whether it was present.
func (mc *MemoryCache) Delete(key string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	_, ok := mc.entries[key]
	delete(mc.entries, key)
	return ok
}

// ClearByPattern deletes every key containing pattern as a substring and
// returns the number removed.
func (mc *MemoryCache) ClearByPattern(pattern string) int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	removed := 0
	for key := range mc.entries {
		if strings.Contains(key, pattern) {
			delete(mc.entries, key)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and resets the counters.
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.entries = make(map[string]*entry)
	mc.hits, mc.misses, mc.evictions = 0, 0, 0
}

// Stats returns a snapshot of the usage counters.
func (mc *MemoryCache) Stats() MemoryStats {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	s := MemoryStats{
		Size:      len(mc.entries),
		MaxSize:   mc.opts.MaxEntries,
		Hits:      mc.hits,
		Misses:    mc.misses,
		Evictions: mc.evictions,
	}
	if total := mc.hits + mc.misses; total > 0 {
		s.HitRate = float64(mc.hits) / float64(total) * 100
	}
	return s
}

// Close stops the sweep goroutine. The store remains usable afterwards;
// only lazy expiration applies.
func (mc *MemoryCache) Close() {
	mc.stopOnce.Do(func() { close(mc.stop) })
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// roundTrip copies value into dest through JSON so GetOrSet hands back the
// same shape a later cache hit would.
func roundTrip(value, dest any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal fetched value: %w", err)
	}
	return json.Unmarshal(data, dest)
}
