package cache

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testOptions() *Options {
	return &Options{
		MaxEntries:           500,
		SweepInterval:        time.Hour, // tests drive sweep() directly
		CompressionThreshold: 1024,
	}
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	in := payload{Name: "A123", Count: 3}
	if !mc.Set("bonuses:A123:2025:all", in, TTLWeekly, CategoryBonuses) {
		t.Fatal("Set failed")
	}

	var out payload
	if !mc.Get("bonuses:A123:2025:all", &out) {
		t.Fatal("expected hit")
	}
	if out != in {
		t.Errorf("got %+v, want %+v", out, in)
	}

	if mc.Get("missing", &out) {
		t.Error("expected miss for unknown key")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	mc.Set("short", payload{Name: "x"}, 10*time.Millisecond, CategoryDefault)

	var out payload
	if !mc.Get("short", &out) {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(20 * time.Millisecond)

	if mc.Get("short", &out) {
		t.Error("expected miss after expiry")
	}
	if mc.Has("short") {
		t.Error("expired entry should be gone")
	}
}

func TestMemoryCacheCategoryDefaultTTL(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	// ttl<=0 selects the category default, so the entry must survive.
	mc.Set("users:A123", payload{Name: "x"}, 0, CategoryUsers)

	var out payload
	if !mc.Get("users:A123", &out) {
		t.Error("entry with category-default TTL should be live")
	}
}

func TestMemoryCacheCompressionTransparent(t *testing.T) {
	opts := testOptions()
	opts.CompressionThreshold = 64
	mc := NewMemoryCache(opts)
	defer mc.Close()

	big := payload{Name: strings.Repeat("deducciones ", 50), Count: 7}
	if !mc.Set("big", big, TTLDaily, CategoryBonuses) {
		t.Fatal("Set failed")
	}

	mc.mu.RLock()
	compressed := mc.entries["big"].compressed
	mc.mu.RUnlock()
	if !compressed {
		t.Fatal("payload over threshold should be stored compressed")
	}

	var out payload
	if !mc.Get("big", &out) {
		t.Fatal("expected hit")
	}
	if out != big {
		t.Error("compressed round trip changed the value")
	}
}

func TestMemoryCacheNoCompressionForUsersCategory(t *testing.T) {
	opts := testOptions()
	opts.CompressionThreshold = 16
	mc := NewMemoryCache(opts)
	defer mc.Close()

	mc.Set("users:big", payload{Name: strings.Repeat("x", 200)}, 0, CategoryUsers)

	mc.mu.RLock()
	compressed := mc.entries["users:big"].compressed
	mc.mu.RUnlock()
	if compressed {
		t.Error("users category must not compress")
	}
}

func TestMemoryCacheClearByPattern(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	keys := []string{
		"bonuses:A123:2025:all",
		"bonuses:A123:2025:6",
		"bonuses:B999:2025:all",
		"user:A123:profile",
	}
	for _, k := range keys {
		mc.Set(k, payload{Name: k}, TTLDaily, CategoryBonuses)
	}

	removed := mc.ClearByPattern("bonuses:A123:")
	if removed != 2 {
		t.Fatalf("removed %d, want 2", removed)
	}
	if mc.Has("bonuses:A123:2025:all") || mc.Has("bonuses:A123:2025:6") {
		t.Error("pattern keys should be gone")
	}
	if !mc.Has("bonuses:B999:2025:all") || !mc.Has("user:A123:profile") {
		t.Error("non-matching keys must survive")
	}
}

func TestMemoryCacheEvictionOldestFirst(t *testing.T) {
	opts := testOptions()
	opts.MaxEntries = 3
	mc := NewMemoryCache(opts)
	defer mc.Close()

	for _, k := range []string{"k1", "k2", "k3"} {
		mc.Set(k, payload{Name: k}, TTLDaily, CategoryDefault)
		time.Sleep(2 * time.Millisecond) // distinct insertion times
	}
	mc.Set("k4", payload{Name: "k4"}, TTLDaily, CategoryDefault)

	if mc.Has("k1") {
		t.Error("oldest entry should have been evicted")
	}
	for _, k := range []string{"k2", "k3", "k4"} {
		if !mc.Has(k) {
			t.Errorf("entry %s should survive eviction", k)
		}
	}
	if s := mc.Stats(); s.Evictions != 1 {
		t.Errorf("evictions = %d, want 1", s.Evictions)
	}
}

func TestMemoryCacheGetOrSet(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	calls := 0
	fetch := func() (any, error) {
		calls++
		return payload{Name: "fetched", Count: calls}, nil
	}

	var out payload
	if err := mc.GetOrSet("k", &out, TTLDaily, CategoryDefault, fetch); err != nil {
		t.Fatal(err)
	}
	if out.Name != "fetched" || calls != 1 {
		t.Fatalf("first call should fetch; calls=%d out=%+v", calls, out)
	}

	out = payload{}
	if err := mc.GetOrSet("k", &out, TTLDaily, CategoryDefault, fetch); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("second call should hit the cache, fetch ran %d times", calls)
	}
	if out.Count != 1 {
		t.Errorf("cached value changed: %+v", out)
	}
}

func TestMemoryCacheGetOrSetFetchError(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	wantErr := errors.New("upstream down")
	var out payload
	err := mc.GetOrSet("k", &out, TTLDaily, CategoryDefault, func() (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if mc.Has("k") {
		t.Error("failed fetch must not be cached")
	}
}

func TestMemoryCacheStats(t *testing.T) {
	mc := NewMemoryCache(testOptions())
	defer mc.Close()

	mc.Set("k", payload{}, TTLDaily, CategoryDefault)

	var out payload
	mc.Get("k", &out)    // hit
	mc.Get("miss", &out) // miss

	s := mc.Stats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 1/1", s.Hits, s.Misses)
	}
	if s.HitRate != 50 {
		t.Errorf("hitRate=%v, want 50", s.HitRate)
	}
	if s.Size != 1 || s.MaxSize != 500 {
		t.Errorf("size=%d maxSize=%d", s.Size, s.MaxSize)
	}
}

func TestMemoryCacheSweep(t *testing.T) {
	opts := testOptions()
	opts.MaxEntries = 2
	mc := NewMemoryCache(opts)
	defer mc.Close()

	mc.Set("dead", payload{}, time.Millisecond, CategoryDefault)
	time.Sleep(5 * time.Millisecond)
	mc.Set("live1", payload{}, TTLDaily, CategoryDefault)
	mc.Set("live2", payload{}, TTLDaily, CategoryDefault)

	mc.sweep()

	if mc.Has("dead") {
		t.Error("sweep should drop expired entries")
	}
	if !mc.Has("live1") || !mc.Has("live2") {
		t.Error("sweep should keep live entries within capacity")
	}
}
