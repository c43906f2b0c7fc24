package cache

import "time"

// TTL classes shared by both tiers (seconds mirror the values the redis
// consumers on the other side of the store expect).
const (
	TTLShort  = 15 * time.Minute
	TTLHourly = time.Hour
	TTLDaily  = 24 * time.Hour
	TTLWeekly = 7 * 24 * time.Hour
)

// Category selects a default TTL and compression behavior when the caller
// does not pass an explicit TTL.
type Category string

const (
	CategoryDefault    Category = "default"
	CategoryUsers      Category = "users"
	CategoryStatistics Category = "statistics"
	CategoryBonuses    Category = "bonuses"
	CategoryKilometers Category = "kilometers"
)

type categoryConfig struct {
	ttl      time.Duration
	compress bool
}

var categoryConfigs = map[Category]categoryConfig{
	CategoryDefault:    {ttl: TTLShort, compress: true},
	CategoryUsers:      {ttl: TTLWeekly, compress: false},
	CategoryStatistics: {ttl: TTLShort, compress: true},
	CategoryBonuses:    {ttl: TTLWeekly, compress: true},
	CategoryKilometers: {ttl: TTLWeekly, compress: true},
}

func configFor(c Category) categoryConfig {
	if cfg, ok := categoryConfigs[c]; ok {
		return cfg
	}
	return categoryConfigs[CategoryDefault]
}

// Options configures the local tier.
type Options struct {
	MaxEntries    int
	SweepInterval time.Duration
	// Payloads whose serialized form exceeds this many bytes are compressed
	// when the category allows it.
	CompressionThreshold int
}

// DefaultOptions returns the sizing used in production.
func DefaultOptions() *Options {
	return &Options{
		MaxEntries:           500,
		SweepInterval:        time.Minute,
		CompressionThreshold: 1024,
	}
}
