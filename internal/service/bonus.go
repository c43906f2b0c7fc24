package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/opsdash/bonus-engine/internal/bonus"
	"github.com/opsdash/bonus-engine/internal/cache"
	"github.com/opsdash/bonus-engine/internal/source"
)

// BonusService is a self-managing service that wires the deduction source,
// the two-tier cache and the calculator behind one lifecycle.
type BonusService struct {
	cache       *cache.Manager
	source      bonus.Source
	calc        *bonus.Calculator
	opts        *ServiceOptions
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	initialized bool
}

// ServiceOptions provides configuration for the bonus service
type ServiceOptions struct {
	RedisAddr     string `json:"redisAddr"`
	SourceBackend string `json:"sourceBackend"`
	SourceDSN     string `json:"sourceDsn"`
	EnableLogging bool   `json:"enableLogging"`

	// Source overrides the backend/DSN pair when set. Tests plug an
	// in-memory source here.
	Source bonus.Source `json:"-"`

	CacheOptions *cache.Options `json:"-"`
}

// DefaultServiceOptions returns sensible default options
func DefaultServiceOptions() *ServiceOptions {
	return &ServiceOptions{
		RedisAddr:     "",
		SourceBackend: "sqlite",
		SourceDSN:     "novedades.db",
		EnableLogging: true,
		CacheOptions:  cache.DefaultOptions(),
	}
}

// ServiceOption is a function that configures service options
type ServiceOption func(*ServiceOptions)

// WithRedisConfig sets the remote cache address. Empty disables the
// remote tier and the cache runs in-process only.
func WithRedisConfig(addr string) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.RedisAddr = addr
	}
}

// WithSourceConfig selects the deduction backend ("postgres", "sqlite",
// "memory") and its DSN.
func WithSourceConfig(backend, dsn string) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.SourceBackend = backend
		opts.SourceDSN = dsn
	}
}

// WithSource injects a ready deduction source, bypassing backend/DSN.
func WithSource(src bonus.Source) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.Source = src
	}
}

// WithCacheOptions overrides the in-process cache tuning.
func WithCacheOptions(co *cache.Options) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.CacheOptions = co
	}
}

// WithLogging enables/disables logging
func WithLogging(enabled bool) ServiceOption {
	return func(opts *ServiceOptions) {
		opts.EnableLogging = enabled
	}
}

// NewBonusService creates a new self-managing bonus service
func NewBonusService(options ...ServiceOption) (*BonusService, error) {
	opts := DefaultServiceOptions()

	for _, option := range options {
		option(opts)
	}

	src := opts.Source
	if src == nil {
		var err error
		src, err = source.New(opts.SourceBackend, opts.SourceDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create deduction source: %w", err)
		}
	}

	managerOpts := []cache.ManagerOption{
		cache.WithLocal(cache.NewMemoryCache(opts.CacheOptions)),
		cache.WithManagerLogging(opts.EnableLogging),
	}
	if opts.RedisAddr != "" {
		remote, err := cache.NewRemoteCache(opts.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("failed to create remote cache: %w", err)
		}
		managerOpts = append(managerOpts, cache.WithRemote(remote))
	}
	mgr := cache.NewManager(managerOpts...)

	calc := bonus.NewCalculator(mgr, src,
		bonus.WithCalculatorLogging(opts.EnableLogging))

	ctx, cancel := context.WithCancel(context.Background())

	return &BonusService{
		cache:  mgr,
		source: src,
		calc:   calc,
		opts:   opts,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Initialize starts the service
func (bs *BonusService) Initialize() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.initialized {
		return nil
	}

	bs.log("🚀 Initializing Bonus Service...")
	bs.initialized = true
	bs.log("✅ Bonus Service initialized successfully")
	return nil
}

// GetUserBonuses computes (or serves from cache) the bonus view for a user.
// year and month are optional; zero means "not filtered".
func (bs *BonusService) GetUserBonuses(ctx context.Context, userCode string, year, month int) (*bonus.BonusData, error) {
	bs.mu.RLock()
	ready := bs.initialized
	bs.mu.RUnlock()
	if !ready {
		return nil, fmt.Errorf("service not initialized - call Initialize() first")
	}
	return bs.calc.GetUserBonuses(ctx, userCode, year, month)
}

// InvalidateUser drops every cached entry belonging to the user.
func (bs *BonusService) InvalidateUser(ctx context.Context, userCode string) int {
	return bs.cache.InvalidateUserCache(ctx, userCode)
}

// ClearCache removes cached entries matching pattern, or everything when
// pattern is empty.
func (bs *BonusService) ClearCache(ctx context.Context, pattern string) int {
	if pattern == "" {
		bs.cache.Flush(ctx)
		return 0
	}
	return bs.cache.DelPattern(ctx, pattern)
}

// CacheStats reports hit/miss counters and tier status.
func (bs *BonusService) CacheStats(ctx context.Context) map[string]any {
	return bs.cache.Stats(ctx)
}

// Cache exposes the underlying manager for HTTP handlers.
func (bs *BonusService) Cache() *cache.Manager {
	return bs.cache
}

// Stop gracefully shuts down the service
func (bs *BonusService) Stop() {
	bs.log("🛑 Stopping Bonus Service...")

	bs.cancel()
	bs.wg.Wait()

	bs.cache.Close()
	if closer, ok := bs.source.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			bs.log("⚠️ Warning: failed to close deduction source: %v", err)
		}
	}

	bs.log("✅ Bonus Service stopped")
}

func (bs *BonusService) log(format string, args ...interface{}) {
	if bs.opts.EnableLogging {
		log.Printf("[BonusService] "+format, args...)
	}
}
