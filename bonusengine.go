package bonusengine

import (
	"context"

	"github.com/opsdash/bonus-engine/internal/bonus"
	"github.com/opsdash/bonus-engine/internal/service"
)

// Client provides a clean public API for the bonus engine
type Client struct {
	service *service.BonusService
}

// NewClient creates a new bonus engine client
func NewClient(options ...ServiceOption) (*Client, error) {
	svc, err := service.NewBonusService(options...)
	if err != nil {
		return nil, err
	}

	return &Client{
		service: svc,
	}, nil
}

// Initialize starts the bonus engine
func (c *Client) Initialize() error {
	return c.service.Initialize()
}

// GetUserBonuses computes (or serves from cache) the bonus view for a user.
// year and month are optional; pass zero to leave them unset.
func (c *Client) GetUserBonuses(ctx context.Context, userCode string, year, month int) (*bonus.BonusData, error) {
	return c.service.GetUserBonuses(ctx, userCode, year, month)
}

// InvalidateUser drops every cached entry belonging to the user.
func (c *Client) InvalidateUser(ctx context.Context, userCode string) int {
	return c.service.InvalidateUser(ctx, userCode)
}

// ClearCache removes cached entries matching pattern, or everything when
// pattern is empty.
func (c *Client) ClearCache(ctx context.Context, pattern string) int {
	return c.service.ClearCache(ctx, pattern)
}

// CacheStats reports hit/miss counters and tier status.
func (c *Client) CacheStats(ctx context.Context) map[string]any {
	return c.service.CacheStats(ctx)
}

// Stop gracefully shuts down the engine
func (c *Client) Stop() error {
	c.service.Stop()
	return nil
}

// Service options (re-exported for convenience)
type ServiceOption = service.ServiceOption

// Re-export service options for clean API
var (
	WithRedisConfig  = service.WithRedisConfig
	WithSourceConfig = service.WithSourceConfig
	WithSource       = service.WithSource
	WithCacheOptions = service.WithCacheOptions
	WithLogging      = service.WithLogging
)

// Re-export common types for convenience
type (
	BonusData       = bonus.BonusData
	MonthlyBonus    = bonus.MonthlyBonus
	Summary         = bonus.Summary
	DeductionRecord = bonus.DeductionRecord
)
