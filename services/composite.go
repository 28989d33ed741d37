package services

import (
	"context"
	"time"

	"stock-agent/models"
)

// CompositeMarketData takes profiles from one provider and bars from another
type CompositeMarketData struct {
	Profiles ProfileProvider
	Bars     BarsProvider
}

// NewCompositeMarketData creates a provider that splits profile and bar lookups
func NewCompositeMarketData(profiles ProfileProvider, bars BarsProvider) *CompositeMarketData {
	return &CompositeMarketData{Profiles: profiles, Bars: bars}
}

// GetProfile delegates to the profile provider
func (c *CompositeMarketData) GetProfile(ctx context.Context, symbol string) (*models.Profile, error) {
	return c.Profiles.GetProfile(ctx, symbol)
}

// GetDailyBars delegates to the bars provider
func (c *CompositeMarketData) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	return c.Bars.GetDailyBars(ctx, symbol, start, end)
}
