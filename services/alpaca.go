package services

import (
	"context"
	"fmt"
	"time"

	"stock-agent/models"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
)

// alpacaDataClient is the subset of the Alpaca market data client we use (for testing)
type alpacaDataClient interface {
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaService reads daily bars from Alpaca market data
type AlpacaService struct {
	dataClient alpacaDataClient
}

// NewAlpacaService creates a new AlpacaService instance.
// An empty dataURL uses the Alpaca default endpoint.
func NewAlpacaService(apiKey, apiSecret, dataURL string) *AlpacaService {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   dataURL,
	})

	return &AlpacaService{dataClient: dataClient}
}

// GetProfile always returns nil: Alpaca market data has no company metadata.
// Pair with a ProfileProvider through CompositeMarketData for names and fundamentals.
func (s *AlpacaService) GetProfile(ctx context.Context, symbol string) (*models.Profile, error) {
	return nil, ctx.Err()
}

// GetDailyBars returns daily bars between start and end
func (s *AlpacaService) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	return callUpstream(ctx, BreakerAlpaca, "bars", func() ([]models.Bar, error) {
		bars, err := s.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
			TimeFrame: marketdata.OneDay,
			Start:     start,
			End:       end,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
		}

		result := make([]models.Bar, 0, len(bars))
		for _, bar := range bars {
			result = append(result, models.Bar{
				Symbol:    symbol,
				Timestamp: bar.Timestamp,
				Open:      decimal.NewFromFloat(bar.Open),
				High:      decimal.NewFromFloat(bar.High),
				Low:       decimal.NewFromFloat(bar.Low),
				Close:     decimal.NewFromFloat(bar.Close),
				Volume:    int64(bar.Volume),
			})
		}
		return result, nil
	})
}
