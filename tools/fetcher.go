package tools

import (
	"context"
	"fmt"
	"time"

	"stock-agent/models"
	"stock-agent/observability"
	"stock-agent/services"

	"github.com/shopspring/decimal"
)

// DefaultHistoryDays is the trailing window used for the 30-day aggregates
const DefaultHistoryDays = 30

// Fetcher produces a quote snapshot for a ticker.
// Failures are reported as an error record inside the result, never as a Go error.
type Fetcher interface {
	Fetch(ctx context.Context, ticker string) models.FetchResult
}

// StockPriceFetcher combines provider metadata with a trailing window of daily bars
type StockPriceFetcher struct {
	provider    services.MarketDataProvider
	historyDays int
	now         func() time.Time
}

// NewStockPriceFetcher creates a fetcher over the given provider
func NewStockPriceFetcher(provider services.MarketDataProvider, historyDays int) *StockPriceFetcher {
	if historyDays <= 0 {
		historyDays = DefaultHistoryDays
	}
	return &StockPriceFetcher{
		provider:    provider,
		historyDays: historyDays,
		now:         time.Now,
	}
}

// Fetch returns a Quote, or an error record when the provider fails or has no history
func (f *StockPriceFetcher) Fetch(ctx context.Context, ticker string) (result models.FetchResult) {
	metrics := observability.GetMetrics()
	logger := observability.WithTicker(ticker)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("market data provider panicked", "panic", r)
			metrics.RecordToolCall(StockPriceToolName, "error")
			result = fetchError(fmt.Errorf("%v", r))
		}
	}()

	profile, err := f.provider.GetProfile(ctx, ticker)
	if err != nil {
		logger.Warn("failed to fetch profile", "error", err)
		metrics.RecordToolCall(StockPriceToolName, "error")
		return fetchError(err)
	}

	end := f.now()
	start := end.AddDate(0, 0, -f.historyDays)

	bars, err := f.provider.GetDailyBars(ctx, ticker, start, end)
	if err != nil {
		logger.Warn("failed to fetch history", "error", err)
		metrics.RecordToolCall(StockPriceToolName, "error")
		return fetchError(err)
	}

	if len(bars) == 0 {
		logger.Info("no history for ticker")
		metrics.RecordToolCall(StockPriceToolName, "no_data")
		return models.ErrorResult(fmt.Sprintf("No data available for ticker %s", ticker))
	}

	quote := buildQuote(ticker, profile, bars, end)
	metrics.RecordToolCall(StockPriceToolName, "success")
	logger.Debug("fetched quote", "current_price", quote.CurrentPrice.String(), "bars", len(bars))
	return models.QuoteResult(quote)
}

func fetchError(err error) models.FetchResult {
	return models.ErrorResult(fmt.Sprintf("Error fetching stock data: %s", err.Error()))
}

// buildQuote derives the window aggregates from bars, which must be non-empty
func buildQuote(ticker string, profile *models.Profile, bars []models.Bar, capturedAt time.Time) *models.Quote {
	sum := decimal.Zero
	high := bars[0].High
	low := bars[0].Low
	for _, bar := range bars {
		sum = sum.Add(bar.Close)
		if bar.High.GreaterThan(high) {
			high = bar.High
		}
		if bar.Low.LessThan(low) {
			low = bar.Low
		}
	}

	quote := &models.Quote{
		Ticker:       ticker,
		Name:         ticker,
		Currency:     models.DefaultCurrency,
		CurrentPrice: bars[len(bars)-1].Close,
		AvgPrice30d:  sum.Div(decimal.NewFromInt(int64(len(bars)))),
		High30d:      high,
		Low30d:       low,
		Timestamp:    capturedAt,
	}

	if profile != nil {
		if profile.Name != "" {
			quote.Name = profile.Name
		}
		if profile.Currency != "" {
			quote.Currency = profile.Currency
		}
		quote.PreviousClose = profile.PreviousClose
		quote.MarketCap = profile.MarketCap
		quote.Week52High = profile.Week52High
		quote.Week52Low = profile.Week52Low
		quote.PERatio = profile.PERatio
		quote.DividendYield = profile.DividendYield
		quote.Volume = profile.Volume
	}
	if quote.Volume == nil {
		quote.Volume = models.Int64Ptr(bars[len(bars)-1].Volume)
	}

	return quote
}
