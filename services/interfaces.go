package services

import (
	"context"
	"time"

	"stock-agent/models"
)

// ProfileProvider returns quote metadata for a symbol.
// A nil profile with a nil error means the provider knows nothing about the symbol.
type ProfileProvider interface {
	GetProfile(ctx context.Context, symbol string) (*models.Profile, error)
}

// BarsProvider returns daily OHLCV bars in ascending time order
type BarsProvider interface {
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

// MarketDataProvider supplies everything the stock price tool needs
type MarketDataProvider interface {
	ProfileProvider
	BarsProvider
}

// ChatModel is a chat-completion backend with tool calling
type ChatModel interface {
	Complete(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Compile-time interface verification
var _ MarketDataProvider = (*YahooService)(nil)
var _ MarketDataProvider = (*AlpacaService)(nil)
var _ MarketDataProvider = (*CompositeMarketData)(nil)
var _ ProfileProvider = (*AlphaVantageService)(nil)
var _ ChatModel = (*OpenAIService)(nil)
var _ ChatModel = (*BedrockService)(nil)
