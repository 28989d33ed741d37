package app

import (
	"context"
	"fmt"

	"stock-agent/agents"
	"stock-agent/config"
	"stock-agent/observability"
	"stock-agent/services"
	"stock-agent/tools"
)

// NewFromConfig wires the configured chat model and market data source into
// a ready App with the stock price tool registered.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	chatModel, err := BuildChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat model: %w", err)
	}

	fetcher := tools.NewStockPriceFetcher(BuildMarketData(cfg), cfg.MarketData.HistoryDays)
	factory := agents.NewFactory(chatModel, []agents.Tool{tools.NewStockPriceTool(fetcher)}, cfg)

	return New(cfg, factory), nil
}

// BuildChatModel selects the completion backend named by LLM_PROVIDER
func BuildChatModel(ctx context.Context, cfg *config.Config) (services.ChatModel, error) {
	switch cfg.LLM.Provider {
	case config.LLMProviderOpenAI:
		return services.NewOpenAIService(cfg)
	case config.LLMProviderBedrock:
		return services.NewBedrockService(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLM.Provider)
	}
}

// BuildMarketData selects the market data source named by MARKET_DATA_PROVIDER.
// Alpaca has no fundamentals, so profiles come from Alpha Vantage when a key is set.
func BuildMarketData(cfg *config.Config) services.MarketDataProvider {
	if cfg.MarketData.Provider != config.MarketDataAlpaca {
		return services.NewYahooService(cfg.MarketData.YahooURL)
	}

	alpaca := services.NewAlpacaService(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL)
	if !cfg.HasAlphaVantage() {
		observability.Warn("ALPHA_VANTAGE_API_KEY not set, quotes will carry bar data only")
		return alpaca
	}
	return services.NewCompositeMarketData(
		services.NewAlphaVantageService(cfg.AlphaVantage.APIKey, cfg.AlphaVantage.BaseURL),
		alpaca,
	)
}
