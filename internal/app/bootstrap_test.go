package app

import (
	"context"
	"testing"

	"stock-agent/config"
	"stock-agent/services"
)

func TestBuildChatModel(t *testing.T) {
	t.Run("openai", func(t *testing.T) {
		cfg := config.NewTestConfig()
		model, err := BuildChatModel(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := model.(*services.OpenAIService); !ok {
			t.Errorf("expected *services.OpenAIService, got %T", model)
		}
	})

	t.Run("openai without key", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OpenAI.APIKey = ""
		if _, err := BuildChatModel(context.Background(), cfg); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.LLM.Provider = "llama"
		if _, err := BuildChatModel(context.Background(), cfg); err == nil {
			t.Error("expected error")
		}
	})
}

func TestBuildMarketData(t *testing.T) {
	tests := []struct {
		name  string
		setup func(cfg *config.Config)
		check func(t *testing.T, p services.MarketDataProvider)
	}{
		{
			name:  "yahoo default",
			setup: func(cfg *config.Config) {},
			check: func(t *testing.T, p services.MarketDataProvider) {
				if _, ok := p.(*services.YahooService); !ok {
					t.Errorf("expected *services.YahooService, got %T", p)
				}
			},
		},
		{
			name: "alpaca only",
			setup: func(cfg *config.Config) {
				cfg.MarketData.Provider = config.MarketDataAlpaca
				cfg.Alpaca.APIKey = "key"
				cfg.Alpaca.APISecret = "secret"
			},
			check: func(t *testing.T, p services.MarketDataProvider) {
				if _, ok := p.(*services.AlpacaService); !ok {
					t.Errorf("expected *services.AlpacaService, got %T", p)
				}
			},
		},
		{
			name: "alpaca with alpha vantage profiles",
			setup: func(cfg *config.Config) {
				cfg.MarketData.Provider = config.MarketDataAlpaca
				cfg.Alpaca.APIKey = "key"
				cfg.Alpaca.APISecret = "secret"
				cfg.AlphaVantage.APIKey = "av-key"
			},
			check: func(t *testing.T, p services.MarketDataProvider) {
				c, ok := p.(*services.CompositeMarketData)
				if !ok {
					t.Fatalf("expected *services.CompositeMarketData, got %T", p)
				}
				if _, ok := c.Profiles.(*services.AlphaVantageService); !ok {
					t.Errorf("profiles from %T, want Alpha Vantage", c.Profiles)
				}
				if _, ok := c.Bars.(*services.AlpacaService); !ok {
					t.Errorf("bars from %T, want Alpaca", c.Bars)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.NewTestConfig()
			tt.setup(cfg)
			tt.check(t, BuildMarketData(cfg))
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Run("builds app with default model", func(t *testing.T) {
		cfg := config.NewTestConfig()
		a, err := NewFromConfig(context.Background(), cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if a.DefaultModel() != "gpt-3.5-turbo" {
			t.Errorf("DefaultModel() = %q", a.DefaultModel())
		}
	})

	t.Run("propagates chat model errors", func(t *testing.T) {
		cfg := config.NewTestConfig()
		cfg.OpenAI.APIKey = ""
		if _, err := NewFromConfig(context.Background(), cfg); err == nil {
			t.Error("expected error")
		}
	})
}
