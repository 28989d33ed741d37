package tools

import (
	"context"
	"encoding/json"
	"testing"

	"stock-agent/models"

	"github.com/shopspring/decimal"
)

// mockFetcher implements Fetcher for testing
type mockFetcher struct {
	fetchFunc func(ctx context.Context, ticker string) models.FetchResult
	calls     []string
}

func (m *mockFetcher) Fetch(ctx context.Context, ticker string) models.FetchResult {
	m.calls = append(m.calls, ticker)
	return m.fetchFunc(ctx, ticker)
}

func TestStockPriceTool_Definition(t *testing.T) {
	def := NewStockPriceTool(&mockFetcher{}).Definition()

	if def.Name != "get_stock_price" {
		t.Errorf("Name = %q, want get_stock_price", def.Name)
	}
	if def.Description != "Get the current or historical stock price for a given ticker symbol" {
		t.Errorf("unexpected description %q", def.Description)
	}
	props, ok := def.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatal("parameters should declare properties")
	}
	if _, ok := props["ticker"]; !ok {
		t.Error("schema should declare a ticker property")
	}
}

func TestStockPriceTool_Call(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, ticker string) models.FetchResult {
			return models.QuoteResult(&models.Quote{
				Ticker:       ticker,
				Name:         "Apple Inc.",
				Currency:     "USD",
				CurrentPrice: decimal.RequireFromString("170.5"),
			})
		},
	}
	tool := NewStockPriceTool(fetcher)

	tests := []struct {
		name string
		args string
	}{
		{"ticker key", `{"ticker":"AAPL"}`},
		{"single argument key", `{"__arg1":"AAPL"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tool.Call(context.Background(), tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var decoded map[string]any
			if err := json.Unmarshal([]byte(out), &decoded); err != nil {
				t.Fatalf("output is not JSON: %v", err)
			}
			if decoded["ticker"] != "AAPL" {
				t.Errorf("ticker = %v, want AAPL", decoded["ticker"])
			}
			if _, ok := decoded["30d_avg_price"]; !ok {
				t.Error("output should carry the 30d_avg_price key")
			}
		})
	}
}

func TestStockPriceTool_CallPassesErrorRecordThrough(t *testing.T) {
	tool := NewStockPriceTool(&mockFetcher{
		fetchFunc: func(_ context.Context, ticker string) models.FetchResult {
			return models.ErrorResult("No data available for ticker " + ticker)
		},
	})

	out, err := tool.Call(context.Background(), `{"ticker":"ZZZZ"}`)
	if err != nil {
		t.Fatalf("error records are tool output, not errors: %v", err)
	}
	if out != `{"error":"No data available for ticker ZZZZ"}` {
		t.Errorf("unexpected output %s", out)
	}
}

func TestStockPriceTool_CallInvalidArguments(t *testing.T) {
	fetcher := &mockFetcher{
		fetchFunc: func(context.Context, string) models.FetchResult {
			t.Error("fetcher should not be called")
			return models.ErrorResult("unreachable")
		},
	}
	tool := NewStockPriceTool(fetcher)

	tests := []struct {
		name string
		args string
	}{
		{"not json", `AAPL`},
		{"missing ticker", `{}`},
		{"empty ticker", `{"ticker":"  "}`},
		{"wrong type", `{"ticker":42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tool.Call(context.Background(), tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called %d times", len(fetcher.calls))
	}
}
