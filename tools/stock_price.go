package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"stock-agent/models"
)

const (
	StockPriceToolName        = "get_stock_price"
	stockPriceToolDescription = "Get the current or historical stock price for a given ticker symbol"
)

// legacyArgKey is the key single-input tools receive when the model passes a bare string
const legacyArgKey = "__arg1"

// StockPriceTool exposes a Fetcher to the agent as the get_stock_price tool
type StockPriceTool struct {
	fetcher Fetcher
}

// NewStockPriceTool creates the tool around a fetcher
func NewStockPriceTool(fetcher Fetcher) *StockPriceTool {
	return &StockPriceTool{fetcher: fetcher}
}

// Name returns the tool name the model calls
func (t *StockPriceTool) Name() string {
	return StockPriceToolName
}

// Definition describes the tool and its argument schema to the model
func (t *StockPriceTool) Definition() models.ToolDefinition {
	return models.ToolDefinition{
		Name:        StockPriceToolName,
		Description: stockPriceToolDescription,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"ticker": map[string]any{
					"type":        "string",
					"description": "Stock ticker symbol, e.g. AAPL",
				},
			},
			"required": []string{"ticker"},
		},
	}
}

// Call parses the JSON arguments, fetches the quote and returns it JSON-encoded.
// An error is returned only for unusable arguments; fetch failures are encoded in the result.
func (t *StockPriceTool) Call(ctx context.Context, arguments string) (string, error) {
	ticker, err := parseTickerArgument(arguments)
	if err != nil {
		return "", err
	}

	result := t.fetcher.Fetch(ctx, ticker)
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("failed to encode result: %w", err)
	}
	return string(out), nil
}

func parseTickerArgument(arguments string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("invalid arguments for %s: %w", StockPriceToolName, err)
	}

	for _, key := range []string{"ticker", legacyArgKey} {
		raw, ok := args[key]
		if !ok {
			continue
		}
		ticker, ok := raw.(string)
		if !ok {
			return "", fmt.Errorf("invalid arguments for %s: %q must be a string", StockPriceToolName, key)
		}
		if ticker = strings.TrimSpace(ticker); ticker != "" {
			return ticker, nil
		}
	}

	return "", fmt.Errorf("invalid arguments for %s: missing ticker", StockPriceToolName)
}
