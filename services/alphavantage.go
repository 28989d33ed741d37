package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stock-agent/models"
	"stock-agent/observability"

	"github.com/shopspring/decimal"
)

// AlphaVantageService handles communication with Alpha Vantage API
type AlphaVantageService struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

const defaultAlphaVantageURL = "https://www.alphavantage.co/query"

// NewAlphaVantageService creates a new AlphaVantageService instance.
// An empty baseURL uses the public endpoint.
func NewAlphaVantageService(apiKey, baseURL string) *AlphaVantageService {
	if baseURL == "" {
		baseURL = defaultAlphaVantageURL
	}
	return &AlphaVantageService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// OverviewResponse represents the company overview response from Alpha Vantage
type OverviewResponse struct {
	Symbol        string `json:"Symbol"`
	Name          string `json:"Name"`
	Currency      string `json:"Currency"`
	MarketCap     string `json:"MarketCapitalization"`
	PERatio       string `json:"PERatio"`
	DividendYield string `json:"DividendYield"`
	Week52High    string `json:"52WeekHigh"`
	Week52Low     string `json:"52WeekLow"`

	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// QuoteResponse represents a quote from Alpha Vantage
type QuoteResponse struct {
	GlobalQuote struct {
		Symbol    string `json:"01. symbol"`
		Price     string `json:"05. price"`
		Volume    string `json:"06. volume"`
		PrevClose string `json:"08. previous close"`
	} `json:"Global Quote"`

	Note        string `json:"Note"`
	Information string `json:"Information"`
}

// GetProfile combines the OVERVIEW and GLOBAL_QUOTE endpoints into a profile.
// Returns nil when Alpha Vantage knows neither.
func (s *AlphaVantageService) GetProfile(ctx context.Context, symbol string) (*models.Profile, error) {
	return callUpstream(ctx, BreakerAlphaVantage, "profile", func() (*models.Profile, error) {
		var overview OverviewResponse
		if err := s.query(ctx, "OVERVIEW", symbol, &overview); err != nil {
			return nil, fmt.Errorf("failed to fetch overview: %w", err)
		}
		if msg := firstNonEmpty(overview.Note, overview.Information); msg != "" {
			return nil, fmt.Errorf("alpha vantage rate limit: %s", msg)
		}

		var quote QuoteResponse
		if err := s.query(ctx, "GLOBAL_QUOTE", symbol, &quote); err != nil {
			return nil, fmt.Errorf("failed to fetch quote: %w", err)
		}
		if msg := firstNonEmpty(quote.Note, quote.Information); msg != "" {
			return nil, fmt.Errorf("alpha vantage rate limit: %s", msg)
		}

		if overview.Symbol == "" && quote.GlobalQuote.Symbol == "" {
			return nil, nil
		}

		profile := &models.Profile{
			Symbol:        symbol,
			Name:          overview.Name,
			Currency:      overview.Currency,
			PreviousClose: parseDecimal("previous close", quote.GlobalQuote.PrevClose),
			Week52High:    parseDecimal("52 week high", overview.Week52High),
			Week52Low:     parseDecimal("52 week low", overview.Week52Low),
			PERatio:       models.FloatPtr(parseFloat("P/E ratio", overview.PERatio)),
			DividendYield: models.FloatPtr(parseFloat("dividend yield", overview.DividendYield)),
			MarketCap:     models.Int64Ptr(parseInt("market cap", overview.MarketCap)),
			Volume:        models.Int64Ptr(parseInt("volume", quote.GlobalQuote.Volume)),
		}
		return profile, nil
	})
}

func (s *AlphaVantageService) query(ctx context.Context, function, symbol string, out any) error {
	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("apikey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func isBlankField(v string) bool {
	return v == "" || v == "None" || v == "-"
}

func parseDecimal(field, v string) *decimal.Decimal {
	if isBlankField(v) {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		observability.Warn("failed to parse alpha vantage field", "field", field, "value", v, "error", err)
		return nil
	}
	return models.DecimalPtr(d)
}

func parseFloat(field, v string) float64 {
	if isBlankField(v) {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		observability.Warn("failed to parse alpha vantage field", "field", field, "value", v, "error", err)
		return 0
	}
	return f
}

func parseInt(field, v string) int64 {
	if isBlankField(v) {
		return 0
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		observability.Warn("failed to parse alpha vantage field", "field", field, "value", v, "error", err)
		return 0
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
