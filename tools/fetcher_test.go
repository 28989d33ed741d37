package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stock-agent/models"
	"stock-agent/services"

	"github.com/shopspring/decimal"
)

// mockMarketData implements services.MarketDataProvider for testing
type mockMarketData struct {
	profileFunc func(ctx context.Context, symbol string) (*models.Profile, error)
	barsFunc    func(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error)
}

func (m *mockMarketData) GetProfile(ctx context.Context, symbol string) (*models.Profile, error) {
	if m.profileFunc == nil {
		return nil, nil
	}
	return m.profileFunc(ctx, symbol)
}

func (m *mockMarketData) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	if m.barsFunc == nil {
		return nil, nil
	}
	return m.barsFunc(ctx, symbol, start, end)
}

var fixedNow = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)

func newTestFetcher(provider *mockMarketData) *StockPriceFetcher {
	f := NewStockPriceFetcher(provider, DefaultHistoryDays)
	f.now = func() time.Time { return fixedNow }
	return f
}

func bar(day int, open, high, low, close string) models.Bar {
	return models.Bar{
		Symbol:    "AAPL",
		Timestamp: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC),
		Open:      decimal.RequireFromString(open),
		High:      decimal.RequireFromString(high),
		Low:       decimal.RequireFromString(low),
		Close:     decimal.RequireFromString(close),
		Volume:    1000,
	}
}

func sampleBars() []models.Bar {
	return []models.Bar{
		bar(11, "170.00", "175.50", "168.20", "172.00"),
		bar(12, "172.00", "180.25", "171.00", "178.00"),
		bar(13, "178.00", "179.00", "165.10", "166.00"),
		bar(14, "166.00", "171.00", "165.90", "170.50"),
	}
}

func TestStockPriceFetcher_CurrentPriceIsLastClose(t *testing.T) {
	f := newTestFetcher(&mockMarketData{
		barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
			return sampleBars(), nil
		},
	})

	result := f.Fetch(context.Background(), "AAPL")
	if result.IsError() {
		t.Fatalf("unexpected error record: %s", result.Error.Message)
	}
	if !result.Quote.CurrentPrice.Equal(decimal.RequireFromString("170.50")) {
		t.Errorf("CurrentPrice = %s, want 170.50", result.Quote.CurrentPrice)
	}
}

func TestStockPriceFetcher_WindowAggregates(t *testing.T) {
	f := newTestFetcher(&mockMarketData{
		barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
			return sampleBars(), nil
		},
	})

	quote := f.Fetch(context.Background(), "AAPL").Quote
	if quote == nil {
		t.Fatal("expected quote")
	}

	// (172 + 178 + 166 + 170.5) / 4
	if !quote.AvgPrice30d.Equal(decimal.RequireFromString("171.625")) {
		t.Errorf("AvgPrice30d = %s, want 171.625", quote.AvgPrice30d)
	}
	if !quote.High30d.Equal(decimal.RequireFromString("180.25")) {
		t.Errorf("High30d = %s, want 180.25", quote.High30d)
	}
	if !quote.Low30d.Equal(decimal.RequireFromString("165.10")) {
		t.Errorf("Low30d = %s, want 165.10", quote.Low30d)
	}
	if !quote.Timestamp.Equal(fixedNow) {
		t.Errorf("Timestamp = %v, want %v", quote.Timestamp, fixedNow)
	}
}

func TestStockPriceFetcher_RequestsTrailingWindow(t *testing.T) {
	var gotStart, gotEnd time.Time
	f := newTestFetcher(&mockMarketData{
		barsFunc: func(_ context.Context, _ string, start, end time.Time) ([]models.Bar, error) {
			gotStart, gotEnd = start, end
			return sampleBars(), nil
		},
	})

	f.Fetch(context.Background(), "AAPL")

	if !gotEnd.Equal(fixedNow) {
		t.Errorf("end = %v, want %v", gotEnd, fixedNow)
	}
	if want := fixedNow.AddDate(0, 0, -30); !gotStart.Equal(want) {
		t.Errorf("start = %v, want %v", gotStart, want)
	}
}

func TestStockPriceFetcher_ProfileFields(t *testing.T) {
	prev := decimal.RequireFromString("169.00")
	pe := 28.4
	marketCap := int64(2650000000000)

	tests := []struct {
		name         string
		profile      *models.Profile
		wantName     string
		wantCurrency string
	}{
		{
			name: "full profile",
			profile: &models.Profile{
				Symbol:        "AAPL",
				Name:          "Apple Inc.",
				Currency:      "USD",
				PreviousClose: &prev,
				PERatio:       &pe,
				MarketCap:     &marketCap,
			},
			wantName:     "Apple Inc.",
			wantCurrency: "USD",
		},
		{
			name:         "sparse profile defaults",
			profile:      &models.Profile{Symbol: "AAPL"},
			wantName:     "AAPL",
			wantCurrency: "USD",
		},
		{
			name:         "no profile defaults",
			profile:      nil,
			wantName:     "AAPL",
			wantCurrency: "USD",
		},
		{
			name:         "foreign currency",
			profile:      &models.Profile{Symbol: "AAPL", Currency: "EUR"},
			wantName:     "AAPL",
			wantCurrency: "EUR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(&mockMarketData{
				profileFunc: func(context.Context, string) (*models.Profile, error) { return tt.profile, nil },
				barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
					return sampleBars(), nil
				},
			})

			quote := f.Fetch(context.Background(), "AAPL").Quote
			if quote == nil {
				t.Fatal("expected quote")
			}
			if quote.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", quote.Name, tt.wantName)
			}
			if quote.Currency != tt.wantCurrency {
				t.Errorf("Currency = %q, want %q", quote.Currency, tt.wantCurrency)
			}
			if tt.profile != nil && tt.profile.PERatio != nil {
				if quote.PERatio == nil || *quote.PERatio != pe {
					t.Errorf("PERatio = %v, want %v", quote.PERatio, pe)
				}
				if quote.PreviousClose == nil || !quote.PreviousClose.Equal(prev) {
					t.Errorf("PreviousClose = %v, want %s", quote.PreviousClose, prev)
				}
			}
		})
	}
}

func TestStockPriceFetcher_VolumeFromLatestBar(t *testing.T) {
	bars := sampleBars()
	bars[len(bars)-1].Volume = 48123000
	profileVolume := int64(52000000)

	tests := []struct {
		name    string
		profile *models.Profile
		want    int64
	}{
		{"no profile", nil, 48123000},
		{"profile without volume", &models.Profile{Symbol: "AAPL", Name: "Apple Inc."}, 48123000},
		{"profile volume wins", &models.Profile{Symbol: "AAPL", Volume: &profileVolume}, 52000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFetcher(&mockMarketData{
				profileFunc: func(context.Context, string) (*models.Profile, error) { return tt.profile, nil },
				barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
					return bars, nil
				},
			})

			quote := f.Fetch(context.Background(), "AAPL").Quote
			if quote == nil {
				t.Fatal("expected quote")
			}
			if quote.Volume == nil || *quote.Volume != tt.want {
				t.Errorf("Volume = %v, want %d", quote.Volume, tt.want)
			}
		})
	}
}

func TestStockPriceFetcher_YahooUnknownSymbol(t *testing.T) {
	services.SetGlobalRegistry(services.NewDefaultCircuitBreakerRegistry())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
			return
		}
		w.Write([]byte(`{"quoteResponse":{"result":[],"error":null}}`))
	}))
	defer server.Close()

	f := NewStockPriceFetcher(services.NewYahooService(server.URL), DefaultHistoryDays)

	result := f.Fetch(context.Background(), "XXXX")
	if !result.IsError() {
		t.Fatal("expected error record")
	}
	if result.Error.Message != "No data available for ticker XXXX" {
		t.Errorf("unexpected message %q", result.Error.Message)
	}
}

func TestStockPriceFetcher_EmptyHistory(t *testing.T) {
	f := newTestFetcher(&mockMarketData{
		barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
			return []models.Bar{}, nil
		},
	})

	result := f.Fetch(context.Background(), "DELISTED")
	if !result.IsError() {
		t.Fatal("expected error record")
	}
	if result.Quote != nil {
		t.Error("error record must not carry price fields")
	}
	if result.Error.Message != "No data available for ticker DELISTED" {
		t.Errorf("unexpected message %q", result.Error.Message)
	}

	out, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `{"error":"No data available for ticker DELISTED"}` {
		t.Errorf("unexpected JSON %s", out)
	}
}

func TestStockPriceFetcher_ProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		provider *mockMarketData
	}{
		{
			name: "profile error",
			provider: &mockMarketData{
				profileFunc: func(context.Context, string) (*models.Profile, error) {
					return nil, errors.New("connection refused")
				},
			},
		},
		{
			name: "history error",
			provider: &mockMarketData{
				barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
					return nil, errors.New("connection refused")
				},
			},
		},
		{
			name: "provider panic",
			provider: &mockMarketData{
				barsFunc: func(context.Context, string, time.Time, time.Time) ([]models.Bar, error) {
					panic("connection refused")
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := newTestFetcher(tt.provider).Fetch(context.Background(), "AAPL")
			if !result.IsError() {
				t.Fatal("expected error record")
			}
			if !strings.HasPrefix(result.Error.Message, "Error fetching stock data: ") {
				t.Errorf("unexpected prefix: %q", result.Error.Message)
			}
			if !strings.Contains(result.Error.Message, "connection refused") {
				t.Errorf("message should carry the provider error: %q", result.Error.Message)
			}
		})
	}
}

func TestNewStockPriceFetcher_DefaultWindow(t *testing.T) {
	f := NewStockPriceFetcher(&mockMarketData{}, 0)
	if f.historyDays != DefaultHistoryDays {
		t.Errorf("historyDays = %d, want %d", f.historyDays, DefaultHistoryDays)
	}
}
