package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"stock-agent/models"
	"stock-agent/observability"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/form"
)

// YahooService reads quote metadata and daily history from Yahoo Finance.
// Every call carries the caller's context down to the HTTP request.
type YahooService struct {
	getEquity    func(ctx context.Context, symbol string) (*finance.Equity, error)
	getChartMeta func(ctx context.Context, symbol string) (*yahooChartMeta, error)
	getChart     func(ctx context.Context, params *chart.Params) ([]finance.ChartBar, error)
}

// NewYahooService creates a YahooService. An empty baseURL uses Yahoo's public host.
func NewYahooService(baseURL string) *YahooService {
	return newYahooServiceWithBackend(newYahooBackend(baseURL, nil))
}

func newYahooServiceWithBackend(b finance.Backend) *YahooService {
	equities := equity.Client{B: b}
	charts := chart.Client{B: b}

	return &YahooService{
		getEquity: func(ctx context.Context, symbol string) (*finance.Equity, error) {
			iter := equities.ListP(&equity.Params{
				Params:  finance.Params{Context: &ctx},
				Symbols: []string{symbol},
			})
			if !iter.Next() {
				return nil, iter.Err()
			}
			return iter.Equity(), nil
		},
		getChartMeta: func(ctx context.Context, symbol string) (*yahooChartMeta, error) {
			return fetchChartMeta(ctx, b, symbol)
		},
		getChart: func(ctx context.Context, params *chart.Params) ([]finance.ChartBar, error) {
			params.Context = &ctx
			return collectChart(charts, params)
		},
	}
}

// collectChart drains the chart iterator. An unknown symbol yields no bars.
func collectChart(c chart.Client, params *chart.Params) ([]finance.ChartBar, error) {
	iter := c.Get(params)

	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		if isYahooNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return bars, nil
}

// yahooChartMeta is the subset of v8 chart metadata that describes the quote
type yahooChartMeta struct {
	Symbol              string  `json:"symbol"`
	Currency            string  `json:"currency"`
	LongName            string  `json:"longName"`
	ShortName           string  `json:"shortName"`
	RegularMarketPrice  float64 `json:"regularMarketPrice"`
	PreviousClose       float64 `json:"previousClose"`
	ChartPreviousClose  float64 `json:"chartPreviousClose"`
	FiftyTwoWeekHigh    float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow     float64 `json:"fiftyTwoWeekLow"`
	RegularMarketVolume int64   `json:"regularMarketVolume"`
}

type chartMetaResponse struct {
	Chart struct {
		Result []struct {
			Meta yahooChartMeta `json:"meta"`
		} `json:"result"`
		Error *finance.YfinError `json:"error"`
	} `json:"chart"`
}

// fetchChartMeta requests a one-day chart and keeps only its metadata.
// A nil meta with a nil error means Yahoo has no such symbol.
func fetchChartMeta(ctx context.Context, b finance.Backend, symbol string) (*yahooChartMeta, error) {
	values := &form.Values{}
	values.Set("range", "1d")
	values.Set("interval", "1d")

	var resp chartMetaResponse
	err := b.Call("v8/finance/chart/"+url.PathEscape(symbol), values, &ctx, &resp)
	if err == nil && resp.Chart.Error != nil {
		err = resp.Chart.Error
	}
	if err != nil {
		if isYahooNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(resp.Chart.Result) == 0 {
		return nil, nil
	}
	return &resp.Chart.Result[0].Meta, nil
}

// GetProfile returns quote metadata for a symbol. When the quote endpoint
// fails the profile is rebuilt from chart metadata, which has no fundamentals.
func (s *YahooService) GetProfile(ctx context.Context, symbol string) (*models.Profile, error) {
	return callUpstream(ctx, BreakerYahoo, "profile", func() (*models.Profile, error) {
		eq, err := s.getEquity(ctx, symbol)
		if err == nil {
			if eq == nil {
				return nil, nil
			}
			return profileFromEquity(symbol, eq), nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, err)
		}

		observability.WithTicker(symbol).Warn("yahoo quote failed, using chart metadata", "error", err)
		meta, metaErr := s.getChartMeta(ctx, symbol)
		if metaErr != nil {
			return nil, fmt.Errorf("failed to get quote for %s: %w", symbol, metaErr)
		}
		if meta == nil {
			return nil, nil
		}
		return profileFromChartMeta(symbol, meta), nil
	})
}

func profileFromEquity(symbol string, eq *finance.Equity) *models.Profile {
	name := eq.ShortName
	if name == "" {
		name = eq.LongName
	}

	return &models.Profile{
		Symbol:        symbol,
		Name:          name,
		Currency:      eq.CurrencyID,
		PreviousClose: floatDecimal(eq.RegularMarketPreviousClose),
		MarketCap:     models.Int64Ptr(eq.MarketCap),
		Week52High:    floatDecimal(eq.FiftyTwoWeekHigh),
		Week52Low:     floatDecimal(eq.FiftyTwoWeekLow),
		PERatio:       models.FloatPtr(eq.TrailingPE),
		DividendYield: models.FloatPtr(eq.TrailingAnnualDividendYield),
		Volume:        models.Int64Ptr(int64(eq.RegularMarketVolume)),
	}
}

func profileFromChartMeta(symbol string, meta *yahooChartMeta) *models.Profile {
	name := meta.ShortName
	if name == "" {
		name = meta.LongName
	}
	prevClose := meta.PreviousClose
	if prevClose == 0 {
		prevClose = meta.ChartPreviousClose
	}

	return &models.Profile{
		Symbol:        symbol,
		Name:          name,
		Currency:      meta.Currency,
		PreviousClose: floatDecimal(prevClose),
		Week52High:    floatDecimal(meta.FiftyTwoWeekHigh),
		Week52Low:     floatDecimal(meta.FiftyTwoWeekLow),
		Volume:        models.Int64Ptr(meta.RegularMarketVolume),
	}
}

// GetDailyBars returns daily bars between start and end.
// An unknown symbol returns no bars and no error.
func (s *YahooService) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]models.Bar, error) {
	return callUpstream(ctx, BreakerYahoo, "bars", func() ([]models.Bar, error) {
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: datetime.OneDay,
		}

		raw, err := s.getChart(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
		}

		bars := make([]models.Bar, 0, len(raw))
		for _, b := range raw {
			bars = append(bars, models.Bar{
				Symbol:    symbol,
				Timestamp: time.Unix(int64(b.Timestamp), 0).UTC(),
				Open:      b.Open,
				High:      b.High,
				Low:       b.Low,
				Close:     b.Close,
				Volume:    int64(b.Volume),
			})
		}
		return bars, nil
	})
}

func asYfinError(err error) (*finance.YfinError, bool) {
	var yfinErr *finance.YfinError
	if errors.As(err, &yfinErr) {
		return yfinErr, true
	}
	return nil, false
}
