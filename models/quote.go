package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is reported when the provider omits the quote currency
const DefaultCurrency = "USD"

// Quote is the snapshot handed to the model by the stock price tool.
// It is built fresh on every fetch and never mutated afterwards.
type Quote struct {
	Ticker        string           `json:"ticker"`
	Name          string           `json:"name"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	Currency      string           `json:"currency"`
	PreviousClose *decimal.Decimal `json:"previous_close"`
	MarketCap     *int64           `json:"market_cap"`
	Week52High    *decimal.Decimal `json:"52wk_high"`
	Week52Low     *decimal.Decimal `json:"52wk_low"`
	AvgPrice30d   decimal.Decimal  `json:"30d_avg_price"`
	High30d       decimal.Decimal  `json:"30d_high"`
	Low30d        decimal.Decimal  `json:"30d_low"`
	PERatio       *float64         `json:"pe_ratio"`
	DividendYield *float64         `json:"dividend_yield"`
	Volume        *int64           `json:"volume"`
	Timestamp     time.Time        `json:"timestamp"`
}

// ErrorRecord replaces a Quote when no data could be produced
type ErrorRecord struct {
	Message string `json:"error"`
}

// FetchResult holds exactly one of Quote or Error
type FetchResult struct {
	Quote *Quote
	Error *ErrorRecord
}

// QuoteResult wraps a successful fetch
func QuoteResult(q *Quote) FetchResult {
	return FetchResult{Quote: q}
}

// ErrorResult wraps a failed fetch
func ErrorResult(msg string) FetchResult {
	return FetchResult{Error: &ErrorRecord{Message: msg}}
}

// IsError reports whether the fetch failed
func (r FetchResult) IsError() bool {
	return r.Error != nil
}

// MarshalJSON encodes whichever record is present
func (r FetchResult) MarshalJSON() ([]byte, error) {
	switch {
	case r.Quote != nil && r.Error != nil:
		return nil, errors.New("fetch result holds both a quote and an error")
	case r.Quote != nil:
		return json.Marshal(r.Quote)
	case r.Error != nil:
		return json.Marshal(r.Error)
	default:
		return nil, errors.New("empty fetch result")
	}
}
