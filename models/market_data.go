package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar represents OHLCV price data for one trading day
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
}

// Profile is the quote metadata a provider reports for a symbol.
// Every field is optional; nil means the provider did not supply it.
type Profile struct {
	Symbol        string           `json:"symbol"`
	Name          string           `json:"name,omitempty"`
	Currency      string           `json:"currency,omitempty"`
	PreviousClose *decimal.Decimal `json:"previous_close,omitempty"`
	MarketCap     *int64           `json:"market_cap,omitempty"`
	Week52High    *decimal.Decimal `json:"week52_high,omitempty"`
	Week52Low     *decimal.Decimal `json:"week52_low,omitempty"`
	PERatio       *float64         `json:"pe_ratio,omitempty"`
	DividendYield *float64         `json:"dividend_yield,omitempty"`
	Volume        *int64           `json:"volume,omitempty"`
}

// DecimalPtr returns a pointer to d, or nil when d is zero.
// Providers report missing numeric fields as zero.
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	if d.IsZero() {
		return nil
	}
	return &d
}

// FloatPtr returns a pointer to f, or nil when f is zero
func FloatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

// Int64Ptr returns a pointer to n, or nil when n is zero
func Int64Ptr(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}
