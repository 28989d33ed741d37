package services

import "github.com/shopspring/decimal"

// floatDecimal converts a provider float to an optional decimal; zero means absent
func floatDecimal(f float64) *decimal.Decimal {
	if f == 0 {
		return nil
	}
	d := decimal.NewFromFloat(f)
	return &d
}
