package models

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FormatUSD renders a decimal as "$X.XX".
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// RoundMoney rounds to cents using half-away-from-zero.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FromCents builds a decimal price from an integer number of cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.NewFromInt(cents).Div(hundred)
}
