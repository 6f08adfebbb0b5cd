package types

import "github.com/shopspring/decimal"

// Percent returns p percent as a fraction: Percent(3) == 0.03.
func Percent(p int64) decimal.Decimal {
	return decimal.New(p, -2)
}

// BasisPoints returns bp basis points as a fraction: BasisPoints(1000) == 0.10.
func BasisPoints(bp int64) decimal.Decimal {
	return decimal.New(bp, -4)
}

// MustRate parses a decimal literal. It panics on malformed input and is
// intended for package-level constants.
func MustRate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
