package domain

import "github.com/shopspring/decimal"

// Decimal is the fixed-point type used for every monetary or probability
// quantity in this package. decimal.Decimal stores an arbitrary-precision
// unscaled integer plus exponent, comfortably exceeding the 1e-6 precision
// floor this package requires; no value here is ever a binary float.
type Decimal = decimal.Decimal

var (
	Zero = decimal.Zero
	One  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
)

// NewDecimal builds a Decimal from a float64 obtained from upstream JSON.
// Callers must have already checked the float is finite; NewFromFloat does
// not itself validate that.
func NewDecimal(f float64) Decimal {
	return decimal.NewFromFloat(f)
}

// ParseDecimal parses a decimal literal, as used for persisted columns and
// config values (§4.8 stores all monetary columns as strings).
func ParseDecimal(s string) (Decimal, error) {
	return decimal.NewFromString(s)
}
