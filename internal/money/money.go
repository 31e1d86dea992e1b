// Package money provides the fixed-precision decimal arithmetic used for all
// monetary values. Amounts are shopspring decimals end to end; every computed
// output is rounded to 8 fractional digits and formatted with exactly 8 when
// rendered as a string. Binary floating point never touches a monetary path.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"stellarsignals/internal/errs"
)

// Digits is the fixed fractional precision for USDC amounts.
const Digits = 8

var hundred = decimal.NewFromInt(100)

// Parse converts a decimal string into an amount. Empty or malformed input
// fails with ErrInvalidArgument.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty amount", errs.ErrInvalidArgument)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: malformed amount %q", errs.ErrInvalidArgument, s)
	}
	return d, nil
}

// ApplyPercent computes amount × percentage ÷ 100 rounded to 8 digits.
func ApplyPercent(amount, percentage decimal.Decimal) decimal.Decimal {
	return amount.Mul(percentage).Div(hundred).Round(Digits)
}

// Round normalizes an amount to the fixed 8-digit precision.
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Digits)
}

// Format renders an amount with exactly 8 fractional digits.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(Digits)
}

// Sum adds amounts at fixed precision.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total.Round(Digits)
}
