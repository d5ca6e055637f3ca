// internal/pkg/money/money.go
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for negative costs or non-positive multipliers
var ErrInvalidInput = errors.New("invalid pricing input")

var hundred = decimal.NewFromInt(100)

// ApplyMargin derives a sell price from a cost price. The result is always
// rounded up to the next cent so the margin never shrinks.
func ApplyMargin(cost, multiplier decimal.Decimal) (decimal.Decimal, error) {
	if cost.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: cost %s is negative", ErrInvalidInput, cost)
	}
	if !multiplier.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: multiplier %s must be positive", ErrInvalidInput, multiplier)
	}

	return cost.Mul(multiplier).Mul(hundred).Ceil().Div(hundred), nil
}

// DiscountPercent returns the whole-number percentage saved between an
// original and a reduced price
func DiscountPercent(original, reduced decimal.Decimal) int {
	if !original.IsPositive() || reduced.GreaterThanOrEqual(original) {
		return 0
	}

	pct := original.Sub(reduced).Div(original).Mul(hundred).Round(0).IntPart()
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// LineTotal returns price * quantity rounded to cents
func LineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}

// ToMinorUnits converts an amount to integer cents
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromMinorUnits converts integer cents back to a decimal amount
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
