package rules

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTolerance is the maximum absolute difference, in currency
// units, at which two amounts still count as equal.
var DefaultTolerance = decimal.New(1, -2) // 0.01

// amountPlaces is the fixed precision for monetary comparison.
const amountPlaces = 2

// AmountPolicy decides whether two monetary amounts represent the same
// transaction under tolerance and sign-convention rules. The two sides
// of a reconciliation may record the same expense with opposite signs
// (expense-as-positive vs credit-as-negative), so consistency is checked
// under every convention before amounts are declared different.
type AmountPolicy struct {
	tolerance decimal.Decimal
}

// NewAmountPolicy creates a policy with the given tolerance. A negative
// tolerance is rejected; use decimal.Zero for exact matching.
func NewAmountPolicy(tolerance decimal.Decimal) (*AmountPolicy, error) {
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("amount tolerance cannot be negative: %s", tolerance.String())
	}
	return &AmountPolicy{tolerance: tolerance}, nil
}

// DefaultAmountPolicy returns a policy with the 0.01 default tolerance.
func DefaultAmountPolicy() *AmountPolicy {
	return &AmountPolicy{tolerance: DefaultTolerance}
}

// Tolerance returns the configured tolerance.
func (p *AmountPolicy) Tolerance() decimal.Decimal {
	return p.tolerance
}

// Quantize rounds an amount to two decimal places, half up.
func Quantize(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(amountPlaces)
}

// ParseAmount converts a textual amount to a quantized decimal. Invalid
// or empty input parses to 0.00; upstream extraction confidence, not a
// crash here, is what flags records for human review.
func ParseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero.Round(amountPlaces)
	}
	return Quantize(d)
}

// withinTolerance reports |a-b| <= tolerance.
func (p *AmountPolicy) withinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(p.tolerance)
}

// Consistent reports whether two amounts represent the same transaction.
// It accepts any of:
//  1. direct equality within tolerance,
//  2. equality with one sign flipped (opposite conventions),
//  3. equality of absolute values (magnitude match regardless of sign).
//
// Amounts are compared as given, not re-quantized: 50.011 against 50.00
// stays inconsistent at the 0.01 tolerance. Rounding to cents is the
// parsing layer's job (ParseAmount), not the comparison's.
func (p *AmountPolicy) Consistent(a, b decimal.Decimal) bool {
	if p.withinTolerance(a, b) {
		return true
	}

	if p.withinTolerance(a, b.Neg()) {
		return true
	}

	return p.withinTolerance(a.Abs(), b.Abs())
}

// Difference returns 0.00 when the amounts are consistent under any
// sign convention, otherwise the raw absolute difference for reporting.
func (p *AmountPolicy) Difference(a, b decimal.Decimal) decimal.Decimal {
	if p.Consistent(a, b) {
		return decimal.Zero.Round(amountPlaces)
	}
	return a.Sub(b).Abs()
}
