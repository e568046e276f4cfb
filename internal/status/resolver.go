// Package status derives a payment's lifecycle state from its expected
// amount and the total allocated to it. The resolver is a pure function
// so the same inputs always produce the same state, no matter when or
// where it runs.
package status

import (
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// Tolerance bounds how far under the expected amount a payment may land
// and still count as fully paid. Covers provider fees and rounding.
type Tolerance struct {
	// Flat is an absolute amount in the payment's currency.
	Flat decimal.Decimal
	// Pct is a percentage of the expected amount (0.5 means 0.5%).
	Pct decimal.Decimal
}

// Amount returns the effective tolerance for the given expected amount:
// the larger of the flat amount and the percentage slice.
func (t Tolerance) Amount(expected decimal.Decimal) decimal.Decimal {
	pctSlice := expected.Mul(t.Pct).Div(decimal.NewFromInt(100))
	if t.Flat.GreaterThan(pctSlice) {
		return t.Flat
	}
	return pctSlice
}

// Resolution is the derived payment state.
type Resolution struct {
	Status    enums.PaymentStatus
	Total     decimal.Decimal
	Remaining decimal.Decimal
}

// Resolve computes the payment status from the expected amount and the
// net total allocated to the payment (refund allocations are negative).
//
// A net total at or below zero is PENDING: refunds can cancel earlier
// settlements but never push a payment past pending in reverse. A total
// within tolerance of the expected amount resolves as FULLY_PAID with
// zero remaining; the tolerance forgives shortfall only, overshoot is
// OVERPAID the moment the total exceeds the expected amount.
func Resolve(expected, total decimal.Decimal, tol Tolerance) Resolution {
	if total.LessThanOrEqual(decimal.Zero) {
		return Resolution{
			Status:    enums.PaymentStatusPending,
			Total:     total,
			Remaining: expected.Sub(total),
		}
	}
	if total.GreaterThan(expected) {
		return Resolution{
			Status:    enums.PaymentStatusOverpaid,
			Total:     total,
			Remaining: expected.Sub(total),
		}
	}
	if total.GreaterThanOrEqual(expected.Sub(tol.Amount(expected))) {
		return Resolution{
			Status:    enums.PaymentStatusFullyPaid,
			Total:     total,
			Remaining: decimal.Zero,
		}
	}
	return Resolution{
		Status:    enums.PaymentStatusPartiallyPaid,
		Total:     total,
		Remaining: expected.Sub(total),
	}
}
