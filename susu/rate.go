/*
rate.go - Daily contribution rate inference

PURPOSE:
  SUSU customers contribute a fixed daily unit (e.g. always GH₵5.00),
  sometimes depositing several days at once so amounts are multiples of the
  unit. The GCD of all contribution amounts recovers that unit even without
  an explicit schedule field.

PRIORITY:
  1. Stored default rate on the customer, when positive
  2. GCD over all positive contribution amounts (all time, not windowed)

  A manual operator override takes precedence over both, but that decision
  lives in the engine (see engine.go) - this file never sees overrides.

PRECISION:
  Amounts convert to integer minor units (x100, rounded) before the GCD so
  floating point can never poison the result.
*/
package susu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var minorUnits = decimal.NewFromInt(100)

// InferRate determines the customer's daily contribution unit, returning
// the rate, an explanation log for the UI, and whether a rate was found.
// When ok is false the caller must treat the withdrawal as impossible.
func InferRate(customer Customer, transactions []Transaction, currency Currency) (decimal.Decimal, []string, bool) {
	var logs []string

	if customer.DefaultRate.IsPositive() {
		logs = append(logs, fmt.Sprintf("Using stored default rate: %s", currency.Format(customer.DefaultRate)))
		return customer.DefaultRate, logs, true
	}

	var amounts []int64
	for _, t := range transactions {
		if t.Kind != KindContribution || !t.Amount.IsPositive() {
			continue
		}
		amounts = append(amounts, t.Amount.Mul(minorUnits).Round(0).IntPart())
	}

	if len(amounts) == 0 {
		logs = append(logs, "No SUSU contributions found for this customer; cannot infer rate.")
		return decimal.Zero, logs, false
	}
	logs = append(logs, fmt.Sprintf("Found %d SUSU contributions for rate inference.", len(amounts)))

	g := amounts[0]
	for _, v := range amounts[1:] {
		g = gcd(g, v)
	}

	if g <= 0 {
		logs = append(logs, "Computed GCD is zero; cannot infer rate safely.")
		return decimal.Zero, logs, false
	}

	rate := decimal.NewFromInt(g).Div(minorUnits)
	logs = append(logs, fmt.Sprintf("Inferred SUSU daily rate from contributions: %s", currency.Format(rate)))
	return rate, logs, true
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}
