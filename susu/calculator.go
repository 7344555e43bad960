/*
calculator.go - Withdrawal pricing in profit boxes

PURPOSE:
  Prices a requested withdrawal against the customer's daily rate and
  available balance. The fee ("profit") is charged in discrete boxes, one
  per 30 contribution-days spanned by the withdrawal:

    30 days or less  -> 1 box
    crosses 30 days  -> 2 boxes
    crosses 60 days  -> 3 boxes, etc.

  At least one box is always charged. When the balance cannot cover the
  requested amount plus the fee, boxes are reduced one at a time down to the
  one-box minimum BEFORE the withdrawal is rejected. This degrade-first-
  then-fail ordering is a business rule, not an approximation.

PURITY:
  Calculate never touches the store. It serves both preview (no writes) and
  the pure step before commit.
*/
package susu

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PageDays is the span of one profit box in contribution-days.
const PageDays = 30

// epsilon tolerates rounding noise in balance comparisons.
var epsilon = decimal.NewFromFloat(0.0001)

// Quote is the priced result of a feasible withdrawal.
type Quote struct {
	Requested     decimal.Decimal
	Rate          decimal.Decimal
	WithdrawDays  decimal.Decimal // requested / rate
	ProfitBoxes   int64
	ProfitAmount  decimal.Decimal // boxes * rate
	TotalDeducted decimal.Decimal // requested + profit
	BalanceAfter  decimal.Decimal // clamped at zero
}

// Calculate prices a withdrawal. It returns ErrInvalidAmount for a
// non-positive request, ErrNoRate for a non-positive rate, and a
// *InsufficientFundsError when even the one-box minimum does not fit.
func Calculate(requested, rate, available decimal.Decimal, currency Currency) (Quote, []string, error) {
	var logs []string

	if !requested.IsPositive() {
		return Quote{}, logs, ErrInvalidAmount
	}
	if !rate.IsPositive() {
		return Quote{}, logs, ErrNoRate
	}

	withdrawDays := requested.Div(rate)
	logs = append(logs, fmt.Sprintf("Withdrawal amount in days at rate %s: %s days",
		currency.Format(rate), withdrawDays.StringFixed(2)))

	boxes := withdrawDays.Div(decimal.NewFromInt(PageDays)).Ceil().IntPart()
	if boxes < 1 {
		boxes = 1
	}
	logs = append(logs, fmt.Sprintf("Raw profit boxes computed from withdrawal days: %d", boxes))

	profit := rate.Mul(decimal.NewFromInt(boxes))
	total := requested.Add(profit)
	logs = append(logs, fmt.Sprintf("Initial profit amount = %s (%d boxes x %s).",
		currency.Format(profit), boxes, currency.Format(rate)))
	logs = append(logs, fmt.Sprintf("Total to deduct (withdrawal + profit) = %s.", currency.Format(total)))

	limit := available.Add(epsilon)
	if total.GreaterThan(limit) {
		logs = append(logs, "Total to deduct is more than available balance; trying to reduce profit boxes.")
		for boxes > 1 && requested.Add(rate.Mul(decimal.NewFromInt(boxes))).GreaterThan(limit) {
			boxes--
			logs = append(logs, fmt.Sprintf("Reduced profit boxes to %d due to balance limit.", boxes))
		}
		profit = rate.Mul(decimal.NewFromInt(boxes))
		total = requested.Add(profit)
		logs = append(logs, fmt.Sprintf("After adjustment: profit amount = %s, total to deduct = %s.",
			currency.Format(profit), currency.Format(total)))

		// Still not enough even with the minimum one box.
		if total.GreaterThan(limit) {
			logs = append(logs, "Even with minimum profit box, balance is insufficient; aborting withdrawal.")
			return Quote{}, logs, &InsufficientFundsError{
				Available:       available,
				Requested:       requested,
				MinimumRequired: requested.Add(rate),
				Shortfall:       total.Sub(available),
			}
		}
	}

	logs = append(logs, fmt.Sprintf("Final profit boxes to charge: %d -> profit amount: %s",
		boxes, currency.Format(profit)))

	after := available.Sub(total)
	if after.IsNegative() {
		after = decimal.Zero
	}

	return Quote{
		Requested:     requested,
		Rate:          rate,
		WithdrawDays:  withdrawDays,
		ProfitBoxes:   boxes,
		ProfitAmount:  profit,
		TotalDeducted: total,
		BalanceAfter:  after,
	}, logs, nil
}
