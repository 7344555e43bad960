/*
balance.go - Balance replay from transactions

PURPOSE:
  Computes a customer's balance by replaying their ledger rows. There is no
  stored balance field that can drift; every snapshot is derived fresh.

THE FLOOR:
  Available balance is never reported negative. Legacy data contains
  over-withdrawals, so the unclamped arithmetic can go below zero; the floor
  is a deliberate business rule, not a bug to fix.
*/
package susu

import "github.com/shopspring/decimal"

// BalanceSnapshot is the derived state of a customer account over a window.
type BalanceSnapshot struct {
	CustomerID CustomerID
	Window     Window

	TotalContributions decimal.Decimal
	TotalCashWithdrawn decimal.Decimal
	TotalProfitTaken   decimal.Decimal

	// Available = max(0, contributions - cash - profit).
	Available decimal.Decimal
}

// ComputeBalance replays transactions into a snapshot. Zero and negative
// amounts never affect balances. Withdrawals that classify to neither cash
// nor profit belong to other subsystems and are ignored.
func ComputeBalance(customerID CustomerID, transactions []Transaction, w Window) BalanceSnapshot {
	snap := BalanceSnapshot{
		CustomerID:         customerID,
		Window:             w,
		TotalContributions: decimal.Zero,
		TotalCashWithdrawn: decimal.Zero,
		TotalProfitTaken:   decimal.Zero,
	}

	for _, t := range transactions {
		if t.CustomerID != customerID || !t.Amount.IsPositive() {
			continue
		}
		d, ok := t.OccurredOn()
		if !w.includes(d, ok) {
			continue
		}

		switch t.Kind {
		case KindContribution:
			snap.TotalContributions = snap.TotalContributions.Add(t.Amount)
		case KindWithdrawal:
			switch EffectiveSubtype(t) {
			case SubtypeCash:
				snap.TotalCashWithdrawn = snap.TotalCashWithdrawn.Add(t.Amount)
			case SubtypeProfit:
				snap.TotalProfitTaken = snap.TotalProfitTaken.Add(t.Amount)
			}
		}
	}

	snap.Available = availableFloor(snap.TotalContributions, snap.TotalCashWithdrawn, snap.TotalProfitTaken)
	return snap
}

// availableFloor clamps contributions - cash - profit at zero.
func availableFloor(contributions, cash, profit decimal.Decimal) decimal.Decimal {
	available := contributions.Sub(cash).Sub(profit)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}
