/*
classify.go - Legacy withdrawal classification

PURPOSE:
  Historical withdrawal rows were tagged with inconsistent free-text method
  labels ("Manual", "Deduction", "SUSU deduction", ...) instead of a proper
  enum. Classify maps such a row to CASH (money paid to the customer),
  PROFIT (company SUSU profit), or Unknown (belongs to another subsystem;
  ignore for SUSU purposes).

  This is a compatibility adapter for pre-existing rows only. Rows written
  by this engine persist an explicit subtype and bypass classification
  entirely (see EffectiveSubtype).

CONFLICT RULE:
  When a row carries both cash-like and profit-like signals, profit wins if
  the label or note explicitly says "profit" or "deduction"; otherwise cash.
  This mirrors how the historical data was reclassified and must not be
  extended to new rows.
*/
package susu

import "strings"

// cashLabels and profitLabels are the fixed legacy method vocabularies.
var cashLabels = map[string]bool{
	"susu withdrawal": true,
	"manual":          true,
	"cash":            true,
	"withdrawal":      true,
	"susu cash":       true,
}

var profitLabels = map[string]bool{
	"susu profit":    true,
	"deduction":      true,
	"susu deduction": true,
}

// Classify determines the withdrawal subtype of a raw ledger row from its
// legacy method label and note. Deterministic and side-effect-free; safe to
// call for previews, commits, and historical aggregation alike.
//
// Only withdrawal rows classify; anything else returns SubtypeUnknown.
func Classify(kind TransactionKind, method, note string) WithdrawalSubtype {
	if kind != KindWithdrawal {
		return SubtypeUnknown
	}

	methodLC := strings.ToLower(strings.TrimSpace(method))
	noteLC := strings.ToLower(strings.TrimSpace(note))

	isCash := cashLabels[methodLC]
	isProfit := profitLabels[methodLC]

	// Note-based signals are additive: they can only turn flags on.
	if strings.Contains(noteLC, "susu") {
		if strings.Contains(noteLC, "profit") || strings.Contains(noteLC, "deduction") {
			isProfit = true
		}
		if strings.Contains(noteLC, "withdraw") || strings.Contains(noteLC, "cash") ||
			strings.Contains(noteLC, "payout") {
			isCash = true
		}
	}

	switch {
	case isProfit && !isCash:
		return SubtypeProfit
	case isCash && !isProfit:
		return SubtypeCash
	case isCash && isProfit:
		// Conflicting signals from old freeform data: prioritise profit
		// when an explicit profit/deduction token appears.
		if strings.Contains(methodLC, "profit") || strings.Contains(methodLC, "deduction") ||
			strings.Contains(noteLC, "profit") || strings.Contains(noteLC, "deduction") {
			return SubtypeProfit
		}
		return SubtypeCash
	}
	return SubtypeUnknown
}

// EffectiveSubtype resolves a transaction's withdrawal subtype: the stored
// enum wins for rows written by this engine; legacy rows with a blank
// subtype fall back to free-text classification.
func EffectiveSubtype(t Transaction) WithdrawalSubtype {
	if t.Kind != KindWithdrawal {
		return SubtypeUnknown
	}
	if t.Subtype == SubtypeCash || t.Subtype == SubtypeProfit {
		return t.Subtype
	}
	return Classify(t.Kind, t.Method, t.Note)
}
