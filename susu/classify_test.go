package susu_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/warp/susu-engine/susu"
)

// =============================================================================
// LEGACY METHOD LABEL TESTS
// =============================================================================

func TestClassify_MethodLabels(t *testing.T) {
	tests := []struct {
		method string
		want   susu.WithdrawalSubtype
	}{
		{"SUSU Withdrawal", susu.SubtypeCash},
		{"Manual", susu.SubtypeCash},
		{"cash", susu.SubtypeCash},
		{"Withdrawal", susu.SubtypeCash},
		{"susu cash", susu.SubtypeCash},
		{"SUSU Profit", susu.SubtypeProfit},
		{"Deduction", susu.SubtypeProfit},
		{"SUSU Deduction", susu.SubtypeProfit},
		{"MoMo Transfer", susu.SubtypeUnknown},
		{"loan repayment", susu.SubtypeUnknown},
		{"", susu.SubtypeUnknown},
	}

	for _, tt := range tests {
		got := susu.Classify(susu.KindWithdrawal, tt.method, "")
		if got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestClassify_LabelsAreCaseAndSpaceInsensitive(t *testing.T) {
	got := susu.Classify(susu.KindWithdrawal, "  SUSU WITHDRAWAL  ", "")
	if got != susu.SubtypeCash {
		t.Errorf("expected CASH for padded upper-case label, got %q", got)
	}
}

func TestClassify_ContributionsNeverClassify(t *testing.T) {
	got := susu.Classify(susu.KindContribution, "SUSU Withdrawal", "susu cash payout")
	if got != susu.SubtypeUnknown {
		t.Errorf("contributions must be Unknown, got %q", got)
	}
}

// =============================================================================
// NOTE SIGNAL TESTS
// =============================================================================

func TestClassify_NoteSignalsRequireSusuKeyword(t *testing.T) {
	// "profit" alone is not a signal; the note must mention susu.
	got := susu.Classify(susu.KindWithdrawal, "Transfer", "profit for the month")
	if got != susu.SubtypeUnknown {
		t.Errorf("note without susu keyword must not classify, got %q", got)
	}

	got = susu.Classify(susu.KindWithdrawal, "Transfer", "susu profit for the month")
	if got != susu.SubtypeProfit {
		t.Errorf("susu+profit note should classify PROFIT, got %q", got)
	}

	got = susu.Classify(susu.KindWithdrawal, "Transfer", "susu cash payout to customer")
	if got != susu.SubtypeCash {
		t.Errorf("susu+cash note should classify CASH, got %q", got)
	}
}

func TestClassify_ConflictPrefersExplicitProfit(t *testing.T) {
	// Method says cash, note says susu deduction: explicit profit token wins.
	got := susu.Classify(susu.KindWithdrawal, "Manual", "susu deduction taken")
	if got != susu.SubtypeProfit {
		t.Errorf("conflict with deduction token should be PROFIT, got %q", got)
	}

	// Cash label plus a susu withdrawal note: both flags cash-leaning, stays cash.
	got = susu.Classify(susu.KindWithdrawal, "Manual", "susu withdrawal for customer")
	if got != susu.SubtypeCash {
		t.Errorf("cash-only signals should be CASH, got %q", got)
	}
}

// =============================================================================
// EFFECTIVE SUBTYPE TESTS
// =============================================================================

func TestEffectiveSubtype_StoredEnumWins(t *testing.T) {
	// A row written by the engine carries PROFIT even under a cash-looking
	// method label; the stored enum must win.
	tx := susu.Transaction{
		Kind:    susu.KindWithdrawal,
		Subtype: susu.SubtypeProfit,
		Method:  "Manual",
		Amount:  decimal.NewFromInt(5),
	}
	if got := susu.EffectiveSubtype(tx); got != susu.SubtypeProfit {
		t.Errorf("stored subtype must win, got %q", got)
	}
}

func TestEffectiveSubtype_LegacyRowFallsBackToClassifier(t *testing.T) {
	tx := susu.Transaction{
		Kind:   susu.KindWithdrawal,
		Method: "SUSU Deduction",
		Amount: decimal.NewFromInt(5),
	}
	if got := susu.EffectiveSubtype(tx); got != susu.SubtypeProfit {
		t.Errorf("legacy row should classify PROFIT, got %q", got)
	}
}
