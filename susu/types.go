/*
Package susu provides the core SUSU (rotating savings) ledger engine.

PURPOSE:
  This package contains the domain types and algorithms for managing SUSU
  customer accounts: classifying legacy withdrawal records, inferring a
  customer's implicit daily contribution rate, pricing withdrawals in
  30-day profit boxes, and aggregating balances across customers, branches,
  and time windows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Transaction: An immutable ledger entry (contribution or withdrawal)
  - Customer: Account holder with a cached daily rate
  - WithdrawalRequest: Ephemeral input to preview/commit
  - Currency: Display configuration (code + symbol), never math

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money, never float64
  2. Replay: Balances are always recomputed from transactions, never cached
  3. Explicit subtype: New withdrawal rows persist CASH/PROFIT; only legacy
     rows with a blank subtype flow through the free-text classifier

SEE ALSO:
  - classify.go: Legacy withdrawal classification
  - rate.go: Daily rate inference (GCD over contributions)
  - calculator.go: Profit box pricing
  - engine.go: Preview/commit pipeline
*/
package susu

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CustomerID string
type TransactionID string

// =============================================================================
// TRANSACTION - Immutable ledger entry
// =============================================================================

type TransactionKind string

const (
	KindContribution TransactionKind = "CONTRIBUTION" // daily SUSU deposit
	KindWithdrawal   TransactionKind = "WITHDRAWAL"   // money leaving the account
)

// WithdrawalSubtype distinguishes the two legs of a SUSU withdrawal.
// SubtypeUnknown means "not SUSU-related, ignore" when produced by the
// classifier, and "not yet classified" when read from a legacy row.
type WithdrawalSubtype string

const (
	SubtypeCash    WithdrawalSubtype = "CASH"   // money paid to the customer
	SubtypeProfit  WithdrawalSubtype = "PROFIT" // company SUSU profit
	SubtypeUnknown WithdrawalSubtype = ""
)

// Canonical method labels written by this engine. Legacy rows carry
// free-text variants ("Manual", "Deduction", ...) handled by classify.go.
const (
	MethodWithdrawal = "SUSU Withdrawal"
	MethodProfit     = "SUSU Profit"
)

type Transaction struct {
	ID         TransactionID
	CustomerID CustomerID
	Kind       TransactionKind

	// Subtype is persisted for rows written by this engine. Legacy rows
	// leave it blank and are classified from Method/Note at read time.
	Subtype WithdrawalSubtype

	Method string
	Note   string
	Amount decimal.Decimal

	// Timestamp is the precise moment the transaction occurred, when known.
	// DateString is the legacy date-only field ("2006-01-02"); some old rows
	// carry only this. Date resolution prefers Timestamp (see OccurredOn).
	Timestamp  time.Time
	DateString string

	CreatedAt time.Time
}

// OccurredOn resolves the calendar date of a transaction: the precise
// timestamp wins, else the legacy date string is parsed. Rows with neither
// are excluded from window-filtered aggregates but still count all-time.
func (t Transaction) OccurredOn() (Date, bool) {
	if !t.Timestamp.IsZero() {
		return DateOf(t.Timestamp), true
	}
	if d, ok := ParseDate(t.DateString); ok {
		return d, true
	}
	return Date{}, false
}

// =============================================================================
// CUSTOMER - Account holder (subset relevant to SUSU)
// =============================================================================

type Customer struct {
	ID       CustomerID
	Name     string
	Phone    string
	Location string

	// Grouping for branch/manager rollups.
	Branch    string
	ManagerID string
	AgentID   string

	// DefaultRate is the last known daily contribution rate. Zero means
	// "not yet known"; the engine overwrites it after every successful
	// withdrawal. RateStreak is an informational confidence counter.
	DefaultRate decimal.Decimal
	RateStreak  int
}

// =============================================================================
// WITHDRAWAL REQUEST - Ephemeral input, never persisted as such
// =============================================================================

type WithdrawalRequest struct {
	CustomerID CustomerID
	Amount     decimal.Decimal

	// ManualRate overrides both the cached default rate and inference.
	// Zero means "not provided".
	ManualRate decimal.Decimal

	Note string

	// OccurredOn overrides the transaction date; zero means "now".
	OccurredOn Date

	// ConfirmedContact attests the operator spoke to the customer.
	// Required for commit, ignored for preview.
	ConfirmedContact bool
}

// =============================================================================
// CURRENCY - Display configuration only
// =============================================================================

type Currency struct {
	Code   string
	Symbol string
}

// DefaultCurrency matches the deployments this engine was built for.
var DefaultCurrency = Currency{Code: "GHS", Symbol: "GH₵"}

// Format renders an amount for user-facing messages and logs.
func (c Currency) Format(amount decimal.Decimal) string {
	return c.Symbol + amount.StringFixed(2)
}
