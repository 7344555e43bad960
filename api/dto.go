/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupled from the
  domain types so the wire contract can evolve independently.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry validator tags and are checked with a shared
  validator instance before any domain logic runs.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/susu-engine/susu"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// WithdrawalRequestDTO is the body for both preview and commit.
// ConfirmedContact is only enforced on commit.
type WithdrawalRequestDTO struct {
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	ManualRate       float64 `json:"manual_rate,omitempty" validate:"gte=0"`
	Note             string  `json:"note,omitempty" validate:"max=500"`
	Date             string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ConfirmedContact bool    `json:"confirmed_contact,omitempty"`
}

// UpsertCustomerRequest creates or replaces a customer profile.
type UpsertCustomerRequest struct {
	ID          string  `json:"id" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=200"`
	Phone       string  `json:"phone,omitempty" validate:"max=32"`
	Location    string  `json:"location,omitempty" validate:"max=200"`
	Branch      string  `json:"branch,omitempty" validate:"max=100"`
	ManagerID   string  `json:"manager_id,omitempty" validate:"max=64"`
	AgentID     string  `json:"agent_id,omitempty" validate:"max=64"`
	DefaultRate float64 `json:"default_rate,omitempty" validate:"gte=0"`
}

// ContributionRequest records a daily SUSU contribution.
type ContributionRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Note   string  `json:"note,omitempty" validate:"max=500"`
	Date   string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// PreviewDTO is the soft-failure preview envelope. When pricing fails the
// handler still answers 200 with OK=false so operator UIs can fall back to
// manual entry.
type PreviewDTO struct {
	OK             bool     `json:"ok"`
	WithdrawAmount float64  `json:"withdraw_amount,omitempty"`
	CompanyProfit  float64  `json:"company_profit,omitempty"`
	ProfitBoxes    int64    `json:"profit_boxes,omitempty"`
	BalanceAfter   float64  `json:"balance_after,omitempty"`
	Rate           float64  `json:"rate,omitempty"`
	Error          string   `json:"error,omitempty"`
	Log            []string `json:"log,omitempty"`
}

// CommitDTO reports a recorded withdrawal.
type CommitDTO struct {
	CashTransactionID   string     `json:"cash_transaction_id"`
	ProfitTransactionID string     `json:"profit_transaction_id,omitempty"`
	Rate                float64    `json:"rate"`
	ProfitBoxes         int64      `json:"profit_boxes"`
	ProfitAmount        float64    `json:"profit_amount"`
	TotalDeducted       float64    `json:"total_deducted"`
	Balance             BalanceDTO `json:"balance"`
	Log                 []string   `json:"log,omitempty"`
}

// BalanceDTO is a point-in-time balance snapshot.
type BalanceDTO struct {
	CustomerID         string  `json:"customer_id"`
	TotalContributions float64 `json:"total_contributions"`
	TotalCashWithdrawn float64 `json:"total_cash_withdrawn"`
	TotalProfitTaken   float64 `json:"total_profit_taken"`
	Available          float64 `json:"available"`
}

// CustomerRowDTO is one row of the customer listing.
type CustomerRowDTO struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Phone            string  `json:"phone,omitempty"`
	Location         string  `json:"location,omitempty"`
	Branch           string  `json:"branch,omitempty"`
	TotalSaved       float64 `json:"total_saved"`
	TotalWithdrawn   float64 `json:"total_withdrawn"`
	Available        float64 `json:"available"`
	RateHint         float64 `json:"rate_hint,omitempty"`
	LastContribution string  `json:"last_contribution,omitempty"`
	Dormant          bool    `json:"dormant"`
}

// CustomerPageDTO wraps a page of customer rows with overall totals.
type CustomerPageDTO struct {
	Customers            []CustomerRowDTO `json:"customers"`
	Page                 int              `json:"page"`
	TotalPages           int              `json:"total_pages"`
	TotalCount           int              `json:"total_count"`
	StartIndex           int              `json:"start_index"`
	EndIndex             int              `json:"end_index"`
	OverallCashWithdrawn float64          `json:"overall_cash_withdrawn"`
	OverallAvailable     float64          `json:"overall_available"`
}

// PeriodTotalsDTO mirrors susu.PeriodTotals.
type PeriodTotalsDTO struct {
	Contributions   float64 `json:"contributions"`
	CashWithdrawn   float64 `json:"cash_withdrawn"`
	ProfitTaken     float64 `json:"profit_taken"`
	NetMovement     float64 `json:"net_movement"`
	WithdrawalCount int     `json:"withdrawal_count"`
}

// BranchRowDTO is a per-branch totals row in the summary.
type BranchRowDTO struct {
	Branch        string  `json:"branch"`
	Contributions float64 `json:"contributions"`
	CashWithdrawn float64 `json:"cash_withdrawn"`
	ProfitTaken   float64 `json:"profit_taken"`
	Available     float64 `json:"available"`
}

// SummaryDTO is the scope dashboard payload. The top-level totals are
// filtered by the requested window; Today/Week/Month are fixed snapshots.
type SummaryDTO struct {
	FilterLabel string `json:"filter_label"`
	RangeLabel  string `json:"range_label"`

	Contributions float64 `json:"contributions"`
	CashWithdrawn float64 `json:"cash_withdrawn"`
	ProfitTaken   float64 `json:"profit_taken"`
	Available     float64 `json:"available"`

	Today PeriodTotalsDTO `json:"today"`
	Week  PeriodTotalsDTO `json:"week"`
	Month PeriodTotalsDTO `json:"month"`

	Branches []BranchRowDTO `json:"branches"`

	TotalCustomers   int `json:"total_customers"`
	ActiveCustomers  int `json:"active_customers"`
	DormantCustomers int `json:"dormant_customers"`

	ExpectedDaily          float64 `json:"expected_daily"`
	TodayCollectionPercent float64 `json:"today_collection_percent"`
}

// WithdrawalRecordDTO is one row of the withdrawal history feed.
type WithdrawalRecordDTO struct {
	ID            string  `json:"id"`
	CustomerID    string  `json:"customer_id"`
	CustomerName  string  `json:"customer_name,omitempty"`
	CustomerPhone string  `json:"customer_phone,omitempty"`
	Method        string  `json:"method"`
	Subtype       string  `json:"subtype"`
	Note          string  `json:"note,omitempty"`
	Amount        float64 `json:"amount"`
	Date          string  `json:"date,omitempty"`
}

// TransactionDTO is a recorded ledger row (contribution endpoint response).
type TransactionDTO struct {
	ID         string  `json:"id"`
	CustomerID string  `json:"customer_id"`
	Kind       string  `json:"kind"`
	Amount     float64 `json:"amount"`
	Date       string  `json:"date,omitempty"`
}

// CustomerDTO is a stored customer profile.
type CustomerDTO struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone,omitempty"`
	Location    string  `json:"location,omitempty"`
	Branch      string  `json:"branch,omitempty"`
	ManagerID   string  `json:"manager_id,omitempty"`
	AgentID     string  `json:"agent_id,omitempty"`
	DefaultRate float64 `json:"default_rate"`
	RateStreak  int     `json:"rate_streak"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toBalanceDTO(b susu.BalanceSnapshot) BalanceDTO {
	return BalanceDTO{
		CustomerID:         string(b.CustomerID),
		TotalContributions: b.TotalContributions.InexactFloat64(),
		TotalCashWithdrawn: b.TotalCashWithdrawn.InexactFloat64(),
		TotalProfitTaken:   b.TotalProfitTaken.InexactFloat64(),
		Available:          b.Available.InexactFloat64(),
	}
}

func toPeriodTotalsDTO(t susu.PeriodTotals) PeriodTotalsDTO {
	return PeriodTotalsDTO{
		Contributions:   t.Contributions.InexactFloat64(),
		CashWithdrawn:   t.CashWithdrawn.InexactFloat64(),
		ProfitTaken:     t.ProfitTaken.InexactFloat64(),
		NetMovement:     t.NetMovement.InexactFloat64(),
		WithdrawalCount: t.WithdrawalCount,
	}
}

func toCustomerDTO(c susu.Customer) CustomerDTO {
	return CustomerDTO{
		ID:          string(c.ID),
		Name:        c.Name,
		Phone:       c.Phone,
		Location:    c.Location,
		Branch:      c.Branch,
		ManagerID:   c.ManagerID,
		AgentID:     c.AgentID,
		DefaultRate: c.DefaultRate.InexactFloat64(),
		RateStreak:  c.RateStreak,
	}
}
