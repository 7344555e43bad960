/*
aggregate.go - Cross-customer rollups and dashboard metrics

PURPOSE:
  Scans the ledger to answer the reporting questions the dashboards ask:

    - Window-filtered totals (global and per branch)
    - Fixed snapshot metrics for today / this week / this month, computed
      independently of any user-supplied window
    - Active vs dormant customers (dormant = no contribution for more than
      14 days)
    - Expected daily collection and today's performance against it
    - Searchable, paginated per-customer detail rows
    - Newest-first withdrawal history feed

DETERMINISM:
  "Now" is a parameter, captured once by the caller and threaded through.
  Re-running any aggregation with identical inputs yields identical output;
  reads never mutate anything.
*/
package susu

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dormancyDays is the threshold beyond which a customer counts as dormant.
// The comparison is strict: a last contribution exactly 14 days ago is
// still active.
const dormancyDays = 14

// Aggregator computes read-only rollups over a Store.
type Aggregator struct {
	Store    Store
	Currency Currency
}

func NewAggregator(store Store) *Aggregator {
	return &Aggregator{Store: store, Currency: DefaultCurrency}
}

// Scope narrows an aggregation to a branch and/or manager. Zero values
// (or the literal "all") mean no filter.
type Scope struct {
	Branch    string
	ManagerID string
}

func (s Scope) customerFilter() CustomerFilter {
	var f CustomerFilter
	if s.Branch != "" && !strings.EqualFold(s.Branch, "all") {
		f.Branch = s.Branch
	}
	if s.ManagerID != "" && !strings.EqualFold(s.ManagerID, "all") {
		f.ManagerID = s.ManagerID
	}
	return f
}

// =============================================================================
// WINDOW PRESETS
// =============================================================================

// ResolveWindow turns a range preset (today | week | month | all | custom)
// into a concrete window plus a display label. Invalid custom bounds fall
// back to the month preset, matching the dashboard's behavior.
func ResolveWindow(preset, start, end string, now time.Time) (Window, string) {
	today := DateOf(now)

	switch strings.ToLower(preset) {
	case "today":
		return Window{From: today, To: today}, "Today"
	case "week":
		return Window{From: today.StartOfWeek(), To: today}, "This Week"
	case "month":
		return Window{From: today.StartOfMonth(), To: today}, "This Month"
	case "custom":
		from, okFrom := ParseDate(start)
		to, okTo := ParseDate(end)
		if okFrom && okTo && !from.After(to) {
			return Window{From: from, To: to}, fmt.Sprintf("%s to %s", from, to)
		}
		return Window{From: today.StartOfMonth(), To: today}, "This Month (invalid custom dates)"
	default:
		return AllTime, "All Time"
	}
}

// =============================================================================
// SCOPE SUMMARY
// =============================================================================

// PeriodTotals are the movement figures for one snapshot window.
type PeriodTotals struct {
	Contributions   decimal.Decimal
	CashWithdrawn   decimal.Decimal
	ProfitTaken     decimal.Decimal
	NetMovement     decimal.Decimal // contributions - cash - profit
	WithdrawalCount int             // cash legs only
}

// BranchRow is one line of the branch breakdown table. Available comes
// from the grouped totals, not from summing per-customer availables, so
// per-customer clamping cannot double-count.
type BranchRow struct {
	Branch        string
	Contributions decimal.Decimal
	CashWithdrawn decimal.Decimal
	ProfitTaken   decimal.Decimal
	Available     decimal.Decimal
}

// ScopeSummary is the dashboard rollup for a scope.
type ScopeSummary struct {
	Window      Window
	FilterLabel string

	// Window-filtered totals across the scope.
	Contributions decimal.Decimal
	CashWithdrawn decimal.Decimal
	ProfitTaken   decimal.Decimal
	Available     decimal.Decimal

	Branches []BranchRow

	// Fixed snapshots, independent of the user-supplied window.
	Today PeriodTotals
	Week  PeriodTotals
	Month PeriodTotals

	TotalCustomers   int
	ActiveCustomers  int
	DormantCustomers int

	ExpectedDaily          decimal.Decimal
	TodayCollectionPercent decimal.Decimal
}

// Summarize computes the rollup for a scope and window as of now.
func (a *Aggregator) Summarize(ctx context.Context, scope Scope, w Window, now time.Time) (ScopeSummary, error) {
	customers, err := a.Store.Customers(ctx, scope.customerFilter())
	if err != nil {
		return ScopeSummary{}, err
	}
	transactions, err := a.Store.Transactions(ctx, TransactionFilter{})
	if err != nil {
		return ScopeSummary{}, err
	}

	inScope := make(map[CustomerID]Customer, len(customers))
	for _, c := range customers {
		inScope[c.ID] = c
	}

	today := DateOf(now)
	weekStart := today.StartOfWeek()
	monthStart := today.StartOfMonth()

	summary := ScopeSummary{
		Window:        w,
		Contributions: decimal.Zero,
		CashWithdrawn: decimal.Zero,
		ProfitTaken:   decimal.Zero,
	}
	branches := make(map[string]*BranchRow)
	activity := make(map[CustomerID]*contributionTrack)

	for _, t := range transactions {
		owner, ok := inScope[t.CustomerID]
		if !ok || !t.Amount.IsPositive() {
			continue
		}
		d, dated := t.OccurredOn()

		switch t.Kind {
		case KindContribution:
			track := activity[t.CustomerID]
			if track == nil {
				track = &contributionTrack{}
				activity[t.CustomerID] = track
			}
			track.observe(t, d, dated)

			if dated {
				addSnapshot(&summary, d, today, weekStart, monthStart, t.Amount, KindContribution, SubtypeUnknown)
			}
			if w.includes(d, dated) {
				summary.Contributions = summary.Contributions.Add(t.Amount)
				row := branchRow(branches, owner.Branch)
				row.Contributions = row.Contributions.Add(t.Amount)
			}

		case KindWithdrawal:
			subtype := EffectiveSubtype(t)
			if subtype == SubtypeUnknown {
				continue // belongs to another subsystem
			}
			if dated {
				addSnapshot(&summary, d, today, weekStart, monthStart, t.Amount, KindWithdrawal, subtype)
			}
			if w.includes(d, dated) {
				row := branchRow(branches, owner.Branch)
				if subtype == SubtypeProfit {
					summary.ProfitTaken = summary.ProfitTaken.Add(t.Amount)
					row.ProfitTaken = row.ProfitTaken.Add(t.Amount)
				} else {
					summary.CashWithdrawn = summary.CashWithdrawn.Add(t.Amount)
					row.CashWithdrawn = row.CashWithdrawn.Add(t.Amount)
				}
			}
		}
	}

	summary.Available = summary.Contributions.Sub(summary.CashWithdrawn).Sub(summary.ProfitTaken)

	for _, row := range branches {
		row.Available = row.Contributions.Sub(row.CashWithdrawn).Sub(row.ProfitTaken)
		summary.Branches = append(summary.Branches, *row)
	}
	sort.Slice(summary.Branches, func(i, j int) bool {
		return strings.ToLower(summary.Branches[i].Branch) < strings.ToLower(summary.Branches[j].Branch)
	})

	// Dormancy and expected daily collection per customer in scope.
	threshold := today.AddDays(-dormancyDays)
	expected := decimal.Zero
	for _, c := range customers {
		track := activity[c.ID]
		if dormant(track, threshold) {
			summary.DormantCustomers++
		} else {
			summary.ActiveCustomers++
		}

		rate := expectedRate(c, track)
		if rate.IsPositive() {
			expected = expected.Add(rate)
		}
	}
	summary.TotalCustomers = len(customers)
	summary.ExpectedDaily = expected

	if expected.IsPositive() {
		summary.TodayCollectionPercent = summary.Today.Contributions.
			Div(expected).Mul(decimal.NewFromInt(100)).Round(1)
	} else {
		summary.TodayCollectionPercent = decimal.Zero
	}

	return summary, nil
}

// contributionTrack remembers a customer's latest contribution.
type contributionTrack struct {
	lastDate   Date
	hasDate    bool
	lastAmount decimal.Decimal
	lastAt     time.Time
}

func (c *contributionTrack) observe(t Transaction, d Date, dated bool) {
	if dated && (!c.hasDate || d.After(c.lastDate)) {
		c.lastDate = d
		c.hasDate = true
	}
	at := t.Timestamp
	if at.IsZero() {
		at = d.Time
	}
	if c.lastAt.IsZero() || at.After(c.lastAt) || at.Equal(c.lastAt) {
		c.lastAt = at
		c.lastAmount = t.Amount
	}
}

// dormant applies the strict threshold: active only when the latest
// contribution is on or after today-14d.
func dormant(track *contributionTrack, threshold Date) bool {
	if track == nil || !track.hasDate {
		return true
	}
	return track.lastDate.Before(threshold)
}

// expectedRate prefers the cached default rate, falling back to the most
// recent contribution amount as a rough estimate.
func expectedRate(c Customer, track *contributionTrack) decimal.Decimal {
	if c.DefaultRate.IsPositive() {
		return c.DefaultRate
	}
	if track != nil && track.lastAmount.IsPositive() {
		return track.lastAmount
	}
	return decimal.Zero
}

func addSnapshot(s *ScopeSummary, d, today, weekStart, monthStart Date, amount decimal.Decimal, kind TransactionKind, subtype WithdrawalSubtype) {
	apply := func(p *PeriodTotals) {
		if kind == KindContribution {
			p.Contributions = p.Contributions.Add(amount)
			p.NetMovement = p.NetMovement.Add(amount)
			return
		}
		p.NetMovement = p.NetMovement.Sub(amount)
		if subtype == SubtypeProfit {
			p.ProfitTaken = p.ProfitTaken.Add(amount)
		} else {
			p.CashWithdrawn = p.CashWithdrawn.Add(amount)
			p.WithdrawalCount++
		}
	}

	if d.Equal(today) {
		apply(&s.Today)
	}
	if !d.Before(weekStart) && !d.After(today) {
		apply(&s.Week)
	}
	if !d.Before(monthStart) && !d.After(today) {
		apply(&s.Month)
	}
}

func branchRow(rows map[string]*BranchRow, branch string) *BranchRow {
	if branch == "" {
		branch = "Unassigned"
	}
	row, ok := rows[branch]
	if !ok {
		row = &BranchRow{Branch: branch,
			Contributions: decimal.Zero, CashWithdrawn: decimal.Zero,
			ProfitTaken: decimal.Zero, Available: decimal.Zero}
		rows[branch] = row
	}
	return row
}

// =============================================================================
// CUSTOMER DETAIL ROWS
// =============================================================================

// CustomerRow is one line of the per-customer detail list.
type CustomerRow struct {
	Customer

	Contributions decimal.Decimal
	CashWithdrawn decimal.Decimal
	ProfitTaken   decimal.Decimal
	Available     decimal.Decimal // clamped at zero

	// RateHint is the most recent contribution amount, shown when no
	// default rate is stored.
	RateHint         decimal.Decimal
	LastContribution Date
	Dormant          bool
}

// CustomerPage is a paginated slice of detail rows plus overall totals
// computed across ALL matching customers, not just the current page.
type CustomerPage struct {
	Rows []CustomerRow

	Page       int
	PerPage    int
	TotalPages int
	Total      int
	StartIndex int // 1-based, 0 when empty
	EndIndex   int

	OverallCashWithdrawn decimal.Decimal
	OverallAvailable     decimal.Decimal
}

// DefaultPerPage matches the dashboard's page size.
const DefaultPerPage = 10

// CustomerRows builds the searchable, paginated customer list for a scope.
func (a *Aggregator) CustomerRows(ctx context.Context, scope Scope, search string, page, perPage int, w Window, now time.Time) (CustomerPage, error) {
	filter := scope.customerFilter()
	filter.Search = strings.TrimSpace(search)

	customers, err := a.Store.Customers(ctx, filter)
	if err != nil {
		return CustomerPage{}, err
	}
	transactions, err := a.Store.Transactions(ctx, TransactionFilter{})
	if err != nil {
		return CustomerPage{}, err
	}

	byCustomer := make(map[CustomerID][]Transaction)
	for _, t := range transactions {
		byCustomer[t.CustomerID] = append(byCustomer[t.CustomerID], t)
	}

	today := DateOf(now)
	threshold := today.AddDays(-dormancyDays)

	rows := make([]CustomerRow, 0, len(customers))
	overallCash := decimal.Zero
	overallAvailable := decimal.Zero

	for _, c := range customers {
		own := byCustomer[c.ID]
		snap := ComputeBalance(c.ID, own, w)

		track := &contributionTrack{}
		for _, t := range own {
			if t.Kind != KindContribution || !t.Amount.IsPositive() {
				continue
			}
			d, dated := t.OccurredOn()
			track.observe(t, d, dated)
		}

		row := CustomerRow{
			Customer:      c,
			Contributions: snap.TotalContributions,
			CashWithdrawn: snap.TotalCashWithdrawn,
			ProfitTaken:   snap.TotalProfitTaken,
			Available:     snap.Available,
			RateHint:      track.lastAmount,
			Dormant:       dormant(track, threshold),
		}
		if track.hasDate {
			row.LastContribution = track.lastDate
		}
		rows = append(rows, row)

		overallCash = overallCash.Add(snap.TotalCashWithdrawn)
		overallAvailable = overallAvailable.Add(snap.Available)
	}

	sort.Slice(rows, func(i, j int) bool {
		return strings.ToLower(rows[i].Name) < strings.ToLower(rows[j].Name)
	})

	return paginate(rows, page, perPage, overallCash, overallAvailable), nil
}

func paginate(rows []CustomerRow, page, perPage int, overallCash, overallAvailable decimal.Decimal) CustomerPage {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	total := len(rows)
	totalPages := (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * perPage
	end := start + perPage
	if end > total {
		end = total
	}

	result := CustomerPage{
		Rows:                 rows[start:end],
		Page:                 page,
		PerPage:              perPage,
		TotalPages:           totalPages,
		Total:                total,
		OverallCashWithdrawn: overallCash,
		OverallAvailable:     overallAvailable,
	}
	if total > 0 {
		result.StartIndex = start + 1
		result.EndIndex = end
	}
	return result
}

// =============================================================================
// CUSTOMER BALANCE
// =============================================================================

// CustomerBalance replays one customer's ledger into a snapshot.
func (a *Aggregator) CustomerBalance(ctx context.Context, id CustomerID, w Window) (BalanceSnapshot, error) {
	if _, err := a.Store.Customer(ctx, id); err != nil {
		return BalanceSnapshot{}, err
	}
	transactions, err := a.Store.Transactions(ctx, TransactionFilter{CustomerID: id})
	if err != nil {
		return BalanceSnapshot{}, err
	}
	return ComputeBalance(id, transactions, w), nil
}

// =============================================================================
// WITHDRAWAL HISTORY
// =============================================================================

// WithdrawalRecord is one entry of the history feed, annotated with its
// resolved subtype and a display method normalized to the canonical labels.
type WithdrawalRecord struct {
	Transaction

	ResolvedSubtype WithdrawalSubtype
	DisplayMethod   string
	CustomerName    string
	CustomerPhone   string
}

const (
	historyDefaultLimit = 50
	historyMaxLimit     = 200
)

// WithdrawalHistory returns recent SUSU withdrawals (cash and profit),
// newest first. customerID may be empty for a scope-wide feed. The limit
// is clamped to [1, 200], defaulting to 50 when non-positive.
func (a *Aggregator) WithdrawalHistory(ctx context.Context, customerID CustomerID, limit int) ([]WithdrawalRecord, error) {
	if limit <= 0 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	transactions, err := a.Store.Transactions(ctx, TransactionFilter{
		CustomerID:  customerID,
		Kind:        KindWithdrawal,
		NewestFirst: true,
	})
	if err != nil {
		return nil, err
	}

	names := make(map[CustomerID]Customer)
	if customers, err := a.Store.Customers(ctx, CustomerFilter{}); err == nil {
		for _, c := range customers {
			names[c.ID] = c
		}
	}

	records := make([]WithdrawalRecord, 0, limit)
	for _, t := range transactions {
		subtype := EffectiveSubtype(t)
		if subtype == SubtypeUnknown {
			continue
		}
		owner := names[t.CustomerID]
		records = append(records, WithdrawalRecord{
			Transaction:     t,
			ResolvedSubtype: subtype,
			DisplayMethod:   displayMethod(t, subtype),
			CustomerName:    owner.Name,
			CustomerPhone:   owner.Phone,
		})
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

// displayMethod keeps already-clean labels and rewrites legacy ones to the
// canonical form for the given subtype.
func displayMethod(t Transaction, subtype WithdrawalSubtype) string {
	methodLC := strings.ToLower(strings.TrimSpace(t.Method))
	if methodLC == strings.ToLower(MethodWithdrawal) || methodLC == strings.ToLower(MethodProfit) {
		return strings.TrimSpace(t.Method)
	}
	if subtype == SubtypeProfit {
		return MethodProfit
	}
	return MethodWithdrawal
}
