/*
engine.go - Withdrawal preview/commit pipeline

PURPOSE:
  Wires classification, rate inference, pricing, and the two-leg write into
  the two operations the outside world calls:

    Preview: read-only quote with explanation log (advisory)
    Commit:  cash leg + profit leg + rate cache refresh (authoritative)

CONCURRENCY:
  The backing stores have no multi-row transactions for this flow, so the
  read-compute-write cycle of a commit is serialized per customer with a
  keyed in-process mutex. Two concurrent commits for the same customer can
  no longer both pass the feasibility check against the same stale balance.

PARTIAL COMMITS:
  If the cash leg lands and the profit leg fails, the commit returns a
  *PartialCommitError carrying the cash transaction id. Nothing is rolled
  back; reconciliation is an operational concern.
*/
package susu

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Engine exposes the SUSU withdrawal operations over a Store.
type Engine struct {
	Store    Store
	Currency Currency

	// Now is captured once per operation and threaded through; tests
	// override it for deterministic dates.
	Now func() time.Time

	mu    sync.Mutex
	locks map[CustomerID]*sync.Mutex
}

func NewEngine(store Store) *Engine {
	return &Engine{
		Store:    store,
		Currency: DefaultCurrency,
		Now:      time.Now,
		locks:    make(map[CustomerID]*sync.Mutex),
	}
}

// customerLock returns the commit mutex for a customer, creating it on
// first use. Locks are never removed; the set of active customers is small.
func (e *Engine) customerLock(id CustomerID) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// =============================================================================
// PREVIEW - Read-only quote
// =============================================================================

// PreviewResult is the advisory quote shown before any money moves.
type PreviewResult struct {
	WithdrawAmount decimal.Decimal
	CompanyProfit  decimal.Decimal
	ProfitBoxes    int64
	BalanceAfter   decimal.Decimal
	Rate           decimal.Decimal
	Log            []string
}

// PreviewWithdrawal prices a withdrawal without touching the ledger.
// ConfirmedContact is not required for previews.
func (e *Engine) PreviewWithdrawal(ctx context.Context, req WithdrawalRequest) (PreviewResult, error) {
	quote, logs, err := e.evaluate(ctx, req)
	if err != nil {
		return PreviewResult{Log: logs}, err
	}
	return PreviewResult{
		WithdrawAmount: quote.Requested,
		CompanyProfit:  quote.ProfitAmount,
		ProfitBoxes:    quote.ProfitBoxes,
		BalanceAfter:   quote.BalanceAfter,
		Rate:           quote.Rate,
		Log:            logs,
	}, nil
}

// evaluate runs the pure pipeline: fresh read, balance replay, rate
// selection, pricing. Shared by preview and commit.
func (e *Engine) evaluate(ctx context.Context, req WithdrawalRequest) (Quote, []string, error) {
	var logs []string

	if !req.Amount.IsPositive() {
		return Quote{}, logs, ErrInvalidAmount
	}
	if !req.ManualRate.IsZero() && !req.ManualRate.IsPositive() {
		return Quote{}, logs, ErrInvalidAmount
	}

	customer, err := e.Store.Customer(ctx, req.CustomerID)
	if err != nil {
		return Quote{}, logs, err
	}

	logs = append(logs, fmt.Sprintf("Requested withdrawal: %s", e.Currency.Format(req.Amount)))

	transactions, err := e.Store.Transactions(ctx, TransactionFilter{CustomerID: req.CustomerID})
	if err != nil {
		return Quote{}, logs, err
	}
	logs = append(logs, fmt.Sprintf("Loaded %d total payments for this customer.", len(transactions)))

	balance := ComputeBalance(req.CustomerID, transactions, AllTime)
	logs = append(logs,
		fmt.Sprintf("Total SUSU contributed so far: %s", e.Currency.Format(balance.TotalContributions)),
		fmt.Sprintf("Total withdrawn to customer so far: %s", e.Currency.Format(balance.TotalCashWithdrawn)),
		fmt.Sprintf("Total SUSU profit taken so far: %s", e.Currency.Format(balance.TotalProfitTaken)),
		fmt.Sprintf("Available SUSU balance before this withdrawal: %s", e.Currency.Format(balance.Available)),
	)

	var rate decimal.Decimal
	if req.ManualRate.IsPositive() {
		rate = req.ManualRate
		logs = append(logs, fmt.Sprintf("Using operator override rate: %s", e.Currency.Format(rate)))
	} else {
		inferred, rateLogs, ok := InferRate(customer, transactions, e.Currency)
		logs = append(logs, rateLogs...)
		if !ok {
			return Quote{}, logs, ErrNoRate
		}
		rate = inferred
	}

	quote, calcLogs, err := Calculate(req.Amount, rate, balance.Available, e.Currency)
	logs = append(logs, calcLogs...)
	if err != nil {
		return Quote{}, logs, err
	}
	return quote, logs, nil
}

// =============================================================================
// COMMIT - Two-leg write + rate cache refresh
// =============================================================================

// CommitResult reports a recorded withdrawal. Balance is recomputed from a
// fresh ledger read, never by incrementing cached counters.
type CommitResult struct {
	CashTransactionID   TransactionID
	ProfitTransactionID TransactionID
	Rate                decimal.Decimal
	ProfitBoxes         int64
	ProfitAmount        decimal.Decimal
	TotalDeducted       decimal.Decimal
	Balance             BalanceSnapshot
	Log                 []string
}

// CommitWithdrawal records an approved withdrawal: the cash leg, the profit
// leg (when the fee is positive), and the customer's cached rate. The
// read-compute-write cycle is serialized per customer.
func (e *Engine) CommitWithdrawal(ctx context.Context, req WithdrawalRequest) (CommitResult, error) {
	if !req.ConfirmedContact {
		return CommitResult{}, ErrConfirmationRequired
	}

	lock := e.customerLock(req.CustomerID)
	lock.Lock()
	defer lock.Unlock()

	// Fresh read inside the lock; a preview taken moments ago may be stale.
	quote, logs, err := e.evaluate(ctx, req)
	if err != nil {
		return CommitResult{Log: logs}, err
	}

	now := e.Now().UTC()
	occurred := req.OccurredOn
	timestamp := now
	if occurred.IsZero() {
		occurred = DateOf(now)
	} else {
		timestamp = occurred.Time
	}

	note := req.Note
	if note == "" {
		note = fmt.Sprintf("SUSU withdrawal (auto-rate %s)", e.Currency.Format(quote.Rate))
	}

	cashID, err := e.Store.AppendTransaction(ctx, Transaction{
		CustomerID: req.CustomerID,
		Kind:       KindWithdrawal,
		Subtype:    SubtypeCash,
		Method:     MethodWithdrawal,
		Note:       note,
		Amount:     quote.Requested,
		Timestamp:  timestamp,
		DateString: occurred.String(),
		CreatedAt:  now,
	})
	if err != nil {
		return CommitResult{Log: logs}, err
	}
	logs = append(logs, fmt.Sprintf("Recorded SUSU Withdrawal payment of %s.", e.Currency.Format(quote.Requested)))

	result := CommitResult{
		CashTransactionID: cashID,
		Rate:              quote.Rate,
		ProfitBoxes:       quote.ProfitBoxes,
		ProfitAmount:      quote.ProfitAmount,
		TotalDeducted:     quote.TotalDeducted,
	}

	if quote.ProfitAmount.IsPositive() {
		profitID, err := e.Store.AppendTransaction(ctx, Transaction{
			CustomerID: req.CustomerID,
			Kind:       KindWithdrawal,
			Subtype:    SubtypeProfit,
			Method:     MethodProfit,
			Note:       "Auto SUSU profit collection based on pages crossed.",
			Amount:     quote.ProfitAmount,
			Timestamp:  timestamp,
			DateString: occurred.String(),
			CreatedAt:  now,
		})
		if err != nil {
			// Cash leg is already in the ledger; surface the gap instead
			// of pretending the commit succeeded or failed cleanly.
			result.Log = logs
			return result, &PartialCommitError{
				CashTransactionID: cashID,
				ProfitAmount:      quote.ProfitAmount,
				Err:               err,
			}
		}
		result.ProfitTransactionID = profitID
		logs = append(logs, fmt.Sprintf("Recorded SUSU Profit payment of %s.", e.Currency.Format(quote.ProfitAmount)))
	}

	// Lock in the rate for faster future withdrawals. Overwritten every
	// time, whether it came from an override or inference.
	if err := e.Store.UpdateCustomerRate(ctx, req.CustomerID, quote.Rate, confirmedRateStreak); err != nil {
		result.Log = logs
		return result, err
	}
	logs = append(logs, fmt.Sprintf("Updated customer default SUSU rate to %s.", e.Currency.Format(quote.Rate)))

	transactions, err := e.Store.Transactions(ctx, TransactionFilter{CustomerID: req.CustomerID})
	if err != nil {
		result.Log = logs
		return result, err
	}
	result.Balance = ComputeBalance(req.CustomerID, transactions, AllTime)
	result.Log = logs
	return result, nil
}

// confirmedRateStreak is the confidence counter written alongside every
// rate refresh.
const confirmedRateStreak = 3
