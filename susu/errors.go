/*
errors.go - Centralized error types for the SUSU engine

PURPOSE:
  All error types in one place. Classifier/inference/calculator failures are
  returned as typed errors so callers can render specific, actionable messages
  instead of a generic 500. Store I/O failures are surfaced as-is; this engine
  never retries internally.

ERROR CATEGORIES:
  1. Input errors   - bad amounts, missing confirmation
  2. Domain errors  - no rate, insufficient funds
  3. Commit errors  - partial two-leg writes
  4. Store errors   - database-level failures

USAGE:
  var insufficient *susu.InsufficientFundsError
  if errors.As(err, &insufficient) {
      // show insufficient.MinimumRequired to the operator
  }
*/
package susu

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidAmount is returned when a requested withdrawal or a manual
	// rate override is not a positive number.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrNoRate is returned when neither a cached default rate nor any
	// positive contribution history exists for the customer.
	ErrNoRate = errors.New("daily rate could not be determined")

	// ErrInsufficientFunds is returned when even the minimum one-box profit
	// fee cannot be covered by the available balance.
	ErrInsufficientFunds = errors.New("insufficient available balance")

	// ErrCustomerNotFound is returned when a customer id does not resolve.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrConfirmationRequired is returned when a commit is attempted without
	// the operator attesting they spoke to the customer.
	ErrConfirmationRequired = errors.New("confirm the customer was called before withdrawing")

	// ErrPartialCommit marks a two-leg write that recorded the cash leg but
	// failed the profit leg. The ledger holds a cash withdrawal with no
	// matching profit charge; reconciliation is an operational concern.
	ErrPartialCommit = errors.New("partial commit: cash leg recorded, profit leg failed")

	// ErrStoreUnavailable is returned when the underlying ledger read/write
	// failed at the I/O level. Retryable by the caller, not by this engine.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError details a balance shortage so the UI can state the
// minimum amount needed to cover the one-box floor fee.
type InsufficientFundsError struct {
	Available       decimal.Decimal
	Requested       decimal.Decimal
	MinimumRequired decimal.Decimal // requested + one box at the rate
	Shortfall       decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: available %s, requested %s, minimum required %s",
		e.Available.StringFixed(2), e.Requested.StringFixed(2), e.MinimumRequired.StringFixed(2))
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// PartialCommitError reports the accepted inconsistency window of the
// non-atomic two-leg write: the cash transaction that did land, and the
// store error that stopped the profit leg.
type PartialCommitError struct {
	CashTransactionID TransactionID
	ProfitAmount      decimal.Decimal
	Err               error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("cash leg %s recorded but profit leg (%s) failed: %v",
		e.CashTransactionID, e.ProfitAmount.StringFixed(2), e.Err)
}

func (e *PartialCommitError) Unwrap() []error { return []error{ErrPartialCommit, e.Err} }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid operator input
// rather than a system failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNoRate) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrConfirmationRequired)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
