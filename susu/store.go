/*
store.go - Persistence interface for the SUSU ledger

PURPOSE:
  Defines the narrow contract between the engine and the database. Two
  logical surfaces, matching how the surrounding system consumes this core:

    Query:   Transactions, Customer, Customers
    Command: AppendTransaction, PutCustomer, UpdateCustomerRate

  The transaction log is append-only: there is no update or delete on
  ledger rows. The only customer mutation this engine performs is the
  cached-rate refresh after a successful withdrawal.

IMPLEMENTATIONS:
  - susu/store/memory.go:     In-memory, for tests and dev
  - store/sqlite/sqlite.go:   Embedded single-node deployments
  - store/postgres/postgres.go: Networked deployments (pgx)
*/
package susu

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionFilter narrows a ledger scan. Zero values mean "no filter".
type TransactionFilter struct {
	CustomerID CustomerID
	Kind       TransactionKind

	// NewestFirst orders by occurred date descending (history feeds).
	// Default order is occurred date ascending.
	NewestFirst bool

	// Limit caps the result set; zero means unlimited.
	Limit int
}

// CustomerFilter narrows a customer listing. Zero values mean "no filter".
type CustomerFilter struct {
	Branch    string
	ManagerID string

	// Search matches name or phone, case-insensitive substring.
	Search string

	Limit int
}

// Store handles persistence of ledger rows and customer profiles.
// Ledger rows are append-only; corrections happen via new rows.
type Store interface {
	// AppendTransaction persists a ledger row. The store assigns the id
	// when the row carries none.
	AppendTransaction(ctx context.Context, t Transaction) (TransactionID, error)

	// Transactions returns ledger rows matching the filter, ordered by
	// occurred date (ascending unless NewestFirst).
	Transactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)

	// Customer returns a customer profile or ErrCustomerNotFound.
	Customer(ctx context.Context, id CustomerID) (Customer, error)

	// Customers returns profiles matching the filter, ordered by name.
	Customers(ctx context.Context, f CustomerFilter) ([]Customer, error)

	// PutCustomer creates or replaces a customer profile. Onboarding is
	// out of scope for the engine; this exists for seeding and tests.
	PutCustomer(ctx context.Context, c Customer) error

	// UpdateCustomerRate overwrites the cached daily rate and confidence
	// streak. The engine calls this after every successful withdrawal.
	UpdateCustomerRate(ctx context.Context, id CustomerID, rate decimal.Decimal, streak int) error
}
