/*
Package sqlite provides a SQLite-backed implementation of susu.Store.

PURPOSE:
  Embedded persistence for single-node deployments. The same schema and
  query patterns apply to the Postgres implementation - only dialect
  differences.

KEY TABLES:
  transactions: Append-only ledger (contributions + withdrawal legs)
  customers:    Profiles with the cached daily rate

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch the transactions table. The only
  mutation anywhere is the customer rate refresh.

WAL MODE:
  SQLite is opened with WAL for better concurrency: multiple readers do
  not block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/susu.db")  // or ":memory:"
  if err != nil { log.Fatal(err) }
  defer store.Close()

SEE ALSO:
  - susu/store.go: Interface definition
  - store/postgres/postgres.go: Networked implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/susu-engine/susu"
)

// Store implements susu.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only ledger)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subtype TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		occurred_at TEXT NOT NULL DEFAULT '',
		date_string TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer
		ON transactions(customer_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_customer_kind
		ON transactions(customer_id, kind);
	CREATE INDEX IF NOT EXISTS idx_transactions_occurred
		ON transactions(occurred_at DESC);

	-- Customers (profiles + cached daily rate)
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL DEFAULT '',
		default_rate TEXT NOT NULL DEFAULT '0',
		rate_streak INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_customers_branch ON customers(branch);
	CREATE INDEX IF NOT EXISTS idx_customers_manager ON customers(manager_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// storeErr tags database failures as retryable store errors.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", susu.ErrStoreUnavailable, err)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (s *Store) AppendTransaction(ctx context.Context, t susu.Transaction) (susu.TransactionID, error) {
	if t.ID == "" {
		t.ID = susu.TransactionID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	occurredAt := ""
	if !t.Timestamp.IsZero() {
		occurredAt = t.Timestamp.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions
			(id, customer_id, kind, subtype, method, note, amount, occurred_at, date_string, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(t.ID), string(t.CustomerID), string(t.Kind), string(t.Subtype),
		t.Method, t.Note, t.Amount.String(), occurredAt, t.DateString,
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", storeErr(err)
	}
	return t.ID, nil
}

func (s *Store) Transactions(ctx context.Context, f susu.TransactionFilter) ([]susu.Transaction, error) {
	query := `
		SELECT id, customer_id, kind, subtype, method, note, amount, occurred_at, date_string, created_at
		FROM transactions`

	var conditions []string
	var args []any
	if f.CustomerID != "" {
		conditions = append(conditions, "customer_id = ?")
		args = append(args, string(f.CustomerID))
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Best-known time: precise timestamp, else legacy date string, else
	// creation time. RFC3339 and date-only strings sort consistently.
	order := "ASC"
	if f.NewestFirst {
		order = "DESC"
	}
	query += fmt.Sprintf(
		" ORDER BY COALESCE(NULLIF(occurred_at, ''), NULLIF(date_string, ''), created_at) %s", order)

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []susu.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTransaction(rows *sql.Rows) (susu.Transaction, error) {
	var t susu.Transaction
	var id, customerID, kind, subtype, amount, occurredAt, createdAt string

	err := rows.Scan(&id, &customerID, &kind, &subtype, &t.Method, &t.Note,
		&amount, &occurredAt, &t.DateString, &createdAt)
	if err != nil {
		return susu.Transaction{}, err
	}

	t.ID = susu.TransactionID(id)
	t.CustomerID = susu.CustomerID(customerID)
	t.Kind = susu.TransactionKind(kind)
	t.Subtype = susu.WithdrawalSubtype(subtype)

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return susu.Transaction{}, err
	}
	if occurredAt != "" {
		if ts, err := time.Parse(time.RFC3339, occurredAt); err == nil {
			t.Timestamp = ts
		}
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		t.CreatedAt = ts
	}
	return t, nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

func (s *Store) Customer(ctx context.Context, id susu.CustomerID) (susu.Customer, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, location, branch, manager_id, agent_id, default_rate, rate_streak
		FROM customers WHERE id = ?`, string(id))

	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return susu.Customer{}, susu.ErrCustomerNotFound
	}
	if err != nil {
		return susu.Customer{}, storeErr(err)
	}
	return c, nil
}

func (s *Store) Customers(ctx context.Context, f susu.CustomerFilter) ([]susu.Customer, error) {
	query := `
		SELECT id, name, phone, location, branch, manager_id, agent_id, default_rate, rate_streak
		FROM customers`

	var conditions []string
	var args []any
	if f.Branch != "" {
		conditions = append(conditions, "branch = ?")
		args = append(args, f.Branch)
	}
	if f.ManagerID != "" {
		conditions = append(conditions, "manager_id = ?")
		args = append(args, f.ManagerID)
	}
	if f.Search != "" {
		conditions = append(conditions, "(name LIKE ? COLLATE NOCASE OR phone LIKE ? COLLATE NOCASE)")
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var result []susu.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, storeErr(err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (susu.Customer, error) {
	var c susu.Customer
	var id, rate string

	err := row.Scan(&id, &c.Name, &c.Phone, &c.Location, &c.Branch,
		&c.ManagerID, &c.AgentID, &rate, &c.RateStreak)
	if err != nil {
		return susu.Customer{}, err
	}

	c.ID = susu.CustomerID(id)
	c.DefaultRate, err = decimal.NewFromString(rate)
	if err != nil {
		return susu.Customer{}, err
	}
	return c, nil
}

func (s *Store) PutCustomer(ctx context.Context, c susu.Customer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, location, branch, manager_id, agent_id, default_rate, rate_streak)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			phone = excluded.phone,
			location = excluded.location,
			branch = excluded.branch,
			manager_id = excluded.manager_id,
			agent_id = excluded.agent_id,
			default_rate = excluded.default_rate,
			rate_streak = excluded.rate_streak`,
		string(c.ID), c.Name, c.Phone, c.Location, c.Branch,
		c.ManagerID, c.AgentID, c.DefaultRate.String(), c.RateStreak,
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) UpdateCustomerRate(ctx context.Context, id susu.CustomerID, rate decimal.Decimal, streak int) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE customers SET default_rate = ?, rate_streak = ? WHERE id = ?`,
		rate.String(), streak, string(id))
	if err != nil {
		return storeErr(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		return susu.ErrCustomerNotFound
	}
	return nil
}
