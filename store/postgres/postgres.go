/*
Package postgres provides a Postgres-backed implementation of susu.Store.

PURPOSE:
  Networked persistence for multi-node deployments, selected when
  DATABASE_URL is set. Mirrors the SQLite schema with dialect differences
  (placeholders, ILIKE, timestamptz).

SEE ALSO:
  - susu/store.go: Interface definition
  - store/sqlite/sqlite.go: Embedded implementation
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/susu-engine/susu"
)

// Store implements susu.Store using a pgx connection pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and runs the schema migration.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		subtype TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		note TEXT NOT NULL DEFAULT '',
		amount NUMERIC(14, 2) NOT NULL,
		occurred_at TIMESTAMPTZ,
		date_string TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_customer
		ON transactions(customer_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_customer_kind
		ON transactions(customer_id, kind);
	CREATE INDEX IF NOT EXISTS idx_transactions_occurred
		ON transactions(occurred_at DESC NULLS LAST);

	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		branch TEXT NOT NULL DEFAULT '',
		manager_id TEXT NOT NULL DEFAULT '',
		agent_id TEXT NOT NULL DEFAULT '',
		default_rate NUMERIC(14, 2) NOT NULL DEFAULT 0,
		rate_streak INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_customers_branch ON customers(branch);
	CREATE INDEX IF NOT EXISTS idx_customers_manager ON customers(manager_id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

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

	var occurredAt *time.Time
	if !t.Timestamp.IsZero() {
		ts := t.Timestamp.UTC()
		occurredAt = &ts
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions
			(id, customer_id, kind, subtype, method, note, amount, occurred_at, date_string, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(t.ID), string(t.CustomerID), string(t.Kind), string(t.Subtype),
		t.Method, t.Note, t.Amount.String(), occurredAt, t.DateString, t.CreatedAt.UTC(),
	)
	if err != nil {
		return "", storeErr(err)
	}
	return t.ID, nil
}

func (s *Store) Transactions(ctx context.Context, f susu.TransactionFilter) ([]susu.Transaction, error) {
	query := `
		SELECT id, customer_id, kind, subtype, method, note, amount::text, occurred_at, date_string, created_at
		FROM transactions`

	var conditions []string
	var args []any
	if f.CustomerID != "" {
		args = append(args, string(f.CustomerID))
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		conditions = append(conditions, fmt.Sprintf("kind = $%d", len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Best-known time: precise timestamp, else legacy date string, else
	// creation time.
	order := "ASC"
	if f.NewestFirst {
		order = "DESC"
	}
	query += fmt.Sprintf(` ORDER BY COALESCE(occurred_at,
		NULLIF(date_string, '')::timestamptz, created_at) %s`, order)

	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func scanTransaction(rows pgx.Rows) (susu.Transaction, error) {
	var t susu.Transaction
	var id, customerID, kind, subtype, amount string
	var occurredAt *time.Time

	err := rows.Scan(&id, &customerID, &kind, &subtype, &t.Method, &t.Note,
		&amount, &occurredAt, &t.DateString, &t.CreatedAt)
	if err != nil {
		return susu.Transaction{}, err
	}

	t.ID = susu.TransactionID(id)
	t.CustomerID = susu.CustomerID(customerID)
	t.Kind = susu.TransactionKind(kind)
	t.Subtype = susu.WithdrawalSubtype(subtype)
	if occurredAt != nil {
		t.Timestamp = *occurredAt
	}

	t.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return susu.Transaction{}, err
	}
	return t, nil
}

// =============================================================================
// CUSTOMERS
// =============================================================================

const customerColumns = `id, name, phone, location, branch, manager_id, agent_id, default_rate::text, rate_streak`

func (s *Store) Customer(ctx context.Context, id susu.CustomerID) (susu.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, string(id))

	c, err := scanCustomer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return susu.Customer{}, susu.ErrCustomerNotFound
	}
	if err != nil {
		return susu.Customer{}, storeErr(err)
	}
	return c, nil
}

func (s *Store) Customers(ctx context.Context, f susu.CustomerFilter) ([]susu.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`

	var conditions []string
	var args []any
	if f.Branch != "" {
		args = append(args, f.Branch)
		conditions = append(conditions, fmt.Sprintf("branch = $%d", len(args)))
	}
	if f.ManagerID != "" {
		args = append(args, f.ManagerID)
		conditions = append(conditions, fmt.Sprintf("manager_id = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d)", n, n))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY lower(name)"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

func scanCustomer(row pgx.Row) (susu.Customer, error) {
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
	_, err := s.pool.Exec(ctx, `
		INSERT INTO customers (id, name, phone, location, branch, manager_id, agent_id, default_rate, rate_streak)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			location = EXCLUDED.location,
			branch = EXCLUDED.branch,
			manager_id = EXCLUDED.manager_id,
			agent_id = EXCLUDED.agent_id,
			default_rate = EXCLUDED.default_rate,
			rate_streak = EXCLUDED.rate_streak`,
		string(c.ID), c.Name, c.Phone, c.Location, c.Branch,
		c.ManagerID, c.AgentID, c.DefaultRate.String(), c.RateStreak,
	)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (s *Store) UpdateCustomerRate(ctx context.Context, id susu.CustomerID, rate decimal.Decimal, streak int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE customers SET default_rate = $1, rate_streak = $2 WHERE id = $3`,
		rate.String(), streak, string(id))
	if err != nil {
		return storeErr(err)
	}
	if tag.RowsAffected() == 0 {
		return susu.ErrCustomerNotFound
	}
	return nil
}
