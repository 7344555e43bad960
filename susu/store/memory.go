// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/susu-engine/susu"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	transactions []susu.Transaction
	customers    map[susu.CustomerID]susu.Customer
}

func NewMemory() *Memory {
	return &Memory{
		customers: make(map[susu.CustomerID]susu.Customer),
	}
}

func (m *Memory) AppendTransaction(_ context.Context, t susu.Transaction) (susu.TransactionID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t.ID == "" {
		t.ID = susu.TransactionID(uuid.NewString())
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	m.transactions = append(m.transactions, t)
	return t.ID, nil
}

func (m *Memory) Transactions(_ context.Context, f susu.TransactionFilter) ([]susu.Transaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []susu.Transaction
	for _, t := range m.transactions {
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		if f.Kind != "" && t.Kind != f.Kind {
			continue
		}
		result = append(result, t)
	}

	sort.SliceStable(result, func(i, j int) bool {
		a, b := sortKey(result[i]), sortKey(result[j])
		if f.NewestFirst {
			return a.After(b)
		}
		return a.Before(b)
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

// sortKey orders rows by their best-known time: the precise timestamp,
// else the legacy date string, else creation time.
func sortKey(t susu.Transaction) time.Time {
	if !t.Timestamp.IsZero() {
		return t.Timestamp
	}
	if d, ok := susu.ParseDate(t.DateString); ok {
		return d.Time
	}
	return t.CreatedAt
}

func (m *Memory) Customer(_ context.Context, id susu.CustomerID) (susu.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.customers[id]
	if !ok {
		return susu.Customer{}, susu.ErrCustomerNotFound
	}
	return c, nil
}

func (m *Memory) Customers(_ context.Context, f susu.CustomerFilter) ([]susu.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []susu.Customer
	for _, c := range m.customers {
		if f.Branch != "" && c.Branch != f.Branch {
			continue
		}
		if f.ManagerID != "" && c.ManagerID != f.ManagerID {
			continue
		}
		if f.Search != "" && !matchesSearch(c, f.Search) {
			continue
		}
		result = append(result, c)
	}

	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Name) < strings.ToLower(result[j].Name)
	})

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[:f.Limit]
	}
	return result, nil
}

func matchesSearch(c susu.Customer, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(c.Name), term) ||
		strings.Contains(strings.ToLower(c.Phone), term)
}

func (m *Memory) PutCustomer(_ context.Context, c susu.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *Memory) UpdateCustomerRate(_ context.Context, id susu.CustomerID, rate decimal.Decimal, streak int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.customers[id]
	if !ok {
		return susu.ErrCustomerNotFound
	}
	c.DefaultRate = rate
	c.RateStreak = streak
	m.customers[id] = c
	return nil
}
