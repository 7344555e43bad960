package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/susu-engine/store/sqlite"
	"github.com/warp/susu-engine/susu"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestAppendAndQueryTransactions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Rows arrive out of order across the three date sources.
	_, err := store.AppendTransaction(ctx, susu.Transaction{
		CustomerID: "c1", Kind: susu.KindContribution,
		Amount:     decimal.NewFromInt(10),
		Timestamp:  time.Date(2025, time.June, 3, 9, 0, 0, 0, time.UTC),
		DateString: "2025-06-03",
	})
	require.NoError(t, err)

	_, err = store.AppendTransaction(ctx, susu.Transaction{
		CustomerID: "c1", Kind: susu.KindContribution,
		Amount:     decimal.NewFromInt(5),
		DateString: "2025-06-01", // legacy row: date string only
	})
	require.NoError(t, err)

	_, err = store.AppendTransaction(ctx, susu.Transaction{
		CustomerID: "c2", Kind: susu.KindWithdrawal,
		Subtype: susu.SubtypeCash, Method: susu.MethodWithdrawal,
		Amount:     decimal.NewFromInt(7),
		DateString: "2025-06-02",
	})
	require.NoError(t, err)

	// Customer filter + chronological order by best-known date.
	txs, err := store.Transactions(ctx, susu.TransactionFilter{CustomerID: "c1"})
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(5)), "date-string row sorts first")
	assert.True(t, txs[1].Amount.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "2025-06-01", txs[0].DateString)
	assert.False(t, txs[1].Timestamp.IsZero(), "timestamp round-trips")

	// Kind filter + newest first + limit.
	txs, err = store.Transactions(ctx, susu.TransactionFilter{
		Kind: susu.KindContribution, NewestFirst: true, Limit: 1,
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(10)))
}

func TestAppendTransaction_AssignsID(t *testing.T) {
	store := newTestStore(t)

	id, err := store.AppendTransaction(context.Background(), susu.Transaction{
		CustomerID: "c1", Kind: susu.KindContribution, Amount: decimal.NewFromInt(5),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
}

func TestCustomerRoundTripAndUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	customer := susu.Customer{
		ID: "c1", Name: "Ama Mensah", Phone: "0244000001",
		Branch: "Accra", DefaultRate: decimal.NewFromFloat(7.5), RateStreak: 2,
	}
	require.NoError(t, store.PutCustomer(ctx, customer))

	got, err := store.Customer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", got.Name)
	assert.True(t, got.DefaultRate.Equal(decimal.NewFromFloat(7.5)))
	assert.Equal(t, 2, got.RateStreak)

	// Second put replaces in place.
	customer.Branch = "Tema"
	require.NoError(t, store.PutCustomer(ctx, customer))
	got, err = store.Customer(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Tema", got.Branch)

	_, err = store.Customer(ctx, "ghost")
	assert.ErrorIs(t, err, susu.ErrCustomerNotFound)
}

func TestCustomersFilterAndSearch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCustomer(ctx, susu.Customer{
		ID: "c1", Name: "Ama Mensah", Phone: "0244000001", Branch: "Accra"}))
	require.NoError(t, store.PutCustomer(ctx, susu.Customer{
		ID: "c2", Name: "Kofi Boateng", Phone: "0200111222", Branch: "Kumasi"}))

	customers, err := store.Customers(ctx, susu.CustomerFilter{Branch: "Accra"})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Ama Mensah", customers[0].Name)

	// Case-insensitive name search.
	customers, err = store.Customers(ctx, susu.CustomerFilter{Search: "KOFI"})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "Kofi Boateng", customers[0].Name)

	// Phone fragment search.
	customers, err = store.Customers(ctx, susu.CustomerFilter{Search: "0244"})
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, susu.CustomerID("c1"), customers[0].ID)
}

func TestUpdateCustomerRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutCustomer(ctx, susu.Customer{ID: "c1", Name: "Ama"}))

	err := store.UpdateCustomerRate(ctx, "c1", decimal.NewFromInt(5), 3)
	require.NoError(t, err)

	got, err := store.Customer(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.DefaultRate.Equal(decimal.NewFromInt(5)))
	assert.Equal(t, 3, got.RateStreak)

	err = store.UpdateCustomerRate(ctx, "ghost", decimal.NewFromInt(5), 3)
	assert.ErrorIs(t, err, susu.ErrCustomerNotFound)
}
