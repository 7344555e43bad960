package susu_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/susu-engine/susu"
)

func contribution(amount float64) susu.Transaction {
	return susu.Transaction{
		Kind:   susu.KindContribution,
		Amount: decimal.NewFromFloat(amount),
	}
}

func TestInferRate_StoredDefaultWins(t *testing.T) {
	// GIVEN: A customer with a cached rate and contributions suggesting another
	// WHEN: Inferring the rate
	// THEN: The cached rate wins; the GCD is never computed

	customer := susu.Customer{DefaultRate: decimal.NewFromInt(7)}
	txs := []susu.Transaction{contribution(5), contribution(10)}

	rate, _, ok := susu.InferRate(customer, txs, susu.DefaultCurrency)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(7)), "expected 7, got %s", rate)
}

func TestInferRate_GCDOverContributions(t *testing.T) {
	// GIVEN: Contributions of 5, 10, 15 (multiple days banked at once)
	// WHEN: Inferring the rate
	// THEN: GCD recovers the daily unit of 5

	rate, _, ok := susu.InferRate(susu.Customer{},
		[]susu.Transaction{contribution(5), contribution(10), contribution(15)},
		susu.DefaultCurrency)

	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(5)), "expected 5, got %s", rate)
}

func TestInferRate_FractionalAmounts(t *testing.T) {
	// Minor-unit conversion keeps cents exact: 7.50 twice -> 7.50.
	rate, _, ok := susu.InferRate(susu.Customer{},
		[]susu.Transaction{contribution(7.50), contribution(7.50)},
		susu.DefaultCurrency)

	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(7.50)), "expected 7.50, got %s", rate)

	// 2.50 and 10.00 -> 2.50
	rate, _, ok = susu.InferRate(susu.Customer{},
		[]susu.Transaction{contribution(2.50), contribution(10)},
		susu.DefaultCurrency)

	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromFloat(2.50)), "expected 2.50, got %s", rate)
}

func TestInferRate_NoContributions(t *testing.T) {
	rate, logs, ok := susu.InferRate(susu.Customer{}, nil, susu.DefaultCurrency)

	assert.False(t, ok)
	assert.True(t, rate.IsZero())
	assert.NotEmpty(t, logs, "failure should still explain itself")
}

func TestInferRate_IgnoresWithdrawalsAndNonPositive(t *testing.T) {
	// Withdrawal rows and zero/negative amounts never feed the GCD.
	txs := []susu.Transaction{
		contribution(10),
		contribution(20),
		{Kind: susu.KindWithdrawal, Method: susu.MethodWithdrawal, Amount: decimal.NewFromInt(3)},
		{Kind: susu.KindContribution, Amount: decimal.Zero},
		{Kind: susu.KindContribution, Amount: decimal.NewFromInt(-5)},
	}

	rate, _, ok := susu.InferRate(susu.Customer{}, txs, susu.DefaultCurrency)
	require.True(t, ok)
	assert.True(t, rate.Equal(decimal.NewFromInt(10)), "expected 10, got %s", rate)
}
