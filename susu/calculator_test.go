package susu_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/susu-engine/susu"
)

func calc(t *testing.T, requested, rate, available float64) (susu.Quote, error) {
	t.Helper()
	quote, _, err := susu.Calculate(
		decimal.NewFromFloat(requested),
		decimal.NewFromFloat(rate),
		decimal.NewFromFloat(available),
		susu.DefaultCurrency)
	return quote, err
}

// =============================================================================
// PROFIT BOX PRICING
// =============================================================================

func TestCalculate_SingleBoxMinimum(t *testing.T) {
	// GIVEN: A one-day withdrawal (5 at rate 5)
	// WHEN: Pricing it
	// THEN: One full box is still charged

	quote, err := calc(t, 5, 5, 100)
	require.NoError(t, err)

	assert.Equal(t, int64(1), quote.ProfitBoxes)
	assert.True(t, quote.ProfitAmount.Equal(decimal.NewFromInt(5)))
	assert.True(t, quote.TotalDeducted.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.BalanceAfter.Equal(decimal.NewFromInt(90)))
}

func TestCalculate_ExactPageBoundaryStaysOneBox(t *testing.T) {
	// 150 at rate 5 is exactly 30 days: still one box.
	quote, err := calc(t, 150, 5, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1), quote.ProfitBoxes)
}

func TestCalculate_CrossingThirtyDaysChargesSecondBox(t *testing.T) {
	// GIVEN: 155 at rate 5 = 31 days
	// WHEN: Pricing with plenty of balance
	// THEN: Two boxes, total 165

	quote, err := calc(t, 155, 5, 1000)
	require.NoError(t, err)

	assert.Equal(t, int64(2), quote.ProfitBoxes)
	assert.True(t, quote.ProfitAmount.Equal(decimal.NewFromInt(10)))
	assert.True(t, quote.TotalDeducted.Equal(decimal.NewFromInt(165)))
}

func TestCalculate_SixtyOneDaysChargesThreeBoxes(t *testing.T) {
	// 305 at rate 5 = 61 days -> ceil(61/30) = 3 boxes.
	quote, err := calc(t, 305, 5, 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(3), quote.ProfitBoxes)
}

// =============================================================================
// DEGRADE-THEN-FAIL
// =============================================================================

func TestCalculate_DegradesBoxesBeforeFailing(t *testing.T) {
	// GIVEN: 155 at rate 5 wants 2 boxes (total 165) but only 160 available
	// WHEN: Pricing
	// THEN: Boxes degrade to 1 and the withdrawal fits exactly

	quote, err := calc(t, 155, 5, 160)
	require.NoError(t, err)

	assert.Equal(t, int64(1), quote.ProfitBoxes)
	assert.True(t, quote.TotalDeducted.Equal(decimal.NewFromInt(160)))
	assert.True(t, quote.BalanceAfter.IsZero())
}

func TestCalculate_InsufficientEvenAtOneBox(t *testing.T) {
	// GIVEN: 100 at rate 5 with exactly 100 available
	// WHEN: Pricing (minimum required is 105)
	// THEN: *InsufficientFundsError with the minimum spelled out

	_, err := calc(t, 100, 5, 100)
	require.Error(t, err)
	assert.ErrorIs(t, err, susu.ErrInsufficientFunds)

	var insufficient *susu.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.MinimumRequired.Equal(decimal.NewFromInt(105)),
		"minimum required should be requested + one box, got %s", insufficient.MinimumRequired)
	assert.True(t, insufficient.Shortfall.Equal(decimal.NewFromInt(5)))
}

func TestCalculate_EpsilonToleratesRoundingNoise(t *testing.T) {
	// A balance short by less than the epsilon still passes.
	quote, _, err := susu.Calculate(
		decimal.NewFromInt(5),
		decimal.NewFromInt(5),
		decimal.RequireFromString("9.99995"),
		susu.DefaultCurrency)
	require.NoError(t, err)
	assert.Equal(t, int64(1), quote.ProfitBoxes)
	assert.True(t, quote.BalanceAfter.IsZero(), "after-balance clamps at zero")
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestCalculate_RejectsBadInputs(t *testing.T) {
	_, err := calc(t, 0, 5, 100)
	assert.True(t, errors.Is(err, susu.ErrInvalidAmount))

	_, err = calc(t, -10, 5, 100)
	assert.True(t, errors.Is(err, susu.ErrInvalidAmount))

	_, err = calc(t, 50, 0, 100)
	assert.True(t, errors.Is(err, susu.ErrNoRate))
}
