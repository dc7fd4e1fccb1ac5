package budget_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

func TestBalanceAllocations_ExactSumWhenSpendFits(t *testing.T) {
	// GIVEN: Spend below the total budget
	cats := []budget.Category{
		{ID: "venue", Allocated: gbp(400_000), Spent: gbp(400_000), Active: true},
		{ID: "catering", Allocated: gbp(250_000), Spent: gbp(200_000), Active: true},
		{ID: "flowers", Allocated: gbp(100_000), Spent: gbp(50_000), Active: true},
	}

	// WHEN: Balancing against £12,000
	out, err := budget.BalanceAllocations(gbp(1_200_000), cats)
	require.NoError(t, err)

	// THEN: New allocations sum to exactly the total budget
	var sum int64
	for _, m := range out {
		sum += m.Units
	}
	assert.Equal(t, int64(1_200_000), sum)

	// AND: Every category keeps its spent floor
	for i, c := range cats {
		assert.GreaterOrEqual(t, out[i].Units, c.Spent.Units, "%s below its spent floor", c.ID)
	}

	// AND: The free pool spread proportionally to allocation weights
	assert.Equal(t, int64(693_334), out[0].Units)
	assert.Equal(t, int64(383_333), out[1].Units)
	assert.Equal(t, int64(123_333), out[2].Units)
}

func TestBalanceAllocations_CannotBalanceWhenOvercommitted(t *testing.T) {
	// GIVEN: More spent than the budget holds
	cats := []budget.Category{
		{ID: "venue", Allocated: gbp(500_000), Spent: gbp(700_000), Active: true},
		{ID: "catering", Allocated: gbp(300_000), Spent: gbp(400_000), Active: true},
	}

	// WHEN
	_, err := budget.BalanceAllocations(gbp(1_000_000), cats)

	// THEN: A typed error, never negative allocations
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrCannotBalance))
	var cbe *budget.CannotBalanceError
	require.True(t, errors.As(err, &cbe))
	assert.Equal(t, int64(1_100_000), cbe.Committed.Units)
}

func TestBalanceAllocations_EmptyCategoryGetsMeanWeight(t *testing.T) {
	// GIVEN: A freshly added category with zero allocation
	cats := []budget.Category{
		{ID: "venue", Allocated: gbp(600_000), Spent: gbp(0), Active: true},
		{ID: "catering", Allocated: gbp(300_000), Spent: gbp(0), Active: true},
		{ID: "stationery", Allocated: money.Zero("GBP"), Spent: gbp(0), Active: true},
	}

	// WHEN
	out, err := budget.BalanceAllocations(gbp(1_200_000), cats)
	require.NoError(t, err)

	// THEN: The empty category is not starved; it gets the mean weight
	// (900,000/3 = 300,000), same share as catering.
	assert.True(t, out[2].IsPositive())
	assert.Equal(t, out[1].Units, out[2].Units)

	var sum int64
	for _, m := range out {
		sum += m.Units
	}
	assert.Equal(t, int64(1_200_000), sum)
}

func TestBalanceAllocations_AllZeroAllocationsSplitEqually(t *testing.T) {
	// GIVEN: Nothing allocated yet
	cats := []budget.Category{
		{ID: "a", Allocated: gbp(0), Spent: gbp(0), Active: true},
		{ID: "b", Allocated: gbp(0), Spent: gbp(0), Active: true},
		{ID: "c", Allocated: gbp(0), Spent: gbp(0), Active: true},
	}

	// WHEN
	out, err := budget.BalanceAllocations(gbp(100), cats)
	require.NoError(t, err)

	// THEN: Equal split, leftover units to the front
	assert.Equal(t, int64(34), out[0].Units)
	assert.Equal(t, int64(33), out[1].Units)
	assert.Equal(t, int64(33), out[2].Units)
}

func TestBalanceAllocations_PureNoInputMutation(t *testing.T) {
	// GIVEN
	cats := []budget.Category{
		{ID: "venue", Allocated: gbp(100), Spent: gbp(50), Active: true},
	}

	// WHEN
	_, err := budget.BalanceAllocations(gbp(1_000), cats)
	require.NoError(t, err)

	// THEN: The inputs are untouched
	assert.Equal(t, int64(100), cats[0].Allocated.Units)
	assert.Equal(t, int64(50), cats[0].Spent.Units)
}
