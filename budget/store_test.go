/*
store_test.go - AllocationStore behavior tests

PURPOSE:
  Validates the mutation entry points and the guarantees every consuming
  surface depends on:
  1. Atomicity - mutations fully apply or fully reject
  2. Exactness - allocation sums never drift
  3. Warnings never block - overspend and over-allocation are badges
  4. Fan-out - subscribers see every successful mutation exactly once

READING THESE TESTS:
  Each test has GIVEN/WHEN/THEN comments explaining the scenario.
*/
package budget_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/budget-engine/budget"
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func gbp(units int64) money.Money {
	return money.New(units, "GBP")
}

// newWeddingStore seeds the recurring three-category plan used across
// these tests: £10,000 split venue/catering/flowers.
func newWeddingStore(t *testing.T) (*budget.AllocationStore, budget.CategoryID, budget.CategoryID, budget.CategoryID) {
	t.Helper()

	s := budget.NewStore(gbp(1_000_000))
	venue, _, err := s.AddCategory("Venue", gbp(400_000))
	require.NoError(t, err)
	catering, _, err := s.AddCategory("Catering", gbp(250_000))
	require.NoError(t, err)
	flowers, _, err := s.AddCategory("Flowers", gbp(100_000))
	require.NoError(t, err)
	return s, venue, catering, flowers
}

// =============================================================================
// ALLOCATION MUTATIONS
// =============================================================================

func TestSetCategoryAllocation_UpdatesAndDerives(t *testing.T) {
	// GIVEN: A seeded store
	s, venue, _, _ := newWeddingStore(t)

	// WHEN: Setting the venue allocation directly
	snap, err := s.SetCategoryAllocation(venue, gbp(500_000))
	require.NoError(t, err)

	// THEN: The snapshot reflects the new allocation and derived totals
	c, ok := snap.Category(venue)
	require.True(t, ok)
	assert.Equal(t, int64(500_000), c.Allocated.Units)
	assert.Equal(t, int64(850_000), snap.TotalAllocated.Units)
	assert.Equal(t, int64(150_000), snap.Unallocated.Units)
	assert.Equal(t, "0.5", c.PercentageOfTotal.String())
}

func TestSetCategoryAllocation_UnknownCategory(t *testing.T) {
	// GIVEN: A seeded store
	s, _, _, _ := newWeddingStore(t)

	// WHEN: Targeting an id that does not exist
	_, err := s.SetCategoryAllocation("nope", gbp(100))

	// THEN: A typed not-found error comes back
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrUnknownCategory))
	var uce *budget.UnknownCategoryError
	require.True(t, errors.As(err, &uce))
	assert.Equal(t, budget.CategoryID("nope"), uce.ID)
}

func TestSetCategoryAllocation_OverAllocationIsWarningNotRejection(t *testing.T) {
	// GIVEN: A £10,000 budget
	s, venue, _, _ := newWeddingStore(t)

	// WHEN: Earmarking more than the whole budget for the venue
	snap, err := s.SetCategoryAllocation(venue, gbp(2_000_000))

	// THEN: The mutation succeeds and the snapshot carries the badge
	require.NoError(t, err)
	assert.True(t, budget.IsOverAllocated(snap))
	assert.Equal(t, int64(-1_350_000), snap.Unallocated.Units, "unallocated goes negative, never clamped")

	require.NotEmpty(t, snap.Warnings)
	assert.Equal(t, budget.WarnOverAllocated, snap.Warnings[0].Code)
	assert.Equal(t, int64(1_350_000), snap.Warnings[0].Excess.Units)
}

func TestSetCategoryAllocation_NegativeRejected(t *testing.T) {
	// GIVEN
	s, venue, _, _ := newWeddingStore(t)
	before := s.Snapshot()

	// WHEN
	_, err := s.SetCategoryAllocation(venue, gbp(-1))

	// THEN: Rejected atomically; nothing changed
	assert.True(t, errors.Is(err, budget.ErrNegativeAmount))
	assert.Equal(t, before.Revision, s.Snapshot().Revision)
}

func TestAllocationSums_NoDriftAcrossMutations(t *testing.T) {
	// GIVEN: A seeded store
	s, venue, catering, flowers := newWeddingStore(t)

	// WHEN: A burst of allocation and spend mutations
	_, err := s.SetCategoryAllocation(venue, gbp(333_333))
	require.NoError(t, err)
	_, err = s.ApplyGestureDelta(catering, gbp(1))
	require.NoError(t, err)
	_, _, err = s.RecordExpense(flowers, gbp(49_999))
	require.NoError(t, err)
	_, err = s.ApplyGestureDelta(venue, gbp(-3))
	require.NoError(t, err)

	// THEN: The aggregate is the exact integer sum of the parts
	snap := s.Snapshot()
	var sum int64
	for _, c := range snap.Active() {
		sum += c.Allocated.Units
	}
	assert.Equal(t, sum, snap.TotalAllocated.Units)
	assert.Equal(t, int64(333_330+250_001+100_000), snap.TotalAllocated.Units)
}

// =============================================================================
// GESTURE DELTAS
// =============================================================================

func TestApplyGestureDelta_FlooredAtSpent(t *testing.T) {
	// GIVEN: Venue already has £2,000 recorded against it
	s, venue, _, _ := newWeddingStore(t)
	_, _, err := s.RecordExpense(venue, gbp(200_000))
	require.NoError(t, err)

	// WHEN: A drag tries to pull the allocation far below the spend
	snap, err := s.ApplyGestureDelta(venue, gbp(-950_000))
	require.NoError(t, err)

	// THEN: The allocation floors at the spent amount
	c, _ := snap.Category(venue)
	assert.Equal(t, int64(200_000), c.Allocated.Units)
}

// =============================================================================
// CATEGORY LIFECYCLE
// =============================================================================

func TestRemoveCategory_RejectedWhenSpent(t *testing.T) {
	// GIVEN: Flowers has recorded spend
	s, _, _, flowers := newWeddingStore(t)
	_, _, err := s.RecordExpense(flowers, gbp(5_000))
	require.NoError(t, err)

	// WHEN: Removing it
	_, err = s.RemoveCategory(flowers)

	// THEN: The removal is refused; the audit trail must survive
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrCategoryHasActivity))

	// AND: Archiving is the sanctioned path
	snap, err := s.ArchiveCategory(flowers)
	require.NoError(t, err)
	c, ok := snap.Category(flowers)
	require.True(t, ok, "archived category stays visible in snapshots")
	assert.False(t, c.Category.Active)
	assert.Len(t, snap.Active(), 2)
}

func TestRemoveCategory_AllowedWhenUntouched(t *testing.T) {
	// GIVEN
	s, _, _, flowers := newWeddingStore(t)

	// WHEN
	snap, err := s.RemoveCategory(flowers)

	// THEN
	require.NoError(t, err)
	_, ok := snap.Category(flowers)
	assert.False(t, ok)
	assert.Equal(t, int64(650_000), snap.TotalAllocated.Units)
}

func TestArchivedCategory_ExcludedFromAggregates(t *testing.T) {
	// GIVEN: Catering is archived with spend on record
	s, _, catering, _ := newWeddingStore(t)
	_, _, err := s.RecordExpense(catering, gbp(10_000))
	require.NoError(t, err)
	snap, err := s.ArchiveCategory(catering)
	require.NoError(t, err)

	// THEN: Aggregates cover active categories only
	assert.Equal(t, int64(500_000), snap.TotalAllocated.Units)
	assert.Equal(t, int64(0), snap.TotalSpent.Units)
}

func TestReorder_ExactPermutationRequired(t *testing.T) {
	// GIVEN
	s, venue, catering, flowers := newWeddingStore(t)

	// WHEN: Reordering with a valid permutation
	snap, err := s.Reorder([]budget.CategoryID{flowers, venue, catering})
	require.NoError(t, err)

	// THEN: Snapshot order follows
	require.Len(t, snap.Categories, 3)
	assert.Equal(t, flowers, snap.Categories[0].ID)
	assert.Equal(t, venue, snap.Categories[1].ID)
	assert.Equal(t, catering, snap.Categories[2].ID)

	// AND: Short lists, duplicates and unknown ids are all rejected
	_, err = s.Reorder([]budget.CategoryID{venue, catering})
	assert.True(t, errors.Is(err, budget.ErrInvalidReorder))
	_, err = s.Reorder([]budget.CategoryID{venue, venue, catering})
	assert.True(t, errors.Is(err, budget.ErrInvalidReorder))
	_, err = s.Reorder([]budget.CategoryID{venue, catering, "ghost"})
	assert.True(t, errors.Is(err, budget.ErrInvalidReorder))
}

// =============================================================================
// SPEND
// =============================================================================

func TestRecordExpense_OverspendSucceedsWithWarning(t *testing.T) {
	// GIVEN: A category already over its allocation
	s := budget.NewStore(gbp(1_000_000))
	id, _, err := s.AddCategory("Venue", gbp(100_000))
	require.NoError(t, err)
	_, _, err = s.RecordExpense(id, gbp(110_000))
	require.NoError(t, err)

	snap := s.Snapshot()
	c, _ := snap.Category(id)
	require.True(t, c.IsOverBudget)

	// WHEN: Recording further spend anyway
	snap, triggered, err := s.RecordExpense(id, gbp(5_000))

	// THEN: The spend lands (it already happened in reality)...
	require.NoError(t, err)
	c, _ = snap.Category(id)
	assert.Equal(t, int64(115_000), c.Spent.Units)
	assert.Equal(t, int64(-15_000), c.Remaining.Units)

	// ...AND the triggered warning rides alongside
	require.NotNil(t, triggered)
	assert.Equal(t, budget.WarnOverBudget, triggered.Code)
	assert.Equal(t, int64(15_000), triggered.Excess.Units)
}

func TestRecordExpense_AllowsOverspendSuppressesWarning(t *testing.T) {
	// GIVEN: A category explicitly marked as allowed to overspend
	s := budget.NewStore(gbp(1_000_000))
	id, _, err := s.AddCategoryWithOptions("Favors", gbp(10_000), budget.CategoryOptions{AllowsOverspend: true})
	require.NoError(t, err)

	// WHEN
	snap, triggered, err := s.RecordExpense(id, gbp(15_000))

	// THEN: No warning is triggered and none appears on the snapshot
	require.NoError(t, err)
	assert.Nil(t, triggered)
	for _, w := range snap.Warnings {
		assert.NotEqual(t, budget.WarnOverBudget, w.Code)
	}
}

// =============================================================================
// BUDGET REVISION
// =============================================================================

func TestReviseTotalBudget_RebalanceScenario(t *testing.T) {
	// GIVEN: £10,000 with deposits already paid
	//   Venue    alloc 400,000  spent 400,000
	//   Catering alloc 250,000  spent 200,000
	//   Flowers  alloc 100,000  spent  50,000
	s, venue, catering, flowers := newWeddingStore(t)
	for _, e := range []struct {
		id    budget.CategoryID
		spend int64
	}{
		{venue, 400_000}, {catering, 200_000}, {flowers, 50_000},
	} {
		_, _, err := s.RecordExpense(e.id, gbp(e.spend))
		require.NoError(t, err)
	}

	// WHEN: The couple raises the budget to £12,000 with rebalance
	snap, err := s.ReviseTotalBudget(gbp(1_200_000), true)
	require.NoError(t, err)

	// THEN: The free pool (1,200,000 - 650,000 committed = 550,000) spreads
	// proportional to the 400k/250k/100k allocation weights on top of each
	// category's spent floor; largest remainder keeps the sum exact.
	v, _ := snap.Category(venue)
	c, _ := snap.Category(catering)
	f, _ := snap.Category(flowers)
	assert.Equal(t, int64(693_334), v.Allocated.Units)
	assert.Equal(t, int64(383_333), c.Allocated.Units)
	assert.Equal(t, int64(123_333), f.Allocated.Units)
	assert.Equal(t, int64(1_200_000), snap.TotalAllocated.Units)
	assert.True(t, snap.Unallocated.IsZero())
}

func TestReviseTotalBudget_AtomicOnRebalanceFailure(t *testing.T) {
	// GIVEN: Spend already above the proposed new total
	s, venue, _, _ := newWeddingStore(t)
	_, _, err := s.RecordExpense(venue, gbp(900_000))
	require.NoError(t, err)
	before := s.Snapshot()

	// WHEN: Shrinking the budget below the committed spend with rebalance
	_, err = s.ReviseTotalBudget(gbp(500_000), true)

	// THEN: The whole revision is rejected; the previous total stands
	require.Error(t, err)
	assert.True(t, errors.Is(err, budget.ErrCannotBalance))
	after := s.Snapshot()
	assert.Equal(t, before.TotalBudget, after.TotalBudget)
	assert.Equal(t, before.Revision, after.Revision)
}

func TestReviseTotalBudget_WithoutRebalanceKeepsAllocations(t *testing.T) {
	// GIVEN
	s, venue, _, _ := newWeddingStore(t)

	// WHEN
	snap, err := s.ReviseTotalBudget(gbp(800_000), false)
	require.NoError(t, err)

	// THEN: Allocations are untouched; only the total and ratios move
	v, _ := snap.Category(venue)
	assert.Equal(t, int64(400_000), v.Allocated.Units)
	assert.Equal(t, "0.5", v.PercentageOfTotal.String())
}

// =============================================================================
// SUBSCRIPTION FAN-OUT
// =============================================================================

func TestSubscribe_DeliversEverySuccessfulMutation(t *testing.T) {
	// GIVEN: A subscriber
	s, venue, _, _ := newWeddingStore(t)
	var got []budget.Snapshot
	unsubscribe := s.Subscribe(func(snap budget.Snapshot) {
		got = append(got, snap)
	})

	// WHEN: One successful and one failing mutation
	_, err := s.SetCategoryAllocation(venue, gbp(450_000))
	require.NoError(t, err)
	_, err = s.SetCategoryAllocation("ghost", gbp(1))
	require.Error(t, err)

	// THEN: Only the successful mutation fanned out
	require.Len(t, got, 1)
	assert.Equal(t, int64(800_000), got[0].TotalAllocated.Units)

	// AND: After unsubscribe, nothing more arrives
	unsubscribe()
	_, err = s.SetCategoryAllocation(venue, gbp(400_000))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSnapshot_DetachedFromStoreState(t *testing.T) {
	// GIVEN: A snapshot taken before a mutation
	s, venue, _, _ := newWeddingStore(t)
	before := s.Snapshot()

	// WHEN: Mutating afterwards
	_, err := s.SetCategoryAllocation(venue, gbp(999_999))
	require.NoError(t, err)

	// THEN: The held snapshot is unaffected
	c, _ := before.Category(venue)
	assert.Equal(t, int64(400_000), c.Allocated.Units)
}

func TestRevisions_StampTouchedCategories(t *testing.T) {
	// GIVEN
	s, venue, catering, _ := newWeddingStore(t)

	// WHEN: Touching only the venue
	snap, err := s.SetCategoryAllocation(venue, gbp(410_000))
	require.NoError(t, err)

	// THEN: The venue carries the new store revision, catering does not
	v, _ := snap.Category(venue)
	c, _ := snap.Category(catering)
	assert.Equal(t, snap.Revision, v.Revision)
	assert.Less(t, c.Revision, snap.Revision)
}
