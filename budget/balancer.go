/*
balancer.go - Proportional redistribution (AutoBalancer)

PURPOSE:
  Given the total budget, redistribute the headroom (total minus committed
  spend) across categories proportionally to their current allocation
  shares, while preserving every category's already-spent floor.

ALGORITHM:
  committed = sum(spent)
  freePool  = totalBudget - committed     (negative -> CannotBalanceError)
  weight_i  = allocated_i
  newAlloc_i = spent_i + split_i(freePool, weights)

  The split uses money.SplitProportional, so the new allocations sum to
  exactly totalBudget whenever committed <= totalBudget. Categories with
  zero allocation are given a mean-sized weight so a freshly added empty
  category still receives a share instead of being starved.

EDGE CASES:
  - committed > totalBudget: the over-budget state cannot be resolved by
    reallocation; CannotBalanceError, never negative allocations.
  - all allocations zero: equal split of the free pool.
*/
package budget

import "github.com/warp/budget-engine/money"

// BalanceAllocations computes the rebalanced allocation for each category,
// index-aligned with cats. Pure: it never mutates its inputs.
func BalanceAllocations(totalBudget money.Money, cats []Category) ([]money.Money, error) {
	if len(cats) == 0 {
		return nil, nil
	}

	currency := totalBudget.Currency
	committed := money.Zero(currency)
	for _, c := range cats {
		var err error
		committed, err = money.Add(committed, c.Spent)
		if err != nil {
			return nil, err
		}
	}

	freePool, err := money.SubNonNegative(totalBudget, committed)
	if err != nil {
		return nil, &CannotBalanceError{TotalBudget: totalBudget, Committed: committed}
	}

	weights := make([]int64, len(cats))
	var sumAllocated int64
	for i, c := range cats {
		weights[i] = c.Allocated.Units
		sumAllocated += c.Allocated.Units
	}

	// Empty categories get a mean-sized weight so they share in the pool.
	if sumAllocated > 0 {
		mean := sumAllocated / int64(len(cats))
		if mean == 0 {
			mean = 1
		}
		for i := range weights {
			if weights[i] == 0 {
				weights[i] = mean
			}
		}
	}

	shares, err := money.SplitProportional(freePool, weights)
	if err != nil {
		return nil, err
	}

	out := make([]money.Money, len(cats))
	for i, c := range cats {
		out[i], err = money.Add(c.Spent, shares[i])
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
