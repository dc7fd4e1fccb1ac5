/*
ledger.go - Per-category derivation

PURPOSE:
  Derive computes every per-category metric from the stored fields and the
  total budget. Derived values are never persisted; they are recomputed on
  each snapshot in the same pass, so a reader can never observe a category
  whose percentage is stale relative to its own allocated/spent.

REFERENTIAL DETERMINISM:
  Derive is a pure function: identical input always produces identical
  output. That is what lets four different UI surfaces render the same
  category identically without sharing render code.
*/
package budget

import "github.com/warp/budget-engine/money"

// Derive computes the category's metrics against the given total budget.
func (c Category) Derive(totalBudget money.Money) DerivedCategory {
	remaining, _ := money.Sub(c.Allocated, c.Spent) // same currency by construction

	utilization := money.RatioZero
	if !c.Allocated.IsZero() {
		utilization = money.PercentOf(c.Spent, c.Allocated)
	}

	nearLimit := false
	if c.AlertThreshold != nil && utilization.GreaterThanOrEqual(*c.AlertThreshold) {
		nearLimit = true
	}

	return DerivedCategory{
		Category:          c,
		Remaining:         remaining,
		PercentageOfTotal: money.PercentOf(c.Allocated, totalBudget),
		Utilization:       utilization,
		IsOverBudget:      c.Spent.GreaterThan(c.Allocated),
		IsNearLimit:       nearLimit,
	}
}

// BuildSnapshot assembles a snapshot from raw category records: one
// derivation pass, warnings included. Stores use it to rebuild a snapshot
// from persisted rows.
func BuildSnapshot(totalBudget money.Money, cats []Category, revision int64, status SyncStatus) Snapshot {
	derived, allocated, spent := deriveAll(totalBudget, cats)
	unallocated, _ := money.Sub(totalBudget, allocated)

	return Snapshot{
		TotalBudget:    totalBudget,
		Categories:     derived,
		TotalAllocated: allocated,
		TotalSpent:     spent,
		Unallocated:    unallocated,
		Warnings:       EvaluateWarnings(totalBudget, allocated, derived),
		SyncStatus:     status,
		Revision:       revision,
	}
}

// deriveAll derives every category in order and returns the active-only
// aggregates alongside.
func deriveAll(totalBudget money.Money, cats []Category) (derived []DerivedCategory, allocated, spent money.Money) {
	currency := totalBudget.Currency
	allocated = money.Zero(currency)
	spent = money.Zero(currency)

	derived = make([]DerivedCategory, len(cats))
	for i, c := range cats {
		derived[i] = c.Derive(totalBudget)
		if c.Active {
			allocated, _ = money.Add(allocated, c.Allocated)
			spent, _ = money.Add(spent, c.Spent)
		}
	}
	return derived, allocated, spent
}
