/*
guard.go - Warning computation (ValidationGuard)

PURPOSE:
  Pure functions computing warning states from ledger state. The store
  calls EvaluateWarnings after every mutation so each snapshot carries a
  consistent badge set, and any view may call the predicates directly at
  any time. These functions never mutate and never fail - absence of a
  warning is an empty result.

WARNING SEMANTICS:
  - over_allocated: the plan earmarks more than the budget. Allowed; users
    over-plan deliberately and resolve later.
  - over_budget:   a category's recorded spend exceeds its allocation.
                   Categories marked allows-overspend opted out of this
                   badge; the IsOverBudget flag still reports the state.
  - near_limit:    utilization crossed the category's alert threshold.
*/
package budget

import (
	"fmt"

	"github.com/warp/budget-engine/money"
)

// IsOverAllocated reports whether the snapshot earmarks more than the
// total budget.
func IsOverAllocated(s Snapshot) bool {
	return s.TotalAllocated.GreaterThan(s.TotalBudget)
}

// OverspentCategories returns the active categories whose spend exceeds
// their allocation.
func OverspentCategories(s Snapshot) []DerivedCategory {
	var out []DerivedCategory
	for _, c := range s.Active() {
		if c.IsOverBudget {
			out = append(out, c)
		}
	}
	return out
}

// NearLimitCategories returns the active categories at or past their
// alert threshold.
func NearLimitCategories(s Snapshot) []DerivedCategory {
	var out []DerivedCategory
	for _, c := range s.Active() {
		if c.IsNearLimit {
			out = append(out, c)
		}
	}
	return out
}

// EvaluateWarnings computes the full badge set for a derived state. Order
// is stable: the budget-level warning first, then per-category warnings in
// category order.
func EvaluateWarnings(totalBudget, totalAllocated money.Money, cats []DerivedCategory) []Warning {
	var warnings []Warning

	if totalAllocated.GreaterThan(totalBudget) {
		excess, _ := money.Sub(totalAllocated, totalBudget)
		warnings = append(warnings, Warning{
			Code:    WarnOverAllocated,
			Excess:  excess,
			Message: fmt.Sprintf("planned allocations exceed the budget by %s", excess),
		})
	}

	for _, c := range cats {
		if !c.Category.Active {
			continue
		}
		if c.IsOverBudget && !c.AllowsOverspend {
			excess, _ := money.Sub(c.Spent, c.Allocated)
			warnings = append(warnings, Warning{
				Code:       WarnOverBudget,
				CategoryID: c.ID,
				Excess:     excess,
				Message:    fmt.Sprintf("%s is %s over its allocation", c.Name, excess),
			})
		}
		if c.IsNearLimit && !c.IsOverBudget {
			warnings = append(warnings, Warning{
				Code:       WarnNearLimit,
				CategoryID: c.ID,
				Message:    fmt.Sprintf("%s is nearing its allocation", c.Name),
			})
		}
	}

	return warnings
}
