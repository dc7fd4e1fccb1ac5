/*
errors.go - Centralized error types for the budget engine

PURPOSE:
  All engine error types in one place. Every failed invariant check is
  returned synchronously to the caller of the mutation that triggered it -
  the engine never logs-and-swallows.

ERROR vs WARNING:
  Errors reject a mutation (unknown category, removing a category with
  spend history, balancing an already-overspent budget). Warnings
  (over-allocated, over-spent, near-limit) attach to the successful
  post-mutation snapshot and never block anything; see guard.go.

USAGE:
  Callers branch with errors.Is / errors.As:

    if errors.Is(err, budget.ErrUnknownCategory) { ... }

    var insufficient *budget.InsufficientAllocationError
    if errors.As(err, &insufficient) { ... }

SEE ALSO:
  - money/money.go: NegativeResultError for arithmetic contexts
  - guard.go: warning computation
*/
package budget

import (
	"errors"
	"fmt"

	"github.com/warp/budget-engine/money"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnknownCategory is returned when a mutation references a
	// category id that is not in the store.
	ErrUnknownCategory = errors.New("unknown category")

	// ErrCategoryHasActivity is returned when removing a category that
	// has recorded spend. Archive instead to preserve the audit trail.
	ErrCategoryHasActivity = errors.New("category has recorded activity")

	// ErrCannotBalance is returned when total spend already exceeds the
	// total budget - no allocation of the free pool can fix that.
	ErrCannotBalance = errors.New("cannot balance: spend exceeds total budget")

	// ErrAlreadyApplied is returned when a recommendation is applied twice.
	ErrAlreadyApplied = errors.New("recommendation already applied")

	// ErrInsufficientAllocation is returned when applying a recommendation
	// would force a category's allocation below what it already spent.
	ErrInsufficientAllocation = errors.New("insufficient allocation")

	// ErrInvalidReorder is returned when a reorder request does not name
	// exactly the current set of category ids.
	ErrInvalidReorder = errors.New("reorder must name every category exactly once")

	// ErrInvalidRecommendation is returned when a recommendation record is
	// malformed (wrong target count for its type, negative savings).
	ErrInvalidRecommendation = errors.New("invalid recommendation")

	// ErrNegativeAmount is returned when a mutation supplies a negative
	// allocation or expense amount.
	ErrNegativeAmount = errors.New("amount must not be negative")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownCategoryError reports which id was not found.
type UnknownCategoryError struct {
	ID CategoryID
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.ID)
}

func (e *UnknownCategoryError) Unwrap() error { return ErrUnknownCategory }

// CategoryHasActivityError reports the spend blocking a removal.
type CategoryHasActivityError struct {
	ID    CategoryID
	Spent money.Money
}

func (e *CategoryHasActivityError) Error() string {
	return fmt.Sprintf("category %q has %s recorded spend; archive it instead", e.ID, e.Spent)
}

func (e *CategoryHasActivityError) Unwrap() error { return ErrCategoryHasActivity }

// CannotBalanceError reports the committed spend that exceeds the budget.
type CannotBalanceError struct {
	TotalBudget money.Money
	Committed   money.Money
}

func (e *CannotBalanceError) Error() string {
	return fmt.Sprintf("cannot balance: committed spend %s exceeds budget %s", e.Committed, e.TotalBudget)
}

func (e *CannotBalanceError) Unwrap() error { return ErrCannotBalance }

// AlreadyAppliedError reports the recommendation that was applied before.
type AlreadyAppliedError struct {
	RecommendationID string
}

func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("recommendation %q already applied", e.RecommendationID)
}

func (e *AlreadyAppliedError) Unwrap() error { return ErrAlreadyApplied }

// InsufficientAllocationError reports an application that would push a
// category's allocation below its spent floor.
type InsufficientAllocationError struct {
	CategoryID CategoryID
	Allocated  money.Money
	Spent      money.Money
	Requested  money.Money
}

func (e *InsufficientAllocationError) Error() string {
	return fmt.Sprintf("category %q: removing %s from allocation %s would go below spent %s",
		e.CategoryID, e.Requested, e.Allocated, e.Spent)
}

func (e *InsufficientAllocationError) Unwrap() error { return ErrInsufficientAllocation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrCategoryHasActivity) ||
		errors.Is(err, ErrAlreadyApplied) ||
		errors.Is(err, ErrInsufficientAllocation) ||
		errors.Is(err, ErrInvalidReorder) ||
		errors.Is(err, ErrInvalidRecommendation) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrCannotBalance) ||
		errors.Is(err, money.ErrNegativeResult)
}

// IsNotFound returns true if the error indicates a missing category.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownCategory)
}
