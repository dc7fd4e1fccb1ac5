/*
Package budget provides the wedding budget allocation engine.

PURPOSE:
  This package contains the allocation state machine: a fixed total budget
  divided across named categories, mutated through a small set of entry
  points (typed amounts, slider/gesture deltas, auto-balance, applied
  recommendations) and observed as immutable snapshots. Every consuming
  surface - desktop chart, mobile slider, drag handle, quick-entry wizard -
  reads the same snapshot stream instead of re-deriving business rules.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category: the canonical per-category ledger record
  - Snapshot: the immutable post-mutation view handed to subscribers
  - Warning: informational badge state (over-allocated, over-spent, ...)
  - Recommendation: an externally produced cost-saving suggestion

DESIGN PRINCIPLES:
  1. Single writer: mutations are serialized; a reader never observes a
     half-applied allocation
  2. Warnings never block: over-planning is a badge, not a rejection
  3. Derived fields are recomputed, never stored - a snapshot's
     percentages are always consistent with its own allocated/spent
  4. Integer money: all amounts are money.Money minor units

SEE ALSO:
  - store.go: AllocationStore, the single source of truth
  - ledger.go: per-category derivation
  - guard.go: warning computation
  - recommend.go: recommendation application and optimization score
*/
package budget

import (
	"github.com/warp/budget-engine/money"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type CategoryID string

// =============================================================================
// CATEGORY - Canonical per-category ledger record
// =============================================================================

type Category struct {
	ID   CategoryID
	Name string

	// Allocated is money earmarked for this category; Spent is money
	// already recorded against it. Both are non-negative at all times.
	Allocated money.Money
	Spent     money.Money

	// AlertThreshold is the utilization ratio in (0,1] at which the
	// category shows a near-limit badge. Nil disables the alert.
	AlertThreshold *money.Ratio

	AllowsOverspend bool
	SortOrder       int
	Color           string

	// Active is false for archived categories. Categories with spend
	// history are archived rather than removed to preserve the audit trail.
	Active bool

	// Revision is a monotonic per-category counter bumped on every
	// mutation that touches this category. The sync collaborator uses it
	// for last-write-wins reconciliation.
	Revision int64
}

// =============================================================================
// DERIVED CATEGORY - Category plus recomputed metrics
// =============================================================================

// DerivedCategory is a Category together with the metrics recomputed from
// it on every snapshot. Derived fields are never stored.
type DerivedCategory struct {
	Category

	// Remaining = Allocated - Spent. Negative when overspent.
	Remaining money.Money

	// PercentageOfTotal = Allocated / totalBudget (0 when budget is 0).
	PercentageOfTotal money.Ratio

	// Utilization = Spent / Allocated (0 when nothing is allocated).
	Utilization money.Ratio

	IsOverBudget bool
	IsNearLimit  bool
}

// =============================================================================
// SNAPSHOT - Immutable post-mutation view
// =============================================================================

// Snapshot is the full engine state after a mutation. It is a value: the
// store never hands out internal slices, so holding or mutating a snapshot
// cannot affect engine state.
type Snapshot struct {
	TotalBudget money.Money

	// Categories are ordered by SortOrder and include archived entries
	// (Active=false) so history stays visible. Aggregates below cover
	// active categories only.
	Categories []DerivedCategory

	TotalAllocated money.Money
	TotalSpent     money.Money

	// Unallocated = TotalBudget - TotalAllocated. Negative when the plan
	// over-allocates, which is allowed and flagged, never clamped.
	Unallocated money.Money

	Warnings   []Warning
	SyncStatus SyncStatus

	// Revision is the store-level mutation counter.
	Revision int64
}

// Active returns the active categories in order.
func (s Snapshot) Active() []DerivedCategory {
	out := make([]DerivedCategory, 0, len(s.Categories))
	for _, c := range s.Categories {
		if c.Category.Active {
			out = append(out, c)
		}
	}
	return out
}

// Category returns the derived entry for id, active or archived.
func (s Snapshot) Category(id CategoryID) (DerivedCategory, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return DerivedCategory{}, false
}

// =============================================================================
// WARNINGS - Informational badge states
// =============================================================================

type WarningCode string

const (
	// WarnOverAllocated: sum(allocated) exceeds the total budget.
	WarnOverAllocated WarningCode = "over_allocated"

	// WarnOverBudget: a category's spend exceeds its allocation.
	WarnOverBudget WarningCode = "over_budget"

	// WarnNearLimit: a category's utilization reached its alert threshold.
	WarnNearLimit WarningCode = "near_limit"

	// WarnSyncConflict: a local edit lost last-write-wins reconciliation
	// against a collaborator's concurrent edit.
	WarnSyncConflict WarningCode = "sync_conflict"
)

type Warning struct {
	Code WarningCode

	// CategoryID is empty for budget-level warnings.
	CategoryID CategoryID

	// Excess is the offending amount where one exists (over-allocation
	// overshoot, overspend amount). Zero otherwise.
	Excess money.Money

	Message string
}

// =============================================================================
// SYNC STATUS - Boundary state reported alongside snapshots
// =============================================================================

// SyncStatus describes the relationship between the in-memory state and
// the remote store. It is informational: engine mutations always succeed
// locally regardless of remote availability.
type SyncStatus string

const (
	SyncSynced   SyncStatus = "synced"
	SyncPending  SyncStatus = "pending"
	SyncConflict SyncStatus = "conflict"
	SyncOffline  SyncStatus = "offline"
)

// =============================================================================
// RECOMMENDATION - External cost-saving suggestion (read-only input)
// =============================================================================

type RecommendationType string

const (
	RecVendorAlternative    RecommendationType = "vendor-alternative"
	RecCategoryReallocation RecommendationType = "category-reallocation"
	RecTimingOptimization   RecommendationType = "timing-optimization"
	RecFeatureSubstitution  RecommendationType = "feature-substitution"
	RecBulkBooking          RecommendationType = "bulk-booking"
	RecSeasonalDiscount     RecommendationType = "seasonal-discount"
	RecDIYOpportunity       RecommendationType = "diy-opportunity"
)

// Recommendation is produced by an external suggestion service. The engine
// never mutates its analytical fields; applying one only flips IsApplied
// and records which ledger entries changed.
type Recommendation struct {
	ID               string
	Type             RecommendationType
	PotentialSavings money.Money

	// TargetCategoryIDs names the categories a recommendation touches.
	// For category-reallocation the first entry is the over-funded source
	// and the second the destination; other types use the first entry.
	TargetCategoryIDs []CategoryID

	// Confidence is 0-100.
	Confidence int

	IsApplied bool
}

// AppliedRecommendation is the engine's record of an application: the
// consumed recommendation plus which ledger entries changed.
type AppliedRecommendation struct {
	Recommendation
	AffectedCategories []CategoryID
	RealizedSavings    money.Money
}
