/*
gesture.go - GestureDeltaMapper

PURPOSE:
  Converts a continuous input signal (pixel offset from a drag, slider
  position delta) into a bounded Money delta for one category, relative to
  a baseline captured at gesture start. The mapper performs no store
  mutation; the caller commits the resulting delta through
  AllocationStore.ApplyGestureDelta on gesture end (or via throttled
  intermediate commits). That split keeps gesture math testable without
  any UI framework.

SENSITIVITY:
  Sensitivity is derived from the total budget so a full-range drag spans
  a usable fraction of the budget regardless of wedding size: a larger
  budget moves more money per pixel.

PURITY:
  MapDelta is a pure function of (baseline, offset, sensitivity) - same
  inputs always produce the same delta, independent of call order or prior
  gesture history.
*/
package budget

import (
	"math"

	"github.com/warp/budget-engine/money"
)

// Sensitivity expresses how many minor currency units one input step
// (pixel, slider unit) moves.
type Sensitivity struct {
	UnitsPerStep int64
}

// SensitivityForBudget derives a sensitivity such that fullRangeSteps
// input steps (e.g. the slider's pixel width) span the whole budget. The
// per-step amount is floored at one minor unit so tiny budgets still move.
func SensitivityForBudget(totalBudget money.Money, fullRangeSteps int64) Sensitivity {
	if fullRangeSteps <= 0 || totalBudget.Units <= 0 {
		return Sensitivity{UnitsPerStep: 1}
	}
	perStep := totalBudget.Units / fullRangeSteps
	if perStep < 1 {
		perStep = 1
	}
	return Sensitivity{UnitsPerStep: perStep}
}

// MapDelta converts an input offset into a Money delta against the
// baseline allocation captured at gesture start. The delta is clamped so
// baseline+delta never goes negative; the store additionally floors the
// result at the category's spent amount on commit.
func MapDelta(baseline money.Money, offset float64, s Sensitivity) money.Money {
	perStep := s.UnitsPerStep
	if perStep < 1 {
		perStep = 1
	}

	units := int64(math.Round(offset * float64(perStep)))
	if units < -baseline.Units {
		units = -baseline.Units
	}
	return money.New(units, baseline.Currency)
}
