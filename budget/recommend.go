/*
recommend.go - RecommendationApplier and optimization score

PURPOSE:
  Applies externally generated cost-saving recommendations as atomic
  transactions against one or more categories. The engine never produces
  recommendations and never touches their analytical fields; it validates,
  applies, flips IsApplied, and records which ledger entries changed.

APPLICATION SEMANTICS:
  category-reallocation: moves PotentialSavings from the over-funded
  source (first target id) to the destination (second target id),
  validated so the source's resulting allocation stays at or above its
  spent floor.

  every other type: reduces the affected category's allocation by
  PotentialSavings - that money is no longer needed - and leaves the freed
  amount in the unallocated pool. The user decides where freed money goes
  next; the engine does not auto-redistribute it.

IDEMPOTENCE:
  Applying the same recommendation twice yields AlreadyAppliedError and
  leaves ledger state unchanged after the first application's effects.
*/
package budget

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/budget-engine/money"
)

// ApplyRecommendation applies rec atomically. On success it returns the
// application record (rec with IsApplied set plus the affected category
// ids) and the post-mutation snapshot.
func (s *AllocationStore) ApplyRecommendation(rec Recommendation) (AppliedRecommendation, Snapshot, error) {
	if rec.PotentialSavings.IsNegative() {
		return AppliedRecommendation{}, Snapshot{}, fmt.Errorf("negative savings: %w", ErrInvalidRecommendation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.IsApplied {
		return AppliedRecommendation{}, Snapshot{}, &AlreadyAppliedError{RecommendationID: rec.ID}
	}
	if _, done := s.applied[rec.ID]; done {
		return AppliedRecommendation{}, Snapshot{}, &AlreadyAppliedError{RecommendationID: rec.ID}
	}

	var affected []CategoryID
	switch rec.Type {
	case RecCategoryReallocation:
		if len(rec.TargetCategoryIDs) < 2 {
			return AppliedRecommendation{}, Snapshot{}, fmt.Errorf("category-reallocation needs a source and a destination: %w", ErrInvalidRecommendation)
		}
		sourceID, destID := rec.TargetCategoryIDs[0], rec.TargetCategoryIDs[1]

		si, err := s.indexLocked(sourceID)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}
		di, err := s.indexLocked(destID)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}

		source := s.categories[si]
		reduced, err := money.Sub(source.Allocated, rec.PotentialSavings)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}
		if reduced.LessThan(source.Spent) {
			return AppliedRecommendation{}, Snapshot{}, &InsufficientAllocationError{
				CategoryID: sourceID,
				Allocated:  source.Allocated,
				Spent:      source.Spent,
				Requested:  rec.PotentialSavings,
			}
		}

		increased, err := money.Add(s.categories[di].Allocated, rec.PotentialSavings)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}

		s.categories[si].Allocated = reduced
		s.categories[di].Allocated = increased
		affected = []CategoryID{sourceID, destID}

	default:
		if len(rec.TargetCategoryIDs) < 1 {
			return AppliedRecommendation{}, Snapshot{}, fmt.Errorf("%s needs a target category: %w", rec.Type, ErrInvalidRecommendation)
		}
		targetID := rec.TargetCategoryIDs[0]

		i, err := s.indexLocked(targetID)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}

		target := s.categories[i]
		reduced, err := money.Sub(target.Allocated, rec.PotentialSavings)
		if err != nil {
			return AppliedRecommendation{}, Snapshot{}, err
		}
		if reduced.LessThan(target.Spent) {
			return AppliedRecommendation{}, Snapshot{}, &InsufficientAllocationError{
				CategoryID: targetID,
				Allocated:  target.Allocated,
				Spent:      target.Spent,
				Requested:  rec.PotentialSavings,
			}
		}

		s.categories[i].Allocated = reduced
		affected = []CategoryID{targetID}
	}

	rec.IsApplied = true
	record := AppliedRecommendation{
		Recommendation:     rec,
		AffectedCategories: affected,
		RealizedSavings:    rec.PotentialSavings,
	}
	s.applied[rec.ID] = record

	return record, s.commitLocked(nil, affected...), nil
}

// AppliedRecommendations returns the records of every recommendation this
// store has consumed, in no particular order.
func (s *AllocationStore) AppliedRecommendations() []AppliedRecommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AppliedRecommendation, 0, len(s.applied))
	for _, r := range s.applied {
		out = append(out, r)
	}
	return out
}

// =============================================================================
// OPTIMIZATION SCORE
// =============================================================================

// Product policy constants for the dashboard score. These are tunable;
// the score itself must stay a pure function of (snapshot, pending
// recommendations) with no hidden state.
const (
	highConfidenceThreshold = 75
	unappliedPenalty        = 5
)

// OptimizationScore computes the 0-100 dashboard score: 100 minus the
// over-budget excess as a share of the total budget, minus a penalty per
// unapplied high-confidence recommendation.
func OptimizationScore(s Snapshot, pending []Recommendation) int {
	score := decimal.NewFromInt(100)

	if s.TotalBudget.IsPositive() && s.TotalSpent.GreaterThan(s.TotalBudget) {
		excess, _ := money.Sub(s.TotalSpent, s.TotalBudget)
		score = score.Sub(money.PercentOf(excess, s.TotalBudget).Mul(decimal.NewFromInt(100)))
	}

	for _, r := range pending {
		if !r.IsApplied && r.Confidence >= highConfidenceThreshold {
			score = score.Sub(decimal.NewFromInt(unappliedPenalty))
		}
	}

	out := int(score.Round(0).IntPart())
	if out < 0 {
		return 0
	}
	if out > 100 {
		return 100
	}
	return out
}
