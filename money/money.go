/*
Package money provides a fixed-point currency value type.

PURPOSE:
  Every amount in the budget engine - allocations, spend, savings - is a
  Money value: an integer count of minor currency units (pence, cents)
  plus a currency code. There is no floating-point representation
  anywhere in the arithmetic, so sums never drift.

KEY CONCEPTS IN THIS FILE (money.go):
  - Money: integer minor units + currency code
  - Ratio: a decimal.Decimal proportion (percentages, utilization, weights)
  - SplitProportional: exact division of a total into parts that sum back

DESIGN PRINCIPLES:
  1. Integer math: additions and subtractions are plain int64 operations
  2. Exactness: splitting a total always reproduces the total (largest
     remainder method), never "close to"
  3. No silent negatives: contexts that forbid negative results get a
     typed NegativeResultError instead of a clamped value
  4. Display is not our problem: formatting/locale belongs to the UI layer

USAGE:
  total := money.New(1_000_000, "GBP") // £10,000.00
  parts, err := money.SplitProportional(total, []int64{400, 250, 100})
  // parts sum to exactly 1,000,000

SEE ALSO:
  - budget/ledger.go: derived per-category metrics built on Ratio
  - budget/balancer.go: proportional redistribution using SplitProportional
*/
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Integer minor units with a currency code
// =============================================================================

type Money struct {
	// Units is the amount in minor currency units (pence, cents).
	Units int64
	// Currency is an ISO 4217 code. Arithmetic across currencies is refused.
	Currency string
}

func New(units int64, currency string) Money {
	return Money{Units: units, Currency: currency}
}

func Zero(currency string) Money {
	return Money{Units: 0, Currency: currency}
}

func (m Money) IsZero() bool     { return m.Units == 0 }
func (m Money) IsNegative() bool { return m.Units < 0 }
func (m Money) IsPositive() bool { return m.Units > 0 }

func (m Money) Neg() Money { return Money{Units: -m.Units, Currency: m.Currency} }

func (m Money) GreaterThan(o Money) bool { return m.Units > o.Units }
func (m Money) LessThan(o Money) bool    { return m.Units < o.Units }

func (m Money) Min(o Money) Money {
	if m.Units < o.Units {
		return m
	}
	return o
}

func (m Money) Max(o Money) Money {
	if m.Units > o.Units {
		return m
	}
	return o
}

func (m Money) String() string {
	return fmt.Sprintf("%d %s", m.Units, m.Currency)
}

// =============================================================================
// RATIO - Exact decimal proportions
// =============================================================================

// Ratio is a decimal proportion (e.g. 0.4 = 40%). Ratios never carry a
// currency; they are what percentage, utilization and weight computations
// produce and consume.
type Ratio = decimal.Decimal

var (
	RatioZero = decimal.Zero
	RatioOne  = decimal.NewFromInt(1)
)

func NewRatio(s string) (Ratio, error) {
	return decimal.NewFromString(s)
}

func MustRatio(s string) Ratio {
	r, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return r
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNegativeResult is returned when an operation in a non-negative
	// context would produce a value below zero.
	ErrNegativeResult = errors.New("negative result")

	// ErrCurrencyMismatch is returned when combining values of different
	// currencies. The engine is single-currency; conversion is out of scope.
	ErrCurrencyMismatch = errors.New("currency mismatch")

	// ErrEmptyWeights is returned when a proportional split receives no weights.
	ErrEmptyWeights = errors.New("empty weights")
)

// NegativeResultError reports the operands of a subtraction that went
// below zero in a context that forbids it.
type NegativeResultError struct {
	From     Money
	Subtract Money
}

func (e *NegativeResultError) Error() string {
	return fmt.Sprintf("negative result: %s - %s", e.From, e.Subtract)
}

func (e *NegativeResultError) Unwrap() error { return ErrNegativeResult }

// =============================================================================
// ARITHMETIC
// =============================================================================

// Add returns a+b. Panics are never used; a currency mismatch is an error.
func Add(a, b Money) (Money, error) {
	if err := sameCurrency(a, b); err != nil {
		return Money{}, err
	}
	return Money{Units: a.Units + b.Units, Currency: a.Currency}, nil
}

// Sub returns a-b, which may be negative. Callers that must not see a
// negative value use SubNonNegative.
func Sub(a, b Money) (Money, error) {
	if err := sameCurrency(a, b); err != nil {
		return Money{}, err
	}
	return Money{Units: a.Units - b.Units, Currency: a.Currency}, nil
}

// SubNonNegative returns a-b, failing with NegativeResultError when the
// result would be below zero.
func SubNonNegative(a, b Money) (Money, error) {
	out, err := Sub(a, b)
	if err != nil {
		return Money{}, err
	}
	if out.IsNegative() {
		return Money{}, &NegativeResultError{From: a, Subtract: b}
	}
	return out, nil
}

// Sum adds a slice of values, starting from zero in the given currency.
func Sum(currency string, values ...Money) (Money, error) {
	total := Zero(currency)
	for _, v := range values {
		var err error
		total, err = Add(total, v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// PercentOf returns part/whole as a Ratio. A zero whole yields a zero
// ratio rather than a division fault.
func PercentOf(part, whole Money) Ratio {
	if whole.Units == 0 {
		return RatioZero
	}
	return decimal.NewFromInt(part.Units).Div(decimal.NewFromInt(whole.Units))
}

// =============================================================================
// PROPORTIONAL SPLIT - Largest-remainder allocation
// =============================================================================

// SplitProportional divides total into len(weights) parts proportional to
// the weights, guaranteeing sum(result) == total exactly.
//
// Method: each part gets floor(total * w_i / sumWeights); the leftover
// units (always fewer than len(weights)) go one each to the parts with the
// largest remainders, earlier index winning ties. All-zero weights fall
// back to an equal split so empty categories are never starved.
func SplitProportional(total Money, weights []int64) ([]Money, error) {
	if len(weights) == 0 {
		return nil, ErrEmptyWeights
	}

	var sumWeights int64
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("negative weight %d: %w", w, ErrNegativeResult)
		}
		sumWeights += w
	}

	// Equal-split fallback: treat every part as weight 1.
	if sumWeights == 0 {
		equal := make([]int64, len(weights))
		for i := range equal {
			equal[i] = 1
		}
		return SplitProportional(total, equal)
	}

	parts := make([]Money, len(weights))
	remainders := make([]int64, len(weights))
	var assigned int64

	for i, w := range weights {
		// floor(total * w / sumWeights) with the remainder kept for ranking.
		// Products fit int64 for realistic budgets; decimal covers the rest.
		q, r := mulDiv(total.Units, w, sumWeights)
		parts[i] = Money{Units: q, Currency: total.Currency}
		remainders[i] = r
		assigned += q
	}

	leftover := total.Units - assigned
	for leftover > 0 {
		best := -1
		var bestRem int64 = -1
		for i, r := range remainders {
			if r > bestRem {
				best, bestRem = i, r
			}
		}
		parts[best].Units++
		remainders[best] = -1 // consumed
		leftover--
	}

	return parts, nil
}

// mulDiv computes (a*b)/d and (a*b)%d without overflowing int64, falling
// back to decimal arithmetic when the direct product would not fit.
func mulDiv(a, b, d int64) (quo, rem int64) {
	if a == 0 || b == 0 {
		return 0, 0
	}
	if willOverflow(a, b) {
		prod := decimal.NewFromInt(a).Mul(decimal.NewFromInt(b))
		q, r := prod.QuoRem(decimal.NewFromInt(d), 0)
		return q.IntPart(), r.IntPart()
	}
	p := a * b
	return p / d, p % d
}

func willOverflow(a, b int64) bool {
	const maxInt64 = int64(^uint64(0) >> 1)
	return a > maxInt64/b
}

func sameCurrency(a, b Money) error {
	if a.Currency != b.Currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, a.Currency, b.Currency)
	}
	return nil
}
