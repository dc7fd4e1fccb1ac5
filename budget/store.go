/*
store.go - AllocationStore, the single source of truth

PURPOSE:
  AllocationStore holds the total budget and the ordered category list,
  and owns every mutation entry point. UI surfaces never mutate category
  state directly; they construct mutation requests (a typed amount, a
  gesture delta, an auto-balance, a recommendation) and read back the
  post-mutation snapshot.

ATOMICITY:
  Every mutation is fully applied or fully rejected, never partial. A
  mutex serializes mutations (single-writer queue): one mutation runs to
  completion - including derivation, warning evaluation and subscriber
  fan-out - before the next starts, so no reader ever observes an
  interleaved partial state.

SUBSCRIBERS:
  Subscribe registers a callback that receives the full immutable snapshot
  after every successful mutation. Callbacks run on the mutating
  goroutine while the store lock is held; they must not call mutation
  methods re-entrantly (dispatch to another goroutine for that).

WARNINGS:
  Over-allocation and over-spend are warning states, not rejections. The
  engine never blocks recording real-world spend and never silently clamps
  an over-planned allocation.

SEE ALSO:
  - balancer.go: proportional redistribution invoked by ReviseTotalBudget
  - recommend.go: recommendation application
  - reconcile.go: merge with the remote store's state
*/
package budget

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/warp/budget-engine/money"
)

// =============================================================================
// ALLOCATION STORE
// =============================================================================

// Subscriber receives the post-mutation snapshot.
type Subscriber func(Snapshot)

type AllocationStore struct {
	mu sync.Mutex

	totalBudget money.Money
	categories  []Category // kept sorted by SortOrder
	revision    int64

	applied    map[string]AppliedRecommendation
	syncStatus SyncStatus

	subs      map[int]Subscriber
	nextSubID int
}

// NewStore creates a store for a wedding with the given total budget.
func NewStore(totalBudget money.Money) *AllocationStore {
	return &AllocationStore{
		totalBudget: totalBudget,
		applied:     make(map[string]AppliedRecommendation),
		syncStatus:  SyncPending,
		subs:        make(map[int]Subscriber),
	}
}

// NewStoreFromSnapshot rebuilds a store from a persisted snapshot, e.g.
// after pulling from the remote store at startup.
func NewStoreFromSnapshot(s Snapshot) *AllocationStore {
	st := NewStore(s.TotalBudget)
	st.revision = s.Revision
	st.syncStatus = s.SyncStatus
	for _, d := range s.Categories {
		st.categories = append(st.categories, d.Category)
	}
	st.sortLocked()
	return st
}

// Currency returns the store's currency code.
func (s *AllocationStore) Currency() string { return s.totalBudget.Currency }

// =============================================================================
// SUBSCRIPTION
// =============================================================================

// Subscribe registers fn for snapshot fan-out and returns an unsubscribe
// function. The current snapshot is not replayed; call Snapshot() for it.
func (s *AllocationStore) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Snapshot returns the current state without mutating anything.
func (s *AllocationStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(nil)
}

// =============================================================================
// MUTATIONS - allocation
// =============================================================================

// SetCategoryAllocation sets a category's allocation directly (the slider
// and typed-entry path). Any non-negative amount is accepted: exceeding
// the remaining budget is a warning state, not a rejection, because users
// must be able to over-plan temporarily and resolve later.
func (s *AllocationStore) SetCategoryAllocation(id CategoryID, amount money.Money) (Snapshot, error) {
	if amount.IsNegative() {
		return Snapshot{}, ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.categories[i].Allocated = amount
	return s.commitLocked(nil, id), nil
}

// ApplyGestureDelta adds a (possibly negative) delta to a category's
// allocation, floored at the category's spent amount: a drag can never
// pull an allocation below what is already spent.
func (s *AllocationStore) ApplyGestureDelta(id CategoryID, delta money.Money) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(id)
	if err != nil {
		return Snapshot{}, err
	}

	cat := &s.categories[i]
	next, aerr := money.Add(cat.Allocated, delta)
	if aerr != nil {
		return Snapshot{}, aerr
	}
	next = next.Max(cat.Spent)

	cat.Allocated = next
	return s.commitLocked(nil, id), nil
}

// =============================================================================
// MUTATIONS - category lifecycle
// =============================================================================

// CategoryOptions carries the optional fields of a new category.
type CategoryOptions struct {
	Color           string
	AlertThreshold  *money.Ratio
	AllowsOverspend bool
}

// AddCategory creates a category with zero spend and the given initial
// allocation. Returns the generated id.
func (s *AllocationStore) AddCategory(name string, initial money.Money) (CategoryID, Snapshot, error) {
	return s.AddCategoryWithOptions(name, initial, CategoryOptions{})
}

func (s *AllocationStore) AddCategoryWithOptions(name string, initial money.Money, opts CategoryOptions) (CategoryID, Snapshot, error) {
	if initial.IsNegative() {
		return "", Snapshot{}, ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := CategoryID(uuid.NewString())
	order := 0
	for _, c := range s.categories {
		if c.SortOrder >= order {
			order = c.SortOrder + 1
		}
	}

	s.categories = append(s.categories, Category{
		ID:              id,
		Name:            name,
		Allocated:       initial,
		Spent:           money.Zero(s.totalBudget.Currency),
		AlertThreshold:  opts.AlertThreshold,
		AllowsOverspend: opts.AllowsOverspend,
		SortOrder:       order,
		Color:           opts.Color,
		Active:          true,
	})

	return id, s.commitLocked(nil, id), nil
}

// RemoveCategory physically removes a category. Only permitted while the
// category has no recorded spend; otherwise the caller must archive it so
// the audit trail survives.
func (s *AllocationStore) RemoveCategory(id CategoryID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(id)
	if err != nil {
		return Snapshot{}, err
	}
	if !s.categories[i].Spent.IsZero() {
		return Snapshot{}, &CategoryHasActivityError{ID: id, Spent: s.categories[i].Spent}
	}

	s.categories = append(s.categories[:i], s.categories[i+1:]...)
	return s.commitLocked(nil), nil
}

// ArchiveCategory soft-deletes a category: it stays in snapshots with its
// spend history but drops out of the active aggregates.
func (s *AllocationStore) ArchiveCategory(id CategoryID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(id)
	if err != nil {
		return Snapshot{}, err
	}

	s.categories[i].Active = false
	return s.commitLocked(nil, id), nil
}

// Reorder re-sorts the categories. ids must name every current category
// exactly once.
func (s *AllocationStore) Reorder(ids []CategoryID) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(ids) != len(s.categories) {
		return Snapshot{}, ErrInvalidReorder
	}
	seen := make(map[CategoryID]int, len(ids))
	for pos, id := range ids {
		if _, dup := seen[id]; dup {
			return Snapshot{}, ErrInvalidReorder
		}
		if _, err := s.indexLocked(id); err != nil {
			return Snapshot{}, ErrInvalidReorder
		}
		seen[id] = pos
	}

	for i := range s.categories {
		s.categories[i].SortOrder = seen[s.categories[i].ID]
	}
	s.sortLocked()
	return s.commitLocked(nil, ids...), nil
}

// =============================================================================
// MUTATIONS - spend
// =============================================================================

// RecordExpense increases a category's spent amount. The spend already
// happened in reality, so the mutation always succeeds; when a category
// that does not allow overspend goes over its allocation, the triggered
// OverBudgetWarning is returned alongside the updated snapshot.
func (s *AllocationStore) RecordExpense(id CategoryID, amount money.Money) (Snapshot, *Warning, error) {
	if amount.IsNegative() {
		return Snapshot{}, nil, ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.indexLocked(id)
	if err != nil {
		return Snapshot{}, nil, err
	}

	cat := &s.categories[i]
	next, aerr := money.Add(cat.Spent, amount)
	if aerr != nil {
		return Snapshot{}, nil, aerr
	}
	cat.Spent = next

	var triggered *Warning
	if !cat.AllowsOverspend && cat.Spent.GreaterThan(cat.Allocated) {
		excess, _ := money.Sub(cat.Spent, cat.Allocated)
		triggered = &Warning{
			Code:       WarnOverBudget,
			CategoryID: id,
			Excess:     excess,
			Message:    cat.Name + " went over its allocation",
		}
	}

	return s.commitLocked(nil, id), triggered, nil
}

// =============================================================================
// MUTATIONS - budget
// =============================================================================

// ReviseTotalBudget changes the total budget. With rebalance, the free
// pool is immediately redistributed by the auto-balancer; if balancing is
// impossible (spend already exceeds the new total) the whole revision is
// rejected and the previous total stands.
func (s *AllocationStore) ReviseTotalBudget(newTotal money.Money, rebalance bool) (Snapshot, error) {
	if newTotal.IsNegative() {
		return Snapshot{}, ErrNegativeAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !rebalance {
		s.totalBudget = newTotal
		return s.commitLocked(nil, s.activeIDsLocked()...), nil
	}

	active := s.activeLocked()
	allocations, err := BalanceAllocations(newTotal, active)
	if err != nil {
		return Snapshot{}, err
	}

	s.totalBudget = newTotal
	s.applyAllocationsLocked(active, allocations)
	return s.commitLocked(nil, s.activeIDsLocked()...), nil
}

// AutoBalance redistributes the free pool across active categories in one
// atomic replace of every allocation - subscribers never observe a
// per-category partial pass.
func (s *AllocationStore) AutoBalance() (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.activeLocked()
	allocations, err := BalanceAllocations(s.totalBudget, active)
	if err != nil {
		return Snapshot{}, err
	}

	s.applyAllocationsLocked(active, allocations)
	return s.commitLocked(nil, s.activeIDsLocked()...), nil
}

// =============================================================================
// SYNC BOUNDARY
// =============================================================================

// SetSyncStatus records the boundary state reported on subsequent
// snapshots. It is not a mutation: no fan-out happens, since sync state
// changes on every push attempt and subscribers only care about it
// alongside real changes and reconciliations.
func (s *AllocationStore) SetSyncStatus(status SyncStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncStatus = status
}

// =============================================================================
// INTERNALS
// =============================================================================

func (s *AllocationStore) indexLocked(id CategoryID) (int, error) {
	for i, c := range s.categories {
		if c.ID == id {
			return i, nil
		}
	}
	return 0, &UnknownCategoryError{ID: id}
}

func (s *AllocationStore) sortLocked() {
	sort.SliceStable(s.categories, func(i, j int) bool {
		return s.categories[i].SortOrder < s.categories[j].SortOrder
	})
}

func (s *AllocationStore) activeLocked() []Category {
	var out []Category
	for _, c := range s.categories {
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}

func (s *AllocationStore) activeIDsLocked() []CategoryID {
	var out []CategoryID
	for _, c := range s.categories {
		if c.Active {
			out = append(out, c.ID)
		}
	}
	return out
}

// applyAllocationsLocked replaces the allocations of the given active
// categories in one pass. allocations is index-aligned with active.
func (s *AllocationStore) applyAllocationsLocked(active []Category, allocations []money.Money) {
	byID := make(map[CategoryID]money.Money, len(active))
	for i, c := range active {
		byID[c.ID] = allocations[i]
	}
	for i := range s.categories {
		if next, ok := byID[s.categories[i].ID]; ok {
			s.categories[i].Allocated = next
		}
	}
}

// commitLocked finalizes a successful mutation: bumps the store revision,
// stamps the touched categories, rebuilds the snapshot (derivation and
// warnings in the same pass) and fans it out to subscribers.
func (s *AllocationStore) commitLocked(extraWarnings []Warning, touched ...CategoryID) Snapshot {
	s.revision++
	for _, id := range touched {
		if i, err := s.indexLocked(id); err == nil {
			s.categories[i].Revision = s.revision
		}
	}

	snap := s.snapshotLocked(extraWarnings)
	for _, fn := range s.subs {
		fn(snap)
	}
	return snap
}

func (s *AllocationStore) snapshotLocked(extraWarnings []Warning) Snapshot {
	derived, allocated, spent := deriveAll(s.totalBudget, s.categories)

	unallocated, _ := money.Sub(s.totalBudget, allocated)

	warnings := EvaluateWarnings(s.totalBudget, allocated, derived)
	warnings = append(warnings, extraWarnings...)

	// Copy so the snapshot is detached from store state.
	cats := make([]DerivedCategory, len(derived))
	copy(cats, derived)

	return Snapshot{
		TotalBudget:    s.totalBudget,
		Categories:     cats,
		TotalAllocated: allocated,
		TotalSpent:     spent,
		Unallocated:    unallocated,
		Warnings:       warnings,
		SyncStatus:     s.syncStatus,
		Revision:       s.revision,
	}
}
