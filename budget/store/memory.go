// Package store provides RemoteStore implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/budget-engine/budget"
)

// =============================================================================
// MEMORY REMOTE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	snapshot budget.Snapshot
	stored   bool

	expenses map[budget.CategoryID][]budget.ExpenseRecord
	order    []budget.ExpenseRecord
}

func NewMemory() *Memory {
	return &Memory{
		expenses: make(map[budget.CategoryID][]budget.ExpenseRecord),
	}
}

// Push accepts the snapshot when the server state is not ahead of it;
// otherwise it reports a conflict carrying the server snapshot so the
// engine can reconcile.
func (m *Memory) Push(_ context.Context, snap budget.Snapshot) (budget.PushResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stored && m.snapshot.Revision > snap.Revision {
		return budget.PushResult{Ack: false, Server: m.snapshot}, nil
	}

	m.snapshot = snap
	m.stored = true
	return budget.PushResult{Ack: true}, nil
}

func (m *Memory) Pull(_ context.Context) (budget.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.stored {
		return budget.Snapshot{}, budget.ErrNoSnapshot
	}
	return m.snapshot, nil
}

// Replace overwrites the server state unconditionally, simulating a
// concurrent edit from a collaborator's device.
func (m *Memory) Replace(snap budget.Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot = snap
	m.stored = true
}

// =============================================================================
// EXPENSE LOG - Append-only
// =============================================================================

func (m *Memory) AppendExpense(_ context.Context, rec budget.ExpenseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.expenses[rec.CategoryID] = append(m.expenses[rec.CategoryID], rec)
	m.order = append(m.order, rec)
	return nil
}

func (m *Memory) Expenses(_ context.Context, categoryID budget.CategoryID) ([]budget.ExpenseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]budget.ExpenseRecord, len(m.expenses[categoryID]))
	copy(out, m.expenses[categoryID])
	return out, nil
}

func (m *Memory) AllExpenses(_ context.Context) ([]budget.ExpenseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]budget.ExpenseRecord, len(m.order))
	copy(out, m.order)
	return out, nil
}
