/*
persist.go - Remote store interface (persistence/sync collaborator)

PURPOSE:
  The engine applies every mutation to its in-memory snapshot immediately
  (optimistic) and reconciles with a remote, eventually-consistent store
  later. This file defines the interface that collaborator exposes; the
  engine never blocks on it and never fails a mutation because of it.

CONTRACT:
  Push(snapshot) -> ack, or conflict carrying the server's snapshot when
  the remote state diverged (a collaborator edited concurrently). A
  conflict is the signal to merge (reconcile.go) and re-validate.

  Pull() -> the server's current snapshot, e.g. at startup.

  A canceled push leaves the optimistic in-memory state intact until the
  next successful sync.

IMPLEMENTATIONS:
  - store/memory: in-memory remote for tests and development
  - store/sqlite: SQLite-backed remote with an append-only expense log
*/
package budget

import (
	"context"
	"errors"
)

// ErrNoSnapshot is returned by Pull when the remote has never been
// pushed to.
var ErrNoSnapshot = errors.New("no snapshot stored")

// PushResult is the remote's answer to a push: an ack, or a conflict
// carrying the server's snapshot for reconciliation.
type PushResult struct {
	Ack    bool
	Server Snapshot
}

// RemoteStore is the persistence/sync collaborator. It consumes
// {totalBudget, categories} snapshots with their per-category revision
// counters.
type RemoteStore interface {
	Push(ctx context.Context, snap Snapshot) (PushResult, error)
	Pull(ctx context.Context) (Snapshot, error)
}
