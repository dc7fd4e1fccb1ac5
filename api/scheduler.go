/*
scheduler.go - Background sync scheduler

PURPOSE:
  Pushes engine snapshots to the remote store off the mutation path. The
  engine applies every mutation optimistically to its in-memory state;
  this scheduler owns the eventual consistency: it observes snapshots,
  pushes the latest one, and reconciles conflicts when a collaborator's
  device pushed in between.

DESIGN:
  - Subscribes to the store; the callback only flags "dirty" (it runs
    under the store lock and must not block or mutate)
  - A background goroutine coalesces pushes: only the latest snapshot
    matters, intermediate states are skipped
  - A ticker retries while offline
  - On conflict, Store.Reconcile merges last-write-wins per category and
    re-emits; the merged snapshot is pushed on the next pass
  - A canceled push leaves the optimistic in-memory state intact

USAGE:
  syncer := NewSyncScheduler(store, remote, log)
  syncer.Start()
  // ... later
  syncer.Stop()

SEE ALSO:
  - budget/persist.go: RemoteStore contract
  - budget/reconcile.go: merge policy
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/warp/budget-engine/budget"
)

// SyncScheduler pushes snapshots to the remote store in the background.
type SyncScheduler struct {
	Remote      budget.RemoteStore
	Interval    time.Duration
	PushTimeout time.Duration
	Log         zerolog.Logger

	mu          sync.Mutex
	store       *budget.AllocationStore
	unsubscribe func()

	dirty chan struct{}
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewSyncScheduler creates a scheduler for the given store and remote.
func NewSyncScheduler(store *budget.AllocationStore, remote budget.RemoteStore, log zerolog.Logger) *SyncScheduler {
	return &SyncScheduler{
		Remote:      remote,
		Interval:    30 * time.Second,
		PushTimeout: 10 * time.Second,
		Log:         log,
		store:       store,
		dirty:       make(chan struct{}, 1),
		stop:        make(chan struct{}),
	}
}

// Start begins the background sync loop.
func (s *SyncScheduler) Start() {
	s.mu.Lock()
	s.subscribeLocked()
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run()

	s.Log.Info().Dur("interval", s.Interval).Msg("sync scheduler started")
}

// Stop stops the loop and unsubscribes. Pending pushes are abandoned;
// the optimistic in-memory state is unaffected.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
}

// Rebind switches the scheduler to a new store (scenario loads replace
// the store wholesale).
func (s *SyncScheduler) Rebind(store *budget.AllocationStore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.store = store
	s.subscribeLocked()
	s.markDirty()
}

func (s *SyncScheduler) subscribeLocked() {
	// The callback runs under the store lock: flag and return.
	s.unsubscribe = s.store.Subscribe(func(budget.Snapshot) {
		s.markDirty()
	})
}

func (s *SyncScheduler) markDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *SyncScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-s.dirty:
			s.push()
		case <-ticker.C:
			s.push()
		}
	}
}

// push sends the latest snapshot; intermediate states are coalesced away.
func (s *SyncScheduler) push() {
	s.mu.Lock()
	store := s.store
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.PushTimeout)
	defer cancel()

	snap := store.Snapshot()
	res, err := s.Remote.Push(ctx, snap)
	if err != nil {
		store.SetSyncStatus(budget.SyncOffline)
		s.Log.Warn().Err(err).Int64("revision", snap.Revision).Msg("push failed")
		return
	}

	if !res.Ack {
		s.Log.Info().Int64("local_revision", snap.Revision).
			Int64("server_revision", res.Server.Revision).
			Msg("push conflict, reconciling")
		// The reconciliation snapshot re-flags dirty via the
		// subscription; the merged state goes out on the next pass.
		store.Reconcile(res.Server)
		return
	}

	store.SetSyncStatus(budget.SyncSynced)
}
