/*
reconcile.go - Merge with a diverged remote snapshot

PURPOSE:
  When a push comes back as a conflict, the remote state diverged: a
  collaborator edited concurrently. The resync policy is last-write-wins
  per category, keyed by the revision counter; a local change that loses
  is re-surfaced as a sync_conflict warning rather than silently dropped.
  The merged state is re-validated (guard.go) and emitted to subscribers
  as a reconciliation snapshot.
*/
package budget

// Reconcile merges the server's snapshot into the store and emits the
// merged snapshot to subscribers. Per category, the higher revision wins;
// overridden local edits become WarnSyncConflict entries on the emitted
// snapshot.
func (s *AllocationStore) Reconcile(server Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var conflicts []Warning

	// Total budget follows the store-level revision.
	if server.Revision > s.revision && server.TotalBudget != s.totalBudget {
		s.totalBudget = server.TotalBudget
	}

	local := make(map[CategoryID]int, len(s.categories))
	for i, c := range s.categories {
		local[c.ID] = i
	}

	for _, sd := range server.Categories {
		sc := sd.Category
		i, ok := local[sc.ID]
		if !ok {
			// Category created by a collaborator.
			s.categories = append(s.categories, sc)
			continue
		}

		lc := s.categories[i]
		if sc.Revision > lc.Revision {
			if !sameCategoryState(lc, sc) {
				conflicts = append(conflicts, Warning{
					Code:       WarnSyncConflict,
					CategoryID: lc.ID,
					Message:    lc.Name + " was edited by a collaborator; their change won",
				})
			}
			s.categories[i] = sc
		}
		// Local revision >= server: keep ours; the next push carries it.
	}

	s.sortLocked()

	if s.revision < server.Revision {
		s.revision = server.Revision
	}
	if len(conflicts) > 0 {
		s.syncStatus = SyncConflict
	} else {
		s.syncStatus = SyncSynced
	}

	return s.commitLocked(conflicts)
}

func sameCategoryState(a, b Category) bool {
	return a.Name == b.Name &&
		a.Allocated == b.Allocated &&
		a.Spent == b.Spent &&
		a.Active == b.Active &&
		a.SortOrder == b.SortOrder &&
		a.AllowsOverspend == b.AllowsOverspend
}
