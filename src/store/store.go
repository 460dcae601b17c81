// Package store holds the latest dashboard snapshot per target.
package store

import (
	"errors"
	"fmt"
	"sync"

	"jobhealth/src/contracts"
)

// ErrNotFound is returned when no snapshot or job matches a lookup.
var ErrNotFound = errors.New("not found")

// SnapshotStore keeps the newest snapshot for each target.
// Snapshots are replaced wholesale; a snapshot with a generation no newer
// than the stored one is discarded so a slow refresh cannot overwrite a
// fresher result.
type SnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*contracts.DashboardSnapshot // Target.String() -> snapshot
}

// NewSnapshotStore creates an empty store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[string]*contracts.DashboardSnapshot),
	}
}

// Put stores snap if it is newer than the current snapshot for its target.
// It reports whether the snapshot was accepted.
func (s *SnapshotStore) Put(snap *contracts.DashboardSnapshot) bool {
	if snap == nil {
		return false
	}

	key := snap.Target.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, ok := s.snapshots[key]; ok && current.Generation >= snap.Generation {
		return false
	}
	s.snapshots[key] = snap
	return true
}

// Latest returns the current snapshot for target.
func (s *SnapshotStore) Latest(target contracts.Target) (*contracts.DashboardSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.snapshots[target.String()]
	if !ok {
		return nil, fmt.Errorf("snapshot for %s: %w", target, ErrNotFound)
	}
	return snap, nil
}

// Job returns one job aggregate from the current snapshot for target.
func (s *SnapshotStore) Job(target contracts.Target, key string) (contracts.JobHealth, error) {
	snap, err := s.Latest(target)
	if err != nil {
		return contracts.JobHealth{}, err
	}
	job, ok := snap.Job(key)
	if !ok {
		return contracts.JobHealth{}, fmt.Errorf("job %q in %s: %w", key, target, ErrNotFound)
	}
	return job, nil
}

// Targets lists the targets that have a snapshot.
func (s *SnapshotStore) Targets() []contracts.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()

	targets := make([]contracts.Target, 0, len(s.snapshots))
	for _, snap := range s.snapshots {
		targets = append(targets, snap.Target)
	}
	return targets
}
