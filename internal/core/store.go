package core

import "sync/atomic"

// Store holds the single active snapshot shared by all requests.
//
// Replacement is a pointer swap, so a reader sees either the previous
// snapshot or the new one, never a mix. Snapshots are immutable once stored.
type Store struct {
	active atomic.Pointer[Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Load makes snap the active snapshot. A nil snap is ignored.
func (s *Store) Load(snap *Snapshot) {
	if snap == nil || snap.Table == nil {
		return
	}
	s.active.Store(snap)
}

// Current returns the active snapshot. The boolean is false when nothing
// has been loaded, which is distinct from a loaded table with zero rows.
func (s *Store) Current() (*Snapshot, bool) {
	snap := s.active.Load()
	return snap, snap != nil
}
