// Package state holds the single now-playing aggregate shared by the
// ingestion and render paths.
package state

import (
	"sync"

	"github.com/genricoloni/marquee/internal/domain"
)

// Mutation is a change to the now-playing aggregate, such as a decoded
// metadata event.
type Mutation interface {
	Mutate(np *domain.NowPlaying)
}

// Store guards a domain.NowPlaying. Writers go through Apply or Update,
// readers take snapshots; both hold the same lock so a snapshot never
// observes a half-applied mutation.
type Store struct {
	mu      sync.RWMutex
	np      domain.NowPlaying
	changed chan struct{}
}

// NewStore creates a store holding the startup defaults
func NewStore() *Store {
	return &Store{
		np:      domain.NewNowPlaying(),
		changed: make(chan struct{}, 1),
	}
}

// Apply runs m against the aggregate
func (s *Store) Apply(m Mutation) {
	s.mu.Lock()
	m.Mutate(&s.np)
	s.mu.Unlock()
	s.notify()
}

// Update runs fn against the aggregate. fn must not retain the pointer.
func (s *Store) Update(fn func(np *domain.NowPlaying)) {
	s.mu.Lock()
	fn(&s.np)
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a consistent copy of the aggregate
func (s *Store) Snapshot() domain.NowPlaying {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.np
}

// ClearArtPending marks the current album art as consumed
func (s *Store) ClearArtPending() {
	s.mu.Lock()
	s.np.ArtPending = false
	s.mu.Unlock()
}

// ConsumeSnapshot returns a snapshot and clears ArtPending in the same
// critical section, so art arriving after the snapshot stays pending.
func (s *Store) ConsumeSnapshot() domain.NowPlaying {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.np
	s.np.ArtPending = false
	return snap
}

// Changed signals after mutations. Notifications coalesce: one receive may
// stand for several mutations.
func (s *Store) Changed() <-chan struct{} {
	return s.changed
}

func (s *Store) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}
