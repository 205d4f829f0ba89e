// Package history keeps a bounded, time-ordered window of samples.
//
// A Store has a single writer. Appends go into a slab twice the capacity so
// that the live window is always a contiguous slice; when the slab is full
// the window is copied into a fresh slab, which keeps appends O(1) amortized.
// After every append the window is published through an atomic pointer, so
// readers never take a lock and never observe a half-written entry.
package history

import (
	"sync"
	"sync/atomic"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// Store is a fixed-capacity FIFO of samples.
type Store struct {
	capacity int

	mu    sync.Mutex // serializes writers
	slab  []domain.Sample
	start int
	end   int

	view atomic.Pointer[[]domain.Sample]
}

// New creates a store holding at most capacity samples. A non-positive
// capacity is treated as 1.
func New(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	s := &Store{
		capacity: capacity,
		slab:     make([]domain.Sample, 2*capacity),
	}
	empty := []domain.Sample{}
	s.view.Store(&empty)
	return s
}

// Append adds a sample at the tail, evicting the oldest one when full.
func (s *Store) Append(sample domain.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.end == len(s.slab) {
		// Readers may still hold views into the old slab, so compact into a
		// new one rather than in place.
		slab := make([]domain.Sample, 2*s.capacity)
		n := copy(slab, s.slab[s.start:s.end])
		s.slab, s.start, s.end = slab, 0, n
	}

	s.slab[s.end] = sample
	s.end++
	if s.end-s.start > s.capacity {
		// The evicted entry stays in the slab until compaction; published
		// views may still reference it.
		s.start++
	}

	window := s.slab[s.start:s.end:s.end]
	s.view.Store(&window)
}

// Snapshot returns the retained samples, oldest first. The returned slice is
// the caller's own.
func (s *Store) Snapshot() []domain.Sample {
	window := *s.view.Load()
	out := make([]domain.Sample, len(window))
	copy(out, window)
	return out
}

// Latest returns the most recent sample.
func (s *Store) Latest() (domain.Sample, bool) {
	window := *s.view.Load()
	if len(window) == 0 {
		return domain.Sample{}, false
	}
	return window[len(window)-1], true
}

// Len returns the number of retained samples.
func (s *Store) Len() int {
	return len(*s.view.Load())
}

// Cap returns the maximum number of retained samples.
func (s *Store) Cap() int {
	return s.capacity
}
