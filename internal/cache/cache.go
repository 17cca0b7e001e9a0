package cache

import (
	"sync"
	"time"
)

// Snapshot holds the most recent value of something expensive to fetch, along with
// when it was stored. It never expires on its own; callers decide when to refresh.
type Snapshot[T any] struct {
	mu        sync.RWMutex
	value     T
	fetchedAt time.Time
	populated bool
	now       func() time.Time
}

// NewSnapshot creates an empty snapshot
func NewSnapshot[T any]() *Snapshot[T] {
	return &Snapshot[T]{now: time.Now}
}

// Get returns the stored value and whether one has been stored
func (s *Snapshot[T]) Get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.populated
}

// Set replaces the stored value and stamps it with the current time
func (s *Snapshot[T]) Set(val T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.value = val
	s.populated = true
	if s.now != nil {
		s.fetchedAt = s.now()
	} else {
		s.fetchedAt = time.Now()
	}
}

// FetchedAt returns when the value was last stored, or the zero time if never
func (s *Snapshot[T]) FetchedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fetchedAt
}

// Age returns how long ago the value was stored. Zero if nothing is stored.
func (s *Snapshot[T]) Age() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.populated {
		return 0
	}
	return time.Since(s.fetchedAt)
}
