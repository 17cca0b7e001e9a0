package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_EmptyByDefault(t *testing.T) {
	s := NewSnapshot[[]string]()

	val, ok := s.Get()
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.True(t, s.FetchedAt().IsZero())
	assert.Zero(t, s.Age())
}

func TestSnapshot_SetStampsTime(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewSnapshot[[]string]()
	s.now = func() time.Time { return fixed }

	s.Set([]string{"a", "b"})

	val, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, val)
	assert.Equal(t, fixed, s.FetchedAt())
}

func TestSnapshot_EmptySliceIsStillPopulated(t *testing.T) {
	s := NewSnapshot[[]string]()
	s.Set([]string{})

	_, ok := s.Get()
	assert.True(t, ok, "an empty catalog is a valid snapshot")
}

func TestSnapshot_ConcurrentAccess(t *testing.T) {
	s := NewSnapshot[int]()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.Set(n)
		}(i)
		go func() {
			defer wg.Done()
			_, _ = s.Get()
		}()
	}
	wg.Wait()

	_, ok := s.Get()
	assert.True(t, ok)
}
