package state

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerStaleTicket(t *testing.T) {
	sm := NewManager()
	monday := time.Date(2026, 10, 26, 0, 0, 0, 0, time.UTC)

	first := sm.Select(1, "doc-a", monday)
	second := sm.Select(1, "doc-a", monday.AddDate(0, 0, 1))

	assert.False(t, sm.IsCurrent(1, first))
	assert.True(t, sm.IsCurrent(1, second))

	sel, ok := sm.Current(1)
	require.True(t, ok)
	assert.Equal(t, monday.AddDate(0, 0, 1), sel.Date)

	// другой чат не влияет
	other := sm.Select(2, "doc-b", monday)
	assert.True(t, sm.IsCurrent(1, second))
	assert.True(t, sm.IsCurrent(2, other))
}

func TestManagerClear(t *testing.T) {
	sm := NewManager()
	assert.False(t, sm.Clear(1))

	ticket := sm.Select(1, "doc-a", time.Now())
	assert.True(t, sm.Clear(1))
	assert.False(t, sm.IsCurrent(1, ticket))

	_, ok := sm.Current(1)
	assert.False(t, ok)
}

func TestManagerConcurrentSelect(t *testing.T) {
	sm := NewManager()
	var wg sync.WaitGroup
	tickets := make(chan uint64, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tickets <- sm.Select(7, "doc-a", time.Now())
		}()
	}
	wg.Wait()
	close(tickets)

	seen := make(map[uint64]bool)
	current := 0
	for ticket := range tickets {
		assert.False(t, seen[ticket], "tickets are unique")
		seen[ticket] = true
		if sm.IsCurrent(7, ticket) {
			current++
		}
	}
	assert.Equal(t, 1, current)
}
