package tl2

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionClockMonotonic(t *testing.T) {
	var c versionClock
	require.Equal(t, uint64(0), c.snapshot())
	require.Equal(t, uint64(1), c.tick())
	require.Equal(t, uint64(2), c.tick())
	require.Equal(t, uint64(2), c.snapshot())
}

func TestVersionClockConcurrentTicksAreDistinct(t *testing.T) {
	var c versionClock
	const n = 1000
	seen := make([]uint64, n)

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		go func() {
			defer wg.Done()
			seen[i] = c.tick()
		}()
	}
	wg.Wait()

	dedup := make(map[uint64]bool, n)
	for _, v := range seen {
		require.False(t, dedup[v], "tick() returned a duplicate value: %d", v)
		dedup[v] = true
	}
	require.Equal(t, uint64(n), c.snapshot())
}
