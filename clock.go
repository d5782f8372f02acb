package tl2

import "sync/atomic"

// versionClock is the single monotonic counter that orders every
// committed read-write transaction. It starts at 0.
type versionClock struct {
	v atomic.Uint64
}

// snapshot returns the most recent committed version visible to this
// goroutine; transactions take this as their read-version at begin.
func (c *versionClock) snapshot() uint64 {
	return c.v.Load()
}

// tick is the sole serialization point: it advances the clock and
// returns the new value, which becomes a committing transaction's
// write-version.
func (c *versionClock) tick() uint64 {
	return c.v.Add(1)
}
