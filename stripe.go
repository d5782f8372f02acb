package tl2

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// DefaultNStripes is the default size of a Region's lock stripe table.
const DefaultNStripes = 4096

// stripeTable is the fixed-size array of versioned locks shared across
// every word in a Region. Every address maps to exactly one stripe
// through a well-mixed hash; collisions are false conflicts, never
// unsafe ones.
type stripeTable struct {
	locks []wordLock
}

func newStripeTable(n int) *stripeTable {
	if n <= 0 {
		n = DefaultNStripes
	}
	return &stripeTable{locks: make([]wordLock, n)}
}

func (t *stripeTable) size() int {
	return len(t.locks)
}

// indexOf hashes addr with murmur3 (64-bit Sum64) — target
// addresses are align-aligned so their low bits are dead, and murmur3's
// avalanche keeps that from biasing the stripe distribution even under
// a plain modulo reduction.
func (t *stripeTable) indexOf(addr uintptr) int {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(addr))
	h := murmur3.Sum64(buf[:])
	return int(h % uint64(len(t.locks)))
}

func (t *stripeTable) lockFor(addr uintptr) *wordLock {
	return &t.locks[t.indexOf(addr)]
}
