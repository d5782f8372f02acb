package tl2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSet() *addrSet {
	st := newStripeTable(64)
	return newAddrSet(st, 4, 0.75, 2)
}

func TestAddrSetAddReadIdempotent(t *testing.T) {
	s := newTestSet()
	s.addRead(8)
	s.addRead(8)
	s.addRead(8)
	require.Equal(t, 1, s.count)
}

func TestAddrSetAddWriteDedupOverwrites(t *testing.T) {
	s := newTestSet()
	a := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	s.addWrite(a, 8, 16)
	s.addWrite(b, 8, 16)
	require.Equal(t, 1, s.count, "writing the same target twice must not duplicate the entry")

	dst := make([]byte, 8)
	require.True(t, s.readThrough(16, dst))
	require.Equal(t, b, dst)
}

func TestAddrSetReadThroughMissing(t *testing.T) {
	s := newTestSet()
	dst := make([]byte, 8)
	require.False(t, s.readThrough(999, dst))
}

func TestAddrSetGrowPreservesEntriesAndBitmap(t *testing.T) {
	s := newTestSet()
	src := make([]byte, 8)
	targets := []uintptr{8, 16, 24, 32, 40, 48, 56, 64, 72, 80}
	for _, target := range targets {
		s.addWrite(src, 8, target)
	}
	require.Equal(t, len(targets), s.count)

	for _, target := range targets {
		dst := make([]byte, 8)
		require.True(t, s.readThrough(target, dst))
	}

	// The bitmap must still be an exact summary of stripe coverage after
	// growth.
	for _, target := range targets {
		idx := s.stripes.indexOf(target)
		require.True(t, s.hasStripe(idx))
	}
}

func TestAddrSetLockBitmapIterIsSortedAscending(t *testing.T) {
	s := newTestSet()
	for _, target := range []uintptr{800, 8, 400, 16, 1600} {
		s.addRead(target)
	}
	idxs := s.lockBitmapIter()
	for i := 1; i < len(idxs); i++ {
		require.Less(t, idxs[i-1], idxs[i])
	}
}

func TestAddrSetNoDuplicateTargetsAfterRepeatedWrites(t *testing.T) {
	s := newTestSet()
	src := make([]byte, 8)
	for i := 0; i < 5; i++ {
		s.addWrite(src, 8, 8)
	}
	require.Equal(t, 1, s.count, "repeated writes to the same target must reuse the slot")
}
