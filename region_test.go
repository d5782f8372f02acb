package tl2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegionValidatesSizeAndAlign(t *testing.T) {
	_, err := NewRegion(64, 3)
	require.Error(t, err, "align must be a power of two")

	_, err = NewRegion(65, 8)
	require.Error(t, err, "size must be a multiple of align")

	r, err := NewRegion(64, 8)
	require.NoError(t, err)
	require.Equal(t, uintptr(64), r.Size())
	require.Equal(t, uintptr(8), r.Align())
	require.Equal(t, uintptr(0), r.Start())
}

func TestRegionCloseRejectsLiveTransaction(t *testing.T) {
	r, err := NewRegion(64, 8)
	require.NoError(t, err)

	tx, err := r.Begin(true)
	require.NoError(t, err)

	require.Error(t, r.Close(), "close must refuse while a transaction is live")

	_, err = r.End(tx)
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestRegionAllocAndFreeDeferred(t *testing.T) {
	r, err := NewRegion(64, 8)
	require.NoError(t, err)

	tx, err := r.Begin(false)
	require.NoError(t, err)

	addr, err := r.Alloc(tx, 16)
	require.NoError(t, err)
	require.NotEqual(t, r.Start(), addr)

	committed, err := r.End(tx)
	require.NoError(t, err)
	require.True(t, committed)

	// Segment is visible to other transactions (allocation is not
	// transactional) — verified by reading it from a second transaction
	// begun after the allocating one ended.
	tx2, err := r.Begin(false)
	require.NoError(t, err)
	dst := make([]byte, 16)
	ok, err := r.Read(tx2, addr, 16, dst)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, make([]byte, 16), dst, "freshly allocated memory must be zero-filled")

	ok, err = r.Free(tx2, addr)
	require.NoError(t, err)
	require.True(t, ok)
	committed, err = r.End(tx2)
	require.NoError(t, err)
	require.True(t, committed)
}

func TestRegionAllocTooSmallBatchDoesNotReclaimImmediately(t *testing.T) {
	r, err := NewRegion(64, 8, WithFreeBatchSize(128), WithFreeBatchCumSize(1<<20))
	require.NoError(t, err)

	tx, err := r.Begin(false)
	require.NoError(t, err)
	addr, err := r.Alloc(tx, 8)
	require.NoError(t, err)
	_, err = r.End(tx)
	require.NoError(t, err)

	tx2, err := r.Begin(false)
	require.NoError(t, err)
	_, err = r.Free(tx2, addr)
	require.NoError(t, err)
	_, err = r.End(tx2)
	require.NoError(t, err)

	require.Equal(t, uint64(0), r.Stats().Reclaims, "a single small free must not trigger a reclaim pass")
}
