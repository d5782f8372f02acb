package tl2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWordLockAcquireRelease(t *testing.T) {
	var l wordLock

	v, locked := l.observe()
	require.False(t, locked)
	require.Equal(t, uint64(0), v)

	require.True(t, l.tryAcquire())
	require.False(t, l.tryAcquire(), "second acquire must fail while held")

	_, locked = l.observe()
	require.True(t, locked)

	l.releaseAndUpdate(7)
	v, locked = l.observe()
	require.False(t, locked)
	require.Equal(t, uint64(7), v)
}

func TestWordLockReleasePreservesNoVersionBump(t *testing.T) {
	var l wordLock
	l.releaseAndUpdate(3)
	require.True(t, l.tryAcquire())
	l.release()
	v, locked := l.observe()
	require.False(t, locked)
	require.Equal(t, uint64(3), v, "release without update must not advance the version")
}
