package tl2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripeTableIndexInRange(t *testing.T) {
	st := newStripeTable(64)
	for _, addr := range []uintptr{0, 8, 16, 4096, 1 << 20, ^uintptr(0)} {
		idx := st.indexOf(addr)
		require.GreaterOrEqual(t, idx, 0)
		require.Less(t, idx, 64)
	}
}

func TestStripeTableDefaultsWhenNonPositive(t *testing.T) {
	st := newStripeTable(0)
	require.Equal(t, DefaultNStripes, st.size())
}

func TestStripeTableLockForIsStable(t *testing.T) {
	st := newStripeTable(128)
	a := st.lockFor(128)
	b := st.lockFor(128)
	require.Same(t, a, b, "the same address must always map to the same lock")
}

func TestStripeTableSpreadsDistinctAddresses(t *testing.T) {
	// Aliasing is legal (false conflicts are allowed), but a reasonable
	// hash should not collapse every address in a small aligned range
	// onto one stripe.
	st := newStripeTable(4096)
	seen := map[int]bool{}
	for i := uintptr(0); i < 256; i++ {
		seen[st.indexOf(i*8)] = true
	}
	require.Greater(t, len(seen), 1)
}
