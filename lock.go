package tl2

import "sync/atomic"

// wordLock is a versioned spin-lock packed into a single atomic word:
// bit 0 is the lock flag, the remaining 63 bits are the version. The
// two fields are never split into separate atomics — acquire, release
// and release-and-update must observe and transition them together.
type wordLock struct {
	word atomic.Uint64
}

const lockedFlag = uint64(1)

// tryAcquire attempts a single CAS from unlocked to locked, preserving
// the current version. It never blocks or spins; the caller decides
// retry policy.
func (l *wordLock) tryAcquire() bool {
	cur := l.word.Load()
	if cur&lockedFlag != 0 {
		return false
	}
	return l.word.CompareAndSwap(cur, cur|lockedFlag)
}

// release clears the lock flag without advancing the version. Only the
// holder of the lock may call this.
func (l *wordLock) release() {
	cur := l.word.Load()
	l.word.Store(cur &^ lockedFlag)
}

// releaseAndUpdate atomically stores {locked: false, version: newVersion}.
// newVersion must be >= the version this lock held before it was
// acquired; callers pass the freshly-ticked global clock value.
func (l *wordLock) releaseAndUpdate(newVersion uint64) {
	l.word.Store(newVersion << 1)
}

// observe reads the lock word and reports whether it is currently held
// and, if not, its version. Go's sync/atomic loads are sequentially
// consistent, which is stronger than the acquire ordering TL2's
// post-read validation needs to see the version published by the last
// releaseAndUpdate.
func (l *wordLock) observe() (version uint64, locked bool) {
	v := l.word.Load()
	if v&lockedFlag != 0 {
		return 0, true
	}
	return v >> 1, false
}
