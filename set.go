package tl2

import (
	"encoding/binary"

	"github.com/spaolacci/murmur3"
)

// setEntry is a slot in an addrSet's open-addressed table. data is nil
// for read entries; write entries carry a private word_size buffer.
type setEntry struct {
	used   bool
	target uintptr
	data   []byte
}

// addrSet is a transaction's read set or write set: an open-addressed
// hash table from target address to entry, with a parallel bitmap
// recording which lock stripes the set currently covers. The bitmap is
// the canonical driver of commit-time locking — it is always an exact
// summary of the entries' stripes, including across a rehash.
type addrSet struct {
	stripes       *stripeTable
	maxLoadFactor float64
	growFactor    int

	entries []setEntry
	count   int
	bitmap  []uint64
}

func newAddrSet(stripes *stripeTable, initialCap int, maxLoadFactor float64, growFactor int) *addrSet {
	cap := nextPow2(initialCap)
	if cap < 4 {
		cap = 4
	}
	return &addrSet{
		stripes:       stripes,
		maxLoadFactor: maxLoadFactor,
		growFactor:    growFactor,
		entries:       make([]setEntry, cap),
		bitmap:        make([]uint64, (stripes.size()+63)/64),
	}
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func addrHash(target uintptr) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(target))
	return murmur3.Sum64(buf[:])
}

// probe returns the slot index for target under linear probing: either
// the existing entry for target, or the first free slot it would
// occupy.
func (s *addrSet) probe(entries []setEntry, target uintptr) int {
	mask := uintptr(len(entries) - 1)
	idx := uintptr(addrHash(target)) & mask
	for {
		e := &entries[idx]
		if !e.used || e.target == target {
			return int(idx)
		}
		idx = (idx + 1) & mask
	}
}

func (s *addrSet) find(target uintptr) (int, bool) {
	idx := s.probe(s.entries, target)
	return idx, s.entries[idx].used
}

func (s *addrSet) markStripe(target uintptr) {
	idx := s.stripes.indexOf(target)
	s.bitmap[idx/64] |= 1 << uint(idx%64)
}

// hasStripe reports whether this set covers the given stripe index.
func (s *addrSet) hasStripe(idx int) bool {
	return s.bitmap[idx/64]&(1<<uint(idx%64)) != 0
}

func (s *addrSet) maybeGrow() {
	if float64(s.count+1) > float64(len(s.entries))*s.maxLoadFactor {
		s.grow()
	}
}

func (s *addrSet) grow() {
	old := s.entries
	grown := make([]setEntry, len(old)*s.growFactor)
	for i := range old {
		e := &old[i]
		if !e.used {
			continue
		}
		idx := s.probe(grown, e.target)
		grown[idx] = *e
	}
	s.entries = grown
	// bitmap is untouched: rehashing moves entries between slots of the
	// same table, it never changes which stripes those entries' target
	// addresses hash to.
}

// addRead is idempotent: re-reading an address already in the set is a
// no-op.
func (s *addrSet) addRead(target uintptr) {
	s.maybeGrow()
	idx := s.probe(s.entries, target)
	e := &s.entries[idx]
	if e.used {
		return
	}
	e.used = true
	e.target = target
	s.count++
	s.markStripe(target)
}

// addWrite overwrites the buffer of an existing entry for target, or
// inserts a new one copying size bytes out of source.
func (s *addrSet) addWrite(source []byte, size int, target uintptr) {
	s.maybeGrow()
	idx := s.probe(s.entries, target)
	e := &s.entries[idx]
	if e.used {
		copy(e.data, source[:size])
		return
	}
	buf := make([]byte, size)
	copy(buf, source[:size])
	e.used = true
	e.target = target
	e.data = buf
	s.count++
	s.markStripe(target)
}

// readThrough copies a write entry's private buffer into dst and
// reports whether target was present.
func (s *addrSet) readThrough(target uintptr, dst []byte) bool {
	idx, found := s.find(target)
	if !found {
		return false
	}
	copy(dst, s.entries[idx].data)
	return true
}

// lockBitmapIter returns the set's covered stripe indices in ascending
// order — the order commit-time locking must follow to guarantee a
// total lock order across all transactions.
func (s *addrSet) lockBitmapIter() []int {
	var out []int
	for w, word := range s.bitmap {
		if word == 0 {
			continue
		}
		for b := 0; b < 64; b++ {
			if word&(1<<uint(b)) != 0 {
				out = append(out, w*64+b)
			}
		}
	}
	return out
}

// forEach traverses the set's entries in slot order, stopping early if
// fn returns false.
func (s *addrSet) forEach(fn func(e *setEntry) bool) {
	for i := range s.entries {
		e := &s.entries[i]
		if e.used && !fn(e) {
			return
		}
	}
}
