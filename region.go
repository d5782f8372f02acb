package tl2

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Region is the shared memory region a set of transactions operate
// over: the initial segment, the stripe table, the global clock, the
// segment arena and the deferred-free queue. The initial segment is
// never freed during the Region's lifetime.
type Region struct {
	align uintptr

	clock   versionClock
	stripes *stripeTable

	// listMu guards the segment arena. allocate takes it exclusively to
	// append; resolveRange and segmentContaining take it shared to
	// traverse. A Go slice is not safe for concurrent append + iterate
	// the way the original's append-only linked list was, so this
	// replaces that lock-free traversal with a narrow RWMutex around
	// just the arena (see DESIGN.md).
	listMu   sync.RWMutex
	segments []*segment
	initial  *segment
	nextBase uintptr

	// freeGate is the long-shared/short-exclusive quiescence gate: every
	// live transaction holds a shared lease from Begin to End, and
	// reclaim only runs once it can take the gate exclusively, i.e. once
	// no transaction that might still be holding a stale reference is
	// live.
	freeGate sync.RWMutex

	freeQueueMu    sync.Mutex
	freeQueue      []uintptr
	freeQueueBytes uintptr

	opts    regionOptions
	logger  *zap.Logger
	metrics regionMetrics
}

// NewRegion creates a shared memory region of size bytes, word-aligned
// to align. size must be a positive multiple of align; align must be a
// power of two.
func NewRegion(size, align uintptr, opts ...RegionOption) (*Region, error) {
	if align == 0 || align&(align-1) != 0 {
		return nil, errors.Wrap(ErrInvalidRegion, "align must be a power of two")
	}
	if size == 0 || size%align != 0 {
		return nil, errors.Wrap(ErrInvalidRegion, "size must be a positive multiple of align")
	}

	cfg := defaultRegionOptions()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Region{
		align:   align,
		stripes: newStripeTable(cfg.nStripes),
		opts:    cfg,
		logger:  cfg.logger,
	}
	seg := &segment{base: 0, data: make([]byte, size)}
	r.segments = []*segment{seg}
	r.initial = seg
	r.nextBase = seg.end()
	return r, nil
}

// Close releases a Region. It fails if a transaction is still live.
func (r *Region) Close() error {
	if !r.freeGate.TryLock() {
		return errors.Wrap(ErrInvalidRegion, "region has a live transaction")
	}
	defer r.freeGate.Unlock()

	r.listMu.Lock()
	defer r.listMu.Unlock()
	r.segments = nil
	r.initial = nil
	return nil
}

// Start returns the address of the Region's first (initial) segment.
func (r *Region) Start() uintptr { return r.initial.base }

// Size returns the byte size of the Region's initial segment.
func (r *Region) Size() uintptr { return uintptr(len(r.initial.data)) }

// Align returns the Region's word size.
func (r *Region) Align() uintptr { return r.align }

// findSegment locates the segment containing addr and returns addr's
// offset within it. Callers must hold listMu (read or write).
func (r *Region) findSegment(addr uintptr) (*segment, uintptr, error) {
	segs := r.segments
	idx := sort.Search(len(segs), func(i int) bool {
		return segs[i].end() > addr
	})
	if idx >= len(segs) || addr < segs[idx].base {
		return nil, 0, errors.Wrap(ErrInvalidTx, "address not in region")
	}
	return segs[idx], addr - segs[idx].base, nil
}

func (r *Region) resolveRange(addr, n uintptr) (*segment, uintptr, error) {
	r.listMu.RLock()
	defer r.listMu.RUnlock()
	seg, off, err := r.findSegment(addr)
	if err != nil {
		return nil, 0, err
	}
	if off+n > uintptr(len(seg.data)) {
		return nil, 0, errors.Wrap(ErrInvalidTx, "access spans segment boundary")
	}
	return seg, off, nil
}

// regionMetrics backs Region.Stats() and Region's prometheus.Collector
// implementation (metrics.go).
type regionMetrics struct {
	commits       atomic.Uint64
	aborts        atomic.Uint64
	reclaims      atomic.Uint64
	freedSegments atomic.Uint64
}
