package tl2

import "go.uber.org/zap"

// segment is an aligned byte buffer owned by the Region. Clients only
// ever see offsets into it (never a real process address); the Region
// resolves those offsets back to a segment and a byte slice.
type segment struct {
	base uintptr
	data []byte
}

func (s *segment) end() uintptr {
	return s.base + uintptr(len(s.data))
}

// allocate creates a new aligned, zero-filled segment of n bytes and
// appends it to the region's segment arena. Not transactional: the new
// segment is visible to every goroutine immediately, per spec §4.8.5.
func (r *Region) allocate(n uintptr) (uintptr, error) {
	r.listMu.Lock()
	defer r.listMu.Unlock()

	base := r.nextBase
	// keep every segment's base a multiple of align, same as the
	// posix_memalign contract the original C allocator used.
	if rem := base % r.align; rem != 0 {
		base += r.align - rem
	}
	seg := &segment{base: base, data: make([]byte, n)}
	r.segments = append(r.segments, seg)
	r.nextBase = seg.end()
	return base, nil
}

// scheduleFree appends target to the transaction's private
// deferred-free list. It never touches the region: physical free only
// happens once the owning transaction commits (protocol.go, End).
func (tx *Txn) scheduleFree(target uintptr) {
	tx.deferredFree = append(tx.deferredFree, target)
}

// flushDeferredFree moves a committed transaction's deferred-free list
// into the region's queue, then runs reclaim if the batching policy
// fires.
func (r *Region) flushDeferredFree(list []uintptr) {
	r.freeQueueMu.Lock()
	r.freeQueue = append(r.freeQueue, list...)
	for _, addr := range list {
		if seg := r.segmentContaining(addr); seg != nil {
			r.freeQueueBytes += uintptr(len(seg.data))
		}
	}
	fire := len(r.freeQueue) >= r.opts.freeBatchSize || r.freeQueueBytes >= r.opts.freeBatchCumSize
	r.freeQueueMu.Unlock()

	if fire {
		r.reclaim()
	}
}

// segmentContaining returns the segment a previously-allocated address
// falls within, or nil. It takes listMu shared itself, so the caller
// must not hold listMu; it is safe to call under freeQueueMu since
// reclaim is the only writer of segments besides allocate, and
// allocate only appends.
func (r *Region) segmentContaining(addr uintptr) *segment {
	r.listMu.RLock()
	defer r.listMu.RUnlock()
	seg, _, err := r.findSegment(addr)
	if err != nil {
		return nil
	}
	return seg
}

// reclaim physically frees every segment queued for deferred free. It
// only proceeds if it can take the region's reclaim gate exclusively
// without blocking — that only succeeds once every live transaction
// (each holding a shared lease from Begin to End) has finished, which is
// what makes physically dropping a still-referenced-by-a-stale-reader
// segment safe. If the gate is held, the queue is left untouched and
// the next flush that crosses the batching threshold will retry; a
// caller inside its own End must never block waiting for other
// transactions to finish.
func (r *Region) reclaim() {
	if !r.freeGate.TryLock() {
		return
	}
	defer r.freeGate.Unlock()

	r.freeQueueMu.Lock()
	queued := r.freeQueue
	r.freeQueue = nil
	r.freeQueueBytes = 0
	r.freeQueueMu.Unlock()

	if len(queued) == 0 {
		return
	}

	r.listMu.Lock()
	defer r.listMu.Unlock()

	dead := make(map[uintptr]bool, len(queued))
	for _, addr := range queued {
		dead[addr] = true
	}
	kept := r.segments[:0:0]
	freed := 0
	for _, seg := range r.segments {
		if seg != r.initial && dead[seg.base] {
			freed++
			continue
		}
		kept = append(kept, seg)
	}
	r.segments = kept
	r.metrics.reclaims.Add(1)
	r.metrics.freedSegments.Add(uint64(freed))
	r.logger.Debug("tl2: reclaim pass", zap.Int("freed", freed), zap.Int("queued", len(queued)))
}
