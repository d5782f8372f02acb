package tl2

import "github.com/pkg/errors"

// Begin starts a new transaction against the region. Read-only
// transactions never allocate read/write sets. Begin takes a shared
// lease on the region's reclaim gate, held until End.
func (r *Region) Begin(ro bool) (*Txn, error) {
	tx := &Txn{region: r, isRO: ro, state: txnActive}

	r.freeGate.RLock()
	tx.leaseHeld = true

	tx.rv = r.clock.snapshot()
	if !ro {
		tx.readSet = newAddrSet(r.stripes, r.opts.initialSetCapacity, r.opts.maxLoadFactor, r.opts.growFactor)
		tx.writeSet = newAddrSet(r.stripes, r.opts.initialSetCapacity, r.opts.maxLoadFactor, r.opts.growFactor)
	}
	return tx, nil
}

func (r *Region) checkWordMultiple(n uintptr) error {
	if n == 0 || n%r.align != 0 {
		return errors.Wrapf(ErrInvalidTx, "size %d is not a positive multiple of align %d", n, r.align)
	}
	return nil
}

// Read copies n bytes from src (in the region) to dst (private
// memory), validating each word against the transaction's read
// version. It returns (false, nil) if the transaction aborts.
func (r *Region) Read(tx *Txn, src uintptr, n uintptr, dst []byte) (bool, error) {
	if tx.state != txnActive {
		return false, errors.Wrap(ErrInvalidTx, "transaction is not active")
	}
	if err := r.checkWordMultiple(n); err != nil {
		return false, err
	}
	if _, _, err := r.resolveRange(src, n); err != nil {
		return false, err
	}

	w := r.align
	for off := uintptr(0); off < n; off += w {
		word := src + off
		dstSlice := dst[off : off+w]

		if !tx.isRO && tx.writeSet.readThrough(word, dstSlice) {
			continue
		}

		lock := r.stripes.lockFor(word)
		vPre, lockedPre := lock.observe()
		if lockedPre || vPre > tx.rv {
			tx.abort()
			r.metrics.aborts.Add(1)
			return false, nil
		}

		seg, base, err := r.resolveRange(word, w)
		if err != nil {
			tx.abort()
			return false, nil
		}
		copy(dstSlice, seg.data[base:base+w])

		vPost, lockedPost := lock.observe()
		if lockedPost || vPost != vPre {
			tx.abort()
			r.metrics.aborts.Add(1)
			return false, nil
		}

		if !tx.isRO {
			tx.readSet.addRead(word)
		}
	}
	return true, nil
}

// Write stages n bytes from src (private memory) into the transaction's
// write set, targeting dst (in the region). No locks are taken here —
// writes only become visible at commit.
func (r *Region) Write(tx *Txn, src []byte, n uintptr, dst uintptr) (bool, error) {
	if tx.state != txnActive {
		return false, errors.Wrap(ErrInvalidTx, "transaction is not active")
	}
	if tx.isRO {
		return false, errors.Wrap(ErrInvalidTx, "write on a read-only transaction")
	}
	if err := r.checkWordMultiple(n); err != nil {
		return false, err
	}
	if _, _, err := r.resolveRange(dst, n); err != nil {
		return false, err
	}

	w := r.align
	for off := uintptr(0); off < n; off += w {
		tx.writeSet.addWrite(src[off:off+w], int(w), dst+off)
	}
	return true, nil
}

// End commits or aborts the transaction, per spec §4.8.4. The
// transaction is terminal after this call either way.
func (r *Region) End(tx *Txn) (bool, error) {
	defer tx.finish()

	if tx.state == txnAborted {
		return false, nil
	}

	// RO fast path, and the writeless-RW fast path: nothing to
	// validate, nothing to lock. The lease is dropped before flushing
	// deferred frees since a reclaim pass needs the gate exclusively,
	// and this transaction no longer needs it once committed.
	if tx.isRO || tx.writeSetLen() == 0 {
		tx.state = txnCommitted
		tx.finish()
		if len(tx.deferredFree) > 0 {
			r.flushDeferredFree(tx.deferredFree)
		}
		return true, nil
	}

	tx.state = txnCommitting

	// Step 2: acquire write-set locks in ascending stripe-index order.
	// This total order across all transactions is what prevents
	// deadlock — acquiring in write-set insertion order instead (as one
	// of the original drafts did) can deadlock two transactions that
	// write the same stripes in opposite orders.
	stripeIdxs := tx.writeSet.lockBitmapIter()
	acquired := make([]int, 0, len(stripeIdxs))
	for _, idx := range stripeIdxs {
		lock := &r.stripes.locks[idx]
		if !lock.tryAcquire() {
			for _, a := range acquired {
				r.stripes.locks[a].release()
			}
			tx.abort()
			r.metrics.aborts.Add(1)
			return false, nil
		}
		acquired = append(acquired, idx)
	}

	// Step 3: tick the clock.
	wv := r.clock.tick()
	tx.wv = wv

	// Step 4: validate the read set, elided when no other RW
	// transaction has committed since this one's begin.
	if wv != tx.rv+1 {
		ok := true
		tx.readSet.forEach(func(e *setEntry) bool {
			lock := r.stripes.lockFor(e.target)
			v, locked := lock.observe()
			if locked {
				// Held by us iff our own write set covers this
				// stripe (we acquired every such stripe in step 2);
				// a stripe held by anyone else is a conflict.
				if !tx.writeSet.hasStripe(r.stripes.indexOf(e.target)) {
					ok = false
					return false
				}
				// Held by us: the word still carries the version it had
				// before step 2 locked it, which must not exceed rv.
				v = lock.word.Load() >> 1
			}
			if v > tx.rv {
				ok = false
				return false
			}
			return true
		})
		if !ok {
			for _, idx := range acquired {
				r.stripes.locks[idx].release()
			}
			tx.abort()
			r.metrics.aborts.Add(1)
			return false, nil
		}
	}

	// Step 5: write back.
	tx.writeSet.forEach(func(e *setEntry) bool {
		if seg, base, err := r.resolveRange(e.target, uintptr(len(e.data))); err == nil {
			copy(seg.data[base:base+uintptr(len(e.data))], e.data)
		}
		return true
	})

	// Step 6: release and stamp every covered stripe with the new
	// write-version, in any order.
	for _, idx := range acquired {
		r.stripes.locks[idx].releaseAndUpdate(wv)
	}

	tx.state = txnCommitted
	r.metrics.commits.Add(1)

	// Step 7: deferred free application. The lease is dropped first —
	// see the RO/writeless fast path above — since flushDeferredFree may
	// trigger a reclaim pass that needs the gate exclusively.
	tx.finish()
	if len(tx.deferredFree) > 0 {
		r.flushDeferredFree(tx.deferredFree)
	}
	return true, nil
}

// Alloc allocates a new n-byte segment, immediately visible to every
// goroutine (not transactional, per spec §4.8.5). It returns
// ErrNoMemAlloc on allocation failure without aborting the transaction.
func (r *Region) Alloc(tx *Txn, n uintptr) (uintptr, error) {
	if tx.state != txnActive {
		return 0, errors.Wrap(ErrInvalidTx, "transaction is not active")
	}
	if err := r.checkWordMultiple(n); err != nil {
		return 0, err
	}
	addr, err := r.allocate(n)
	if err != nil {
		return 0, errors.Wrap(ErrNoMemAlloc, err.Error())
	}
	return addr, nil
}

// Free queues target for deferred release: it is appended to the
// transaction's private list and only reaches the region's queue if
// and when this transaction commits (step 7 of End).
func (r *Region) Free(tx *Txn, target uintptr) (bool, error) {
	if tx.state != txnActive {
		return false, errors.Wrap(ErrInvalidTx, "transaction is not active")
	}
	tx.scheduleFree(target)
	return true, nil
}
