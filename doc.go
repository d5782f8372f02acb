// Package tl2 implements a Transactional Locking II (TL2) software
// transactional memory region.
//
// Client goroutines open explicit transactions on a Region and issue
// Read/Write operations against it; transactions appear to execute
// atomically in a serializable order despite concurrent access from
// many goroutines. A transaction either commits (End returns true) or
// aborts (End, Read or Write returns false); an aborted transaction
// never observes inconsistent state and leaves no trace on the region.
//
// The core algorithm is the one described by Dice, Shalev and Shavit:
// a monotonic global version clock, a fixed table of striped versioned
// spin-locks guarding memory words, and per-transaction read/write sets
// validated against the clock at commit time. See the component files
// (lock.go, clock.go, stripe.go, region.go, segment.go, set.go, txn.go,
// protocol.go) for the pieces, and protocol.go for the algorithm that
// composes them.
package tl2
