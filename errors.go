package tl2

import "github.com/pkg/errors"

// Sentinel errors, matching the C API's error taxonomy (spec §7). Read,
// Write and End report an ordinary TL2 abort with (false, nil) — these
// sentinels are reserved for construction failures and precondition
// violations, which the original C interface would have asserted away.
var (
	ErrAbort         = errors.New("tl2: transaction aborted")
	ErrNoMemAlloc    = errors.New("tl2: allocator exhausted")
	ErrInvalidRegion = errors.New("tl2: invalid region")
	ErrInvalidTx     = errors.New("tl2: invalid transaction")
)
