package tl2

import "go.uber.org/zap"

// Tunable defaults, per spec §6.
const (
	DefaultMaxLoadFactor      = 0.75
	DefaultGrowFactor         = 2
	DefaultInitialSetCapacity = 8
	DefaultFreeBatchSize      = 128
	DefaultFreeBatchCumSize   = 1 << 20 // 1 MiB
)

type regionOptions struct {
	nStripes           int
	maxLoadFactor      float64
	growFactor         int
	initialSetCapacity int
	freeBatchSize      int
	freeBatchCumSize   uintptr
	logger             *zap.Logger
}

func defaultRegionOptions() regionOptions {
	return regionOptions{
		nStripes:           DefaultNStripes,
		maxLoadFactor:      DefaultMaxLoadFactor,
		growFactor:         DefaultGrowFactor,
		initialSetCapacity: DefaultInitialSetCapacity,
		freeBatchSize:      DefaultFreeBatchSize,
		freeBatchCumSize:   DefaultFreeBatchCumSize,
		logger:             zap.NewNop(),
	}
}

// RegionOption configures a Region at construction time.
type RegionOption func(*regionOptions)

// WithStripeCount overrides the lock stripe table size (default
// DefaultNStripes). Larger tables reduce false conflicts between
// unrelated addresses.
func WithStripeCount(n int) RegionOption {
	return func(o *regionOptions) {
		if n > 0 {
			o.nStripes = n
		}
	}
}

// WithMaxLoadFactor overrides the read/write set resize trigger.
func WithMaxLoadFactor(f float64) RegionOption {
	return func(o *regionOptions) {
		if f > 0 && f < 1 {
			o.maxLoadFactor = f
		}
	}
}

// WithGrowFactor overrides the read/write set capacity multiplier.
func WithGrowFactor(f int) RegionOption {
	return func(o *regionOptions) {
		if f > 1 {
			o.growFactor = f
		}
	}
}

// WithInitialSetCapacity overrides the starting capacity of a
// transaction's read and write sets.
func WithInitialSetCapacity(c int) RegionOption {
	return func(o *regionOptions) {
		if c > 0 {
			o.initialSetCapacity = c
		}
	}
}

// WithFreeBatchSize overrides the queued-segment count that triggers a
// reclaim pass.
func WithFreeBatchSize(n int) RegionOption {
	return func(o *regionOptions) {
		if n > 0 {
			o.freeBatchSize = n
		}
	}
}

// WithFreeBatchCumSize overrides the cumulative queued-byte count that
// triggers a reclaim pass.
func WithFreeBatchCumSize(n uintptr) RegionOption {
	return func(o *regionOptions) {
		if n > 0 {
			o.freeBatchCumSize = n
		}
	}
}

// WithLogger attaches a zap.Logger used for allocator/reclaim
// bookkeeping messages. Begin, Read, Write and End's commit steps never
// log; the one message is the reclaim pass, which can run inline at the
// end of End. The default is a no-op logger.
func WithLogger(l *zap.Logger) RegionOption {
	return func(o *regionOptions) {
		if l != nil {
			o.logger = l
		}
	}
}
