// Command tl2bench drives a concurrent mixed read-only and
// read-modify-write workload against a tl2.Region and reports
// commit/abort/reclaim counters. The workload does not call Alloc or
// Free, so the reclaim counters stay at zero. It is the thin outer harness spec explicitly keeps outside
// the STM's hard core — a CLI wrapper around the public API, nothing
// more.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tl2mem/tl2"
)

var cli struct {
	Size    uintptr `help:"Region size in bytes." default:"4096"`
	Align   uintptr `help:"Word size in bytes, must be a power of two." default:"8"`
	Workers int     `help:"Concurrent workload goroutines." default:"8"`
	Txns    int     `help:"Transactions per worker." default:"20000"`
	Verbose bool    `help:"Enable debug logging." default:"false"`
}

func main() {
	kong.Parse(&cli, kong.Description("tl2bench runs a concurrent mixed workload against a TL2 region."))

	logger := zap.NewNop()
	if cli.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()

	region, err := tl2.NewRegion(cli.Size, cli.Align, tl2.WithLogger(logger))
	if err != nil {
		logger.Fatal("create region", zap.Error(err))
	}
	defer region.Close()

	g, ctx := errgroup.WithContext(context.Background())
	for w := 0; w < cli.Workers; w++ {
		w := w
		g.Go(func() error {
			return runWorker(ctx, region, w)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Fatal("workload failed", zap.Error(err))
	}

	stats := region.Stats()
	fmt.Printf("commits=%d aborts=%d reclaims=%d freed_segments=%d\n",
		stats.Commits, stats.Aborts, stats.Reclaims, stats.FreedSegments)
}

// runWorker repeatedly begins a transaction, does a one-word read (RO)
// or read-modify-write on the initial segment, and ends it,
// retrying aborts at this workload layer (the library itself never
// retries, per spec §4.8.4's failure semantics).
func runWorker(ctx context.Context, region *tl2.Region, id int) error {
	rng := rand.New(rand.NewSource(int64(id) + 1))
	align := region.Align()
	words := region.Size() / align

	for i := 0; i < cli.Txns; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		offset := uintptr(rng.Intn(int(words))) * align
		ro := rng.Intn(4) == 0

		tx, err := region.Begin(ro)
		if err != nil {
			return err
		}

		buf := make([]byte, align)
		ok, err := region.Read(tx, region.Start()+offset, align, buf)
		if err != nil {
			return err
		}
		if ok && !ro {
			val := uint64(buf[0]) + 1
			buf[0] = byte(val)
			ok, err = region.Write(tx, buf, align, region.Start()+offset)
			if err != nil {
				return err
			}
		}

		// End must run even on a prior abort: it is the sole place a
		// transaction's region lease is released.
		committed, err := region.End(tx)
		if err != nil {
			return err
		}
		if !committed {
			i-- // aborted: retry this iteration
		}
	}
	return nil
}
