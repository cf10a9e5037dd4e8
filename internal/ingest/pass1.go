package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/quindex/quindex/internal/catalog"
	"github.com/quindex/quindex/internal/dump"
)

const defaultPass1Batch = 5000

// DefaultWorkers is the default transform / resolver pool width.
func DefaultWorkers() int {
	w := runtime.NumCPU()
	if w > 8 {
		w = 8
	}
	if w < 1 {
		w = 1
	}
	return w
}

// Pass1Stats counts the outcome of one pass-1 run. Counters are monotonic
// and updated atomically while the pass runs.
type Pass1Stats struct {
	Parsed  int64
	Stored  int64
	Skipped int64
}

// Pass1 streams the dump, transforms records on a worker pool, and upserts
// them batch-wise through a single writer. Transform order across workers is
// not preserved; upserts are keyed by QID so the final state is independent
// of interleaving.
func Pass1(ctx context.Context, reader *dump.Reader, writer catalog.EntityWriter, opts Options, log *slog.Logger) (Pass1Stats, error) {
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	batchSize := opts.Pass1Batch
	if batchSize <= 0 {
		batchSize = defaultPass1Batch
	}

	var stats Pass1Stats
	raw := make(chan map[string]any, 2*workers)
	records := make(chan catalog.EntityRecord, 2*workers)

	g, ctx := errgroup.WithContext(ctx)

	// Dump streaming is sequential and single-consumer.
	g.Go(func() error {
		defer close(raw)
		for {
			entity, err := reader.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			atomic.AddInt64(&stats.Parsed, 1)
			select {
			case raw <- entity:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	// Transform pool: pure per-record work, safe to run unordered.
	var transformers sync.WaitGroup
	for i := 0; i < workers; i++ {
		transformers.Add(1)
		g.Go(func() error {
			defer transformers.Done()
			for entity := range raw {
				record, ok := TransformEntity(entity, opts)
				if !ok {
					atomic.AddInt64(&stats.Skipped, 1)
					continue
				}
				select {
				case records <- record:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		transformers.Wait()
		close(records)
	}()

	// Single writer keeps store transactions linear.
	g.Go(func() error {
		batch := make([]catalog.EntityRecord, 0, batchSize)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			n, err := writer.UpsertEntities(ctx, batch, opts.BuildSearchVector)
			if err != nil {
				return err
			}
			stored := atomic.AddInt64(&stats.Stored, int64(n))
			log.Debug("pass1 batch stored", "rows", n, "stored_total", stored)
			batch = batch[:0]
			return nil
		}

		for record := range records {
			batch = append(batch, record)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
		return flush()
	})

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("ingest: pass 1: %w", err)
	}
	log.Info("pass 1 complete",
		"parsed", stats.Parsed, "stored", stats.Stored, "skipped", stats.Skipped)
	return stats, nil
}
