package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/quindex/quindex/internal/catalog"
)

const (
	defaultPass2Batch      = 1000
	defaultMaxContextChars = 640
)

// ContextSource is the store surface pass 2 needs: the ID scan plus the
// context read/write operations.
type ContextSource interface {
	catalog.EntityScanner
	catalog.ContextStore
}

// Pass2Stats counts the outcome of one pass-2 run.
type Pass2Stats struct {
	Scanned int64
	Updated int64
}

// Pass2 finalizes context strings: it streams entity IDs in batches, resolves
// each batch's relation objects to labels on a worker pool, and writes the
// joined context strings through a single writer. Re-running yields
// byte-identical context strings.
func Pass2(ctx context.Context, store ContextSource, opts Options, log *slog.Logger) (Pass2Stats, error) {
	if log == nil {
		log = slog.Default()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	batchSize := opts.Pass2Batch
	if batchSize <= 0 {
		batchSize = defaultPass2Batch
	}
	maxChars := opts.MaxContextChars
	if maxChars <= 0 {
		maxChars = defaultMaxContextChars
	}

	var stats Pass2Stats
	// In-flight batches are capped at 2W; a full queue blocks the scan until
	// a resolver drains it (backpressure).
	jobs := make(chan []string, 2*workers)
	updates := make(chan []catalog.ContextUpdate, 2*workers)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		return store.IterEntityIDs(ctx, batchSize, func(qids []string) error {
			batch := append([]string(nil), qids...)
			atomic.AddInt64(&stats.Scanned, int64(len(batch)))
			select {
			case jobs <- batch:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	var resolvers sync.WaitGroup
	for i := 0; i < workers; i++ {
		resolvers.Add(1)
		g.Go(func() error {
			defer resolvers.Done()
			for qids := range jobs {
				batch, err := resolveContextBatch(ctx, store, qids, maxChars)
				if err != nil {
					return err
				}
				if len(batch) == 0 {
					continue
				}
				select {
				case updates <- batch:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		resolvers.Wait()
		close(updates)
	}()

	g.Go(func() error {
		for batch := range updates {
			n, err := store.UpdateContextStrings(ctx, batch)
			if err != nil {
				return err
			}
			updated := atomic.AddInt64(&stats.Updated, int64(n))
			log.Debug("pass2 batch updated", "rows", n, "updated_total", updated)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return stats, fmt.Errorf("ingest: pass 2: %w", err)
	}
	log.Info("pass 2 complete", "scanned", stats.Scanned, "updated", stats.Updated)
	return stats, nil
}

// resolveContextBatch loads the relation objects for one batch of QIDs,
// resolves their labels in a single round trip, and builds the per-entity
// context strings. Every scanned QID gets an update, entities without
// relations included: the context write is what rebuilds each row's search
// vector, so no row may be skipped. Relation IDs that resolve to no label
// are dropped silently.
func resolveContextBatch(ctx context.Context, store ContextSource, qids []string, maxChars int) ([]catalog.ContextUpdate, error) {
	inputs, err := store.LoadContextInputs(ctx, qids)
	if err != nil {
		return nil, err
	}
	relationsByQID := make(map[string][]string, len(inputs))
	for _, input := range inputs {
		relationsByQID[input.QID] = input.RelationObjectQIDs
	}

	// Union of referenced IDs, deduplicated preserving first-seen order.
	var union []string
	seen := map[string]bool{}
	for _, input := range inputs {
		for _, qid := range input.RelationObjectQIDs {
			if !seen[qid] {
				seen[qid] = true
				union = append(union, qid)
			}
		}
	}

	labels, err := store.ResolveLabels(ctx, union)
	if err != nil {
		return nil, err
	}

	updates := make([]catalog.ContextUpdate, 0, len(qids))
	for _, qid := range qids {
		updates = append(updates, catalog.ContextUpdate{
			QID:           qid,
			ContextString: buildContextString(relationsByQID[qid], labels, maxChars),
		})
	}
	return updates, nil
}

// buildContextString joins the sorted unique labels of an entity's relation
// objects with "; ", truncated to maxChars runes.
func buildContextString(relationQIDs []string, labels map[string]string, maxChars int) string {
	var resolved []string
	seen := map[string]bool{}
	for _, qid := range relationQIDs {
		label := labels[qid]
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		resolved = append(resolved, label)
	}
	sort.Strings(resolved)

	joined := strings.Join(resolved, "; ")
	runes := []rune(joined)
	if len(runes) > maxChars {
		return string(runes[:maxChars])
	}
	return joined
}
