// Package pipeline orchestrates a catalog build: validate inputs, run the
// two ingestion passes, ensure the search indexes, prune the query cache, and
// optionally compact the store for lookup-only serving.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/quindex/quindex/internal/catalog"
	"github.com/quindex/quindex/internal/config"
	"github.com/quindex/quindex/internal/dump"
	"github.com/quindex/quindex/internal/ingest"
	"github.com/quindex/quindex/internal/ner"
	"github.com/quindex/quindex/internal/observe"
)

// Result reports what a completed run did. Stats for skipped phases stay
// zero.
type Result struct {
	Pass1       ingest.Pass1Stats
	Pass2       ingest.Pass2Stats
	Entities    int64
	CachePruned int64
	Compacted   bool
}

// Driver runs the build phases in order against one store.
type Driver struct {
	cfg     *config.Config
	store   catalog.Store
	log     *slog.Logger
	metrics *observe.Metrics
}

// NewDriver creates a driver. A nil logger falls back to [slog.Default];
// nil metrics fall back to [observe.DefaultMetrics].
func NewDriver(cfg *config.Config, store catalog.Store, log *slog.Logger, metrics *observe.Metrics) *Driver {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Driver{cfg: cfg, store: store, log: log, metrics: metrics}
}

// Run executes the configured phases in order and stops at the first
// failure. Phases are: validate, pass 1, pass 2, ensure indexes, cache
// prune, compact. Skipped phases do not count against success.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	var res Result

	if err := d.phase(ctx, "validate", func(ctx context.Context) error {
		return d.validate()
	}); err != nil {
		return res, err
	}

	opts, err := d.ingestOptions()
	if err != nil {
		return res, err
	}

	if d.cfg.SkipPass1 {
		d.log.Info("pass 1 skipped")
	} else if err := d.phase(ctx, "pass1", func(ctx context.Context) error {
		stats, err := d.runPass1(ctx, opts)
		res.Pass1 = stats
		return err
	}); err != nil {
		return res, err
	}

	if d.cfg.SkipPass2 {
		d.log.Info("pass 2 skipped")
	} else if err := d.phase(ctx, "pass2", func(ctx context.Context) error {
		stats, err := ingest.Pass2(ctx, d.store, opts, d.log)
		res.Pass2 = stats
		d.metrics.ContextUpdates.Add(ctx, stats.Updated)
		return err
	}); err != nil {
		return res, err
	}

	if d.cfg.SkipIndexes {
		d.log.Info("index build skipped")
	} else if err := d.phase(ctx, "ensure_indexes", d.store.EnsureSearchIndexes); err != nil {
		return res, err
	}

	if ttl := d.cfg.CacheTTL.Std(); ttl > 0 {
		if err := d.phase(ctx, "prune_cache", func(ctx context.Context) error {
			pruned, err := d.store.PruneQueryCache(ctx, ttl)
			res.CachePruned = pruned
			return err
		}); err != nil {
			return res, err
		}
	}

	if d.cfg.Compact {
		if err := d.phase(ctx, "compact", d.store.CompactForLookup); err != nil {
			return res, err
		}
		res.Compacted = true
	}

	if res.Entities, err = d.store.CountEntities(ctx); err != nil {
		return res, fmt.Errorf("pipeline: count entities: %w", err)
	}
	d.log.Info("pipeline complete",
		slog.Int64("entities", res.Entities),
		slog.Int64("stored", res.Pass1.Stored),
		slog.Int64("context_updates", res.Pass2.Updated),
	)
	return res, nil
}

// phase runs fn, logging start/finish and recording its duration.
func (d *Driver) phase(ctx context.Context, name string, fn func(context.Context) error) error {
	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline."+name)
	defer span.End()

	d.log.Info("phase starting", slog.String("phase", name))
	err := fn(ctx)
	elapsed := time.Since(start)
	d.metrics.RecordPhase(ctx, name, elapsed.Seconds())
	if err != nil {
		d.log.Error("phase failed",
			slog.String("phase", name),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("pipeline: phase %s: %w", name, err)
	}
	d.log.Info("phase complete",
		slog.String("phase", name),
		slog.Duration("elapsed", elapsed),
	)
	return nil
}

// validate checks the parts of the configuration the driver is about to use.
// The DSN was already exercised by whoever opened the store.
func (d *Driver) validate() error {
	if !d.cfg.SkipPass1 {
		info, err := os.Stat(d.cfg.DumpPath)
		if err != nil {
			return fmt.Errorf("dump file: %w", err)
		}
		if info.IsDir() {
			return fmt.Errorf("dump file %q is a directory", d.cfg.DumpPath)
		}
	}
	if d.cfg.NERTypesPath != "" {
		if _, err := os.Stat(d.cfg.NERTypesPath); err != nil {
			return fmt.Errorf("type-overrides file: %w", err)
		}
	}
	return nil
}

// ingestOptions builds the shared pass options, loading type overrides when
// configured. Pass 1 writes search vectors directly only when pass 2 will
// not run to rebuild them.
func (d *Driver) ingestOptions() (ingest.Options, error) {
	opts := ingest.Options{
		Languages:             d.cfg.LanguageAllowlist,
		MaxAliasesPerLanguage: d.cfg.MaxAliasesPerLanguage,
		MaxContextObjects:     d.cfg.MaxContextObjects,
		MaxContextChars:       d.cfg.MaxContextChars,
		Pass1Batch:            d.cfg.Pass1Batch,
		Pass2Batch:            d.cfg.Pass2Batch,
		Workers:               d.cfg.Workers,
		DisableNER:            d.cfg.DisableNER,
		BuildSearchVector:     d.cfg.SkipPass2,
	}
	if d.cfg.NERTypesPath != "" {
		overrides, err := ner.LoadOverrides(d.cfg.NERTypesPath)
		if err != nil {
			return ingest.Options{}, fmt.Errorf("pipeline: load type overrides: %w", err)
		}
		opts.TypeOverrides = overrides
		d.log.Info("type overrides loaded",
			slog.String("path", d.cfg.NERTypesPath),
			slog.Int("entries", len(overrides)),
		)
	}
	return opts, nil
}

func (d *Driver) runPass1(ctx context.Context, opts ingest.Options) (ingest.Pass1Stats, error) {
	if estimate, ok := dump.EstimateTotalRecords(d.cfg.DumpPath, d.cfg.Limit); ok {
		d.log.Info("dump size estimated", slog.Int64("records", estimate))
	}

	reader, err := dump.Open(d.cfg.DumpPath, d.cfg.Limit)
	if err != nil {
		return ingest.Pass1Stats{}, err
	}
	defer reader.Close()

	stats, err := ingest.Pass1(ctx, reader, d.store, opts, d.log)
	d.metrics.RecordEntities(ctx, "stored", stats.Stored)
	d.metrics.RecordEntities(ctx, "skipped", stats.Skipped)
	return stats, err
}
