// Command quindex builds and queries a deterministic entity catalog. With no
// subcommand it runs the ingestion pipeline; the "lookup" subcommand resolves
// one mention against an existing catalog and prints the JSON response.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quindex/quindex/internal/config"
	"github.com/quindex/quindex/internal/lookup"
	"github.com/quindex/quindex/internal/observe"
	"github.com/quindex/quindex/internal/pipeline"

	pgstore "github.com/quindex/quindex/internal/catalog/postgres"
)

func main() {
	os.Exit(run())
}

func run() int {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "lookup" {
		return runLookup(args[1:])
	}
	return runPipeline(args)
}

// fail prints the single-line error contract and returns the exit code.
func fail(err error) int {
	fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
	return 1
}

// ── Pipeline ─────────────────────────────────────────────────────────────────

func runPipeline(args []string) int {
	fs := flag.NewFlagSet("quindex", flag.ExitOnError)

	configPath := fs.String("config", "", "path to an optional YAML configuration file")
	dumpPath := fs.String("dump", "", "entity dump to ingest (.json, .json.gz, .json.bz2)")
	storeDSN := fs.String("dsn", "", "Postgres connection string for the entity store")
	languages := fs.String("languages", "", "comma-separated label language allowlist")
	maxAliases := fs.Int("max-aliases", 0, "aliases kept per language")
	maxContextObjects := fs.Int("max-context-objects", 0, "relation objects extracted per entity")
	maxContextChars := fs.Int("max-context-chars", 0, "context string length cap")
	pass1Batch := fs.Int("pass1-batch", 0, "pass-1 upsert batch size")
	pass2Batch := fs.Int("pass2-batch", 0, "pass-2 scan batch size")
	workers := fs.Int("workers", 0, "transform / resolver pool width")
	skipPass1 := fs.Bool("skip-pass1", false, "skip the ingestion pass")
	skipPass2 := fs.Bool("skip-pass2", false, "skip the context-building pass")
	skipIndexes := fs.Bool("skip-indexes", false, "skip the search index build")
	compact := fs.Bool("compact", false, "drop the auxiliary context-inputs table after the run")
	disableNER := fs.Bool("disable-ner", false, "leave coarse and fine types empty")
	cacheTTL := fs.Duration("cache-ttl", 0, "prune query-cache entries older than this (0 disables)")
	nerTypes := fs.String("ner-types", "", "JSONL file of per-entity type overrides")
	limit := fs.Int("limit", 0, "read at most this many dump records (0 reads all)")
	logLevel := fs.String("log-level", "", "log verbosity: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return fail(err)
	}

	cfg, err := resolveConfig(*configPath, func(cfg *config.Config) {
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "dump":
				cfg.DumpPath = *dumpPath
			case "dsn":
				cfg.StoreDSN = *storeDSN
			case "languages":
				cfg.LanguageAllowlist = splitList(*languages)
			case "max-aliases":
				cfg.MaxAliasesPerLanguage = *maxAliases
			case "max-context-objects":
				cfg.MaxContextObjects = *maxContextObjects
			case "max-context-chars":
				cfg.MaxContextChars = *maxContextChars
			case "pass1-batch":
				cfg.Pass1Batch = *pass1Batch
			case "pass2-batch":
				cfg.Pass2Batch = *pass2Batch
			case "workers":
				cfg.Workers = *workers
			case "skip-pass1":
				cfg.SkipPass1 = *skipPass1
			case "skip-pass2":
				cfg.SkipPass2 = *skipPass2
			case "skip-indexes":
				cfg.SkipIndexes = *skipIndexes
			case "compact":
				cfg.Compact = *compact
			case "disable-ner":
				cfg.DisableNER = *disableNER
			case "cache-ttl":
				cfg.CacheTTL = config.Duration(*cacheTTL)
			case "ner-types":
				cfg.NERTypesPath = *nerTypes
			case "limit":
				cfg.Limit = *limit
			case "log-level":
				cfg.LogLevel = config.LogLevel(*logLevel)
			}
		})
	})
	if err != nil {
		return fail(err)
	}

	slog.SetDefault(newLogger(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.Init(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	slog.Info("quindex pipeline starting",
		"dump", cfg.DumpPath,
		"languages", strings.Join(cfg.LanguageAllowlist, ","),
		"workers", cfg.Workers,
	)

	store, err := pgstore.NewStore(ctx, cfg.StoreDSN)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	res, err := pipeline.NewDriver(cfg, store, slog.Default(), observe.DefaultMetrics()).Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("pipeline cancelled")
		}
		return fail(err)
	}

	slog.Info("done",
		"entities", res.Entities,
		"stored", res.Pass1.Stored,
		"skipped", res.Pass1.Skipped,
		"context_updates", res.Pass2.Updated,
		"cache_pruned", res.CachePruned,
	)
	return 0
}

// ── Lookup subcommand ────────────────────────────────────────────────────────

func runLookup(args []string) int {
	fs := flag.NewFlagSet("quindex lookup", flag.ExitOnError)

	storeDSN := fs.String("dsn", "", "Postgres connection string for the entity store")
	mention := fs.String("mention", "", "surface form to resolve (required)")
	mentionContext := fs.String("context", "", "comma-separated context terms")
	crosslinks := fs.String("crosslinks", "", "comma-separated Wikipedia/DBpedia hint URLs")
	coarseHints := fs.String("coarse", "", "comma-separated coarse type hints")
	fineHints := fs.String("fine", "", "comma-separated fine type hints")
	topK := fs.Int("top-k", 5, "number of candidates to return")
	includeTopK := fs.Bool("include-top-k", false, "include the full ranked list in the response")
	noCache := fs.Bool("no-cache", false, "bypass the query cache")
	logLevel := fs.String("log-level", "warn", "log verbosity: debug, info, warn, error")
	if err := fs.Parse(args); err != nil {
		return fail(err)
	}

	slog.SetDefault(newLogger(config.LogLevel(*logLevel)))

	dsn := *storeDSN
	if dsn == "" {
		dsn = os.Getenv(config.EnvStoreDSN)
	}
	if dsn == "" {
		return fail(errors.New("lookup: -dsn or ENTITY_STORE_DSN is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := pgstore.NewStore(ctx, dsn)
	if err != nil {
		return fail(err)
	}
	defer store.Close()

	svc := lookup.NewService(store, slog.Default(), nil)
	resp, err := svc.Lookup(ctx, lookup.Request{
		Mention:        *mention,
		MentionContext: splitList(*mentionContext),
		CrosslinkHints: splitList(*crosslinks),
		CoarseHints:    splitList(*coarseHints),
		FineHints:      splitList(*fineHints),
		TopK:           *topK,
		IncludeTopK:    *includeTopK,
		UseCache:       !*noCache,
	})
	if err != nil {
		return fail(err)
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fail(err)
	}
	fmt.Println(string(out))
	return 0
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// resolveConfig layers defaults, the optional YAML file, the environment, and
// the CLI flags (via applyFlags), then validates.
func resolveConfig(path string, applyFlags func(*config.Config)) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		parsed, err := config.Parse(f)
		f.Close()
		if err != nil {
			return nil, err
		}
		cfg = *parsed
	}
	config.ApplyEnv(&cfg)
	applyFlags(&cfg)
	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
