package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quindex/quindex/internal/catalog"
)

// Compile-time assertion that Store satisfies the full catalog surface.
var _ catalog.Store = (*Store)(nil)

// Store is the PostgreSQL-backed entity catalog. It holds a single
// [pgxpool.Pool]; all operations are safe for concurrent use. Ingestion
// assumes a single writing process per run, concurrent readers are fine.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection, and runs
// [Migrate] so the schema exists before first use.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres store: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres store: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// EnsureSearchIndexes idempotently creates the full-text and trigram indexes
// backing [Store.SearchCandidates]. Safe to call after every ingestion run.
func (s *Store) EnsureSearchIndexes(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, ddlSearchIndexes); err != nil {
		return fmt.Errorf("postgres: ensure search indexes: %w", err)
	}
	return nil
}

// CompactForLookup drops the auxiliary context-inputs table, reclaiming the
// space it holds. Query serving is unaffected; re-running pass 2 afterwards
// requires a full rebuild.
func (s *Store) CompactForLookup(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DROP TABLE IF EXISTS entity_context_inputs`); err != nil {
		return fmt.Errorf("postgres: compact for lookup: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}
