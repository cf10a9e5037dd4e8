// Package postgres provides the durable PostgreSQL-backed implementation of
// [catalog.Store]. One primary table (entities) carries the catalog rows and
// their weighted search vector; auxiliary tables hold pass-2 context inputs,
// cached query responses, and sampled raw entity payloads.
//
// The pg_trgm extension must be available in the target database; [Migrate]
// installs it via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// searchVectorExpr builds the weighted search document for one row: the label
// at weight A, the joined aliases at weight B, and the first 256 characters of
// the context string at weight D. The 'simple' configuration keeps tokenizing
// language-independent and deterministic.
const searchVectorExpr = `
    setweight(to_tsvector('simple', label), 'A')
 || setweight(to_tsvector('simple', aliases_text), 'B')
 || setweight(to_tsvector('simple', LEFT(context_string, 256)), 'D')`

// ─────────────────────────────────────────────────────────────────────────────
// Entities DDL — primary catalog table
// ─────────────────────────────────────────────────────────────────────────────

const ddlEntities = `
CREATE EXTENSION IF NOT EXISTS pg_trgm;

CREATE TABLE IF NOT EXISTS entities (
    qid            TEXT              PRIMARY KEY,
    label          TEXT              NOT NULL,
    aliases        JSONB             NOT NULL DEFAULT '[]',
    aliases_text   TEXT              NOT NULL DEFAULT '',
    coarse_type    TEXT              NOT NULL DEFAULT '',
    fine_type      TEXT              NOT NULL DEFAULT '',
    item_category  TEXT              NOT NULL DEFAULT 'OTHER',
    popularity     DOUBLE PRECISION  NOT NULL DEFAULT 0,
    prior          DOUBLE PRECISION  NOT NULL DEFAULT 0,
    wikipedia_ref  TEXT              NOT NULL DEFAULT '',
    dbpedia_ref    TEXT              NOT NULL DEFAULT '',
    context_string TEXT              NOT NULL DEFAULT '',
    search_vector  TSVECTOR,
    updated_at     TIMESTAMPTZ       NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_entities_coarse_type   ON entities (coarse_type);
CREATE INDEX IF NOT EXISTS idx_entities_fine_type     ON entities (fine_type);
CREATE INDEX IF NOT EXISTS idx_entities_item_category ON entities (item_category);
`

// ─────────────────────────────────────────────────────────────────────────────
// Auxiliary DDL — context inputs, query cache, sample cache
// ─────────────────────────────────────────────────────────────────────────────

const ddlContextInputs = `
CREATE TABLE IF NOT EXISTS entity_context_inputs (
    qid                   TEXT   PRIMARY KEY,
    relation_object_qids  JSONB  NOT NULL DEFAULT '[]'
);
`

const ddlQueryCache = `
CREATE TABLE IF NOT EXISTS query_cache (
    cache_key   TEXT         PRIMARY KEY,
    response    JSONB        NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_query_cache_created_at
    ON query_cache (created_at);
`

const ddlSampleCache = `
CREATE TABLE IF NOT EXISTS sample_entity_cache (
    qid         TEXT         PRIMARY KEY,
    label       TEXT         NOT NULL DEFAULT '',
    payload     JSONB        NOT NULL DEFAULT '{}',
    fetched_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ddlSearchIndexes holds the lookup-path indexes. They are created by
// [Store.EnsureSearchIndexes] rather than [Migrate] so a fresh ingestion run
// can bulk-load rows before paying the index maintenance cost.
const ddlSearchIndexes = `
CREATE INDEX IF NOT EXISTS idx_entities_search_vector
    ON entities USING GIN (search_vector);

CREATE INDEX IF NOT EXISTS idx_entities_label_trgm
    ON entities USING GIN (label gin_trgm_ops);

CREATE INDEX IF NOT EXISTS idx_entities_aliases_trgm
    ON entities USING GIN (aliases_text gin_trgm_ops)
    WHERE aliases_text <> '';

CREATE INDEX IF NOT EXISTS idx_entities_crosslink_trgm
    ON entities USING GIN ((wikipedia_ref || ' ' || dbpedia_ref) gin_trgm_ops)
    WHERE wikipedia_ref <> '' OR dbpedia_ref <> '';
`

// Migrate creates or ensures all required tables and extensions. It is
// idempotent (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS) and
// safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	statements := []string{
		ddlEntities,
		ddlContextInputs,
		ddlQueryCache,
		ddlSampleCache,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}
