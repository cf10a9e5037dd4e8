package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/quindex/quindex/internal/catalog"
)

// upsertEntitySQL writes one catalog row. The search vector is built inline
// from the incoming values when requested ($13 = true); otherwise it is left
// NULL for pass 2 to rebuild.
const upsertEntitySQL = `
INSERT INTO entities (
    qid, label, aliases, aliases_text, coarse_type, fine_type, item_category,
    popularity, prior, wikipedia_ref, dbpedia_ref, context_string,
    search_vector, updated_at
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
    CASE WHEN $13 THEN
           setweight(to_tsvector('simple', $2::text), 'A')
        || setweight(to_tsvector('simple', $4::text), 'B')
        || setweight(to_tsvector('simple', LEFT($12::text, 256)), 'D')
    END,
    now()
)
ON CONFLICT (qid) DO UPDATE SET
    label          = EXCLUDED.label,
    aliases        = EXCLUDED.aliases,
    aliases_text   = EXCLUDED.aliases_text,
    coarse_type    = EXCLUDED.coarse_type,
    fine_type      = EXCLUDED.fine_type,
    item_category  = EXCLUDED.item_category,
    popularity     = EXCLUDED.popularity,
    prior          = EXCLUDED.prior,
    wikipedia_ref  = EXCLUDED.wikipedia_ref,
    dbpedia_ref    = EXCLUDED.dbpedia_ref,
    context_string = EXCLUDED.context_string,
    search_vector  = EXCLUDED.search_vector,
    updated_at     = now()
`

const upsertContextInputSQL = `
INSERT INTO entity_context_inputs (qid, relation_object_qids)
VALUES ($1, $2)
ON CONFLICT (qid) DO UPDATE SET relation_object_qids = EXCLUDED.relation_object_qids
`

// updateContextSQL finalizes one row: it writes the context string and
// rebuilds the weighted search vector from the stored label and aliases.
const updateContextSQL = `
UPDATE entities SET
    context_string = $2,
    search_vector  =
           setweight(to_tsvector('simple', label), 'A')
        || setweight(to_tsvector('simple', aliases_text), 'B')
        || setweight(to_tsvector('simple', LEFT($2::text, 256)), 'D'),
    updated_at     = now()
WHERE qid = $1
`

// UpsertEntities implements [catalog.EntityWriter]. The whole batch commits
// in one transaction. Every row is mirrored into the auxiliary
// context-inputs table, relation objects or not, so pass 2 visits every
// entity and rebuilds every search vector.
func (s *Store) UpsertEntities(ctx context.Context, rows []catalog.EntityRecord, buildSearchVector bool) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		aliases := row.Aliases
		if aliases == nil {
			aliases = []string{}
		}
		batch.Queue(upsertEntitySQL,
			row.QID, row.Label, aliases, strings.Join(aliases, " "),
			row.CoarseType, row.FineType, string(row.ItemCategory),
			row.Popularity, row.Prior, row.WikipediaRef, row.DBpediaRef,
			row.ContextString, buildSearchVector,
		)
		relations := row.RelationObjectQIDs
		if relations == nil {
			relations = []string{}
		}
		batch.Queue(upsertContextInputSQL, row.QID, relations)
	}

	if err := s.sendBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("postgres: upsert entities: %w", err)
	}
	return len(rows), nil
}

// IterEntityIDs implements [catalog.EntityScanner] with keyset pagination in
// ascending qid order. Iteration stops at the first error from fn.
func (s *Store) IterEntityIDs(ctx context.Context, batchSize int, fn func(qids []string) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	after := ""
	for {
		rows, err := s.pool.Query(ctx,
			`SELECT qid FROM entities WHERE qid > $1 ORDER BY qid ASC LIMIT $2`,
			after, batchSize,
		)
		if err != nil {
			return fmt.Errorf("postgres: iter entity ids: %w", err)
		}
		qids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("postgres: iter entity ids: %w", err)
		}
		if len(qids) == 0 {
			return nil
		}

		if err := fn(qids); err != nil {
			return err
		}
		after = qids[len(qids)-1]
	}
}

// CountEntities implements [catalog.EntityScanner].
func (s *Store) CountEntities(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM entities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count entities: %w", err)
	}
	return count, nil
}

// LoadContextInputs implements [catalog.ContextStore]. Every upserted QID
// has a stored row, possibly with an empty relation list; QIDs absent from
// the table (after compaction) are absent from the result.
func (s *Store) LoadContextInputs(ctx context.Context, qids []string) ([]catalog.ContextInput, error) {
	if len(qids) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT qid, relation_object_qids FROM entity_context_inputs WHERE qid = ANY($1) ORDER BY qid ASC`,
		qids,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: load context inputs: %w", err)
	}
	defer rows.Close()

	var out []catalog.ContextInput
	for rows.Next() {
		var input catalog.ContextInput
		if err := rows.Scan(&input.QID, &input.RelationObjectQIDs); err != nil {
			return nil, fmt.Errorf("postgres: load context inputs: %w", err)
		}
		out = append(out, input)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load context inputs: %w", err)
	}
	return out, nil
}

// ResolveLabels implements [catalog.ContextStore]. QIDs missing from the
// entities table fall back to the sample-entity cache; QIDs unknown to both
// are absent from the result.
func (s *Store) ResolveLabels(ctx context.Context, qids []string) (map[string]string, error) {
	out := make(map[string]string, len(qids))
	if len(qids) == 0 {
		return out, nil
	}

	if err := s.collectLabels(ctx,
		`SELECT qid, label FROM entities WHERE qid = ANY($1) AND label <> ''`,
		qids, out,
	); err != nil {
		return nil, fmt.Errorf("postgres: resolve labels: %w", err)
	}

	var missing []string
	for _, qid := range qids {
		if _, ok := out[qid]; !ok {
			missing = append(missing, qid)
		}
	}
	if len(missing) == 0 {
		return out, nil
	}

	if err := s.collectLabels(ctx,
		`SELECT qid, label FROM sample_entity_cache WHERE qid = ANY($1) AND label <> ''`,
		missing, out,
	); err != nil {
		return nil, fmt.Errorf("postgres: resolve labels from sample cache: %w", err)
	}
	return out, nil
}

func (s *Store) collectLabels(ctx context.Context, sql string, qids []string, out map[string]string) error {
	rows, err := s.pool.Query(ctx, sql, qids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var qid, label string
		if err := rows.Scan(&qid, &label); err != nil {
			return err
		}
		out[qid] = label
	}
	return rows.Err()
}

// UpdateContextStrings implements [catalog.ContextStore]. The batch commits
// in one transaction; each update rebuilds that row's search vector.
func (s *Store) UpdateContextStrings(ctx context.Context, updates []catalog.ContextUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(updateContextSQL, u.QID, u.ContextString)
	}
	if err := s.sendBatch(ctx, batch); err != nil {
		return 0, fmt.Errorf("postgres: update context strings: %w", err)
	}
	return len(updates), nil
}

// StoreSampleEntity caches one raw entity payload and its resolved label.
// [Store.ResolveLabels] consults this cache for QIDs absent from the catalog.
func (s *Store) StoreSampleEntity(ctx context.Context, qid, label string, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte(`{}`)
	}
	_, err := s.pool.Exec(ctx, `
INSERT INTO sample_entity_cache (qid, label, payload, fetched_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (qid) DO UPDATE SET
    label = EXCLUDED.label, payload = EXCLUDED.payload, fetched_at = now()`,
		qid, label, payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: store sample entity: %w", err)
	}
	return nil
}

// sendBatch runs all queued statements inside one transaction.
func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return err
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
