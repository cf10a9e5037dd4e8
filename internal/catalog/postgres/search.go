package postgres

import (
	"context"
	"fmt"

	"github.com/quindex/quindex/internal/catalog"
)

// defaultFuzzyTopK is the floor on the SQL-side candidate cap; the reranker
// needs headroom beyond the caller's limit to reorder properly.
const defaultFuzzyTopK = 20

// searchCandidatesSQL combines three OR-ed recall paths (full-text, trigram
// on label/aliases, trigram on crosslink refs) under optional type-hint
// filters, and scores each hit with a fixed weighted rank mix. $1 mention,
// $2 context, $3 crosslink, $4 coarse hints (NULL = no filter), $5 fine
// hints, $6 limit.
const searchCandidatesSQL = `
SELECT
    qid, label, aliases, context_string, coarse_type, fine_type,
    item_category, popularity, prior, wikipedia_ref, dbpedia_ref,
      5.0 * ts_rank(COALESCE(search_vector, ''::tsvector), plainto_tsquery('simple', $1))
    + 2.0 * GREATEST(similarity(label, $1), similarity(aliases_text, $1))
    + CASE WHEN $3 <> ''
           THEN 1.5 * similarity(wikipedia_ref || ' ' || dbpedia_ref, $3)
           ELSE 0 END
    + CASE WHEN $2 <> ''
           THEN 1.0 * ts_rank(to_tsvector('simple', LEFT(context_string, 256)),
                              plainto_tsquery('simple', $2))
           ELSE 0 END
    AS score
FROM entities
WHERE (
        search_vector @@ plainto_tsquery('simple', $1)
     OR label % $1
     OR (aliases_text <> '' AND aliases_text % $1)
     OR ($3 <> '' AND (
            (wikipedia_ref <> '' AND wikipedia_ref % $3)
         OR (dbpedia_ref <> '' AND dbpedia_ref % $3)))
      )
  AND ($4::text[] IS NULL OR coarse_type = ANY($4))
  AND ($5::text[] IS NULL OR fine_type = ANY($5))
ORDER BY score DESC, prior DESC, qid ASC
LIMIT $6
`

// SearchCandidates implements [catalog.Searcher]. Results are deterministic
// for a fixed catalog state: ties order by descending prior, then ascending
// qid.
func (s *Store) SearchCandidates(ctx context.Context, q catalog.SearchQuery) ([]catalog.Candidate, error) {
	if q.Mention == "" {
		return nil, fmt.Errorf("postgres: search candidates: empty mention")
	}

	size := q.Size
	if size < defaultFuzzyTopK {
		size = defaultFuzzyTopK
	}

	var coarseHints, fineHints []string
	if len(q.CoarseHints) > 0 {
		coarseHints = q.CoarseHints
	}
	if len(q.FineHints) > 0 {
		fineHints = q.FineHints
	}

	rows, err := s.pool.Query(ctx, searchCandidatesSQL,
		q.Mention, q.Context, q.Crosslink, coarseHints, fineHints, size,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: search candidates: %w", err)
	}
	defer rows.Close()

	var out []catalog.Candidate
	for rows.Next() {
		var c catalog.Candidate
		if err := rows.Scan(
			&c.QID, &c.Label, &c.Aliases, &c.ContextString, &c.CoarseType,
			&c.FineType, &c.ItemCategory, &c.Popularity, &c.Prior,
			&c.WikipediaRef, &c.DBpediaRef, &c.Score,
		); err != nil {
			return nil, fmt.Errorf("postgres: search candidates: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: search candidates: %w", err)
	}
	return out, nil
}
