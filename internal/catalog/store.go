package catalog

import (
	"context"
	"time"
)

// SearchQuery is the normalized input to a candidate search. Mention is
// required; the remaining fields widen or narrow the recall paths.
type SearchQuery struct {
	// Mention is the surface form to match against labels, aliases, and the
	// full-text search vector.
	Mention string

	// Context is the space-joined context terms; when non-empty it adds the
	// context-rank component to the score.
	Context string

	// Crosslink is the space-joined compact cross-link refs (Wikipedia /
	// DBpedia suffixes); when non-empty it enables the cross-link recall path.
	Crosslink string

	// CoarseHints and FineHints filter candidates by NER type when non-empty.
	CoarseHints []string
	FineHints   []string

	// Size caps the number of returned candidates.
	Size int
}

// EntityWriter ingests catalog rows. When buildSearchVector is false the
// search vector is left empty for pass 2 to rebuild.
type EntityWriter interface {
	UpsertEntities(ctx context.Context, rows []EntityRecord, buildSearchVector bool) (int, error)
}

// EntityScanner streams all entity IDs in ascending order, invoking fn once
// per batch. Iteration stops at the first error from fn.
type EntityScanner interface {
	IterEntityIDs(ctx context.Context, batchSize int, fn func(qids []string) error) error
	CountEntities(ctx context.Context) (int64, error)
}

// ContextStore is the pass-2 surface: read back relation objects, resolve
// their labels, and write finalized context strings (which also rebuilds each
// row's search vector).
type ContextStore interface {
	LoadContextInputs(ctx context.Context, qids []string) ([]ContextInput, error)
	ResolveLabels(ctx context.Context, qids []string) (map[string]string, error)
	UpdateContextStrings(ctx context.Context, updates []ContextUpdate) (int, error)
}

// Searcher executes the ranked candidate search for a normalized query.
type Searcher interface {
	SearchCandidates(ctx context.Context, q SearchQuery) ([]Candidate, error)
}

// QueryCache maps cache keys to serialized lookup responses. Get returns
// (nil, false, nil) on a miss.
type QueryCache interface {
	GetQueryCache(ctx context.Context, key string) ([]byte, bool, error)
	PutQueryCache(ctx context.Context, key string, response []byte) error
	PruneQueryCache(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Store is the full entity-store surface used by the pipeline driver.
type Store interface {
	EntityWriter
	EntityScanner
	ContextStore
	Searcher
	QueryCache

	// EnsureSearchIndexes idempotently creates the full-text and trigram
	// indexes required by SearchCandidates.
	EnsureSearchIndexes(ctx context.Context) error

	// CompactForLookup drops data not needed for query serving (the auxiliary
	// context-inputs table). Lookup remains fully functional afterwards;
	// re-running pass 2 requires a rebuild.
	CompactForLookup(ctx context.Context) error
}
