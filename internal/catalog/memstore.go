package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quindex/quindex/internal/wikidata"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store]. It backs
// tests and small fixtures; search uses a simplified deterministic scorer
// that mirrors the shape of the SQL rank mix without reproducing its exact
// values.
type MemStore struct {
	mu            sync.RWMutex
	rows          map[string]EntityRecord
	contextInputs map[string][]string
	sampleLabels  map[string]string
	cache         map[string]cacheEntry
	compacted     bool
}

type cacheEntry struct {
	response []byte
	written  time.Time
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		rows:          make(map[string]EntityRecord),
		contextInputs: make(map[string][]string),
		sampleLabels:  make(map[string]string),
		cache:         make(map[string]cacheEntry),
	}
}

// SetSampleLabel seeds the label fallback consulted by [MemStore.ResolveLabels]
// for QIDs absent from the catalog, mirroring the sample-entity cache of the
// durable store.
func (s *MemStore) SetSampleLabel(qid, label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sampleLabels[qid] = label
}

// UpsertEntities implements [EntityWriter].
func (s *MemStore) UpsertEntities(ctx context.Context, rows []EntityRecord, buildSearchVector bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.rows[row.QID] = row
		if !s.compacted {
			s.contextInputs[row.QID] = append([]string{}, row.RelationObjectQIDs...)
		}
	}
	return len(rows), nil
}

// IterEntityIDs implements [EntityScanner]. IDs are yielded in ascending
// lexicographic order, batchSize at a time.
func (s *MemStore) IterEntityIDs(ctx context.Context, batchSize int, fn func(qids []string) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}

	s.mu.RLock()
	qids := make([]string, 0, len(s.rows))
	for qid := range s.rows {
		qids = append(qids, qid)
	}
	s.mu.RUnlock()
	sort.Strings(qids)

	for start := 0; start < len(qids); start += batchSize {
		end := start + batchSize
		if end > len(qids) {
			end = len(qids)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(qids[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// CountEntities implements [EntityScanner].
func (s *MemStore) CountEntities(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.rows)), nil
}

// LoadContextInputs implements [ContextStore].
func (s *MemStore) LoadContextInputs(ctx context.Context, qids []string) ([]ContextInput, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ContextInput, 0, len(qids))
	for _, qid := range qids {
		objects, ok := s.contextInputs[qid]
		if !ok {
			continue
		}
		out = append(out, ContextInput{
			QID:                qid,
			RelationObjectQIDs: append([]string(nil), objects...),
		})
	}
	return out, nil
}

// ResolveLabels implements [ContextStore]. Labels come from the catalog rows
// first, then from the sample-label fallback.
func (s *MemStore) ResolveLabels(ctx context.Context, qids []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(qids))
	for _, qid := range qids {
		if row, ok := s.rows[qid]; ok && row.Label != "" {
			out[qid] = row.Label
			continue
		}
		if label, ok := s.sampleLabels[qid]; ok && label != "" {
			out[qid] = label
		}
	}
	return out, nil
}

// UpdateContextStrings implements [ContextStore].
func (s *MemStore) UpdateContextStrings(ctx context.Context, updates []ContextUpdate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, u := range updates {
		row, ok := s.rows[u.QID]
		if !ok {
			continue
		}
		row.ContextString = u.ContextString
		s.rows[u.QID] = row
		updated++
	}
	return updated, nil
}

// SearchCandidates implements [Searcher] with a simplified deterministic
// scorer: weighted token overlap against the search document, name and
// crosslink matching, and a context overlap component. Ties order by
// descending prior, then ascending QID, matching the durable store.
func (s *MemStore) SearchCandidates(ctx context.Context, q SearchQuery) ([]Candidate, error) {
	mentionTokens := wikidata.Tokenize(q.Mention)
	contextTokens := wikidata.Tokenize(q.Context)
	mentionNorm := wikidata.NormalizeExact(q.Mention)
	crosslinks := map[string]bool{}
	for _, ref := range strings.Fields(q.Crosslink) {
		crosslinks[ref] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Candidate
	for _, row := range s.rows {
		if !matchesTypeHints(row, q.CoarseHints, q.FineHints) {
			continue
		}

		docTokens := tokenSet(row.Label + " " + strings.Join(row.Aliases, " ") + " " + row.ContextString)
		ftsRank := overlapFraction(mentionTokens, docTokens)
		nameSim := nameSimilarity(mentionNorm, row)
		crosslinkSim := 0.0
		if crosslinks[row.WikipediaRef] || crosslinks[row.DBpediaRef] {
			crosslinkSim = 1.0
		}
		contextRank := 0.0
		if len(contextTokens) > 0 {
			contextRank = overlapFraction(contextTokens, tokenSet(row.ContextString))
		}

		if ftsRank == 0 && nameSim == 0 && crosslinkSim == 0 {
			continue
		}

		c := Candidate{
			QID:           row.QID,
			Label:         row.Label,
			Aliases:       append([]string(nil), row.Aliases...),
			ContextString: row.ContextString,
			CoarseType:    row.CoarseType,
			FineType:      row.FineType,
			ItemCategory:  row.ItemCategory,
			Popularity:    row.Popularity,
			Prior:         row.Prior,
			WikipediaRef:  row.WikipediaRef,
			DBpediaRef:    row.DBpediaRef,
			Score:         5.0*ftsRank + 2.0*nameSim + 1.5*crosslinkSim + 1.0*contextRank,
		}
		out = append(out, c)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Prior != out[j].Prior {
			return out[i].Prior > out[j].Prior
		}
		return out[i].QID < out[j].QID
	})

	size := q.Size
	if size < 20 {
		size = 20
	}
	if len(out) > size {
		out = out[:size]
	}
	return out, nil
}

// GetQueryCache implements [QueryCache].
func (s *MemStore) GetQueryCache(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.response...), true, nil
}

// PutQueryCache implements [QueryCache].
func (s *MemStore) PutQueryCache(ctx context.Context, key string, response []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = cacheEntry{
		response: append([]byte(nil), response...),
		written:  time.Now(),
	}
	return nil
}

// PruneQueryCache implements [QueryCache].
func (s *MemStore) PruneQueryCache(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var pruned int64
	for key, entry := range s.cache {
		if entry.written.Before(cutoff) {
			delete(s.cache, key)
			pruned++
		}
	}
	return pruned, nil
}

// EnsureSearchIndexes implements [Store]; the in-memory store has no indexes.
func (s *MemStore) EnsureSearchIndexes(ctx context.Context) error { return nil }

// CompactForLookup implements [Store] by dropping the context-inputs map.
func (s *MemStore) CompactForLookup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contextInputs = make(map[string][]string)
	s.compacted = true
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

func matchesTypeHints(row EntityRecord, coarseHints, fineHints []string) bool {
	if len(coarseHints) > 0 && !containsFold(coarseHints, row.CoarseType) {
		return false
	}
	if len(fineHints) > 0 && !containsFold(fineHints, row.FineType) {
		return false
	}
	return true
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func tokenSet(text string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range wikidata.Tokenize(text) {
		set[tok] = true
	}
	return set
}

// overlapFraction is the fraction of query tokens present in the document.
func overlapFraction(queryTokens []string, docTokens map[string]bool) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	hits := 0
	for _, tok := range queryTokens {
		if docTokens[tok] {
			hits++
		}
	}
	return float64(hits) / float64(len(queryTokens))
}

// nameSimilarity approximates trigram similarity: 1.0 on an exact normalized
// name match, 0.5 on a substring containment either way.
func nameSimilarity(mentionNorm string, row EntityRecord) float64 {
	if mentionNorm == "" {
		return 0
	}
	best := 0.0
	names := append([]string{row.Label}, row.Aliases...)
	for _, name := range names {
		norm := wikidata.NormalizeExact(name)
		if norm == "" {
			continue
		}
		switch {
		case norm == mentionNorm:
			return 1.0
		case strings.Contains(norm, mentionNorm) || strings.Contains(mentionNorm, norm):
			if best < 0.5 {
				best = 0.5
			}
		}
	}
	return best
}
