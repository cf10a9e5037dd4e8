package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"testing"

	"github.com/quindex/quindex/internal/catalog"
)

// testStore seeds a MemStore with the canonical apple ambiguity: the company
// and the fruit.
func testStore(t *testing.T) *catalog.MemStore {
	t.Helper()
	store := catalog.NewMemStore()
	rows := []catalog.EntityRecord{
		{
			QID:           "Q312",
			Label:         "Apple Inc.",
			Aliases:       []string{"Apple", "Apple Computer"},
			CoarseType:    "ORG",
			FineType:      "COMPANY",
			ItemCategory:  catalog.CategoryEntity,
			Popularity:    180,
			Prior:         catalog.PopularityToPrior(180),
			WikipediaRef:  "Apple_Inc.",
			DBpediaRef:    "Apple_Inc.",
			ContextString: "Cupertino; technology company; United States of America",
		},
		{
			QID:           "Q89",
			Label:         "apple",
			Aliases:       []string{"apple fruit"},
			CoarseType:    "THING",
			FineType:      "FOOD_BEVERAGE",
			ItemCategory:  catalog.CategoryEntity,
			Popularity:    140,
			Prior:         catalog.PopularityToPrior(140),
			WikipediaRef:  "Apple",
			ContextString: "fruit; Malus domestica; tree",
		},
	}
	if _, err := store.UpsertEntities(context.Background(), rows, true); err != nil {
		t.Fatalf("UpsertEntities: %v", err)
	}
	return store
}

func newTestService(t *testing.T) (*Service, *catalog.MemStore) {
	t.Helper()
	store := testStore(t)
	return NewService(store, slog.Default(), nil), store
}

func TestLookup_TypeHintsNarrowToSingleCandidate(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Lookup(context.Background(), Request{
		Mention:     "Apple",
		CoarseHints: []string{"ORG"},
		FineHints:   []string{"COMPANY"},
		TopK:        5,
		IncludeTopK: true,
	})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.Returned != 1 {
		t.Fatalf("returned = %d, want 1", resp.Returned)
	}
	if resp.Top1 == nil || resp.Top1.QID != "Q312" {
		t.Fatalf("top1 = %+v, want Q312", resp.Top1)
	}
	if resp.Top1.TypeScore != 1.0 {
		t.Errorf("top1.type_score = %v, want 1.0", resp.Top1.TypeScore)
	}
	if resp.Strategy != "fuzzy" {
		t.Errorf("strategy = %q, want fuzzy", resp.Strategy)
	}
}

func TestLookup_ContextDisambiguates(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Lookup(context.Background(), Request{
		Mention:        "Apple",
		MentionContext: []string{"cupertino", "technology"},
		TopK:           5,
		IncludeTopK:    true,
	})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.Returned != 2 {
		t.Fatalf("returned = %d, want 2", resp.Returned)
	}
	if resp.Top1.QID != "Q312" {
		t.Fatalf("top1 = %s, want Q312", resp.Top1.QID)
	}
	if resp.Top1.ContextScore <= resp.TopK[1].ContextScore {
		t.Errorf("top1 context_score %v should exceed runner-up's %v",
			resp.Top1.ContextScore, resp.TopK[1].ContextScore)
	}
}

func TestLookup_TopKOmittedUnlessRequested(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Lookup(context.Background(), Request{Mention: "Apple", TopK: 5})
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.TopK != nil {
		t.Errorf("top_k = %v, want nil when include_top_k is false", resp.TopK)
	}
	if resp.Top1 == nil {
		t.Error("top1 should be set even without include_top_k")
	}
}

func TestLookup_ValidationErrorNotCached(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Lookup(context.Background(), Request{Mention: "???", TopK: 5, UseCache: true})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Lookup error = %v, want *ValidationError", err)
	}

	if n, err := store.PruneQueryCache(context.Background(), 0); err != nil || n != 0 {
		t.Errorf("cache rows = %d (err %v), want empty cache", n, err)
	}
}

func TestLookup_CacheRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	req := Request{
		Mention:        "Apple",
		MentionContext: []string{"cupertino"},
		TopK:           5,
		IncludeTopK:    true,
		UseCache:       true,
	}

	first, err := svc.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("first Lookup: %v", err)
	}
	if first.CacheHit {
		t.Error("first lookup should be a cache miss")
	}

	second, err := svc.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("second Lookup: %v", err)
	}
	if !second.CacheHit {
		t.Error("second lookup should be a cache hit")
	}

	// Apart from the hit flag, cached and fresh responses are identical.
	second.CacheHit = first.CacheHit
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Errorf("cached response diverged:\n%s\nvs\n%s", a, b)
	}
}

func TestLookup_CacheDisabledSkipsStore(t *testing.T) {
	svc, store := newTestService(t)
	req := Request{Mention: "Apple", TopK: 5}

	if _, err := svc.Lookup(context.Background(), req); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if n, _ := store.PruneQueryCache(context.Background(), 0); n != 0 {
		t.Errorf("cache rows = %d, want 0 with UseCache false", n)
	}
}

func TestLookup_CorruptCacheEntryDegradesToMiss(t *testing.T) {
	svc, store := newTestService(t)
	req := Request{Mention: "Apple", TopK: 5, UseCache: true}

	q, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if err := store.PutQueryCache(context.Background(), q.CacheKey(), []byte("{not json")); err != nil {
		t.Fatalf("PutQueryCache: %v", err)
	}

	resp, err := svc.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if resp.CacheHit {
		t.Error("corrupt entry must not count as a hit")
	}
	if resp.Top1 == nil {
		t.Error("lookup should recover with a fresh search")
	}
}

// erroringSearcher fails every search to exercise the upstream error path.
type erroringSearcher struct {
	*catalog.MemStore
}

func (e erroringSearcher) SearchCandidates(ctx context.Context, q catalog.SearchQuery) ([]catalog.Candidate, error) {
	return nil, errors.New("connection refused")
}

func TestLookup_StoreFailureIsUpstreamError(t *testing.T) {
	svc := NewService(erroringSearcher{catalog.NewMemStore()}, slog.Default(), nil)

	_, err := svc.Lookup(context.Background(), Request{Mention: "Apple", TopK: 5})
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("Lookup error = %v, want *UpstreamError", err)
	}
}

func TestLookup_Deterministic(t *testing.T) {
	svc, _ := newTestService(t)
	req := Request{
		Mention:        "Apple",
		MentionContext: []string{"cupertino", "technology"},
		TopK:           5,
		IncludeTopK:    true,
	}

	first, err := svc.Lookup(context.Background(), req)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := svc.Lookup(context.Background(), req)
		if err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d diverged", i)
		}
	}
}
