package lookup

import (
	"errors"
	"strings"
	"testing"
)

func validRequest() Request {
	return Request{Mention: "Apple", TopK: 5}
}

func TestNormalize_RejectsBadInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"empty mention", func(r *Request) { r.Mention = "" }},
		{"whitespace mention", func(r *Request) { r.Mention = "   \t " }},
		{"punctuation-only mention", func(r *Request) { r.Mention = "!!! ... ???" }},
		{"overlong mention", func(r *Request) { r.Mention = strings.Repeat("a", 513) }},
		{"top_k zero", func(r *Request) { r.TopK = 0 }},
		{"top_k negative", func(r *Request) { r.TopK = -1 }},
		{"top_k above cap", func(r *Request) { r.TopK = 101 }},
		{"coarse hint with spaces", func(r *Request) { r.CoarseHints = []string{"HU MAN"} }},
		{"fine hint with quote", func(r *Request) { r.FineHints = []string{`CITY"`} }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)
			_, err := Normalize(req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Normalize() error = %v, want *ValidationError", err)
			}
		})
	}
}

func TestNormalize_AcceptsBoundaryTopK(t *testing.T) {
	for _, topK := range []int{1, 100} {
		req := validRequest()
		req.TopK = topK
		q, err := Normalize(req)
		if err != nil {
			t.Fatalf("Normalize(top_k=%d): %v", topK, err)
		}
		if q.Limit != topK {
			t.Errorf("Limit = %d, want %d", q.Limit, topK)
		}
	}
}

func TestNormalize_MentionNorm(t *testing.T) {
	req := validRequest()
	req.Mention = "  Côte d'Ivoire  "
	q, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if q.Mention != "Côte d'Ivoire" {
		t.Errorf("Mention = %q, want trimmed original", q.Mention)
	}
	if q.MentionNorm != "cote d ivoire" {
		t.Errorf("MentionNorm = %q, want %q", q.MentionNorm, "cote d ivoire")
	}
}

func TestNormalize_ContextTermsDeduplicated(t *testing.T) {
	req := validRequest()
	req.MentionContext = []string{"the Cupertino campus", "cupertino, California"}
	q, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []string{"the", "cupertino", "campus", "california"}
	if len(q.ContextTerms) != len(want) {
		t.Fatalf("ContextTerms = %v, want %v", q.ContextTerms, want)
	}
	for i, term := range want {
		if q.ContextTerms[i] != term {
			t.Errorf("ContextTerms[%d] = %q, want %q", i, q.ContextTerms[i], term)
		}
	}
}

func TestNormalize_CrosslinkPrefixStripping(t *testing.T) {
	req := validRequest()
	req.CrosslinkHints = []string{
		"https://en.wikipedia.org/wiki/Apple_Inc.",
		"https://dbpedia.org/resource/Apple_Inc.",
		"Bare_Ref",
	}
	q, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	// Both URL forms compact to the same ref.
	wantRefs := []string{"Apple_Inc.", "Bare_Ref"}
	if len(q.CrosslinkRefs) != len(wantRefs) {
		t.Fatalf("CrosslinkRefs = %v, want %v", q.CrosslinkRefs, wantRefs)
	}
	for i, ref := range wantRefs {
		if q.CrosslinkRefs[i] != ref {
			t.Errorf("CrosslinkRefs[%d] = %q, want %q", i, q.CrosslinkRefs[i], ref)
		}
	}
	if len(q.CrosslinkHints) != 3 {
		t.Errorf("CrosslinkHints = %v, want the three originals preserved", q.CrosslinkHints)
	}
}

func TestNormalize_TypeHintDeduplication(t *testing.T) {
	req := validRequest()
	req.CoarseHints = []string{"ORG", " ORG ", "", "LOC"}
	q, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(q.CoarseHints) != 2 || q.CoarseHints[0] != "ORG" || q.CoarseHints[1] != "LOC" {
		t.Errorf("CoarseHints = %v, want [ORG LOC]", q.CoarseHints)
	}
}

func TestCacheKey_Stable(t *testing.T) {
	req := validRequest()
	req.MentionContext = []string{"cupertino technology"}
	req.CoarseHints = []string{"ORG"}

	q1, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	q2, err := Normalize(req)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	k1, k2 := q1.CacheKey(), q2.CacheKey()
	if k1 != k2 {
		t.Errorf("CacheKey not stable: %q vs %q", k1, k2)
	}
	if len(k1) != 64 {
		t.Errorf("CacheKey length = %d, want 64 hex chars", len(k1))
	}
}

func TestCacheKey_IgnoresSurfaceMentionForm(t *testing.T) {
	a := validRequest()
	a.Mention = "Apple"
	b := validRequest()
	b.Mention = "  APPLE!  "

	qa, err := Normalize(a)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	qb, err := Normalize(b)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if qa.CacheKey() != qb.CacheKey() {
		t.Error("requests normalizing to the same mention should share a cache key")
	}
}

func TestCacheKey_SensitiveToParameters(t *testing.T) {
	base, err := Normalize(validRequest())
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	variants := []func(*Request){
		func(r *Request) { r.TopK = 6 },
		func(r *Request) { r.IncludeTopK = true },
		func(r *Request) { r.MentionContext = []string{"fruit"} },
		func(r *Request) { r.CoarseHints = []string{"ORG"} },
		func(r *Request) { r.FineHints = []string{"COMPANY"} },
		func(r *Request) { r.CrosslinkHints = []string{"Apple_Inc."} },
	}

	for i, mutate := range variants {
		req := validRequest()
		mutate(&req)
		q, err := Normalize(req)
		if err != nil {
			t.Fatalf("Normalize variant %d: %v", i, err)
		}
		if q.CacheKey() == base.CacheKey() {
			t.Errorf("variant %d should change the cache key", i)
		}
	}
}

func TestCacheKey_UseCacheNotPartOfIdentity(t *testing.T) {
	a := validRequest()
	a.UseCache = true
	b := validRequest()
	b.UseCache = false

	qa, _ := Normalize(a)
	qb, _ := Normalize(b)
	if qa.CacheKey() != qb.CacheKey() {
		t.Error("UseCache must not change the cache key")
	}
}
