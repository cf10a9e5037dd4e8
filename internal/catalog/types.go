// Package catalog defines the entity-catalog data model shared by the
// ingestion pipeline and the retrieval core: the persisted [EntityRecord],
// the search-time [Candidate], and the store interfaces implemented by
// catalog/postgres (durable) and [MemStore] (in-memory, tests and fixtures).
package catalog

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/quindex/quindex/internal/wikidata"
)

// ItemCategory is the structural class of a catalog row. The type lives in
// [wikidata], next to the classifier that derives it; the alias keeps the
// store API self-contained.
type ItemCategory = wikidata.ItemCategory

const (
	CategoryEntity         = wikidata.CategoryEntity
	CategoryType           = wikidata.CategoryType
	CategoryPredicate      = wikidata.CategoryPredicate
	CategoryDisambiguation = wikidata.CategoryDisambiguation
	CategoryLexeme         = wikidata.CategoryLexeme
	CategoryForm           = wikidata.CategoryForm
	CategorySense          = wikidata.CategorySense
	CategoryMediaInfo      = wikidata.CategoryMediaInfo
	CategoryOther          = wikidata.CategoryOther
)

// EntityRecord is one catalog row. Rows are created by pass 1 (with an empty
// ContextString) and finalized by pass 2, which writes the context string and
// rebuilds the row's search vector.
type EntityRecord struct {
	// QID is the primary key (e.g., "Q312", "P31"). Stable across rebuilds.
	QID string `json:"qid"`

	// Label is the canonical display label: the English label when present,
	// otherwise the lexicographically-first non-empty label. Never empty and
	// always whitespace-normalized.
	Label string `json:"label"`

	// Aliases are secondary name variants: non-primary labels from the other
	// allowed languages followed by per-language aliases, deduplicated, with
	// English variants first and the remaining languages in sorted order.
	// Never contains Label.
	Aliases []string `json:"aliases"`

	// CoarseType and FineType come from the lexical NER typer. Both are empty
	// when NER is disabled.
	CoarseType string `json:"coarse_type"`
	FineType   string `json:"fine_type"`

	ItemCategory ItemCategory `json:"item_category"`

	// Popularity is the sitelink count from the dump; Prior is its bounded
	// transform, always equal to PopularityToPrior(Popularity).
	Popularity float64 `json:"popularity"`
	Prior      float64 `json:"prior"`

	// WikipediaRef and DBpediaRef are compact cross-link identifiers: the
	// suffix after "https://en.wikipedia.org/wiki/" respectively
	// "https://dbpedia.org/resource/". Empty when the entity has no enwiki
	// sitelink.
	WikipediaRef string `json:"wikipedia_ref"`
	DBpediaRef   string `json:"dbpedia_ref"`

	// RelationObjectQIDs lists the entity IDs referenced by this entity's
	// claims, in encounter order, deduplicated and bounded. Persisted in the
	// auxiliary context-inputs table; only needed until pass 2 completes.
	RelationObjectQIDs []string `json:"relation_object_qids,omitempty"`

	// ContextString joins the resolved labels of RelationObjectQIDs with "; ",
	// sorted and deduplicated, truncated to the configured maximum. Written by
	// pass 2.
	ContextString string `json:"context_string"`
}

// ContextInput pairs an entity with its unresolved relation objects, as read
// back from the auxiliary context-inputs table during pass 2.
type ContextInput struct {
	QID                string
	RelationObjectQIDs []string
}

// ContextUpdate carries one finalized context string for an entity.
type ContextUpdate struct {
	QID           string
	ContextString string
}

// PopularityToPrior maps a nonnegative popularity (sitelink count) into [0,1).
// Deterministic and corpus-independent; the constant 6 keeps the curve flat
// enough that very popular entities do not drown out the name signal.
func PopularityToPrior(popularity float64) float64 {
	if popularity < 0 || math.IsNaN(popularity) {
		popularity = 0
	}
	return 1.0 - math.Exp(-math.Log1p(popularity)/6.0)
}

// Candidate is one search hit, either fresh from the entity store or decoded
// from a cached response. The rerank fields (NameScore through FinalScore)
// are zero until the reranker fills them in.
type Candidate struct {
	QID           string       `json:"qid"`
	Label         string       `json:"label"`
	Aliases       []string     `json:"aliases"`
	ContextString string       `json:"context_string"`
	CoarseType    string       `json:"coarse_type"`
	FineType      string       `json:"fine_type"`
	ItemCategory  ItemCategory `json:"item_category"`
	Popularity    float64      `json:"popularity"`
	Prior         float64      `json:"prior"`
	WikipediaRef  string       `json:"wikipedia_ref"`
	DBpediaRef    string       `json:"dbpedia_ref"`

	// Score is the raw store-side score (SQL rank mix).
	Score float64 `json:"score"`

	NameScore      float64 `json:"name_score"`
	ContextScore   float64 `json:"context_score"`
	TypeScore      float64 `json:"type_score"`
	PriorScore     float64 `json:"prior_score"`
	ExactNameMatch bool    `json:"exact_name_match"`
	FinalScore     float64 `json:"final_score"`
}

// candidateWire mirrors Candidate plus the legacy alias fields still found in
// cached responses written by older builds.
type candidateWire struct {
	QID           string            `json:"qid"`
	Label         string            `json:"label"`
	Aliases       []string          `json:"aliases"`
	NameVariants  []string          `json:"name_variants"`
	LabelsByLang  map[string]string `json:"labels"`
	ContextString string            `json:"context_string"`
	CoarseType    string            `json:"coarse_type"`
	FineType      string            `json:"fine_type"`
	ItemCategory  ItemCategory      `json:"item_category"`
	Popularity    float64           `json:"popularity"`
	Prior         float64           `json:"prior"`
	WikipediaRef  string            `json:"wikipedia_ref"`
	DBpediaRef    string            `json:"dbpedia_ref"`

	Score          float64 `json:"score"`
	NameScore      float64 `json:"name_score"`
	ContextScore   float64 `json:"context_score"`
	TypeScore      float64 `json:"type_score"`
	PriorScore     float64 `json:"prior_score"`
	ExactNameMatch bool    `json:"exact_name_match"`
	FinalScore     float64 `json:"final_score"`
}

// UnmarshalJSON decodes a candidate from either the current wire shape or the
// two legacy shapes: "name_variants" (flat list) and per-language "labels"
// maps. Newer field names win when several are present.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var wire candidateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	aliases := wire.Aliases
	if aliases == nil && wire.NameVariants != nil {
		aliases = wire.NameVariants
	}
	if aliases == nil && len(wire.LabelsByLang) > 0 {
		aliases = flattenLabelMap(wire.LabelsByLang, wire.Label)
	}

	*c = Candidate{
		QID:            wire.QID,
		Label:          wire.Label,
		Aliases:        aliases,
		ContextString:  wire.ContextString,
		CoarseType:     wire.CoarseType,
		FineType:       wire.FineType,
		ItemCategory:   wire.ItemCategory,
		Popularity:     wire.Popularity,
		Prior:          wire.Prior,
		WikipediaRef:   wire.WikipediaRef,
		DBpediaRef:     wire.DBpediaRef,
		Score:          wire.Score,
		NameScore:      wire.NameScore,
		ContextScore:   wire.ContextScore,
		TypeScore:      wire.TypeScore,
		PriorScore:     wire.PriorScore,
		ExactNameMatch: wire.ExactNameMatch,
		FinalScore:     wire.FinalScore,
	}
	return nil
}

// flattenLabelMap orders legacy per-language label values English-first, the
// remaining languages sorted, skipping the primary label and duplicates.
func flattenLabelMap(byLang map[string]string, primary string) []string {
	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		if lang != "en" {
			langs = append(langs, lang)
		}
	}
	sort.Strings(langs)
	if _, ok := byLang["en"]; ok {
		langs = append([]string{"en"}, langs...)
	}

	out := make([]string, 0, len(byLang))
	seen := map[string]bool{primary: true}
	for _, lang := range langs {
		v := byLang[lang]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
