// Package lookup is the retrieval core: it normalizes query inputs, runs the
// candidate search, reranks with deterministic multi-signal scoring, and
// caches full responses keyed by the normalized query.
package lookup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/quindex/quindex/internal/wikidata"
)

const (
	maxMentionChars = 512
	maxTopK         = 100
)

var validTypeLabel = regexp.MustCompile(`^[A-Za-z0-9_.:/-]+$`)

// crosslinkPrefixes are stripped from crosslink hints to obtain the compact
// ref stored on catalog rows.
var crosslinkPrefixes = []string{
	"https://en.wikipedia.org/wiki/",
	"https://dbpedia.org/resource/",
}

// Request carries the raw lookup inputs as received from the caller.
type Request struct {
	Mention        string
	MentionContext []string
	CrosslinkHints []string
	CoarseHints    []string
	FineHints      []string
	TopK           int
	IncludeTopK    bool
	UseCache       bool
}

// Query is the normalized form of a [Request]. Two requests normalizing to
// the same Query are served the same cached response.
type Query struct {
	Mention        string
	MentionNorm    string
	ContextTerms   []string
	CrosslinkHints []string
	CrosslinkTerms []string
	CrosslinkRefs  []string
	CoarseHints    []string
	FineHints      []string
	Limit          int
	IncludeTopK    bool
	UseCache       bool
}

// Normalize validates and canonicalizes a raw request. All failures are
// *ValidationError.
func Normalize(req Request) (Query, error) {
	mention := strings.TrimSpace(req.Mention)
	if mention == "" {
		return Query{}, &ValidationError{Reason: "mention must be non-empty"}
	}
	if utf8.RuneCountInString(mention) > maxMentionChars {
		return Query{}, &ValidationError{
			Reason: fmt.Sprintf("mention exceeds %d characters", maxMentionChars),
		}
	}

	mentionNorm := wikidata.NormalizeExact(mention)
	if mentionNorm == "" {
		return Query{}, &ValidationError{Reason: "mention has no alphanumeric content"}
	}

	if req.TopK < 1 || req.TopK > maxTopK {
		return Query{}, &ValidationError{
			Reason: fmt.Sprintf("top_k must be between 1 and %d", maxTopK),
		}
	}

	coarseHints, err := normalizeTypeLabels(req.CoarseHints, "coarse_hints")
	if err != nil {
		return Query{}, err
	}
	fineHints, err := normalizeTypeLabels(req.FineHints, "fine_hints")
	if err != nil {
		return Query{}, err
	}

	refs := compactCrosslinkRefs(req.CrosslinkHints)

	return Query{
		Mention:        mention,
		MentionNorm:    mentionNorm,
		ContextTerms:   uniqueTokens(req.MentionContext),
		CrosslinkHints: trimmedNonEmpty(req.CrosslinkHints),
		CrosslinkTerms: uniqueTokens(refs),
		CrosslinkRefs:  refs,
		CoarseHints:    coarseHints,
		FineHints:      fineHints,
		Limit:          req.TopK,
		IncludeTopK:    req.IncludeTopK,
		UseCache:       req.UseCache,
	}, nil
}

// CacheKey is the SHA-256 of the canonical JSON of the normalized query
// parts, with alphabetically sorted keys and compact separators.
func (q Query) CacheKey() string {
	canonical := struct {
		CoarseHints    []string `json:"coarse_hints"`
		ContextTerms   []string `json:"context_terms"`
		CrosslinkTerms []string `json:"crosslink_terms"`
		FineHints      []string `json:"fine_hints"`
		IncludeTopK    bool     `json:"include_top_k"`
		Limit          int      `json:"limit"`
		MentionNorm    string   `json:"mention_norm"`
	}{
		CoarseHints:    emptyIfNil(q.CoarseHints),
		ContextTerms:   emptyIfNil(q.ContextTerms),
		CrosslinkTerms: emptyIfNil(q.CrosslinkTerms),
		FineHints:      emptyIfNil(q.FineHints),
		IncludeTopK:    q.IncludeTopK,
		Limit:          q.Limit,
		MentionNorm:    q.MentionNorm,
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		// Marshalling a struct of strings and ints cannot fail.
		panic(fmt.Sprintf("lookup: cache key marshal: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ContextQuery joins the context terms for the store-side rank component.
func (q Query) ContextQuery() string {
	return strings.Join(q.ContextTerms, " ")
}

// CrosslinkQuery joins the compact refs for the store-side trigram match.
func (q Query) CrosslinkQuery() string {
	return strings.Join(q.CrosslinkRefs, " ")
}

func normalizeTypeLabels(raw []string, field string) ([]string, error) {
	var out []string
	seen := map[string]bool{}
	for _, item := range raw {
		value := strings.TrimSpace(item)
		if value == "" {
			continue
		}
		if !validTypeLabel.MatchString(value) {
			return nil, &ValidationError{
				Reason: fmt.Sprintf("invalid value %q for %s: allowed characters are letters, digits, '_', '-', '.', ':', '/'", item, field),
			}
		}
		if !seen[value] {
			seen[value] = true
			out = append(out, value)
		}
	}
	return out, nil
}

// uniqueTokens tokenizes each raw string and deduplicates the tokens
// preserving first-seen order.
func uniqueTokens(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range raw {
		for _, tok := range wikidata.Tokenize(s) {
			if !seen[tok] {
				seen[tok] = true
				out = append(out, tok)
			}
		}
	}
	return out
}

// compactCrosslinkRefs strips the known URL prefixes from each hint,
// deduplicating while preserving order.
func compactCrosslinkRefs(hints []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, hint := range hints {
		ref := strings.TrimSpace(hint)
		if ref == "" {
			continue
		}
		for _, prefix := range crosslinkPrefixes {
			if strings.HasPrefix(ref, prefix) {
				ref = strings.TrimPrefix(ref, prefix)
				break
			}
		}
		if ref != "" && !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

func trimmedNonEmpty(raw []string) []string {
	var out []string
	for _, s := range raw {
		if v := strings.TrimSpace(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
