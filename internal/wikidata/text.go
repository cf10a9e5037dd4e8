// Package wikidata extracts structured signals from raw Wikidata-shaped
// entity records: language-scoped labels/aliases/descriptions, relation
// object IDs from claims, the structural item category, and the text
// normalization helpers shared by ingestion and query handling.
package wikidata

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DefaultStopwords are dropped from description-derived text. Mixed-language
// on purpose: the catalog carries labels from several European languages even
// under an English allowlist.
var DefaultStopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "by": true, "das": true, "de": true, "del": true, "der": true,
	"des": true, "di": true, "die": true, "du": true, "e": true, "el": true,
	"en": true, "ein": true, "eine": true, "et": true, "for": true,
	"from": true, "gli": true, "i": true, "il": true, "in": true, "is": true,
	"la": true, "las": true, "le": true, "les": true, "lo": true, "los": true,
	"of": true, "on": true, "or": true, "per": true, "the": true, "to": true,
	"un": true, "una": true, "und": true, "uno": true, "von": true,
	"with": true, "y": true, "zu": true,
}

// NormalizeText collapses all whitespace runs to single spaces and trims.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Tokenize splits s into lowercase alphanumeric tokens. The underscore is a
// separator, matching the tokenizer used to build search documents.
func Tokenize(s string) []string {
	folded := cases.Fold().String(NormalizeText(s))
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// NormalizeExact canonicalizes a name for exact comparison: Unicode NFC,
// case folding, NFKD decomposition with combining marks stripped, then
// non-alphanumeric runs collapsed to single spaces.
//
// NormalizeExact("Côte d'Ivoire") == "cote d ivoire".
func NormalizeExact(s string) string {
	folded := cases.Fold().String(norm.NFC.String(s))
	decomposed := norm.NFKD.String(folded)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastSpace := false
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSpace = false
			continue
		}
		if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}
