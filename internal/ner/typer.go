package ner

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/quindex/quindex/internal/wikidata"
)

// Source identifies the typing strategy on every record this package emits.
const Source = "lexical_v1"

// maxTextValues bounds how many distinct text values feed one typing run.
// Entities with hundreds of alias languages would otherwise dominate the
// typing cost for no accuracy gain.
const maxTextValues = 64

// InferTypes assigns coarse and fine retrieval types to one entity from its
// text payload. Property IDs short-circuit to (["RELATION"], ["PROPERTY"]);
// records matching no rule fall back to (["MISC"], ["ENTITY"]). Identical
// inputs always produce identical outputs.
func InferTypes(entityID string, payload wikidata.Payload) (coarse, fine []string, source string) {
	if strings.HasPrefix(entityID, "P") {
		return []string{"RELATION"}, []string{"PROPERTY"}, Source
	}

	values := collectTextValues(payload)
	if len(values) == 0 {
		return []string{"MISC"}, []string{"ENTITY"}, Source
	}

	text := cases.Fold().String(strings.Join(values, "\n"))
	tokenSet := map[string]bool{}
	for _, tok := range wikidata.Tokenize(text) {
		tokenSet[tok] = true
	}

	type scoredRule struct {
		score int
		rule  Rule
	}
	var passing []scoredRule
	for _, rule := range defaultRules {
		score := 0
		for clue := range rule.TokenClues {
			if tokenSet[clue] {
				score++
			}
		}
		for _, phrase := range rule.PhraseClues {
			if phrase != "" && strings.Contains(text, phrase) {
				score += 2
			}
		}
		if score >= rule.MinScore {
			passing = append(passing, scoredRule{score, rule})
		}
	}
	if len(passing) == 0 {
		return []string{"MISC"}, []string{"ENTITY"}, Source
	}

	sort.SliceStable(passing, func(i, j int) bool {
		if passing[i].score != passing[j].score {
			return passing[i].score > passing[j].score
		}
		return passing[i].rule.Fine < passing[j].rule.Fine
	})

	// The winner plus at most one runner-up tied on score.
	topScore := passing[0].score
	selected := passing[:1]
	if len(passing) > 1 && passing[1].score == topScore {
		selected = passing[:2]
	}

	coarseScores := map[string]int{}
	seenFine := map[string]bool{}
	for _, item := range selected {
		coarseScores[item.rule.Coarse] += item.score
		if !seenFine[item.rule.Fine] {
			seenFine[item.rule.Fine] = true
			fine = append(fine, item.rule.Fine)
		}
	}

	coarseLabels := make([]string, 0, len(coarseScores))
	for label := range coarseScores {
		coarseLabels = append(coarseLabels, label)
	}
	sort.Slice(coarseLabels, func(i, j int) bool {
		if coarseScores[coarseLabels[i]] != coarseScores[coarseLabels[j]] {
			return coarseScores[coarseLabels[i]] > coarseScores[coarseLabels[j]]
		}
		return coarseLabels[i] < coarseLabels[j]
	})
	if len(coarseLabels) > 2 {
		coarseLabels = coarseLabels[:2]
	}
	coarse = coarseLabels

	if len(coarse) == 0 {
		coarse = []string{"MISC"}
	}
	if len(fine) == 0 {
		fine = []string{"ENTITY"}
	}
	return coarse, fine, Source
}

// collectTextValues assembles the deduplicated text feeding one typing run:
// descriptions, then labels, then aliases. When any English text exists only
// English is used; otherwise all languages are walked in sorted order so
// cross-language noise stays deterministic.
func collectTextValues(payload wikidata.Payload) []string {
	englishOnly := hasEnglishText(payload)

	var values []string
	seen := map[string]bool{}
	add := func(raw string) bool {
		if len(values) >= maxTextValues {
			return false
		}
		v := wikidata.NormalizeText(raw)
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
		return true
	}

	descLangs := []string{"en"}
	if !englishOnly {
		descLangs = sortedLangs(payload.Descriptions)
	}
	for _, lang := range descLangs {
		if !add(payload.Descriptions[lang]) {
			return values
		}
	}

	labelLangs := []string{"en"}
	if !englishOnly {
		labelLangs = sortedLangs(payload.Labels)
	}
	for _, lang := range labelLangs {
		if !add(payload.Labels[lang]) {
			return values
		}
	}

	aliasLangs := []string{"en"}
	if !englishOnly {
		aliasLangs = make([]string, 0, len(payload.Aliases))
		for lang := range payload.Aliases {
			aliasLangs = append(aliasLangs, lang)
		}
		sort.Strings(aliasLangs)
	}
	for _, lang := range aliasLangs {
		for _, alias := range payload.Aliases[lang] {
			if !add(alias) {
				return values
			}
		}
	}
	return values
}

func hasEnglishText(payload wikidata.Payload) bool {
	if payload.Descriptions["en"] != "" || payload.Labels["en"] != "" {
		return true
	}
	for _, alias := range payload.Aliases["en"] {
		if wikidata.NormalizeText(alias) != "" {
			return true
		}
	}
	return false
}

func sortedLangs(m map[string]string) []string {
	langs := make([]string, 0, len(m))
	for lang := range m {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
