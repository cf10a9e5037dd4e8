package lookup

import (
	"sort"

	"github.com/quindex/quindex/internal/catalog"
	"github.com/quindex/quindex/internal/wikidata"
)

// Reranker weights. Name similarity dominates; context disambiguates among
// near-equal names; type hints and the popularity prior nudge the rest.
const (
	weightName    = 0.62
	weightContext = 0.23
	weightType    = 0.10
	weightPrior   = 0.05

	exactBonus = 0.05
)

// Rerank fills the scoring fields of each candidate and returns them ordered
// by final score, truncated to q.Limit. When any candidate's normalized name
// equals the normalized mention (exact mode), exact candidates get their name
// score pinned to 1.0 plus a flat bonus, so the remaining signals settle the
// order among them.
//
// Deterministic: the same candidates and query always yield the same order
// and the same scores.
func Rerank(candidates []catalog.Candidate, q Query) []catalog.Candidate {
	if len(candidates) == 0 {
		return nil
	}

	out := make([]catalog.Candidate, len(candidates))
	copy(out, candidates)

	exactMode := false
	for i := range out {
		out[i].ExactNameMatch = isExactNameMatch(out[i], q.MentionNorm)
		exactMode = exactMode || out[i].ExactNameMatch
	}

	minScore, maxScore := rawScoreRange(out)
	contextTerms := map[string]bool{}
	for _, term := range q.ContextTerms {
		contextTerms[term] = true
	}

	for i := range out {
		c := &out[i]

		c.NameScore = minMaxNormalize(c.Score, minScore, maxScore)
		if exactMode && c.ExactNameMatch {
			c.NameScore = 1.0
		}
		c.ContextScore = contextOverlap(c.ContextString, contextTerms, len(q.ContextTerms))
		c.TypeScore = typeScore(c, q.CoarseHints, q.FineHints)
		c.PriorScore = c.Prior
		if c.PriorScore == 0 && c.Popularity > 0 {
			c.PriorScore = catalog.PopularityToPrior(c.Popularity)
		}

		c.FinalScore = weightName*c.NameScore +
			weightContext*c.ContextScore +
			weightType*c.TypeScore +
			weightPrior*c.PriorScore
		if exactMode && c.ExactNameMatch {
			c.FinalScore += exactBonus
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		if out[i].ExactNameMatch != out[j].ExactNameMatch {
			return out[i].ExactNameMatch
		}
		if out[i].PriorScore != out[j].PriorScore {
			return out[i].PriorScore > out[j].PriorScore
		}
		return out[i].QID < out[j].QID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func isExactNameMatch(c catalog.Candidate, mentionNorm string) bool {
	if mentionNorm == "" {
		return false
	}
	if wikidata.NormalizeExact(c.Label) == mentionNorm {
		return true
	}
	for _, alias := range c.Aliases {
		if wikidata.NormalizeExact(alias) == mentionNorm {
			return true
		}
	}
	return false
}

func rawScoreRange(candidates []catalog.Candidate) (min, max float64) {
	min, max = candidates[0].Score, candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score < min {
			min = c.Score
		}
		if c.Score > max {
			max = c.Score
		}
	}
	return min, max
}

// minMaxNormalize maps score into [0,1] within the batch. A batch of equal
// positive scores all map to 1.0; all-zero batches map to 0.0.
func minMaxNormalize(score, min, max float64) float64 {
	if max > min {
		return (score - min) / (max - min)
	}
	if max > 0 {
		return 1.0
	}
	return 0.0
}

func contextOverlap(contextString string, contextTerms map[string]bool, termCount int) float64 {
	if termCount == 0 {
		return 0.0
	}
	overlap := 0
	seen := map[string]bool{}
	for _, tok := range wikidata.Tokenize(contextString) {
		if contextTerms[tok] && !seen[tok] {
			seen[tok] = true
			overlap++
		}
	}
	return float64(overlap) / float64(termCount)
}

func typeScore(c *catalog.Candidate, coarseHints, fineHints []string) float64 {
	if len(fineHints) > 0 && containsLabel(fineHints, c.FineType) {
		return 1.0
	}
	if len(coarseHints) > 0 && containsLabel(coarseHints, c.CoarseType) {
		return 0.5
	}
	return 0.0
}

func containsLabel(labels []string, target string) bool {
	for _, l := range labels {
		if l == target {
			return true
		}
	}
	return false
}
