package wikidata

import "sort"

// Payload holds the language-scoped text of one entity, whitespace-normalized
// with empty values dropped. Maps are keyed by language code as found in the
// dump.
type Payload struct {
	Labels       map[string]string
	Descriptions map[string]string
	Aliases      map[string][]string
}

// ExtractPayload pulls labels, descriptions, and aliases out of one raw dump
// record. Malformed sub-structures are skipped silently; the dump mixes item,
// property, and lexeme shapes and only the common fields are trusted.
func ExtractPayload(entity map[string]any) Payload {
	return Payload{
		Labels:       extractValueMap(entity["labels"]),
		Descriptions: extractValueMap(entity["descriptions"]),
		Aliases:      extractAliasMap(entity["aliases"]),
	}
}

// extractValueMap decodes a {lang: {"value": …}} map.
func extractValueMap(raw any) map[string]string {
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return map[string]string{}
	}
	out := make(map[string]string, len(rawMap))
	for lang, payload := range rawMap {
		inner, ok := payload.(map[string]any)
		if !ok {
			continue
		}
		value, ok := inner["value"].(string)
		if !ok {
			continue
		}
		if normalized := NormalizeText(value); normalized != "" {
			out[lang] = normalized
		}
	}
	return out
}

// extractAliasMap decodes a {lang: [{"value": …}, …]} map, deduplicating
// per language while preserving first-seen order.
func extractAliasMap(raw any) map[string][]string {
	rawMap, ok := raw.(map[string]any)
	if !ok {
		return map[string][]string{}
	}
	out := make(map[string][]string, len(rawMap))
	for lang, payload := range rawMap {
		list, ok := payload.([]any)
		if !ok {
			continue
		}
		var aliases []string
		seen := make(map[string]bool, len(list))
		for _, item := range list {
			inner, ok := item.(map[string]any)
			if !ok {
				continue
			}
			value, ok := inner["value"].(string)
			if !ok {
				continue
			}
			normalized := NormalizeText(value)
			if normalized == "" || seen[normalized] {
				continue
			}
			seen[normalized] = true
			aliases = append(aliases, normalized)
		}
		if len(aliases) > 0 {
			out[lang] = aliases
		}
	}
	return out
}

// SelectTextLanguages filters a label or description map down to the
// preferred languages. When none of the preferred languages carries text and
// fallbackToAny is set, the lexicographically-first non-empty language is
// kept instead.
func SelectTextLanguages(values map[string]string, preferred []string, fallbackToAny bool) map[string]string {
	if len(values) == 0 {
		return map[string]string{}
	}

	selected := map[string]string{}
	for _, lang := range preferred {
		if v := NormalizeText(values[lang]); v != "" {
			selected[lang] = v
		}
	}
	if len(selected) > 0 || !fallbackToAny {
		return selected
	}

	for _, lang := range sortedKeys(values) {
		if v := NormalizeText(values[lang]); v != "" {
			return map[string]string{lang: v}
		}
	}
	return map[string]string{}
}

// SelectAliasLanguages filters an alias map down to the preferred languages,
// capping each language at maxPerLanguage aliases in first-seen order. There
// is no cross-language fallback: aliases are additive name variants, not the
// primary name.
func SelectAliasLanguages(aliases map[string][]string, preferred []string, maxPerLanguage int) map[string][]string {
	if len(aliases) == 0 || maxPerLanguage <= 0 {
		return map[string][]string{}
	}

	selected := map[string][]string{}
	for _, lang := range preferred {
		compacted := capAliases(aliases[lang], maxPerLanguage)
		if len(compacted) > 0 {
			selected[lang] = compacted
		}
	}
	return selected
}

func capAliases(values []string, limit int) []string {
	var out []string
	seen := make(map[string]bool, len(values))
	for _, raw := range values {
		v := NormalizeText(raw)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// PickPrimaryLabel chooses the canonical display label: English when present,
// otherwise the lexicographically-first non-empty label. Returns "" when the
// entity has no usable label at all.
func PickPrimaryLabel(labels map[string]string) string {
	if v := NormalizeText(labels["en"]); v != "" {
		return v
	}
	for _, lang := range sortedKeys(labels) {
		if v := NormalizeText(labels[lang]); v != "" {
			return v
		}
	}
	return ""
}

// FlattenAliases builds the ordered secondary-name list for an entity:
// English aliases first, then the remaining languages sorted, with non-primary
// labels of each language ahead of its aliases. The primary label and
// duplicates are excluded.
func FlattenAliases(labels map[string]string, aliases map[string][]string, primary string) []string {
	langs := map[string]bool{}
	for lang := range labels {
		langs[lang] = true
	}
	for lang := range aliases {
		langs[lang] = true
	}

	ordered := make([]string, 0, len(langs))
	if langs["en"] {
		ordered = append(ordered, "en")
	}
	rest := make([]string, 0, len(langs))
	for lang := range langs {
		if lang != "en" {
			rest = append(rest, lang)
		}
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	var out []string
	seen := map[string]bool{primary: true}
	for _, lang := range ordered {
		if v := NormalizeText(labels[lang]); v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
		for _, alias := range aliases[lang] {
			if v := NormalizeText(alias); v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
