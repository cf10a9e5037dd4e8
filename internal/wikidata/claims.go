package wikidata

import (
	"fmt"
	"strings"
)

// IsSupportedID reports whether id has one of the two ID shapes the catalog
// ingests: item IDs ("Q" + digits) and property IDs ("P" + digits).
func IsSupportedID(id string) bool {
	if len(id) < 2 {
		return false
	}
	if id[0] != 'Q' && id[0] != 'P' {
		return false
	}
	for _, r := range id[1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return id[1] != '0'
}

// ExtractClaimObjectIDs walks the entity's claims and returns the entity IDs
// referenced by value mainsnaks, in encounter order, deduplicated, stopping
// at limit. Only item and property references are yielded.
func ExtractClaimObjectIDs(entity map[string]any, limit int) []string {
	if limit <= 0 {
		return nil
	}
	claims, ok := entity["claims"].(map[string]any)
	if !ok {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	for _, prop := range sortedKeys(claims) {
		statements, ok := claims[prop].([]any)
		if !ok {
			continue
		}
		for _, raw := range statements {
			if len(out) >= limit {
				return out
			}
			statement, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			mainsnak, ok := statement["mainsnak"].(map[string]any)
			if !ok || mainsnak["snaktype"] != "value" {
				continue
			}
			datavalue, ok := mainsnak["datavalue"].(map[string]any)
			if !ok {
				continue
			}
			id, ok := entityIDFromDatavalue(datavalue["value"])
			if !ok || seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// ClaimObjectIDsForProperty is ExtractClaimObjectIDs restricted to the
// statements of a single property (e.g. "P31").
func ClaimObjectIDsForProperty(entity map[string]any, propertyID string, limit int) []string {
	claims, ok := entity["claims"].(map[string]any)
	if !ok {
		return nil
	}
	selected, ok := claims[propertyID]
	if !ok {
		return nil
	}
	wrapper := map[string]any{"claims": map[string]any{propertyID: selected}}
	return ExtractClaimObjectIDs(wrapper, limit)
}

// entityIDFromDatavalue extracts a supported entity ID from a wikibase
// datavalue value, which is either a {"entity-type", "numeric-id"} object
// (optionally carrying a preformatted "id") or nothing usable.
func entityIDFromDatavalue(value any) (string, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return "", false
	}

	if id, ok := obj["id"].(string); ok && IsSupportedID(id) {
		return id, true
	}

	numeric, ok := obj["numeric-id"].(float64)
	if !ok || numeric <= 0 || numeric != float64(int64(numeric)) {
		return "", false
	}
	switch obj["entity-type"] {
	case "item":
		return fmt.Sprintf("Q%d", int64(numeric)), true
	case "property":
		return fmt.Sprintf("P%d", int64(numeric)), true
	}
	return "", false
}

// ExtractCrossRefs derives the compact Wikipedia and DBpedia ref suffixes
// from the entity's enwiki sitelink title. Returns empty strings when the
// entity has no usable enwiki sitelink.
func ExtractCrossRefs(entity map[string]any) (wikipediaRef, dbpediaRef string) {
	sitelinks, ok := entity["sitelinks"].(map[string]any)
	if !ok {
		return "", ""
	}
	enwiki, ok := sitelinks["enwiki"].(map[string]any)
	if !ok {
		return "", ""
	}
	title, ok := enwiki["title"].(string)
	if !ok {
		return "", ""
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ""
	}
	ref := strings.ReplaceAll(title, " ", "_")
	return ref, ref
}

// ExtractPopularity returns the sitelink count as the structural popularity
// signal. Entities without sitelinks score zero.
func ExtractPopularity(entity map[string]any) float64 {
	sitelinks, ok := entity["sitelinks"].(map[string]any)
	if !ok {
		return 0
	}
	return float64(len(sitelinks))
}
