// Package ingest builds the entity catalog from a raw dump in two passes:
// pass 1 transforms and upserts the catalog rows, pass 2 resolves relation
// objects into context strings and rebuilds each row's search vector.
package ingest

import (
	"github.com/quindex/quindex/internal/catalog"
	"github.com/quindex/quindex/internal/ner"
	"github.com/quindex/quindex/internal/wikidata"
)

// Options bundle the knobs shared by both passes. The zero value is not
// usable; populate from the validated configuration.
type Options struct {
	// Languages is the label/alias language allowlist, in preference order.
	Languages []string

	// MaxAliasesPerLanguage caps aliases kept per language in pass 1.
	MaxAliasesPerLanguage int

	// MaxContextObjects caps relation object IDs extracted per entity.
	MaxContextObjects int

	// MaxContextChars truncates the pass-2 context string.
	MaxContextChars int

	Pass1Batch int
	Pass2Batch int

	// Workers is the transform / resolver pool width.
	Workers int

	// DisableNER leaves coarse and fine types empty.
	DisableNER bool

	// TypeOverrides replaces the lexical typer's output per entity ID.
	TypeOverrides map[string]ner.Override

	// BuildSearchVector makes pass 1 write search vectors directly. Set only
	// when pass 2 is skipped; otherwise pass 2 rebuilds them.
	BuildSearchVector bool
}

// TransformEntity converts one raw dump record into a catalog row. It returns
// ok=false for records whose ID shape is not ingested (lexemes, forms, and
// other non-Q/P IDs); those are counted and skipped, never an error.
func TransformEntity(entity map[string]any, opts Options) (catalog.EntityRecord, bool) {
	id, _ := entity["id"].(string)
	if !wikidata.IsSupportedID(id) {
		return catalog.EntityRecord{}, false
	}

	payload := wikidata.ExtractPayload(entity)
	selected := wikidata.Payload{
		Labels:       wikidata.SelectTextLanguages(payload.Labels, opts.Languages, true),
		Descriptions: wikidata.SelectTextLanguages(payload.Descriptions, opts.Languages, true),
		Aliases:      wikidata.SelectAliasLanguages(payload.Aliases, opts.Languages, opts.MaxAliasesPerLanguage),
	}

	label := wikidata.PickPrimaryLabel(selected.Labels)
	if label == "" {
		// Rows must stay addressable by name even for label-less records.
		label = id
	}

	record := catalog.EntityRecord{
		QID:                id,
		Label:              label,
		Aliases:            wikidata.FlattenAliases(selected.Labels, selected.Aliases, label),
		ItemCategory:       wikidata.InferItemCategory(entity),
		Popularity:         wikidata.ExtractPopularity(entity),
		RelationObjectQIDs: wikidata.ExtractClaimObjectIDs(entity, opts.MaxContextObjects),
	}
	record.Prior = catalog.PopularityToPrior(record.Popularity)
	record.WikipediaRef, record.DBpediaRef = wikidata.ExtractCrossRefs(entity)

	if !opts.DisableNER {
		record.CoarseType, record.FineType = assignTypes(id, selected, opts.TypeOverrides)
	}
	return record, true
}

// assignTypes runs the lexical typer, honoring per-entity overrides. The
// catalog row keeps the top-ranked coarse and fine label only.
func assignTypes(id string, payload wikidata.Payload, overrides map[string]ner.Override) (coarse, fine string) {
	if override, ok := overrides[id]; ok {
		if len(override.Coarse) > 0 {
			coarse = override.Coarse[0]
		}
		if len(override.Fine) > 0 {
			fine = override.Fine[0]
		}
		if coarse != "" || fine != "" {
			return coarse, fine
		}
	}

	coarseTypes, fineTypes, _ := ner.InferTypes(id, payload)
	if len(coarseTypes) > 0 {
		coarse = coarseTypes[0]
	}
	if len(fineTypes) > 0 {
		fine = fineTypes[0]
	}
	return coarse, fine
}
