package wikidata

import (
	"reflect"
	"testing"
)

func statement(value map[string]any) map[string]any {
	return map[string]any{
		"mainsnak": map[string]any{
			"snaktype":  "value",
			"datavalue": map[string]any{"value": value},
		},
	}
}

func TestIsSupportedID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"Q42", true},
		{"P31", true},
		{"Q1", true},
		{"L123", false},
		{"Q", false},
		{"Q0", false},
		{"Q01", false},
		{"Q4a", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsSupportedID(tt.id); got != tt.want {
			t.Errorf("IsSupportedID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestExtractClaimObjectIDs(t *testing.T) {
	entity := map[string]any{
		"claims": map[string]any{
			"P31": []any{
				statement(map[string]any{"entity-type": "item", "numeric-id": float64(5)}),
				statement(map[string]any{"entity-type": "item", "numeric-id": float64(5)}),
			},
			"P106": []any{
				statement(map[string]any{"id": "Q36180"}),
				map[string]any{"mainsnak": map[string]any{"snaktype": "novalue"}},
			},
			"P17": []any{
				statement(map[string]any{"entity-type": "property", "numeric-id": float64(31)}),
			},
		},
	}

	got := ExtractClaimObjectIDs(entity, 10)
	// Properties walk in sorted order: P106, P17, P31.
	want := []string{"Q36180", "P31", "Q5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if got := ExtractClaimObjectIDs(entity, 2); len(got) != 2 {
		t.Errorf("limit 2: got %v", got)
	}
	if got := ExtractClaimObjectIDs(entity, 0); got != nil {
		t.Errorf("limit 0: got %v, want nil", got)
	}
}

func TestExtractCrossRefs(t *testing.T) {
	entity := map[string]any{
		"sitelinks": map[string]any{
			"enwiki": map[string]any{"title": "Douglas Adams"},
			"dewiki": map[string]any{"title": "Douglas Adams"},
		},
	}
	wiki, dbp := ExtractCrossRefs(entity)
	if wiki != "Douglas_Adams" || dbp != "Douglas_Adams" {
		t.Errorf("got (%q, %q), want underscored title", wiki, dbp)
	}

	wiki, dbp = ExtractCrossRefs(map[string]any{})
	if wiki != "" || dbp != "" {
		t.Errorf("no sitelinks: got (%q, %q)", wiki, dbp)
	}
}

func TestExtractPopularity(t *testing.T) {
	entity := map[string]any{
		"sitelinks": map[string]any{
			"enwiki": map[string]any{},
			"dewiki": map[string]any{},
			"frwiki": map[string]any{},
		},
	}
	if got := ExtractPopularity(entity); got != 3 {
		t.Errorf("got %v, want 3", got)
	}
	if got := ExtractPopularity(map[string]any{}); got != 0 {
		t.Errorf("no sitelinks: got %v, want 0", got)
	}
}

func TestInferItemCategory(t *testing.T) {
	tests := []struct {
		name   string
		entity map[string]any
		want   ItemCategory
	}{
		{
			"property",
			map[string]any{"id": "P31", "type": "property"},
			CategoryPredicate,
		},
		{
			"lexeme",
			map[string]any{"id": "L99", "type": "lexeme"},
			CategoryLexeme,
		},
		{
			"disambiguation page",
			map[string]any{"id": "Q999", "type": "item", "claims": map[string]any{
				"P31": []any{statement(map[string]any{"entity-type": "item", "numeric-id": float64(4167410)})},
			}},
			CategoryDisambiguation,
		},
		{
			"subclass makes type",
			map[string]any{"id": "Q515", "type": "item", "claims": map[string]any{
				"P279": []any{statement(map[string]any{"entity-type": "item", "numeric-id": float64(486972)})},
			}},
			CategoryType,
		},
		{
			"classlike instance-of makes type",
			map[string]any{"id": "Q7", "type": "item", "claims": map[string]any{
				"P31": []any{statement(map[string]any{"entity-type": "item", "numeric-id": float64(16889133)})},
			}},
			CategoryType,
		},
		{
			"plain item with claims",
			map[string]any{"id": "Q42", "type": "item", "claims": map[string]any{
				"P31": []any{statement(map[string]any{"entity-type": "item", "numeric-id": float64(5)})},
			}},
			CategoryEntity,
		},
		{
			"item without claims",
			map[string]any{"id": "Q42", "type": "item"},
			CategoryOther,
		},
		{
			"missing id",
			map[string]any{"type": "item"},
			CategoryOther,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferItemCategory(tt.entity); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
