package ner

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/quindex/quindex/internal/wikidata"
)

func payload(labels, descriptions map[string]string, aliases map[string][]string) wikidata.Payload {
	if labels == nil {
		labels = map[string]string{}
	}
	if descriptions == nil {
		descriptions = map[string]string{}
	}
	if aliases == nil {
		aliases = map[string][]string{}
	}
	return wikidata.Payload{Labels: labels, Descriptions: descriptions, Aliases: aliases}
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestPropertyIDMapsToRelationProperty(t *testing.T) {
	coarse, fine, source := InferTypes("P31", payload(
		map[string]string{"en": "instance of"},
		map[string]string{"en": "that class of which this subject is a particular example"},
		nil,
	))
	if !reflect.DeepEqual(coarse, []string{"RELATION"}) {
		t.Errorf("coarse = %v, want [RELATION]", coarse)
	}
	if !reflect.DeepEqual(fine, []string{"PROPERTY"}) {
		t.Errorf("fine = %v, want [PROPERTY]", fine)
	}
	if source != "lexical_v1" {
		t.Errorf("source = %q, want lexical_v1", source)
	}
}

func TestDescriptionDrivenTyping(t *testing.T) {
	tests := []struct {
		name        string
		id          string
		label       string
		description string
		wantCoarse  string
		wantFine    string
	}{
		{"writer", "Q42", "Douglas Adams", "English writer and author", "PERSON", "HUMAN"},
		{"company", "Q312", "Apple", "American technology company", "ORGANIZATION", "COMPANY"},
		{"city", "Q90", "Paris", "capital and most populous city of France", "LOCATION", "CITY"},
		{"continent", "Q46", "Europe", "terrestrial continent located in north-western Eurasia", "LOCATION", "REGION"},
		{"founder", "Q181", "Jimmy Wales", "co-founder of Wikipedia (born 1966)", "PERSON", "HUMAN"},
		{"meme", "Q149", "Nyan Cat", "2011 Internet meme", "WORK", "INTERNET_MEME"},
		{"taxon", "Q146", "cat", "small domesticated carnivorous mammal", "CONCEPT", "BIOLOGICAL_TAXON"},
		{"nonprofit", "Q180", "Wikimedia Foundation", "American charitable organization", "ORGANIZATION", "NONPROFIT_ORG"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coarse, fine, _ := InferTypes(tt.id, payload(
				map[string]string{"en": tt.label},
				map[string]string{"en": tt.description},
				nil,
			))
			if !contains(coarse, tt.wantCoarse) {
				t.Errorf("coarse = %v, want contains %s", coarse, tt.wantCoarse)
			}
			if !contains(fine, tt.wantFine) {
				t.Errorf("fine = %v, want contains %s", fine, tt.wantFine)
			}
		})
	}
}

func TestPresidentMapsToPersonNotCountry(t *testing.T) {
	coarse, fine, _ := InferTypes("Q76", payload(
		map[string]string{"en": "Barack Obama"},
		map[string]string{"en": "president of the United States from 2009 to 2017"},
		nil,
	))
	if !contains(coarse, "PERSON") {
		t.Errorf("coarse = %v, want contains PERSON", coarse)
	}
	if !contains(fine, "HUMAN") {
		t.Errorf("fine = %v, want contains HUMAN", fine)
	}
	if contains(fine, "COUNTRY") {
		t.Errorf("fine = %v, must not contain COUNTRY", fine)
	}
}

func TestUSStateMapsToRegionNotCountry(t *testing.T) {
	_, fine, _ := InferTypes("Q99", payload(
		map[string]string{"en": "California"},
		map[string]string{"en": "state of the United States of America"},
		nil,
	))
	if !contains(fine, "REGION") {
		t.Errorf("fine = %v, want contains REGION", fine)
	}
	if contains(fine, "COUNTRY") {
		t.Errorf("fine = %v, must not contain COUNTRY", fine)
	}
}

func TestOceanMapsToLandmarkNotConflict(t *testing.T) {
	coarse, fine, _ := InferTypes("Q97", payload(
		map[string]string{"en": "Atlantic Ocean"},
		map[string]string{"en": "ocean between Europe, Africa and the Americas"},
		nil,
	))
	if !contains(coarse, "LOCATION") || !contains(fine, "LANDMARK") {
		t.Errorf("got coarse=%v fine=%v, want LOCATION/LANDMARK", coarse, fine)
	}
	if contains(fine, "CONFLICT") {
		t.Errorf("fine = %v, must not contain CONFLICT", fine)
	}
}

func TestEnglishPreferenceSkipsOtherLanguages(t *testing.T) {
	coarse, fine, _ := InferTypes("Q2", payload(
		map[string]string{"en": "Earth"},
		map[string]string{
			"en": "third planet from the Sun in the Solar System",
			"es": "planeta habitado por humanos",
		},
		nil,
	))
	if contains(coarse, "PERSON") || contains(fine, "HUMAN") {
		t.Errorf("got coarse=%v fine=%v, Spanish description must be ignored", coarse, fine)
	}
	if !contains(coarse, "LOCATION") || !contains(fine, "CELESTIAL_BODY") {
		t.Errorf("got coarse=%v fine=%v, want LOCATION/CELESTIAL_BODY", coarse, fine)
	}
}

func TestNoCluesFallsBackToMiscEntity(t *testing.T) {
	coarse, fine, _ := InferTypes("Q999999", payload(
		map[string]string{"en": "Xyzz"},
		map[string]string{"en": "xkcdqv"},
		nil,
	))
	if !reflect.DeepEqual(coarse, []string{"MISC"}) || !reflect.DeepEqual(fine, []string{"ENTITY"}) {
		t.Errorf("got coarse=%v fine=%v, want [MISC]/[ENTITY]", coarse, fine)
	}
}

func TestEmptyPayloadFallsBackToMiscEntity(t *testing.T) {
	coarse, fine, _ := InferTypes("Q77777", payload(nil, nil, nil))
	if !reflect.DeepEqual(coarse, []string{"MISC"}) || !reflect.DeepEqual(fine, []string{"ENTITY"}) {
		t.Errorf("got coarse=%v fine=%v, want [MISC]/[ENTITY]", coarse, fine)
	}
}

func TestInferTypesIsDeterministic(t *testing.T) {
	p := payload(
		map[string]string{"en": "Paris", "fr": "Paris"},
		map[string]string{"en": "capital and most populous city of France"},
		map[string][]string{"en": {"City of Light"}},
	)
	coarse1, fine1, _ := InferTypes("Q90", p)
	for i := 0; i < 5; i++ {
		coarse2, fine2, _ := InferTypes("Q90", p)
		if !reflect.DeepEqual(coarse1, coarse2) || !reflect.DeepEqual(fine1, fine2) {
			t.Fatalf("run %d diverged: %v/%v vs %v/%v", i, coarse1, fine1, coarse2, fine2)
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.jsonl")
	content := `{"id":"Q42","coarse_types":["PERSON"],"fine_types":["HUMAN","HUMAN"]}
{"id":"Q1","ner_coarse_types":["LOCATION"],"ner_fine_types":["CELESTIAL_BODY"]}

{"id":"Q42","coarse_types":["MISC"],"fine_types":["ENTITY"]}
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	overrides, err := LoadOverrides(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("got %d overrides, want 2", len(overrides))
	}
	if got := overrides["Q42"]; !reflect.DeepEqual(got.Coarse, []string{"MISC"}) {
		t.Errorf("Q42 coarse = %v, last record must win", got.Coarse)
	}
	if got := overrides["Q1"]; !reflect.DeepEqual(got.Fine, []string{"CELESTIAL_BODY"}) {
		t.Errorf("Q1 fine = %v, legacy keys must be accepted", got.Fine)
	}
}

func TestLoadOverridesRejectsBadTypeLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.jsonl")
	if err := os.WriteFile(path, []byte(`{"id":"Q1","coarse_types":["BAD LABEL"]}`+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Fatal("expected error for label with spaces")
	}
}

func TestLoadOverridesRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "types.jsonl")
	if err := os.WriteFile(path, []byte(`{"coarse_types":["PERSON"]}`+"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadOverrides(path); err == nil {
		t.Fatal("expected error for record without id")
	}
}
