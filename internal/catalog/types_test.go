package catalog

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCandidateDecodesCurrentShape(t *testing.T) {
	data := []byte(`{"qid":"Q312","label":"Apple Inc.","aliases":["Apple"],"prior":0.5,"exact_name_match":true}`)

	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.QID != "Q312" || !reflect.DeepEqual(c.Aliases, []string{"Apple"}) || !c.ExactNameMatch {
		t.Errorf("got %+v", c)
	}
}

func TestCandidateDecodesLegacyNameVariants(t *testing.T) {
	data := []byte(`{"qid":"Q312","label":"Apple Inc.","name_variants":["Apple","AAPL"]}`)

	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(c.Aliases, []string{"Apple", "AAPL"}) {
		t.Errorf("aliases = %v", c.Aliases)
	}
}

func TestCandidateDecodesLegacyLabelMap(t *testing.T) {
	data := []byte(`{"qid":"Q2","label":"Earth","labels":{"de":"Erde","en":"Earth","fr":"Terre"}}`)

	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// English first, remaining languages sorted, primary label excluded.
	if !reflect.DeepEqual(c.Aliases, []string{"Erde", "Terre"}) {
		t.Errorf("aliases = %v", c.Aliases)
	}
}

func TestItemCategoryIsValid(t *testing.T) {
	for _, c := range []ItemCategory{
		CategoryEntity, CategoryType, CategoryPredicate, CategoryDisambiguation,
		CategoryLexeme, CategoryForm, CategorySense, CategoryMediaInfo, CategoryOther,
	} {
		if !c.IsValid() {
			t.Errorf("%s must be valid", c)
		}
	}
	if ItemCategory("BOGUS").IsValid() {
		t.Error("BOGUS must be invalid")
	}
}
