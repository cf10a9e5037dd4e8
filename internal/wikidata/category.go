package wikidata

// ItemCategory is the structural class of an entity, derived from its ID
// shape and its instance-of / subclass-of claims.
type ItemCategory string

const (
	CategoryEntity         ItemCategory = "ENTITY"
	CategoryType           ItemCategory = "TYPE"
	CategoryPredicate      ItemCategory = "PREDICATE"
	CategoryDisambiguation ItemCategory = "DISAMBIGUATION"
	CategoryLexeme         ItemCategory = "LEXEME"
	CategoryForm           ItemCategory = "FORM"
	CategorySense          ItemCategory = "SENSE"
	CategoryMediaInfo      ItemCategory = "MEDIAINFO"
	CategoryOther          ItemCategory = "OTHER"
)

// IsValid reports whether c is a recognised item category.
func (c ItemCategory) IsValid() bool {
	switch c {
	case CategoryEntity, CategoryType, CategoryPredicate, CategoryDisambiguation,
		CategoryLexeme, CategoryForm, CategorySense, CategoryMediaInfo, CategoryOther:
		return true
	}
	return false
}

// Wikimedia QIDs whose instance-of marks a disambiguation page.
var disambiguationInstanceOfQIDs = map[string]bool{
	"Q4167410":  true, // Wikimedia disambiguation page
	"Q22808320": true, // Wikimedia human name disambiguation page
}

// Wikidata QIDs whose instance-of marks the subject itself as a class.
var classlikeInstanceOfQIDs = map[string]bool{
	"Q16889133": true, // class
	"Q24017414": true, // first-order class
}

// p31ScanLimit bounds the instance-of object scan; disambiguation and
// class markers appear within the first few statements in practice.
const p31ScanLimit = 16

// InferItemCategory classifies an entity from structural signals: the ID
// prefix, the declared entity type, and the P31 (instance of) / P279
// (subclass of) claims.
func InferItemCategory(entity map[string]any) ItemCategory {
	id, ok := entity["id"].(string)
	if !ok || id == "" {
		return CategoryOther
	}

	entityType, _ := entity["type"].(string)
	if id[0] == 'P' || entityType == "property" {
		return CategoryPredicate
	}
	switch entityType {
	case "lexeme":
		return CategoryLexeme
	case "form":
		return CategoryForm
	case "sense":
		return CategorySense
	case "mediainfo":
		return CategoryMediaInfo
	}

	if id[0] != 'Q' {
		return CategoryOther
	}

	claims, ok := entity["claims"].(map[string]any)
	if !ok || len(claims) == 0 {
		return CategoryOther
	}

	p31 := ClaimObjectIDsForProperty(entity, "P31", p31ScanLimit)
	for _, qid := range p31 {
		if disambiguationInstanceOfQIDs[qid] {
			return CategoryDisambiguation
		}
	}

	if statements, ok := claims["P279"].([]any); ok {
		for _, raw := range statements {
			if _, ok := raw.(map[string]any); ok {
				return CategoryType
			}
		}
	}
	for _, qid := range p31 {
		if classlikeInstanceOfQIDs[qid] {
			return CategoryType
		}
	}

	return CategoryEntity
}
