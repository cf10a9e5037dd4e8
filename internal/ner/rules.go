// Package ner assigns coarse/fine retrieval types to entities from lexical
// clues in their labels, aliases, and descriptions. The rules are token and
// phrase matches only, so typing stays deterministic and cheap enough to run
// inline during ingestion.
package ner

// Rule scores one (coarse, fine) type pair against an entity's text. A rule
// passes when its score reaches MinScore.
type Rule struct {
	Coarse      string
	Fine        string
	TokenClues  map[string]bool
	PhraseClues []string
	MinScore    int
}

func tokens(words ...string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// defaultRules is the fixed rule table, evaluated in order. MinScore defaults
// to 1; noisier clue sets (conflicts, events, law, anatomy) require 2 so a
// single stray token does not claim the entity.
var defaultRules = []Rule{
	{
		Coarse: "PERSON", Fine: "HUMAN",
		TokenClues: tokens(
			"person", "actor", "actress", "singer", "musician", "politician",
			"writer", "author", "athlete", "footballer", "scientist", "artist",
			"director", "poet", "philosopher", "journalist", "engineer",
			"doctor", "composer", "president", "founder", "professor",
		),
		PhraseClues: []string{"human being", "prime minister", "head of state", "president of"},
		MinScore:    1,
	},
	{
		Coarse: "PERSON", Fine: "FICTIONAL_CHARACTER",
		TokenClues:  tokens("fictional", "character", "superhero", "villain", "protagonist"),
		PhraseClues: []string{"fictional character"},
		MinScore:    2,
	},
	{
		Coarse: "ORGANIZATION", Fine: "COMPANY",
		TokenClues: tokens(
			"company", "corporation", "business", "manufacturer", "enterprise",
			"startup", "firm", "multinational",
		),
		MinScore: 1,
	},
	{
		Coarse: "ORGANIZATION", Fine: "NONPROFIT_ORG",
		TokenClues:  tokens("foundation", "charitable", "nonprofit", "non-profit", "ngo"),
		PhraseClues: []string{"charitable organization", "non-profit organization"},
		MinScore:    1,
	},
	{
		Coarse: "ORGANIZATION", Fine: "GOVERNMENT_ORG",
		TokenClues: tokens(
			"government", "ministry", "department", "agency", "parliament",
			"senate", "council", "municipality",
		),
		MinScore: 1,
	},
	{
		Coarse: "ORGANIZATION", Fine: "EDUCATIONAL_ORG",
		TokenClues: tokens("university", "college", "school", "institute", "academy"),
		MinScore:   1,
	},
	{
		Coarse: "ORGANIZATION", Fine: "SPORTS_TEAM",
		TokenClues:  tokens("team", "fc", "athletic", "basketball", "baseball", "soccer", "hockey"),
		PhraseClues: []string{"football club"},
		MinScore:    1,
	},
	{
		Coarse: "LOCATION", Fine: "COUNTRY",
		TokenClues:  tokens("country", "nation", "republic", "kingdom", "sovereign"),
		PhraseClues: []string{"sovereign state", "independent state", "country in"},
		MinScore:    1,
	},
	{
		Coarse: "LOCATION", Fine: "CITY",
		TokenClues: tokens(
			"city", "town", "municipality", "capital", "village", "metropolis",
			"megacity", "commune", "arrondissement", "borough", "suburb",
			"settlement", "cidade", "ciudad", "stadt", "comune", "municipio",
		),
		PhraseClues: []string{
			"city in", "town in", "village in", "capital of", "county seat",
			"census-designated place", "global city", "national capital",
			"primate city", "largest city",
		},
		MinScore: 1,
	},
	{
		Coarse: "LOCATION", Fine: "REGION",
		TokenClues: tokens("region", "province", "district", "county", "territory", "continent"),
		PhraseClues: []string{
			"state of the united states", "state in the united states",
			"federal state", "autonomous region",
		},
		MinScore: 1,
	},
	{
		Coarse: "LOCATION", Fine: "LANDMARK",
		TokenClues: tokens(
			"ocean", "sea", "gulf", "bay", "strait", "mountain", "river",
			"lake", "island", "airport", "station", "bridge", "building",
			"monument", "desert", "valley", "volcano",
		),
		MinScore: 1,
	},
	{
		Coarse: "LOCATION", Fine: "CELESTIAL_BODY",
		TokenClues:  tokens("planet", "moon", "star", "galaxy", "asteroid", "comet", "universe"),
		PhraseClues: []string{"solar system", "celestial body"},
		MinScore:    1,
	},
	{
		Coarse: "EVENT", Fine: "CONFLICT",
		TokenClues:  tokens("war", "battle", "revolution", "uprising", "campaign"),
		PhraseClues: []string{"armed conflict", "military conflict", "civil war"},
		MinScore:    2,
	},
	{
		Coarse: "EVENT", Fine: "SPORT_EVENT",
		TokenClues: tokens("tournament", "championship", "olympics", "cup", "season"),
		MinScore:   2,
	},
	{
		Coarse: "EVENT", Fine: "EVENT_GENERIC",
		TokenClues: tokens("event", "festival", "conference", "election", "summit"),
		MinScore:   2,
	},
	{
		Coarse: "WORK", Fine: "FILM",
		TokenClues: tokens("film", "movie", "documentary", "cinema"),
		MinScore:   1,
	},
	{
		Coarse: "WORK", Fine: "BOOK",
		TokenClues: tokens("book", "novel", "poem", "literature"),
		MinScore:   1,
	},
	{
		Coarse: "WORK", Fine: "MUSIC_WORK",
		TokenClues: tokens("song", "album", "opera", "symphony", "anthem"),
		MinScore:   1,
	},
	{
		Coarse: "WORK", Fine: "SOFTWARE",
		TokenClues:  tokens("software", "application", "app", "program", "library", "framework"),
		PhraseClues: []string{"operating system"},
		MinScore:    1,
	},
	{
		Coarse: "WORK", Fine: "INTERNET_MEME",
		TokenClues:  tokens("meme"),
		PhraseClues: []string{"internet meme"},
		MinScore:    1,
	},
	{
		Coarse: "PRODUCT", Fine: "DEVICE",
		TokenClues: tokens(
			"device", "smartphone", "phone", "laptop", "hardware", "vehicle",
			"aircraft", "airliner", "automobile", "printer", "train",
		),
		MinScore: 1,
	},
	{
		Coarse: "PRODUCT", Fine: "MEDICATION",
		TokenClues: tokens("drug", "medicine", "vaccine", "antibiotic", "treatment"),
		MinScore:   1,
	},
	{
		Coarse: "PRODUCT", Fine: "FOOD_BEVERAGE",
		TokenClues: tokens(
			"beverage", "drink", "food", "dish", "cuisine", "snack", "meal",
			"alcoholic", "non-alcoholic", "nonalcoholic",
		),
		PhraseClues: []string{"alcoholic beverage", "non-alcoholic beverage"},
		MinScore:    1,
	},
	{
		Coarse: "PRODUCT", Fine: "PRODUCT_GENERIC",
		TokenClues: tokens("product", "brand", "model"),
		MinScore:   1,
	},
	{
		Coarse: "CONCEPT", Fine: "LANGUAGE",
		TokenClues: tokens("language", "dialect"),
		MinScore:   1,
	},
	{
		Coarse: "CONCEPT", Fine: "LAW",
		TokenClues:  tokens("law", "statute", "treaty", "regulation", "directive", "constitution", "code"),
		PhraseClues: []string{"law of", "act of", "treaty of", "regulation of"},
		MinScore:    2,
	},
	{
		Coarse: "CONCEPT", Fine: "SCIENTIFIC_THEORY",
		TokenClues: tokens("theory", "principle", "equation", "theorem", "hypothesis"),
		MinScore:   1,
	},
	{
		Coarse: "CONCEPT", Fine: "BIOLOGICAL_TAXON",
		TokenClues: tokens("species", "genus", "taxon", "subspecies", "clade", "mammal"),
		MinScore:   1,
	},
	{
		Coarse: "CONCEPT", Fine: "ANATOMY",
		TokenClues:  tokens("organ", "anatomy", "anatomical", "muscle", "bone", "artery", "vein"),
		PhraseClues: []string{"part of the body", "part of body", "sexual organ", "anatomical structure"},
		MinScore:    2,
	},
}
