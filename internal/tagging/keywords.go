package tagging

import (
	"strings"

	"github.com/axolotly/content-tagger/backend/internal/models"
)

// Hand-maintained synonyms: when a tag's slug contains the key, each variant
// also counts as keyword evidence for that tag.
var slugSynonyms = map[string][]string{
	"spiders":  {"spider", "arachnid"},
	"snakes":   {"snake", "serpent"},
	"monsters": {"monster", "creature"},
	"ghosts":   {"ghost", "phantom", "spirit"},
	"darkness": {"dark", "shadow"},
	"heights":  {"height", "high", "fall"},
}

type categoryKeyword struct {
	keyword string
	tagSlug string
}

// categoryKeywords maps a keyword found in a wiki category name to the tag
// slug it evidences. Used by the legacy single-category strategy. Order
// matters: the first keyword contained in the category name wins.
var categoryKeywords = []categoryKeyword{
	{"spiders", "spiders"},
	{"snakes", "snakes"},
	{"sharks", "sharks"},
	{"dinosaurs", "dinosaurs"},
	{"monsters", "monsters"},
	{"ghosts", "ghosts"},
	{"zombies", "zombies"},
	{"witches", "witches"},
	{"skeletons", "skeletons"},
	{"aliens", "aliens"},
	{"space", "aliens"},
	{"clowns", "clowns"},
	{"bees", "bees_wasps"},
	{"wasps", "bees_wasps"},
	{"dogs", "large_dogs"},
	{"robots", "robots"},
	{"darkness", "darkness"},
	{"confined spaces", "confined_spaces"},
	{"claustrophobia", "confined_spaces"},
	{"heights", "heights"},
	{"water", "water_danger"},
	{"drowning", "water_danger"},
	{"storms", "thunderstorms"},
	{"lightning", "thunderstorms"},
	{"fire", "fire"},
	{"earthquakes", "natural_disasters"},
	{"tornadoes", "natural_disasters"},
	{"medical", "medical_procedures"},
	{"needles", "medical_procedures"},
	{"hospital", "medical_procedures"},
	{"dentist", "dentist_scenes"},
	{"blood", "blood"},
	{"lost", "being_lost"},
	{"kidnapping", "kidnapping"},
	{"abduction", "kidnapping"},
	{"invasion", "home_invasion"},
	{"burglary", "home_invasion"},
	{"car crash", "car_accident"},
	{"accident", "car_accident"},
	{"plane crash", "plane_crash"},
	{"parent death", "parent_death"},
	{"death", "grief_themes"},
	{"funeral", "funeral_scenes"},
	{"jump scares", "jump_scares"},
	{"suspense", "suspense_music"},
	{"shadows", "shadows"},
	{"nightmares", "nightmares"},
	{"chase", "intense_chases"},
	{"bullying", "bullying"},
	{"embarrassment", "public_embarrassment"},
	{"rejection", "social_rejection"},
	{"violence", "violence"},
	{"language", "language"},
	{"profanity", "language"},
	{"halloween", "halloween"},
}

// BuildKeywordTable produces the keyword -> tag id lookup used for page
// content scanning: each tag contributes its slug (underscores as spaces),
// its display name, and any synonyms for slugs in the synonym list.
func BuildKeywordTable(tags []models.ContentTag) map[string]int64 {
	keywords := make(map[string]int64, len(tags)*2)

	for _, tag := range tags {
		keywords[strings.ReplaceAll(tag.Slug, "_", " ")] = tag.ID
		keywords[strings.ToLower(tag.DisplayName)] = tag.ID

		for slugKey, variants := range slugSynonyms {
			if !strings.Contains(tag.Slug, slugKey) {
				continue
			}
			for _, variant := range variants {
				keywords[variant] = tag.ID
			}
		}
	}

	return keywords
}

// CategoryTagSlug maps a wiki category name to the single tag slug it
// stands for, or "" when the category is not recognized.
func CategoryTagSlug(categoryName string) string {
	lower := strings.ToLower(categoryName)
	for _, entry := range categoryKeywords {
		if strings.Contains(lower, entry.keyword) {
			return entry.tagSlug
		}
	}
	return ""
}
