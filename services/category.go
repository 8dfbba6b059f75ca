package services

import (
	"strings"

	"vestryapi/models"
)

// CategoryClassifier maps a free-text garment description onto the category
// hint the try-on provider expects. Pluggable so the heuristic can be swapped
// without touching the orchestrator.
type CategoryClassifier interface {
	Classify(description string) models.GarmentCategory
}

// KeywordCategoryClassifier checks ordered keyword buckets. One-piece terms
// run first: descriptions like "wrap dress" also contain ambiguous fabric and
// top words.
type KeywordCategoryClassifier struct{}

var onePieceKeywords = []string{
	"dress", "jumpsuit", "gown", "romper", "swimsuit", "overalls", "bodysuit", "onesie",
}

var topKeywords = []string{
	"shirt", "blouse", "t-shirt", "tank", "sweater", "hoodie", "cardigan",
	"jacket", "blazer", "coat", "vest", "top", "pullover",
}

var bottomKeywords = []string{
	"pants", "trousers", "jeans", "chinos", "skirt", "shorts", "leggings", "joggers",
}

func (KeywordCategoryClassifier) Classify(description string) models.GarmentCategory {
	lowered := strings.ToLower(description)
	for _, keyword := range onePieceKeywords {
		if strings.Contains(lowered, keyword) {
			return models.CategoryOnePieces
		}
	}
	for _, keyword := range topKeywords {
		if strings.Contains(lowered, keyword) {
			return models.CategoryTops
		}
	}
	for _, keyword := range bottomKeywords {
		if strings.Contains(lowered, keyword) {
			return models.CategoryBottoms
		}
	}
	return models.CategoryAuto
}
