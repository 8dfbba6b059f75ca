package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"vestryapi/models"
)

func TestClassifyOnePieceWinsOverAmbiguousWords(t *testing.T) {
	classifier := KeywordCategoryClassifier{}
	assert.Equal(t, models.CategoryOnePieces, classifier.Classify("floral wrap dress"))
	assert.Equal(t, models.CategoryOnePieces, classifier.Classify("denim jumpsuit with a shirt collar"))
}

func TestClassifyBottoms(t *testing.T) {
	classifier := KeywordCategoryClassifier{}
	assert.Equal(t, models.CategoryBottoms, classifier.Classify("slim chino pants"))
	assert.Equal(t, models.CategoryBottoms, classifier.Classify("pleated midi skirt"))
}

func TestClassifyTops(t *testing.T) {
	classifier := KeywordCategoryClassifier{}
	assert.Equal(t, models.CategoryTops, classifier.Classify("oversized hoodie"))
	assert.Equal(t, models.CategoryTops, classifier.Classify("a crisp white Shirt"))
}

func TestClassifyFallsBackToAuto(t *testing.T) {
	classifier := KeywordCategoryClassifier{}
	assert.Equal(t, models.CategoryAuto, classifier.Classify("stylish garment"))
	assert.Equal(t, models.CategoryAuto, classifier.Classify(""))
}
