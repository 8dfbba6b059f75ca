package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestryapi/models"
)

func validAsset() models.GarmentAsset {
	return models.GarmentAsset{
		ImageURL: "https://cdn.example.com/garment.png",
		Prompt: models.GarmentPrompt{
			MainPrompt: "red silk blouse, tailored, complete garment fully visible",
		},
	}
}

func TestScorePerfectAsset(t *testing.T) {
	result := ScoreGarmentAsset(validAsset())
	require.Equal(t, 100, result.Score)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
}

func TestScoreMissingURLImmediatelyInvalid(t *testing.T) {
	asset := validAsset()
	asset.ImageURL = ""
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Issues, "missing or invalid image URL")
}

func TestScoreInvalidURLStaysInvalidEvenAboveThreshold(t *testing.T) {
	asset := validAsset()
	asset.ImageURL = "not-a-url"
	result := ScoreGarmentAsset(asset)
	assert.False(t, result.IsValid)
}

func TestScoreNoGarmentKeywordPenalty(t *testing.T) {
	asset := validAsset()
	asset.Prompt.MainPrompt = "something stylish, complete garment fully visible"
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 85, result.Score)
	assert.True(t, result.IsValid)
}

func TestScoreNoCompleteGarmentEmphasisPenalty(t *testing.T) {
	asset := validAsset()
	asset.Prompt.MainPrompt = "red silk blouse, tailored"
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 90, result.Score)
	assert.True(t, result.IsValid)
}

func TestScoreSmallInlineImagePenalty(t *testing.T) {
	asset := validAsset()
	// ~12KB decoded, far below the 100KB floor
	asset.ImageURL = "data:image/png;base64," + strings.Repeat("A", 16*1024)
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 75, result.Score)
	assert.Contains(t, result.Issues, "inline image too small to trust detail")
}

func TestScoreLargeInlineImageMinorPenalty(t *testing.T) {
	asset := validAsset()
	// ~6MB decoded, above the 5MB comfort ceiling
	asset.ImageURL = "data:image/png;base64," + strings.Repeat("A", 8*1024*1024)
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 95, result.Score)
	assert.True(t, result.IsValid)
}

func TestValidityThresholds(t *testing.T) {
	// exactly 70 with two issues stays valid: -15 keyword, -10 emphasis,
	// -5 oversized inline (recommendation only, not an issue)
	asset := validAsset()
	asset.Prompt.MainPrompt = "something stylish"
	asset.ImageURL = "data:image/png;base64," + strings.Repeat("A", 8*1024*1024)
	result := ScoreGarmentAsset(asset)
	require.Equal(t, 70, result.Score)
	require.Len(t, result.Issues, 2)
	assert.True(t, result.IsValid)

	// two issues but 60 points: the score gate rejects on its own
	asset = validAsset()
	asset.Prompt.MainPrompt = "something stylish, complete garment fully visible"
	asset.ImageURL = "data:image/png;base64," + strings.Repeat("A", 16*1024)
	result = ScoreGarmentAsset(asset)
	require.Equal(t, 60, result.Score)
	require.Len(t, result.Issues, 2)
	assert.False(t, result.IsValid)
}

func TestScoreStackedPenaltiesCrossThreshold(t *testing.T) {
	asset := validAsset()
	asset.Prompt.MainPrompt = "something stylish"
	asset.ImageURL = "data:image/png;base64," + strings.Repeat("A", 16*1024)
	// -15 no garment keyword, -10 no emphasis, -25 small inline image
	result := ScoreGarmentAsset(asset)
	assert.Equal(t, 50, result.Score)
	assert.False(t, result.IsValid)
	assert.Len(t, result.Issues, 3)
}
