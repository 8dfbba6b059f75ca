package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestryapi/models"
)

func TestSuggestionKeyOrderIndependent(t *testing.T) {
	weather := models.WeatherSnapshot{TemperatureC: 12, Condition: "Rain"}
	keyA := SuggestionKey(weather, []models.StyleTag{models.StyleCasual, models.StyleFormal})
	keyB := SuggestionKey(weather, []models.StyleTag{models.StyleFormal, models.StyleCasual})
	require.Equal(t, keyA, keyB)
}

func TestSuggestionKeyConditionCaseInsensitive(t *testing.T) {
	styles := []models.StyleTag{models.StyleCasual}
	keyA := SuggestionKey(models.WeatherSnapshot{TemperatureC: 12, Condition: "Rain"}, styles)
	keyB := SuggestionKey(models.WeatherSnapshot{TemperatureC: 12, Condition: "rain"}, styles)
	require.Equal(t, keyA, keyB)
}

func TestSuggestionKeyTemperatureBuckets(t *testing.T) {
	styles := []models.StyleTag{models.StyleCasual}
	sameBucketA := SuggestionKey(models.WeatherSnapshot{TemperatureC: 11, Condition: "clear"}, styles)
	sameBucketB := SuggestionKey(models.WeatherSnapshot{TemperatureC: 19, Condition: "clear"}, styles)
	otherBucket := SuggestionKey(models.WeatherSnapshot{TemperatureC: 21, Condition: "clear"}, styles)
	assert.Equal(t, sameBucketA, sameBucketB)
	assert.NotEqual(t, sameBucketA, otherBucket)
}

func TestSuggestionCacheHit(t *testing.T) {
	cache := NewSuggestionCacheService()
	weather := models.WeatherSnapshot{TemperatureC: 12, Condition: "rain"}
	styles := []models.StyleTag{models.StyleCasual}
	suggestions := []models.OutfitSuggestion{{Title: "casual layered jacket", Style: models.StyleCasual}}

	cache.Store(weather, styles, suggestions)
	cached, ok := cache.Lookup(weather, []models.StyleTag{models.StyleCasual})
	require.True(t, ok)
	assert.Equal(t, suggestions, cached)
}

func TestSuggestionCacheLazyExpiry(t *testing.T) {
	cache := NewSuggestionCacheService()
	current := time.Now()
	cache.now = func() time.Time { return current }

	weather := models.WeatherSnapshot{TemperatureC: 12, Condition: "rain"}
	styles := []models.StyleTag{models.StyleCasual}
	cache.Store(weather, styles, []models.OutfitSuggestion{{Title: "casual layered jacket"}})

	current = current.Add(29 * time.Minute)
	_, ok := cache.Lookup(weather, styles)
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = cache.Lookup(weather, styles)
	assert.False(t, ok)
}

func TestGetOrLoadInvokesLoaderOnlyOnMiss(t *testing.T) {
	cache := NewSuggestionCacheService()
	weather := models.WeatherSnapshot{TemperatureC: 12, Condition: "rain"}
	styles := []models.StyleTag{models.StyleCasual}

	loads := 0
	load := func() []models.OutfitSuggestion {
		loads++
		return []models.OutfitSuggestion{{Title: "casual layered jacket"}}
	}

	first := cache.GetOrLoad(weather, styles, load)
	second := cache.GetOrLoad(weather, styles, load)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, loads)
}
