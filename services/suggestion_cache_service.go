package services

import (
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"sync"
	"time"

	"vestryapi/models"
)

const suggestionTTL = 30 * time.Minute

// temperature is bucketed so nearby readings share cache entries
const temperatureBucketC = 10

type suggestionEntry struct {
	suggestions []models.OutfitSuggestion
	storedAt    time.Time
}

// SuggestionCacheService memoizes suggestion sets per weather/style
// signature. Expiry is lazy: an entry older than the TTL is treated as absent
// on lookup, there is no background sweeper.
type SuggestionCacheService struct {
	mu      sync.Mutex
	entries map[uint32]suggestionEntry
	now     func() time.Time
}

func NewSuggestionCacheService() *SuggestionCacheService {
	return &SuggestionCacheService{
		entries: make(map[uint32]suggestionEntry),
		now:     time.Now,
	}
}

// SuggestionKey derives an order-independent signature: style archetypes are
// sorted before hashing so equivalent requests hit the same entry.
func SuggestionKey(weather models.WeatherSnapshot, styles []models.StyleTag) uint32 {
	bucket := int(weather.TemperatureC) / temperatureBucketC
	if weather.TemperatureC < 0 {
		bucket--
	}

	sorted := make([]string, 0, len(styles))
	for _, style := range styles {
		sorted = append(sorted, string(style))
	}
	slices.Sort(sorted)

	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s|%s", bucket, strings.ToLower(weather.Condition), strings.Join(sorted, ","))
	return h.Sum32()
}

func (c *SuggestionCacheService) Lookup(weather models.WeatherSnapshot, styles []models.StyleTag) ([]models.OutfitSuggestion, bool) {
	key := SuggestionKey(weather, styles)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) > suggestionTTL {
		delete(c.entries, key)
		return nil, false
	}
	return entry.suggestions, true
}

func (c *SuggestionCacheService) Store(weather models.WeatherSnapshot, styles []models.StyleTag, suggestions []models.OutfitSuggestion) {
	key := SuggestionKey(weather, styles)

	c.mu.Lock()
	c.entries[key] = suggestionEntry{suggestions: suggestions, storedAt: c.now()}
	c.mu.Unlock()
}

// GetOrLoad serves from cache, invoking the loader only on a miss.
func (c *SuggestionCacheService) GetOrLoad(weather models.WeatherSnapshot, styles []models.StyleTag, load func() []models.OutfitSuggestion) []models.OutfitSuggestion {
	if cached, ok := c.Lookup(weather, styles); ok {
		return cached
	}
	suggestions := load()
	c.Store(weather, styles, suggestions)
	return suggestions
}
