package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	"gorm.io/gorm"

	"vestryapi/models"
)

// PreferenceStoreProvider persists the raw selection history. Counts and term
// weights are derived state and are recomputed on load.
type PreferenceStoreProvider interface {
	LoadSelections(ctx context.Context, profileKey string) ([]models.PreferenceSelection, error)
	ReplaceSelections(ctx context.Context, profileKey string, selections []models.PreferenceSelection) error
}

type GormPreferenceStore struct {
	DB *gorm.DB
}

func (s *GormPreferenceStore) LoadSelections(ctx context.Context, profileKey string) ([]models.PreferenceSelection, error) {
	var selections []models.PreferenceSelection
	err := s.DB.WithContext(ctx).
		Where("profile_key = ?", profileKey).
		Order("selected_at asc").
		Find(&selections).Error
	return selections, err
}

func (s *GormPreferenceStore) ReplaceSelections(ctx context.Context, profileKey string, selections []models.PreferenceSelection) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("profile_key = ?", profileKey).Delete(&models.PreferenceSelection{}).Error; err != nil {
			return err
		}
		if len(selections) == 0 {
			return nil
		}
		for i := range selections {
			selections[i].ID = 0
			selections[i].ProfileKey = profileKey
		}
		return tx.CreateInBatches(selections, 100).Error
	})
}

// weightedTermPattern matches the `(term:1.20)` rendering of weighted prompt
// terms.
var weightedTermPattern = regexp.MustCompile(`\(([^():]+):(\d+(?:\.\d+)?)\)`)

const promotedTermWeight = 1.1

// PreferenceLearner is a frequency/weight accumulator over explicit variation
// picks. Writes are serialized per profile key so concurrent sessions cannot
// lose updates.
type PreferenceLearner struct {
	Store PreferenceStoreProvider

	mu           sync.Mutex
	keyLocks     map[string]*sync.Mutex
	versions     map[string]uint64
	profileCache *cache.LoadableCache[*models.PreferenceProfile]
}

func NewPreferenceLearner(provider PreferenceStoreProvider) *PreferenceLearner {
	learner := &PreferenceLearner{
		Store:    provider,
		keyLocks: map[string]*sync.Mutex{},
		versions: map[string]uint64{},
	}

	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err == nil {
		ristrettoStore := ristretto_store.NewRistretto(ristrettoCache, store.WithExpiration(5*time.Minute))
		learner.profileCache = cache.NewLoadable[*models.PreferenceProfile](
			func(ctx context.Context, key any) (*models.PreferenceProfile, error) {
				return learner.loadProfile(ctx, profileKeyFromCacheKey(key.(string)))
			},
			cache.New[*models.PreferenceProfile](ristrettoStore),
		)
	}
	return learner
}

// cacheKey versions the cache entry per profile. Ristretto applies writes
// asynchronously, so a delete cannot stop an in-flight load from landing a
// stale profile afterwards; bumping the version orphans that write instead,
// and the orphan ages out with the store expiration.
func (l *PreferenceLearner) cacheKey(profileKey string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fmt.Sprintf("%s#%d", profileKey, l.versions[profileKey])
}

func (l *PreferenceLearner) bumpVersion(profileKey string) {
	l.mu.Lock()
	l.versions[profileKey]++
	l.mu.Unlock()
}

func profileKeyFromCacheKey(raw string) string {
	if idx := strings.LastIndex(raw, "#"); idx >= 0 {
		return raw[:idx]
	}
	return raw
}

func (l *PreferenceLearner) lockFor(profileKey string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.keyLocks[profileKey]
	if !ok {
		lock = &sync.Mutex{}
		l.keyLocks[profileKey] = lock
	}
	return lock
}

// Profile returns the derived profile, read through the in-process cache when
// available.
func (l *PreferenceLearner) Profile(ctx context.Context, profileKey string) (*models.PreferenceProfile, error) {
	if l.profileCache != nil {
		return l.profileCache.Get(ctx, l.cacheKey(profileKey))
	}
	return l.loadProfile(ctx, profileKey)
}

func (l *PreferenceLearner) loadProfile(ctx context.Context, profileKey string) (*models.PreferenceProfile, error) {
	selections, err := l.Store.LoadSelections(ctx, profileKey)
	if err != nil {
		return nil, err
	}
	return DeriveProfile(selections), nil
}

// RecordSelection appends one explicit variation pick, keeps the history
// bounded to the most recent entries and drops the cached derived profile.
func (l *PreferenceLearner) RecordSelection(ctx context.Context, profileKey string, label models.VariationLabel, promptUsed string, style models.StyleTag) (*models.PreferenceProfile, error) {
	lock := l.lockFor(profileKey)
	lock.Lock()
	defer lock.Unlock()

	selections, err := l.Store.LoadSelections(ctx, profileKey)
	if err != nil {
		return nil, err
	}

	selections = append(selections, models.PreferenceSelection{
		ProfileKey:     profileKey,
		VariationLabel: label,
		PromptUsed:     promptUsed,
		OutfitStyle:    style,
		SelectedAt:     time.Now().UTC(),
	})
	if len(selections) > models.MaxPreferenceSelections {
		selections = selections[len(selections)-models.MaxPreferenceSelections:]
	}

	if err := l.Store.ReplaceSelections(ctx, profileKey, selections); err != nil {
		return nil, err
	}
	l.bumpVersion(profileKey)
	return DeriveProfile(selections), nil
}

// DeriveProfile recomputes the variation counts and term weights from the raw
// history. Weighted `(term:weight)` occurrences take the highest weight seen;
// plain terms repeated across at least two selections are promoted at a mild
// default weight.
func DeriveProfile(selections []models.PreferenceSelection) *models.PreferenceProfile {
	profile := models.NewPreferenceProfile()
	profile.Selections = selections

	plainTermSelections := map[string]int{}
	for _, selection := range selections {
		profile.VariationPreferenceCounts[selection.VariationLabel]++

		weighted := map[string]bool{}
		for _, match := range weightedTermPattern.FindAllStringSubmatch(selection.PromptUsed, -1) {
			term := strings.TrimSpace(match[1])
			weight, err := strconv.ParseFloat(match[2], 64)
			if err != nil {
				continue
			}
			weighted[term] = true
			if weight > profile.PreferredTermWeights[term] {
				profile.PreferredTermWeights[term] = weight
			}
		}

		seen := map[string]bool{}
		for _, raw := range strings.Split(selection.PromptUsed, ",") {
			term := strings.TrimSpace(raw)
			if term == "" || strings.HasPrefix(term, "(") || weighted[term] || seen[term] {
				continue
			}
			seen[term] = true
			plainTermSelections[term]++
		}
	}

	for term, count := range plainTermSelections {
		if count >= 2 {
			if _, ok := profile.PreferredTermWeights[term]; !ok {
				profile.PreferredTermWeights[term] = promotedTermWeight
			}
		}
	}
	return profile
}
