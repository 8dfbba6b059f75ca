package models

import "time"

// MaxPreferenceSelections bounds the persisted selection history.
const MaxPreferenceSelections = 50

// PreferenceSelection is recorded only when the user explicitly picks one of
// several generated variations.
type PreferenceSelection struct {
	JsonModel
	ProfileKey     string         `gorm:"index" json:"-"`
	VariationLabel VariationLabel `json:"variation_label"`
	PromptUsed     string         `gorm:"type:text" json:"prompt_used"`
	OutfitStyle    StyleTag       `json:"outfit_style"`
	SelectedAt     time.Time      `json:"selected_at"`
}

type PreferenceProfile struct {
	Selections                []PreferenceSelection  `json:"selections"`
	VariationPreferenceCounts map[VariationLabel]int `json:"variation_preference_counts"`
	PreferredTermWeights      map[string]float64     `json:"preferred_term_weights"`
}

func NewPreferenceProfile() *PreferenceProfile {
	return &PreferenceProfile{
		VariationPreferenceCounts: map[VariationLabel]int{},
		PreferredTermWeights:      map[string]float64{},
	}
}

// TopVariation returns the most selected variation label, if any selection was
// ever recorded.
func (p *PreferenceProfile) TopVariation() (VariationLabel, bool) {
	var top VariationLabel
	best := 0
	for label, count := range p.VariationPreferenceCounts {
		if count > best || (count == best && string(label) < string(top)) {
			top = label
			best = count
		}
	}
	return top, best > 0
}
