package models

import (
	"fmt"
	"strings"
)

type VariationLabel string

const (
	VariationEnhanced   VariationLabel = "enhanced"
	VariationMinimalist VariationLabel = "minimalist"
	VariationArtistic   VariationLabel = "artistic"
	VariationCommercial VariationLabel = "commercial"
	VariationPreference VariationLabel = "preference"
)

var AllVariations = []VariationLabel{
	VariationEnhanced, VariationMinimalist, VariationArtistic,
	VariationCommercial, VariationPreference,
}

type WeightedTerm struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// GarmentPrompt is the structured form; the `--neg` delimiter exists only on
// the wire, see EncodeWire/ParseWirePrompt.
type GarmentPrompt struct {
	MainPrompt     string         `json:"main_prompt"`
	NegativePrompt string         `json:"negative_prompt"`
	Seed           uint32         `json:"seed"`
	WeightedTerms  []WeightedTerm `json:"weighted_terms"`
	Variation      VariationLabel `json:"variation,omitempty"`
}

const negDelimiter = " --neg "

func (p GarmentPrompt) EncodeWire() string {
	if p.NegativePrompt == "" {
		return p.MainPrompt
	}
	return p.MainPrompt + negDelimiter + p.NegativePrompt
}

// ParseWirePrompt splits on the `--neg` delimiter exactly once.
func ParseWirePrompt(wire string) GarmentPrompt {
	main, negative, found := strings.Cut(wire, negDelimiter)
	if !found {
		return GarmentPrompt{MainPrompt: strings.TrimSpace(wire)}
	}
	return GarmentPrompt{
		MainPrompt:     strings.TrimSpace(main),
		NegativePrompt: strings.TrimSpace(negative),
	}
}

func (t WeightedTerm) String() string {
	if t.Weight == 1.0 {
		return t.Term
	}
	return fmt.Sprintf("(%s:%.2f)", t.Term, t.Weight)
}
