package models

import "github.com/go-playground/validator"

type StyleTag string

const (
	StyleCasual     StyleTag = "casual"
	StyleFormal     StyleTag = "formal"
	StyleTrendy     StyleTag = "trendy"
	StyleVintage    StyleTag = "vintage"
	StyleMinimalist StyleTag = "minimalist"
	StyleEdgy       StyleTag = "edgy"
)

var AllStyles = []StyleTag{
	StyleCasual, StyleFormal, StyleTrendy, StyleVintage, StyleMinimalist, StyleEdgy,
}

func IsKnownStyle(value StyleTag) bool {
	for _, style := range AllStyles {
		if value == style {
			return true
		}
	}
	return false
}

func ValidateStyle(fl validator.FieldLevel) bool {
	return IsKnownStyle(StyleTag(fl.Field().String()))
}

type WeatherSnapshot struct {
	TemperatureC float64 `json:"temperature_c"`
	Condition    string  `json:"condition"` // e.g. clear, rain, snow, cloudy
}

// OutfitRequest is immutable once submitted to the workflow.
type OutfitRequest struct {
	Description string           `json:"description"`
	Style       StyleTag         `json:"style"`
	Weather     *WeatherSnapshot `json:"weather,omitempty"`
	TimeOfDay   string           `json:"time_of_day,omitempty"`
	Season      string           `json:"season,omitempty"`
	// Variation selects a labeled prompt rendering; empty means the base
	// prompt.
	Variation VariationLabel `json:"variation,omitempty"`
}

type OutfitSuggestion struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Style       StyleTag `json:"style"`
}
