package models

type ValidationResult struct {
	Score           int      `json:"score"` // 0-100
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
	IsValid         bool     `json:"is_valid"`
}

// GarmentAsset references a generated garment-only image together with the
// prompt that produced it.
type GarmentAsset struct {
	ImageURL   string            `json:"image_url"`
	Prompt     GarmentPrompt     `json:"prompt"`
	Validation *ValidationResult `json:"validation,omitempty"`
}
