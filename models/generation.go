package models

// OutfitGeneration is the persisted projection of one workflow session so the
// client app can poll progress while the worker drives the pipeline.
type OutfitGeneration struct {
	JsonModel
	SessionID string `gorm:"uniqueIndex" json:"session_id"`
	UserID    string `gorm:"index" json:"-"`
	AvatarID  string `json:"avatar_id"`

	RequestText string         `gorm:"type:text" json:"request_text"`
	Style       StyleTag       `json:"style"`
	Variation   VariationLabel `json:"variation"`
	TimeOfDay   string         `json:"time_of_day"`
	Season      string         `json:"season"`

	// weather at the point of submission
	WeatherTemperatureC *float64 `json:"weather_temperature_c"`
	WeatherCondition    *string  `json:"weather_condition"`

	Status     string `json:"status"` // pending, generating, preview, applying, completed, declined, failed
	Progress   int    `json:"progress"`
	StatusText string `json:"status_text"`

	PromptMain     *string `gorm:"type:text" json:"prompt_main"`
	PromptNegative *string `gorm:"type:text" json:"prompt_negative"`
	Seed           *int64  `json:"seed"`

	GarmentImageURL *string `json:"garment_image_url"`
	ValidationScore *int    `json:"validation_score"`

	Category        GarmentCategory `json:"category"`
	FinalImageURL   *string         `json:"final_image_url"`
	FallbackApplied bool            `json:"fallback_applied"`

	GenerationRetryTimes   int     `json:"generation_retry_times"`
	GenerationErrorMessage *string `json:"generation_error_message"`
}
