package models

type Step string

const (
	StepInput      Step = "input"
	StepGenerating Step = "generating"
	StepPreview    Step = "preview"
	StepApplying   Step = "applying"
	StepComplete   Step = "complete"
)

// ProgressEvent is observational only and must not affect control flow.
type ProgressEvent struct {
	SessionID string `json:"session_id"`
	Step      Step   `json:"step"`
	Progress  int    `json:"progress"` // 0-100, monotonic within a step
	Status    string `json:"status"`
}

type AvatarMutationState struct {
	ChangesApplied    int  `json:"changes_applied"`
	MaxChanges        int  `json:"max_changes"`
	NeedsResetWarning bool `json:"needs_reset_warning"`
}

type AvatarRecord struct {
	ImageURL         string `json:"image_url"`
	OriginalImageURL string `json:"original_image_url"`
	MutationCount    int    `json:"mutation_count"`
}
