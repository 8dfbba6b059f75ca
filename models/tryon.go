package models

type GarmentCategory string

const (
	CategoryTops      GarmentCategory = "tops"
	CategoryBottoms   GarmentCategory = "bottoms"
	CategoryOnePieces GarmentCategory = "one-pieces"
	CategoryAuto      GarmentCategory = "auto"
)

type OutcomeKind string

const (
	// OutcomeComposited is a true composite produced by the try-on service.
	OutcomeComposited OutcomeKind = "composited"
	// OutcomeFallbackGarmentOnly substitutes the garment image when the try-on
	// service could not be reached. Degraded, never success-equivalent.
	OutcomeFallbackGarmentOnly OutcomeKind = "fallback_garment_only"
	OutcomeFailed              OutcomeKind = "failed"
)

type TryOnOutcome struct {
	Kind          OutcomeKind `json:"kind"`
	FinalImageURL string      `json:"final_image_url,omitempty"`
	Reason        string      `json:"reason,omitempty"`
}

func (o TryOnOutcome) FallbackApplied() bool {
	return o.Kind == OutcomeFallbackGarmentOnly
}
