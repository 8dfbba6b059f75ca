package controllers

import (
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"vestryapi/models"
	"vestryapi/services"
)

type RecordSelectionIn struct {
	ProfileKey     string                `json:"profile_key" validate:"required,max=100"`
	VariationLabel models.VariationLabel `json:"variation_label" validate:"required,oneof=enhanced minimalist artistic commercial preference"`
	PromptUsed     string                `json:"prompt_used" validate:"required"`
	OutfitStyle    models.StyleTag       `json:"outfit_style" validate:"required,style"`
}

type PreferenceProfileResponse struct {
	SelectionCount            int                           `json:"selection_count"`
	VariationPreferenceCounts map[models.VariationLabel]int `json:"variation_preference_counts"`
	PreferredTermWeights      map[string]float64            `json:"preferred_term_weights"`
	TopVariation              *models.VariationLabel        `json:"top_variation,omitempty"`
}

type PreferencesController struct {
	Learner *services.PreferenceLearner
}

func (controller *PreferencesController) PreferenceRoutes(g *echo.Group) {
	g.POST("/selection", controller.RecordSelection)
	g.GET("/:profileKey", controller.GetProfile)
}

func profileResponse(profile *models.PreferenceProfile) PreferenceProfileResponse {
	response := PreferenceProfileResponse{
		SelectionCount:            len(profile.Selections),
		VariationPreferenceCounts: profile.VariationPreferenceCounts,
		PreferredTermWeights:      profile.PreferredTermWeights,
	}
	if top, ok := profile.TopVariation(); ok {
		response.TopVariation = &top
	}
	return response
}

// RecordSelection captures an explicit variation pick. This is the only write
// path into the preference profile.
func (controller *PreferencesController) RecordSelection(c echo.Context) error {
	var req RecordSelectionIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	profile, err := controller.Learner.RecordSelection(c.Request().Context(), req.ProfileKey, req.VariationLabel, req.PromptUsed, req.OutfitStyle)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to record selection, please try again"})
	}
	return c.JSON(http.StatusOK, profileResponse(profile))
}

func (controller *PreferencesController) GetProfile(c echo.Context) error {
	profile, err := controller.Learner.Profile(c.Request().Context(), c.Param("profileKey"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load preference profile"})
	}
	return c.JSON(http.StatusOK, profileResponse(profile))
}
