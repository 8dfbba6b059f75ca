package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"vestryapi/models"
	"vestryapi/services"
	"vestryapi/tasks"
)

// Request structs for validation
type CreateOutfitIn struct {
	UserID      string          `json:"user_id" validate:"required,max=100"`
	AvatarID    string          `json:"avatar_id" validate:"required,max=100"`
	Description string                `json:"description" validate:"required,max=500"`
	Style       models.StyleTag       `json:"style" validate:"required,style"`
	Variation   models.VariationLabel `json:"variation" validate:"omitempty,oneof=enhanced minimalist artistic commercial preference"`
	TimeOfDay   string                `json:"time_of_day" validate:"omitempty,max=50"`
	Season      string                `json:"season" validate:"omitempty,max=50"`

	WeatherTemperatureC *float64 `json:"weather_temperature_c"`
	WeatherCondition    *string  `json:"weather_condition" validate:"omitempty,max=50"`
}

// Response structs
type OutfitGenerationResponse struct {
	SessionID       string  `json:"session_id"`
	Status          string  `json:"status"`
	Progress        int     `json:"progress"`
	StatusText      string  `json:"status_text"`
	RequestText     string  `json:"request_text"`
	Style           string  `json:"style"`
	Variation       string  `json:"variation,omitempty"`
	GarmentImageURL *string `json:"garment_image_url,omitempty"`
	ValidationScore *int    `json:"validation_score,omitempty"`
	FinalImageURL   *string `json:"final_image_url,omitempty"`
	FallbackApplied bool    `json:"fallback_applied"`
	ErrorMessage    *string `json:"error_message,omitempty"`
}

type OutfitsController struct {
	Composer        *services.PromptComposer
	SuggestionCache *services.SuggestionCacheService
}

func (controller *OutfitsController) OutfitRoutes(g *echo.Group) {
	g.POST("", controller.CreateOutfitGeneration)
	g.GET("/:sessionId", controller.GetOutfitGeneration)
	g.POST("/:sessionId/accept", controller.AcceptOutfitGeneration)
	g.POST("/:sessionId/decline", controller.DeclineOutfitGeneration)
	g.POST("/:sessionId/retry", controller.RetryOutfitGeneration)
}

func generationResponse(generation models.OutfitGeneration) OutfitGenerationResponse {
	return OutfitGenerationResponse{
		SessionID:       generation.SessionID,
		Status:          generation.Status,
		Progress:        generation.Progress,
		StatusText:      generation.StatusText,
		RequestText:     generation.RequestText,
		Style:           string(generation.Style),
		Variation:       string(generation.Variation),
		GarmentImageURL: generation.GarmentImageURL,
		ValidationScore: generation.ValidationScore,
		FinalImageURL:   generation.FinalImageURL,
		FallbackApplied: generation.FallbackApplied,
		ErrorMessage:    generation.GenerationErrorMessage,
	}
}

func (controller *OutfitsController) CreateOutfitGeneration(c echo.Context) error {
	var req CreateOutfitIn
	if err := c.Bind(&req); err != nil {
		fmt.Println(err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	if strings.TrimSpace(req.Description) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Please describe the outfit you want"})
	}

	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	if limitRaw := services.GetEnv("OUTFIT_DAILY_LIMIT", ""); limitRaw != "" {
		limit, parseErr := strconv.ParseInt(limitRaw, 10, 64)
		if parseErr == nil && limit > 0 {
			var dailyCount int64
			today := time.Now().UTC().Format("2006-01-02")
			if err := db.Model(&models.OutfitGeneration{}).Where("user_id = ? AND DATE(created_at) = ?", req.UserID, today).Count(&dailyCount).Error; err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to get generation data"})
			}
			fmt.Printf("[User %v] Enforced daily limit, generation count: %v\n", req.UserID, dailyCount)
			if dailyCount >= limit {
				return c.JSON(http.StatusForbidden, map[string]string{"error": fmt.Sprintf("You have reached the limit of %v daily generations. Please wait for the next day.", limit)})
			}
		}
	}

	generation := models.OutfitGeneration{
		SessionID:           uuid.NewString(),
		UserID:              req.UserID,
		AvatarID:            req.AvatarID,
		RequestText:         req.Description,
		Style:               req.Style,
		Variation:           req.Variation,
		TimeOfDay:           req.TimeOfDay,
		Season:              req.Season,
		WeatherTemperatureC: req.WeatherTemperatureC,
		WeatherCondition:    req.WeatherCondition,
		Status:              "pending",
	}
	if err := db.Create(&generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to start generation, please try again"})
	}

	task, err := tasks.NewOutfitGenerationTask(generation.ID)
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start generation, please try again"})
	}
	info, err := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start generation, please try again"})
	}
	fmt.Println("[Queue] Outfit generation task submitted, Generation ID: ", generation.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusCreated, generationResponse(generation))
}

func (controller *OutfitsController) loadGeneration(c echo.Context) (*gorm.DB, *models.OutfitGeneration, error) {
	db, ok := c.Get("__db").(*gorm.DB)
	if !ok {
		return nil, nil, c.JSON(http.StatusInternalServerError, map[string]string{"error": "Database connection error"})
	}
	var generation models.OutfitGeneration
	if err := db.Where("session_id = ?", c.Param("sessionId")).First(&generation).Error; err != nil {
		return nil, nil, c.JSON(http.StatusNotFound, map[string]string{"error": "Generation not found"})
	}
	return db, &generation, nil
}

func (controller *OutfitsController) GetOutfitGeneration(c echo.Context) error {
	_, generation, err := controller.loadGeneration(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, generationResponse(*generation))
}

// AcceptOutfitGeneration moves a previewed garment into the try-on step.
func (controller *OutfitsController) AcceptOutfitGeneration(c echo.Context) error {
	db, generation, err := controller.loadGeneration(c)
	if err != nil {
		return err
	}
	if generation.Status != "preview" {
		return c.JSON(http.StatusConflict, map[string]string{"error": fmt.Sprintf("Cannot accept a generation in status %q", generation.Status)})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	generation.Status = "applying"
	generation.StatusText = "Applying garment to your avatar"
	if err := db.Save(generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to accept generation, please try again"})
	}

	task, taskErr := tasks.NewTryOnApplyTask(generation.ID)
	if taskErr != nil {
		sentry.CaptureException(taskErr)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start try-on, please try again"})
	}
	info, enqueueErr := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if enqueueErr != nil {
		sentry.CaptureException(enqueueErr)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not start try-on, please try again"})
	}
	fmt.Println("[Queue] Try-on apply task submitted, Generation ID: ", generation.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusOK, generationResponse(*generation))
}

// DeclineOutfitGeneration drops the previewed garment. The request text stays
// on the record so the user can edit and resubmit.
func (controller *OutfitsController) DeclineOutfitGeneration(c echo.Context) error {
	db, generation, err := controller.loadGeneration(c)
	if err != nil {
		return err
	}
	if generation.Status != "preview" {
		return c.JSON(http.StatusConflict, map[string]string{"error": fmt.Sprintf("Cannot decline a generation in status %q", generation.Status)})
	}

	generation.Status = "declined"
	generation.StatusText = "Garment declined"
	generation.GarmentImageURL = nil
	generation.ValidationScore = nil
	generation.FinalImageURL = nil
	generation.FallbackApplied = false
	generation.GenerationErrorMessage = nil
	if err := db.Save(generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to decline generation, please try again"})
	}
	return c.JSON(http.StatusOK, generationResponse(*generation))
}

// RetryOutfitGeneration re-runs the generation step with the same request.
func (controller *OutfitsController) RetryOutfitGeneration(c echo.Context) error {
	db, generation, err := controller.loadGeneration(c)
	if err != nil {
		return err
	}
	if generation.Status != "failed" && generation.Status != "declined" && generation.Status != "preview" {
		return c.JSON(http.StatusConflict, map[string]string{"error": fmt.Sprintf("Cannot retry a generation in status %q", generation.Status)})
	}
	asynqClient, ok := c.Get("__asynqclient").(*asynq.Client)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Service is not available, please try again a bit later"})
	}

	generation.Status = "pending"
	generation.Progress = 0
	generation.StatusText = "Retrying generation"
	generation.GarmentImageURL = nil
	generation.ValidationScore = nil
	generation.FinalImageURL = nil
	generation.FallbackApplied = false
	generation.GenerationErrorMessage = nil
	if err := db.Save(generation).Error; err != nil {
		sentry.CaptureException(err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to retry generation, please try again"})
	}

	task, taskErr := tasks.NewOutfitGenerationTask(generation.ID)
	if taskErr != nil {
		sentry.CaptureException(taskErr)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not retry generation, please try again"})
	}
	info, enqueueErr := asynqClient.Enqueue(task, asynq.MaxRetry(3), asynq.Queue("generate"))
	if enqueueErr != nil {
		sentry.CaptureException(enqueueErr)
		return c.JSON(http.StatusInternalServerError, map[string]string{"message": "Sorry, could not retry generation, please try again"})
	}
	fmt.Println("[Queue] Outfit generation retry submitted, Generation ID: ", generation.ID, " Task ID: ", info.ID)

	return c.JSON(http.StatusOK, generationResponse(*generation))
}

// GetSuggestions serves precomputed outfit suggestions for the current
// weather, memoized for half an hour per weather/style signature.
func (controller *OutfitsController) GetSuggestions(c echo.Context) error {
	tempRaw := c.QueryParam("temp")
	temp, err := strconv.ParseFloat(tempRaw, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid temp parameter"})
	}
	condition := c.QueryParam("condition")
	if condition == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Missing condition parameter"})
	}

	var styles []models.StyleTag
	if stylesRaw := c.QueryParam("styles"); stylesRaw != "" {
		for _, raw := range strings.Split(stylesRaw, ",") {
			style := models.StyleTag(strings.TrimSpace(raw))
			if !models.IsKnownStyle(style) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Unknown style %q", style)})
			}
			styles = append(styles, style)
		}
	} else {
		styles = models.AllStyles
	}

	weather := models.WeatherSnapshot{TemperatureC: temp, Condition: condition}
	suggestions := controller.SuggestionCache.GetOrLoad(weather, styles, func() []models.OutfitSuggestion {
		return controller.Composer.SuggestOutfits(weather, styles)
	})
	return c.JSON(http.StatusOK, map[string]interface{}{"suggestions": suggestions})
}
