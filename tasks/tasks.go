package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"vestryapi/models"
	"vestryapi/services"
)

const (
	TypeOutfitGeneration = "generate:outfit"
	TypeTryOnApply       = "generate:apply"
)

type OutfitGenerationPayload struct {
	GenerationID uint `json:"generation_id"`
}

// Client initializes an asynq client for enqueuing tasks
func NewClient() (*asynq.Client, error) {
	return asynq.NewClient(asynq.RedisClientOpt{Addr: services.GetEnv("ASYNC_BROKER_ADDRESS", "localhost:6379")}), nil
}

func NewOutfitGenerationTask(generationID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitGenerationPayload{GenerationID: generationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOutfitGeneration, payload), nil
}

func NewTryOnApplyTask(generationID uint) (*asynq.Task, error) {
	payload, err := json.Marshal(OutfitGenerationPayload{GenerationID: generationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTryOnApply, payload), nil
}

func requestFromGeneration(generation models.OutfitGeneration) models.OutfitRequest {
	req := models.OutfitRequest{
		Description: generation.RequestText,
		Style:       generation.Style,
		Variation:   generation.Variation,
		TimeOfDay:   generation.TimeOfDay,
		Season:      generation.Season,
	}
	if generation.WeatherTemperatureC != nil && generation.WeatherCondition != nil {
		req.Weather = &models.WeatherSnapshot{
			TemperatureC: *generation.WeatherTemperatureC,
			Condition:    *generation.WeatherCondition,
		}
	}
	return req
}

func saveProgress(db *gorm.DB, generation *models.OutfitGeneration, status string, progress int, statusText string) {
	generation.Status = status
	if progress > generation.Progress {
		generation.Progress = progress
	}
	generation.StatusText = statusText
	if err := db.Save(generation).Error; err != nil {
		fmt.Printf("[Generation: %v] Error on saving progress %v\n", generation.ID, err)
		sentry.CaptureException(fmt.Errorf("[Generation: %v] Error on saving progress %v", generation.ID, err))
	}
}

// HandleOutfitGenerationTask drives compose -> generate -> validate for one
// persisted generation record. The learner biases the preference variation;
// a nil learner or a failed profile load degrades to default weights.
func HandleOutfitGenerationTask(ctx context.Context, t *asynq.Task, db *gorm.DB, generator services.GarmentImageServiceProvider, learner *services.PreferenceLearner) error {
	var payload OutfitGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Generation: %v] Start Processing\n", payload.GenerationID)

	var generation models.OutfitGeneration
	res := db.First(&generation, payload.GenerationID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving generation for processing %v", payload.GenerationID))
		return res.Error
	}
	if generation.Status == "preview" || generation.Status == "completed" {
		fmt.Printf("[Generation: %v] Already processed, status %s\n", payload.GenerationID, generation.Status)
		return nil
	}

	composer := &services.PromptComposer{}
	request := requestFromGeneration(generation)

	saveProgress(db, &generation, "generating", 25, "Composing garment prompt")
	var prompt models.GarmentPrompt
	if request.Variation == "" {
		prompt = composer.Compose(request)
	} else {
		var profile *models.PreferenceProfile
		if request.Variation == models.VariationPreference && learner != nil {
			loaded, profileErr := learner.Profile(ctx, generation.UserID)
			if profileErr != nil {
				fmt.Printf("[Generation: %v] Error on loading preference profile: %v\n", payload.GenerationID, profileErr)
				sentry.CaptureException(fmt.Errorf("[Generation: %v] Error on loading preference profile: %v", payload.GenerationID, profileErr))
			} else {
				profile = loaded
			}
		}
		prompt = composer.ComposeVariation(request, request.Variation, profile)
	}
	generation.PromptMain = services.StrPointer(prompt.MainPrompt)
	generation.PromptNegative = services.StrPointer(prompt.NegativePrompt)
	generation.Seed = services.Int64Pointer(int64(prompt.Seed))

	saveProgress(db, &generation, "generating", 55, "Rendering garment image")
	asset, err := generator.GenerateGarment(ctx, prompt)
	if err != nil {
		fmt.Printf("[Generation: %v] Error on generating garment: %v\n", payload.GenerationID, err)
		sentry.CaptureException(fmt.Errorf("[Generation: %v] Error on generating garment: %v", payload.GenerationID, err))
		if saveErr := saveGenerationFail(db, &generation, err.Error(), services.Retryable(err)); saveErr != nil {
			return saveErr
		}
		if services.Retryable(err) {
			return err
		}
		return nil
	}

	saveProgress(db, &generation, "generating", 85, "Validating garment image")
	validation := services.ScoreGarmentAsset(*asset)
	generation.ValidationScore = services.IntPointer(validation.Score)
	if !validation.IsValid {
		message := fmt.Sprintf("Generated garment did not pass validation (score %d), please try a more specific description", validation.Score)
		fmt.Printf("[Generation: %v] %s issues: %v\n", payload.GenerationID, message, validation.Issues)
		sentry.CaptureException(fmt.Errorf("[Generation: %v] garment rejected, score %d, issues %v", payload.GenerationID, validation.Score, validation.Issues))
		return saveGenerationFail(db, &generation, message, false)
	}

	generation.GarmentImageURL = services.StrPointer(asset.ImageURL)
	generation.GenerationErrorMessage = nil
	saveProgress(db, &generation, "preview", 100, "Garment ready for preview")
	fmt.Printf("[Generation: %v] Garment generation finished successfully\n", payload.GenerationID)
	return nil
}

// HandleTryOnApplyTask composites an accepted garment onto the avatar. A
// retryable provider failure is retried once; if the provider still cannot
// answer, the garment-only fallback completes the record in degraded mode.
func HandleTryOnApplyTask(ctx context.Context, t *asynq.Task, db *gorm.DB, tryOn services.TryOnServiceProvider, classifier services.CategoryClassifier, avatars services.AvatarStoreProvider) error {
	var payload OutfitGenerationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return err
	}
	fmt.Printf("[Apply: %v] Start Processing\n", payload.GenerationID)

	var generation models.OutfitGeneration
	res := db.First(&generation, payload.GenerationID)
	if res.Error != nil {
		sentry.CaptureException(fmt.Errorf("[QUEUE] Error on retrieving generation for apply %v", payload.GenerationID))
		return res.Error
	}
	if generation.GarmentImageURL == nil {
		sentry.CaptureException(fmt.Errorf("[Apply: %v] Garment image URL is nil", payload.GenerationID))
		return saveGenerationFail(db, &generation, "No garment image to apply, please generate first", false)
	}

	avatarRecord, err := avatars.Get(ctx, generation.AvatarID)
	if err != nil {
		fmt.Printf("[Apply: %v] Error on loading avatar %s: %v\n", payload.GenerationID, generation.AvatarID, err)
		sentry.CaptureException(fmt.Errorf("[Apply: %v] Error on loading avatar %s: %v", payload.GenerationID, generation.AvatarID, err))
		return saveGenerationFail(db, &generation, "Avatar not found, please set up your avatar again", false)
	}

	generation.Category = classifier.Classify(generation.RequestText)
	saveProgress(db, &generation, "applying", 40, "Compositing garment onto avatar")

	asset := models.GarmentAsset{ImageURL: *generation.GarmentImageURL}
	var outcome models.TryOnOutcome
	for attempt := 0; attempt <= 1; attempt++ {
		outcome, err = tryOn.ApplyGarment(ctx, avatarRecord.ImageURL, asset, generation.Category)
		if err == nil || !services.Retryable(err) {
			break
		}
		fmt.Printf("[Apply: %v] Retryable try-on failure, attempt %d: %v\n", payload.GenerationID, attempt+1, err)
	}

	if err != nil {
		if services.Retryable(err) {
			fmt.Printf("[Apply: %v] Try-on unreachable, applying garment-only fallback: %v\n", payload.GenerationID, err)
			sentry.CaptureException(fmt.Errorf("[Apply: %v] Try-on unreachable, fallback applied: %v", payload.GenerationID, err))
			outcome = services.FallbackOutcome(asset, err.Error())
		} else {
			fmt.Printf("[Apply: %v] Error on try-on: %v\n", payload.GenerationID, err)
			sentry.CaptureException(fmt.Errorf("[Apply: %v] Error on try-on: %v", payload.GenerationID, err))
			generation.GenerationErrorMessage = services.StrPointer(err.Error())
			saveProgress(db, &generation, "preview", 0, "Try-on failed, garment kept for retry")
			return nil
		}
	}

	if outcome.Kind == models.OutcomeFailed {
		fmt.Printf("[Apply: %v] Provider declined composition: %s\n", payload.GenerationID, outcome.Reason)
		generation.GenerationErrorMessage = services.StrPointer(outcome.Reason)
		saveProgress(db, &generation, "preview", 0, "Try-on declined, garment kept for retry")
		return nil
	}

	generation.FinalImageURL = services.StrPointer(outcome.FinalImageURL)
	generation.FallbackApplied = outcome.FallbackApplied()
	generation.GenerationErrorMessage = nil
	saveProgress(db, &generation, "completed", 100, "Try-on complete")

	if _, recordErr := avatars.RecordChange(ctx, generation.AvatarID); recordErr != nil {
		fmt.Printf("[Apply: %v] Error on recording avatar mutation: %v\n", payload.GenerationID, recordErr)
		sentry.CaptureException(fmt.Errorf("[Apply: %v] Error on recording avatar mutation: %v", payload.GenerationID, recordErr))
	}
	fmt.Printf("[Apply: %v] Try-on finished successfully, fallback=%v\n", payload.GenerationID, generation.FallbackApplied)
	return nil
}

func saveGenerationFail(db *gorm.DB, generation *models.OutfitGeneration, message string, shouldRetry bool) error {
	generation.GenerationRetryTimes = generation.GenerationRetryTimes + 1
	generation.GenerationErrorMessage = &message
	if !shouldRetry || generation.GenerationRetryTimes >= 3 {
		generation.Status = "failed"
	}
	tx := db.Save(generation)
	if tx.Error != nil {
		sentry.CaptureException(fmt.Errorf("[Fail Generation %v] Error on saving generation for failed status", generation.ID))
		return tx.Error
	}
	return nil
}
