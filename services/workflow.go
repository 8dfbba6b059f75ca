package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"vestryapi/models"
)

// ErrSessionBusy is returned when a transition is requested while another one
// is still in flight for the same session. Callers should disable the
// triggering action until the current step settles.
var ErrSessionBusy = errors.New("session has a step in flight")

const tryOnRetryAttempts = 1

// WorkflowService bundles the collaborators one try-on session needs. Every
// dependency is an interface so tests can substitute fakes.
type WorkflowService struct {
	Composer   *PromptComposer
	Generator  GarmentImageServiceProvider
	TryOn      TryOnServiceProvider
	Classifier CategoryClassifier
	Avatars    AvatarStoreProvider
	Profiles   *PreferenceLearner
}

// WorkflowSession owns the mutable state of one in-flight user request.
// Transitions are serialized: the mutex guards state, the inFlight flag
// rejects overlapping submit/accept/retry calls instead of queueing them.
type WorkflowSession struct {
	ID             string
	AvatarID       string
	AvatarImageURL string
	// ProfileKey selects the preference profile biasing the preference
	// variation. Empty means no learned bias.
	ProfileKey string

	mu       sync.Mutex
	inFlight bool

	service *WorkflowService
	notify  func(models.ProgressEvent)
	events  chan models.ProgressEvent

	Step      models.Step
	Request   models.OutfitRequest
	Prompt    *models.GarmentPrompt
	Asset     *models.GarmentAsset
	Outcome   *models.TryOnOutcome
	LastError string
	progress  int
}

func (s *WorkflowService) NewSession(avatarID, avatarImageURL string, notify func(models.ProgressEvent)) *WorkflowSession {
	session := &WorkflowSession{
		ID:             uuid.NewString(),
		AvatarID:       avatarID,
		AvatarImageURL: avatarImageURL,
		service:        s,
		notify:         notify,
		Step:           models.StepInput,
	}
	if notify != nil {
		// single drainer keeps event order; the buffered send in emit keeps
		// the pipeline from ever blocking on a slow consumer
		session.events = make(chan models.ProgressEvent, 32)
		go func() {
			for event := range session.events {
				notify(event)
			}
		}()
	}
	return session
}

// emit publishes a progress event without blocking the pipeline. Progress is
// monotonic within the current step; stale values are dropped, and so are
// events a saturated consumer cannot keep up with.
func (s *WorkflowSession) emit(step models.Step, progress int, status string) {
	if progress < s.progress {
		return
	}
	s.progress = progress

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events == nil {
		return
	}
	event := models.ProgressEvent{SessionID: s.ID, Step: step, Progress: progress, Status: status}
	select {
	case s.events <- event:
	default:
	}
}

// Close stops the event drainer. Safe to call more than once; the session
// must not be used afterwards.
func (s *WorkflowSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events != nil {
		close(s.events)
		s.events = nil
	}
}

func (s *WorkflowSession) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSessionBusy
	}
	s.inFlight = true
	return nil
}

func (s *WorkflowSession) finish() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// Submit moves Input -> Generating and runs the generation pipeline. An empty
// description is a local validation error and causes no transition. On
// failure the session returns to Input with the error attached; the request
// text is always preserved.
func (s *WorkflowSession) Submit(ctx context.Context, req models.OutfitRequest) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.finish()

	if s.Step != models.StepInput {
		return &ValidationError{Message: fmt.Sprintf("cannot submit from step %q", s.Step)}
	}
	if strings.TrimSpace(req.Description) == "" {
		return &ValidationError{Message: "outfit description is empty"}
	}

	s.Request = req
	s.LastError = ""
	s.Step = models.StepGenerating
	s.progress = 0
	s.emit(models.StepGenerating, 0, "Starting generation")

	return s.runGeneration(ctx)
}

// RetryGeneration re-enters Generating with the preserved request after a
// failed attempt.
func (s *WorkflowSession) RetryGeneration(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.finish()

	if s.Step != models.StepInput {
		return &ValidationError{Message: fmt.Sprintf("cannot retry generation from step %q", s.Step)}
	}
	if strings.TrimSpace(s.Request.Description) == "" {
		return &ValidationError{Message: "no previous request to retry"}
	}

	s.LastError = ""
	s.Step = models.StepGenerating
	s.progress = 0
	s.emit(models.StepGenerating, 0, "Retrying generation")

	return s.runGeneration(ctx)
}

// composePrompt renders the base prompt, or the requested variation. The
// preference variation reads the learned profile when one is reachable; a
// failed profile load falls back to default weights rather than failing the
// step.
func (s *WorkflowSession) composePrompt(ctx context.Context) models.GarmentPrompt {
	label := s.Request.Variation
	if label == "" {
		return s.service.Composer.Compose(s.Request)
	}
	var profile *models.PreferenceProfile
	if label == models.VariationPreference && s.service.Profiles != nil && s.ProfileKey != "" {
		loaded, err := s.service.Profiles.Profile(ctx, s.ProfileKey)
		if err != nil {
			fmt.Printf("[Session %v] preference profile load failed: %v\n", s.ID, err)
		} else {
			profile = loaded
		}
	}
	return s.service.Composer.ComposeVariation(s.Request, label, profile)
}

func (s *WorkflowSession) runGeneration(ctx context.Context) error {
	s.emit(models.StepGenerating, 25, "Composing garment prompt")
	prompt := s.composePrompt(ctx)
	s.Prompt = &prompt

	s.emit(models.StepGenerating, 55, "Rendering garment image")
	asset, err := s.service.Generator.GenerateGarment(ctx, prompt)
	if err != nil {
		return s.failGeneration(err)
	}

	s.emit(models.StepGenerating, 85, "Validating garment image")
	validation := ScoreGarmentAsset(*asset)
	asset.Validation = &validation
	if !validation.IsValid {
		return s.failGeneration(&ValidationError{
			Message: fmt.Sprintf("garment rejected (score %d): %v", validation.Score, validation.Issues),
		})
	}

	s.Asset = asset
	s.Step = models.StepPreview
	s.emit(models.StepGenerating, 100, "Garment ready for preview")
	return nil
}

// failGeneration lands the session back in Input. Cancellation is not
// recorded as an error, the session is simply returned to its interactive
// state.
func (s *WorkflowSession) failGeneration(err error) error {
	s.Step = models.StepInput
	s.Prompt = nil
	s.Asset = nil
	if Cancelled(err) {
		return err
	}
	s.LastError = err.Error()
	return err
}

// Accept moves Preview -> Applying and runs the try-on call. A retryable
// failure is retried once; if the provider still cannot be reached, the
// garment-only fallback is applied and the session completes in degraded
// mode. A well-formed refusal or a fatal error returns the session to
// Preview with the garment retained, so the user can retry without
// regenerating.
func (s *WorkflowSession) Accept(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.finish()

	if s.Step != models.StepPreview || s.Asset == nil {
		return &ValidationError{Message: fmt.Sprintf("cannot accept from step %q", s.Step)}
	}

	s.LastError = ""
	s.Step = models.StepApplying
	s.progress = 0
	s.emit(models.StepApplying, 0, "Starting try-on")

	category := s.service.Classifier.Classify(s.Request.Description)
	s.emit(models.StepApplying, 40, "Compositing garment onto avatar")

	var outcome models.TryOnOutcome
	var err error
	for attempt := 0; attempt <= tryOnRetryAttempts; attempt++ {
		outcome, err = s.service.TryOn.ApplyGarment(ctx, s.AvatarImageURL, *s.Asset, category)
		if err == nil || !Retryable(err) {
			break
		}
		s.emit(models.StepApplying, 60, "Try-on retrying")
	}

	if err != nil {
		if Cancelled(err) {
			s.Step = models.StepPreview
			return err
		}
		if Retryable(err) {
			outcome = FallbackOutcome(*s.Asset, err.Error())
		} else {
			s.Step = models.StepPreview
			s.LastError = err.Error()
			return err
		}
	}

	if outcome.Kind == models.OutcomeFailed {
		s.Step = models.StepPreview
		s.LastError = outcome.Reason
		return &ValidationError{Message: outcome.Reason}
	}

	s.Outcome = &outcome
	s.Step = models.StepComplete
	s.emit(models.StepApplying, 100, "Try-on complete")

	// advisory mutation budget bookkeeping, never blocks completion
	if s.service.Avatars != nil && s.AvatarID != "" {
		if _, recordErr := s.service.Avatars.RecordChange(ctx, s.AvatarID); recordErr != nil {
			fmt.Printf("[Session %v] avatar mutation record failed: %v\n", s.ID, recordErr)
		}
	}
	return nil
}

// Decline returns Preview -> Input. Derived state is cleared, the request
// text stays editable.
func (s *WorkflowSession) Decline() error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.finish()

	if s.Step != models.StepPreview {
		return &ValidationError{Message: fmt.Sprintf("cannot decline from step %q", s.Step)}
	}
	s.Step = models.StepInput
	s.Prompt = nil
	s.Asset = nil
	s.Outcome = nil
	s.LastError = ""
	s.progress = 0
	return nil
}

// StartNew returns Complete -> Input for the next request. The previous
// request text is retained, everything derived from it is dropped.
func (s *WorkflowSession) StartNew() error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.finish()

	if s.Step != models.StepComplete {
		return &ValidationError{Message: fmt.Sprintf("cannot start new from step %q", s.Step)}
	}
	s.Step = models.StepInput
	s.Prompt = nil
	s.Asset = nil
	s.Outcome = nil
	s.LastError = ""
	s.progress = 0
	return nil
}
