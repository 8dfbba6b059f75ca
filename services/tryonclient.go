package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"vestryapi/models"
)

const tryOnProvider = "try-on"

const defaultTryOnTimeout = 45 * time.Second

type TryOnServiceProvider interface {
	ApplyGarment(ctx context.Context, avatarImageURL string, garment models.GarmentAsset, category models.GarmentCategory) (models.TryOnOutcome, error)
}

type TryOnService struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewTryOnService() *TryOnService {
	timeout := defaultTryOnTimeout
	if raw := GetEnv("TRYON_TIMEOUT_SECONDS", ""); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}
	return &TryOnService{
		BaseURL:    GetEnv("TRYON_URL", "https://api.tryon.example.com/v1/compose"),
		APIKey:     GetEnv("TRYON_API_KEY", ""),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type tryOnRequest struct {
	AvatarImage  string `json:"avatarImage"`
	GarmentImage string `json:"garmentImage"`
	Category     string `json:"category"`
}

type tryOnResponse struct {
	Success  bool   `json:"success"`
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// ApplyGarment asks the provider to composite the garment onto the avatar.
// Transport failures, timeouts and 5xx answers surface as ServiceUnavailable
// so the caller can retry before falling back; a well-formed refusal
// (success=false) is final and becomes a Failed outcome.
func (s *TryOnService) ApplyGarment(ctx context.Context, avatarImageURL string, garment models.GarmentAsset, category models.GarmentCategory) (models.TryOnOutcome, error) {
	payload, err := json.Marshal(tryOnRequest{
		AvatarImage:  avatarImageURL,
		GarmentImage: garment.ImageURL,
		Category:     string(category),
	})
	if err != nil {
		return models.TryOnOutcome{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return models.TryOnOutcome{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", s.APIKey))
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.TryOnOutcome{}, ctx.Err()
		}
		return models.TryOnOutcome{}, &ServiceUnavailableError{Provider: tryOnProvider, Cause: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return models.TryOnOutcome{}, &ServiceUnavailableError{Provider: tryOnProvider, Cause: readErr}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return models.TryOnOutcome{}, &AuthError{Provider: tryOnProvider, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.TryOnOutcome{}, &RateLimitedError{Provider: tryOnProvider}
	case resp.StatusCode >= 500:
		return models.TryOnOutcome{}, &ServiceUnavailableError{
			Provider: tryOnProvider,
			Cause:    fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return models.TryOnOutcome{}, &MalformedResponseError{
			Provider: tryOnProvider,
			Detail:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var parsed tryOnResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return models.TryOnOutcome{}, &MalformedResponseError{Provider: tryOnProvider, Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if !parsed.Success {
		reason := parsed.Error
		if reason == "" {
			reason = "provider declined the composition"
		}
		return models.TryOnOutcome{Kind: models.OutcomeFailed, Reason: reason}, nil
	}
	if parsed.ImageURL == "" {
		return models.TryOnOutcome{}, &MalformedResponseError{Provider: tryOnProvider, Detail: "success without imageUrl"}
	}

	return models.TryOnOutcome{Kind: models.OutcomeComposited, FinalImageURL: parsed.ImageURL}, nil
}

// FallbackOutcome builds the garment-only presentation used when compositing
// cannot be completed. The outcome keeps the reason so the UI can tell the
// user what happened.
func FallbackOutcome(garment models.GarmentAsset, reason string) models.TryOnOutcome {
	return models.TryOnOutcome{
		Kind:          models.OutcomeFallbackGarmentOnly,
		FinalImageURL: garment.ImageURL,
		Reason:        reason,
	}
}
