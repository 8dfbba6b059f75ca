package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"vestryapi/models"
)

const garmentGenProvider = "image generation"

// Fixed generation parameters; the try-on pipeline expects portrait-ratio
// garment reference shots.
const (
	garmentImageWidth     = 768
	garmentImageHeight    = 1024
	garmentInferenceSteps = 28
	garmentGuidanceScale  = 3.5
)

type GarmentImageServiceProvider interface {
	GenerateGarment(ctx context.Context, prompt models.GarmentPrompt) (*models.GarmentAsset, error)
}

type GarmentImageService struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

func NewGarmentImageService() *GarmentImageService {
	return &GarmentImageService{
		BaseURL:    GetEnv("GARMENT_GEN_URL", "https://api.garmentgen.example.com/v1/generate"),
		APIKey:     GetEnv("GARMENT_GEN_API_KEY", ""),
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type garmentGenRequest struct {
	Prompt              string        `json:"prompt"`
	NegativePrompt      string        `json:"negative_prompt"`
	ImageSize           imageSizeSpec `json:"image_size"`
	NumInferenceSteps   int           `json:"num_inference_steps"`
	GuidanceScale       float64       `json:"guidance_scale"`
	NumImages           int           `json:"num_images"`
	Seed                uint32        `json:"seed"`
	EnableSafetyChecker bool          `json:"enable_safety_checker"`
}

type imageSizeSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// The provider answers with either {images:[{url}]} or {image:{url}}, both
// must be tolerated.
type garmentGenResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Image *struct {
		URL string `json:"url"`
	} `json:"image"`
}

func (r garmentGenResponse) firstImageURL() string {
	if len(r.Images) > 0 && r.Images[0].URL != "" {
		return r.Images[0].URL
	}
	if r.Image != nil {
		return r.Image.URL
	}
	return ""
}

func (s *GarmentImageService) GenerateGarment(ctx context.Context, prompt models.GarmentPrompt) (*models.GarmentAsset, error) {
	payload, err := json.Marshal(garmentGenRequest{
		Prompt:              prompt.MainPrompt,
		NegativePrompt:      prompt.NegativePrompt,
		ImageSize:           imageSizeSpec{Width: garmentImageWidth, Height: garmentImageHeight},
		NumInferenceSteps:   garmentInferenceSteps,
		GuidanceScale:       garmentGuidanceScale,
		NumImages:           1,
		Seed:                prompt.Seed,
		EnableSafetyChecker: true,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Key %s", s.APIKey))
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ServiceUnavailableError{Provider: garmentGenProvider, Cause: err}
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, &ServiceUnavailableError{Provider: garmentGenProvider, Cause: readErr}
	}

	if err := classifyGenStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var parsed garmentGenResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &MalformedResponseError{Provider: garmentGenProvider, Detail: fmt.Sprintf("invalid JSON: %v", err)}
	}

	imageURL := parsed.firstImageURL()
	if imageURL == "" {
		return nil, &MalformedResponseError{Provider: garmentGenProvider, Detail: "no image returned"}
	}

	return &models.GarmentAsset{ImageURL: imageURL, Prompt: prompt}, nil
}

func classifyGenStatus(status int, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &AuthError{Provider: garmentGenProvider, Status: status}
	case status == http.StatusTooManyRequests:
		return &RateLimitedError{Provider: garmentGenProvider}
	case status >= 500:
		return &ServiceUnavailableError{
			Provider: garmentGenProvider,
			Cause:    fmt.Errorf("status %d: %s", status, string(body)),
		}
	default:
		// non-2xx diagnostics must carry the response body text
		return &MalformedResponseError{
			Provider: garmentGenProvider,
			Detail:   fmt.Sprintf("status %d: %s", status, string(body)),
		}
	}
}
