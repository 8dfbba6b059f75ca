package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestryapi/models"
)

func newGenServer(t *testing.T, handler http.HandlerFunc) *GarmentImageService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &GarmentImageService{BaseURL: server.URL, APIKey: "test-key", HTTPClient: server.Client()}
}

func testPrompt() models.GarmentPrompt {
	return models.GarmentPrompt{
		MainPrompt:     "red silk blouse, complete garment fully visible",
		NegativePrompt: "person, model",
		Seed:           12345,
	}
}

func TestGenerateGarmentImagesArrayShape(t *testing.T) {
	var received garmentGenRequest
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"images":[{"url":"https://cdn.example.com/a.png"}]}`))
	})

	asset, err := service.GenerateGarment(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png", asset.ImageURL)
	assert.Equal(t, uint32(12345), received.Seed)
	assert.Equal(t, 1, received.NumImages)
	assert.True(t, received.EnableSafetyChecker)
	assert.Equal(t, garmentImageWidth, received.ImageSize.Width)
}

func TestGenerateGarmentSingleImageShape(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"image":{"url":"https://cdn.example.com/b.png"}}`))
	})

	asset, err := service.GenerateGarment(context.Background(), testPrompt())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/b.png", asset.ImageURL)
}

func TestGenerateGarmentNoImageReturned(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":[]}`))
	})

	_, err := service.GenerateGarment(context.Background(), testPrompt())
	var malformed *MalformedResponseError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Error(), "no image returned")
	assert.False(t, Retryable(err))
}

func TestGenerateGarmentAuthFailureFatal(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := service.GenerateGarment(context.Background(), testPrompt())
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.False(t, Retryable(err))
}

func TestGenerateGarmentRateLimitedRetryable(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := service.GenerateGarment(context.Background(), testPrompt())
	var rateLimited *RateLimitedError
	require.ErrorAs(t, err, &rateLimited)
	assert.True(t, Retryable(err))
}

func TestGenerateGarmentServerErrorCarriesBody(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream render pool exhausted"))
	})

	_, err := service.GenerateGarment(context.Background(), testPrompt())
	var unavailable *ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.True(t, Retryable(err))
	assert.Contains(t, err.Error(), "upstream render pool exhausted")
}

func TestGenerateGarmentTransportFailureRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	service := &GarmentImageService{BaseURL: server.URL, HTTPClient: server.Client()}
	server.Close()

	_, err := service.GenerateGarment(context.Background(), testPrompt())
	require.Error(t, err)
	assert.True(t, Retryable(err))
}

func TestGenerateGarmentCancelledContext(t *testing.T) {
	service := newGenServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"image":{"url":"https://cdn.example.com/b.png"}}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := service.GenerateGarment(ctx, testPrompt())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, Cancelled(err))
}
