package test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"vestryapi/models"
	"vestryapi/services"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func InternalRequestJSON(e *echo.Echo, method string, url string, param interface{}) []byte {
	req := NewJSONRequest(method, url, param)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	if rec.Code > 300 {
		log.Printf("%s", rec.Body.String())
	}
	return rec.Body.Bytes()
}

// GarmentGenMock stands in for the image generation provider.
type GarmentGenMock struct {
	ImageURL string
	Err      error
	Calls    int
}

func (m *GarmentGenMock) GenerateGarment(ctx context.Context, prompt models.GarmentPrompt) (*models.GarmentAsset, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	url := m.ImageURL
	if url == "" {
		url = "https://fakegarmentcdn.com/garment.png"
	}
	return &models.GarmentAsset{ImageURL: url, Prompt: prompt}, nil
}

// TryOnMock stands in for the try-on provider. Errs are consumed one per
// call, so a test can fail the first attempt and succeed the retry.
type TryOnMock struct {
	Outcome models.TryOnOutcome
	Errs    []error
	Calls   int

	LastCategory models.GarmentCategory
}

func (m *TryOnMock) ApplyGarment(ctx context.Context, avatarImageURL string, garment models.GarmentAsset, category models.GarmentCategory) (models.TryOnOutcome, error) {
	m.Calls++
	m.LastCategory = category
	if len(m.Errs) > 0 {
		err := m.Errs[0]
		m.Errs = m.Errs[1:]
		if err != nil {
			return models.TryOnOutcome{}, err
		}
	}
	if m.Outcome.Kind == "" {
		return models.TryOnOutcome{
			Kind:          models.OutcomeComposited,
			FinalImageURL: fmt.Sprintf("https://faketryoncdn.com/composite-%d.png", m.Calls),
		}, nil
	}
	return m.Outcome, nil
}

// FakeAvatarStore is an in-memory AvatarStoreProvider.
type FakeAvatarStore struct {
	mu      sync.Mutex
	Records map[string]*models.AvatarRecord
	Max     int
}

func NewFakeAvatarStore() *FakeAvatarStore {
	return &FakeAvatarStore{Records: map[string]*models.AvatarRecord{}, Max: services.DefaultMaxAvatarChanges}
}

func (s *FakeAvatarStore) Get(ctx context.Context, avatarID string) (*models.AvatarRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[avatarID]
	if !ok {
		return nil, services.ErrAvatarNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *FakeAvatarStore) Set(ctx context.Context, avatarID string, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record, ok := s.Records[avatarID]; ok {
		record.ImageURL = imageURL
		return nil
	}
	s.Records[avatarID] = &models.AvatarRecord{ImageURL: imageURL, OriginalImageURL: imageURL}
	return nil
}

func (s *FakeAvatarStore) RecordChange(ctx context.Context, avatarID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[avatarID]
	if !ok {
		record = &models.AvatarRecord{}
		s.Records[avatarID] = record
	}
	record.MutationCount++
	return record.MutationCount, nil
}

func (s *FakeAvatarStore) Reset(ctx context.Context, avatarID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[avatarID]
	if !ok {
		return services.ErrAvatarNotFound
	}
	record.ImageURL = record.OriginalImageURL
	record.MutationCount = 0
	return nil
}

func (s *FakeAvatarStore) Status(ctx context.Context, avatarID string) (models.AvatarMutationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.Records[avatarID]
	if !ok {
		return models.AvatarMutationState{}, services.ErrAvatarNotFound
	}
	return models.AvatarMutationState{
		ChangesApplied:    record.MutationCount,
		MaxChanges:        s.Max,
		NeedsResetWarning: record.MutationCount >= s.Max,
	}, nil
}

// FakePreferenceStore is an in-memory PreferenceStoreProvider.
type FakePreferenceStore struct {
	mu         sync.Mutex
	Selections map[string][]models.PreferenceSelection
}

func NewFakePreferenceStore() *FakePreferenceStore {
	return &FakePreferenceStore{Selections: map[string][]models.PreferenceSelection{}}
}

func (s *FakePreferenceStore) LoadSelections(ctx context.Context, profileKey string) ([]models.PreferenceSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.Selections[profileKey]
	copied := make([]models.PreferenceSelection, len(stored))
	copy(copied, stored)
	return copied, nil
}

func (s *FakePreferenceStore) ReplaceSelections(ctx context.Context, profileKey string, selections []models.PreferenceSelection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]models.PreferenceSelection, len(selections))
	copy(copied, selections)
	s.Selections[profileKey] = copied
	return nil
}
