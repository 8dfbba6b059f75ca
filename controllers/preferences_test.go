package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestryapi/models"
	"vestryapi/services"
	"vestryapi/test"
)

func preferenceTestServer() http.Handler {
	learner := services.NewPreferenceLearner(test.NewFakePreferenceStore())
	return SetupServer(nil, test.NewFakeAvatarStore(), learner, services.NewSuggestionCacheService(), nil)
}

func TestRecordSelectionOk(t *testing.T) {
	e := preferenceTestServer()

	body := RecordSelectionIn{
		ProfileKey:     "user-1",
		VariationLabel: models.VariationArtistic,
		PromptUsed:     "red blouse, (dramatic lighting:1.20)",
		OutfitStyle:    models.StyleFormal,
	}
	for i := 0; i < 3; i++ {
		req := test.NewJSONRequest("POST", "/preferences/selection", body)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := test.NewJSONRequest("GET", "/preferences/user-1", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response PreferenceProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 3, response.SelectionCount)
	assert.Equal(t, 3, response.VariationPreferenceCounts[models.VariationArtistic])
	require.NotNil(t, response.TopVariation)
	assert.Equal(t, models.VariationArtistic, *response.TopVariation)
	assert.Equal(t, 1.2, response.PreferredTermWeights["dramatic lighting"])
}

func TestRecordSelectionUnknownVariation(t *testing.T) {
	e := preferenceTestServer()

	body := RecordSelectionIn{
		ProfileKey:     "user-1",
		VariationLabel: "funky",
		PromptUsed:     "red blouse",
		OutfitStyle:    models.StyleFormal,
	}
	req := test.NewJSONRequest("POST", "/preferences/selection", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordSelectionUnknownStyle(t *testing.T) {
	e := preferenceTestServer()

	body := RecordSelectionIn{
		ProfileKey:     "user-1",
		VariationLabel: models.VariationEnhanced,
		PromptUsed:     "red blouse",
		OutfitStyle:    "sporty",
	}
	req := test.NewJSONRequest("POST", "/preferences/selection", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetProfileEmpty(t *testing.T) {
	e := preferenceTestServer()

	req := test.NewJSONRequest("GET", "/preferences/fresh-user", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var response PreferenceProfileResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 0, response.SelectionCount)
	assert.Nil(t, response.TopVariation)
}

func TestCreateOutfitGenerationInvalidStyle(t *testing.T) {
	e := preferenceTestServer()

	body := CreateOutfitIn{
		UserID:      "user-1",
		AvatarID:    "avatar-1",
		Description: "a red silk blouse",
		Style:       "sporty",
	}
	req := test.NewJSONRequest("POST", "/outfits", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOutfitGenerationUnknownVariation(t *testing.T) {
	e := preferenceTestServer()

	body := CreateOutfitIn{
		UserID:      "user-1",
		AvatarID:    "avatar-1",
		Description: "a red silk blouse",
		Style:       models.StyleFormal,
		Variation:   "funky",
	}
	req := test.NewJSONRequest("POST", "/outfits", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateOutfitGenerationMissingDescription(t *testing.T) {
	e := preferenceTestServer()

	body := CreateOutfitIn{
		UserID:   "user-1",
		AvatarID: "avatar-1",
		Style:    models.StyleCasual,
	}
	req := test.NewJSONRequest("POST", "/outfits", body)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
