package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vestryapi/services"
	"vestryapi/test"
)

func avatarTestServer(store services.AvatarStoreProvider) http.Handler {
	learner := services.NewPreferenceLearner(test.NewFakePreferenceStore())
	return SetupServer(nil, store, learner, services.NewSuggestionCacheService(), nil)
}

func TestSetAvatarOk(t *testing.T) {
	store := test.NewFakeAvatarStore()
	e := avatarTestServer(store)

	req := test.NewJSONRequest("POST", "/avatars/avatar-1", SetAvatarIn{ImageURL: "https://cdn.example.com/me.png"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	record, err := store.Get(req.Context(), "avatar-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/me.png", record.ImageURL)
}

func TestSetAvatarInvalidURL(t *testing.T) {
	e := avatarTestServer(test.NewFakeAvatarStore())

	req := test.NewJSONRequest("POST", "/avatars/avatar-1", SetAvatarIn{ImageURL: "not a url"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvatarStatusNotFound(t *testing.T) {
	e := avatarTestServer(test.NewFakeAvatarStore())

	req := test.NewJSONRequest("GET", "/avatars/missing/status", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAvatarStatusWarningAndReset(t *testing.T) {
	store := test.NewFakeAvatarStore()
	e := avatarTestServer(store)

	req := test.NewJSONRequest("POST", "/avatars/avatar-1", SetAvatarIn{ImageURL: "https://cdn.example.com/me.png"})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < services.DefaultMaxAvatarChanges; i++ {
		_, err := store.RecordChange(req.Context(), "avatar-1")
		require.NoError(t, err)
	}

	req = test.NewJSONRequest("GET", "/avatars/avatar-1/status", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var status AvatarStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.NeedsResetWarning)
	assert.Equal(t, services.DefaultMaxAvatarChanges, status.ChangesApplied)

	req = test.NewJSONRequest("POST", "/avatars/avatar-1/reset", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.NeedsResetWarning)
	assert.Equal(t, 0, status.ChangesApplied)
	assert.Equal(t, "https://cdn.example.com/me.png", status.ImageURL)
}

func TestSuggestionsEndpoint(t *testing.T) {
	e := avatarTestServer(test.NewFakeAvatarStore())

	req := test.NewJSONRequest("GET", "/suggestions?temp=3&condition=snow&styles=formal,casual", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Suggestions []map[string]interface{} `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Suggestions, 2)
	assert.Contains(t, fmt.Sprint(body.Suggestions[0]["title"]), "wool coat")
}

func TestSuggestionsUnknownStyle(t *testing.T) {
	e := avatarTestServer(test.NewFakeAvatarStore())

	req := test.NewJSONRequest("GET", "/suggestions?temp=3&condition=snow&styles=sporty", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestionsMissingTemp(t *testing.T) {
	e := avatarTestServer(test.NewFakeAvatarStore())

	req := test.NewJSONRequest("GET", "/suggestions?condition=snow", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
