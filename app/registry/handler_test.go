package registry

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/voicelog/product-identity/models"
)

func newTestHandler(store *MockRegistryStore) *RegistryHandler {
	matcher := NewMatcher(store, nil, testRegistryConfig()).
		WithClock(func() time.Time { return time.Date(2026, time.October, 16, 9, 0, 0, 0, time.UTC) })
	return NewRegistryHandler(matcher)
}

// --- Tests: POST /users/{user}/registry/lookup ---

func TestHandleLookup(t *testing.T) {
	entries := []models.UserRegistryEntry{
		newEntry("user-1", "magtein", 5),
		newEntry("user-1", "vitamin d3", 12),
	}

	testCases := []struct {
		name               string
		requestBody        string
		mockRepoSetup      func() *MockRegistryStore
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:               "Exact hit",
			requestBody:        `{"transcription":"Vitamin D3"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{Entries: entries} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp FuzzyMatch
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, MethodExact, resp.Method)
				assert.Equal(t, 1.0, resp.Confidence)
				if assert.NotNil(t, resp.Entry) {
					assert.Equal(t, "vitamin d3", resp.Entry.ProductKey)
				}
			},
		},
		{
			name:               "Exact miss does not go fuzzy",
			requestBody:        `{"transcription":"magtane"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{Entries: entries} },
			expectedStatusCode: http.StatusNotFound,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var errResp map[string]string
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
				assert.Equal(t, "No registry match", errResp["error"])
			},
		},
		{
			name:               "Fuzzy phonetic hit",
			requestBody:        `{"transcription":"magtane","fuzzy":true}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{Entries: entries} },
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp FuzzyMatch
				assert.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, MethodPhonetic, resp.Method)
				assert.Equal(t, phoneticConfidence, resp.Confidence)
			},
		},
		{
			name:               "Fuzzy miss",
			requestBody:        `{"transcription":"ashwagandha","fuzzy":true}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{Entries: entries} },
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "Storage failure reads as a miss",
			requestBody:        `{"transcription":"vitamin d3"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{FindErr: errors.New("db connection lost")} },
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name:               "Invalid JSON body",
			requestBody:        `{"transcription":`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{} },
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			handler := newTestHandler(tc.mockRepoSetup())
			req := httptest.NewRequest("POST", "/users/user-1/registry/lookup", strings.NewReader(tc.requestBody))
			req.SetPathValue("user", "user-1")
			rec := httptest.NewRecorder()

			// Act
			handler.HandleLookup(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

// --- Tests: POST /users/{user}/registry ---

func TestHandleRecord(t *testing.T) {
	testCases := []struct {
		name               string
		userID             string
		requestBody        string
		mockRepoSetup      func() *MockRegistryStore
		expectedStatusCode int
		checkRepoCall      func(t *testing.T, repo *MockRegistryStore)
	}{
		{
			name:               "Success",
			userID:             "user-1",
			requestBody:        `{"transcription":"my magtein","event_type":"supplement","product_name":"Magtein","brand":"NOW"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{} },
			expectedStatusCode: http.StatusCreated,
			checkRepoCall: func(t *testing.T, repo *MockRegistryStore) {
				if assert.NotNil(t, repo.upserted) {
					assert.Equal(t, "my magtein", repo.upserted.ProductKey)
					assert.Equal(t, "user-1", repo.upserted.UserID)
				}
			},
		},
		{
			name:               "Missing user",
			userID:             "",
			requestBody:        `{"transcription":"magtein","event_type":"supplement","product_name":"Magtein"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{} },
			expectedStatusCode: http.StatusUnauthorized,
			checkRepoCall: func(t *testing.T, repo *MockRegistryStore) {
				assert.Nil(t, repo.upserted)
			},
		},
		{
			name:               "Unsupported event type",
			userID:             "user-1",
			requestBody:        `{"transcription":"5k run","event_type":"exercise","product_name":"run"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{} },
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Repository error",
			userID:             "user-1",
			requestBody:        `{"transcription":"magtein","event_type":"supplement","product_name":"Magtein"}`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{UpsertErr: errors.New("insert failed")} },
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:               "Invalid JSON body",
			userID:             "user-1",
			requestBody:        `nope`,
			mockRepoSetup:      func() *MockRegistryStore { return &MockRegistryStore{} },
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			repo := tc.mockRepoSetup()
			handler := newTestHandler(repo)
			req := httptest.NewRequest("POST", "/users/x/registry", strings.NewReader(tc.requestBody))
			req.SetPathValue("user", tc.userID)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleRecord(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkRepoCall != nil {
				tc.checkRepoCall(t, repo)
			}
		})
	}
}
