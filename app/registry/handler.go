package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/models"
)

type LookupProvider interface {
	Check(ctx context.Context, transcription, userID string) *models.UserRegistryEntry
	CheckFuzzy(ctx context.Context, transcription, userID string) *FuzzyMatch
	Record(ctx context.Context, userID string, in RecordInput) (*models.UserRegistryEntry, error)
}

type RegistryHandler struct {
	matcher LookupProvider
}

func NewRegistryHandler(m LookupProvider) *RegistryHandler {
	return &RegistryHandler{matcher: m}
}

// HandleLookup resolves a transcription against the user's registry.
// With "fuzzy" set it falls back to phonetic and edit-distance matching.
func (h *RegistryHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Transcription string `json:"transcription"`
		Fuzzy         bool   `json:"fuzzy"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	userID := r.PathValue("user")
	if input.Fuzzy {
		match := h.matcher.CheckFuzzy(r.Context(), input.Transcription, userID)
		if match == nil {
			common.WriteError(w, http.StatusNotFound, "No registry match")
			return
		}
		common.WriteJSON(w, http.StatusOK, match)
		return
	}

	entry := h.matcher.Check(r.Context(), input.Transcription, userID)
	if entry == nil {
		common.WriteError(w, http.StatusNotFound, "No registry match")
		return
	}
	common.WriteJSON(w, http.StatusOK, FuzzyMatch{Entry: entry, Confidence: 1, Method: MethodExact})
}

// HandleRecord stores what the user logged under a transcription.
func (h *RegistryHandler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Transcription    string  `json:"transcription"`
		EventType        string  `json:"event_type"`
		ProductName      string  `json:"product_name"`
		Brand            string  `json:"brand"`
		ProductCatalogID *string `json:"product_catalog_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	entry, err := h.matcher.Record(r.Context(), r.PathValue("user"), RecordInput{
		Transcription:    input.Transcription,
		EventType:        input.EventType,
		ProductName:      input.ProductName,
		Brand:            input.Brand,
		ProductCatalogID: input.ProductCatalogID,
	})
	switch {
	case err == nil:
		common.WriteJSON(w, http.StatusCreated, entry)
	case errors.Is(err, common.ErrUnauthenticated):
		common.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, common.ErrInvalidInput):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		common.WriteError(w, http.StatusInternalServerError, "Failed to record registry entry")
	}
}
