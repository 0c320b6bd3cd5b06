package templates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/patterns"
	"github.com/voicelog/product-identity/models"
)

type TemplateResponse struct {
	ID               string                `json:"id"`
	Name             string                `json:"name"`
	Fingerprint      string                `json:"fingerprint"`
	Items            []models.TemplateItem `json:"items"`
	TypicalTimeRange string                `json:"typical_time_range,omitempty"`
	TimesLogged      int64                 `json:"times_logged"`
}

type TemplateProvider interface {
	ListTemplates(ctx context.Context, userID string) ([]models.MealTemplate, error)
	GetTemplate(ctx context.Context, userID, id string) (*models.MealTemplate, error)
}

type PatternPromoter interface {
	FindPattern(ctx context.Context, userID, fingerprint string, opts patterns.Options) (patterns.Pattern, bool)
	PromoteToTemplate(ctx context.Context, userID, name string, p patterns.Pattern) (*models.MealTemplate, error)
}

type VoiceProvider interface {
	MatchTemplateByVoice(ctx context.Context, transcription, userID string) Result
}

type TemplateHandler struct {
	repo     TemplateProvider
	promoter PatternPromoter
	voice    VoiceProvider
}

func NewTemplateHandler(r TemplateProvider, p PatternPromoter, v VoiceProvider) *TemplateHandler {
	return &TemplateHandler{repo: r, promoter: p, voice: v}
}

func toResponse(t models.MealTemplate) TemplateResponse {
	items := t.Items.Data()
	if items == nil {
		items = []models.TemplateItem{}
	}
	return TemplateResponse{
		ID:               t.ID,
		Name:             t.TemplateName,
		Fingerprint:      t.Fingerprint,
		Items:            items,
		TypicalTimeRange: t.TypicalTimeRange,
		TimesLogged:      t.TimesLogged,
	}
}

func (h *TemplateHandler) HandleGetAll(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repo.ListTemplates(r.Context(), r.PathValue("user"))
	if err != nil {
		common.WriteError(w, http.StatusInternalServerError, "Failed to fetch templates")
		return
	}

	response := make([]TemplateResponse, len(templates))
	for i, t := range templates {
		response[i] = toResponse(t)
	}

	common.WriteJSON(w, http.StatusOK, response)
}

func (h *TemplateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	template, err := h.repo.GetTemplate(r.Context(), r.PathValue("user"), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, models.ErrTemplateNotFound) {
			common.WriteError(w, http.StatusNotFound, "Template not found")
			return
		}
		common.WriteError(w, http.StatusInternalServerError, "Failed to fetch template")
		return
	}

	common.WriteJSON(w, http.StatusOK, toResponse(*template))
}

// HandleCreate confirms a detected pattern as a template. The optional
// window, min and lookback must match the ones the pattern was listed with.
func (h *TemplateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		Fingerprint string `json:"fingerprint"`
		Window      string `json:"window"`
		Min         int    `json:"min"`
		Lookback    int    `json:"lookback"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if strings.TrimSpace(input.Name) == "" || input.Fingerprint == "" {
		common.WriteError(w, http.StatusBadRequest, "Missing name or fingerprint")
		return
	}

	opts, err := patterns.NewOptions(input.Window, input.Min, input.Lookback)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	userID := r.PathValue("user")
	pattern, ok := h.promoter.FindPattern(r.Context(), userID, input.Fingerprint, opts)
	if !ok {
		common.WriteError(w, http.StatusNotFound, "Pattern not found")
		return
	}

	template, err := h.promoter.PromoteToTemplate(r.Context(), userID, input.Name, pattern)
	switch {
	case err == nil:
		common.WriteJSON(w, http.StatusCreated, toResponse(*template))
	case errors.Is(err, common.ErrUnauthenticated):
		common.WriteError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, patterns.ErrInvalidTemplate):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		common.WriteError(w, http.StatusInternalServerError, "Failed to create template")
	}
}

func (h *TemplateHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Transcription string `json:"transcription"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	common.WriteJSON(w, http.StatusOK, h.voice.MatchTemplateByVoice(r.Context(), input.Transcription, r.PathValue("user")))
}
