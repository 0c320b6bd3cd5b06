package patterns

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/voicelog/product-identity/app/common"
)

type PatternProvider interface {
	DetectMealPatterns(ctx context.Context, userID string, opts Options) []Pattern
}

type PatternHandler struct {
	detector PatternProvider
}

func NewPatternHandler(d PatternProvider) *PatternHandler {
	return &PatternHandler{detector: d}
}

// HandleGet lists the user's unconfirmed recurring item sets. Optional
// query params: window (duration), min, lookback (days).
func (h *PatternHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	opts, err := parseOptions(r)
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	common.WriteJSON(w, http.StatusOK, h.detector.DetectMealPatterns(r.Context(), r.PathValue("user"), opts))
}

func parseOptions(r *http.Request) (Options, error) {
	q := r.URL.Query()
	positive := func(key string) (int, error) {
		s := q.Get(key)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return 0, common.InvalidInput("%s must be a positive integer", key)
		}
		return n, nil
	}

	minOccurrences, err := positive("min")
	if err != nil {
		return Options{}, err
	}
	lookbackDays, err := positive("lookback")
	if err != nil {
		return Options{}, err
	}
	return NewOptions(q.Get("window"), minOccurrences, lookbackDays)
}

// NewOptions validates caller supplied detection options. An empty window
// or a zero count keeps the configured default.
func NewOptions(window string, minOccurrences, lookbackDays int) (Options, error) {
	var opts Options
	if window != "" {
		d, err := time.ParseDuration(window)
		if err != nil || d <= 0 {
			return opts, common.InvalidInput("window must be a positive duration")
		}
		opts.TimeWindow = d
	}
	if minOccurrences < 0 {
		return opts, common.InvalidInput("min must be a positive integer")
	}
	if lookbackDays < 0 {
		return opts, common.InvalidInput("lookback must be a positive integer")
	}
	opts.MinOccurrences = minOccurrences
	opts.LookbackDays = lookbackDays
	return opts, nil
}
