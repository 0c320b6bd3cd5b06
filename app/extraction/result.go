// Package extraction is the client side of the structured extraction
// service that turns text, photos and audio into typed log events.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voicelog/product-identity/app/catalog"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/models"
)

// Input is what the extraction service reads.
type Input struct {
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	AudioURL string   `json:"audio_url,omitempty"`
	History  []string `json:"history,omitempty"`
}

// Result is a validated extraction.
type Result struct {
	EventType  string                 `json:"event_type"`
	EventData  map[string]interface{} `json:"event_data"`
	Confidence float64                `json:"confidence"`
	Complete   bool                   `json:"complete"`
}

// Oracle extracts a typed event from raw input.
type Oracle interface {
	Extract(ctx context.Context, in Input) (*Result, error)
}

var knownEventTypes = map[string]bool{
	models.EventTypeFood:       true,
	models.EventTypeSupplement: true,
	models.EventTypeMedication: true,
	models.EventTypeSymptom:    true,
	models.EventTypeExercise:   true,
	models.EventTypeSleep:      true,
	models.EventTypeWater:      true,
}

var requiredFields = map[string][]string{
	models.EventTypeFood:       {"description"},
	models.EventTypeSupplement: {"name"},
	models.EventTypeMedication: {"name"},
}

func malformed(field, format string, args ...interface{}) error {
	return &common.MalformedPayloadError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ParseResult decodes and validates a response body. Every contract
// violation is returned as a *common.MalformedPayloadError.
func ParseResult(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, malformed("", "body is not a JSON object")
	}

	var raw struct {
		EventType  *string         `json:"event_type"`
		EventData  json.RawMessage `json:"event_data"`
		Confidence *float64        `json:"confidence"`
		Complete   bool            `json:"complete"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, malformed("", "invalid JSON: %v", err)
	}
	if raw.EventType == nil {
		return nil, malformed("event_type", "missing")
	}
	if raw.Confidence == nil {
		return nil, malformed("confidence", "missing")
	}

	result := &Result{
		EventType:  strings.TrimSpace(*raw.EventType),
		Confidence: *raw.Confidence,
		Complete:   raw.Complete,
		EventData:  map[string]interface{}{},
	}
	if data := bytes.TrimSpace(raw.EventData); len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if data[0] != '{' {
			return nil, malformed("event_data", "not an object")
		}
		if err := json.Unmarshal(data, &result.EventData); err != nil {
			return nil, malformed("event_data", "invalid JSON: %v", err)
		}
	}

	if err := Validate(result); err != nil {
		return nil, err
	}
	return result, nil
}

// Validate checks the event type, the confidence range and the fields the
// event type requires.
func Validate(r *Result) error {
	if r == nil {
		return malformed("", "empty result")
	}
	if !knownEventTypes[r.EventType] {
		return malformed("event_type", "unknown event type %q", r.EventType)
	}
	if r.Confidence < 0 || r.Confidence > 100 {
		return malformed("confidence", "%v is outside 0-100", r.Confidence)
	}
	for _, field := range requiredFields[r.EventType] {
		if r.Field(field) == "" {
			return malformed("event_data."+field, "required for %s events", r.EventType)
		}
	}
	return nil
}

// Field returns a trimmed string field of the event data.
func (r *Result) Field(field string) string {
	if r == nil {
		return ""
	}
	v, _ := r.EventData[field].(string)
	return strings.TrimSpace(v)
}

// NeedsClarification reports whether the caller should ask the user to
// confirm before logging the result.
func (r *Result) NeedsClarification(minConfidence float64) bool {
	return !r.Complete || r.Confidence < minConfidence
}

// ToDetectedProduct maps a product-bearing extraction to a catalog query.
// Supplements and medications carry name and brand; food carries a description.
func ToDetectedProduct(r *Result) catalog.Query {
	if r == nil {
		return catalog.Query{}
	}
	q := catalog.Query{
		Barcode: r.Field("barcode"),
		Brand:   r.Field("brand"),
	}
	switch r.EventType {
	case models.EventTypeSupplement, models.EventTypeMedication:
		q.ProductName = r.Field("name")
	case models.EventTypeFood:
		q.ProductName = r.Field("name")
		if q.ProductName == "" {
			q.ProductName = r.Field("description")
		}
	}
	return q
}
