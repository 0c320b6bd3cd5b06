package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types the extraction layer may produce.
const (
	EventTypeFood       = "food"
	EventTypeSupplement = "supplement"
	EventTypeMedication = "medication"
	EventTypeSymptom    = "symptom"
	EventTypeExercise   = "exercise"
	EventTypeSleep      = "sleep"
	EventTypeWater      = "water"
)

// ConsumableEventTypes are the event types mined for meal patterns.
var ConsumableEventTypes = []string{EventTypeFood, EventTypeSupplement, EventTypeMedication}

// UserRegistryEntry is a per-user learned mapping from a normalized
// transcription to a product identity. Never shared between users.
type UserRegistryEntry struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"not null;uniqueIndex:idx_registry_user_key,priority:1;index:idx_registry_user_phonetic,priority:1" json:"user_id"`
	ProductKey       string    `gorm:"not null;uniqueIndex:idx_registry_user_key,priority:2" json:"product_key"`
	PhoneticKey      string    `gorm:"index:idx_registry_user_phonetic,priority:2" json:"phonetic_key"`
	EventType        string    `gorm:"not null" json:"event_type"`
	ProductName      string    `gorm:"not null" json:"product_name"`
	Brand            string    `json:"brand"`
	ProductCatalogID *string   `gorm:"type:uuid" json:"product_catalog_id,omitempty"`
	TimesLogged      int64     `gorm:"not null;default:1" json:"times_logged"`
	LastLoggedAt     time.Time `json:"last_logged_at"`
	CreatedAt        time.Time `json:"created_at"`
}

func (e *UserRegistryEntry) TableName() string {
	return "user_product_registry"
}

func (e *UserRegistryEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// VoiceEvent is the append-only log entry every history feature derives from.
type VoiceEvent struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string            `gorm:"not null;index:idx_events_user_time,priority:1" json:"user_id"`
	EventType        string            `gorm:"not null" json:"event_type"`
	EventData        datatypes.JSONMap `gorm:"type:jsonb" json:"event_data"`
	EventTime        time.Time         `gorm:"not null;index:idx_events_user_time,priority:2" json:"event_time"`
	ProductCatalogID *string           `gorm:"type:uuid" json:"product_catalog_id,omitempty"`
	TemplateID       *string           `gorm:"type:uuid" json:"template_id,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

func (e *VoiceEvent) TableName() string {
	return "voice_events"
}

func (e *VoiceEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// TemplateItem is one item of a meal template.
type TemplateItem struct {
	ProductID       string  `json:"product_id,omitempty"`
	Name            string  `json:"name,omitempty"`
	EventType       string  `json:"event_type,omitempty"`
	DefaultQuantity float64 `json:"default_quantity,omitempty"`
	Unit            string  `json:"unit,omitempty"`
}

// MealTemplate is a user-confirmed reusable item set.
// It is only created from an explicit confirmation of a detected pattern.
type MealTemplate struct {
	ID               string                             `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string                             `gorm:"not null;index" json:"user_id"`
	TemplateName     string                             `gorm:"not null" json:"template_name"`
	TemplateKey      string                             `gorm:"not null" json:"template_key"`
	Fingerprint      string                             `gorm:"not null;index" json:"fingerprint"`
	Items            datatypes.JSONType[[]TemplateItem] `gorm:"type:jsonb" json:"items"`
	TypicalTimeRange string                             `json:"typical_time_range,omitempty"`
	TimesLogged      int64                              `gorm:"not null;default:0" json:"times_logged"`
	AutoGenerated    bool                               `gorm:"not null;default:false" json:"auto_generated"`
	CreatedAt        time.Time                          `json:"created_at"`
}

func (t *MealTemplate) TableName() string {
	return "meal_templates"
}

func (t *MealTemplate) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
