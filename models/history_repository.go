package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrRegistryEntryNotFound is the expected miss of a personal registry lookup.
	ErrRegistryEntryNotFound = errors.New("registry entry not found")
	// ErrTemplateNotFound is returned when a meal template is not found.
	ErrTemplateNotFound = errors.New("template not found")
)

type RegistryRepository struct {
	db *gorm.DB
}

func NewRegistryRepository(db *gorm.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

func (r *RegistryRepository) FindRegistryEntry(ctx context.Context, userID, productKey string) (*UserRegistryEntry, error) {
	var entry UserRegistryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_key = ?", userID, productKey).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRegistryEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *RegistryRepository) FindRegistryByPhonetic(ctx context.Context, userID, phoneticKey string) ([]UserRegistryEntry, error) {
	var entries []UserRegistryEntry
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND phonetic_key = ?", userID, phoneticKey).
		Order("times_logged DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListRegistryEntries returns the user's most logged entries first.
func (r *RegistryRepository) ListRegistryEntries(ctx context.Context, userID string, limit int) ([]UserRegistryEntry, error) {
	var entries []UserRegistryEntry
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("times_logged DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// UpsertRegistryEntry inserts the entry or, when the user already has the
// key, increments times_logged and refreshes the identity fields. The stored
// row (id, times_logged) is scanned back into entry.
func (r *RegistryRepository) UpsertRegistryEntry(ctx context.Context, entry *UserRegistryEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.Returning{}, clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_key"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"times_logged":       gorm.Expr("user_product_registry.times_logged + 1"),
				"last_logged_at":     entry.LastLoggedAt,
				"event_type":         entry.EventType,
				"product_name":       entry.ProductName,
				"brand":              entry.Brand,
				"phonetic_key":       entry.PhoneticKey,
				"product_catalog_id": entry.ProductCatalogID,
			}),
		}).
		Create(entry).Error
}

type EventsRepository struct {
	db *gorm.DB
}

func NewEventsRepository(db *gorm.DB) *EventsRepository {
	return &EventsRepository{db: db}
}

// ListEvents returns the user's events of the given types since the
// cutoff, ascending by event time.
func (r *EventsRepository) ListEvents(ctx context.Context, userID string, eventTypes []string, since time.Time) ([]VoiceEvent, error) {
	var events []VoiceEvent
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND event_time >= ?", userID, since)
	if len(eventTypes) > 0 {
		query = query.Where("event_type IN ?", eventTypes)
	}
	if err := query.Order("event_time ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *EventsRepository) CreateEvent(ctx context.Context, event *VoiceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

type TemplatesRepository struct {
	db *gorm.DB
}

func NewTemplatesRepository(db *gorm.DB) *TemplatesRepository {
	return &TemplatesRepository{db: db}
}

func (r *TemplatesRepository) ListTemplates(ctx context.Context, userID string) ([]MealTemplate, error) {
	var templates []MealTemplate
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("times_logged DESC").
		Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplatesRepository) GetTemplate(ctx context.Context, userID, id string) (*MealTemplate, error) {
	var template MealTemplate
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &template, nil
}

func (r *TemplatesRepository) CreateTemplate(ctx context.Context, template *MealTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}
