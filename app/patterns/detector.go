package patterns

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// ErrInvalidTemplate is returned when a pattern cannot be promoted.
var ErrInvalidTemplate = errors.New("invalid template")

type EventStore interface {
	ListEvents(ctx context.Context, userID string, eventTypes []string, since time.Time) ([]models.VoiceEvent, error)
}

type TemplateStore interface {
	ListTemplates(ctx context.Context, userID string) ([]models.MealTemplate, error)
	CreateTemplate(ctx context.Context, template *models.MealTemplate) error
}

// Options tunes a detection run. Zero values fall back to the configured defaults.
type Options struct {
	TimeWindow     time.Duration
	MinOccurrences int
	LookbackDays   int
}

// Pattern is a recurring item set. It is computed on demand and only
// stored once the user promotes it to a template.
type Pattern struct {
	Fingerprint string `json:"fingerprint"`
	Items       []Item `json:"items"`
	Occurrences int    `json:"occurrences"`
	TypicalHour int    `json:"typical_hour"`
}

type Detector struct {
	events    EventStore
	templates TemplateStore
	config    config.PatternsConfig
	now       func() time.Time
}

func NewDetector(events EventStore, templates TemplateStore, cfg config.PatternsConfig) *Detector {
	return &Detector{
		events:    events,
		templates: templates,
		config:    cfg,
		now:       time.Now,
	}
}

func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

func (d *Detector) withDefaults(opts Options) Options {
	if opts.TimeWindow <= 0 {
		opts.TimeWindow = d.config.TimeWindow
	}
	if opts.MinOccurrences <= 0 {
		opts.MinOccurrences = d.config.MinOccurrences
	}
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = d.config.LookbackDays
	}
	return opts
}

type occurrence struct {
	items []Item
	hours []int
}

// DetectMealPatterns groups the user's recent consumable events into
// sessions and returns the item sets seen at least MinOccurrences times
// that are not already confirmed templates. Any failure yields an empty list.
func (d *Detector) DetectMealPatterns(ctx context.Context, userID string, opts Options) (patterns []Pattern) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("pattern detection panicked", zap.Any("panic", r))
			patterns = []Pattern{}
		}
	}()
	patterns = []Pattern{}
	if strings.TrimSpace(userID) == "" || d.events == nil || d.templates == nil {
		return patterns
	}
	opts = d.withDefaults(opts)
	since := d.now().AddDate(0, 0, -opts.LookbackDays)

	var (
		events    []models.VoiceEvent
		templates []models.MealTemplate
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		events, err = d.events.ListEvents(gctx, userID, models.ConsumableEventTypes, since)
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		templates, err = d.templates.ListTemplates(gctx, userID)
		if err != nil {
			return fmt.Errorf("list templates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		common.LogError("pattern detection failed", zap.String("user_id", userID), zap.Error(err))
		return patterns
	}
	if len(events) == 0 {
		return patterns
	}

	confirmed := make(map[string]bool, len(templates))
	for _, t := range templates {
		confirmed[templateFingerprint(t)] = true
	}

	loc := d.config.Location()
	seen := map[string]*occurrence{}
	var order []string
	for _, s := range GroupEventsIntoSessions(events, opts.TimeWindow) {
		items := distinctItems(s.Items())
		fp := GenerateMealFingerprint(items)
		if fp == "" {
			continue
		}
		occ, ok := seen[fp]
		if !ok {
			occ = &occurrence{items: items}
			seen[fp] = occ
			order = append(order, fp)
		}
		occ.hours = append(occ.hours, s.Start.In(loc).Hour())
	}

	for _, fp := range order {
		occ := seen[fp]
		if len(occ.hours) < opts.MinOccurrences || confirmed[fp] {
			continue
		}
		patterns = append(patterns, Pattern{
			Fingerprint: fp,
			Items:       occ.items,
			Occurrences: len(occ.hours),
			TypicalHour: meanHour(occ.hours),
		})
	}

	sort.SliceStable(patterns, func(i, j int) bool {
		if patterns[i].Occurrences != patterns[j].Occurrences {
			return patterns[i].Occurrences > patterns[j].Occurrences
		}
		return patterns[i].Fingerprint < patterns[j].Fingerprint
	})
	return patterns
}

// FindPattern returns the pattern with the given fingerprint as detected
// under opts, so a pattern listed with custom options can be promoted.
func (d *Detector) FindPattern(ctx context.Context, userID, fingerprint string, opts Options) (Pattern, bool) {
	for _, p := range d.DetectMealPatterns(ctx, userID, opts) {
		if p.Fingerprint == fingerprint {
			return p, true
		}
	}
	return Pattern{}, false
}

// PromoteToTemplate saves a detected pattern as a meal template after the
// user confirmed it.
func (d *Detector) PromoteToTemplate(ctx context.Context, userID, name string, p Pattern) (*models.MealTemplate, error) {
	if err := common.RequireUser(userID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: template name is required", ErrInvalidTemplate)
	}
	items := distinctItems(p.Items)
	fingerprint := GenerateMealFingerprint(items)
	if fingerprint == "" {
		return nil, fmt.Errorf("%w: pattern has no items", ErrInvalidTemplate)
	}

	existing, err := d.templates.ListTemplates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	for _, t := range existing {
		if templateFingerprint(t) == fingerprint {
			return nil, fmt.Errorf("%w: pattern already saved as %q", ErrInvalidTemplate, t.TemplateName)
		}
	}

	templateItems := make([]models.TemplateItem, len(items))
	for i, item := range items {
		templateItems[i] = models.TemplateItem{
			ProductID:       item.ProductID,
			Name:            item.Name,
			EventType:       item.EventType,
			DefaultQuantity: item.Quantity,
			Unit:            item.Unit,
		}
	}

	template := &models.MealTemplate{
		UserID:           userID,
		TemplateName:     name,
		TemplateKey:      textkey.NormalizeKey(name),
		Fingerprint:      fingerprint,
		Items:            datatypes.NewJSONType(templateItems),
		TypicalTimeRange: fmt.Sprintf("%02d:00-%02d:59", p.TypicalHour, p.TypicalHour),
		AutoGenerated:    true,
	}
	if err := d.templates.CreateTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}
	return template, nil
}

// templateFingerprint prefers the stored fingerprint and derives one from
// the items for rows saved without it.
func templateFingerprint(t models.MealTemplate) string {
	if t.Fingerprint != "" {
		return t.Fingerprint
	}
	stored := t.Items.Data()
	items := make([]Item, len(stored))
	for i, it := range stored {
		items[i] = Item{ProductID: it.ProductID, Name: it.Name}
	}
	return GenerateMealFingerprint(items)
}

func meanHour(hours []int) int {
	if len(hours) == 0 {
		return 0
	}
	sum := 0
	for _, h := range hours {
		sum += h
	}
	return int(math.Round(float64(sum) / float64(len(hours))))
}
