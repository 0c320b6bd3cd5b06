// Package registry recognises products a user has logged before.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
)

// Match methods reported by CheckFuzzy.
const (
	MethodExact    = "exact"
	MethodPhonetic = "phonetic"
	MethodFuzzy    = "fuzzy"
)

const phoneticConfidence = 0.85

// Store is the registry storage.
type Store interface {
	FindRegistryEntry(ctx context.Context, userID, productKey string) (*models.UserRegistryEntry, error)
	FindRegistryByPhonetic(ctx context.Context, userID, phoneticKey string) ([]models.UserRegistryEntry, error)
	ListRegistryEntries(ctx context.Context, userID string, limit int) ([]models.UserRegistryEntry, error)
	UpsertRegistryEntry(ctx context.Context, entry *models.UserRegistryEntry) error
}

// FuzzyMatch is a registry hit with the confidence of the method that found it.
type FuzzyMatch struct {
	Entry      *models.UserRegistryEntry `json:"entry"`
	Confidence float64                   `json:"confidence"`
	Method     string                    `json:"method"`
}

// RecordInput describes a product the user just logged.
type RecordInput struct {
	Transcription    string
	EventType        string
	ProductName      string
	Brand            string
	ProductCatalogID *string
}

type Matcher struct {
	store  Store
	cache  Cache
	config config.RegistryConfig
	now    func() time.Time
}

// NewMatcher builds a registry matcher. cache may be nil.
func NewMatcher(store Store, cache Cache, cfg config.RegistryConfig) *Matcher {
	return &Matcher{
		store:  store,
		cache:  cache,
		config: cfg,
		now:    time.Now,
	}
}

func (m *Matcher) WithClock(now func() time.Time) *Matcher {
	m.now = now
	return m
}

// Check looks up the normalized transcription in the user's registry.
// It returns nil when there is no entry or the lookup fails.
func (m *Matcher) Check(ctx context.Context, transcription, userID string) (entry *models.UserRegistryEntry) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("registry check panicked", zap.Any("panic", r))
			entry = nil
		}
	}()
	if m.store == nil || strings.TrimSpace(userID) == "" {
		return nil
	}
	key := textkey.NormalizeKey(transcription)
	if key == "" {
		return nil
	}
	return m.lookup(ctx, userID, key)
}

func (m *Matcher) lookup(ctx context.Context, userID, key string) *models.UserRegistryEntry {
	if m.cache != nil {
		cached, err := m.cache.Get(ctx, userID, key)
		if err == nil {
			return cached
		}
		if !errors.Is(err, ErrCacheMiss) {
			common.LogDebug("registry cache read failed", zap.Error(err))
		}
	}

	entry, err := m.store.FindRegistryEntry(ctx, userID, key)
	if err != nil {
		if !errors.Is(err, models.ErrRegistryEntryNotFound) {
			common.LogError("registry lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}
	if entry == nil {
		return nil
	}

	if m.cache != nil {
		common.BestEffort("registry_cache_set", func() error {
			return m.cache.Set(ctx, entry)
		})
	}
	return entry
}

// CheckFuzzy tries an exact lookup, then phonetic equality, then edit
// distance against the user's most logged entries.
func (m *Matcher) CheckFuzzy(ctx context.Context, transcription, userID string) (match *FuzzyMatch) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("registry fuzzy check panicked", zap.Any("panic", r))
			match = nil
		}
	}()
	if m.store == nil || strings.TrimSpace(userID) == "" {
		return nil
	}
	key := textkey.NormalizeKey(transcription)
	if key == "" {
		return nil
	}

	if entry := m.lookup(ctx, userID, key); entry != nil {
		return &FuzzyMatch{Entry: entry, Confidence: 1, Method: MethodExact}
	}

	if phonetic := PhoneticKey(key); phonetic != "" {
		candidates, err := m.store.FindRegistryByPhonetic(ctx, userID, phonetic)
		if err != nil {
			common.LogError("registry phonetic lookup failed", zap.String("user_id", userID), zap.Error(err))
		} else if best := closest(key, candidates); best != nil {
			return &FuzzyMatch{Entry: best, Confidence: phoneticConfidence, Method: MethodPhonetic}
		}
	}

	entries, err := m.store.ListRegistryEntries(ctx, userID, m.config.FuzzyCandidates)
	if err != nil {
		common.LogError("registry candidate listing failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}

	var (
		best      *models.UserRegistryEntry
		bestScore float64
	)
	for i := range entries {
		score := similarity(key, entries[i].ProductKey)
		if score > bestScore {
			best, bestScore = &entries[i], score
		}
	}
	if best == nil || bestScore < m.config.FuzzyThreshold {
		return nil
	}
	return &FuzzyMatch{Entry: best, Confidence: bestScore, Method: MethodFuzzy}
}

// closest picks the candidate whose key is nearest to key, preferring the
// most logged entry on ties.
func closest(key string, candidates []models.UserRegistryEntry) *models.UserRegistryEntry {
	if len(candidates) == 0 {
		return nil
	}
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b models.UserRegistryEntry) int {
		sa, sb := similarity(key, a.ProductKey), similarity(key, b.ProductKey)
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return int(b.TimesLogged - a.TimesLogged)
	})
	return &sorted[0]
}

// Record learns that the user logged a product under the given
// transcription. Repeated records increment times_logged.
func (m *Matcher) Record(ctx context.Context, userID string, in RecordInput) (*models.UserRegistryEntry, error) {
	if err := common.RequireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.ProductName) == "" {
		return nil, common.InvalidInput("product name is required")
	}
	if !slices.Contains(models.ConsumableEventTypes, in.EventType) {
		return nil, common.InvalidInput("unsupported event type %q", in.EventType)
	}

	key := textkey.NormalizeKey(in.Transcription)
	if key == "" {
		key = textkey.ProductKey(in.Brand, in.ProductName)
	}

	entry := &models.UserRegistryEntry{
		UserID:           userID,
		ProductKey:       key,
		PhoneticKey:      PhoneticKey(key),
		EventType:        in.EventType,
		ProductName:      strings.TrimSpace(in.ProductName),
		Brand:            strings.TrimSpace(in.Brand),
		ProductCatalogID: in.ProductCatalogID,
		TimesLogged:      1,
		LastLoggedAt:     m.now(),
	}
	if err := m.store.UpsertRegistryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record registry entry: %w", err)
	}

	if m.cache != nil {
		common.BestEffort("registry_cache_delete", func() error {
			return m.cache.Delete(ctx, userID, key)
		})
	}
	return entry, nil
}
