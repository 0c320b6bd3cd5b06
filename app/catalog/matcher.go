package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/voicelog/product-identity/app/barcode"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
)

// Match methods.
const (
	MatchMethodBarcode    = "barcode"
	MatchMethodTextSearch = "text_search"
)

// Columns the text search looks at.
var searchFields = []string{"product_name", "brand", "product_key"}

// ErrBarcodeAlreadyBound is returned when linking a barcode that belongs to
// another product and has not been flagged for reverification.
var ErrBarcodeAlreadyBound = errors.New("barcode already bound to another product")

// Store is the storage the catalog matcher depends on.
type Store interface {
	barcode.BindingStore
	TouchBarcode(ctx context.Context, barcode string, at time.Time) error
	SaveBarcodeBinding(ctx context.Context, binding *models.BarcodeBinding) error
	SearchCatalog(ctx context.Context, filter models.Filter) ([]models.CatalogProduct, error)
	GetProductByID(ctx context.Context, id string) (*models.CatalogProduct, error)
	IncrementUsage(ctx context.Context, productID string) error
	SetUsage(ctx context.Context, productID string, timesLogged int64) error
}

// Query is a loosely specified product mention.
type Query struct {
	Barcode     string `json:"barcode"`
	ProductName string `json:"product_name"`
	Brand       string `json:"brand"`
}

// Match is a resolved catalog product.
type Match struct {
	Product      *models.CatalogProduct `json:"product"`
	MatchMethod  string                 `json:"match_method"`
	MatchedTerms int                    `json:"matched_terms,omitempty"`
	Barcode      *models.BarcodeBinding `json:"barcode,omitempty"`
	Conflict     *barcode.Conflict      `json:"conflict,omitempty"`
}

// NeedsReverification reports whether the caller must surface a barcode conflict.
func (m *Match) NeedsReverification() bool {
	return m != nil && m.Conflict != nil && m.Conflict.Conflict
}

// PackageInfo describes the package a barcode is printed on.
type PackageInfo struct {
	TotalQuantity *float64 `json:"total_quantity,omitempty"`
	TotalUnit     string   `json:"total_unit,omitempty"`
	ContainerType string   `json:"container_type,omitempty"`
}

type Matcher struct {
	store       Store
	conflicts   *barcode.ConflictDetector
	searchLimit int
	now         func() time.Time
}

func NewMatcher(store Store, cfg *config.Config) *Matcher {
	return &Matcher{
		store:       store,
		conflicts:   barcode.NewConflictDetector(store, cfg.Barcode),
		searchLimit: cfg.Catalog.SearchLimit,
		now:         time.Now,
	}
}

// WithClock overrides the time source of the matcher and its conflict detector.
func (m *Matcher) WithClock(now func() time.Time) *Matcher {
	m.now = now
	m.conflicts.WithClock(now)
	return m
}

// Conflicts exposes the detector so handlers can run standalone checks.
func (m *Matcher) Conflicts() *barcode.ConflictDetector {
	return m.conflicts
}

// FindCatalogMatch resolves q by exact barcode first and multi-term text
// search second. It returns nil when nothing matches; storage failures are
// logged and also yield nil.
func (m *Matcher) FindCatalogMatch(ctx context.Context, q Query) (match *Match) {
	defer func() {
		if r := recover(); r != nil {
			common.LogError("catalog match panicked", zap.Any("panic", r))
			match = nil
		}
	}()
	if m.store == nil {
		return nil
	}

	if q.Barcode != "" {
		if v := barcode.Validate(q.Barcode); v.Valid {
			if hit := m.matchBarcode(ctx, v.Normalized, q); hit != nil {
				return hit
			}
		}
	}
	return m.matchText(ctx, q)
}

func (m *Matcher) matchBarcode(ctx context.Context, code string, q Query) *Match {
	binding, err := m.store.FindBarcodeBinding(ctx, code)
	if err != nil {
		if !errors.Is(err, models.ErrBindingNotFound) {
			common.LogError("barcode lookup failed", zap.String("barcode", code), zap.Error(err))
		}
		return nil
	}
	if binding == nil || binding.Product == nil {
		return nil
	}

	// Evaluate before the refresh so staleness sees the previous scan time.
	conflict := m.conflicts.Evaluate(ctx, binding, q.ProductName, q.Brand)

	scannedAt := m.now()
	common.BestEffort("touch_barcode", func() error {
		return m.store.TouchBarcode(ctx, code, scannedAt)
	})
	binding.LastScannedAt = scannedAt
	m.recordUsage(ctx, binding.Product)

	match := &Match{
		Product:     binding.Product,
		MatchMethod: MatchMethodBarcode,
		Barcode:     binding,
	}
	if conflict.Conflict {
		match.Conflict = &conflict
	}
	return match
}

type scoredProduct struct {
	product models.CatalogProduct
	score   int
}

func (m *Matcher) matchText(ctx context.Context, q Query) *Match {
	search := strings.TrimSpace(q.ProductName)
	if brand := strings.TrimSpace(q.Brand); brand != "" {
		search = strings.TrimSpace(brand + " " + search)
	}
	if search == "" {
		return nil
	}
	terms := textkey.Terms(search)

	candidates, err := m.store.SearchCatalog(ctx, models.Filter{
		AnyOf: models.ContainsAnyTerm(terms, searchFields...),
		Rank:  &models.TermRank{Terms: terms, Fields: searchFields},
		Order: []models.Order{{Field: "times_logged", Desc: true}},
		Limit: m.searchLimit,
	})
	if err != nil {
		common.LogError("catalog search failed", zap.String("search", search), zap.Error(err))
		return nil
	}

	scored := make([]scoredProduct, 0, len(candidates))
	for _, c := range candidates {
		if s := scoreCandidate(c, terms); s > 0 {
			scored = append(scored, scoredProduct{product: c, score: s})
		}
	}
	if len(scored) == 0 {
		return nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].product.TimesLogged > scored[j].product.TimesLogged
	})

	best := scored[0].product
	m.recordUsage(ctx, &best)
	return &Match{
		Product:      &best,
		MatchMethod:  MatchMethodTextSearch,
		MatchedTerms: scored[0].score,
	}
}

// scoreCandidate counts the distinct terms found in the candidate's name,
// brand and key.
func scoreCandidate(p models.CatalogProduct, terms []string) int {
	haystack := strings.ToLower(p.ProductName + " " + p.Brand + " " + p.ProductKey)
	score := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			score++
		}
	}
	return score
}

// recordUsage bumps times_logged. When the atomic update is unavailable it
// falls back to writing the value read with the product, which may lose
// concurrent increments.
func (m *Matcher) recordUsage(ctx context.Context, product *models.CatalogProduct) {
	common.BestEffort("increment_usage", func() error {
		if err := m.store.IncrementUsage(ctx, product.ID); err != nil {
			common.LogDebug("atomic usage increment failed, using manual increment",
				zap.String("product_id", product.ID), zap.Error(err))
			return m.store.SetUsage(ctx, product.ID, product.TimesLogged+1)
		}
		return nil
	})
}

// LinkBarcode binds a scanned barcode to a catalog product. A barcode bound
// to another product can only be re-linked once it is flagged for reverification.
func (m *Matcher) LinkBarcode(ctx context.Context, raw, productID string, pkg PackageInfo) (*models.BarcodeBinding, error) {
	v := barcode.Validate(raw)
	if !v.Valid {
		return nil, common.InvalidInput("barcode rejected (%s): %s", v.Reason, v.Message)
	}
	if strings.TrimSpace(productID) == "" {
		return nil, common.InvalidInput("product id is required")
	}

	product, err := m.store.GetProductByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}

	existing, err := m.store.FindBarcodeBinding(ctx, v.Normalized)
	switch {
	case err == nil:
		if existing.ProductID != productID && !existing.NeedsReverification {
			return nil, ErrBarcodeAlreadyBound
		}
	case errors.Is(err, models.ErrBindingNotFound):
	default:
		return nil, fmt.Errorf("load barcode binding %s: %w", v.Normalized, err)
	}

	binding := &models.BarcodeBinding{
		Barcode:       v.Normalized,
		ProductID:     productID,
		TotalQuantity: pkg.TotalQuantity,
		TotalUnit:     pkg.TotalUnit,
		ContainerType: pkg.ContainerType,
		LastScannedAt: m.now(),
	}
	if err := m.store.SaveBarcodeBinding(ctx, binding); err != nil {
		return nil, fmt.Errorf("save barcode binding %s: %w", v.Normalized, err)
	}
	binding.Product = product
	return binding, nil
}
