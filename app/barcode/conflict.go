package barcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/config"
	"github.com/voicelog/product-identity/models"
	"go.uber.org/zap"
)

// Conflict reasons.
const (
	ReasonPreviouslyFlagged = "previously_flagged"
	ReasonStaleWithMismatch = "stale_with_mismatch"
)

// BindingStore is the storage the conflict detector needs.
type BindingStore interface {
	FindBarcodeBinding(ctx context.Context, barcode string) (*models.BarcodeBinding, error)
	FlagReverification(ctx context.Context, barcode string) error
}

// DetectedProduct is the identity the extraction layer reported for a scan.
type DetectedProduct struct {
	ProductName string `json:"product_name"`
	Brand       string `json:"brand,omitempty"`
}

// Conflict is the verdict on whether a barcode binding may have been
// reassigned to a different physical product.
type Conflict struct {
	Conflict        bool                   `json:"conflict"`
	Reason          string                 `json:"reason,omitempty"`
	Suggestion      string                 `json:"suggestion,omitempty"`
	ExistingProduct *models.CatalogProduct `json:"existing_product,omitempty"`
	DetectedProduct *DetectedProduct       `json:"detected_product,omitempty"`
}

type ConflictDetector struct {
	store  BindingStore
	config config.BarcodeConfig
	now    func() time.Time
}

func NewConflictDetector(store BindingStore, cfg config.BarcodeConfig) *ConflictDetector {
	return &ConflictDetector{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
}

// WithClock overrides the time source.
func (d *ConflictDetector) WithClock(now func() time.Time) *ConflictDetector {
	d.now = now
	return d
}

// Check looks up the binding for code and evaluates it against the newly
// detected name and brand. Every failure degrades to no conflict.
func (d *ConflictDetector) Check(ctx context.Context, code, detectedName, detectedBrand string) Conflict {
	v := Validate(code)
	if !v.Valid || d.store == nil {
		return Conflict{}
	}

	binding, err := d.store.FindBarcodeBinding(ctx, v.Normalized)
	if err != nil {
		if !errors.Is(err, models.ErrBindingNotFound) {
			common.LogError("barcode conflict lookup failed", zap.String("barcode", v.Normalized), zap.Error(err))
		}
		return Conflict{}
	}
	return d.Evaluate(ctx, binding, detectedName, detectedBrand)
}

// Evaluate applies the conflict rules to an already loaded binding. It must
// see the binding's last_scanned_at from before the current scan refreshes it.
func (d *ConflictDetector) Evaluate(ctx context.Context, binding *models.BarcodeBinding, detectedName, detectedBrand string) Conflict {
	if binding == nil {
		return Conflict{}
	}
	existing := binding.Product

	// A raised flag stays raised until an explicit re-link clears it.
	if binding.NeedsReverification {
		return Conflict{
			Conflict:        true,
			Reason:          ReasonPreviouslyFlagged,
			Suggestion:      "This barcode is waiting for a label photo to confirm which product it belongs to.",
			ExistingProduct: existing,
			DetectedProduct: &DetectedProduct{ProductName: detectedName, Brand: detectedBrand},
		}
	}
	if existing == nil {
		return Conflict{}
	}

	months := d.staleMonths(existing.ProductType)
	now := d.now()
	if !now.After(binding.LastScannedAt.AddDate(0, months, 0)) {
		return Conflict{}
	}

	nameSimilar := axisSimilar(detectedName, existing.ProductName)
	brandSimilar := axisSimilar(detectedBrand, existing.Brand)
	if nameSimilar && brandSimilar {
		return Conflict{}
	}

	if d.store != nil {
		common.BestEffort("flag_reverification", func() error {
			return d.store.FlagReverification(ctx, binding.Barcode)
		})
	}
	binding.NeedsReverification = true

	common.LogInfo("stale barcode binding no longer matches scan",
		zap.String("barcode", binding.Barcode),
		zap.String("existing", existing.ProductName),
		zap.String("detected", detectedName),
	)

	return Conflict{
		Conflict:        true,
		Reason:          ReasonStaleWithMismatch,
		Suggestion:      suggestion(existing.ProductType, monthsBetween(binding.LastScannedAt, now)),
		ExistingProduct: existing,
		DetectedProduct: &DetectedProduct{ProductName: detectedName, Brand: detectedBrand},
	}
}

func (d *ConflictDetector) staleMonths(productType string) int {
	if productType == models.ProductTypeFood {
		return d.config.StaleMonthsFood
	}
	return d.config.StaleMonthsOther
}

// axisSimilar treats a missing value on either side as consistent.
func axisSimilar(detected, existing string) bool {
	a := textkey.NormalizeKey(detected)
	b := textkey.NormalizeKey(existing)
	if a == "" || b == "" {
		return true
	}
	return textkey.SimilarEitherWay(a, b)
}

func suggestion(productType string, months int) string {
	if productType == models.ProductTypeFood {
		return fmt.Sprintf("This barcode was last confirmed %d months ago and now looks like a different food. Snap a photo of the label to confirm.", months)
	}
	kind := productType
	if kind == "" {
		kind = "product"
	}
	return fmt.Sprintf("This barcode was last confirmed %d months ago and may now belong to a different %s. Please re-scan or photograph the label.", months, kind)
}

func monthsBetween(from, to time.Time) int {
	months := (to.Year()-from.Year())*12 + int(to.Month()-from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
