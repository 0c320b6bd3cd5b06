package models

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type CatalogRepository struct {
	db *gorm.DB
}

var (
	// ErrProductNotFound is returned when a catalog product is not found.
	ErrProductNotFound = errors.New("product not found")
	// ErrBindingNotFound is returned when no barcode binding exists.
	ErrBindingNotFound = errors.New("barcode binding not found")
	// ErrDuplicateProduct is returned when a product with the same key already exists.
	ErrDuplicateProduct = errors.New("product already exists")
)

// Catalog columns a Filter may reference.
var catalogFields = map[string]bool{
	"id":           true,
	"product_name": true,
	"brand":        true,
	"product_key":  true,
	"product_type": true,
	"times_logged": true,
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{
		db: db,
	}
}

func (r *CatalogRepository) FindBarcodeBinding(ctx context.Context, barcode string) (*BarcodeBinding, error) {
	var binding BarcodeBinding
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("barcode = ?", barcode).
		First(&binding).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBindingNotFound
		}
		return nil, err
	}
	return &binding, nil
}

func (r *CatalogRepository) TouchBarcode(ctx context.Context, barcode string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&BarcodeBinding{}).
		Where("barcode = ?", barcode).
		UpdateColumn("last_scanned_at", at).Error
}

func (r *CatalogRepository) FlagReverification(ctx context.Context, barcode string) error {
	return r.db.WithContext(ctx).
		Model(&BarcodeBinding{}).
		Where("barcode = ?", barcode).
		UpdateColumn("needs_reverification", true).Error
}

// SaveBarcodeBinding creates the binding or re-links an existing barcode.
// Re-linking clears the reverification flag.
func (r *CatalogRepository) SaveBarcodeBinding(ctx context.Context, binding *BarcodeBinding) error {
	binding.Product = nil
	return r.db.WithContext(ctx).Save(binding).Error
}

func (r *CatalogRepository) SearchCatalog(ctx context.Context, filter Filter) ([]CatalogProduct, error) {
	query, err := filter.apply(r.db.WithContext(ctx).Model(&CatalogProduct{}), catalogFields)
	if err != nil {
		return nil, err
	}
	var products []CatalogProduct
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *CatalogRepository) GetProductByID(ctx context.Context, id string) (*CatalogProduct, error) {
	var product CatalogProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *CatalogRepository) GetProductByKey(ctx context.Context, key string) (*CatalogProduct, error) {
	var product CatalogProduct
	if err := r.db.WithContext(ctx).Where("product_key = ?", key).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *CatalogRepository) CreateProduct(ctx context.Context, product *CatalogProduct) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateProduct
		}
		return err
	}
	return nil
}

// IncrementUsage bumps times_logged in a single UPDATE.
func (r *CatalogRepository) IncrementUsage(ctx context.Context, productID string) error {
	res := r.db.WithContext(ctx).
		Model(&CatalogProduct{}).
		Where("id = ?", productID).
		UpdateColumn("times_logged", gorm.Expr("times_logged + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetUsage writes an explicit counter value. It backs the manual increment
// path used when IncrementUsage is unavailable; concurrent writers may lose updates.
func (r *CatalogRepository) SetUsage(ctx context.Context, productID string, timesLogged int64) error {
	return r.db.WithContext(ctx).
		Model(&CatalogProduct{}).
		Where("id = ?", productID).
		UpdateColumn("times_logged", timesLogged).Error
}
