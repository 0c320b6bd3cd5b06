package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Product types stored in the shared catalog.
const (
	ProductTypeFood       = "food"
	ProductTypeSupplement = "supplement"
	ProductTypeMedication = "medication"
)

// Nutrient is a single micronutrient amount on a serving profile.
// Amount is nil when the source did not carry a numeric value.
type Nutrient struct {
	Amount *float64 `json:"amount"`
	Unit   string   `json:"unit"`
}

// Micros maps a nutrient name to its amount per serving.
type Micros map[string]Nutrient

// ActiveIngredient is one entry of a supplement or medication label.
type ActiveIngredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

// CatalogProduct represents a product in the shared catalog.
// ProductKey is the normalized brand+name and prevents duplicate rows.
type CatalogProduct struct {
	ID                 string                                 `gorm:"type:uuid;primaryKey" json:"id"`
	ProductName        string                                 `gorm:"not null" json:"product_name"`
	Brand              string                                 `json:"brand"`
	ProductType        string                                 `gorm:"not null;default:food" json:"product_type"`
	ProductKey         string                                 `gorm:"uniqueIndex;not null" json:"product_key"`
	ServingQuantity    float64                                `json:"serving_quantity"`
	ServingUnit        string                                 `json:"serving_unit"`
	ServingWeightGrams *float64                               `json:"serving_weight_grams,omitempty"`
	Micros             datatypes.JSONType[Micros]             `gorm:"type:jsonb" json:"micros"`
	ActiveIngredients  datatypes.JSONType[[]ActiveIngredient] `gorm:"type:jsonb" json:"active_ingredients,omitempty"`
	TimesLogged        int64                                  `gorm:"not null;default:0;index" json:"times_logged"`
	CreatedAt          time.Time                              `json:"created_at"`
	UpdatedAt          time.Time                              `json:"updated_at"`
}

func (p *CatalogProduct) TableName() string {
	return "catalog_products"
}

func (p *CatalogProduct) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BarcodeBinding links a normalized retail barcode to exactly one catalog product.
// Several package sizes may point at the same product.
type BarcodeBinding struct {
	Barcode             string          `gorm:"primaryKey" json:"barcode"`
	ProductID           string          `gorm:"type:uuid;not null;index" json:"product_id"`
	Product             *CatalogProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	TotalQuantity       *float64        `json:"total_quantity,omitempty"`
	TotalUnit           string          `json:"total_unit,omitempty"`
	ContainerType       string          `json:"container_type,omitempty"`
	NeedsReverification bool            `gorm:"not null;default:false" json:"needs_reverification"`
	LastScannedAt       time.Time       `gorm:"not null" json:"last_scanned_at"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (b *BarcodeBinding) TableName() string {
	return "barcode_bindings"
}
