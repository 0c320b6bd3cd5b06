package nutrients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/voicelog/product-identity/models"
	"gorm.io/datatypes"
)

func ptr(v float64) *float64 { return &v }

func newTestProduct(servingQuantity float64, micros models.Micros) *models.CatalogProduct {
	return &models.CatalogProduct{
		ProductName:     "Magtein",
		ServingQuantity: servingQuantity,
		ServingUnit:     "capsule",
		Micros:          datatypes.NewJSONType(micros),
	}
}

func TestCalculateConsumed(t *testing.T) {
	magnesium := models.Micros{"magnesium": {Amount: ptr(144), Unit: "mg"}}

	testCases := []struct {
		name     string
		product  *models.CatalogProduct
		amount   float64
		expected map[string]Amount
	}{
		{
			name:     "One of three capsules",
			product:  newTestProduct(3, magnesium),
			amount:   1,
			expected: map[string]Amount{"magnesium": {Amount: 48, Unit: "mg"}},
		},
		{
			name:     "Zero consumed keeps keys",
			product:  newTestProduct(3, magnesium),
			amount:   0,
			expected: map[string]Amount{"magnesium": {Amount: 0, Unit: "mg"}},
		},
		{
			name:     "Rounds half up to one decimal",
			product:  newTestProduct(2, models.Micros{"zinc": {Amount: ptr(0.25), Unit: "mg"}}),
			amount:   1,
			expected: map[string]Amount{"zinc": {Amount: 0.1, Unit: "mg"}},
		},
		{
			name:     "Half step rounds up",
			product:  newTestProduct(4, models.Micros{"iron": {Amount: ptr(1), Unit: "mg"}}),
			amount:   1,
			expected: map[string]Amount{"iron": {Amount: 0.3, Unit: "mg"}},
		},
		{
			name:    "Skips entries without numeric amount",
			product: newTestProduct(1, models.Micros{"vitamin_c": {Amount: ptr(90), Unit: "mg"}, "notes": {Unit: "text"}}),
			amount:  2,
			expected: map[string]Amount{
				"vitamin_c": {Amount: 180, Unit: "mg"},
			},
		},
		{
			name:     "Missing micros",
			product:  &models.CatalogProduct{ServingQuantity: 3},
			amount:   1,
			expected: map[string]Amount{},
		},
		{
			name:     "Zero serving quantity",
			product:  newTestProduct(0, magnesium),
			amount:   1,
			expected: map[string]Amount{},
		},
		{
			name:     "Negative serving quantity",
			product:  newTestProduct(-1, magnesium),
			amount:   1,
			expected: map[string]Amount{},
		},
		{
			name:     "Nil product",
			product:  nil,
			amount:   1,
			expected: map[string]Amount{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateConsumed(tc.product, tc.amount)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCalculateConsumedMagnesiumTolerance(t *testing.T) {
	product := newTestProduct(3, models.Micros{"magnesium": {Amount: ptr(144), Unit: "mg"}})

	got := CalculateConsumed(product, 1)

	assert.InDelta(t, 48, got["magnesium"].Amount, 0.1)
	assert.Equal(t, "mg", got["magnesium"].Unit)
}

func TestServingsPerPackage(t *testing.T) {
	product := newTestProduct(3, nil)

	servings, ok := ServingsPerPackage(product, &models.BarcodeBinding{TotalQuantity: ptr(90), TotalUnit: "capsule"})
	assert.True(t, ok)
	assert.Equal(t, 30.0, servings)

	_, ok = ServingsPerPackage(product, &models.BarcodeBinding{TotalQuantity: ptr(500), TotalUnit: "g"})
	assert.False(t, ok)

	_, ok = ServingsPerPackage(product, &models.BarcodeBinding{TotalUnit: "capsule"})
	assert.False(t, ok)
}
