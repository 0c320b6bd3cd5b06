// Package nutrients scales a catalog serving profile to the amount consumed.
package nutrients

import (
	"github.com/shopspring/decimal"
	"github.com/voicelog/product-identity/models"
)

// Amount is a consumed nutrient quantity.
type Amount struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// CalculateConsumed scales every numeric micronutrient of product by
// amountConsumed / serving_quantity, rounded half-up to one decimal.
// A product without micros or without a positive serving quantity yields
// an empty map.
func CalculateConsumed(product *models.CatalogProduct, amountConsumed float64) map[string]Amount {
	out := map[string]Amount{}
	if product == nil || product.ServingQuantity <= 0 {
		return out
	}
	micros := product.Micros.Data()
	if len(micros) == 0 {
		return out
	}

	consumed := decimal.NewFromFloat(amountConsumed)
	serving := decimal.NewFromFloat(product.ServingQuantity)
	for name, n := range micros {
		if n.Amount == nil {
			continue
		}
		// Multiply before dividing so 144 * 1/3 stays exactly 48.
		scaled := decimal.NewFromFloat(*n.Amount).Mul(consumed).Div(serving).Round(1)
		out[name] = Amount{Amount: scaled.InexactFloat64(), Unit: n.Unit}
	}
	return out
}

// ServingsPerPackage returns how many servings a package holds when the
// package total and the serving share a unit.
func ServingsPerPackage(product *models.CatalogProduct, binding *models.BarcodeBinding) (float64, bool) {
	if product == nil || binding == nil || binding.TotalQuantity == nil {
		return 0, false
	}
	if product.ServingQuantity <= 0 || binding.TotalUnit == "" || binding.TotalUnit != product.ServingUnit {
		return 0, false
	}
	servings := decimal.NewFromFloat(*binding.TotalQuantity).
		Div(decimal.NewFromFloat(product.ServingQuantity)).
		Round(1)
	return servings.InexactFloat64(), true
}
