package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/voicelog/product-identity/app/barcode"
	"github.com/voicelog/product-identity/app/common"
	"github.com/voicelog/product-identity/app/nutrients"
	"github.com/voicelog/product-identity/models"
)

type Response struct {
	Product             Product                     `json:"product"`
	MatchMethod         string                      `json:"match_method"`
	NeedsReverification bool                        `json:"needs_reverification"`
	Conflict            *barcode.Conflict           `json:"conflict,omitempty"`
	Nutrients           map[string]nutrients.Amount `json:"nutrients,omitempty"`
	ServingsPerPackage  *float64                    `json:"servings_per_package,omitempty"`
}

type Product struct {
	ID              string  `json:"id"`
	ProductName     string  `json:"product_name"`
	Brand           string  `json:"brand"`
	ProductType     string  `json:"product_type"`
	ServingQuantity float64 `json:"serving_quantity"`
	ServingUnit     string  `json:"serving_unit"`
	TimesLogged     int64   `json:"times_logged"`
}

type MatchProvider interface {
	FindCatalogMatch(ctx context.Context, q Query) *Match
	LinkBarcode(ctx context.Context, raw, productID string, pkg PackageInfo) (*models.BarcodeBinding, error)
}

type ConflictChecker interface {
	Check(ctx context.Context, code, detectedName, detectedBrand string) barcode.Conflict
}

type CatalogHandler struct {
	matcher   MatchProvider
	conflicts ConflictChecker
}

func NewCatalogHandler(m MatchProvider, c ConflictChecker) *CatalogHandler {
	return &CatalogHandler{
		matcher:   m,
		conflicts: c,
	}
}

// HandleMatch resolves a detected product. When "amount_consumed" is given
// the response carries the scaled nutrients.
func (h *CatalogHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Query
		AmountConsumed *float64 `json:"amount_consumed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	match := h.matcher.FindCatalogMatch(r.Context(), input.Query)
	if match == nil || match.Product == nil {
		common.WriteError(w, http.StatusNotFound, "Product not found")
		return
	}

	p := match.Product
	response := Response{
		Product: Product{
			ID:              p.ID,
			ProductName:     p.ProductName,
			Brand:           p.Brand,
			ProductType:     p.ProductType,
			ServingQuantity: p.ServingQuantity,
			ServingUnit:     p.ServingUnit,
			TimesLogged:     p.TimesLogged,
		},
		MatchMethod:         match.MatchMethod,
		NeedsReverification: match.NeedsReverification(),
		Conflict:            match.Conflict,
	}
	if servings, ok := nutrients.ServingsPerPackage(p, match.Barcode); ok {
		response.ServingsPerPackage = &servings
	}
	if input.AmountConsumed != nil {
		response.Nutrients = nutrients.CalculateConsumed(p, *input.AmountConsumed)
	}

	common.WriteJSON(w, http.StatusOK, response)
}

func (h *CatalogHandler) HandleValidateBarcode(w http.ResponseWriter, r *http.Request) {
	common.WriteJSON(w, http.StatusOK, barcode.Validate(r.PathValue("code")))
}

func (h *CatalogHandler) HandleConflict(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	name := r.URL.Query().Get("name")
	brand := r.URL.Query().Get("brand")

	common.WriteJSON(w, http.StatusOK, h.conflicts.Check(r.Context(), code, name, brand))
}

func (h *CatalogHandler) HandleLinkBarcode(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProductID string `json:"product_id"`
		PackageInfo
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		common.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	binding, err := h.matcher.LinkBarcode(r.Context(), r.PathValue("code"), input.ProductID, input.PackageInfo)
	switch {
	case err == nil:
		common.WriteJSON(w, http.StatusCreated, binding)
	case errors.Is(err, common.ErrInvalidInput):
		common.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrProductNotFound):
		common.WriteError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, ErrBarcodeAlreadyBound):
		common.WriteError(w, http.StatusConflict, err.Error())
	default:
		common.WriteError(w, http.StatusInternalServerError, "Failed to link barcode")
	}
}
