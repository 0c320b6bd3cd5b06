package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/voicelog/product-identity/app/textkey"
	"github.com/voicelog/product-identity/models"
)

// --- Mock Store ---

type MockCatalogStore struct {
	Products []models.CatalogProduct
	Bindings map[string]*models.BarcodeBinding

	FindErr      error
	SearchErr    error
	IncrementErr error
	SetUsageErr  error
	TouchErr     error

	// Fields to capture call arguments
	lastFilter  models.Filter
	searchCalls int
	touched     map[string]time.Time
	incremented []string
	setUsage    map[string]int64
	flagged     []string
	saved       *models.BarcodeBinding
}

func (m *MockCatalogStore) FindBarcodeBinding(ctx context.Context, barcode string) (*models.BarcodeBinding, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	b, ok := m.Bindings[barcode]
	if !ok {
		return nil, models.ErrBindingNotFound
	}
	copied := *b
	return &copied, nil
}

func (m *MockCatalogStore) FlagReverification(ctx context.Context, barcode string) error {
	m.flagged = append(m.flagged, barcode)
	if b, ok := m.Bindings[barcode]; ok {
		b.NeedsReverification = true
	}
	return nil
}

func (m *MockCatalogStore) TouchBarcode(ctx context.Context, barcode string, at time.Time) error {
	if m.TouchErr != nil {
		return m.TouchErr
	}
	if m.touched == nil {
		m.touched = map[string]time.Time{}
	}
	m.touched[barcode] = at
	return nil
}

func (m *MockCatalogStore) SaveBarcodeBinding(ctx context.Context, binding *models.BarcodeBinding) error {
	m.saved = binding
	if m.Bindings == nil {
		m.Bindings = map[string]*models.BarcodeBinding{}
	}
	m.Bindings[binding.Barcode] = binding
	return nil
}

// SearchCatalog simulates the SQL rendering of the filter.
func (m *MockCatalogStore) SearchCatalog(ctx context.Context, filter models.Filter) ([]models.CatalogProduct, error) {
	m.lastFilter = filter
	m.searchCalls++
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	type ranked struct {
		product models.CatalogProduct
		rank    int
	}
	var rows []ranked
	for _, p := range m.Products {
		row := map[string]string{
			"product_name": p.ProductName,
			"brand":        p.Brand,
			"product_key":  p.ProductKey,
		}
		if filter.Matches(row) {
			rows = append(rows, ranked{product: p, rank: filter.Rank.Score(row)})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].rank != rows[j].rank {
			return rows[i].rank > rows[j].rank
		}
		return rows[i].product.TimesLogged > rows[j].product.TimesLogged
	})

	var out []models.CatalogProduct
	for _, r := range rows {
		out = append(out, r.product)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MockCatalogStore) GetProductByID(ctx context.Context, id string) (*models.CatalogProduct, error) {
	for _, p := range m.Products {
		if p.ID == id {
			product := p
			return &product, nil
		}
	}
	return nil, models.ErrProductNotFound
}

func (m *MockCatalogStore) IncrementUsage(ctx context.Context, productID string) error {
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.incremented = append(m.incremented, productID)
	return nil
}

func (m *MockCatalogStore) SetUsage(ctx context.Context, productID string, timesLogged int64) error {
	if m.SetUsageErr != nil {
		return m.SetUsageErr
	}
	if m.setUsage == nil {
		m.setUsage = map[string]int64{}
	}
	m.setUsage[productID] = timesLogged
	return nil
}

// --- Helpers ---

func newTestProduct(id, name, brand, productType string, timesLogged int64) models.CatalogProduct {
	return models.CatalogProduct{
		ID:          id,
		ProductName: name,
		Brand:       brand,
		ProductType: productType,
		ProductKey:  textkey.ProductKey(brand, name),
		TimesLogged: timesLogged,
	}
}
