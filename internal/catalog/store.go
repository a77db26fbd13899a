package catalog

import (
	"context"

	"dropsync/internal/models"
)

// Store is the catalog persistence surface the upsert engine consumes.
// Lookups key on (supplierID, externalID) and may return several rows
// when multiple merchants imported the same supplier product.
type Store interface {
	GetBySupplierProductID(ctx context.Context, supplierID string, externalID string) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	BatchCreate(ctx context.Context, products []models.Product) *BatchResult
	ListBySupplier(ctx context.Context, supplierID string) ([]models.Product, error)
}

// BatchResult reports how a bulk insert went after any per-row
// fallback.
type BatchResult struct {
	Created int
	Failed  int
	Errors  []error
}
