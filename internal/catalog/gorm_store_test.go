package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dropsync/internal/logger"
	"dropsync/internal/models"
)

// The production schema is postgres; tests run the same store against
// a throwaway sqlite file with an equivalent shape.
func setupCatalogDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "catalog.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	err = db.Exec(`
		CREATE TABLE products (
			id TEXT PRIMARY KEY,
			supplier_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			merchant_id TEXT,
			sku TEXT,
			title TEXT NOT NULL,
			description TEXT,
			category TEXT,
			category_id TEXT,
			tags TEXT,
			images TEXT,
			variants TEXT,
			supplier_sku TEXT,
			supplier_price REAL,
			price REAL,
			currency TEXT DEFAULT 'USD',
			inventory_quantity INTEGER DEFAULT 0,
			available BOOLEAN DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (supplier_id, external_id)
		)
	`).Error
	require.NoError(t, err)
	return db
}

func newCatalogStore(t *testing.T) *GormStore {
	t.Helper()
	return NewGormStore(setupCatalogDB(t), logger.New("error"))
}

func sofaRow(supplierID, externalID string) models.Product {
	return models.Product{
		SupplierID:  supplierID,
		ExternalID:  externalID,
		SKU:         externalID,
		Title:       "Modern L-Shaped Sofa",
		SupplierSKU: externalID,
		Variants: []models.ProductVariant{
			{ID: externalID, SKU: externalID, Title: "Modern L-Shaped Sofa", Price: 16.0, InventoryQuantity: 4},
		},
		SupplierPrice:     10.0,
		Price:             16.0,
		InventoryQuantity: 4,
		Available:         true,
	}
}

func TestGormStore_CreateAndLookup(t *testing.T) {
	store := newCatalogStore(t)
	supplierID := uuid.New().String()

	desc := "Corner sofa in grey linen"
	product := sofaRow(supplierID, "SKU-1")
	product.Description = &desc
	product.Tags = []string{"sofa", "living room"}
	product.Variants[0].Options = map[string]string{"Color": "Grey"}

	require.NoError(t, store.Create(context.Background(), &product))
	assert.NotEmpty(t, product.ID) // id assigned before insert

	rows, err := store.GetBySupplierProductID(context.Background(), supplierID, "SKU-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, product.ID, row.ID)
	assert.Equal(t, "Modern L-Shaped Sofa", row.Title)
	require.NotNil(t, row.Description)
	assert.Equal(t, desc, *row.Description)
	assert.Equal(t, []string{"sofa", "living room"}, row.Tags)
	require.Len(t, row.Variants, 1)
	assert.Equal(t, "Grey", row.Variants[0].Options["Color"])
	assert.Equal(t, 16.0, row.Price)
	assert.True(t, row.Available)

	miss, err := store.GetBySupplierProductID(context.Background(), supplierID, "SKU-404")
	require.NoError(t, err)
	assert.Empty(t, miss)
}

func TestGormStore_Update(t *testing.T) {
	store := newCatalogStore(t)
	supplierID := uuid.New().String()

	product := sofaRow(supplierID, "SKU-1")
	require.NoError(t, store.Create(context.Background(), &product))

	err := store.Update(context.Background(), product.ID, map[string]interface{}{
		"price":     19.2,
		"category":  "Sofas",
		"available": false,
		"variants": []models.ProductVariant{
			{ID: "SKU-1", SKU: "SKU-1", Title: "Modern L-Shaped Sofa", Price: 12.0},
		},
	})
	require.NoError(t, err)

	rows, err := store.GetBySupplierProductID(context.Background(), supplierID, "SKU-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 19.2, row.Price)
	require.NotNil(t, row.Category)
	assert.Equal(t, "Sofas", *row.Category)
	assert.False(t, row.Available)
	require.Len(t, row.Variants, 1)
	assert.Equal(t, 12.0, row.Variants[0].Price)
}

func TestGormStore_BatchCreate(t *testing.T) {
	store := newCatalogStore(t)
	supplierID := uuid.New().String()

	result := store.BatchCreate(context.Background(), []models.Product{
		sofaRow(supplierID, "SKU-1"),
		sofaRow(supplierID, "SKU-2"),
		sofaRow(supplierID, "SKU-3"),
	})

	assert.Equal(t, 3, result.Created)
	assert.Zero(t, result.Failed)

	all, err := store.ListBySupplier(context.Background(), supplierID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// One duplicate must not sink the rest of the batch.
func TestGormStore_BatchCreate_FallbackIsolatesDuplicate(t *testing.T) {
	store := newCatalogStore(t)
	supplierID := uuid.New().String()

	seeded := sofaRow(supplierID, "SKU-1")
	require.NoError(t, store.Create(context.Background(), &seeded))

	result := store.BatchCreate(context.Background(), []models.Product{
		sofaRow(supplierID, "SKU-1"), // violates UNIQUE (supplier_id, external_id)
		sofaRow(supplierID, "SKU-2"),
	})

	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)

	all, err := store.ListBySupplier(context.Background(), supplierID)
	require.NoError(t, err)
	assert.Len(t, all, 2) // the seeded row plus SKU-2
}

func TestGormStore_ListBySupplier(t *testing.T) {
	store := newCatalogStore(t)
	mine := uuid.New().String()
	other := uuid.New().String()

	for _, p := range []models.Product{
		sofaRow(mine, "SKU-1"),
		sofaRow(mine, "SKU-2"),
		sofaRow(other, "SKU-1"),
	} {
		require.NoError(t, store.Create(context.Background(), &p))
	}

	rows, err := store.ListBySupplier(context.Background(), mine)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	count, err := store.CountBySupplier(context.Background(), mine)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}