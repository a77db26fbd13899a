package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropsync/internal/catalog"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/notify"
	"dropsync/internal/suppliers"
)

type fakeCatalog struct {
	rows    []models.Product
	updates map[string]map[string]interface{}
	failIDs map[string]bool
}

func (f *fakeCatalog) GetBySupplierProductID(ctx context.Context, supplierID string, externalID string) ([]models.Product, error) {
	return nil, nil
}

func (f *fakeCatalog) Create(ctx context.Context, product *models.Product) error { return nil }

func (f *fakeCatalog) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	if f.failIDs[id] {
		return errors.New("update rejected")
	}
	if f.updates == nil {
		f.updates = make(map[string]map[string]interface{})
	}
	f.updates[id] = updates
	return nil
}

func (f *fakeCatalog) BatchCreate(ctx context.Context, products []models.Product) *catalog.BatchResult {
	return &catalog.BatchResult{}
}

func (f *fakeCatalog) ListBySupplier(ctx context.Context, supplierID string) ([]models.Product, error) {
	return f.rows, nil
}

type fakeFetcher struct {
	levels []suppliers.NormalizedInventory
	err    error
	ids    []string
}

func (f *fakeFetcher) FetchInventory(ctx context.Context, ids []string) ([]suppliers.NormalizedInventory, error) {
	f.ids = ids
	return f.levels, f.err
}

type lowStockCall struct {
	productID string
	quantity  int
	threshold int
}

type fakeNotifier struct {
	notify.NopNotifier
	lowStock []lowStockCall
}

func (f *fakeNotifier) LowStock(ctx context.Context, product *models.Product, supplier *models.Supplier, threshold int) {
	f.lowStock = append(f.lowStock, lowStockCall{
		productID: product.ID,
		quantity:  product.InventoryQuantity,
		threshold: threshold,
	})
}

type fakeMerchants struct {
	merchants map[string]*models.Merchant
}

func (f *fakeMerchants) Get(ctx context.Context, id string) (*models.Merchant, error) {
	return f.merchants[id], nil
}

func stockedRow(supplierID, externalID string, quantity int) models.Product {
	return models.Product{
		ID:                uuid.New().String(),
		SupplierID:        supplierID,
		ExternalID:        externalID,
		Title:             "Walnut Desk",
		InventoryQuantity: quantity,
		Available:         quantity > 0,
	}
}

func testSupplier() *models.Supplier {
	return &models.Supplier{ID: uuid.New().String(), Name: "Acme Wholesale", Type: models.SupplierTypeCustom}
}

func TestReconcile_UpdatesOnlyChangedRows(t *testing.T) {
	supplier := testSupplier()
	unchanged := stockedRow(supplier.ID, "SKU-1", 10)
	changed := stockedRow(supplier.ID, "SKU-2", 10)
	store := &fakeCatalog{rows: []models.Product{unchanged, changed}}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1", Quantity: 10, Available: true},
		{SupplierProductID: "SKU-2", VariantID: "SKU-2", Quantity: 7, Available: true},
	}}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, nil, notifier, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Equal(t, []string{"SKU-1", "SKU-2"}, fetcher.ids)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Zero(t, result.Notified)
	require.Len(t, store.updates, 1)
	assert.Equal(t, 7, store.updates[changed.ID]["inventory_quantity"])
	assert.Equal(t, true, store.updates[changed.ID]["available"])
}

func TestReconcile_DropBelowThresholdNotifies(t *testing.T) {
	supplier := testSupplier()
	row := stockedRow(supplier.ID, "SKU-1", 10)
	store := &fakeCatalog{rows: []models.Product{row}}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1", Quantity: 3, Available: true},
	}}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, nil, notifier, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Notified)
	require.Len(t, notifier.lowStock, 1)
	assert.Equal(t, row.ID, notifier.lowStock[0].productID)
	assert.Equal(t, 3, notifier.lowStock[0].quantity) // event carries the fresh count
	assert.Equal(t, 5, notifier.lowStock[0].threshold)
}

func TestReconcile_RiseBelowThresholdDoesNotNotify(t *testing.T) {
	supplier := testSupplier()
	row := stockedRow(supplier.ID, "SKU-1", 1)
	store := &fakeCatalog{rows: []models.Product{row}}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1", Quantity: 4, Available: true},
	}}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, nil, notifier, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated) // restock still lands in the catalog
	assert.Empty(t, notifier.lowStock)
}

func TestReconcile_MerchantThresholdOverride(t *testing.T) {
	supplier := testSupplier()
	merchantID := uuid.New().String()
	strict := 2
	merchants := &fakeMerchants{merchants: map[string]*models.Merchant{
		merchantID: {ID: merchantID, Name: "Picky Store", LowStockThreshold: &strict},
	}}

	row := stockedRow(supplier.ID, "SKU-1", 10)
	row.MerchantID = &merchantID
	store := &fakeCatalog{rows: []models.Product{row}}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1", Quantity: 3, Available: true},
	}}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, merchants, notifier, 5, logger.New("error"))

	// 3 is below the global 5 but above the merchant's own 2.
	_, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)
	require.NoError(t, err)
	assert.Empty(t, notifier.lowStock)

	// A further drop to 2 crosses the merchant threshold.
	store.rows[0].InventoryQuantity = 3
	fetcher.levels[0].Quantity = 2
	_, err = r.ReconcileSupplier(context.Background(), supplier, fetcher)
	require.NoError(t, err)
	require.Len(t, notifier.lowStock, 1)
	assert.Equal(t, 2, notifier.lowStock[0].threshold)
}

func TestReconcile_VariantQuantitiesSummed(t *testing.T) {
	supplier := testSupplier()
	row := stockedRow(supplier.ID, "SKU-1", 10)
	store := &fakeCatalog{rows: []models.Product{row}}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1-A", Quantity: 3, Available: true},
		{SupplierProductID: "SKU-1", VariantID: "SKU-1-B", Quantity: 2, Available: true},
	}}
	r := NewReconciler(store, nil, &fakeNotifier{}, 5, logger.New("error"))

	_, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Equal(t, 5, store.updates[row.ID]["inventory_quantity"])
}

func TestReconcile_UnreportedRowLeftUntouched(t *testing.T) {
	supplier := testSupplier()
	row := stockedRow(supplier.ID, "SKU-1", 10)
	store := &fakeCatalog{rows: []models.Product{row}}
	fetcher := &fakeFetcher{} // supplier returns nothing
	r := NewReconciler(store, nil, &fakeNotifier{}, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Zero(t, result.Checked)
	assert.Empty(t, store.updates)
}

func TestReconcile_FetchErrorPropagates(t *testing.T) {
	supplier := testSupplier()
	store := &fakeCatalog{rows: []models.Product{stockedRow(supplier.ID, "SKU-1", 10)}}
	fetcher := &fakeFetcher{err: errors.New("supplier down")}
	r := NewReconciler(store, nil, &fakeNotifier{}, 5, logger.New("error"))

	_, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Acme Wholesale")
	assert.Empty(t, store.updates)
}

func TestReconcile_UpdateErrorSkipsNotification(t *testing.T) {
	supplier := testSupplier()
	failing := stockedRow(supplier.ID, "SKU-1", 10)
	healthy := stockedRow(supplier.ID, "SKU-2", 10)
	store := &fakeCatalog{
		rows:    []models.Product{failing, healthy},
		failIDs: map[string]bool{failing.ID: true},
	}
	fetcher := &fakeFetcher{levels: []suppliers.NormalizedInventory{
		{SupplierProductID: "SKU-1", VariantID: "SKU-1", Quantity: 1, Available: true},
		{SupplierProductID: "SKU-2", VariantID: "SKU-2", Quantity: 2, Available: true},
	}}
	notifier := &fakeNotifier{}
	r := NewReconciler(store, nil, notifier, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err) // row failure never fails the pass
	assert.Equal(t, 1, result.Updated)
	require.Len(t, notifier.lowStock, 1)
	assert.Equal(t, healthy.ID, notifier.lowStock[0].productID)
}

func TestReconcile_EmptyCatalogSkipsFetch(t *testing.T) {
	supplier := testSupplier()
	store := &fakeCatalog{}
	fetcher := &fakeFetcher{}
	r := NewReconciler(store, nil, &fakeNotifier{}, 5, logger.New("error"))

	result, err := r.ReconcileSupplier(context.Background(), supplier, fetcher)

	require.NoError(t, err)
	assert.Zero(t, result.Checked)
	assert.Nil(t, fetcher.ids)
}
