package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"dropsync/internal/config"
	"dropsync/internal/models"
)

func productRouter(db *gorm.DB) *gin.Engine {
	h := NewProductHandler(db, testLogger(), &config.Config{LowStockThreshold: 5})

	router := gin.New()
	router.GET("/products", h.List)
	router.GET("/products/:id", h.Get)
	router.PUT("/products/:id/category", h.UpdateCategory)
	router.DELETE("/products/:id", h.Delete)
	return router
}

func seedProduct(t *testing.T, db *gorm.DB, supplierID, sku string, quantity int) models.Product {
	t.Helper()

	product := models.Product{
		ID:                uuid.New().String(),
		SupplierID:        supplierID,
		ExternalID:        sku,
		SKU:               sku,
		Title:             "Product " + sku,
		SupplierPrice:     10,
		Price:             16,
		InventoryQuantity: quantity,
		Available:         quantity > 0,
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

type productListResponse struct {
	Data       []models.Product `json:"data"`
	Pagination struct {
		Page  int   `json:"page"`
		Limit int   `json:"limit"`
		Total int64 `json:"total"`
	} `json:"pagination"`
}

func TestProductList_FiltersBySupplier(t *testing.T) {
	db := newTestDB(t)
	supplierA := uuid.New().String()
	supplierB := uuid.New().String()
	seedProduct(t, db, supplierA, "SKU-1", 10)
	seedProduct(t, db, supplierA, "SKU-2", 10)
	seedProduct(t, db, supplierB, "SKU-3", 10)

	router := productRouter(db)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products?supplier_id="+supplierA, nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp productListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 2)
	assert.EqualValues(t, 2, resp.Pagination.Total)
	for _, product := range resp.Data {
		assert.Equal(t, supplierA, product.SupplierID)
	}
}

func TestProductList_LowStockFilter(t *testing.T) {
	db := newTestDB(t)
	supplierID := uuid.New().String()
	low := seedProduct(t, db, supplierID, "SKU-LOW", 3)
	seedProduct(t, db, supplierID, "SKU-OK", 50)

	router := productRouter(db)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products?low_stock=true", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp productListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, low.ID, resp.Data[0].ID)
}

func TestProductGet_NotFound(t *testing.T) {
	db := newTestDB(t)
	router := productRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/products/"+uuid.New().String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductUpdateCategory_SetsAndClearsOverride(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, uuid.New().String(), "SKU-1", 10)
	router := productRouter(db)

	w := httptest.NewRecorder()
	body := `{"category": "Sofas", "category_id": "5"}`
	req := httptest.NewRequest(http.MethodPut, "/products/"+product.ID+"/category", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var row models.Product
	require.NoError(t, db.First(&row, "id = ?", product.ID).Error)
	require.NotNil(t, row.Category)
	assert.Equal(t, "Sofas", *row.Category)
	require.NotNil(t, row.CategoryID)
	assert.Equal(t, "5", *row.CategoryID)

	// Omitting category_id hands the row back to the categorizer.
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/products/"+product.ID+"/category", strings.NewReader(`{"category": "Lighting"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, db.First(&row, "id = ?", product.ID).Error)
	require.NotNil(t, row.Category)
	assert.Equal(t, "Lighting", *row.Category)
	assert.Nil(t, row.CategoryID)
}

func TestProductUpdateCategory_RequiresCategory(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, uuid.New().String(), "SKU-1", 10)
	router := productRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/products/"+product.ID+"/category", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductDelete_RemovesRow(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, uuid.New().String(), "SKU-1", 10)
	router := productRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/products/"+product.ID, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int64
	db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&count)
	assert.EqualValues(t, 0, count)
}
