package handlers

import (
	"errors"
	"net/http"
	"time"

	"dropsync/internal/inventory"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/suppliers"
	"dropsync/internal/syncer"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SupplierHandler struct {
	db         *gorm.DB
	logger     *logger.Logger
	orch       *syncer.Orchestrator
	reconciler *inventory.Reconciler
}

func NewSupplierHandler(db *gorm.DB, logger *logger.Logger, orch *syncer.Orchestrator, reconciler *inventory.Reconciler) *SupplierHandler {
	return &SupplierHandler{
		db:         db,
		logger:     logger,
		orch:       orch,
		reconciler: reconciler,
	}
}

var validSupplierTypes = map[models.SupplierType]bool{
	models.SupplierTypeGigaB2B:     true,
	models.SupplierTypeShopify:     true,
	models.SupplierTypeWooCommerce: true,
	models.SupplierTypeCustom:      true,
	models.SupplierTypeAmazon:      true,
}

func (h *SupplierHandler) List(c *gin.Context) {
	var list []models.Supplier

	if err := h.db.Order("created_at ASC").Find(&list).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch suppliers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": list})
}

func (h *SupplierHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var supplier models.Supplier
	if err := h.db.First(&supplier, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch supplier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

func (h *SupplierHandler) Create(c *gin.Context) {
	var supplier models.Supplier
	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if supplier.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Supplier name is required"})
		return
	}
	if !validSupplierTypes[supplier.Type] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown supplier type"})
		return
	}
	if supplier.Status == "" {
		supplier.Status = models.SupplierStatusActive
	}
	supplier.ConnectionStatus = models.ConnectionStatusUntested

	if err := h.db.Create(&supplier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create supplier"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": supplier})
}

func (h *SupplierHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var supplier models.Supplier
	if err := h.db.First(&supplier, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch supplier"})
		return
	}

	if err := c.ShouldBindJSON(&supplier); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The path decides which row this is; a payload id must not re-key
	// the struct into an insert.
	supplier.ID = id
	if !validSupplierTypes[supplier.Type] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown supplier type"})
		return
	}

	if err := h.db.Save(&supplier).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update supplier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": supplier})
}

func (h *SupplierHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.Product{}, "supplier_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.Category{}, "supplier_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Supplier{}, "id = ?", id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete supplier"})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}

// Test builds an adapter from the stored credentials and probes the
// supplier API, persisting the outcome on the supplier row.
func (h *SupplierHandler) Test(c *gin.Context) {
	id := c.Param("id")

	var supplier models.Supplier
	if err := h.db.First(&supplier, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch supplier"})
		return
	}

	now := time.Now()
	result := suppliers.ConnectionTestResult{Success: false}

	adapter, err := suppliers.New(string(supplier.Type), supplier.Credentials, h.logger)
	if err != nil {
		result.Message = err.Error()
	} else {
		result = adapter.TestConnection(c.Request.Context())
	}

	updates := map[string]interface{}{
		"last_connection_test": now,
	}
	if result.Success {
		updates["connection_status"] = models.ConnectionStatusConnected
		updates["connection_error"] = nil
	} else {
		updates["connection_status"] = models.ConnectionStatusError
		updates["connection_error"] = result.Message
	}
	if err := h.db.Model(&models.Supplier{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		h.logger.Error("Failed to persist connection test for %s: %v", supplier.Name, err)
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

// Sync queues a one-supplier sync. 409 while any sync is running.
func (h *SupplierHandler) Sync(c *gin.Context) {
	id := c.Param("id")

	if err := h.orch.TriggerSupplier(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, syncer.ErrSupplierNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
		case errors.Is(err, syncer.ErrSyncInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "Sync already in progress"})
		default:
			h.logger.Error("Failed to trigger sync for supplier %s: %v", id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start sync"})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sync started"})
}

// Reconcile runs an inventory-only pass against the live supplier API.
func (h *SupplierHandler) Reconcile(c *gin.Context) {
	id := c.Param("id")

	var supplier models.Supplier
	if err := h.db.First(&supplier, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Supplier not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch supplier"})
		return
	}

	adapter, err := suppliers.New(string(supplier.Type), supplier.Credentials, h.logger)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.reconciler.ReconcileSupplier(c.Request.Context(), &supplier, adapter)
	if err != nil {
		h.logger.Error("Inventory reconcile for %s failed: %v", supplier.Name, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Inventory reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
