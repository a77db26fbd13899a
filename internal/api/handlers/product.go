package handlers

import (
	"net/http"
	"strconv"

	"dropsync/internal/config"
	"dropsync/internal/logger"
	"dropsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ProductHandler struct {
	db     *gorm.DB
	logger *logger.Logger
	config *config.Config
}

func NewProductHandler(db *gorm.DB, logger *logger.Logger, config *config.Config) *ProductHandler {
	return &ProductHandler{
		db:     db,
		logger: logger,
		config: config,
	}
}

func (h *ProductHandler) List(c *gin.Context) {
	var products []models.Product

	// Pagination
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 20
	}
	offset := (page - 1) * limit

	// Filters
	supplierID := c.Query("supplier_id")
	category := c.Query("category")
	categoryID := c.Query("category_id")
	search := c.Query("search")
	available := c.Query("available")
	lowStock := c.Query("low_stock")

	query := h.db.Model(&models.Product{})

	if supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	if category != "" {
		query = query.Where("category = ?", category)
	}

	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	if search != "" {
		query = query.Where("title ILIKE ? OR sku ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if available != "" {
		query = query.Where("available = ?", available == "true")
	}

	if lowStock == "true" {
		query = query.Where("inventory_quantity <= ?", h.config.LowStockThreshold)
	}

	var total int64
	query.Count(&total)

	if err := query.Order("updated_at DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch products"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": products,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

func (h *ProductHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

// UpdateCategory applies an admin category override. A row carrying a
// category_id keeps its category across syncs; clearing is done by
// omitting category_id from the request.
func (h *ProductHandler) UpdateCategory(c *gin.Context) {
	id := c.Param("id")

	var request struct {
		Category   string  `json:"category" binding:"required"`
		CategoryID *string `json:"category_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var product models.Product
	if err := h.db.First(&product, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch product"})
		return
	}

	updates := map[string]interface{}{
		"category":    request.Category,
		"category_id": request.CategoryID,
	}
	if err := h.db.Model(&product).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": product})
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	if err := h.db.Delete(&models.Product{}, "id = ?", id).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		return
	}

	c.JSON(http.StatusNoContent, nil)
}
