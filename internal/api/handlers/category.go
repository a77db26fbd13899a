package handlers

import (
	"net/http"

	"dropsync/internal/categorize"
	"dropsync/internal/logger"
	"dropsync/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CategoryHandler manages the per-supplier keyword rules. Every write
// invalidates the categorization cache for that supplier so the next
// sync sees the new rules immediately.
type CategoryHandler struct {
	db     *gorm.DB
	logger *logger.Logger
	engine *categorize.Engine
}

func NewCategoryHandler(db *gorm.DB, logger *logger.Logger, engine *categorize.Engine) *CategoryHandler {
	return &CategoryHandler{
		db:     db,
		logger: logger,
		engine: engine,
	}
}

func (h *CategoryHandler) List(c *gin.Context) {
	var categories []models.Category

	query := h.db.Model(&models.Category{}).Order("name ASC")
	if supplierID := c.Query("supplier_id"); supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}

	if err := query.Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch categories"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (h *CategoryHandler) Get(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": category})
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var category models.Category
	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if category.Name == "" || category.SupplierID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Category name and supplier_id are required"})
		return
	}

	if err := h.db.Create(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create category"})
		return
	}

	h.engine.InvalidateSupplier(category.SupplierID)
	c.JSON(http.StatusCreated, gin.H{"data": category})
}

func (h *CategoryHandler) Update(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}

	if err := c.ShouldBindJSON(&category); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// The path decides which row this is; a payload id must not re-key
	// the struct into an insert.
	category.ID = id

	if err := h.db.Save(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update category"})
		return
	}

	h.engine.InvalidateSupplier(category.SupplierID)
	c.JSON(http.StatusOK, gin.H{"data": category})
}

func (h *CategoryHandler) Delete(c *gin.Context) {
	id := c.Param("id")

	var category models.Category
	if err := h.db.First(&category, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch category"})
		return
	}

	if err := h.db.Delete(&category).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete category"})
		return
	}

	h.engine.InvalidateSupplier(category.SupplierID)
	c.JSON(http.StatusNoContent, nil)
}
