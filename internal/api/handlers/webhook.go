package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"dropsync/internal/catalog"
	"dropsync/internal/config"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/suppliers"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// WebhookHandler ingests push updates between sync cycles. Only
// Shopify suppliers push today; the other integrations are poll-only.
type WebhookHandler struct {
	db       *gorm.DB
	logger   *logger.Logger
	config   *config.Config
	upserter *catalog.UpsertEngine
}

func NewWebhookHandler(db *gorm.DB, logger *logger.Logger, config *config.Config, upserter *catalog.UpsertEngine) *WebhookHandler {
	return &WebhookHandler{
		db:       db,
		logger:   logger,
		config:   config,
		upserter: upserter,
	}
}

// Shopify handles products/create, products/update and products/delete
// topics. Unknown topics are acknowledged without processing so Shopify
// does not retry them.
func (h *WebhookHandler) Shopify(c *gin.Context) {
	topic := c.GetHeader("X-Shopify-Topic")
	shopDomain := c.GetHeader("X-Shopify-Shop-Domain")
	signature := c.GetHeader("X-Shopify-Hmac-Sha256")

	if topic == "" || shopDomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required headers"})
		return
	}

	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read payload"})
		return
	}

	if h.config.ShopifyWebhookSecret != "" {
		if !verifyShopifySignature(payload, signature, h.config.ShopifyWebhookSecret) {
			h.logger.Warn("Rejected Shopify webhook with bad signature from %s", shopDomain)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
			return
		}
	}

	var supplier models.Supplier
	err = h.db.First(&supplier, "type = ? AND credentials->>'store_domain' = ?", models.SupplierTypeShopify, shopDomain).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No supplier registered for this shop"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve supplier"})
		return
	}

	switch topic {
	case "products/create", "products/update":
		err = h.upsertPushedProduct(c, &supplier, payload)
	case "products/delete":
		err = h.deletePushedProduct(&supplier, payload)
	default:
		h.logger.Debug("Unhandled webhook topic: %s", topic)
		c.JSON(http.StatusOK, gin.H{"message": "Webhook received but not processed"})
		return
	}

	if err != nil {
		h.logger.Error("Failed to process %s webhook for %s: %v", topic, supplier.Name, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed successfully"})
}

func (h *WebhookHandler) upsertPushedProduct(c *gin.Context, supplier *models.Supplier, payload []byte) error {
	var pushed suppliers.ShopifyWebhookProduct
	if err := json.Unmarshal(payload, &pushed); err != nil {
		return err
	}

	item, ok := suppliers.NormalizeShopifyWebhook(&pushed)
	if !ok {
		// Out of stock or variant-less: the next full sync settles it.
		h.logger.Debug("Ignoring pushed product %d with no sellable stock", pushed.ID)
		return nil
	}

	result := h.upserter.UpsertPage(c.Request.Context(), supplier, []suppliers.NormalizedProduct{item})
	if result.Failed > 0 && len(result.Errors) > 0 {
		return result.Errors[0]
	}
	return nil
}

func (h *WebhookHandler) deletePushedProduct(supplier *models.Supplier, payload []byte) error {
	var pushed struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(payload, &pushed); err != nil {
		return err
	}

	externalID := suppliers.ShopifyProductExternalID(pushed.ID)
	return h.db.Delete(&models.Product{}, "supplier_id = ? AND external_id = ?", supplier.ID, externalID).Error
}

func verifyShopifySignature(payload []byte, signature, secret string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
