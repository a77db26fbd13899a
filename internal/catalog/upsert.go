package catalog

import (
	"context"
	"fmt"

	"dropsync/internal/categorize"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/suppliers"
)

// Categorizer yields a category for a product, or nil when neither the
// keyword rules nor the fallback can place it. Satisfied by
// categorize.Engine.
type Categorizer interface {
	Categorize(ctx context.Context, supplierID string, title, description, rawCategory string) (*categorize.Match, error)
}

// UpsertResult aggregates one page of upserts.
type UpsertResult struct {
	Created int
	Updated int
	Failed  int
	Errors  []error
}

// Merge folds another page's counts into this result.
func (r *UpsertResult) Merge(other *UpsertResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Failed += other.Failed
	r.Errors = append(r.Errors, other.Errors...)
}

// UpsertEngine dedups adapter output against the catalog by
// (supplier, external id), applies pricing policy, and persists.
type UpsertEngine struct {
	store       Store
	categorizer Categorizer // nil skips categorization
	logger      *logger.Logger
}

func NewUpsertEngine(store Store, categorizer Categorizer, log *logger.Logger) *UpsertEngine {
	return &UpsertEngine{
		store:       store,
		categorizer: categorizer,
		logger:      log,
	}
}

// UpsertPage processes one page of normalized products. New products
// are inserted in a single batch (with per-row fallback inside the
// store); existing rows are updated in place. Item failures are counted
// and never abort the page.
func (e *UpsertEngine) UpsertPage(ctx context.Context, supplier *models.Supplier, items []suppliers.NormalizedProduct) *UpsertResult {
	result := &UpsertResult{}
	var creates []models.Product

	for i := range items {
		item := &items[i]
		if err := ValidateProduct(item); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}

		existing, err := e.store.GetBySupplierProductID(ctx, supplier.ID, item.SupplierProductID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("lookup of %s failed: %w", item.SupplierProductID, err))
			continue
		}

		category := e.deriveCategory(ctx, supplier, item)

		if len(existing) == 0 {
			creates = append(creates, e.buildProduct(supplier, item, category))
			continue
		}

		for _, row := range existing {
			// A categoryId on the row is an admin assignment; the
			// resync must not touch the category in that case.
			updates := e.updatePayload(supplier, item, category, row.CategoryID == nil)
			if err := e.store.Update(ctx, row.ID, updates); err != nil {
				result.Failed++
				result.Errors = append(result.Errors, fmt.Errorf("update of %s failed: %w", item.SupplierProductID, err))
				continue
			}
			result.Updated++
		}
	}

	if len(creates) > 0 {
		batch := e.store.BatchCreate(ctx, creates)
		result.Created += batch.Created
		result.Failed += batch.Failed
		result.Errors = append(result.Errors, batch.Errors...)
	}
	return result
}

// deriveCategory prefers the categorization engine's answer and falls
// back to whatever category text the adapter supplied.
func (e *UpsertEngine) deriveCategory(ctx context.Context, supplier *models.Supplier, item *suppliers.NormalizedProduct) string {
	if e.categorizer == nil {
		return item.Category
	}

	match, err := e.categorizer.Categorize(ctx, supplier.ID, item.Title, item.Description, item.Category)
	if err != nil {
		e.logger.Warn("Categorization of %s failed: %v", item.SupplierProductID, err)
		return item.Category
	}
	if match == nil {
		return item.Category
	}
	return match.CategoryName
}

func (e *UpsertEngine) buildProduct(supplier *models.Supplier, item *suppliers.NormalizedProduct, category string) models.Product {
	quantity := totalQuantity(item.Variants)
	product := models.Product{
		SupplierID:        supplier.ID,
		ExternalID:        item.SupplierProductID,
		SKU:               item.SupplierSKU,
		Title:             item.Title,
		Tags:              item.Tags,
		Images:            toModelImages(item.Images),
		Variants:          toModelVariants(item.Variants),
		SupplierSKU:       item.SupplierSKU,
		SupplierPrice:     item.SupplierPrice,
		Price:             MerchantPrice(supplier.Type, item.SupplierPrice),
		InventoryQuantity: quantity,
		Available:         quantity > 0,
	}
	if item.Description != "" {
		product.Description = &item.Description
	}
	if category != "" {
		product.Category = &category
	}
	return product
}

func (e *UpsertEngine) updatePayload(supplier *models.Supplier, item *suppliers.NormalizedProduct, category string, includeCategory bool) map[string]interface{} {
	var description interface{}
	if item.Description != "" {
		description = item.Description
	}

	quantity := totalQuantity(item.Variants)
	updates := map[string]interface{}{
		"title":              item.Title,
		"description":        description,
		"tags":               item.Tags,
		"images":             toModelImages(item.Images),
		"variants":           toModelVariants(item.Variants),
		"supplier_sku":       item.SupplierSKU,
		"supplier_price":     item.SupplierPrice,
		"price":              MerchantPrice(supplier.Type, item.SupplierPrice),
		"inventory_quantity": quantity,
		"available":          quantity > 0,
	}
	if includeCategory && category != "" {
		updates["category"] = category
	}
	return updates
}

func totalQuantity(variants []suppliers.ProductVariant) int {
	total := 0
	for _, v := range variants {
		total += v.InventoryQuantity
	}
	return total
}

func toModelImages(images []suppliers.ProductImage) []models.ProductImage {
	if len(images) == 0 {
		return nil
	}
	out := make([]models.ProductImage, 0, len(images))
	for _, img := range images {
		out = append(out, models.ProductImage{
			URL:      img.URL,
			Alt:      img.Alt,
			Position: img.Position,
		})
	}
	return out
}

func toModelVariants(variants []suppliers.ProductVariant) []models.ProductVariant {
	out := make([]models.ProductVariant, 0, len(variants))
	for _, v := range variants {
		out = append(out, models.ProductVariant{
			ID:                v.ID,
			SKU:               v.SKU,
			Barcode:           v.Barcode,
			Title:             v.Title,
			Price:             v.Price,
			CompareAtPrice:    v.CompareAtPrice,
			Cost:              v.Cost,
			InventoryQuantity: v.InventoryQuantity,
			Weight:            v.Weight,
			Options:           v.Options,
		})
	}
	return out
}
