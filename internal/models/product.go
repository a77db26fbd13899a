package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Product struct {
	ID                string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID        string           `json:"supplier_id" gorm:"not null;uniqueIndex:idx_products_supplier_external"`
	ExternalID        string           `json:"external_id" gorm:"not null;uniqueIndex:idx_products_supplier_external"`
	MerchantID        *string          `json:"merchant_id" gorm:"index"`
	SKU               string           `json:"sku"`
	Title             string           `json:"title" gorm:"not null"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	CategoryID        *string          `json:"category_id"`
	Tags              []string         `json:"tags" gorm:"type:jsonb;serializer:json"`
	Images            []ProductImage   `json:"images" gorm:"type:jsonb;serializer:json"`
	Variants          []ProductVariant `json:"variants" gorm:"type:jsonb;serializer:json"`
	SupplierSKU       string           `json:"supplier_sku"`
	SupplierPrice     float64          `json:"supplier_price" gorm:"type:decimal(10,2)"`
	Price             float64          `json:"price" gorm:"type:decimal(10,2)"`
	Currency          string           `json:"currency" gorm:"default:USD"`
	InventoryQuantity int              `json:"inventory_quantity" gorm:"default:0"`
	Available         bool             `json:"available" gorm:"default:true"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type ProductImage struct {
	URL      string `json:"url"`
	Alt      string `json:"alt"`
	Position int    `json:"position"`
}

type ProductVariant struct {
	ID                string            `json:"id"`
	SKU               string            `json:"sku"`
	Barcode           string            `json:"barcode,omitempty"`
	Title             string            `json:"title"`
	Price             float64           `json:"price"`
	CompareAtPrice    *float64          `json:"compare_at_price,omitempty"`
	Cost              float64           `json:"cost"`
	InventoryQuantity int               `json:"inventory_quantity"`
	Weight            *float64          `json:"weight,omitempty"`
	Options           map[string]string `json:"options,omitempty"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
