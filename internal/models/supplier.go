package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Supplier struct {
	ID                 string                 `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name               string                 `json:"name" gorm:"not null"`
	Type               SupplierType           `json:"type" gorm:"not null"`
	Status             SupplierStatus         `json:"status" gorm:"default:active"`
	ConnectionStatus   ConnectionStatus       `json:"connection_status" gorm:"default:untested"`
	ConnectionError    *string                `json:"connection_error"`
	LastConnectionTest *time.Time             `json:"last_connection_test"`
	TotalProducts      int                    `json:"total_products" gorm:"default:0"`
	Credentials        map[string]interface{} `json:"credentials" gorm:"type:jsonb;serializer:json"`
	Config             map[string]interface{} `json:"config" gorm:"type:jsonb;serializer:json"`
	LastSync           *time.Time             `json:"last_sync"`
	CreatedAt          time.Time              `json:"created_at"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

type SupplierType string

const (
	SupplierTypeGigaB2B     SupplierType = "gigab2b"
	SupplierTypeShopify     SupplierType = "shopify"
	SupplierTypeWooCommerce SupplierType = "woocommerce"
	SupplierTypeCustom      SupplierType = "custom"
	SupplierTypeAmazon      SupplierType = "amazon"
)

type SupplierStatus string

const (
	SupplierStatusActive   SupplierStatus = "active"
	SupplierStatusInactive SupplierStatus = "inactive"
)

type ConnectionStatus string

const (
	ConnectionStatusConnected ConnectionStatus = "connected"
	ConnectionStatusError     ConnectionStatus = "error"
	ConnectionStatusUntested  ConnectionStatus = "untested"
)

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
