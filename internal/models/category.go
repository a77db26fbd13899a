package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a supplier-scoped catalog category. Keywords drive the
// keyword categorization engine; ExcludeKeywords veto a rule outright.
type Category struct {
	ID              string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID      string    `json:"supplier_id" gorm:"not null;index"`
	Name            string    `json:"name" gorm:"not null"`
	Keywords        []string  `json:"keywords" gorm:"type:jsonb;serializer:json"`
	ExcludeKeywords []string  `json:"exclude_keywords" gorm:"type:jsonb;serializer:json"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
