package categorize

import (
	"context"

	"gorm.io/gorm"

	"dropsync/internal/models"
)

// GormLister satisfies Lister against the categories table.
type GormLister struct {
	db *gorm.DB
}

func NewGormLister(db *gorm.DB) *GormLister {
	return &GormLister{db: db}
}

func (l *GormLister) ListBySupplier(ctx context.Context, supplierID string) ([]models.Category, error) {
	var categories []models.Category
	if err := l.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Order("created_at ASC").
		Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}
