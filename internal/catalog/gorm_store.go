package catalog

import (
	"context"

	"gorm.io/gorm"

	"dropsync/internal/logger"
	"dropsync/internal/models"
)

// GormStore backs the catalog with the products table.
type GormStore struct {
	db     *gorm.DB
	logger *logger.Logger
}

func NewGormStore(db *gorm.DB, log *logger.Logger) *GormStore {
	return &GormStore{db: db, logger: log}
}

func (s *GormStore) GetBySupplierProductID(ctx context.Context, supplierID string, externalID string) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("supplier_id = ? AND external_id = ?", supplierID, externalID).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *GormStore) Create(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Create(product).Error
}

func (s *GormStore) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// BatchCreate inserts all rows in one statement and degrades to
// row-at-a-time when the batch fails, so a single malformed product
// cannot sink its whole page.
func (s *GormStore) BatchCreate(ctx context.Context, products []models.Product) *BatchResult {
	result := &BatchResult{}
	if len(products) == 0 {
		return result
	}

	err := s.db.WithContext(ctx).Create(&products).Error
	if err == nil {
		result.Created = len(products)
		return result
	}
	s.logger.Warn("Batch insert of %d products failed, falling back to per-row inserts: %v", len(products), err)

	for i := range products {
		if err := s.db.WithContext(ctx).Create(&products[i]).Error; err != nil {
			result.Failed++
			result.Errors = append(result.Errors, err)
			continue
		}
		result.Created++
	}
	return result
}

func (s *GormStore) ListBySupplier(ctx context.Context, supplierID string) ([]models.Product, error) {
	var products []models.Product
	if err := s.db.WithContext(ctx).
		Where("supplier_id = ?", supplierID).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *GormStore) CountBySupplier(ctx context.Context, supplierID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("supplier_id = ?", supplierID).
		Count(&count).Error
	return count, err
}
