package syncer

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dropsync/internal/models"
)

// GormSupplierStore implements SupplierStore on PostgreSQL.
type GormSupplierStore struct {
	db *gorm.DB
}

func NewGormSupplierStore(db *gorm.DB) *GormSupplierStore {
	return &GormSupplierStore{db: db}
}

func (s *GormSupplierStore) ListActive(ctx context.Context) ([]models.Supplier, error) {
	var list []models.Supplier
	err := s.db.WithContext(ctx).
		Where("status = ?", models.SupplierStatusActive).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormSupplierStore) Get(ctx context.Context, id string) (*models.Supplier, error) {
	var supplier models.Supplier
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &supplier, nil
}

func (s *GormSupplierStore) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.Supplier{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// GormRunStore implements RunStore on PostgreSQL.
type GormRunStore struct {
	db *gorm.DB
}

func NewGormRunStore(db *gorm.DB) *GormRunStore {
	return &GormRunStore{db: db}
}

func (s *GormRunStore) Create(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormRunStore) Save(ctx context.Context, run *models.SyncRun) error {
	return s.db.WithContext(ctx).Save(run).Error
}

// ListRuns returns recent sync history, newest first.
func (s *GormRunStore) ListRuns(ctx context.Context, supplierID string, limit int) ([]models.SyncRun, error) {
	if limit <= 0 {
		limit = 50
	}
	q := s.db.WithContext(ctx).Model(&models.SyncRun{}).Order("started_at DESC").Limit(limit)
	if supplierID != "" {
		q = q.Where("supplier_id = ?", supplierID)
	}
	var runs []models.SyncRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
