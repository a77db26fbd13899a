package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dropsync/internal/models"
)

// GormMerchants satisfies MerchantStore against the merchants table.
type GormMerchants struct {
	db *gorm.DB
}

func NewGormMerchants(db *gorm.DB) *GormMerchants {
	return &GormMerchants{db: db}
}

func (s *GormMerchants) Get(ctx context.Context, id string) (*models.Merchant, error) {
	var merchant models.Merchant
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&merchant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &merchant, nil
}
