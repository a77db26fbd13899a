package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncRun records one supplier's slice of a sync cycle for operator
// history. Live progress is served from memory, not from these rows.
type SyncRun struct {
	ID                string         `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	SupplierID        string         `json:"supplier_id" gorm:"not null;index"`
	Status            SyncRunStatus  `json:"status" gorm:"default:running"`
	StartedAt         time.Time      `json:"started_at"`
	CompletedAt       *time.Time     `json:"completed_at"`
	ProductsTotal     int            `json:"products_total" gorm:"default:0"`
	ProductsProcessed int            `json:"products_processed" gorm:"default:0"`
	ProductsCreated   int            `json:"products_created" gorm:"default:0"`
	ProductsUpdated   int            `json:"products_updated" gorm:"default:0"`
	ProductsFailed    int            `json:"products_failed" gorm:"default:0"`
	Errors            []SyncRunError `json:"errors" gorm:"type:jsonb;serializer:json"`
	DurationMs        int64          `json:"duration_ms" gorm:"default:0"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type SyncRunStatus string

const (
	SyncRunStatusRunning   SyncRunStatus = "running"
	SyncRunStatusCompleted SyncRunStatus = "completed"
	SyncRunStatusFailed    SyncRunStatus = "failed"
)

type SyncRunError struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (r *SyncRun) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
