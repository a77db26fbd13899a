package syncer

import (
	"sync"
	"time"
)

// Progress counts work inside the active cycle.
type Progress struct {
	SuppliersTotal     int `json:"suppliers_total"`
	SuppliersCompleted int `json:"suppliers_completed"`
	ProductsTotal      int `json:"products_total"`
	ProductsProcessed  int `json:"products_processed"`
}

// SyncError is one supplier-scoped failure inside a cycle.
type SyncError struct {
	Supplier  string    `json:"supplier"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is the read-only copy of the live status handed to callers.
type Snapshot struct {
	IsRunning       bool        `json:"is_running"`
	LastSyncAt      *time.Time  `json:"last_sync_at,omitempty"`
	NextSyncAt      *time.Time  `json:"next_sync_at,omitempty"`
	CurrentSupplier string      `json:"current_supplier,omitempty"`
	Progress        Progress    `json:"progress"`
	Errors          []SyncError `json:"errors"`
}

// Status is the orchestrator's live view of the sync. One instance
// exists per process; only the orchestrator mutates it, everyone else
// reads through Snapshot. Errors reset at the start of each cycle and
// accumulate until the next one.
type Status struct {
	mu              sync.RWMutex
	isRunning       bool
	lastSyncAt      *time.Time
	nextSyncAt      *time.Time
	currentSupplier string
	progress        Progress
	errors          []SyncError
}

func NewStatus() *Status {
	return &Status{}
}

func (s *Status) begin(suppliersTotal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = true
	s.currentSupplier = ""
	s.progress = Progress{SuppliersTotal: suppliersTotal}
	s.errors = nil
}

// finish marks the cycle done. A nil next keeps the previously
// scheduled time, used by single-supplier syncs that must not move the
// global timer.
func (s *Status) finish(last time.Time, next *time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isRunning = false
	s.currentSupplier = ""
	s.lastSyncAt = &last
	if next != nil {
		s.nextSyncAt = next
	}
}

func (s *Status) setCurrent(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentSupplier = name
}

func (s *Status) supplierDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.SuppliersCompleted++
}

func (s *Status) addProductsTotal(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.ProductsTotal += n
}

func (s *Status) addProductsProcessed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress.ProductsProcessed += n
}

func (s *Status) recordError(supplier string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, SyncError{
		Supplier:  supplier,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		IsRunning:       s.isRunning,
		LastSyncAt:      s.lastSyncAt,
		NextSyncAt:      s.nextSyncAt,
		CurrentSupplier: s.currentSupplier,
		Progress:        s.progress,
		Errors:          make([]SyncError, len(s.errors)),
	}
	copy(snap.Errors, s.errors)
	return snap
}
