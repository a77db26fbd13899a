package inventory

import (
	"context"
	"fmt"

	"dropsync/internal/catalog"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/notify"
	"dropsync/internal/suppliers"
)

// Fetcher is the slice of the supplier adapter the reconciler consumes.
type Fetcher interface {
	FetchInventory(ctx context.Context, ids []string) ([]suppliers.NormalizedInventory, error)
}

// MerchantStore resolves per-merchant notification settings.
type MerchantStore interface {
	Get(ctx context.Context, id string) (*models.Merchant, error)
}

// Result summarizes one reconciliation pass.
type Result struct {
	Checked  int `json:"checked"`
	Updated  int `json:"updated"`
	Notified int `json:"notified"`
}

// Reconciler diffs catalog stock against fresh supplier levels and
// raises low-stock notifications. Notification delivery is
// at-least-once: a product sitting below threshold can notify again on
// a later drop.
type Reconciler struct {
	store     catalog.Store
	merchants MerchantStore // nil disables per-merchant thresholds
	notifier  notify.Notifier
	threshold int
	logger    *logger.Logger
}

func NewReconciler(store catalog.Store, merchants MerchantStore, notifier notify.Notifier, threshold int, log *logger.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		merchants: merchants,
		notifier:  notifier,
		threshold: threshold,
		logger:    log,
	}
}

type stockState struct {
	quantity  int
	available bool
}

// ReconcileSupplier fetches fresh inventory for every catalog row of
// the supplier and updates rows whose quantity changed. A quantity
// drop to or below the low-stock threshold notifies once per affected
// product. Rows the supplier reports nothing for are left untouched.
func (r *Reconciler) ReconcileSupplier(ctx context.Context, supplier *models.Supplier, fetcher Fetcher) (*Result, error) {
	products, err := r.store.ListBySupplier(ctx, supplier.ID)
	if err != nil {
		return nil, fmt.Errorf("listing products for %s: %w", supplier.Name, err)
	}
	if len(products) == 0 {
		return &Result{}, nil
	}

	ids := make([]string, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ExternalID)
	}

	levels, err := fetcher.FetchInventory(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching inventory from %s: %w", supplier.Name, err)
	}

	// Levels arrive per variant; catalog rows carry the product total.
	fresh := make(map[string]*stockState, len(products))
	for _, level := range levels {
		state, ok := fresh[level.SupplierProductID]
		if !ok {
			state = &stockState{}
			fresh[level.SupplierProductID] = state
		}
		state.quantity += level.Quantity
		state.available = state.available || level.Available
	}

	result := &Result{}
	for i := range products {
		product := &products[i]
		state, ok := fresh[product.ExternalID]
		if !ok {
			continue
		}
		result.Checked++

		if state.quantity == product.InventoryQuantity {
			continue
		}

		err := r.store.Update(ctx, product.ID, map[string]interface{}{
			"inventory_quantity": state.quantity,
			"available":          state.available,
		})
		if err != nil {
			r.logger.Error("Inventory update of %s failed: %v", product.ExternalID, err)
			continue
		}
		result.Updated++

		if state.quantity < product.InventoryQuantity {
			threshold := r.thresholdFor(ctx, product)
			if state.quantity <= threshold {
				product.InventoryQuantity = state.quantity
				product.Available = state.available
				r.notifier.LowStock(ctx, product, supplier, threshold)
				result.Notified++
			}
		}
	}

	r.logger.Info("Reconciled inventory for %s: %d checked, %d updated, %d low-stock",
		supplier.Name, result.Checked, result.Updated, result.Notified)
	return result, nil
}

func (r *Reconciler) thresholdFor(ctx context.Context, product *models.Product) int {
	if r.merchants == nil || product.MerchantID == nil {
		return r.threshold
	}
	merchant, err := r.merchants.Get(ctx, *product.MerchantID)
	if err != nil {
		r.logger.Warn("Merchant lookup for threshold failed: %v", err)
		return r.threshold
	}
	if merchant == nil || merchant.LowStockThreshold == nil {
		return r.threshold
	}
	return *merchant.LowStockThreshold
}
