package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"dropsync/internal/catalog"
	"dropsync/internal/config"
	"dropsync/internal/inventory"
	"dropsync/internal/logger"
	"dropsync/internal/models"
	"dropsync/internal/notify"
	"dropsync/internal/suppliers"
)

var (
	// ErrSyncInProgress is returned when a sync trigger arrives while a
	// cycle is already running. The caller gets it immediately, nothing
	// is processed.
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrSupplierNotFound = errors.New("supplier not found")
)

// Per-run error lists persist as jsonb; keep them bounded.
const maxRunErrors = 20

// SupplierStore is the supplier persistence the orchestrator needs.
type SupplierStore interface {
	ListActive(ctx context.Context) ([]models.Supplier, error)
	Get(ctx context.Context, id string) (*models.Supplier, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
}

// RunStore persists per-supplier sync history rows.
type RunStore interface {
	Create(ctx context.Context, run *models.SyncRun) error
	Save(ctx context.Context, run *models.SyncRun) error
}

// Upserter lands one page of normalized products in the catalog.
// Satisfied by catalog.UpsertEngine.
type Upserter interface {
	UpsertPage(ctx context.Context, supplier *models.Supplier, items []suppliers.NormalizedProduct) *catalog.UpsertResult
}

// Reconciler diffs catalog stock after the pages have landed.
// Satisfied by inventory.Reconciler.
type Reconciler interface {
	ReconcileSupplier(ctx context.Context, supplier *models.Supplier, fetcher inventory.Fetcher) (*inventory.Result, error)
}

// CatalogCounter reports how many catalog rows a supplier owns.
// Satisfied by catalog.GormStore.
type CatalogCounter interface {
	CountBySupplier(ctx context.Context, supplierID string) (int64, error)
}

// AdapterFactory builds an adapter for one supplier per sync attempt.
type AdapterFactory func(supplier *models.Supplier) (suppliers.Adapter, error)

// Deps collects the orchestrator's collaborators.
type Deps struct {
	Suppliers  SupplierStore
	Runs       RunStore
	Upserter   Upserter
	Reconciler Reconciler
	Counter    CatalogCounter
	Notifier   notify.Notifier
	Factory    AdapterFactory // nil uses the credential-driven supplier factory
}

// Orchestrator drives the recurring sync: one cycle walks every active
// supplier sequentially, pages its catalog through the upsert engine,
// then reconciles inventory. A failing supplier is recorded and skipped;
// it can never abort the cycle.
type Orchestrator struct {
	suppliers  SupplierStore
	runs       RunStore
	upserter   Upserter
	reconciler Reconciler
	counter    CatalogCounter
	notifier   notify.Notifier
	factory    AdapterFactory
	status     *Status
	logger     *logger.Logger

	interval  time.Duration
	pageSize  int
	pageDelay time.Duration

	syncing atomic.Bool
}

func New(cfg *config.Config, deps Deps, log *logger.Logger) *Orchestrator {
	factory := deps.Factory
	if factory == nil {
		factory = func(supplier *models.Supplier) (suppliers.Adapter, error) {
			return suppliers.New(string(supplier.Type), supplier.Credentials, log)
		}
	}
	return &Orchestrator{
		suppliers:  deps.Suppliers,
		runs:       deps.Runs,
		upserter:   deps.Upserter,
		reconciler: deps.Reconciler,
		counter:    deps.Counter,
		notifier:   deps.Notifier,
		factory:    factory,
		status:     NewStatus(),
		logger:     log,
		interval:   cfg.SyncInterval,
		pageSize:   cfg.SyncPageSize,
		pageDelay:  100 * time.Millisecond,
	}
}

// Status returns a point-in-time copy of the live sync state.
func (o *Orchestrator) Status() Snapshot {
	return o.status.Snapshot()
}

// Start runs an immediate cycle and then one per interval until ctx is
// cancelled. Cancellation only stops the timer: an in-flight cycle
// always runs to completion, which is why cycles get their own context.
func (o *Orchestrator) Start(ctx context.Context) {
	o.logger.Info("Sync orchestrator started (interval %s)", o.interval)
	o.runCycle()

	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			o.logger.Info("Sync orchestrator stopped")
			return
		case <-ticker.C:
			o.runCycle()
		}
	}
}

func (o *Orchestrator) runCycle() {
	if err := o.SyncAll(context.Background()); err != nil {
		if errors.Is(err, ErrSyncInProgress) {
			o.logger.Debug("Previous sync still running, skipping tick")
			return
		}
		o.logger.Error("Sync cycle failed: %v", err)
	}
}

// SyncAll runs one full cycle over every active supplier. A second
// caller while a cycle is running gets ErrSyncInProgress immediately.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	if !o.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer o.syncing.Store(false)
	return o.syncAllLocked(ctx)
}

// TriggerAll claims the guard and runs the cycle in the background, so
// HTTP callers get their conflict answer without waiting on the work.
func (o *Orchestrator) TriggerAll() error {
	if !o.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	go func() {
		defer o.syncing.Store(false)
		if err := o.syncAllLocked(context.Background()); err != nil {
			o.logger.Error("Triggered sync failed: %v", err)
		}
	}()
	return nil
}

func (o *Orchestrator) syncAllLocked(ctx context.Context) error {
	started := time.Now()
	active, err := o.suppliers.ListActive(ctx)
	if err != nil {
		err = fmt.Errorf("listing suppliers: %w", err)
		o.status.recordError("", err)
		return err
	}

	o.status.begin(len(active))
	summary := notify.SyncSummary{Suppliers: len(active), StartedAt: started}

	for i := range active {
		o.syncSupplier(ctx, &active[i], &summary)
		o.status.supplierDone()
	}

	now := time.Now()
	next := now.Add(o.interval)
	o.status.finish(now, &next)

	summary.Duration = time.Since(started)
	o.notifier.SyncCompleted(ctx, summary)
	o.logger.Info("Sync cycle finished: %d suppliers, %d products processed (%d created, %d updated, %d failed) in %s",
		summary.Suppliers, summary.Products, summary.Created, summary.Updated, summary.Failed, summary.Duration.Round(time.Millisecond))
	return nil
}

// SyncSupplier runs one supplier under the same reentrancy guard as
// the full cycle. The global next-sync time is left untouched.
func (o *Orchestrator) SyncSupplier(ctx context.Context, id string) error {
	supplier, err := o.suppliers.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading supplier: %w", err)
	}
	if supplier == nil {
		return ErrSupplierNotFound
	}

	if !o.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	defer o.syncing.Store(false)

	o.syncOneLocked(ctx, supplier)
	return nil
}

// TriggerSupplier is the background form of SyncSupplier. Not-found
// and in-progress both surface before any work starts.
func (o *Orchestrator) TriggerSupplier(ctx context.Context, id string) error {
	supplier, err := o.suppliers.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("loading supplier: %w", err)
	}
	if supplier == nil {
		return ErrSupplierNotFound
	}

	if !o.syncing.CompareAndSwap(false, true) {
		return ErrSyncInProgress
	}
	go func() {
		defer o.syncing.Store(false)
		o.syncOneLocked(context.Background(), supplier)
	}()
	return nil
}

func (o *Orchestrator) syncOneLocked(ctx context.Context, supplier *models.Supplier) {
	started := time.Now()
	o.status.begin(1)
	summary := notify.SyncSummary{Suppliers: 1, StartedAt: started}

	o.syncSupplier(ctx, supplier, &summary)
	o.status.supplierDone()
	o.status.finish(time.Now(), nil)

	summary.Duration = time.Since(started)
	o.notifier.SyncCompleted(ctx, summary)
}

func (o *Orchestrator) syncSupplier(ctx context.Context, supplier *models.Supplier, summary *notify.SyncSummary) {
	if len(supplier.Credentials) == 0 {
		o.logger.Debug("Supplier %s has no credentials, skipping", supplier.Name)
		return
	}

	o.status.setCurrent(supplier.Name)

	adapter, err := o.factory(supplier)
	if err != nil {
		if errors.Is(err, suppliers.ErrMissingCredentials) {
			o.logger.Debug("Supplier %s credentials incomplete, skipping: %v", supplier.Name, err)
			return
		}
		o.failSupplier(ctx, supplier, summary, err)
		return
	}

	now := time.Now()
	test := adapter.TestConnection(ctx)
	if !test.Success {
		o.updateSupplier(ctx, supplier, map[string]interface{}{
			"connection_status":    models.ConnectionStatusError,
			"connection_error":     test.Message,
			"last_connection_test": now,
		})
		o.status.recordError(supplier.Name, fmt.Errorf("connection test failed: %s", test.Message))
		summary.Errors++
		return
	}
	o.updateSupplier(ctx, supplier, map[string]interface{}{
		"connection_status":    models.ConnectionStatusConnected,
		"connection_error":     nil,
		"last_connection_test": now,
	})

	run := &models.SyncRun{
		SupplierID: supplier.ID,
		Status:     models.SyncRunStatusRunning,
		StartedAt:  now,
	}
	if err := o.runs.Create(ctx, run); err != nil {
		o.logger.Warn("Could not record sync run for %s: %v", supplier.Name, err)
	}

	result, processed, total, fetchErr := o.fetchPages(ctx, supplier, adapter)
	if fetchErr != nil {
		// Mid-paging failures are connection-class: the supplier shows
		// errored until the next cycle clears it.
		o.updateSupplier(ctx, supplier, map[string]interface{}{
			"connection_status": models.ConnectionStatusError,
			"connection_error":  fetchErr.Error(),
		})
		o.status.recordError(supplier.Name, fetchErr)
		summary.Errors++
	}

	if fetchErr == nil {
		if _, err := o.reconciler.ReconcileSupplier(ctx, supplier, adapter); err != nil {
			o.logger.Warn("Inventory reconciliation for %s failed: %v", supplier.Name, err)
			o.status.recordError(supplier.Name, err)
			summary.Errors++
		}
	}

	o.finishRun(ctx, run, result, processed, total, fetchErr)
	o.persistSupplierSync(ctx, supplier)

	summary.Products += processed
	summary.Created += result.Created
	summary.Updated += result.Updated
	summary.Failed += result.Failed

	o.logger.Info("Synced %s: %d products (%d created, %d updated, %d failed)",
		supplier.Name, processed, result.Created, result.Updated, result.Failed)
}

// fetchPages walks the adapter's pagination until it reports no more
// pages or returns an empty page. A page fetch error stops the walk
// and surfaces; already-landed pages stay landed.
func (o *Orchestrator) fetchPages(ctx context.Context, supplier *models.Supplier, adapter suppliers.Adapter) (*catalog.UpsertResult, int, int, error) {
	result := &catalog.UpsertResult{}
	page := 1
	cursor := ""
	processed := 0
	total := 0
	totalKnown := false

	for {
		productPage, err := adapter.FetchProducts(ctx, page, o.pageSize, cursor)
		if err != nil {
			return result, processed, total, fmt.Errorf("fetching page %d from %s: %w", page, supplier.Name, err)
		}

		if page == 1 && productPage.Total >= 0 {
			total = productPage.Total
			totalKnown = true
			o.status.addProductsTotal(total)
		}
		if len(productPage.Items) == 0 {
			break
		}
		if !totalKnown {
			total += len(productPage.Items)
			o.status.addProductsTotal(len(productPage.Items))
		}

		pageResult := o.upserter.UpsertPage(ctx, supplier, productPage.Items)
		result.Merge(pageResult)
		processed += len(productPage.Items)
		o.status.addProductsProcessed(len(productPage.Items))

		if !productPage.HasMore {
			break
		}
		cursor = productPage.NextCursor
		page++
		time.Sleep(o.pageDelay)
	}

	return result, processed, total, nil
}

func (o *Orchestrator) finishRun(ctx context.Context, run *models.SyncRun, result *catalog.UpsertResult, processed, total int, fetchErr error) {
	completed := time.Now()
	run.CompletedAt = &completed
	run.DurationMs = completed.Sub(run.StartedAt).Milliseconds()
	run.ProductsTotal = total
	run.ProductsProcessed = processed
	run.ProductsCreated = result.Created
	run.ProductsUpdated = result.Updated
	run.ProductsFailed = result.Failed

	run.Status = models.SyncRunStatusCompleted
	if fetchErr != nil {
		run.Status = models.SyncRunStatusFailed
		run.Errors = append(run.Errors, models.SyncRunError{Message: fetchErr.Error(), Timestamp: completed})
	}
	for _, err := range result.Errors {
		if len(run.Errors) >= maxRunErrors {
			break
		}
		run.Errors = append(run.Errors, models.SyncRunError{Message: err.Error(), Timestamp: completed})
	}

	if err := o.runs.Save(ctx, run); err != nil {
		o.logger.Warn("Could not finish sync run %s: %v", run.ID, err)
	}
}

// persistSupplierSync writes the post-cycle bookkeeping onto the
// supplier row: row count, last sync time, and the schedule blob.
func (o *Orchestrator) persistSupplierSync(ctx context.Context, supplier *models.Supplier) {
	now := time.Now()

	updates := map[string]interface{}{
		"last_sync": now,
	}
	if count, err := o.counter.CountBySupplier(ctx, supplier.ID); err == nil {
		updates["total_products"] = count
	} else {
		o.logger.Warn("Could not count products for %s: %v", supplier.Name, err)
	}

	cfg := supplier.Config
	if cfg == nil {
		cfg = make(map[string]interface{})
	}
	cfg["last_sync_at"] = now.UTC().Format(time.RFC3339)
	cfg["next_sync_at"] = now.Add(o.interval).UTC().Format(time.RFC3339)
	updates["config"] = cfg

	o.updateSupplier(ctx, supplier, updates)
}

func (o *Orchestrator) failSupplier(ctx context.Context, supplier *models.Supplier, summary *notify.SyncSummary, cause error) {
	o.status.recordError(supplier.Name, cause)
	summary.Errors++
	o.updateSupplier(ctx, supplier, map[string]interface{}{
		"connection_status": models.ConnectionStatusError,
		"connection_error":  cause.Error(),
	})
}

func (o *Orchestrator) updateSupplier(ctx context.Context, supplier *models.Supplier, updates map[string]interface{}) {
	if err := o.suppliers.Update(ctx, supplier.ID, updates); err != nil {
		o.logger.Error("Could not update supplier %s: %v", supplier.Name, err)
	}
}
