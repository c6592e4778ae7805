// Package pipeline orchestrates the multi-source daily metrics
// aggregation: date-range chunking, bounded-concurrency fan-out across
// windows and sources, merge/derivation, and the idempotent upsert.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beasroy/shopify-SAAS-sub002/internal/credentials"
	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/notify"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/distlock"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
)

// OrderReader walks the paginated orders query for one window.
type OrderReader interface {
	ReadOrders(ctx context.Context, creds domain.ShopifyCredentials, window domain.DateWindow, loc *time.Location) ([]domain.NormalizedOrder, error)
}

// MetaSource fetches daily social-ads partials.
type MetaSource interface {
	FetchDailyInsights(ctx context.Context, creds domain.MetaCredentials, window domain.DateWindow) ([]domain.MetaDaily, error)
}

// GoogleSource fetches daily search-ads partials.
type GoogleSource interface {
	FetchDailyMetrics(ctx context.Context, creds domain.GoogleCredentials, window domain.DateWindow) ([]domain.GoogleDaily, error)
}

// MetricsStore is the slice of the document store the pipeline needs.
type MetricsStore interface {
	FindRange(ctx context.Context, brandID, start, end string) ([]domain.DailyMetricsRecord, error)
	BulkUpsert(ctx context.Context, records []domain.DailyMetricsRecord) (int, error)
}

// Reconciler records refund totals against the refund store.
type Reconciler interface {
	Reconcile(ctx context.Context, brandID string, order domain.NormalizedOrder) error
}

// LockFactory builds the per-brand run lock.
type LockFactory func(brandID string) distlock.Lock

// Options tunes chunking and fan-out. Injected so tests can run the
// orchestrator with tiny windows and fan-out.
type Options struct {
	// OrderWindowDays sizes the windows the order reader walks.
	OrderWindowDays int
	// BatchWindowDays sizes the sequential top-level batches that are
	// subdivided into order windows.
	BatchWindowDays int
	// MaxConcurrentWindows bounds windows in flight at once.
	MaxConcurrentWindows int
	// NewSource, when set, marks a run triggered by the brand
	// connecting a new platform after its initial backfill. The run
	// switches to incremental mode if prior records exist in range.
	NewSource domain.Source
}

func (o *Options) defaults() {
	if o.OrderWindowDays <= 0 {
		o.OrderWindowDays = 7
	}
	if o.BatchWindowDays <= 0 {
		o.BatchWindowDays = 120
	}
	if o.MaxConcurrentWindows <= 0 {
		o.MaxConcurrentWindows = 3
	}
}

// Pipeline is the aggregation orchestrator. All collaborators are
// injected; Run never panics and always returns a SyncResult.
type Pipeline struct {
	creds      credentials.Store
	orders     OrderReader
	meta       MetaSource
	google     GoogleSource
	metrics    MetricsStore
	reconciler Reconciler
	notifier   notify.Publisher
	lockFor    LockFactory
}

// New wires a Pipeline.
func New(creds credentials.Store, orders OrderReader, meta MetaSource, google GoogleSource, metrics MetricsStore, reconciler Reconciler, notifier notify.Publisher, lockFor LockFactory) *Pipeline {
	return &Pipeline{
		creds:      creds,
		orders:     orders,
		meta:       meta,
		google:     google,
		metrics:    metrics,
		reconciler: reconciler,
		notifier:   notifier,
		lockFor:    lockFor,
	}
}

// Run aggregates [start, end) for one brand. Individual source and
// window failures degrade to partial data and are reported in the
// result; only missing preconditions (unknown brand, no commerce
// credentials, a concurrent run holding the lock) fail the whole run.
func (p *Pipeline) Run(ctx context.Context, brandID, userID string, start, end time.Time, opts Options) domain.SyncResult {
	opts.defaults()
	runID := uuid.NewString()

	fail := func(msg string) domain.SyncResult {
		logger.Error("sync run failed", "run_id", runID, "brand_id", brandID, "reason", msg)
		p.notifier.Publish(ctx, domain.Notification{
			Success: false, Message: msg, BrandID: brandID, UserID: userID, RunID: runID,
		})
		return domain.SyncResult{Success: false, Message: msg}
	}

	if !end.After(start) {
		return fail("end date must be after start date")
	}

	brand, err := p.creds.Brand(ctx, brandID)
	if err != nil {
		return fail(fmt.Sprintf("brand lookup failed: %v", err))
	}
	creds, err := p.creds.ForBrand(ctx, brandID)
	if err != nil {
		return fail(fmt.Sprintf("credential lookup failed: %v", err))
	}
	if creds.Shopify == nil {
		return fail("no commerce platform credentials for brand")
	}

	loc, err := time.LoadLocation(brand.Timezone)
	if err != nil {
		logger.Warn("invalid brand timezone, falling back to UTC",
			"brand_id", brandID, "timezone", brand.Timezone)
		loc = time.UTC
	}

	if p.lockFor != nil {
		lock := p.lockFor(brandID)
		ok, lockErr := lock.Acquire(ctx)
		if lockErr != nil {
			return fail(fmt.Sprintf("acquiring sync lock: %v", lockErr))
		}
		if !ok {
			return fail("a sync is already running for this brand")
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("releasing sync lock", "brand_id", brandID, "error", err.Error())
			}
		}()
	}

	startDate := start.In(loc).Format("2006-01-02")
	endDate := end.In(loc).Format("2006-01-02")

	// Decide the merge mode once, up front. A new-source run only
	// goes incremental when prior records actually exist; otherwise
	// it is a plain full backfill.
	mode := domain.SyncFull
	var existing []domain.DailyMetricsRecord
	if opts.NewSource != "" {
		existing, err = p.metrics.FindRange(ctx, brandID, startDate, endDate)
		if err != nil {
			return fail(fmt.Sprintf("reading existing records: %v", err))
		}
		if len(existing) > 0 {
			mode = domain.SyncIncremental
		}
	}

	logger.Info("sync run starting",
		"run_id", runID,
		"brand_id", brandID,
		"range", startDate+".."+endDate,
		"mode", mode.String(),
		"window_days", opts.OrderWindowDays,
		"fan_out", opts.MaxConcurrentWindows)

	var (
		mu            sync.Mutex
		all           Partials
		failedWindows []string
		totalWindows  int
	)

	// Top-level batches run sequentially; the windows inside a batch
	// fan out under the semaphore. Batches keep a years-long backfill
	// from queueing hundreds of windows at once.
	for _, batch := range SplitWindows(start, end, opts.BatchWindowDays) {
		windows := SplitWindows(batch.Start, batch.End, opts.OrderWindowDays)
		totalWindows += len(windows)

		sem := make(chan struct{}, opts.MaxConcurrentWindows)
		var wg sync.WaitGroup
		for _, window := range windows {
			wg.Add(1)
			sem <- struct{}{}
			go func(w domain.DateWindow) {
				defer wg.Done()
				defer func() { <-sem }()

				partials, errs := p.processWindow(ctx, brandID, creds, w, loc, mode, opts.NewSource)

				mu.Lock()
				all.append(partials)
				for _, werr := range errs {
					failedWindows = append(failedWindows, fmt.Sprintf("%s: %v", w.String(), werr))
				}
				mu.Unlock()
			}(window)
		}
		wg.Wait()
	}

	records := Merge(brandID, all, mode, existing, opts.NewSource)
	saved, err := p.metrics.BulkUpsert(ctx, records)
	if err != nil {
		return fail(fmt.Sprintf("saving metrics: %v", err))
	}

	msg := fmt.Sprintf("synced %d days across %d windows", saved, totalWindows)
	if len(failedWindows) > 0 {
		msg = fmt.Sprintf("%s (%d source failures, partial data)", msg, len(failedWindows))
	}
	logger.Info("sync run finished", "run_id", runID, "brand_id", brandID, "saved", saved, "failures", len(failedWindows))

	p.notifier.Publish(ctx, domain.Notification{
		Success: true, Message: msg, BrandID: brandID, UserID: userID, RunID: runID,
	})

	return domain.SyncResult{
		Success:           true,
		Message:           msg,
		Data:              records,
		TotalChunks:       totalWindows,
		TotalSavedEntries: saved,
		FailedWindows:     failedWindows,
	}
}

// processWindow fetches the three sources for one window concurrently.
// A failed source contributes an empty partial and an entry in errs;
// it never aborts the other sources or the window.
func (p *Pipeline) processWindow(ctx context.Context, brandID string, creds *domain.Credentials, window domain.DateWindow, loc *time.Location, mode domain.SyncMode, newSource domain.Source) (Partials, []error) {
	// In incremental mode only the newly connected source is fetched;
	// everything else already lives in the stored records.
	fetch := func(src domain.Source) bool {
		return mode == domain.SyncFull || newSource == src
	}

	type sourceResult struct {
		source domain.Source
		p      Partials
		err    error
	}
	results := make(chan sourceResult, 3)
	var wg sync.WaitGroup

	if creds.Shopify != nil && fetch(domain.SourceShopify) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			orders, err := p.orders.ReadOrders(ctx, *creds.Shopify, window, loc)
			// The reader hands back whatever it managed to fetch
			// before a failure; keep the partial either way.
			part := Partials{Orders: AggregateOrders(orders, loc)}
			p.reconcileRefunds(ctx, brandID, orders)
			results <- sourceResult{domain.SourceShopify, part, err}
		}()
	}
	if creds.Meta != nil && fetch(domain.SourceMeta) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			daily, err := p.meta.FetchDailyInsights(ctx, *creds.Meta, window)
			results <- sourceResult{domain.SourceMeta, Partials{Meta: daily}, err}
		}()
	}
	if creds.Google != nil && fetch(domain.SourceGoogle) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			daily, err := p.google.FetchDailyMetrics(ctx, *creds.Google, window)
			results <- sourceResult{domain.SourceGoogle, Partials{Google: daily}, err}
		}()
	}

	wg.Wait()
	close(results)

	var out Partials
	var errs []error
	for res := range results {
		out.append(res.p)
		if res.err != nil {
			logger.Warn("source failed for window",
				"brand_id", brandID,
				"source", string(res.source),
				"window", window.String(),
				"error", res.err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", res.source, res.err))
		}
	}
	return out, errs
}

// reconcileRefunds records refund totals for every order that has any.
// Reconciliation failures are logged and swallowed; refund records are
// best-effort bookkeeping, not part of the window's success criteria.
func (p *Pipeline) reconcileRefunds(ctx context.Context, brandID string, orders []domain.NormalizedOrder) {
	if p.reconciler == nil {
		return
	}
	for _, o := range orders {
		if err := p.reconciler.Reconcile(ctx, brandID, o); err != nil {
			logger.Warn("refund reconciliation failed",
				"brand_id", brandID,
				"order_id", o.ID,
				"error", err.Error())
		}
	}
}
