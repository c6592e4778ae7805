package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beasroy/shopify-SAAS-sub002/internal/credentials"
	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/distlock"
)

// --- fakes ---

type fakeCredStore struct {
	brand *domain.Brand
	creds *domain.Credentials
}

func (f *fakeCredStore) Brand(ctx context.Context, brandID string) (*domain.Brand, error) {
	if f.brand == nil {
		return nil, credentials.ErrNotFound
	}
	return f.brand, nil
}

func (f *fakeCredStore) ForBrand(ctx context.Context, brandID string) (*domain.Credentials, error) {
	return f.creds, nil
}

type fakeOrderReader struct {
	mu      sync.Mutex
	windows []domain.DateWindow
	orders  []domain.NormalizedOrder
	err     error
}

func (f *fakeOrderReader) ReadOrders(ctx context.Context, creds domain.ShopifyCredentials, window domain.DateWindow, loc *time.Location) ([]domain.NormalizedOrder, error) {
	f.mu.Lock()
	f.windows = append(f.windows, window)
	f.mu.Unlock()
	var in []domain.NormalizedOrder
	for _, o := range f.orders {
		if window.Contains(o.CreatedAt) {
			in = append(in, o)
		}
	}
	return in, f.err
}

type fakeMetaSource struct {
	mu    sync.Mutex
	calls int
	daily []domain.MetaDaily
	err   error
}

func (f *fakeMetaSource) FetchDailyInsights(ctx context.Context, creds domain.MetaCredentials, window domain.DateWindow) ([]domain.MetaDaily, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	var in []domain.MetaDaily
	for _, d := range f.daily {
		day, _ := time.Parse("2006-01-02", d.Date)
		if window.Contains(day) {
			in = append(in, d)
		}
	}
	return in, f.err
}

type fakeGoogleSource struct {
	mu    sync.Mutex
	calls int
	daily []domain.GoogleDaily
	err   error
}

func (f *fakeGoogleSource) FetchDailyMetrics(ctx context.Context, creds domain.GoogleCredentials, window domain.DateWindow) ([]domain.GoogleDaily, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	var in []domain.GoogleDaily
	for _, d := range f.daily {
		day, _ := time.Parse("2006-01-02", d.Date)
		if window.Contains(day) {
			in = append(in, d)
		}
	}
	return in, f.err
}

type fakeMetricsStore struct {
	existing []domain.DailyMetricsRecord
	findErr  error
	saved    []domain.DailyMetricsRecord
	saveErr  error
}

func (f *fakeMetricsStore) FindRange(ctx context.Context, brandID, start, end string) ([]domain.DailyMetricsRecord, error) {
	return f.existing, f.findErr
}

func (f *fakeMetricsStore) BulkUpsert(ctx context.Context, records []domain.DailyMetricsRecord) (int, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = records
	return len(records), nil
}

type fakeReconciler struct {
	mu     sync.Mutex
	orders []domain.NormalizedOrder
}

func (f *fakeReconciler) Reconcile(ctx context.Context, brandID string, order domain.NormalizedOrder) error {
	f.mu.Lock()
	f.orders = append(f.orders, order)
	f.mu.Unlock()
	return nil
}

type capturedNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (c *capturedNotifier) Publish(ctx context.Context, n domain.Notification) {
	c.mu.Lock()
	c.notifications = append(c.notifications, n)
	c.mu.Unlock()
}

func (c *capturedNotifier) last(t *testing.T) domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.notifications)
	return c.notifications[len(c.notifications)-1]
}

type fakeLock struct {
	acquired bool
	held     bool // someone else holds it
	released bool
}

func (l *fakeLock) Acquire(ctx context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired = true
	return true, nil
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.released = true
	return nil
}

// --- fixture ---

type fixture struct {
	store      *fakeCredStore
	orders     *fakeOrderReader
	meta       *fakeMetaSource
	google     *fakeGoogleSource
	metrics    *fakeMetricsStore
	reconciler *fakeReconciler
	notifier   *capturedNotifier
	lock       *fakeLock
	pipeline   *Pipeline
}

func newFixture() *fixture {
	f := &fixture{
		store: &fakeCredStore{
			brand: &domain.Brand{ID: "brand-1", UserID: "user-1", Name: "Acme", Timezone: "UTC"},
			creds: &domain.Credentials{
				Shopify: &domain.ShopifyCredentials{ShopDomain: "acme.example.com", AccessToken: "t"},
				Meta:    &domain.MetaCredentials{AccountID: "act_1", AccessToken: "t"},
				Google:  &domain.GoogleCredentials{CustomerID: "123", RefreshToken: "r"},
			},
		},
		orders:     &fakeOrderReader{},
		meta:       &fakeMetaSource{},
		google:     &fakeGoogleSource{},
		metrics:    &fakeMetricsStore{},
		reconciler: &fakeReconciler{},
		notifier:   &capturedNotifier{},
		lock:       &fakeLock{},
	}
	f.pipeline = New(f.store, f.orders, f.meta, f.google, f.metrics, f.reconciler, f.notifier,
		func(brandID string) distlock.Lock { return f.lock })
	return f
}

func runOpts() Options {
	return Options{OrderWindowDays: 7, BatchWindowDays: 120, MaxConcurrentWindows: 2}
}

// --- tests ---

func TestRunFullSyncHappyPath(t *testing.T) {
	f := newFixture()
	f.orders.orders = []domain.NormalizedOrder{
		{ID: 1, CreatedAt: day(2024, 1, 2), TotalPrice: 200, IsPrepaid: true},
		{ID: 2, CreatedAt: day(2024, 1, 10), TotalPrice: 300, RefundAmount: 50, IsCOD: true},
	}
	f.meta.daily = []domain.MetaDaily{{Date: "2024-01-02", Spend: 100, Revenue: 250}}
	f.google.daily = []domain.GoogleDaily{{Date: "2024-01-10", Spend: 20, Sales: 60}}

	result := f.pipeline.Run(context.Background(), "brand-1", "user-1", day(2024, 1, 1), day(2024, 1, 15), runOpts())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, 2, result.TotalChunks) // 14 days / 7
	assert.Equal(t, 2, result.TotalSavedEntries)
	assert.Empty(t, result.FailedWindows)

	require.Len(t, f.metrics.saved, 2)
	r1, r2 := f.metrics.saved[0], f.metrics.saved[1]
	assert.Equal(t, "2024-01-02", r1.Date)
	assert.InDelta(t, 200.0, r1.TotalSales, 1e-9)
	assert.InDelta(t, 100.0, r1.TotalSpend, 1e-9)
	assert.Equal(t, "2024-01-10", r2.Date)
	assert.InDelta(t, 250.0, r2.TotalSales, 1e-9) // 300 - 50 refund
	assert.Equal(t, 1, r2.CODOrderCount)

	// Lock lifecycle and notification.
	assert.True(t, f.lock.acquired)
	assert.True(t, f.lock.released)
	assert.True(t, f.notifier.last(t).Success)
	assert.Equal(t, "user-1", f.notifier.last(t).UserID)

	// Every fetched order passes through the reconciler.
	f.reconciler.mu.Lock()
	defer f.reconciler.mu.Unlock()
	require.Len(t, f.reconciler.orders, 2)
}

func TestRunFailsOnUnknownBrand(t *testing.T) {
	f := newFixture()
	f.store.brand = nil

	result := f.pipeline.Run(context.Background(), "ghost", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "brand lookup failed")
	assert.False(t, f.notifier.last(t).Success)
	assert.False(t, f.lock.acquired)
}

func TestRunFailsWithoutCommerceCredentials(t *testing.T) {
	f := newFixture()
	f.store.creds.Shopify = nil

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "no commerce platform credentials")
}

func TestRunFailsWhenLockHeld(t *testing.T) {
	f := newFixture()
	f.lock.held = true

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "already running")
	assert.Nil(t, f.metrics.saved)
}

func TestRunRejectsInvertedRange(t *testing.T) {
	f := newFixture()
	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 8), day(2024, 1, 1), runOpts())
	assert.False(t, result.Success)
}

func TestRunSourceFailureIsolatedToWindow(t *testing.T) {
	f := newFixture()
	f.orders.orders = []domain.NormalizedOrder{
		{ID: 1, CreatedAt: day(2024, 1, 2), TotalPrice: 100, IsPrepaid: true},
	}
	f.meta.err = errors.New("rate limited after retries")
	f.google.daily = []domain.GoogleDaily{{Date: "2024-01-03", Spend: 10, Sales: 30}}

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	// The run still succeeds: the failure shows up per window, and the
	// surviving sources' data is saved.
	require.True(t, result.Success)
	require.Len(t, result.FailedWindows, 1)
	assert.Contains(t, result.FailedWindows[0], "meta")
	assert.Contains(t, result.Message, "partial data")
	require.Len(t, f.metrics.saved, 2)
}

func TestRunKeepsPartialOrdersOnReaderError(t *testing.T) {
	f := newFixture()
	f.orders.orders = []domain.NormalizedOrder{
		{ID: 1, CreatedAt: day(2024, 1, 2), TotalPrice: 100, IsPrepaid: true},
	}
	f.orders.err = errors.New("page 3 failed")

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	require.True(t, result.Success)
	require.Len(t, result.FailedWindows, 1)
	assert.Contains(t, result.FailedWindows[0], "shopify")

	// The orders fetched before the failure still land in the records.
	require.Len(t, f.metrics.saved, 1)
	assert.InDelta(t, 100.0, f.metrics.saved[0].TotalSales, 1e-9)
}

func TestRunSkipsUnconnectedSources(t *testing.T) {
	f := newFixture()
	f.store.creds.Meta = nil
	f.store.creds.Google = nil
	f.orders.orders = []domain.NormalizedOrder{
		{ID: 1, CreatedAt: day(2024, 1, 2), TotalPrice: 100, IsPrepaid: true},
	}

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	require.True(t, result.Success)
	assert.Zero(t, f.meta.calls)
	assert.Zero(t, f.google.calls)
	require.Len(t, f.metrics.saved, 1)
	assert.Zero(t, f.metrics.saved[0].MetaSpend)
}

func TestRunIncrementalFetchesOnlyNewSource(t *testing.T) {
	f := newFixture()
	f.metrics.existing = []domain.DailyMetricsRecord{
		{BrandID: "brand-1", Date: "2024-01-02", MetaSpend: 100, MetaRevenue: 250, TotalSales: 500, TotalSpend: 100, GrossROI: 2.5},
	}
	f.google.daily = []domain.GoogleDaily{{Date: "2024-01-02", Spend: 20, Sales: 60}}

	opts := runOpts()
	opts.NewSource = domain.SourceGoogle
	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), opts)

	require.True(t, result.Success)
	assert.Zero(t, f.meta.calls)
	assert.Empty(t, f.orders.windows)
	require.Equal(t, 1, f.google.calls)

	require.Len(t, f.metrics.saved, 1)
	r := f.metrics.saved[0]
	assert.InDelta(t, 500.0, r.TotalSales, 1e-9)
	assert.InDelta(t, 120.0, r.TotalSpend, 1e-9)
	assert.InDelta(t, (250.0+60.0)/120.0, r.GrossROI, 1e-9)
}

func TestRunNewSourceWithoutHistoryStaysFull(t *testing.T) {
	f := newFixture()
	f.google.daily = []domain.GoogleDaily{{Date: "2024-01-02", Spend: 20, Sales: 60}}

	opts := runOpts()
	opts.NewSource = domain.SourceGoogle
	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), opts)

	require.True(t, result.Success)
	// No prior records in range: every connected source is fetched.
	assert.Equal(t, 1, f.meta.calls)
	assert.NotEmpty(t, f.orders.windows)
}

func TestRunInvalidTimezoneFallsBackToUTC(t *testing.T) {
	f := newFixture()
	f.store.brand.Timezone = "Mars/Olympus_Mons"
	f.orders.orders = []domain.NormalizedOrder{
		{ID: 1, CreatedAt: day(2024, 1, 2), TotalPrice: 100, IsPrepaid: true},
	}

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	require.True(t, result.Success)
	require.Len(t, f.metrics.saved, 1)
	assert.Equal(t, "2024-01-02", f.metrics.saved[0].Date)
}

func TestRunSaveErrorFailsRun(t *testing.T) {
	f := newFixture()
	f.metrics.saveErr = errors.New("db down")

	result := f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 8), runOpts())

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "saving metrics")
	assert.True(t, f.lock.released)
}

func TestRunWindowsCoverRequestedRange(t *testing.T) {
	f := newFixture()
	_ = f.pipeline.Run(context.Background(), "brand-1", "", day(2024, 1, 1), day(2024, 1, 31), runOpts())

	f.orders.mu.Lock()
	defer f.orders.mu.Unlock()
	require.Len(t, f.orders.windows, 5)

	// Every requested day must be owned by exactly one window.
	for d := day(2024, 1, 1); d.Before(day(2024, 1, 31)); d = d.AddDate(0, 0, 1) {
		owners := 0
		for _, w := range f.orders.windows {
			if w.Contains(d) {
				owners++
			}
		}
		assert.Equalf(t, 1, owners, "day %s", d.Format("2006-01-02"))
	}
}
