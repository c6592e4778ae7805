package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pipeline"
)

// The handler tests drive a real pipeline wired with in-memory fakes;
// the handler's own job is request parsing and result passthrough.

type stubCredStore struct{}

func (stubCredStore) Brand(ctx context.Context, brandID string) (*domain.Brand, error) {
	return &domain.Brand{ID: brandID, UserID: "u1", Name: "Acme", Timezone: "UTC"}, nil
}

func (stubCredStore) ForBrand(ctx context.Context, brandID string) (*domain.Credentials, error) {
	return &domain.Credentials{
		Shopify: &domain.ShopifyCredentials{ShopDomain: "acme.example.com", AccessToken: "t"},
	}, nil
}

type stubOrderReader struct{ windows []domain.DateWindow }

func (s *stubOrderReader) ReadOrders(ctx context.Context, creds domain.ShopifyCredentials, window domain.DateWindow, loc *time.Location) ([]domain.NormalizedOrder, error) {
	s.windows = append(s.windows, window)
	return []domain.NormalizedOrder{
		{ID: 1, CreatedAt: window.Start.Add(12 * time.Hour), TotalPrice: 100, IsPrepaid: true},
	}, nil
}

type stubMetricsStore struct{ saved int }

func (s *stubMetricsStore) FindRange(ctx context.Context, brandID, start, end string) ([]domain.DailyMetricsRecord, error) {
	return nil, nil
}

func (s *stubMetricsStore) BulkUpsert(ctx context.Context, records []domain.DailyMetricsRecord) (int, error) {
	s.saved = len(records)
	return len(records), nil
}

type stubNotifier struct{}

func (stubNotifier) Publish(ctx context.Context, n domain.Notification) {}

func newTestRouter() (*stubOrderReader, *stubMetricsStore, http.Handler) {
	orders := &stubOrderReader{}
	metrics := &stubMetricsStore{}
	p := pipeline.New(stubCredStore{}, orders, nil, nil, metrics, nil, stubNotifier{}, nil)
	h := NewHandlers(p, pipeline.Options{OrderWindowDays: 7, BatchWindowDays: 120, MaxConcurrentWindows: 2})
	return orders, metrics, SetupRoutes(h)
}

func TestHealthCheck(t *testing.T) {
	_, _, router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestTriggerSyncRunsPipeline(t *testing.T) {
	orders, metrics, router := newTestRouter()

	body := `{"start_date": "2024-01-01", "end_date": "2024-01-14", "user_id": "u1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands/b1/metrics/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.Success, result.Message)
	// End date is inclusive: Jan 1..14 is 14 days, two 7-day windows.
	assert.Equal(t, 2, result.TotalChunks)
	assert.NotEmpty(t, orders.windows)
	assert.Positive(t, metrics.saved)
}

func TestTriggerSyncRejectsBadBody(t *testing.T) {
	_, _, router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands/b1/metrics/sync", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriggerSyncRejectsBadDates(t *testing.T) {
	_, _, router := newTestRouter()

	for _, body := range []string{
		`{"start_date": "01/01/2024", "end_date": "2024-01-14"}`,
		`{"start_date": "2024-01-01", "end_date": "Jan 14"}`,
		`{"end_date": "2024-01-14"}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/brands/b1/metrics/sync", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equalf(t, http.StatusBadRequest, rec.Code, "body %s", body)
	}
}

func TestTriggerSyncRejectsUnknownSource(t *testing.T) {
	_, _, router := newTestRouter()

	body := `{"start_date": "2024-01-01", "end_date": "2024-01-14", "new_source": "tiktok"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands/b1/metrics/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid new_source")
}

func TestTriggerSyncFailedRunStillReturns200(t *testing.T) {
	_, _, router := newTestRouter()

	// Inverted range: the pipeline reports failure in the result body.
	body := `{"start_date": "2024-02-01", "end_date": "2024-01-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/brands/b1/metrics/sync", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var result domain.SyncResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.False(t, result.Success)
}
