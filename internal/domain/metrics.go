package domain

import "time"

// DateWindow is a half-open [Start, End) slice of a sync range.
// The exclusive upper bound is what keeps consecutive windows from
// double-counting orders created exactly on a boundary.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days returns the window length in whole days, rounding up.
func (w DateWindow) Days() int {
	d := w.End.Sub(w.Start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (w DateWindow) String() string {
	return w.Start.Format("2006-01-02") + ".." + w.End.Format("2006-01-02")
}

// Source identifies one of the three upstream platforms.
type Source string

const (
	SourceMeta    Source = "meta"
	SourceGoogle  Source = "google"
	SourceShopify Source = "shopify"
)

// SyncMode selects the merge strategy for a run. It is decided once,
// up front, and passed down; merge code never infers it per call.
type SyncMode int

const (
	// SyncFull recomputes every (brand, date) record from scratch.
	SyncFull SyncMode = iota
	// SyncIncremental overlays one newly connected source onto records
	// that already exist from a previous backfill.
	SyncIncremental
)

func (m SyncMode) String() string {
	if m == SyncIncremental {
		return "incremental"
	}
	return "full"
}

// MetaDaily is the social-ads partial for one calendar date.
type MetaDaily struct {
	Date    string
	Spend   float64
	Revenue float64
}

// GoogleDaily is the search-ads partial for one calendar date.
type GoogleDaily struct {
	Date  string
	Spend float64
	ROAS  float64
	Sales float64
}

// OrderDaily is the commerce partial for one calendar date, aggregated
// from normalized orders bucketed in the brand's own timezone.
type OrderDaily struct {
	Date                string
	GrossSales          float64
	TotalTaxes          float64
	DiscountAmount      float64
	TotalPrice          float64
	RefundAmount        float64
	OrderCount          int
	CancelledOrderCount int
	CODOrderCount       int
	PrepaidOrderCount   int
}

// DailyMetricsRecord is the persisted rollup, unique per (BrandID, Date).
type DailyMetricsRecord struct {
	BrandID           string  `json:"brand_id"`
	Date              string  `json:"date"`
	MetaSpend         float64 `json:"meta_spend"`
	MetaRevenue       float64 `json:"meta_revenue"`
	GoogleSpend       float64 `json:"google_spend"`
	GoogleROAS        float64 `json:"google_roas"`
	GoogleSales       float64 `json:"google_sales"`
	TotalSales        float64 `json:"total_sales"`
	RefundAmount      float64 `json:"refund_amount"`
	CODOrderCount     int     `json:"cod_order_count"`
	PrepaidOrderCount int     `json:"prepaid_order_count"`
	TotalSpend        float64 `json:"total_spend"`
	GrossROI          float64 `json:"gross_roi"`
}

// Derive fills TotalSpend and GrossROI from the record's source fields.
// GrossROI is 0 whenever TotalSpend is 0, never NaN or Inf.
func (r *DailyMetricsRecord) Derive() {
	r.TotalSpend = r.MetaSpend + r.GoogleSpend
	if r.TotalSpend == 0 {
		r.GrossROI = 0
		return
	}
	r.GrossROI = (r.MetaRevenue + r.GoogleSales) / r.TotalSpend
}

// RefundRecord tracks the latest computed refund total for one order.
// Written only by the refund reconciler; read by downstream reporting.
type RefundRecord struct {
	BrandID        string
	OrderID        string
	OrderCreatedAt time.Time
	Amount         float64
	Count          int
}

// SyncResult is what every run returns to the caller, success or not.
type SyncResult struct {
	Success           bool                 `json:"success"`
	Message           string               `json:"message"`
	Data              []DailyMetricsRecord `json:"data"`
	TotalChunks       int                  `json:"total_chunks,omitempty"`
	TotalSavedEntries int                  `json:"total_saved_entries,omitempty"`
	FailedWindows     []string             `json:"failed_windows,omitempty"`
}

// Notification is the fire-and-forget completion/failure announcement.
type Notification struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	BrandID string `json:"brand_id"`
	UserID  string `json:"user_id,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}
