package pipeline

import (
	"sort"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// Partials carries per-date contributions from the three sources for
// some span of dates. A source that failed or is not connected simply
// contributes nothing.
type Partials struct {
	Meta   []domain.MetaDaily
	Google []domain.GoogleDaily
	Orders []domain.OrderDaily
}

// append merges other into p.
func (p *Partials) append(other Partials) {
	p.Meta = append(p.Meta, other.Meta...)
	p.Google = append(p.Google, other.Google...)
	p.Orders = append(p.Orders, other.Orders...)
}

// AggregateOrders buckets normalized orders into per-date commerce
// partials. Dates are keyed in loc -- the brand's storefront timezone
// -- never UTC or server-local time, so an evening order does not leak
// into the next day's record.
func AggregateOrders(orders []domain.NormalizedOrder, loc *time.Location) []domain.OrderDaily {
	byDate := make(map[string]*domain.OrderDaily)
	for _, o := range orders {
		day := o.CreatedAt.In(loc).Format("2006-01-02")
		d, ok := byDate[day]
		if !ok {
			d = &domain.OrderDaily{Date: day}
			byDate[day] = d
		}

		d.GrossSales += o.GrossSales
		d.TotalTaxes += o.TotalTaxes
		d.DiscountAmount += o.TotalDiscounts
		d.TotalPrice += o.TotalPrice
		d.RefundAmount += o.RefundAmount
		d.OrderCount++

		// Cancelled orders are excluded from the payment-method
		// counts but still counted as cancelled.
		switch {
		case o.Cancelled:
			d.CancelledOrderCount++
		case o.IsCOD:
			d.CODOrderCount++
		case o.IsPrepaid:
			d.PrepaidOrderCount++
		}
	}

	days := make([]string, 0, len(byDate))
	for day := range byDate {
		days = append(days, day)
	}
	sort.Strings(days)

	daily := make([]domain.OrderDaily, 0, len(byDate))
	for _, day := range days {
		daily = append(daily, *byDate[day])
	}
	return daily
}

// Merge combines per-date partials from all sources into final
// records. In full mode every date seen by any source produces a
// record with absent sources zeroed. In incremental mode -- a brand
// connected a new source after its initial backfill -- only the new
// source's fields are overlaid onto the existing stored records and
// the two derived fields recomputed; dates with no existing record get
// a fresh one from the new source alone.
func Merge(brandID string, p Partials, mode domain.SyncMode, existing []domain.DailyMetricsRecord, newSource domain.Source) []domain.DailyMetricsRecord {
	if mode == domain.SyncIncremental {
		return mergeIncremental(brandID, p, existing, newSource)
	}
	return mergeFull(brandID, p)
}

func mergeFull(brandID string, p Partials) []domain.DailyMetricsRecord {
	byDate := make(map[string]*domain.DailyMetricsRecord)
	get := func(date string) *domain.DailyMetricsRecord {
		rec, ok := byDate[date]
		if !ok {
			rec = &domain.DailyMetricsRecord{BrandID: brandID, Date: date}
			byDate[date] = rec
		}
		return rec
	}

	for _, m := range p.Meta {
		rec := get(m.Date)
		rec.MetaSpend = m.Spend
		rec.MetaRevenue = m.Revenue
	}
	for _, g := range p.Google {
		rec := get(g.Date)
		rec.GoogleSpend = g.Spend
		rec.GoogleROAS = g.ROAS
		rec.GoogleSales = g.Sales
	}
	// Commerce fields accumulate: a non-UTC brand's local date can
	// straddle a window boundary, so two windows may each contribute an
	// OrderDaily for the same date.
	for _, o := range p.Orders {
		rec := get(o.Date)
		rec.TotalSales += o.TotalPrice - o.RefundAmount
		rec.RefundAmount += o.RefundAmount
		rec.CODOrderCount += o.CODOrderCount
		rec.PrepaidOrderCount += o.PrepaidOrderCount
	}

	return finalize(byDate)
}

func mergeIncremental(brandID string, p Partials, existing []domain.DailyMetricsRecord, newSource domain.Source) []domain.DailyMetricsRecord {
	byDate := make(map[string]*domain.DailyMetricsRecord, len(existing))
	for _, rec := range existing {
		copied := rec
		byDate[rec.Date] = &copied
	}
	get := func(date string) *domain.DailyMetricsRecord {
		rec, ok := byDate[date]
		if !ok {
			rec = &domain.DailyMetricsRecord{BrandID: brandID, Date: date}
			byDate[date] = rec
		}
		return rec
	}

	touched := make(map[string]bool)
	switch newSource {
	case domain.SourceMeta:
		for _, m := range p.Meta {
			rec := get(m.Date)
			rec.MetaSpend = m.Spend
			rec.MetaRevenue = m.Revenue
			touched[m.Date] = true
		}
	case domain.SourceGoogle:
		for _, g := range p.Google {
			rec := get(g.Date)
			rec.GoogleSpend = g.Spend
			rec.GoogleROAS = g.ROAS
			rec.GoogleSales = g.Sales
			touched[g.Date] = true
		}
	case domain.SourceShopify:
		for _, o := range p.Orders {
			rec := get(o.Date)
			// The stored commerce fields are replaced wholesale by the
			// new computation, but contributions from multiple windows
			// for the same local date still accumulate.
			if !touched[o.Date] {
				rec.TotalSales = 0
				rec.RefundAmount = 0
				rec.CODOrderCount = 0
				rec.PrepaidOrderCount = 0
			}
			rec.TotalSales += o.TotalPrice - o.RefundAmount
			rec.RefundAmount += o.RefundAmount
			rec.CODOrderCount += o.CODOrderCount
			rec.PrepaidOrderCount += o.PrepaidOrderCount
			touched[o.Date] = true
		}
	}

	// Only dates the new source touched need rewriting.
	for date := range byDate {
		if !touched[date] {
			delete(byDate, date)
		}
	}

	return finalize(byDate)
}

func finalize(byDate map[string]*domain.DailyMetricsRecord) []domain.DailyMetricsRecord {
	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	records := make([]domain.DailyMetricsRecord, 0, len(byDate))
	for _, date := range dates {
		rec := byDate[date]
		rec.Derive()
		records = append(records, *rec)
	}
	return records
}
