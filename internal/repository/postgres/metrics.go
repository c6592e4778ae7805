// Package postgres implements the document-store contract on
// PostgreSQL: point lookups, date-range finds, and unordered
// idempotent upserts keyed by (brand_id, date) or (brand_id, order_id).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// MetricsRepo persists daily metrics records.
type MetricsRepo struct{ db *sql.DB }

// NewMetricsRepo creates a Postgres-backed metrics repository.
func NewMetricsRepo(db *sql.DB) *MetricsRepo { return &MetricsRepo{db: db} }

// FindRange returns every record for the brand with date in
// [start, end), ordered by date. Dates are ISO day strings.
func (r *MetricsRepo) FindRange(ctx context.Context, brandID, start, end string) ([]domain.DailyMetricsRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT brand_id, date, meta_spend, meta_revenue,
		       google_spend, google_roas, google_sales,
		       total_sales, refund_amount,
		       cod_order_count, prepaid_order_count,
		       total_spend, gross_roi
		FROM daily_metrics
		WHERE brand_id = $1 AND date >= $2 AND date < $3
		ORDER BY date
	`, brandID, start, end)
	if err != nil {
		return nil, fmt.Errorf("find metrics range: %w", err)
	}
	defer rows.Close()

	var records []domain.DailyMetricsRecord
	for rows.Next() {
		var rec domain.DailyMetricsRecord
		if err := rows.Scan(
			&rec.BrandID, &rec.Date, &rec.MetaSpend, &rec.MetaRevenue,
			&rec.GoogleSpend, &rec.GoogleROAS, &rec.GoogleSales,
			&rec.TotalSales, &rec.RefundAmount,
			&rec.CODOrderCount, &rec.PrepaidOrderCount,
			&rec.TotalSpend, &rec.GrossROI,
		); err != nil {
			return nil, fmt.Errorf("scan metrics record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BulkUpsert writes all records in one statement. Re-running with the
// same inputs replaces the computed fields wholesale, so the write is
// idempotent per (brand_id, date). Returns the number of rows written.
func (r *MetricsRepo) BulkUpsert(ctx context.Context, records []domain.DailyMetricsRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	const fieldsPerRow = 13
	placeholders := make([]string, 0, len(records))
	args := make([]interface{}, 0, len(records)*fieldsPerRow)
	for i, rec := range records {
		base := i * fieldsPerRow
		marks := make([]string, fieldsPerRow)
		for j := range marks {
			marks[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(marks, ", ")+")")
		args = append(args,
			rec.BrandID, rec.Date, rec.MetaSpend, rec.MetaRevenue,
			rec.GoogleSpend, rec.GoogleROAS, rec.GoogleSales,
			rec.TotalSales, rec.RefundAmount,
			rec.CODOrderCount, rec.PrepaidOrderCount,
			rec.TotalSpend, rec.GrossROI,
		)
	}

	query := `
		INSERT INTO daily_metrics (
			brand_id, date, meta_spend, meta_revenue,
			google_spend, google_roas, google_sales,
			total_sales, refund_amount,
			cod_order_count, prepaid_order_count,
			total_spend, gross_roi
		) VALUES ` + strings.Join(placeholders, ", ") + `
		ON CONFLICT (brand_id, date) DO UPDATE SET
			meta_spend = EXCLUDED.meta_spend,
			meta_revenue = EXCLUDED.meta_revenue,
			google_spend = EXCLUDED.google_spend,
			google_roas = EXCLUDED.google_roas,
			google_sales = EXCLUDED.google_sales,
			total_sales = EXCLUDED.total_sales,
			refund_amount = EXCLUDED.refund_amount,
			cod_order_count = EXCLUDED.cod_order_count,
			prepaid_order_count = EXCLUDED.prepaid_order_count,
			total_spend = EXCLUDED.total_spend,
			gross_roi = EXCLUDED.gross_roi,
			updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("bulk upsert metrics: %w", err)
	}
	return len(records), nil
}
