package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// RefundRepo persists per-order refund records. It is written only by
// the refund reconciler; downstream reporting reads it elsewhere.
type RefundRepo struct{ db *sql.DB }

// NewRefundRepo creates a Postgres-backed refund record repository.
func NewRefundRepo(db *sql.DB) *RefundRepo { return &RefundRepo{db: db} }

// Ensure creates the (brand_id, order_id) record if absent, keyed by
// the order's original creation timestamp. Re-running is a no-op.
func (r *RefundRepo) Ensure(ctx context.Context, rec domain.RefundRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_refunds (brand_id, order_id, order_created_at, amount, refund_count)
		VALUES ($1, $2, $3, 0, 0)
		ON CONFLICT (brand_id, order_id) DO NOTHING
	`, rec.BrandID, rec.OrderID, rec.OrderCreatedAt)
	if err != nil {
		return fmt.Errorf("ensure refund record: %w", err)
	}
	return nil
}

// SetAmount overwrites the record with the latest computed amount and
// count. Latest-computation-wins, not additive, so repeated runs
// converge instead of accumulating.
func (r *RefundRepo) SetAmount(ctx context.Context, brandID, orderID string, amount float64, count int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE order_refunds
		SET amount = $3, refund_count = $4, updated_at = NOW()
		WHERE brand_id = $1 AND order_id = $2
	`, brandID, orderID, amount, count)
	if err != nil {
		return fmt.Errorf("set refund amount: %w", err)
	}
	return nil
}
