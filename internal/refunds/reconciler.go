// Package refunds keeps the external refund store in line with the
// latest refund totals computed from fetched orders.
package refunds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// RecordStore is the slice of the refund store the reconciler needs.
type RecordStore interface {
	Ensure(ctx context.Context, rec domain.RefundRecord) error
	SetAmount(ctx context.Context, brandID, orderID string, amount float64, count int) error
}

// Reconciler records computed refund totals against the refund store.
type Reconciler struct {
	store RecordStore
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(store RecordStore) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile ensures a refund record exists for the order and then
// overwrites its amount and count with the latest computation. No-op
// when the order carries no refund amount or brandID is absent, so
// calling it for every fetched order is safe and repeated runs
// converge on the same stored values.
func (r *Reconciler) Reconcile(ctx context.Context, brandID string, order domain.NormalizedOrder) error {
	if brandID == "" || order.RefundAmount <= 0 {
		return nil
	}

	orderID := strconv.FormatInt(order.ID, 10)
	rec := domain.RefundRecord{
		BrandID:        brandID,
		OrderID:        orderID,
		OrderCreatedAt: order.CreatedAt,
	}
	if err := r.store.Ensure(ctx, rec); err != nil {
		return fmt.Errorf("reconcile order %s: %w", orderID, err)
	}
	if err := r.store.SetAmount(ctx, brandID, orderID, order.RefundAmount, order.RefundCount); err != nil {
		return fmt.Errorf("reconcile order %s: %w", orderID, err)
	}
	return nil
}
