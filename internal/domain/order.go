package domain

import "time"

// NormalizedOrder is the flat, computation-ready projection of one
// commerce order. It is derived once per fetched order and never
// written back upstream.
type NormalizedOrder struct {
	ID             int64
	CreatedAt      time.Time
	Cancelled      bool
	GrossSales     float64
	TotalTaxes     float64
	TotalPrice     float64
	TotalDiscounts float64
	RefundAmount   float64
	RefundCount    int
	IsCOD          bool
	IsPrepaid      bool
}
