package shopify

import (
	"strings"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// codTokens is the gateway-name vocabulary that marks an order as
// cash-on-delivery. Matching is a case-insensitive substring check.
var codTokens = []string{
	"cod",
	"cash on delivery",
	"cash_on_delivery",
	"cashondelivery",
}

// Normalize converts a raw order into its computation-ready shape.
//
// Gross sales follows the long-standing rule from the reporting
// backend: with line items present, gross is the sum of price*quantity
// per item, minus that item's tax lines -- but the tax subtraction is
// skipped entirely (and TotalTaxes left at zero) whenever the order
// has any refund. That asymmetry is intentional legacy behavior; do
// not change it without product confirmation.
func Normalize(o Order) domain.NormalizedOrder {
	n := domain.NormalizedOrder{
		ID:             o.ID,
		CreatedAt:      o.CreatedAt,
		Cancelled:      o.CancelledAt != nil,
		TotalPrice:     o.TotalPrice.Float(),
		TotalDiscounts: o.TotalDiscounts.Float(),
		RefundCount:    len(o.Refunds),
	}

	hasRefund := len(o.Refunds) > 0

	if len(o.LineItems) > 0 {
		for _, item := range o.LineItems {
			n.GrossSales += item.Price.Float() * float64(item.Quantity)
			if hasRefund {
				continue
			}
			var itemTax float64
			for _, tl := range item.TaxLines {
				itemTax += tl.Price.Float()
			}
			n.GrossSales -= itemTax
			n.TotalTaxes += itemTax
		}
	} else {
		// Orders with no line items (e.g. draft conversions) fall
		// back to subtotal plus discounts.
		n.GrossSales = o.SubtotalPrice.Float() + o.TotalDiscounts.Float()
	}

	n.RefundAmount = refundAmount(o)
	n.IsCOD, n.IsPrepaid = classifyPayment(o.PaymentGatewayNames)

	return n
}

// refundAmount sums, across every refund on the order, the refunded
// line subtotals and taxes, refunded shipping amounts and taxes, and
// any order adjustments.
func refundAmount(o Order) float64 {
	var total float64
	for _, r := range o.Refunds {
		for _, li := range r.RefundLineItems {
			total += li.Subtotal.Float() + li.TotalTax.Float()
		}
		for _, sl := range r.RefundShippingLines {
			total += sl.Amount.Float() + sl.TaxAmount.Float()
		}
		for _, adj := range r.OrderAdjustments {
			total += adj.Amount.Float()
		}
	}
	return total
}

// classifyPayment derives the COD/prepaid flags from gateway names.
// COD wins when any gateway name contains a cash-on-delivery token;
// otherwise any gateway at all means prepaid.
func classifyPayment(gateways []string) (isCOD, isPrepaid bool) {
	for _, g := range gateways {
		lower := strings.ToLower(g)
		for _, token := range codTokens {
			if strings.Contains(lower, token) {
				return true, false
			}
		}
	}
	return false, len(gateways) > 0
}
