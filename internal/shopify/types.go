package shopify

import (
	"bytes"
	"strconv"
	"time"
)

// Money is a monetary amount from the Admin API. The API is
// inconsistent about encoding money as JSON strings ("12.34") versus
// numbers (12.34), so Money accepts both.
type Money float64

// UnmarshalJSON parses a string, number, or null into a Money value.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = Money(f)
	return nil
}

// Float returns the amount as a float64.
func (m Money) Float() float64 { return float64(m) }

// Order is one commerce order as the paginated Admin API returns it.
// Fetched read-only; identity is the externally assigned ID.
type Order struct {
	ID                  int64      `json:"id"`
	Name                string     `json:"name"`
	Test                bool       `json:"test"`
	CreatedAt           time.Time  `json:"created_at"`
	CancelledAt         *time.Time `json:"cancelled_at"`
	TotalPrice          Money      `json:"total_price"`
	SubtotalPrice       Money      `json:"subtotal_price"`
	TotalDiscounts      Money      `json:"total_discounts"`
	TotalTax            Money      `json:"total_tax"`
	LineItems           []LineItem `json:"line_items"`
	PaymentGatewayNames []string   `json:"payment_gateway_names"`
	Refunds             []Refund   `json:"refunds"`
}

// LineItem is one order line with its per-item tax lines.
type LineItem struct {
	Quantity int       `json:"quantity"`
	Price    Money     `json:"price"`
	TaxLines []TaxLine `json:"tax_lines"`
}

// TaxLine is one tax amount applied to a line item.
type TaxLine struct {
	Price Money `json:"price"`
}

// Refund is one refund event on an order.
type Refund struct {
	CreatedAt           time.Time            `json:"created_at"`
	RefundLineItems     []RefundLineItem     `json:"refund_line_items"`
	RefundShippingLines []RefundShippingLine `json:"refund_shipping_lines"`
	OrderAdjustments    []OrderAdjustment    `json:"order_adjustments"`
}

// RefundLineItem is one refunded order line.
type RefundLineItem struct {
	Subtotal Money `json:"subtotal"`
	TotalTax Money `json:"total_tax"`
}

// RefundShippingLine is refunded shipping on a refund.
type RefundShippingLine struct {
	Amount    Money `json:"amount"`
	TaxAmount Money `json:"tax_amount"`
}

// OrderAdjustment is a manual adjustment attached to a refund.
type OrderAdjustment struct {
	Amount Money `json:"amount"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
}
