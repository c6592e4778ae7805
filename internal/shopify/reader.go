package shopify

import (
	"context"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
)

// maxPagesPerWindow is a safety valve against a cursor loop that
// never terminates.
const maxPagesPerWindow = 200

// Reader walks the cursor-paginated orders query for one window,
// deduplicates within and across pages, and returns normalized orders.
type Reader struct {
	client    *Client
	pageDelay time.Duration
	debug     *logger.Registry
}

// NewReader creates a paginated order reader. The debug registry
// receives one entry per payment-classification decision, keyed by the
// order's calendar date in the store's timezone.
func NewReader(client *Client, pageDelay time.Duration, debug *logger.Registry) *Reader {
	return &Reader{client: client, pageDelay: pageDelay, debug: debug}
}

// ReadOrders fetches every order created inside the half-open window,
// bucketing dates in loc (the brand's storefront timezone). On a page
// failure it returns whatever it accumulated together with the error,
// so the orchestrator can keep the partial and move on; wholesale
// window retries are not attempted here, only per-request retries
// inside the HTTP client.
func (r *Reader) ReadOrders(ctx context.Context, creds domain.ShopifyCredentials, window domain.DateWindow, loc *time.Location) ([]domain.NormalizedOrder, error) {
	var orders []domain.NormalizedOrder
	seen := make(map[int64]struct{})
	pageInfo := ""

	for page := 0; page < maxPagesPerWindow; page++ {
		resp, err := r.client.FetchOrdersPage(ctx, creds, window, pageInfo)
		if err != nil {
			logger.Warn("order page fetch failed, keeping partial window",
				"shop", creds.ShopDomain,
				"window", window.String(),
				"page", page,
				"error", err.Error())
			return orders, err
		}

		for _, raw := range resp.Orders {
			if raw.Test {
				continue
			}
			// The upstream max filter is inclusive; enforce the
			// exclusive upper bound here so a boundary order lands in
			// exactly one window.
			if !window.Contains(raw.CreatedAt) {
				continue
			}
			if _, dup := seen[raw.ID]; dup {
				// Known upstream pagination artifact: the same order
				// can appear on two consecutive pages.
				logger.Debug("duplicate order id in window, dropping",
					"order_id", raw.ID,
					"window", window.String())
				continue
			}
			seen[raw.ID] = struct{}{}

			n := Normalize(raw)
			orders = append(orders, n)
			r.logClassification(raw, n, loc)
		}

		if resp.NextPageInfo == "" {
			return orders, nil
		}
		pageInfo = resp.NextPageInfo

		select {
		case <-time.After(r.pageDelay):
		case <-ctx.Done():
			return orders, ctx.Err()
		}
	}

	logger.Warn("order window hit page safety limit",
		"shop", creds.ShopDomain,
		"window", window.String(),
		"pages", maxPagesPerWindow)
	return orders, nil
}

func (r *Reader) logClassification(raw Order, n domain.NormalizedOrder, loc *time.Location) {
	if r.debug == nil {
		return
	}
	day := raw.CreatedAt.In(loc).Format("2006-01-02")
	lg, err := r.debug.GetOrCreate(day)
	if err != nil {
		return
	}
	lg.Debug("payment classification",
		"order_id", raw.ID,
		"gateways", raw.PaymentGatewayNames,
		"cod", n.IsCOD,
		"prepaid", n.IsPrepaid,
		"cancelled", n.Cancelled)
}
