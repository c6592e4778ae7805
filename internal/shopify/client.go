package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/config"
	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/httpretry"
)

// Client is a commerce-platform Admin API client. Shop domain and
// access token are per-brand and supplied with each call.
type Client struct {
	apiVersion string
	pageSize   int
	httpClient httpretry.HTTPDoer
}

// NewClient creates an orders API client.
func NewClient(cfg config.ShopifyConfig, retryBaseDelay time.Duration) *Client {
	return &Client{
		apiVersion: cfg.APIVersion,
		pageSize:   cfg.PageSize,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries, retryBaseDelay),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

func (c *Client) ordersURL(creds domain.ShopifyCredentials) string {
	domainName := creds.ShopDomain
	if !strings.HasPrefix(domainName, "http://") && !strings.HasPrefix(domainName, "https://") {
		domainName = "https://" + domainName
	}
	return fmt.Sprintf("%s/admin/api/%s/orders.json", domainName, c.apiVersion)
}

// OrdersPage is one page of the paginated orders query plus the
// cursor for the next page ("" when the API reports no next page).
type OrdersPage struct {
	Orders       []Order
	NextPageInfo string
}

// FetchOrdersPage fetches one page of orders. The first page of a
// window passes the created-at bounds; subsequent pages pass only the
// page_info cursor, because the API rejects filter params alongside a
// cursor.
func (c *Client) FetchOrdersPage(ctx context.Context, creds domain.ShopifyCredentials, window domain.DateWindow, pageInfo string) (*OrdersPage, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", c.pageSize))
	if pageInfo != "" {
		params.Set("page_info", pageInfo)
	} else {
		params.Set("status", "any")
		params.Set("created_at_min", window.Start.UTC().Format(time.RFC3339))
		params.Set("created_at_max", window.End.UTC().Format(time.RFC3339))
	}

	reqURL := c.ordersURL(creds) + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing orders request: %w", err)
	}

	next := parseNextPageInfo(resp.Header.Get("Link"))

	body, err := httpretry.ReadResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("orders request: %w", err)
	}

	var parsed ordersResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &httpretry.FatalError{Err: fmt.Errorf("parsing orders response: %w", err)}
	}

	return &OrdersPage{Orders: parsed.Orders, NextPageInfo: next}, nil
}

// parseNextPageInfo extracts the page_info cursor from an RFC 5988
// Link header's rel="next" entry, if any.
func parseNextPageInfo(link string) string {
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start < 0 || end < 0 || end <= start {
			continue
		}
		u, err := url.Parse(part[start+1 : end])
		if err != nil {
			continue
		}
		return u.Query().Get("page_info")
	}
	return ""
}
