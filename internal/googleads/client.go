// Package googleads fetches daily spend, sales, and ROAS from the
// search ad network's reporting API.
package googleads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/config"
	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/httpretry"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
)

// Client is the reporting API client. One Client serves every brand;
// refresh tokens are per-call.
type Client struct {
	cfg        config.GoogleConfig
	httpClient httpretry.HTTPDoer
	authDelay  time.Duration

	// newTokenProvider is swappable for tests.
	newTokenProvider func(refreshToken string) TokenProvider
}

// NewClient creates a reporting client.
func NewClient(cfg config.GoogleConfig, retryBaseDelay time.Duration) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries, retryBaseDelay),
		authDelay: 2 * time.Second,
	}
	c.newTokenProvider = func(refreshToken string) TokenProvider {
		return NewAuthenticatedClient(cfg.ClientID, cfg.ClientSecret, refreshToken)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// SetTokenProvider overrides token acquisition (useful for testing).
func (c *Client) SetTokenProvider(fn func(refreshToken string) TokenProvider) {
	c.newTokenProvider = fn
}

// FetchDailyMetrics returns one GoogleDaily per date in the window
// with any spend or conversions. On a classified auth error the token
// provider is refreshed and the query re-attempted, up to AuthRetries
// times with a short delay, before giving up.
func (c *Client) FetchDailyMetrics(ctx context.Context, creds domain.GoogleCredentials, window domain.DateWindow) ([]domain.GoogleDaily, error) {
	provider := c.newTokenProvider(creds.RefreshToken)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.AuthRetries; attempt++ {
		if attempt > 0 {
			logger.Warn("ads auth failed, refreshing token",
				"customer_id", creds.CustomerID,
				"attempt", attempt)
			provider.Refresh(ctx)
			select {
			case <-time.After(c.authDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		daily, err := c.fetchOnce(ctx, provider, creds, window)
		if err == nil {
			return daily, nil
		}
		lastErr = err
		if !httpretry.IsAuthError(err) {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) fetchOnce(ctx context.Context, provider TokenProvider, creds domain.GoogleCredentials, window domain.DateWindow) ([]domain.GoogleDaily, error) {
	token, err := provider.Token(ctx)
	if err != nil {
		return nil, &httpretry.FatalError{Status: http.StatusUnauthorized, Err: err}
	}

	query := fmt.Sprintf(
		"SELECT segments.date, metrics.cost_micros, metrics.conversions_value "+
			"FROM customer WHERE segments.date BETWEEN '%s' AND '%s'",
		window.Start.Format("2006-01-02"),
		window.End.AddDate(0, 0, -1).Format("2006-01-02"),
	)
	payload, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshaling report query: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/customers/%s/googleAds:searchStream",
		c.cfg.BaseURL, c.cfg.APIVersion, creds.CustomerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("developer-token", c.cfg.DeveloperToken)
	if creds.LoginCustomerID != "" {
		req.Header.Set("login-customer-id", creds.LoginCustomerID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing report request: %w", err)
	}
	body, err := httpretry.ReadResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("report request: %w", err)
	}

	var chunks []searchStreamChunk
	if err := json.Unmarshal(body, &chunks); err != nil {
		return nil, &httpretry.FatalError{Err: fmt.Errorf("parsing report response: %w", err)}
	}

	return aggregateDaily(chunks), nil
}

// aggregateDaily folds report rows into per-date totals and derives
// ROAS. ROAS is 0 when spend is 0.
func aggregateDaily(chunks []searchStreamChunk) []domain.GoogleDaily {
	byDate := make(map[string]*domain.GoogleDaily)
	for _, chunk := range chunks {
		for _, row := range chunk.Results {
			d, ok := byDate[row.Segments.Date]
			if !ok {
				d = &domain.GoogleDaily{Date: row.Segments.Date}
				byDate[row.Segments.Date] = d
			}
			micros, _ := strconv.ParseInt(row.Metrics.CostMicros, 10, 64)
			d.Spend += float64(micros) / 1e6
			d.Sales += row.Metrics.ConversionsValue
		}
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	daily := make([]domain.GoogleDaily, 0, len(byDate))
	for _, date := range dates {
		d := byDate[date]
		if d.Spend > 0 {
			d.ROAS = d.Sales / d.Spend
		}
		daily = append(daily, *d)
	}
	return daily
}
