// Package meta fetches daily ad spend and attributed revenue from the
// social ad network's insights API.
package meta

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/config"
	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/httpretry"
)

// maxInsightPages bounds the paging.next loop.
const maxInsightPages = 50

// Client is the insights API client.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient httpretry.HTTPDoer
}

// NewClient creates an insights client.
func NewClient(cfg config.MetaConfig, retryBaseDelay time.Duration) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, cfg.MaxRetries, retryBaseDelay),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing).
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// FetchDailyInsights returns one MetaDaily per calendar date in the
// window that has any delivery, following paging.next until the API
// reports no more pages.
func (c *Client) FetchDailyInsights(ctx context.Context, creds domain.MetaCredentials, window domain.DateWindow) ([]domain.MetaDaily, error) {
	since := window.Start.Format("2006-01-02")
	until := window.End.AddDate(0, 0, -1).Format("2006-01-02")

	params := url.Values{}
	params.Set("fields", "spend,action_values")
	params.Set("level", "account")
	params.Set("time_increment", "1")
	params.Set("time_range", fmt.Sprintf(`{"since":"%s","until":"%s"}`, since, until))
	params.Set("access_token", creds.AccessToken)

	reqURL := fmt.Sprintf("%s/%s/act_%s/insights?%s", c.baseURL, c.apiVersion, creds.AccountID, params.Encode())

	var daily []domain.MetaDaily
	for page := 0; reqURL != "" && page < maxInsightPages; page++ {
		resp, err := c.fetchPage(ctx, reqURL)
		if err != nil {
			return nil, err
		}

		for _, row := range resp.Data {
			d := domain.MetaDaily{Date: row.DateStart}
			d.Spend, _ = strconv.ParseFloat(row.Spend, 64)
			for _, av := range row.ActionValues {
				if purchaseActionTypes[av.ActionType] {
					v, _ := strconv.ParseFloat(av.Value, 64)
					d.Revenue += v
				}
			}
			daily = append(daily, d)
		}

		reqURL = ""
		if resp.Paging != nil {
			reqURL = resp.Paging.Next
		}
	}

	return daily, nil
}

func (c *Client) fetchPage(ctx context.Context, reqURL string) (*insightsResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing insights request: %w", err)
	}

	body, err := httpretry.ReadResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("insights request: %w", err)
	}

	var parsed insightsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &httpretry.FatalError{Err: fmt.Errorf("parsing insights response: %w", err)}
	}
	return &parsed, nil
}
