// Package httpretry provides an HTTP request executor with linear
// backoff and a transient/fatal error taxonomy for the external
// platform APIs this service polls.
package httpretry

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beasroy/shopify-SAAS-sub002/internal/pkg/logger"
)

// HTTPDoer is the interface for executing HTTP requests.
// Both *http.Client and *RetryClient satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RetryClient wraps an HTTPDoer with retry logic. Only transient
// failures (429, 5xx, network/timeout errors) are retried; the delay
// before attempt n is n*baseDelay. Safe for concurrent use.
type RetryClient struct {
	client     HTTPDoer
	maxRetries int
	baseDelay  time.Duration
}

// NewRetryClient creates a RetryClient around the given HTTPDoer.
// A nil client gets a default http.Client with a 30s timeout.
// maxRetries is the number of retry attempts after the initial request.
func NewRetryClient(client HTTPDoer, maxRetries int, baseDelay time.Duration) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}
	return &RetryClient{
		client:     client,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}
}

// Do executes the request, retrying transient failures. On a fatal
// status (4xx other than 429) the response is returned as-is on the
// first attempt so the caller can read the body. On the final attempt
// a still-retryable response is also returned as-is.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpretry: reset request body: %w", err)
				}
				req.Body = body
			}

			delay := time.Duration(attempt) * rc.baseDelay
			logger.Debug("httpretry: retrying request",
				"attempt", attempt,
				"max", rc.maxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"path", req.URL.Path,
				"delay", delay.String())

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			classified := classifyNetErr(err)
			if !IsTransient(classified) {
				return nil, classified
			}
			lastErr = classified
			continue
		}

		statusErr := ClassifyStatus(resp.StatusCode)
		if statusErr == nil || !IsTransient(statusErr) {
			// Success, or a fatal status no retry can fix.
			return resp, nil
		}
		if attempt == rc.maxRetries {
			return resp, nil
		}

		// Retryable status. Drain for connection reuse, then go again.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = &TransientError{Status: resp.StatusCode}
	}

	return nil, lastErr
}

// ReadResponse drains a response body and converts non-2xx statuses
// into the classified error taxonomy, attaching a snippet of the body.
func ReadResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if clsErr := ClassifyStatus(resp.StatusCode); clsErr != nil {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		switch e := clsErr.(type) {
		case *TransientError:
			e.Err = fmt.Errorf("%s", snippet)
			return nil, e
		case *FatalError:
			e.Err = fmt.Errorf("%s", snippet)
			return nil, e
		}
		return nil, clsErr
	}
	return body, nil
}
