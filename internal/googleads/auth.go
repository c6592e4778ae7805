package googleads

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenProvider supplies bearer tokens for the ads API and can be
// forced to perform a fresh token exchange.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Refresh discards any cached access token so the next Token call
	// performs a fresh exchange with the refresh token.
	Refresh(ctx context.Context)
}

// AuthenticatedClient exchanges a long-lived refresh token for access
// tokens. The old backend forced a token refresh by rebuilding the
// whole API client object inside its retry loops; here the rebuild is
// a single explicit Refresh that swaps the token source.
type AuthenticatedClient struct {
	conf         *oauth2.Config
	refreshToken string

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewAuthenticatedClient creates a token provider for one refresh token.
func NewAuthenticatedClient(clientID, clientSecret, refreshToken string) *AuthenticatedClient {
	return &AuthenticatedClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
		refreshToken: refreshToken,
	}
}

// Token returns a valid access token, exchanging the refresh token as
// needed.
func (a *AuthenticatedClient) Token(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.source == nil {
		a.source = a.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refreshToken})
	}
	src := a.source
	a.mu.Unlock()

	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("exchanging refresh token: %w", err)
	}
	return tok.AccessToken, nil
}

// Refresh drops the cached token source.
func (a *AuthenticatedClient) Refresh(ctx context.Context) {
	a.mu.Lock()
	a.source = a.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: a.refreshToken})
	a.mu.Unlock()
}
