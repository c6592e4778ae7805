// Package credentials looks up brands and their connected platform
// accounts. Token acquisition and refresh-token storage happen in an
// auth service outside this repository; this store only reads.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/beasroy/shopify-SAAS-sub002/internal/domain"
)

// ErrNotFound is returned when a brand does not exist.
var ErrNotFound = errors.New("brand not found")

// Store resolves brands and their platform credentials.
type Store interface {
	Brand(ctx context.Context, brandID string) (*domain.Brand, error)
	ForBrand(ctx context.Context, brandID string) (*domain.Credentials, error)
}

// PostgresStore implements Store against the shared Postgres database.
type PostgresStore struct{ db *sql.DB }

// NewPostgresStore creates a Postgres-backed credential store.
func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

// Brand returns the brand row, including its storefront timezone.
func (s *PostgresStore) Brand(ctx context.Context, brandID string) (*domain.Brand, error) {
	b := &domain.Brand{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, COALESCE(timezone, 'UTC')
		FROM brands
		WHERE id = $1
	`, brandID).Scan(&b.ID, &b.UserID, &b.Name, &b.Timezone)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get brand: %w", err)
	}
	return b, nil
}

// ForBrand returns whatever platform accounts the brand has connected.
// A source the brand never connected comes back as a nil member, not
// an error.
func (s *PostgresStore) ForBrand(ctx context.Context, brandID string) (*domain.Credentials, error) {
	creds := &domain.Credentials{}

	var shop domain.ShopifyCredentials
	err := s.db.QueryRowContext(ctx, `
		SELECT shop_domain, access_token
		FROM shopify_accounts
		WHERE brand_id = $1
	`, brandID).Scan(&shop.ShopDomain, &shop.AccessToken)
	if err == nil {
		creds.Shopify = &shop
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get shopify credentials: %w", err)
	}

	var meta domain.MetaCredentials
	err = s.db.QueryRowContext(ctx, `
		SELECT account_id, access_token
		FROM meta_ad_accounts
		WHERE brand_id = $1
	`, brandID).Scan(&meta.AccountID, &meta.AccessToken)
	if err == nil {
		creds.Meta = &meta
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get meta credentials: %w", err)
	}

	var google domain.GoogleCredentials
	err = s.db.QueryRowContext(ctx, `
		SELECT customer_id, refresh_token, COALESCE(login_customer_id, '')
		FROM google_ad_accounts
		WHERE brand_id = $1
	`, brandID).Scan(&google.CustomerID, &google.RefreshToken, &google.LoginCustomerID)
	if err == nil {
		creds.Google = &google
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("get google credentials: %w", err)
	}

	return creds, nil
}
