package domain

// Brand is one merchant tenant whose platform accounts get aggregated.
// Timezone is the IANA zone of the brand's storefront; all order date
// bucketing uses it rather than UTC or server-local time.
type Brand struct {
	ID       string
	UserID   string
	Name     string
	Timezone string
}

// ShopifyCredentials identify one storefront plus its Admin API token.
type ShopifyCredentials struct {
	ShopDomain  string
	AccessToken string
}

// MetaCredentials identify one ad account on the social ad network.
type MetaCredentials struct {
	AccountID   string
	AccessToken string
}

// GoogleCredentials identify one search-ads customer. The refresh token
// is exchanged for short-lived access tokens by the googleads client.
type GoogleCredentials struct {
	CustomerID      string
	RefreshToken    string
	LoginCustomerID string
}

// Credentials bundles whatever platform accounts a brand has connected.
// A nil member means that source is not connected for the brand.
type Credentials struct {
	Shopify *ShopifyCredentials
	Meta    *MetaCredentials
	Google  *GoogleCredentials
}
