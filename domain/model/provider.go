package model

import "time"

// MetaPage is one Facebook Page manageable by the authenticated user.
type MetaPage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
	Category    string `json:"category,omitempty"`
}

// MetaGrant is the result of a Meta code exchange. Pages holds every
// candidate; PageID/AccessToken are the selected one.
type MetaGrant struct {
	AccessToken     string
	PageID          string
	PageName        string
	UserAccessToken string
	UserExpiresAt   *time.Time
	Pages           []MetaPage
}

// ShopifyGrant is the result of a Shopify code exchange.
type ShopifyGrant struct {
	Shop        string
	AccessToken string
	Scope       string
}

// StateClaims is the payload bound into an OAuth state token.
type StateClaims struct {
	Nonce     string
	CompanyID string
	Platform  Platform
	Shop      string
	ExpiresAt time.Time
}

// CallbackRequest carries the provider redirect parameters.
type CallbackRequest struct {
	Code          string
	State         string
	ProviderError string
	Shop          string
	// RawQuery is needed for Shopify's hmac check.
	RawQuery map[string][]string
}
