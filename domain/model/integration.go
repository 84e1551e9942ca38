package model

import (
	"strings"
	"time"
)

// Platform is the closed set of third-party platforms a company can link.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformWhatsApp  Platform = "whatsapp"
	PlatformShopify   Platform = "shopify"
)

var platforms = []Platform{PlatformFacebook, PlatformInstagram, PlatformWhatsApp, PlatformShopify}

// Platforms returns every supported platform.
func Platforms() []Platform {
	out := make([]Platform, len(platforms))
	copy(out, platforms)
	return out
}

func (p Platform) Valid() bool {
	for _, v := range platforms {
		if p == v {
			return true
		}
	}
	return false
}

func (p Platform) String() string { return string(p) }

// ParsePlatform accepts any casing and surrounding whitespace.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", NewValidationError("platform", "unsupported platform: "+s)
	}
	return p, nil
}

// Credentials is the union of provider credential fields. Fields a provider
// does not use stay nil.
type Credentials struct {
	AccessToken     string     `json:"-" bson:"accessToken"`
	RefreshToken    *string    `json:"-" bson:"refreshToken,omitempty"`
	UserAccessToken *string    `json:"-" bson:"userAccessToken,omitempty"`
	PageID          *string    `json:"page_id,omitempty" bson:"pageId,omitempty"`
	PageName        *string    `json:"page_name,omitempty" bson:"pageName,omitempty"`
	AdAccountID     *string    `json:"ad_account_id,omitempty" bson:"adAccountId,omitempty"`
	ShopURL         *string    `json:"shop_url,omitempty" bson:"shopUrl,omitempty"`
	WebhookSecret   *string    `json:"-" bson:"webhookSecret,omitempty"`
	Scopes          string     `json:"scopes" bson:"scopes"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty" bson:"expiresAt,omitempty"`
}

// Settings are per-record behaviour flags, independent of credentials.
type Settings struct {
	AutoReply    bool `json:"auto_reply" bson:"autoReply"`
	SyncProducts bool `json:"sync_products" bson:"syncProducts"`
}

func DefaultSettings() Settings {
	return Settings{AutoReply: true, SyncProducts: false}
}

// IntegrationRecord is the single linked integration of a company on a platform.
// (CompanyID, Platform) is unique in every store.
type IntegrationRecord struct {
	ID          string      `json:"id" bson:"_id,omitempty"`
	CompanyID   string      `json:"company_id" bson:"company"`
	Platform    Platform    `json:"platform" bson:"platform"`
	Credentials Credentials `json:"credentials" bson:"credentials"`
	IsActive    bool        `json:"is_active" bson:"isActive"`
	Settings    Settings    `json:"settings" bson:"settings"`
	CreatedAt   time.Time   `json:"created_at" bson:"createdAt"`
	UpdatedAt   time.Time   `json:"updated_at" bson:"updatedAt"`
}

// IntegrationSummary is the secret-free view returned to the dashboard.
type IntegrationSummary struct {
	Platform  Platform   `json:"platform"`
	IsActive  bool       `json:"is_active"`
	PageID    *string    `json:"page_id,omitempty"`
	PageName  *string    `json:"page_name,omitempty"`
	ShopURL   *string    `json:"shop_url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Settings  Settings   `json:"settings"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (r *IntegrationRecord) Summary() IntegrationSummary {
	return IntegrationSummary{
		Platform:  r.Platform,
		IsActive:  r.IsActive,
		PageID:    r.Credentials.PageID,
		PageName:  r.Credentials.PageName,
		ShopURL:   r.Credentials.ShopURL,
		ExpiresAt: r.Credentials.ExpiresAt,
		Settings:  r.Settings,
		UpdatedAt: r.UpdatedAt,
	}
}

// StringPtr returns nil for the empty string.
// Clone copies c so that no pointer field is shared with the original.
func (c Credentials) Clone() Credentials {
	out := c
	out.RefreshToken = cloneString(c.RefreshToken)
	out.UserAccessToken = cloneString(c.UserAccessToken)
	out.PageID = cloneString(c.PageID)
	out.PageName = cloneString(c.PageName)
	out.AdAccountID = cloneString(c.AdAccountID)
	out.ShopURL = cloneString(c.ShopURL)
	out.WebhookSecret = cloneString(c.WebhookSecret)
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
