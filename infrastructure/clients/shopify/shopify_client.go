package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"

	"golang.org/x/oauth2"
)

const providerName = "shopify"

var (
	ErrMissingAPIKey    = errors.New("shopify: api key is required")
	ErrMissingAPISecret = errors.New("shopify: api secret is required")
	ErrMissingRedirect  = errors.New("shopify: redirect uri is required")
)

// Config represents Shopify app configuration
type Config struct {
	APIKey      string
	APISecret   string
	RedirectURI string
	Scopes      []string
	// ShopSuffix is the only host suffix a shop domain may carry.
	ShopSuffix string
	HTTPClient *http.Client
	// ShopBaseURL maps a validated shop domain to its admin origin.
	ShopBaseURL func(shop string) string
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrMissingAPISecret
	}
	if c.RedirectURI == "" {
		return ErrMissingRedirect
	}
	if c.ShopSuffix == "" {
		c.ShopSuffix = "myshopify.com"
	}
	c.ShopSuffix = strings.TrimPrefix(strings.ToLower(c.ShopSuffix), ".")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.ShopBaseURL == nil {
		c.ShopBaseURL = func(shop string) string { return "https://" + shop }
	}
	return nil
}

// Client performs the OAuth handshake against individual shops.
type Client struct {
	cfg         Config
	shopPattern *regexp.Regexp
}

// NewShopifyClient creates a new Shopify OAuth client
func NewShopifyClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	pattern, err := regexp.Compile(`^[a-z0-9][a-z0-9-]*\.` + regexp.QuoteMeta(cfg.ShopSuffix) + `$`)
	if err != nil {
		return nil, fmt.Errorf("shopify: compile shop pattern: %w", err)
	}
	return &Client{cfg: cfg, shopPattern: pattern}, nil
}

// NormalizeShop lower-cases the domain, strips a scheme or trailing slash and
// rejects anything outside the allowed suffix. The result is safe to use as a
// request host.
func (c *Client) NormalizeShop(shop string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(shop))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimRight(s, "/")
	if s == "" {
		return "", model.NewValidationError("shop", "shop domain is required")
	}
	if !c.shopPattern.MatchString(s) {
		return "", model.NewValidationError("shop", fmt.Sprintf("shop domain must be a *.%s host", c.cfg.ShopSuffix))
	}
	return s, nil
}

func (c *Client) oauthConfigFor(shop string) *oauth2.Config {
	base := c.cfg.ShopBaseURL(shop)
	return &oauth2.Config{
		ClientID:     c.cfg.APIKey,
		ClientSecret: c.cfg.APISecret,
		RedirectURL:  c.cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   base + "/admin/oauth/authorize",
			TokenURL:  base + "/admin/oauth/access_token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL expects a shop already passed through NormalizeShop.
func (c *Client) AuthCodeURL(shop, state string) string {
	return c.oauthConfigFor(shop).AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(c.cfg.Scopes, ",")))
}

// ExchangeCode POSTs the code with the app key and secret to the shop's token
// endpoint.
func (c *Client) ExchangeCode(ctx context.Context, shop, code string) (*model.ShopifyGrant, error) {
	shop, err := c.NormalizeShop(shop)
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	tok, err := c.oauthConfigFor(shop).Exchange(ctx, code)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			status := 0
			if re.Response != nil {
				status = re.Response.StatusCode
			}
			return nil, &model.UpstreamError{Provider: providerName, Op: "token exchange", StatusCode: status, Body: string(re.Body), Err: err}
		}
		return nil, &model.UpstreamError{Provider: providerName, Op: "token exchange", Err: err}
	}
	scope, _ := tok.Extra("scope").(string)
	return &model.ShopifyGrant{Shop: shop, AccessToken: tok.AccessToken, Scope: scope}, nil
}

var _ repository.IShopifyProvider = (*Client)(nil)
