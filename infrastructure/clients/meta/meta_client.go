package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const (
	providerName   = "meta"
	maxBodyBytes   = 1 << 20
	defaultVersion = "v18.0"
)

var (
	ErrMissingAppID     = errors.New("meta: app id is required")
	ErrMissingAppSecret = errors.New("meta: app secret is required")
	ErrMissingRedirect  = errors.New("meta: redirect uri is required")
)

// Config represents Meta Graph API client configuration
type Config struct {
	AppID           string
	AppSecret       string
	RedirectURI     string
	GraphVersion    string
	GraphBaseURL    string
	DialogBaseURL   string
	Scopes          []string
	LongLivedTokens bool
	HTTPClient      *http.Client
}

func (c *Config) Validate() error {
	if c.AppID == "" {
		return ErrMissingAppID
	}
	if c.AppSecret == "" {
		return ErrMissingAppSecret
	}
	if c.RedirectURI == "" {
		return ErrMissingRedirect
	}
	if c.GraphVersion == "" {
		c.GraphVersion = defaultVersion
	}
	if c.GraphBaseURL == "" {
		c.GraphBaseURL = "https://graph.facebook.com"
	}
	if c.DialogBaseURL == "" {
		c.DialogBaseURL = "https://www.facebook.com"
	}
	c.GraphBaseURL = strings.TrimRight(c.GraphBaseURL, "/")
	c.DialogBaseURL = strings.TrimRight(c.DialogBaseURL, "/")
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return nil
}

// Client exchanges Meta authorization codes for Page credentials.
type Client struct {
	cfg         Config
	oauthConfig *oauth2.Config
}

// NewMetaClient creates a new Meta Graph API client
func NewMetaClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	oauthConfig := &oauth2.Config{
		ClientID:     cfg.AppID,
		ClientSecret: cfg.AppSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   fmt.Sprintf("%s/%s/dialog/oauth", cfg.DialogBaseURL, cfg.GraphVersion),
			TokenURL:  fmt.Sprintf("%s/%s/oauth/access_token", cfg.GraphBaseURL, cfg.GraphVersion),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return &Client{cfg: cfg, oauthConfig: oauthConfig}, nil
}

// AuthCodeURL builds the Facebook login dialog URL. Meta expects the scope
// list comma separated.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauthConfig.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", strings.Join(c.cfg.Scopes, ",")))
}

type codeExchangeQuery struct {
	ClientID     string `url:"client_id"`
	RedirectURI  string `url:"redirect_uri"`
	ClientSecret string `url:"client_secret"`
	Code         string `url:"code"`
}

type longLivedQuery struct {
	GrantType       string `url:"grant_type"`
	ClientID        string `url:"client_id"`
	ClientSecret    string `url:"client_secret"`
	FbExchangeToken string `url:"fb_exchange_token"`
}

type accountsQuery struct {
	AccessToken string `url:"access_token"`
	Fields      string `url:"fields,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

type accountsResponse struct {
	Data []model.MetaPage `json:"data"`
}

// ExchangeCode trades the authorization code for a user token, lists the
// Pages the user manages and selects the first one.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*model.MetaGrant, error) {
	var tok tokenResponse
	err := c.getJSON(ctx, "token exchange", "/oauth/access_token", codeExchangeQuery{
		ClientID:     c.cfg.AppID,
		RedirectURI:  c.cfg.RedirectURI,
		ClientSecret: c.cfg.AppSecret,
		Code:         code,
	}, &tok)
	if err != nil {
		return nil, err
	}
	if tok.AccessToken == "" {
		return nil, &model.UpstreamError{Provider: providerName, Op: "token exchange", Err: errors.New("response missing access_token")}
	}

	if c.cfg.LongLivedTokens {
		var ll tokenResponse
		err := c.getJSON(ctx, "long-lived exchange", "/oauth/access_token", longLivedQuery{
			GrantType:       "fb_exchange_token",
			ClientID:        c.cfg.AppID,
			ClientSecret:    c.cfg.AppSecret,
			FbExchangeToken: tok.AccessToken,
		}, &ll)
		if err != nil {
			return nil, err
		}
		if ll.AccessToken == "" {
			return nil, &model.UpstreamError{Provider: providerName, Op: "long-lived exchange", Err: errors.New("response missing access_token")}
		}
		tok = ll
	}

	var pages accountsResponse
	err = c.getJSON(ctx, "list pages", "/me/accounts", accountsQuery{
		AccessToken: tok.AccessToken,
		Fields:      "id,name,access_token,category",
	}, &pages)
	if err != nil {
		return nil, err
	}
	if len(pages.Data) == 0 {
		return nil, fmt.Errorf("meta: no pages available for user: %w", model.ErrNoResourceFound)
	}

	// No page picker yet: the first page wins.
	selected := pages.Data[0]
	if selected.ID == "" || selected.AccessToken == "" {
		return nil, &model.UpstreamError{Provider: providerName, Op: "list pages", Err: errors.New("page entry missing id or access_token")}
	}

	grant := &model.MetaGrant{
		AccessToken:     selected.AccessToken,
		PageID:          selected.ID,
		PageName:        selected.Name,
		UserAccessToken: tok.AccessToken,
		Pages:           pages.Data,
	}
	if tok.ExpiresIn > 0 {
		exp := time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second).UTC()
		grant.UserExpiresAt = &exp
	}
	return grant, nil
}

func (c *Client) getJSON(ctx context.Context, op, path string, params interface{}, out interface{}) error {
	values, err := query.Values(params)
	if err != nil {
		return fmt.Errorf("meta: encode %s query: %w", op, err)
	}
	endpoint := fmt.Sprintf("%s/%s%s?%s", c.cfg.GraphBaseURL, c.cfg.GraphVersion, path, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("meta: build %s request: %w", op, err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return &model.UpstreamError{Provider: providerName, Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &model.UpstreamError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &model.UpstreamError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &model.UpstreamError{Provider: providerName, Op: op, StatusCode: resp.StatusCode, Body: string(body), Err: err}
	}
	return nil
}

var _ repository.IMetaProvider = (*Client)(nil)
