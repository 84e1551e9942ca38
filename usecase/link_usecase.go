package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

// LinkConfig is everything the orchestrator needs from configuration.
type LinkConfig struct {
	// DashboardURL receives the browser after every callback, with
	// status and platform query parameters appended.
	DashboardURL string
	MetaScopes   []string
	// RequireCallbackHMAC rejects Shopify callbacks without an hmac
	// parameter. Otherwise the hmac is checked only when present.
	RequireCallbackHMAC bool
}

// ILinkUsecase drives the two legs of an OAuth link. Callback methods return
// a dashboard URL that is safe to redirect to whenever err is not a
// validation error.
type ILinkUsecase interface {
	MetaLogin(ctx context.Context, companyID string) (string, error)
	ShopifyLogin(ctx context.Context, companyID, shop string) (string, error)
	MetaCallback(ctx context.Context, req model.CallbackRequest) (string, error)
	ShopifyCallback(ctx context.Context, req model.CallbackRequest) (string, error)
	Status(ctx context.Context, companyID string) ([]model.IntegrationSummary, error)
}

type LinkOption func(*linkUsecase)

// WithCompanyDirectory rejects logins for companies the directory does not know.
func WithCompanyDirectory(companies repository.ICompany) LinkOption {
	return func(u *linkUsecase) { u.companies = companies }
}

func WithBroadcaster(b repository.ILinkBroadcaster) LinkOption {
	return func(u *linkUsecase) { u.broadcaster = b }
}

type linkUsecase struct {
	cfg          LinkConfig
	meta         repository.IMetaProvider
	shopify      repository.IShopifyProvider
	integrations repository.IIntegration
	states       repository.IStateIssuer
	companies    repository.ICompany
	broadcaster  repository.ILinkBroadcaster
	now          func() time.Time
}

// NewLinkUsecase accepts a nil provider for a platform that is not configured;
// its endpoints then fail with ErrNotConfigured.
func NewLinkUsecase(
	cfg LinkConfig,
	meta repository.IMetaProvider,
	shopify repository.IShopifyProvider,
	integrations repository.IIntegration,
	states repository.IStateIssuer,
	opts ...LinkOption,
) ILinkUsecase {
	u := &linkUsecase{
		cfg:          cfg,
		meta:         meta,
		shopify:      shopify,
		integrations: integrations,
		states:       states,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *linkUsecase) MetaLogin(ctx context.Context, companyID string) (string, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return "", model.NewValidationError("companyId", "Company ID required")
	}
	if u.meta == nil {
		return "", fmt.Errorf("meta: %w", model.ErrNotConfigured)
	}
	if err := u.checkCompany(ctx, companyID); err != nil {
		return "", err
	}
	state, err := u.states.Issue(ctx, companyID, model.PlatformFacebook, "")
	if err != nil {
		return "", fmt.Errorf("issue meta state: %w", err)
	}
	return u.meta.AuthCodeURL(state), nil
}

func (u *linkUsecase) ShopifyLogin(ctx context.Context, companyID, shop string) (string, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" || strings.TrimSpace(shop) == "" {
		return "", model.NewValidationError("shop", "Shop URL and Company ID required")
	}
	if u.shopify == nil {
		return "", fmt.Errorf("shopify: %w", model.ErrNotConfigured)
	}
	shop, err := u.shopify.NormalizeShop(shop)
	if err != nil {
		return "", err
	}
	if err := u.checkCompany(ctx, companyID); err != nil {
		return "", err
	}
	state, err := u.states.Issue(ctx, companyID, model.PlatformShopify, shop)
	if err != nil {
		return "", fmt.Errorf("issue shopify state: %w", err)
	}
	return u.shopify.AuthCodeURL(shop, state), nil
}

func (u *linkUsecase) MetaCallback(ctx context.Context, req model.CallbackRequest) (string, error) {
	platform := model.PlatformFacebook
	if req.ProviderError != "" {
		return "", model.NewValidationError("error", "Meta Auth Error: "+req.ProviderError)
	}
	if req.Code == "" || req.State == "" {
		return "", model.NewValidationError("code", "Missing code or state")
	}
	if u.meta == nil {
		return "", fmt.Errorf("meta: %w", model.ErrNotConfigured)
	}
	claims, err := u.states.Verify(ctx, req.State, platform, "")
	if err != nil {
		return u.failed(ctx, "", platform, err)
	}

	grant, err := u.meta.ExchangeCode(ctx, req.Code)
	if err != nil {
		return u.failed(ctx, claims.CompanyID, platform, err)
	}
	rec := &model.IntegrationRecord{
		CompanyID: claims.CompanyID,
		Platform:  platform,
		Credentials: model.Credentials{
			AccessToken:     grant.AccessToken,
			UserAccessToken: model.StringPtr(grant.UserAccessToken),
			PageID:          model.StringPtr(grant.PageID),
			PageName:        model.StringPtr(grant.PageName),
			Scopes:          strings.Join(u.cfg.MetaScopes, ","),
			ExpiresAt:       grant.UserExpiresAt,
		},
		IsActive: true,
		Settings: model.DefaultSettings(),
	}
	if err := u.integrations.Upsert(ctx, rec); err != nil {
		return u.failed(ctx, claims.CompanyID, platform, err)
	}
	return u.linked(rec), nil
}

func (u *linkUsecase) ShopifyCallback(ctx context.Context, req model.CallbackRequest) (string, error) {
	platform := model.PlatformShopify
	if req.ProviderError != "" {
		return "", model.NewValidationError("error", "Shopify Auth Error: "+req.ProviderError)
	}
	if req.Shop == "" || req.Code == "" || req.State == "" {
		return "", model.NewValidationError("shop", "Missing parameters")
	}
	if u.shopify == nil {
		return "", fmt.Errorf("shopify: %w", model.ErrNotConfigured)
	}
	shop, err := u.shopify.NormalizeShop(req.Shop)
	if err != nil {
		return "", err
	}
	// Checked before the state so a forged redirect cannot burn a pending nonce.
	if _, signed := req.RawQuery["hmac"]; signed || u.cfg.RequireCallbackHMAC {
		if err := u.shopify.VerifyCallback(url.Values(req.RawQuery)); err != nil {
			logger.GetLogger().WithField("shop", shop).Warn("shopify callback signature rejected")
			return "", err
		}
	}
	claims, err := u.states.Verify(ctx, req.State, platform, shop)
	if err != nil {
		return u.failed(ctx, "", platform, err)
	}

	grant, err := u.shopify.ExchangeCode(ctx, shop, req.Code)
	if err != nil {
		return u.failed(ctx, claims.CompanyID, platform, err)
	}
	rec := &model.IntegrationRecord{
		CompanyID: claims.CompanyID,
		Platform:  platform,
		Credentials: model.Credentials{
			AccessToken: grant.AccessToken,
			ShopURL:     model.StringPtr(grant.Shop),
			Scopes:      grant.Scope,
		},
		IsActive: true,
		Settings: model.DefaultSettings(),
	}
	if err := u.integrations.Upsert(ctx, rec); err != nil {
		return u.failed(ctx, claims.CompanyID, platform, err)
	}
	return u.linked(rec), nil
}

func (u *linkUsecase) Status(ctx context.Context, companyID string) ([]model.IntegrationSummary, error) {
	if companyID == "" {
		return nil, model.NewValidationError("companyId", "Company ID required")
	}
	recs, err := u.integrations.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list integrations: %w", err)
	}
	out := make([]model.IntegrationSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Summary())
	}
	return out, nil
}

func (u *linkUsecase) checkCompany(ctx context.Context, companyID string) error {
	if u.companies == nil {
		return nil
	}
	ok, err := u.companies.Exists(ctx, companyID)
	if err != nil {
		return fmt.Errorf("check company: %w", err)
	}
	if !ok {
		return model.NewValidationError("companyId", "unknown company")
	}
	return nil
}

// failed logs the cause and returns the error redirect. Validation errors
// pass through untouched so the caller can answer 400.
func (u *linkUsecase) failed(ctx context.Context, companyID string, platform model.Platform, err error) (string, error) {
	if model.IsValidation(err) {
		return "", err
	}
	entry := logger.GetLogger().WithFields(logrus.Fields{
		"company_id": companyID,
		"platform":   platform,
		"error":      err,
	})
	var upErr *model.UpstreamError
	if errors.As(err, &upErr) {
		entry = entry.WithField("status", upErr.StatusCode).WithField("body", upErr.Body)
	}
	entry.Error("integration link failed")

	if companyID != "" {
		u.broadcast(companyID, platform, model.LinkStatusError)
	}
	return u.dashboardURL(model.LinkStatusError, platform), err
}

func (u *linkUsecase) linked(rec *model.IntegrationRecord) string {
	logger.GetLogger().WithFields(logrus.Fields{
		"company_id": rec.CompanyID,
		"platform":   rec.Platform,
		"id":         rec.ID,
	}).Info("integration linked")
	u.broadcast(rec.CompanyID, rec.Platform, model.LinkStatusSuccess)
	return u.dashboardURL(model.LinkStatusSuccess, rec.Platform)
}

func (u *linkUsecase) broadcast(companyID string, platform model.Platform, status model.LinkStatus) {
	if u.broadcaster == nil {
		return
	}
	u.broadcaster.BroadcastLink(model.LinkEvent{
		Type:      "integration_status",
		CompanyID: companyID,
		Platform:  platform,
		Status:    status,
		At:        u.now().UTC(),
	})
}

func (u *linkUsecase) dashboardURL(status model.LinkStatus, platform model.Platform) string {
	target, err := url.Parse(u.cfg.DashboardURL)
	if err != nil {
		return fmt.Sprintf("%s?status=%s&platform=%s", u.cfg.DashboardURL, status, platform)
	}
	q := target.Query()
	q.Set("status", string(status))
	q.Set("platform", platform.String())
	target.RawQuery = q.Encode()
	return target.String()
}
