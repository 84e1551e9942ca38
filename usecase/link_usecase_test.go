package usecase_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/infrastructure/persistence"
	"github.com/mido200912/Ai-Thor/usecase"
)

const dashboard = "http://localhost:3000/dashboard"

type linkFixture struct {
	meta        *MockMetaProvider
	shopify     *MockShopifyProvider
	repo        *MockIntegrationRepository
	states      *MockStateIssuer
	broadcaster *recordingBroadcaster
	uc          usecase.ILinkUsecase
}

func newLinkFixture(opts ...usecase.LinkOption) *linkFixture {
	f := &linkFixture{
		meta:        new(MockMetaProvider),
		shopify:     new(MockShopifyProvider),
		repo:        new(MockIntegrationRepository),
		states:      new(MockStateIssuer),
		broadcaster: &recordingBroadcaster{},
	}
	opts = append(opts, usecase.WithBroadcaster(f.broadcaster))
	f.uc = usecase.NewLinkUsecase(
		usecase.LinkConfig{DashboardURL: dashboard, MetaScopes: []string{"pages_show_list", "pages_messaging"}},
		f.meta, f.shopify, f.repo, f.states, opts...,
	)
	return f
}

func (f *linkFixture) assertExpectations(t *testing.T) {
	f.meta.AssertExpectations(t)
	f.shopify.AssertExpectations(t)
	f.repo.AssertExpectations(t)
	f.states.AssertExpectations(t)
}

func redirectQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/dashboard", u.Path)
	return u.Query()
}

func TestLinkUsecase_MetaLogin(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Issue", mock.Anything, "c1", model.PlatformFacebook, "").Return("signed-state", nil)
	f.meta.On("AuthCodeURL", "signed-state").Return("https://www.facebook.com/v18.0/dialog/oauth?state=signed-state")

	got, err := f.uc.MetaLogin(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "https://www.facebook.com/v18.0/dialog/oauth?state=signed-state", got)
	f.assertExpectations(t)
}

func TestLinkUsecase_LoginWithoutCompany(t *testing.T) {
	f := newLinkFixture()

	_, err := f.uc.MetaLogin(context.Background(), "  ")
	assert.True(t, model.IsValidation(err))

	_, err = f.uc.ShopifyLogin(context.Background(), "", "demo.myshopify.com")
	assert.True(t, model.IsValidation(err))

	_, err = f.uc.ShopifyLogin(context.Background(), "c1", "")
	assert.True(t, model.IsValidation(err))

	// nothing reached a provider or the state issuer
	f.meta.AssertNotCalled(t, "AuthCodeURL", mock.Anything)
	f.states.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.shopify.AssertNotCalled(t, "NormalizeShop", mock.Anything)
}

func TestLinkUsecase_LoginUnknownCompany(t *testing.T) {
	companies := new(MockCompanyDirectory)
	companies.On("Exists", mock.Anything, "ghost").Return(false, nil)
	f := newLinkFixture(usecase.WithCompanyDirectory(companies))

	_, err := f.uc.MetaLogin(context.Background(), "ghost")
	assert.True(t, model.IsValidation(err))
	companies.AssertExpectations(t)
	f.states.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkUsecase_LoginProviderNotConfigured(t *testing.T) {
	uc := usecase.NewLinkUsecase(usecase.LinkConfig{DashboardURL: dashboard}, nil, nil, new(MockIntegrationRepository), new(MockStateIssuer))

	_, err := uc.MetaLogin(context.Background(), "c1")
	assert.ErrorIs(t, err, model.ErrNotConfigured)
	_, err = uc.ShopifyLogin(context.Background(), "c1", "demo.myshopify.com")
	assert.ErrorIs(t, err, model.ErrNotConfigured)
}

func TestLinkUsecase_ShopifyLogin(t *testing.T) {
	f := newLinkFixture()
	f.shopify.On("NormalizeShop", "Demo.myshopify.com").Return("demo.myshopify.com", nil)
	f.states.On("Issue", mock.Anything, "c1", model.PlatformShopify, "demo.myshopify.com").Return("signed-state", nil)
	f.shopify.On("AuthCodeURL", "demo.myshopify.com", "signed-state").Return("https://demo.myshopify.com/admin/oauth/authorize?state=signed-state")

	got, err := f.uc.ShopifyLogin(context.Background(), "c1", "Demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, "https://demo.myshopify.com/admin/oauth/authorize?state=signed-state", got)
	f.assertExpectations(t)
}

func TestLinkUsecase_ShopifyLoginRejectsForeignHost(t *testing.T) {
	f := newLinkFixture()
	f.shopify.On("NormalizeShop", "evil.com").Return("", model.NewValidationError("shop", "shop domain must be a *.myshopify.com host"))

	_, err := f.uc.ShopifyLogin(context.Background(), "c1", "evil.com")
	assert.True(t, model.IsValidation(err))
	f.states.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkUsecase_MetaCallbackSuccess(t *testing.T) {
	f := newLinkFixture()
	expires := time.Now().Add(time.Hour).UTC()
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformFacebook, "").Return(stateFor("c1", model.PlatformFacebook, ""), nil)
	f.meta.On("ExchangeCode", mock.Anything, "auth-code").Return(&model.MetaGrant{
		AccessToken:     "page-token",
		PageID:          "p1",
		PageName:        "Shop One",
		UserAccessToken: "user-token",
		UserExpiresAt:   &expires,
	}, nil)
	f.repo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *model.IntegrationRecord) bool {
		return rec.CompanyID == "c1" &&
			rec.Platform == model.PlatformFacebook &&
			rec.Credentials.AccessToken == "page-token" &&
			*rec.Credentials.PageID == "p1" &&
			*rec.Credentials.UserAccessToken == "user-token" &&
			rec.Credentials.Scopes == "pages_show_list,pages_messaging" &&
			rec.IsActive &&
			rec.Settings == model.DefaultSettings()
	})).Return(nil)

	got, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "signed-state"})
	require.NoError(t, err)
	q := redirectQuery(t, got)
	assert.Equal(t, "success", q.Get("status"))
	assert.Equal(t, "facebook", q.Get("platform"))

	require.Len(t, f.broadcaster.events, 1)
	assert.Equal(t, model.LinkStatusSuccess, f.broadcaster.events[0].Status)
	assert.Equal(t, "c1", f.broadcaster.events[0].CompanyID)
	f.assertExpectations(t)
}

func TestLinkUsecase_MetaCallbackValidation(t *testing.T) {
	tests := []struct {
		name string
		req  model.CallbackRequest
	}{
		{name: "provider error", req: model.CallbackRequest{ProviderError: "access_denied", State: "s"}},
		{name: "missing code", req: model.CallbackRequest{State: "s"}},
		{name: "missing state", req: model.CallbackRequest{Code: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLinkFixture()
			got, err := f.uc.MetaCallback(context.Background(), tt.req)
			assert.True(t, model.IsValidation(err))
			assert.Empty(t, got)
			f.states.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestLinkUsecase_MetaCallbackBadState(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Verify", mock.Anything, "forged", model.PlatformFacebook, "").Return(nil, model.NewValidationError("state", "invalid or expired state"))

	_, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "forged"})
	assert.True(t, model.IsValidation(err))
	f.meta.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
	assert.Empty(t, f.broadcaster.events)
}

func TestLinkUsecase_MetaCallbackStateForOtherPlatform(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Verify", mock.Anything, "shop-state", model.PlatformFacebook, "").
		Return(nil, model.NewValidationError("state", "state was issued for another platform"))

	got, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "shop-state"})
	assert.True(t, model.IsValidation(err))
	assert.Empty(t, got)
	f.meta.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything)
	f.states.AssertExpectations(t)
}

func TestLinkUsecase_MetaCallbackNoPages(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformFacebook, "").Return(stateFor("c1", model.PlatformFacebook, ""), nil)
	f.meta.On("ExchangeCode", mock.Anything, "auth-code").Return(nil, errors.Join(model.ErrNoResourceFound, errors.New("no facebook pages")))

	got, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "signed-state"})
	require.Error(t, err)
	assert.False(t, model.IsValidation(err))
	q := redirectQuery(t, got)
	assert.Equal(t, "error", q.Get("status"))
	assert.Equal(t, "facebook", q.Get("platform"))
	f.repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)

	require.Len(t, f.broadcaster.events, 1)
	assert.Equal(t, model.LinkStatusError, f.broadcaster.events[0].Status)
}

func TestLinkUsecase_MetaCallbackStoreFailure(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformFacebook, "").Return(stateFor("c1", model.PlatformFacebook, ""), nil)
	f.meta.On("ExchangeCode", mock.Anything, "auth-code").Return(&model.MetaGrant{AccessToken: "page-token", PageID: "p1"}, nil)
	f.repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	got, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "signed-state"})
	require.Error(t, err)
	assert.Equal(t, "error", redirectQuery(t, got).Get("status"))
}

func TestLinkUsecase_MetaCallbackUpstreamFailure(t *testing.T) {
	f := newLinkFixture()
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformFacebook, "").Return(stateFor("c1", model.PlatformFacebook, ""), nil)
	f.meta.On("ExchangeCode", mock.Anything, "auth-code").Return(nil, &model.UpstreamError{Provider: "meta", Op: "token exchange", StatusCode: 400, Body: `{"error":{}}`})

	got, err := f.uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "auth-code", State: "signed-state"})
	assert.ErrorIs(t, err, model.ErrUpstream)
	assert.Equal(t, "error", redirectQuery(t, got).Get("status"))
}

func shopifyCallback(shop string) model.CallbackRequest {
	return model.CallbackRequest{
		Code:  "auth-code",
		State: "signed-state",
		Shop:  shop,
		RawQuery: map[string][]string{
			"code":  {"auth-code"},
			"state": {"signed-state"},
			"shop":  {shop},
			"hmac":  {"abc"},
		},
	}
}

func TestLinkUsecase_ShopifyCallbackSuccess(t *testing.T) {
	f := newLinkFixture()
	req := shopifyCallback("demo.myshopify.com")
	f.shopify.On("NormalizeShop", "demo.myshopify.com").Return("demo.myshopify.com", nil)
	f.shopify.On("VerifyCallback", url.Values(req.RawQuery)).Return(nil)
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformShopify, "demo.myshopify.com").Return(stateFor("c1", model.PlatformShopify, "demo.myshopify.com"), nil)
	f.shopify.On("ExchangeCode", mock.Anything, "demo.myshopify.com", "auth-code").Return(&model.ShopifyGrant{
		Shop: "demo.myshopify.com", AccessToken: "shpat_1", Scope: "read_products,read_orders",
	}, nil)
	f.repo.On("Upsert", mock.Anything, mock.MatchedBy(func(rec *model.IntegrationRecord) bool {
		return rec.CompanyID == "c1" &&
			rec.Platform == model.PlatformShopify &&
			rec.Credentials.AccessToken == "shpat_1" &&
			*rec.Credentials.ShopURL == "demo.myshopify.com" &&
			rec.Credentials.PageID == nil
	})).Return(nil)

	got, err := f.uc.ShopifyCallback(context.Background(), req)
	require.NoError(t, err)
	q := redirectQuery(t, got)
	assert.Equal(t, "success", q.Get("status"))
	assert.Equal(t, "shopify", q.Get("platform"))
	f.assertExpectations(t)
}

func TestLinkUsecase_ShopifyCallbackBadHmac(t *testing.T) {
	f := newLinkFixture()
	req := shopifyCallback("demo.myshopify.com")
	f.shopify.On("NormalizeShop", "demo.myshopify.com").Return("demo.myshopify.com", nil)
	f.shopify.On("VerifyCallback", mock.Anything).Return(model.NewValidationError("hmac", "callback signature mismatch"))

	_, err := f.uc.ShopifyCallback(context.Background(), req)
	assert.True(t, model.IsValidation(err))
	f.states.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkUsecase_ShopifyCallbackWithoutHmac(t *testing.T) {
	f := newLinkFixture()
	req := shopifyCallback("demo.myshopify.com")
	delete(req.RawQuery, "hmac")
	f.shopify.On("NormalizeShop", "demo.myshopify.com").Return("demo.myshopify.com", nil)
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformShopify, "demo.myshopify.com").Return(stateFor("c1", model.PlatformShopify, "demo.myshopify.com"), nil)
	f.shopify.On("ExchangeCode", mock.Anything, "demo.myshopify.com", "auth-code").Return(&model.ShopifyGrant{
		Shop: "demo.myshopify.com", AccessToken: "shpat_1", Scope: "read_products",
	}, nil)
	f.repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	got, err := f.uc.ShopifyCallback(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "success", redirectQuery(t, got).Get("status"))
	f.shopify.AssertNotCalled(t, "VerifyCallback", mock.Anything)
	f.assertExpectations(t)
}

func TestLinkUsecase_ShopifyCallbackWithoutHmacWhenRequired(t *testing.T) {
	shopify := new(MockShopifyProvider)
	states := new(MockStateIssuer)
	uc := usecase.NewLinkUsecase(
		usecase.LinkConfig{DashboardURL: dashboard, RequireCallbackHMAC: true},
		nil, shopify, new(MockIntegrationRepository), states,
	)
	req := shopifyCallback("demo.myshopify.com")
	delete(req.RawQuery, "hmac")
	shopify.On("NormalizeShop", "demo.myshopify.com").Return("demo.myshopify.com", nil)
	shopify.On("VerifyCallback", url.Values(req.RawQuery)).Return(model.NewValidationError("hmac", "missing callback signature"))

	got, err := uc.ShopifyCallback(context.Background(), req)
	assert.True(t, model.IsValidation(err))
	assert.Empty(t, got)
	shopify.AssertExpectations(t)
	states.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestLinkUsecase_ShopifyCallbackShopMismatch(t *testing.T) {
	f := newLinkFixture()
	req := shopifyCallback("other.myshopify.com")
	f.shopify.On("NormalizeShop", "other.myshopify.com").Return("other.myshopify.com", nil)
	f.shopify.On("VerifyCallback", mock.Anything).Return(nil)
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformShopify, "other.myshopify.com").
		Return(nil, model.NewValidationError("state", "state was issued for another shop"))

	_, err := f.uc.ShopifyCallback(context.Background(), req)
	assert.True(t, model.IsValidation(err))
	f.shopify.AssertNotCalled(t, "ExchangeCode", mock.Anything, mock.Anything, mock.Anything)
	f.states.AssertExpectations(t)
}

func TestLinkUsecase_ShopifyCallbackMissingParams(t *testing.T) {
	f := newLinkFixture()
	_, err := f.uc.ShopifyCallback(context.Background(), model.CallbackRequest{Code: "c", State: "s"})
	assert.True(t, model.IsValidation(err))
}

func TestLinkUsecase_ShopifyCallbackExchangeFails(t *testing.T) {
	f := newLinkFixture()
	req := shopifyCallback("demo.myshopify.com")
	f.shopify.On("NormalizeShop", "demo.myshopify.com").Return("demo.myshopify.com", nil)
	f.shopify.On("VerifyCallback", mock.Anything).Return(nil)
	f.states.On("Verify", mock.Anything, "signed-state", model.PlatformShopify, "demo.myshopify.com").Return(stateFor("c1", model.PlatformShopify, "demo.myshopify.com"), nil)
	f.shopify.On("ExchangeCode", mock.Anything, "demo.myshopify.com", "auth-code").Return(nil, &model.UpstreamError{Provider: "shopify", Op: "token exchange", StatusCode: 400})

	got, err := f.uc.ShopifyCallback(context.Background(), req)
	assert.ErrorIs(t, err, model.ErrUpstream)
	q := redirectQuery(t, got)
	assert.Equal(t, "error", q.Get("status"))
	assert.Equal(t, "shopify", q.Get("platform"))
}

// Two successful Meta callbacks for the same company leave one record
// holding the second token.
func TestLinkUsecase_RepeatLinkReplacesRecord(t *testing.T) {
	repo := persistence.NewIntegrationRepositoryMemory()
	meta := new(MockMetaProvider)
	states := new(MockStateIssuer)
	uc := usecase.NewLinkUsecase(usecase.LinkConfig{DashboardURL: dashboard}, meta, nil, repo, states)

	states.On("Verify", mock.Anything, mock.Anything, model.PlatformFacebook, "").Return(stateFor("c1", model.PlatformFacebook, ""), nil)
	meta.On("ExchangeCode", mock.Anything, "first").Return(&model.MetaGrant{AccessToken: "token-1", PageID: "p1"}, nil)
	meta.On("ExchangeCode", mock.Anything, "second").Return(&model.MetaGrant{AccessToken: "token-2", PageID: "p2"}, nil)

	_, err := uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "first", State: "s1"})
	require.NoError(t, err)
	_, err = uc.MetaCallback(context.Background(), model.CallbackRequest{Code: "second", State: "s2"})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.Len())
	rec, err := repo.Get(context.Background(), "c1", model.PlatformFacebook)
	require.NoError(t, err)
	assert.Equal(t, "token-2", rec.Credentials.AccessToken)
	assert.Equal(t, "p2", *rec.Credentials.PageID)
}

func TestLinkUsecase_Status(t *testing.T) {
	f := newLinkFixture()
	f.repo.On("ListByCompany", mock.Anything, "c1").Return([]*model.IntegrationRecord{
		{CompanyID: "c1", Platform: model.PlatformShopify, IsActive: true, Credentials: model.Credentials{AccessToken: "secret", ShopURL: model.StringPtr("demo.myshopify.com")}},
	}, nil)

	got, err := f.uc.Status(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.PlatformShopify, got[0].Platform)
	assert.Equal(t, "demo.myshopify.com", *got[0].ShopURL)

	_, err = f.uc.Status(context.Background(), "")
	assert.True(t, model.IsValidation(err))
}
