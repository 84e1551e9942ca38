package usecase_test

import (
	"context"
	"net/url"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/mido200912/Ai-Thor/domain/model"
)

type MockMetaProvider struct {
	mock.Mock
}

func (m *MockMetaProvider) AuthCodeURL(state string) string {
	args := m.Called(state)
	return args.String(0)
}

func (m *MockMetaProvider) ExchangeCode(ctx context.Context, code string) (*model.MetaGrant, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MetaGrant), args.Error(1)
}

func (m *MockMetaProvider) VerifyWebhook(body []byte, signatureHeader string) error {
	args := m.Called(body, signatureHeader)
	return args.Error(0)
}

type MockShopifyProvider struct {
	mock.Mock
}

func (m *MockShopifyProvider) NormalizeShop(shop string) (string, error) {
	args := m.Called(shop)
	return args.String(0), args.Error(1)
}

func (m *MockShopifyProvider) AuthCodeURL(shop, state string) string {
	args := m.Called(shop, state)
	return args.String(0)
}

func (m *MockShopifyProvider) ExchangeCode(ctx context.Context, shop, code string) (*model.ShopifyGrant, error) {
	args := m.Called(ctx, shop, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShopifyGrant), args.Error(1)
}

func (m *MockShopifyProvider) VerifyCallback(query url.Values) error {
	args := m.Called(query)
	return args.Error(0)
}

func (m *MockShopifyProvider) VerifyWebhook(body []byte, hmacHeader string) error {
	args := m.Called(body, hmacHeader)
	return args.Error(0)
}

type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockIntegrationRepository) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	args := m.Called(ctx, companyID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.IntegrationRecord), args.Error(1)
}

func (m *MockIntegrationRepository) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.IntegrationRecord), args.Error(1)
}

type MockStateIssuer struct {
	mock.Mock
}

func (m *MockStateIssuer) Issue(ctx context.Context, companyID string, platform model.Platform, shop string) (string, error) {
	args := m.Called(ctx, companyID, platform, shop)
	return args.String(0), args.Error(1)
}

func (m *MockStateIssuer) Verify(ctx context.Context, token string, platform model.Platform, shop string) (*model.StateClaims, error) {
	args := m.Called(ctx, token, platform, shop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.StateClaims), args.Error(1)
}

type MockCompanyDirectory struct {
	mock.Mock
}

func (m *MockCompanyDirectory) Exists(ctx context.Context, companyID string) (bool, error) {
	args := m.Called(ctx, companyID)
	return args.Bool(0), args.Error(1)
}

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, evt *model.WebhookEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}

func (m *MockEventPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// recordingBroadcaster keeps every event it is given.
type recordingBroadcaster struct {
	events []model.LinkEvent
}

func (r *recordingBroadcaster) BroadcastLink(evt model.LinkEvent) {
	r.events = append(r.events, evt)
}

func stateFor(companyID string, platform model.Platform, shop string) *model.StateClaims {
	return &model.StateClaims{
		Nonce:     "nonce-1",
		CompanyID: companyID,
		Platform:  platform,
		Shop:      shop,
		ExpiresAt: time.Now().Add(time.Minute),
	}
}
