package http

import (
	"context"
	"net/url"
	"sync"

	"github.com/mido200912/Ai-Thor/domain/model"

	"github.com/stretchr/testify/mock"
)

type MockLinkUsecase struct {
	mock.Mock
}

func (m *MockLinkUsecase) MetaLogin(ctx context.Context, companyID string) (string, error) {
	args := m.Called(ctx, companyID)
	return args.String(0), args.Error(1)
}

func (m *MockLinkUsecase) ShopifyLogin(ctx context.Context, companyID, shop string) (string, error) {
	args := m.Called(ctx, companyID, shop)
	return args.String(0), args.Error(1)
}

func (m *MockLinkUsecase) MetaCallback(ctx context.Context, req model.CallbackRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLinkUsecase) ShopifyCallback(ctx context.Context, req model.CallbackRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockLinkUsecase) Status(ctx context.Context, companyID string) ([]model.IntegrationSummary, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IntegrationSummary), args.Error(1)
}

// fakeMeta counts every outbound-looking call.
type fakeMeta struct {
	mu    sync.Mutex
	calls int
	grant *model.MetaGrant
	err   error
}

func (f *fakeMeta) AuthCodeURL(state string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "https://www.facebook.com/v18.0/dialog/oauth?state=" + url.QueryEscape(state)
}

func (f *fakeMeta) ExchangeCode(ctx context.Context, code string) (*model.MetaGrant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.grant, f.err
}

func (f *fakeMeta) VerifyWebhook(body []byte, signatureHeader string) error {
	return nil
}

func (f *fakeMeta) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*model.WebhookEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *model.WebhookEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []*model.WebhookEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*model.WebhookEvent(nil), p.events...)
}
