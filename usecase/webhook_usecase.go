package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrVerifyTokenMismatch = errors.New("webhook verify token mismatch")

type WebhookConfig struct {
	// VerifyToken is compared with hub.verify_token. Empty accepts any token.
	VerifyToken string
	// RequireSignature rejects deliveries without a signature header.
	RequireSignature bool
}

// ShopifyDelivery carries the X-Shopify-* headers of a webhook request.
type ShopifyDelivery struct {
	Topic     string
	Shop      string
	WebhookID string
	HMAC      string
}

type IWebhookUsecase interface {
	VerifyMetaSubscription(mode, token, challenge string) (string, error)
	HandleMetaEvent(ctx context.Context, body []byte, signature string) error
	HandleShopifyEvent(ctx context.Context, body []byte, delivery ShopifyDelivery) error
}

type webhookUsecase struct {
	cfg       WebhookConfig
	meta      repository.IMetaProvider
	shopify   repository.IShopifyProvider
	publisher repository.IEventPublisher
	now       func() time.Time
}

func NewWebhookUsecase(cfg WebhookConfig, meta repository.IMetaProvider, shopify repository.IShopifyProvider, publisher repository.IEventPublisher) IWebhookUsecase {
	return &webhookUsecase{cfg: cfg, meta: meta, shopify: shopify, publisher: publisher, now: time.Now}
}

func (u *webhookUsecase) VerifyMetaSubscription(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token == "" {
		return "", model.NewValidationError("hub.mode", "not a subscription request")
	}
	if u.cfg.VerifyToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(u.cfg.VerifyToken)) != 1 {
		logger.GetLogger().Warn("meta webhook verification with wrong token")
		return "", ErrVerifyTokenMismatch
	}
	logger.GetLogger().Info("Webhook verified")
	return challenge, nil
}

func (u *webhookUsecase) HandleMetaEvent(ctx context.Context, body []byte, signature string) error {
	if signature != "" || u.cfg.RequireSignature {
		if u.meta == nil {
			return fmt.Errorf("meta app secret not configured: %w", model.ErrInvalidSignature)
		}
		if err := u.meta.VerifyWebhook(body, signature); err != nil {
			logger.GetLogger().WithField("error", err).Warn("meta webhook signature rejected")
			return err
		}
	}
	var envelope struct {
		Object string `json:"object"`
	}
	_ = json.Unmarshal(body, &envelope)

	event := u.newEvent("meta", body)
	event.Topic = envelope.Object
	return u.publish(ctx, event)
}

func (u *webhookUsecase) HandleShopifyEvent(ctx context.Context, body []byte, delivery ShopifyDelivery) error {
	if delivery.HMAC != "" || u.cfg.RequireSignature {
		if u.shopify == nil {
			return fmt.Errorf("shopify api secret not configured: %w", model.ErrInvalidSignature)
		}
		if err := u.shopify.VerifyWebhook(body, delivery.HMAC); err != nil {
			logger.GetLogger().WithField("shop", delivery.Shop).Warn("shopify webhook hmac rejected")
			return err
		}
	}
	event := u.newEvent("shopify", body)
	event.Topic = delivery.Topic
	event.Shop = delivery.Shop
	event.DeliveryID = delivery.WebhookID
	return u.publish(ctx, event)
}

// newEvent keeps JSON bodies as-is and wraps anything else as a JSON string.
func (u *webhookUsecase) newEvent(provider string, body []byte) *model.WebhookEvent {
	payload := json.RawMessage(body)
	if !json.Valid(body) {
		quoted, _ := json.Marshal(string(body))
		payload = quoted
	}
	return &model.WebhookEvent{
		ID:         uuid.NewString(),
		Provider:   provider,
		ReceivedAt: u.now().UTC(),
		Payload:    payload,
	}
}

func (u *webhookUsecase) publish(ctx context.Context, event *model.WebhookEvent) error {
	logger.GetLogger().WithFields(logrus.Fields{
		"event_id": event.ID,
		"provider": event.Provider,
		"topic":    event.Topic,
		"bytes":    len(event.Payload),
	}).Info("Received webhook")
	if err := u.publisher.Publish(ctx, event); err != nil {
		return fmt.Errorf("publish %s webhook: %w", event.Provider, err)
	}
	return nil
}
