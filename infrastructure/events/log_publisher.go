package events

import (
	"context"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/sirupsen/logrus"
)

// LogPublisher only records deliveries in the service log. It is the
// default sink when no broker is configured.
type LogPublisher struct{}

func NewLogPublisher() *LogPublisher { return &LogPublisher{} }

func (LogPublisher) Publish(ctx context.Context, event *model.WebhookEvent) error {
	logger.GetLogger().WithFields(logrus.Fields{
		"event_id":    event.ID,
		"provider":    event.Provider,
		"topic":       event.Topic,
		"shop":        event.Shop,
		"delivery_id": event.DeliveryID,
		"payload":     string(event.Payload),
	}).Info("webhook event received")
	return nil
}

func (LogPublisher) Close() error { return nil }

var _ repository.IEventPublisher = LogPublisher{}
