package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// EventPublisher forwards accepted webhook deliveries to a Pub/Sub topic.
type EventPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewEventPublisher resolves topicID, creating it when it does not exist yet.
func NewEventPublisher(ctx context.Context, client *pubsub.Client, topicID string) (*EventPublisher, error) {
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %s: %w", topicID, err)
	}
	if !exists {
		logger.GetLogger().WithField("topic", topicID).Info("Topic doesn't exist - creating it")
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			return nil, fmt.Errorf("create topic %s: %w", topicID, err)
		}
	}
	return &EventPublisher{client: client, topic: topic}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, event *model.WebhookEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook event: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id": event.ID,
			"provider": event.Provider,
			"topic":    event.Topic,
			"shop":     event.Shop,
		},
	}
	serverID, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("publish webhook event %s: %w", event.ID, err)
	}
	logger.GetLogger().WithField("server ID", serverID).WithField("event_id", event.ID).Info("Message published")
	return nil
}

// Close flushes pending messages and releases the client.
func (p *EventPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

var _ repository.IEventPublisher = (*EventPublisher)(nil)
