package repository

import (
	"context"

	"github.com/mido200912/Ai-Thor/domain/model"
)

// IEventPublisher hands accepted webhook deliveries to downstream processing.
type IEventPublisher interface {
	Publish(ctx context.Context, evt *model.WebhookEvent) error
	Close() error
}

// ILinkBroadcaster pushes link outcomes to live dashboard subscribers.
type ILinkBroadcaster interface {
	BroadcastLink(event model.LinkEvent)
}
