package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"go.uber.org/multierr"
)

// NewClient prefers a connection string and otherwise authenticates to the
// namespace with the default Azure credential chain.
func NewClient(namespace, connectionString string) (*azservicebus.Client, error) {
	if connectionString != "" {
		return azservicebus.NewClientFromConnectionString(connectionString, nil)
	}
	if namespace == "" {
		return nil, errors.New("servicebus: namespace or connection string is required")
	}
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("servicebus: azure credential: %w", err)
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

type messageSender interface {
	SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error
	Close(ctx context.Context) error
}

// EventPublisher sends webhook deliveries to a Service Bus queue.
type EventPublisher struct {
	client *azservicebus.Client
	sender messageSender
}

func NewEventPublisher(client *azservicebus.Client, queue string) (*EventPublisher, error) {
	sender, err := client.NewSender(queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return nil, err
	}
	return &EventPublisher{client: client, sender: sender}, nil
}

func (p *EventPublisher) Publish(ctx context.Context, event *model.WebhookEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode webhook event: %w", err)
	}
	contentType := "application/json"
	subject := event.Provider
	if event.Topic != "" {
		subject = event.Provider + "/" + event.Topic
	}
	msg := &azservicebus.Message{
		MessageID:   &event.ID,
		ContentType: &contentType,
		Subject:     &subject,
		Body:        body,
		ApplicationProperties: map[string]any{
			"provider": event.Provider,
			"shop":     event.Shop,
		},
	}
	if err := p.sender.SendMessage(ctx, msg, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return fmt.Errorf("send webhook event %s: %w", event.ID, err)
	}
	return nil
}

func (p *EventPublisher) Close() error {
	ctx := context.Background()
	err := p.sender.Close(ctx)
	if p.client != nil {
		err = multierr.Append(err, p.client.Close(ctx))
	}
	return err
}

var _ repository.IEventPublisher = (*EventPublisher)(nil)
