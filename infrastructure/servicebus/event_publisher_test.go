package servicebus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mido200912/Ai-Thor/domain/model"
)

type fakeSender struct {
	sent    []*azservicebus.Message
	sendErr error
	closed  bool
}

func (f *fakeSender) SendMessage(ctx context.Context, message *azservicebus.Message, options *azservicebus.SendMessageOptions) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, message)
	return nil
}

func (f *fakeSender) Close(ctx context.Context) error {
	f.closed = true
	return nil
}

func TestEventPublisher_Publish(t *testing.T) {
	sender := &fakeSender{}
	p := &EventPublisher{sender: sender}

	event := &model.WebhookEvent{
		ID:         "evt-9",
		Provider:   "meta",
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"object":"page"}`),
	}
	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "evt-9", *msg.MessageID)
	assert.Equal(t, "meta", *msg.Subject)
	assert.Equal(t, "application/json", *msg.ContentType)
	assert.Equal(t, "meta", msg.ApplicationProperties["provider"])

	var decoded model.WebhookEvent
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.JSONEq(t, `{"object":"page"}`, string(decoded.Payload))

	require.NoError(t, p.Close())
	assert.True(t, sender.closed)
}

func TestEventPublisher_SubjectIncludesTopic(t *testing.T) {
	sender := &fakeSender{}
	p := &EventPublisher{sender: sender}

	require.NoError(t, p.Publish(context.Background(), &model.WebhookEvent{ID: "e", Provider: "shopify", Topic: "app/uninstalled", Payload: json.RawMessage(`{}`)}))
	assert.Equal(t, "shopify/app/uninstalled", *sender.sent[0].Subject)
}

func TestEventPublisher_SendError(t *testing.T) {
	p := &EventPublisher{sender: &fakeSender{sendErr: errors.New("amqp link detached")}}
	err := p.Publish(context.Background(), &model.WebhookEvent{ID: "e", Provider: "meta", Payload: json.RawMessage(`{}`)})
	assert.ErrorContains(t, err, "amqp link detached")
}

func TestNewClient_RequiresTarget(t *testing.T) {
	_, err := NewClient("", "")
	assert.Error(t, err)
}
