package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/mido200912/Ai-Thor/domain/model"
	eventpubsub "github.com/mido200912/Ai-Thor/infrastructure/pubsub"
)

func newFakeClient(t *testing.T) (*pubsub.Client, *pstest.Server) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client, err := pubsub.NewClient(context.Background(), "test-project", option.WithGRPCConn(conn))
	require.NoError(t, err)
	return client, srv
}

func TestEventPublisher_CreatesTopicAndPublishes(t *testing.T) {
	client, srv := newFakeClient(t)
	ctx := context.Background()

	publisher, err := eventpubsub.NewEventPublisher(ctx, client, "integration-webhooks")
	require.NoError(t, err)
	defer publisher.Close()

	event := &model.WebhookEvent{
		ID:         "evt-1",
		Provider:   "shopify",
		Topic:      "orders/create",
		Shop:       "demo.myshopify.com",
		ReceivedAt: time.Now().UTC(),
		Payload:    json.RawMessage(`{"id":1}`),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "shopify", msgs[0].Attributes["provider"])
	assert.Equal(t, "orders/create", msgs[0].Attributes["topic"])
	assert.Equal(t, "evt-1", msgs[0].Attributes["event_id"])

	var decoded model.WebhookEvent
	require.NoError(t, json.Unmarshal(msgs[0].Data, &decoded))
	assert.Equal(t, "demo.myshopify.com", decoded.Shop)
	assert.JSONEq(t, `{"id":1}`, string(decoded.Payload))
}

func TestEventPublisher_ReusesExistingTopic(t *testing.T) {
	client, _ := newFakeClient(t)
	ctx := context.Background()

	_, err := client.CreateTopic(ctx, "existing")
	require.NoError(t, err)

	publisher, err := eventpubsub.NewEventPublisher(ctx, client, "existing")
	require.NoError(t, err)
	assert.NotNil(t, publisher)
}
