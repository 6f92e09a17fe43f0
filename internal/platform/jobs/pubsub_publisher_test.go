package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

func TestPubSubOrderEventPublisherPublishesMessage(t *testing.T) {
	ctx := context.Background()
	srv := pstest.NewServer()
	defer srv.Close()

	client, err := pubsub.NewClient(ctx, "test-project",
		option.WithEndpoint(srv.Addr),
		option.WithoutAuthentication(),
		option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		t.Fatalf("pubsub.NewClient: %v", err)
	}
	defer func() {
		_ = client.Close()
	}()

	topic, err := client.CreateTopic(ctx, "order-events")
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}

	publisher, err := NewPubSubOrderEventPublisher(topic)
	if err != nil {
		t.Fatalf("NewPubSubOrderEventPublisher: %v", err)
	}
	defer publisher.Close()

	occurredAt := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)
	event := services.OrderEvent{
		Type:           services.OrderEventStatusChanged,
		OrderID:        "CKT_57600123_12345",
		UserID:         "user-1",
		PreviousStatus: "Packed",
		CurrentStatus:  "Shipped",
		ActorID:        "carrier",
		OccurredAt:     occurredAt,
		Metadata:       map[string]any{"awb": "ST100"},
	}

	if err := publisher.PublishOrderEvent(ctx, event); err != nil {
		t.Fatalf("PublishOrderEvent: %v", err)
	}

	messages := srv.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(messages))
	}

	var payload OrderEventMessage
	if err := json.Unmarshal(messages[0].Data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != event.OrderID || payload.CurrentStatus != "Shipped" || payload.PreviousStatus != "Packed" {
		t.Fatalf("unexpected payload %#v", payload)
	}
	if payload.EventID == "" || !payload.OccurredAt.Equal(occurredAt) {
		t.Fatalf("expected event id and timestamp, got %#v", payload)
	}
	if payload.Metadata["awb"] != "ST100" {
		t.Fatalf("expected metadata, got %#v", payload.Metadata)
	}
	attrs := messages[0].Attributes
	if attrs["type"] != services.OrderEventStatusChanged || attrs["orderId"] != event.OrderID || attrs["eventId"] != payload.EventID {
		t.Fatalf("unexpected attributes %#v", attrs)
	}
	if messages[0].OrderingKey != event.OrderID {
		t.Fatalf("expected ordering key %q, got %q", event.OrderID, messages[0].OrderingKey)
	}
}

func TestNewPubSubOrderEventPublisherRequiresTopic(t *testing.T) {
	if _, err := NewPubSubOrderEventPublisher(nil); err == nil {
		t.Fatal("expected error without topic")
	}
}
