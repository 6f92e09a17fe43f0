package jobs

import (
	"crypto/rand"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

// OrderEventMessage is the wire form of an order event shared by every sink.
type OrderEventMessage struct {
	EventID        string         `json:"eventId"`
	Type           string         `json:"type"`
	OrderID        string         `json:"orderId"`
	UserID         string         `json:"userId,omitempty"`
	PreviousStatus string         `json:"previousStatus,omitempty"`
	CurrentStatus  string         `json:"currentStatus,omitempty"`
	ActorID        string         `json:"actorId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type eventIDSource struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newEventIDSource() *eventIDSource {
	return &eventIDSource{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (s *eventIDSource) next(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func newOrderEventMessage(ids *eventIDSource, event services.OrderEvent) OrderEventMessage {
	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	return OrderEventMessage{
		EventID:        ids.next(at),
		Type:           event.Type,
		OrderID:        event.OrderID,
		UserID:         event.UserID,
		PreviousStatus: event.PreviousStatus,
		CurrentStatus:  event.CurrentStatus,
		ActorID:        event.ActorID,
		OccurredAt:     at.UTC(),
		Metadata:       event.Metadata,
	}
}

func (m OrderEventMessage) attributes() map[string]string {
	attrs := make(map[string]string)
	setAttr(attrs, "eventId", m.EventID)
	setAttr(attrs, "type", m.Type)
	setAttr(attrs, "orderId", m.OrderID)
	setAttr(attrs, "status", m.CurrentStatus)
	return attrs
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
