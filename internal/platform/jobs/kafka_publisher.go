package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/Vidhya-shiva/prabha-backend-file/internal/platform/observability"
	"github.com/Vidhya-shiva/prabha-backend-file/internal/services"
)

// MessageWriter is the subset of kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka order event sink.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	BatchSize    int
	Logger       *zap.Logger
}

// KafkaOrderEventPublisher writes order events keyed by order id.
type KafkaOrderEventPublisher struct {
	writer  MessageWriter
	ids     *eventIDSource
	marshal func(any) ([]byte, error)
}

// NewKafkaWriter builds a kafka.Writer for the order topic.
func NewKafkaWriter(cfg KafkaConfig) (*kafka.Writer, error) {
	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("kafka order publisher: at least one broker is required")
	}
	topic := strings.TrimSpace(cfg.Topic)
	if topic == "" {
		return nil, errors.New("kafka order publisher: topic is required")
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 10 * time.Millisecond
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		BatchSize:    batchSize,
		RequiredAcks: kafka.RequireOne,
		Logger:       observability.NewPrintfAdapter(logger),
		ErrorLogger:  observability.NewErrorPrintfAdapter(logger),
	}, nil
}

// NewKafkaOrderEventPublisher wraps a writer.
func NewKafkaOrderEventPublisher(writer MessageWriter) (*KafkaOrderEventPublisher, error) {
	if writer == nil {
		return nil, errors.New("kafka order publisher: writer is required")
	}
	return &KafkaOrderEventPublisher{
		writer:  writer,
		ids:     newEventIDSource(),
		marshal: json.Marshal,
	}, nil
}

// PublishOrderEvent writes one message synchronously.
func (p *KafkaOrderEventPublisher) PublishOrderEvent(ctx context.Context, event services.OrderEvent) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka order publisher: not initialised")
	}
	message := newOrderEventMessage(p.ids, event)
	data, err := p.marshal(message)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	attrs := message.attributes()
	headers := make([]kafka.Header, 0, len(attrs))
	for key, value := range attrs {
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(message.OrderID),
		Value:   data,
		Headers: headers,
		Time:    message.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("publish order event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaOrderEventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
