package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// LoggingPublisher stands in for Kafka when no brokers are configured.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error {
	p.logger.InfoContext(ctx, "event published",
		"module", "events.logging_publisher",
		"layer", "adapter",
		"operation", "publish",
		"outcome", "success",
		"event_type", eventType,
		"partition_key", partitionKey,
		"payload_bytes", len(payload),
	)
	return nil
}

type PublishedMessage struct {
	EventType    string
	PartitionKey string
	Payload      []byte
}

// MemoryPublisher records published messages in order.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	failWith error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// FailWith makes every following Publish return err; nil restores success.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}

func (p *MemoryPublisher) Publish(_ context.Context, eventType string, payload []byte, partitionKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.messages = append(p.messages, PublishedMessage{
		EventType:    eventType,
		PartitionKey: partitionKey,
		Payload:      append([]byte(nil), payload...),
	})
	return nil
}

func (p *MemoryPublisher) Messages() []PublishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]PublishedMessage(nil), p.messages...)
}

var (
	_ ports.EventPublisher = (*LoggingPublisher)(nil)
	_ ports.EventPublisher = (*MemoryPublisher)(nil)
	_ ports.EventPublisher = (*KafkaPublisher)(nil)
)
