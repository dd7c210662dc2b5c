package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

// Message is one record read from the broker. Partition and Offset identify
// it for the commit.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Payload   []byte
}

// Consumer hands out messages and acknowledges them once handled. A message
// that is never committed is redelivered after a restart or rebalance.
type Consumer interface {
	Poll(ctx context.Context, max int) ([]Message, error)
	Commit(ctx context.Context, msgs ...Message) error
}

type VerdictHandler interface {
	HandleArbitrationVerdict(ctx context.Context, payload []byte) error
}

type ConsumerWorker struct {
	logger       *slog.Logger
	consumer     Consumer
	handler      VerdictHandler
	verdictTopic string
	interval     time.Duration
	backoff      func(attempt int) time.Duration
}

func NewConsumerWorker(logger *slog.Logger, consumer Consumer, handler VerdictHandler, verdictTopic string, interval time.Duration) *ConsumerWorker {
	if verdictTopic == "" {
		verdictTopic = domain.EventArbitrationVerdict
	}
	return &ConsumerWorker{
		logger:       logger,
		consumer:     consumer,
		handler:      handler,
		verdictTopic: verdictTopic,
		interval:     orDefault(interval, 2*time.Second),
		backoff:      cappedBackoff,
	}
}

func cappedBackoff(attempt int) time.Duration {
	return min(time.Duration(attempt)*200*time.Millisecond, 5*time.Second)
}

func (w *ConsumerWorker) Run(ctx context.Context) error {
	return pollLoop(ctx, w.logger, "events.verdict_consumer", w.interval, w.ProcessOnce)
}

// ProcessOnce handles one batch in order and commits each message after its
// handler returned a final outcome. A retryable failure holds the batch
// until it succeeds or ctx ends; uncommitted messages are then redelivered.
func (w *ConsumerWorker) ProcessOnce(ctx context.Context) error {
	msgs, err := w.consumer.Poll(ctx, 50)
	if err != nil {
		return err
	}
	for _, msg := range msgs {
		if msg.Topic == w.verdictTopic {
			if err := w.handle(ctx, msg.Payload); err != nil {
				return err
			}
		} else {
			w.logger.DebugContext(ctx, "ignoring message from unexpected topic", "topic", msg.Topic)
		}
		if err := w.consumer.Commit(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// handle returns nil once the verdict is applied or finally rejected, and
// ctx.Err() if ctx ends while retrying.
func (w *ConsumerWorker) handle(ctx context.Context, payload []byte) error {
	for attempt := 1; ; attempt++ {
		err := w.handler.HandleArbitrationVerdict(ctx, payload)
		if err == nil {
			return nil
		}
		if !domain.IsRetryable(err) {
			w.logger.WarnContext(ctx, "verdict dropped",
				"module", "events.verdict_consumer",
				"layer", "adapter",
				"operation", "handle_verdict",
				"outcome", "rejected",
				"error", err,
			)
			return nil
		}
		w.logger.WarnContext(ctx, "verdict deferred",
			"module", "events.verdict_consumer",
			"layer", "adapter",
			"operation", "handle_verdict",
			"outcome", "retry",
			"attempt", attempt,
			"error", err,
		)
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff(attempt)):
		}
	}
}

type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}

func (n *NoopConsumer) Commit(_ context.Context, _ ...Message) error {
	return nil
}

// MemoryConsumer hands out queued messages once each and records commits.
type MemoryConsumer struct {
	queue     []Message
	committed []Message
}

func NewMemoryConsumer(msgs ...Message) *MemoryConsumer {
	return &MemoryConsumer{queue: msgs}
}

func (c *MemoryConsumer) Poll(_ context.Context, max int) ([]Message, error) {
	if max <= 0 || max > len(c.queue) {
		max = len(c.queue)
	}
	out := c.queue[:max]
	c.queue = c.queue[max:]
	return out, nil
}

func (c *MemoryConsumer) Commit(_ context.Context, msgs ...Message) error {
	c.committed = append(c.committed, msgs...)
	return nil
}

func (c *MemoryConsumer) Committed() []Message {
	return append([]Message(nil), c.committed...)
}
