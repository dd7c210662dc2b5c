package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// OutboxWorker relays committed outbox rows to the broker in sequence order.
type OutboxWorker struct {
	logger    *slog.Logger
	outbox    ports.OutboxRepository
	publisher ports.EventPublisher
	interval  time.Duration
	batchSize int
}

func NewOutboxWorker(logger *slog.Logger, outbox ports.OutboxRepository, publisher ports.EventPublisher, interval time.Duration, batchSize int) *OutboxWorker {
	return &OutboxWorker{
		logger:    logger,
		outbox:    outbox,
		publisher: publisher,
		interval:  orDefault(interval, 2*time.Second),
		batchSize: orDefault(batchSize, 100),
	}
}

func (w *OutboxWorker) Run(ctx context.Context) error {
	return pollLoop(ctx, w.logger, "events.outbox_relay", w.interval, func(ctx context.Context) error {
		_, err := w.ProcessOnce(ctx)
		return err
	})
}

// ProcessOnce publishes one batch and reports how many records went out.
// A record that fails to publish stays unpublished for the next pass.
func (w *OutboxWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.FetchUnpublished(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range batch {
		at := time.Now().UTC()
		if pubErr := w.publisher.Publish(ctx, rec.EventType, rec.Payload, rec.PartitionKey); pubErr != nil {
			w.logger.WarnContext(ctx, "relay deferred",
				"module", "events.outbox_relay",
				"layer", "adapter",
				"operation", "publish",
				"outcome", "retry",
				"event_type", rec.EventType,
				"outbox_id", rec.OutboxID,
				"attempt", rec.RetryCount+1,
				"error", pubErr,
			)
			if markErr := w.outbox.MarkFailed(ctx, rec.OutboxID, pubErr.Error(), at); markErr != nil {
				return sent, markErr
			}
			continue
		}
		if err := w.outbox.MarkPublished(ctx, rec.OutboxID, at); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
