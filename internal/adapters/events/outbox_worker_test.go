package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func enqueue(t *testing.T, store *memory.Store, eventType, key string) {
	t.Helper()
	err := store.Outbox().Enqueue(context.Background(), ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    eventType,
		PartitionKey: key,
		Payload:      []byte("{}"),
		OccurredAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func TestOutboxWorkerPublishesInOrder(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	enqueue(t, store, domain.EventDealCreated, "0")
	enqueue(t, store, domain.EventDealAccepted, "0")
	pub := NewMemoryPublisher()
	worker := NewOutboxWorker(discardLogger(), store.Outbox(), pub, time.Second, 10)

	n, err := worker.ProcessOnce(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("ProcessOnce = %d, %v", n, err)
	}
	msgs := pub.Messages()
	if len(msgs) != 2 || msgs[0].EventType != domain.EventDealCreated || msgs[1].EventType != domain.EventDealAccepted {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	if msgs[0].PartitionKey != "0" {
		t.Fatalf("expected deal id partition key, got %q", msgs[0].PartitionKey)
	}
	n, err = worker.ProcessOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("published rows must not be resent: %d, %v", n, err)
	}
}

func TestOutboxWorkerKeepsFailedRecords(t *testing.T) {
	t.Parallel()
	store := memory.NewStore()
	enqueue(t, store, domain.EventDealCreated, "3")
	pub := NewMemoryPublisher()
	pub.FailWith(errors.New("broker down"))
	worker := NewOutboxWorker(discardLogger(), store.Outbox(), pub, time.Second, 10)

	n, err := worker.ProcessOnce(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("ProcessOnce = %d, %v", n, err)
	}
	pending, err := store.Outbox().FetchUnpublished(context.Background(), 10)
	if err != nil || len(pending) != 1 || pending[0].RetryCount != 1 || pending[0].LastError == nil {
		t.Fatalf("failed record must stay pending with a retry count: %+v, %v", pending, err)
	}

	pub.FailWith(nil)
	n, err = worker.ProcessOnce(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("retry ProcessOnce = %d, %v", n, err)
	}
}
