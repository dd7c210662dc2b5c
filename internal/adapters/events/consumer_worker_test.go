package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

type recordingHandler struct {
	calls   int
	results []error
}

func (h *recordingHandler) HandleArbitrationVerdict(_ context.Context, _ []byte) error {
	h.calls++
	if len(h.results) == 0 {
		return nil
	}
	err := h.results[0]
	h.results = h.results[1:]
	return err
}

func TestConsumerWorkerRoutesOnlyVerdictTopic(t *testing.T) {
	t.Parallel()
	consumer := NewMemoryConsumer(
		Message{Topic: domain.EventArbitrationVerdict, Payload: []byte("{}")},
		Message{Topic: "other.topic", Payload: []byte("{}")},
	)
	handler := &recordingHandler{}
	worker := NewConsumerWorker(discardLogger(), consumer, handler, "", time.Second)
	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if handler.calls != 1 {
		t.Fatalf("expected 1 handled message, got %d", handler.calls)
	}
}

func noBackoff(int) time.Duration { return 0 }

func TestConsumerWorkerRetriesOnlyRetryableErrors(t *testing.T) {
	t.Parallel()
	retryable := fmt.Errorf("%w: db", domain.ErrExternalFailure)
	handler := &recordingHandler{results: []error{retryable, retryable, nil}}
	consumer := NewMemoryConsumer(Message{Topic: domain.EventArbitrationVerdict, Offset: 4})
	worker := NewConsumerWorker(discardLogger(), consumer, handler, "", time.Second)
	worker.backoff = noBackoff
	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if handler.calls != 3 {
		t.Fatalf("expected retries until success, got %d calls", handler.calls)
	}
	if got := consumer.Committed(); len(got) != 1 || got[0].Offset != 4 {
		t.Fatalf("expected the applied message committed, got %+v", got)
	}

	final := &recordingHandler{results: []error{domain.ErrInvalidEnvelope}}
	consumer = NewMemoryConsumer(Message{Topic: domain.EventArbitrationVerdict})
	worker = NewConsumerWorker(discardLogger(), consumer, final, "", time.Second)
	worker.backoff = noBackoff
	if err := worker.ProcessOnce(context.Background()); err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if final.calls != 1 {
		t.Fatalf("non-retryable errors must not be retried, got %d calls", final.calls)
	}
	if len(consumer.Committed()) != 1 {
		t.Fatalf("a rejected verdict is final and must be committed")
	}
}

type failingHandler struct {
	calls  int
	cancel context.CancelFunc
}

func (h *failingHandler) HandleArbitrationVerdict(_ context.Context, _ []byte) error {
	h.calls++
	if h.calls == 2 {
		h.cancel()
	}
	return fmt.Errorf("%w: connection reset", domain.ErrExternalFailure)
}

func TestConsumerWorkerLeavesUnhandledVerdictUncommitted(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	handler := &failingHandler{cancel: cancel}
	consumer := NewMemoryConsumer(
		Message{Topic: domain.EventArbitrationVerdict, Offset: 1},
		Message{Topic: domain.EventArbitrationVerdict, Offset: 2},
	)
	worker := NewConsumerWorker(discardLogger(), consumer, handler, "", time.Second)
	worker.backoff = noBackoff
	if err := worker.ProcessOnce(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if got := consumer.Committed(); len(got) != 0 {
		t.Fatalf("no offset may be committed while a verdict is pending, got %+v", got)
	}
}
