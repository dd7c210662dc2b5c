package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
	"go.opentelemetry.io/otel/trace"
)

// traceIDFrom prefers the active span's trace so consumers can join the
// event to the request that caused it.
func traceIDFrom(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}

func (s *Service) enqueueEvent(ctx context.Context, tx ports.Tx, eventType, traceID string, data any, dealID uint64, now time.Time) error {
	if !domain.IsCanonicalEmittedEvent(eventType) {
		return domain.ErrUnsupportedEvent
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("%w: encode %s payload: %v", domain.ErrInvalidInput, eventType, err)
	}
	if strings.TrimSpace(traceID) == "" {
		traceID = traceIDFrom(ctx)
	}
	eventID := uuid.New()
	key := strconv.FormatUint(dealID, 10)
	env := contracts.EventEnvelope{
		EventID:          eventID.String(),
		EventType:        eventType,
		OccurredAt:       now,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath,
		PartitionKey:     key,
		SourceService:    s.cfg.ServiceName,
		TraceID:          traceID,
		SchemaVersion:    domain.CanonicalEventSchemaVersion,
		Data:             b,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s envelope: %w", eventType, err)
	}
	return tx.Outbox().Enqueue(ctx, ports.OutboxEvent{
		EventID:          eventID,
		EventType:        eventType,
		PartitionKey:     key,
		PartitionKeyPath: domain.CanonicalPartitionKeyPath,
		Payload:          payload,
		SchemaVersion:    domain.CanonicalEventSchemaVersion,
		TraceID:          traceID,
		OccurredAt:       now,
	})
}

func (s *Service) enqueueDealCreated(ctx context.Context, tx ports.Tx, deal domain.Deal, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, tx, domain.EventDealCreated, traceID, contracts.DealCreatedPayload{
		DealID:    deal.ID,
		Employer:  deal.Employer.String(),
		Worker:    deal.Worker.String(),
		Budget:    contracts.Amount(deal.Budget),
		Penalty:   contracts.Amount(deal.Penalty),
		Duration:  deal.Duration,
		CreatedAt: deal.CreatedAt,
	}, deal.ID, now)
}

func (s *Service) enqueueDealAccepted(ctx context.Context, tx ports.Tx, deal domain.Deal, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, tx, domain.EventDealAccepted, traceID, contracts.DealAcceptedPayload{
		DealID:     deal.ID,
		Worker:     deal.Worker.String(),
		AcceptedAt: now.UTC().Format(time.RFC3339),
	}, deal.ID, now)
}

func (s *Service) enqueueDealSettled(ctx context.Context, tx ports.Tx, deal domain.Deal, splits []domain.Split, via domain.Command, traceID string, now time.Time) error {
	eventType := domain.EventDealCompleted
	if deal.Status == domain.StatusCancelledByEmployer {
		eventType = domain.EventDealCancelled
	}
	out := make([]contracts.PayoutSplitPayload, 0, len(splits))
	for _, sp := range splits {
		out = append(out, contracts.PayoutSplitPayload{
			Recipient: sp.Recipient.String(),
			Amount:    contracts.Amount(sp.Amount),
			Reason:    sp.Reason,
		})
	}
	return s.enqueueEvent(ctx, tx, eventType, traceID, contracts.DealSettledPayload{
		DealID:    deal.ID,
		Status:    deal.Status.String(),
		Splits:    out,
		Via:       via.String(),
		SettledAt: now.UTC().Format(time.RFC3339),
	}, deal.ID, now)
}

func (s *Service) enqueueArbitrationRequested(ctx context.Context, tx ports.Tx, deal domain.Deal, req domain.ArbitrationRequest, traceID string) error {
	return s.enqueueEvent(ctx, tx, domain.EventArbitrationRequested, traceID, contracts.ArbitrationRequestedPayload{
		RequestID:   req.RequestID,
		DealID:      deal.ID,
		Terms:       deal.Terms,
		ProofURL:    req.ProofURL,
		SubmittedAt: req.SubmittedAt.UTC().Format(time.RFC3339),
	}, deal.ID, req.SubmittedAt)
}

func (s *Service) enqueueArbitrationResolved(ctx context.Context, tx ports.Tx, req domain.ArbitrationRequest, verdict domain.Verdict, traceID string, now time.Time) error {
	return s.enqueueEvent(ctx, tx, domain.EventArbitrationResolved, traceID, contracts.ArbitrationResolvedPayload{
		RequestID:  req.RequestID,
		DealID:     req.DealID,
		Verdict:    string(verdict),
		ResolvedAt: now.UTC().Format(time.RFC3339),
	}, req.DealID, now)
}

func validateEnvelope(event contracts.EventEnvelope) error {
	if strings.TrimSpace(event.EventID) == "" || strings.TrimSpace(event.EventType) == "" || event.OccurredAt.IsZero() {
		return domain.ErrInvalidEnvelope
	}
	if strings.TrimSpace(event.SourceService) == "" || strings.TrimSpace(event.SchemaVersion) == "" {
		return domain.ErrInvalidEnvelope
	}
	if len(event.Data) == 0 {
		return domain.ErrInvalidEnvelope
	}
	return nil
}
