package application_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

func (f fixture) requestArbitration(t *testing.T, dealID uint64) domain.ArbitrationRequest {
	t.Helper()
	req, err := f.svc.RequestAIResolution(context.Background(), as(worker), application.RequestResolutionInput{DealID: dealID, ProofURL: "https://example.com/proof.png"})
	if err != nil {
		t.Fatalf("RequestAIResolution: %v", err)
	}
	return req
}

func TestRequestAIResolutionKeepsDealActive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	deal := f.activeScenarioDeal(t)
	req := f.requestArbitration(t, deal.ID)
	if req.Status != domain.ArbitrationStatusPending || req.DealID != deal.ID {
		t.Fatalf("unexpected request %+v", req)
	}
	got, err := f.svc.GetDeal(context.Background(), deal.ID)
	if err != nil || got.Status != domain.StatusActive {
		t.Fatalf("deal must stay ACTIVE, got %+v, %v", got, err)
	}
	if got := f.balance(t); got != budgetA+penaltyA {
		t.Fatalf("locked value changed to %d", got)
	}
	_, err = f.svc.RequestAIResolution(context.Background(), as(worker), application.RequestResolutionInput{DealID: deal.ID, ProofURL: "https://example.com/second.png"})
	if !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error for second pending request, got %v", err)
	}
}

func TestRequestAIResolutionPreconditions(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	open := f.createScenarioDeal(t)
	input := application.RequestResolutionInput{DealID: open.ID, ProofURL: "https://example.com/p"}
	if _, err := f.svc.RequestAIResolution(context.Background(), as(worker), input); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error on OPEN deal, got %v", err)
	}
	if _, err := f.svc.RequestAIResolution(context.Background(), as(employer), input); !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected authorization error for employer, got %v", err)
	}
	active := f.activeScenarioDeal(t)
	malformed := application.RequestResolutionInput{DealID: active.ID, ProofURL: "not a url"}
	if _, err := f.svc.RequestAIResolution(context.Background(), as(stranger), malformed); !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected authorization error for stranger before url check, got %v", err)
	}
	if _, err := f.svc.RequestAIResolution(context.Background(), as(worker), malformed); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	requests, err := f.svc.ListArbitrationRequests(context.Background(), active.ID)
	if err != nil || len(requests) != 0 {
		t.Fatalf("rejected submissions must not record requests, got %v, %v", requests, err)
	}
}

func TestApplyVerdictWorkerPrevails(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	deal := f.activeScenarioDeal(t)
	f.requestArbitration(t, deal.ID)
	settled, err := f.svc.ApplyVerdict(context.Background(), asArbiter(), application.ApplyVerdictInput{DealID: deal.ID, Verdict: "worker_prevails"})
	if err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}
	if settled.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", settled.Status)
	}
	if p := f.position(t, worker); p.Received != budgetA+penaltyA {
		t.Fatalf("worker received %d", p.Received)
	}
	reqs, err := f.svc.ListArbitrationRequests(context.Background(), deal.ID)
	if err != nil || len(reqs) != 1 {
		t.Fatalf("ListArbitrationRequests = %v, %v", reqs, err)
	}
	if reqs[0].Status != domain.ArbitrationStatusResolved || reqs[0].Verdict != domain.VerdictWorkerPrevails || reqs[0].ResolvedAt == nil {
		t.Fatalf("request not resolved: %+v", reqs[0])
	}
}

func TestApplyVerdictFromRawModelAnswer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	deal := f.activeScenarioDeal(t)
	f.requestArbitration(t, deal.ID)
	settled, err := f.svc.ApplyVerdict(context.Background(), asArbiter(), application.ApplyVerdictInput{DealID: deal.ID, Raw: "```json\n{\"win\": false}\n```"})
	if err != nil {
		t.Fatalf("ApplyVerdict: %v", err)
	}
	if settled.Status != domain.StatusCancelledByEmployer {
		t.Fatalf("expected CANCELLED_BY_EMPLOYER, got %s", settled.Status)
	}
	if p := f.position(t, employer); p.Received != budgetA {
		t.Fatalf("employer received %d", p.Received)
	}
}

func TestApplyVerdictRequiresArbiterAndPendingRequest(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	deal := f.activeScenarioDeal(t)
	input := application.ApplyVerdictInput{DealID: deal.ID, Verdict: "worker_prevails"}
	if _, err := f.svc.ApplyVerdict(context.Background(), as(worker), input); !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected authorization error for worker, got %v", err)
	}
	garbled := application.ApplyVerdictInput{DealID: deal.ID, Verdict: "nobody"}
	if _, err := f.svc.ApplyVerdict(context.Background(), as(worker), garbled); !errors.Is(err, domain.ErrAuthorization) {
		t.Fatalf("expected authorization error before verdict parsing, got %v", err)
	}
	if _, err := f.svc.ApplyVerdict(context.Background(), asArbiter(), input); !errors.Is(err, domain.ErrState) {
		t.Fatalf("expected state error without pending request, got %v", err)
	}
	got, err := f.svc.GetDeal(context.Background(), deal.ID)
	if err != nil || got.Status != domain.StatusActive {
		t.Fatalf("rolled back verdict must leave deal ACTIVE, got %+v, %v", got, err)
	}
	if b := f.balance(t); b != budgetA+penaltyA {
		t.Fatalf("rolled back verdict moved value: %d", b)
	}
	if _, err := f.svc.ApplyVerdict(context.Background(), asArbiter(), application.ApplyVerdictInput{DealID: deal.ID}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input without verdict, got %v", err)
	}
}

func verdictEnvelope(t *testing.T, eventID string, payload contracts.ArbitrationVerdictPayload) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	raw, err := json.Marshal(contracts.EventEnvelope{
		EventID:          eventID,
		EventType:        domain.EventArbitrationVerdict,
		OccurredAt:       time.Now().UTC(),
		PartitionKeyPath: domain.CanonicalPartitionKeyPath,
		PartitionKey:     "0",
		SourceService:    "arbiter",
		TraceID:          "trace-1",
		SchemaVersion:    domain.CanonicalEventSchemaVersion,
		Data:             data,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return raw
}

func TestHandleArbitrationVerdictAppliesOnce(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	deal := f.activeScenarioDeal(t)
	f.requestArbitration(t, deal.ID)
	msg := verdictEnvelope(t, "evt-1", contracts.ArbitrationVerdictPayload{DealID: deal.ID, Raw: "{\"win\": true}"})
	if err := f.svc.HandleArbitrationVerdict(context.Background(), msg); err != nil {
		t.Fatalf("HandleArbitrationVerdict: %v", err)
	}
	if err := f.svc.HandleArbitrationVerdict(context.Background(), msg); err != nil {
		t.Fatalf("HandleArbitrationVerdict duplicate: %v", err)
	}
	got, err := f.svc.GetDeal(context.Background(), deal.ID)
	if err != nil || got.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %+v, %v", got, err)
	}
	dup, err := f.dedup.IsDuplicate(context.Background(), "evt-1", time.Now().UTC())
	if err != nil || !dup {
		t.Fatalf("event must be marked processed, got %v, %v", dup, err)
	}
}

func TestHandleArbitrationVerdictRejectsMalformedEvents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if err := f.svc.HandleArbitrationVerdict(context.Background(), []byte("{")); !errors.Is(err, domain.ErrInvalidEnvelope) {
		t.Fatalf("expected invalid envelope, got %v", err)
	}
	msg := verdictEnvelope(t, "evt-2", contracts.ArbitrationVerdictPayload{DealID: 99, Verdict: "worker_prevails"})
	if err := f.svc.HandleArbitrationVerdict(context.Background(), msg); err != nil {
		t.Fatalf("engine rejections must not be returned, got %v", err)
	}
	dup, err := f.dedup.IsDuplicate(context.Background(), "evt-2", time.Now().UTC())
	if err != nil || !dup {
		t.Fatalf("rejected event must be marked processed, got %v, %v", dup, err)
	}
}
