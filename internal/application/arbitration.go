package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// RequestAIResolution forwards the worker's proof to the arbitration
// gateway. The deal status does not change.
func (s *Service) RequestAIResolution(ctx context.Context, actor Actor, input RequestResolutionInput) (domain.ArbitrationRequest, error) {
	if actor.Address == "" {
		return domain.ArbitrationRequest{}, domain.ErrUnauthorized
	}
	request := idempotentRequest{Operation: domain.CommandRequestArbitration.String(), Caller: actor.Address, Input: input}
	return runIdempotent(ctx, s, actor.IdempotencyKey, request, func() (domain.ArbitrationRequest, error) {
		var submitted domain.ArbitrationRequest
		err := s.withinTx(ctx, domain.CommandRequestArbitration.String(), func(tx ports.Tx) error {
			now := s.nowFn()
			var proofURL string
			deal, err := tx.Deals().Update(ctx, input.DealID, func(d *domain.Deal) error {
				if err := d.Authorize(domain.CommandRequestArbitration, actor.caller()); err != nil {
					return err
				}
				var err error
				proofURL, err = domain.ValidateProofURL(input.ProofURL)
				return err
			})
			if err != nil {
				return err
			}
			pending, err := tx.Arbitration().PendingForDeal(ctx, deal.ID)
			switch {
			case err == nil:
				return fmt.Errorf("%w: arbitration request %s is still pending", domain.ErrState, pending.RequestID)
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
			req := domain.ArbitrationRequest{
				RequestID:   uuid.NewString(),
				DealID:      deal.ID,
				ProofURL:    proofURL,
				Status:      domain.ArbitrationStatusPending,
				SubmittedBy: actor.Address,
				SubmittedAt: now,
			}
			if err := tx.Arbitration().Create(ctx, req); err != nil {
				return err
			}
			if err := s.enqueueArbitrationRequested(ctx, tx, deal, req, actor.RequestID); err != nil {
				return err
			}
			submitted = req
			return nil
		})
		s.logOutcome(ctx, domain.CommandRequestArbitration.String(), input.DealID, err)
		if err != nil {
			return domain.ArbitrationRequest{}, err
		}
		return submitted, nil
	})
}

// ApplyVerdict settles an ACTIVE deal with a pending arbitration request:
// the worker prevailing runs the approve payout, the employer prevailing
// runs the cancel payout.
func (s *Service) ApplyVerdict(ctx context.Context, actor Actor, input ApplyVerdictInput) (domain.Deal, error) {
	if actor.Address == "" {
		return domain.Deal{}, domain.ErrUnauthorized
	}
	if !actor.caller().Arbiter {
		return domain.Deal{}, fmt.Errorf("%w: %s requires the arbiter", domain.ErrAuthorization, domain.CommandApplyVerdict)
	}
	verdict, err := resolveVerdict(input)
	if err != nil {
		return domain.Deal{}, err
	}
	request := idempotentRequest{Operation: domain.CommandApplyVerdict.String(), Caller: actor.Address, Input: input}
	return runIdempotent(ctx, s, actor.IdempotencyKey, request, func() (domain.Deal, error) {
		var settled domain.Deal
		err := s.withinTx(ctx, domain.CommandApplyVerdict.String(), func(tx ports.Tx) error {
			now := s.nowFn()
			deal, err := s.settle(ctx, tx, actor, domain.CommandApplyVerdict, input.DealID, verdict.Outcome(), now)
			if err != nil {
				return err
			}
			pending, err := tx.Arbitration().PendingForDeal(ctx, deal.ID)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: deal %d has no pending arbitration request", domain.ErrState, deal.ID)
			}
			if err != nil {
				return err
			}
			if err := tx.Arbitration().Resolve(ctx, pending.RequestID, verdict, now); err != nil {
				return err
			}
			if err := s.enqueueArbitrationResolved(ctx, tx, pending, verdict, actor.RequestID, now); err != nil {
				return err
			}
			settled = deal
			return nil
		})
		s.afterSettle(ctx, domain.CommandApplyVerdict, input.DealID, err)
		if err != nil {
			return domain.Deal{}, err
		}
		return settled, nil
	})
}

func resolveVerdict(input ApplyVerdictInput) (domain.Verdict, error) {
	if strings.TrimSpace(input.Verdict) != "" {
		return domain.ParseVerdict(input.Verdict)
	}
	if strings.TrimSpace(input.Raw) != "" {
		return domain.DecodeModelVerdict(input.Raw)
	}
	return "", fmt.Errorf("%w: verdict or raw answer is required", domain.ErrInvalidInput)
}

// HandleArbitrationVerdict applies a verdict envelope published by the
// arbiter. Rejections by the engine are final and the event is marked
// processed. Any other failure is returned as retryable and the event stays
// unprocessed.
func (s *Service) HandleArbitrationVerdict(ctx context.Context, payload []byte) error {
	var envelope contracts.EventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEnvelope, err)
	}
	if err := validateEnvelope(envelope); err != nil {
		return err
	}
	if !domain.IsCanonicalInputEvent(envelope.EventType) {
		return domain.ErrUnsupportedEvent
	}
	if s.cfg.ArbiterAddress == "" {
		return fmt.Errorf("%w: no arbiter identity configured", domain.ErrUnauthorized)
	}
	if s.eventDedup != nil {
		dup, err := s.eventDedup.IsDuplicate(ctx, envelope.EventID, s.nowFn())
		if err != nil {
			return domain.AsExternal(err)
		}
		if dup {
			return nil
		}
	}
	var data contracts.ArbitrationVerdictPayload
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return fmt.Errorf("%w: invalid %s payload", domain.ErrInvalidInput, envelope.EventType)
	}
	actor := Actor{Address: s.cfg.ArbiterAddress, Role: RoleArbiter, RequestID: envelope.TraceID}
	_, err := s.ApplyVerdict(ctx, actor, ApplyVerdictInput{DealID: data.DealID, Verdict: data.Verdict, Raw: data.Raw})
	if err != nil && !domain.IsRejection(err) {
		// Not an answer about the deal: leave the event unprocessed so the
		// redelivery can apply it.
		return domain.AsExternal(err)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "arbitration verdict rejected",
			"module", "application.arbitration",
			"layer", "application",
			"operation", "handle_arbitration_verdict",
			"outcome", "rejected",
			"event_id", envelope.EventID,
			"deal_id", data.DealID,
			"error", err,
		)
	}
	if s.eventDedup != nil {
		_ = s.eventDedup.MarkProcessed(ctx, envelope.EventID, envelope.EventType, s.nowFn().Add(s.cfg.EventDedupTTL))
	}
	return nil
}
