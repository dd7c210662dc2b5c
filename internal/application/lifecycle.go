package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

var tracer = otel.Tracer("github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application")

func (s *Service) CreateDeal(ctx context.Context, actor Actor, input CreateDealInput) (domain.Deal, error) {
	if actor.Address == "" {
		return domain.Deal{}, domain.ErrUnauthorized
	}
	worker, err := domain.ParseAddress(input.Worker)
	if err != nil {
		return domain.Deal{}, err
	}
	params := domain.NewDealParams{
		Employer:      actor.Address,
		Worker:        worker,
		Terms:         strings.TrimSpace(input.Terms),
		Budget:        input.Budget,
		Penalty:       input.Penalty,
		Duration:      input.Duration,
		SuppliedValue: input.SuppliedValue,
	}
	if err := domain.ValidateNewDeal(params); err != nil {
		return domain.Deal{}, err
	}
	request := idempotentRequest{Operation: domain.CommandCreate.String(), Caller: actor.Address, Input: input}
	return runIdempotent(ctx, s, actor.IdempotencyKey, request, func() (domain.Deal, error) {
		var created domain.Deal
		err := s.withinTx(ctx, domain.CommandCreate.String(), func(tx ports.Tx) error {
			now := s.nowFn()
			id, err := tx.Deals().NextID(ctx)
			if err != nil {
				return err
			}
			deal := domain.Deal{
				ID:        id,
				Employer:  params.Employer,
				Worker:    params.Worker,
				Terms:     params.Terms,
				Budget:    params.Budget,
				Penalty:   params.Penalty,
				Duration:  params.Duration,
				Status:    domain.StatusOpen,
				CreatedAt: uint64(now.Unix()),
				UpdatedAt: now,
			}
			if err := tx.Deals().Put(ctx, deal); err != nil {
				return err
			}
			if err := s.custodian(tx).lock(ctx, deal, now); err != nil {
				return err
			}
			if err := tx.Contacts().Put(ctx, id, domain.RoleEmployer, input.Contact); err != nil {
				return err
			}
			if err := tx.Index().Add(ctx, deal.Employer, domain.RoleEmployer, id); err != nil {
				return err
			}
			if err := tx.Index().Add(ctx, deal.Worker, domain.RoleWorker, id); err != nil {
				return err
			}
			if err := s.enqueueDealCreated(ctx, tx, deal, actor.RequestID, now); err != nil {
				return err
			}
			created = deal
			return nil
		})
		if err != nil {
			s.logOutcome(ctx, domain.CommandCreate.String(), 0, err)
			return domain.Deal{}, err
		}
		s.logOutcome(ctx, domain.CommandCreate.String(), created.ID, nil)
		return created, nil
	})
}

func (s *Service) AcceptDeal(ctx context.Context, actor Actor, input AcceptDealInput) (domain.Deal, error) {
	if actor.Address == "" {
		return domain.Deal{}, domain.ErrUnauthorized
	}
	request := idempotentRequest{Operation: domain.CommandAccept.String(), Caller: actor.Address, Input: input}
	return runIdempotent(ctx, s, actor.IdempotencyKey, request, func() (domain.Deal, error) {
		var accepted domain.Deal
		err := s.withinTx(ctx, domain.CommandAccept.String(), func(tx ports.Tx) error {
			now := s.nowFn()
			deal, err := tx.Deals().Update(ctx, input.DealID, func(d *domain.Deal) error {
				if err := d.Authorize(domain.CommandAccept, actor.caller()); err != nil {
					return err
				}
				d.Status = domain.StatusActive
				d.UpdatedAt = now
				return nil
			})
			if err != nil {
				return err
			}
			if err := tx.Contacts().Put(ctx, deal.ID, domain.RoleWorker, input.Contact); err != nil {
				return err
			}
			if err := s.enqueueDealAccepted(ctx, tx, deal, actor.RequestID, now); err != nil {
				return err
			}
			accepted = deal
			return nil
		})
		s.logOutcome(ctx, domain.CommandAccept.String(), input.DealID, err)
		if err != nil {
			return domain.Deal{}, err
		}
		return accepted, nil
	})
}

// ApproveManually pays budget and penalty to the worker.
func (s *Service) ApproveManually(ctx context.Context, actor Actor, dealID uint64) (domain.Deal, error) {
	return s.settleByParty(ctx, actor, domain.CommandApprove, dealID, domain.StatusCompleted)
}

// CancelWithPenalty pays the penalty to the worker and refunds the budget to
// the employer.
func (s *Service) CancelWithPenalty(ctx context.Context, actor Actor, dealID uint64) (domain.Deal, error) {
	return s.settleByParty(ctx, actor, domain.CommandCancel, dealID, domain.StatusCancelledByEmployer)
}

func (s *Service) settleByParty(ctx context.Context, actor Actor, cmd domain.Command, dealID uint64, outcome domain.Status) (domain.Deal, error) {
	if actor.Address == "" {
		return domain.Deal{}, domain.ErrUnauthorized
	}
	request := idempotentRequest{Operation: cmd.String(), Caller: actor.Address, Input: dealID}
	return runIdempotent(ctx, s, actor.IdempotencyKey, request, func() (domain.Deal, error) {
		var settled domain.Deal
		err := s.withinTx(ctx, cmd.String(), func(tx ports.Tx) error {
			deal, err := s.settle(ctx, tx, actor, cmd, dealID, outcome, s.nowFn())
			settled = deal
			return err
		})
		s.afterSettle(ctx, cmd, dealID, err)
		if err != nil {
			return domain.Deal{}, err
		}
		return settled, nil
	})
}

// settle moves an ACTIVE deal into a terminal outcome and pays out the
// locked value inside tx. Every payout path goes through here.
func (s *Service) settle(ctx context.Context, tx ports.Tx, actor Actor, cmd domain.Command, dealID uint64, outcome domain.Status, now time.Time) (domain.Deal, error) {
	var splits []domain.Split
	deal, err := tx.Deals().Update(ctx, dealID, func(d *domain.Deal) error {
		if err := d.Authorize(cmd, actor.caller()); err != nil {
			return err
		}
		if !domain.CanTransition(d.Status, outcome) {
			return fmt.Errorf("%w: %s cannot move deal %d to %s", domain.ErrState, cmd, d.ID, outcome)
		}
		out, err := domain.SettlementSplits(*d, outcome)
		if err != nil {
			return err
		}
		splits = out
		d.Status = outcome
		d.UpdatedAt = now
		return nil
	})
	if err != nil {
		return domain.Deal{}, err
	}
	if err := s.custodian(tx).payout(ctx, deal.ID, splits, now); err != nil {
		return domain.Deal{}, err
	}
	if err := s.enqueueDealSettled(ctx, tx, deal, splits, cmd, actor.RequestID, now); err != nil {
		return domain.Deal{}, err
	}
	return deal, nil
}

// withinTx runs fn as one store transaction inside a trace span. Failures
// that are not rejections surface as domain.ErrExternalFailure.
func (s *Service) withinTx(ctx context.Context, operation string, fn func(tx ports.Tx) error) error {
	ctx, span := tracer.Start(ctx, "escrow."+operation)
	defer span.End()
	err := domain.AsExternal(s.store.WithinTx(ctx, fn))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) afterSettle(ctx context.Context, cmd domain.Command, dealID uint64, err error) {
	if errors.Is(err, domain.ErrConservation) {
		s.haltDeal(ctx, dealID, err)
	}
	s.logOutcome(ctx, cmd.String(), dealID, err)
}

// haltDeal freezes a deal whose payout failed the conservation check. The
// failed transaction has already rolled back; the halt is recorded on its own.
func (s *Service) haltDeal(ctx context.Context, dealID uint64, cause error) {
	err := s.store.WithinTx(ctx, func(tx ports.Tx) error {
		return tx.Deals().MarkHalted(ctx, dealID, cause.Error(), s.nowFn())
	})
	s.logger.ErrorContext(ctx, "deal halted",
		"module", "application.lifecycle",
		"layer", "application",
		"operation", "halt_deal",
		"outcome", "failure",
		"deal_id", dealID,
		"cause", cause,
		"halt_error", err,
	)
}

func (s *Service) logOutcome(ctx context.Context, operation string, dealID uint64, err error) {
	if err == nil {
		s.logger.InfoContext(ctx, "deal transition committed",
			"module", "application.lifecycle",
			"layer", "application",
			"operation", operation,
			"outcome", "success",
			"deal_id", dealID,
		)
		return
	}
	s.logger.WarnContext(ctx, "deal transition rejected",
		"module", "application.lifecycle",
		"layer", "application",
		"operation", operation,
		"outcome", "rejected",
		"deal_id", dealID,
		"error", err,
	)
}
