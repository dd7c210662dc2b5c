package application

import (
	"context"
	"fmt"
	"math/bits"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// valueCustodian enforces the custody rules on top of the ledger repository
// of one transaction.
type valueCustodian struct {
	repo ports.CustodyRepository
}

func (s *Service) custodian(tx ports.Tx) valueCustodian {
	return valueCustodian{repo: tx.Custody()}
}

func (c valueCustodian) lock(ctx context.Context, deal domain.Deal, at time.Time) error {
	amount, err := domain.LockAmount(deal.Budget, deal.Penalty)
	if err != nil {
		return err
	}
	// Creates serialize on the id sequence, so the total cannot move under us.
	total, err := c.repo.TotalLocked(ctx)
	if err != nil {
		return fmt.Errorf("read locked total: %w", err)
	}
	if _, carry := bits.Add64(total, amount, 0); carry != 0 {
		return fmt.Errorf("%w: deal %d would lock %d on top of %d", domain.ErrCustodyCapacity, deal.ID, amount, total)
	}
	if err := c.repo.Lock(ctx, deal.ID, deal.Employer, amount, at); err != nil {
		return fmt.Errorf("lock deal %d: %w", deal.ID, err)
	}
	return nil
}

func (c valueCustodian) payout(ctx context.Context, dealID uint64, splits []domain.Split, at time.Time) error {
	locked, err := c.repo.LockedValue(ctx, dealID)
	if err != nil {
		return fmt.Errorf("read locked value of deal %d: %w", dealID, err)
	}
	if err := domain.CheckConservation(locked, splits); err != nil {
		return fmt.Errorf("payout deal %d: %w", dealID, err)
	}
	return c.repo.Release(ctx, dealID, splits, at)
}

func (c valueCustodian) balance(ctx context.Context) (uint64, error) {
	return c.repo.TotalLocked(ctx)
}
