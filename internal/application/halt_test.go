package application_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

// skewedStore reports one more unit locked than was deposited once armed,
// so the next payout cannot conserve value.
type skewedStore struct {
	*memory.Store
	armed atomic.Bool
}

func (s *skewedStore) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx ports.Tx) error {
		if s.armed.Load() {
			tx = skewedTx{tx}
		}
		return fn(tx)
	})
}

type skewedTx struct{ ports.Tx }

func (t skewedTx) Custody() ports.CustodyRepository { return skewedCustody{t.Tx.Custody()} }

type skewedCustody struct{ ports.CustodyRepository }

func (c skewedCustody) LockedValue(ctx context.Context, dealID uint64) (uint64, error) {
	v, err := c.CustodyRepository.LockedValue(ctx, dealID)
	return v + 1, err
}

func TestConservationFailureHaltsDeal(t *testing.T) {
	t.Parallel()
	store := &skewedStore{Store: memory.NewStore()}
	f := newFixtureWithStore(t, store)
	deal := f.activeScenarioDeal(t)
	before := f.outboxTypes(t)

	store.armed.Store(true)
	if _, err := f.svc.ApproveManually(context.Background(), as(employer), deal.ID); !errors.Is(err, domain.ErrConservation) {
		t.Fatalf("expected conservation error, got %v", err)
	}
	store.armed.Store(false)

	got, err := f.svc.GetDeal(context.Background(), deal.ID)
	if err != nil {
		t.Fatalf("GetDeal: %v", err)
	}
	if !got.Halted || got.Status != domain.StatusActive {
		t.Fatalf("expected halted ACTIVE deal, got %+v", got)
	}
	if b := f.balance(t); b != budgetA+penaltyA {
		t.Fatalf("failed payout moved value: %d", b)
	}
	if p := f.position(t, worker); p.Received != 0 {
		t.Fatalf("worker received %d from a failed payout", p.Received)
	}
	if after := f.outboxTypes(t); len(after) != len(before) {
		t.Fatalf("failed payout emitted events: %v", after)
	}
	if _, err := f.svc.CancelWithPenalty(context.Background(), as(employer), deal.ID); !errors.Is(err, domain.ErrDealHalted) {
		t.Fatalf("expected halted error, got %v", err)
	}
}
