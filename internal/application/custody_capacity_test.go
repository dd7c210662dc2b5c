package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

func TestCreateDealRejectsLockBeyondCustodyCapacity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	// 33 deals of budget+penalty fit in 64 bits, the 34th does not.
	const fitting = 33
	for i := 0; i < fitting; i++ {
		f.createScenarioDeal(t)
	}
	want := uint64(fitting) * (budgetA + penaltyA)
	if got := f.balance(t); got != want {
		t.Fatalf("expected balance %d, got %d", want, got)
	}

	_, err := f.svc.CreateDeal(context.Background(), as(employer), application.CreateDealInput{
		Worker:        worker.String(),
		Terms:         "Build a page",
		Budget:        budgetA,
		Penalty:       penaltyA,
		Duration:      604800,
		SuppliedValue: budgetA + penaltyA,
	})
	if !errors.Is(err, domain.ErrCustodyCapacity) {
		t.Fatalf("expected custody capacity error, got %v", err)
	}
	if got := f.balance(t); got != want {
		t.Fatalf("rejected create changed balance: %d", got)
	}
	if _, err := f.svc.GetDeal(context.Background(), fitting); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("rejected create left deal %d behind: %v", fitting, err)
	}

	// Settling one deal frees room for the next, which reuses the id.
	deal, err := f.svc.AcceptDeal(context.Background(), as(worker), application.AcceptDealInput{DealID: 0})
	if err != nil {
		t.Fatalf("AcceptDeal: %v", err)
	}
	if _, err := f.svc.ApproveManually(context.Background(), as(employer), deal.ID); err != nil {
		t.Fatalf("ApproveManually: %v", err)
	}
	next := f.createScenarioDeal(t)
	if next.ID != fitting {
		t.Fatalf("expected id %d after rejected create, got %d", fitting, next.ID)
	}
}
