package application_test

import (
	"context"
	"testing"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/cache"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

const (
	employer = domain.Address("0x1111111111111111111111111111111111111111")
	worker   = domain.Address("0x2222222222222222222222222222222222222222")
	stranger = domain.Address("0x3333333333333333333333333333333333333333")
	arbiter  = domain.Address("0x4444444444444444444444444444444444444444")

	budgetA  = uint64(500_000_000_000_000_000)
	penaltyA = uint64(50_000_000_000_000_000)
)

type fixture struct {
	svc   *application.Service
	store ports.Store
	dedup *memory.EventDedupRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.NewStore())
}

func newFixtureWithStore(t *testing.T, store ports.Store) fixture {
	t.Helper()
	dedup := memory.NewEventDedupRepository()
	local := cache.NewMemoryCache(0, 100)
	svc := application.NewService(application.Dependencies{
		Config:      application.Config{ArbiterAddress: arbiter},
		Store:       store,
		Idempotency: memory.NewIdempotencyRepository(),
		EventDedup:  dedup,
		Cache:       local,
	})
	return fixture{svc: svc, store: store, dedup: dedup}
}

func as(addr domain.Address) application.Actor {
	return application.Actor{Address: addr, RequestID: "req-" + string(addr[2:6])}
}

func asArbiter() application.Actor {
	return application.Actor{Address: arbiter, Role: application.RoleArbiter, RequestID: "req-arbiter"}
}

// createScenarioDeal creates the Scenario A deal and returns it.
func (f fixture) createScenarioDeal(t *testing.T) domain.Deal {
	t.Helper()
	deal, err := f.svc.CreateDeal(context.Background(), as(employer), application.CreateDealInput{
		Worker:        worker.String(),
		Terms:         "Build a page",
		Budget:        budgetA,
		Penalty:       penaltyA,
		Duration:      604800,
		Contact:       domain.Contact{Telegram: "@employer"},
		SuppliedValue: budgetA + penaltyA,
	})
	if err != nil {
		t.Fatalf("CreateDeal: %v", err)
	}
	return deal
}

func (f fixture) activeScenarioDeal(t *testing.T) domain.Deal {
	t.Helper()
	deal := f.createScenarioDeal(t)
	deal, err := f.svc.AcceptDeal(context.Background(), as(worker), application.AcceptDealInput{DealID: deal.ID, Contact: domain.Contact{Phone: "+100"}})
	if err != nil {
		t.Fatalf("AcceptDeal: %v", err)
	}
	return deal
}

func (f fixture) position(t *testing.T, addr domain.Address) domain.Position {
	t.Helper()
	p, err := f.svc.GetAccountPosition(context.Background(), addr.String())
	if err != nil {
		t.Fatalf("GetAccountPosition(%s): %v", addr, err)
	}
	return p
}

func (f fixture) balance(t *testing.T) uint64 {
	t.Helper()
	b, err := f.svc.GetContractBalance(context.Background())
	if err != nil {
		t.Fatalf("GetContractBalance: %v", err)
	}
	return b
}

func (f fixture) outboxTypes(t *testing.T) []string {
	t.Helper()
	records, err := f.store.Outbox().FetchUnpublished(context.Background(), 100)
	if err != nil {
		t.Fatalf("FetchUnpublished: %v", err)
	}
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.EventType)
	}
	return out
}
