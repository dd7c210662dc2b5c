package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

func dealCacheKey(id uint64) string {
	return fmt.Sprintf("escrow:deal:%d", id)
}

// GetDeal returns the current deal record. Settled deals never change again
// and are served from the read cache when one is configured.
func (s *Service) GetDeal(ctx context.Context, id uint64) (domain.Deal, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, dealCacheKey(id)); err == nil {
			var cached domain.Deal
			if json.Unmarshal([]byte(raw), &cached) == nil {
				return cached, nil
			}
		} else if !errors.Is(err, ports.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "deal cache read failed",
				"module", "application.queries",
				"layer", "application",
				"operation", "get_deal",
				"outcome", "degraded",
				"deal_id", id,
				"error", err,
			)
		}
	}
	deal, err := s.store.Deals().Get(ctx, id)
	if err != nil {
		return domain.Deal{}, err
	}
	if s.cache != nil && deal.Status.Terminal() && !deal.Halted {
		if b, err := json.Marshal(deal); err == nil {
			_ = s.cache.Set(ctx, dealCacheKey(id), string(b), s.cfg.DealCacheTTL)
		}
	}
	return deal, nil
}

func (s *Service) GetDealsForWorker(ctx context.Context, address string) ([]uint64, error) {
	return s.dealsFor(ctx, address, domain.RoleWorker)
}

func (s *Service) GetDealsForEmployer(ctx context.Context, address string) ([]uint64, error) {
	return s.dealsFor(ctx, address, domain.RoleEmployer)
}

func (s *Service) dealsFor(ctx context.Context, address string, role domain.Role) ([]uint64, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return nil, err
	}
	ids, err := s.store.Index().Members(ctx, addr, role)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

// GetContractBalance is the value held for all non-terminal deals.
func (s *Service) GetContractBalance(ctx context.Context) (uint64, error) {
	return s.custodian(s.store).balance(ctx)
}

func (s *Service) GetAccountPosition(ctx context.Context, address string) (domain.Position, error) {
	addr, err := domain.ParseAddress(address)
	if err != nil {
		return domain.Position{}, err
	}
	entries, err := s.store.Custody().EntriesForAddress(ctx, addr)
	if err != nil {
		return domain.Position{}, err
	}
	return domain.PositionFromEntries(addr, entries), nil
}

func (s *Service) ListArbitrationRequests(ctx context.Context, dealID uint64) ([]domain.ArbitrationRequest, error) {
	if _, err := s.store.Deals().Get(ctx, dealID); err != nil {
		return nil, err
	}
	return s.store.Arbitration().ListByDeal(ctx, dealID)
}

// GetCounterpartyContact returns the contact details the other party of the
// deal left. Only the two parties may read them.
func (s *Service) GetCounterpartyContact(ctx context.Context, actor Actor, dealID uint64) (domain.Contact, error) {
	if actor.Address == "" {
		return domain.Contact{}, domain.ErrUnauthorized
	}
	deal, err := s.store.Deals().Get(ctx, dealID)
	if err != nil {
		return domain.Contact{}, err
	}
	role, ok := deal.PartyOf(actor.Address)
	if !ok {
		return domain.Contact{}, fmt.Errorf("%w: caller is not a party of deal %d", domain.ErrAuthorization, dealID)
	}
	other := domain.RoleWorker
	if role == domain.RoleWorker {
		other = domain.RoleEmployer
	}
	return s.store.Contacts().Get(ctx, dealID, other)
}

// Now exposes the service clock to adapters that render time-relative
// fields such as overdue.
func (s *Service) Now() time.Time {
	return s.nowFn()
}
