package memory

import (
	"context"
	"fmt"
	"math/bits"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

type dealRepository struct{ view }

func (r dealRepository) NextID(_ context.Context) (uint64, error) {
	var id uint64
	err := r.run(func(st *state) error {
		id = st.nextID
		st.nextID++
		return nil
	})
	return id, err
}

func (r dealRepository) Put(_ context.Context, deal domain.Deal) error {
	return r.run(func(st *state) error {
		if _, ok := st.deals[deal.ID]; ok {
			return fmt.Errorf("%w: deal %d", domain.ErrDuplicateID, deal.ID)
		}
		st.deals[deal.ID] = deal
		return nil
	})
}

func (r dealRepository) Get(_ context.Context, id uint64) (domain.Deal, error) {
	var out domain.Deal
	err := r.run(func(st *state) error {
		deal, ok := st.deals[id]
		if !ok {
			return fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
		}
		out = deal
		return nil
	})
	return out, err
}

func (r dealRepository) Update(_ context.Context, id uint64, mutate func(*domain.Deal) error) (domain.Deal, error) {
	var out domain.Deal
	err := r.run(func(st *state) error {
		deal, ok := st.deals[id]
		if !ok {
			return fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
		}
		if err := mutate(&deal); err != nil {
			return err
		}
		st.deals[id] = deal
		out = deal
		return nil
	})
	return out, err
}

func (r dealRepository) MarkHalted(_ context.Context, id uint64, reason string, at time.Time) error {
	return r.run(func(st *state) error {
		deal, ok := st.deals[id]
		if !ok {
			return fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
		}
		deal.Halted = true
		deal.HaltReason = reason
		deal.UpdatedAt = at
		st.deals[id] = deal
		return nil
	})
}

type custodyRepository struct{ view }

func (r custodyRepository) Lock(_ context.Context, dealID uint64, depositor domain.Address, amount uint64, at time.Time) error {
	return r.run(func(st *state) error {
		if _, ok := st.locks[dealID]; ok {
			return fmt.Errorf("%w: deal %d", domain.ErrDoubleLock, dealID)
		}
		st.locks[dealID] = custodyLock{depositor: depositor, amount: amount}
		st.ledger = append(st.ledger, domain.LedgerEntry{
			EntryID:    uuid.NewString(),
			DealID:     dealID,
			EntryType:  domain.EntryTypeLock,
			Address:    depositor,
			Amount:     amount,
			OccurredAt: at,
		})
		return nil
	})
}

func (r custodyRepository) LockedValue(_ context.Context, dealID uint64) (uint64, error) {
	var out uint64
	err := r.run(func(st *state) error {
		lock, ok := st.locks[dealID]
		if !ok {
			return fmt.Errorf("%w: no lock for deal %d", domain.ErrNotFound, dealID)
		}
		out = lock.amount
		return nil
	})
	return out, err
}

func (r custodyRepository) Release(_ context.Context, dealID uint64, splits []domain.Split, at time.Time) error {
	return r.run(func(st *state) error {
		lock, ok := st.locks[dealID]
		if !ok {
			return fmt.Errorf("%w: no lock for deal %d", domain.ErrNotFound, dealID)
		}
		if lock.released {
			return fmt.Errorf("%w: deal %d already paid out", domain.ErrState, dealID)
		}
		lock.amount = 0
		lock.released = true
		st.locks[dealID] = lock
		for _, sp := range splits {
			st.ledger = append(st.ledger, domain.LedgerEntry{
				EntryID:    uuid.NewString(),
				DealID:     dealID,
				EntryType:  domain.EntryTypePayout,
				Address:    sp.Recipient,
				Amount:     sp.Amount,
				Reason:     sp.Reason,
				OccurredAt: at,
			})
		}
		return nil
	})
}

func (r custodyRepository) TotalLocked(_ context.Context) (uint64, error) {
	var total uint64
	err := r.run(func(st *state) error {
		for _, lock := range st.locks {
			var carry uint64
			total, carry = bits.Add64(total, lock.amount, 0)
			if carry != 0 {
				return fmt.Errorf("%w: sum of open locks", domain.ErrCustodyCapacity)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (r custodyRepository) EntriesForAddress(_ context.Context, addr domain.Address) ([]domain.LedgerEntry, error) {
	return r.entries(func(e domain.LedgerEntry) bool { return e.Address == addr })
}

func (r custodyRepository) EntriesForDeal(_ context.Context, dealID uint64) ([]domain.LedgerEntry, error) {
	return r.entries(func(e domain.LedgerEntry) bool { return e.DealID == dealID })
}

func (r custodyRepository) entries(match func(domain.LedgerEntry) bool) ([]domain.LedgerEntry, error) {
	out := make([]domain.LedgerEntry, 0)
	err := r.run(func(st *state) error {
		for _, e := range st.ledger {
			if match(e) {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

type indexRepository struct{ view }

func (r indexRepository) Add(_ context.Context, addr domain.Address, role domain.Role, dealID uint64) error {
	return r.run(func(st *state) error {
		key := indexKey{addr: addr, role: role}
		set, ok := st.index[key]
		if !ok {
			set = map[uint64]struct{}{}
			st.index[key] = set
		}
		set[dealID] = struct{}{}
		return nil
	})
}

func (r indexRepository) Members(_ context.Context, addr domain.Address, role domain.Role) ([]uint64, error) {
	out := make([]uint64, 0)
	err := r.run(func(st *state) error {
		for id := range st.index[indexKey{addr: addr, role: role}] {
			out = append(out, id)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, err
}

type contactRepository struct{ view }

func (r contactRepository) Put(_ context.Context, dealID uint64, role domain.Role, contact domain.Contact) error {
	return r.run(func(st *state) error {
		st.contacts[contactKey{dealID: dealID, role: role}] = contact
		return nil
	})
}

func (r contactRepository) Get(_ context.Context, dealID uint64, role domain.Role) (domain.Contact, error) {
	var out domain.Contact
	err := r.run(func(st *state) error {
		c, ok := st.contacts[contactKey{dealID: dealID, role: role}]
		if !ok {
			return fmt.Errorf("%w: %s contact for deal %d", domain.ErrNotFound, role, dealID)
		}
		out = c
		return nil
	})
	return out, err
}

type arbitrationRepository struct{ view }

func (r arbitrationRepository) Create(_ context.Context, req domain.ArbitrationRequest) error {
	return r.run(func(st *state) error {
		if _, ok := st.arbitration[req.RequestID]; ok {
			return domain.ErrConflict
		}
		st.arbitration[req.RequestID] = req
		st.arbOrder = append(st.arbOrder, req.RequestID)
		return nil
	})
}

func (r arbitrationRepository) PendingForDeal(_ context.Context, dealID uint64) (domain.ArbitrationRequest, error) {
	var out domain.ArbitrationRequest
	err := r.run(func(st *state) error {
		for _, id := range st.arbOrder {
			req := st.arbitration[id]
			if req.DealID == dealID && req.Status == domain.ArbitrationStatusPending {
				out = req
				return nil
			}
		}
		return fmt.Errorf("%w: pending arbitration for deal %d", domain.ErrNotFound, dealID)
	})
	return out, err
}

func (r arbitrationRepository) Resolve(_ context.Context, requestID string, verdict domain.Verdict, at time.Time) error {
	return r.run(func(st *state) error {
		req, ok := st.arbitration[requestID]
		if !ok {
			return fmt.Errorf("%w: arbitration request %s", domain.ErrNotFound, requestID)
		}
		if req.Status != domain.ArbitrationStatusPending {
			return fmt.Errorf("%w: arbitration request %s already resolved", domain.ErrState, requestID)
		}
		resolvedAt := at
		req.Status = domain.ArbitrationStatusResolved
		req.Verdict = verdict
		req.ResolvedAt = &resolvedAt
		st.arbitration[requestID] = req
		return nil
	})
}

func (r arbitrationRepository) ListByDeal(_ context.Context, dealID uint64) ([]domain.ArbitrationRequest, error) {
	out := make([]domain.ArbitrationRequest, 0)
	err := r.run(func(st *state) error {
		for _, id := range st.arbOrder {
			if req := st.arbitration[id]; req.DealID == dealID {
				out = append(out, req)
			}
		}
		return nil
	})
	return out, err
}

type outboxRepository struct{ view }

func (r outboxRepository) Enqueue(_ context.Context, event ports.OutboxEvent) error {
	return r.run(func(st *state) error {
		if _, ok := st.outbox[event.EventID]; ok {
			return domain.ErrConflict
		}
		st.outbox[event.EventID] = ports.OutboxRecord{
			OutboxID:     event.EventID,
			EventType:    event.EventType,
			PartitionKey: event.PartitionKey,
			Payload:      append([]byte(nil), event.Payload...),
			FirstSeenAt:  event.OccurredAt,
		}
		st.outboxOrder = append(st.outboxOrder, event.EventID)
		return nil
	})
}

func (r outboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	err := r.run(func(st *state) error {
		for _, id := range st.outboxOrder {
			row := st.outbox[id]
			if row.PublishedAt != nil {
				continue
			}
			out = append(out, row)
			if len(out) >= limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (r outboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, at time.Time) error {
	return r.run(func(st *state) error {
		row, ok := st.outbox[outboxID]
		if !ok {
			return domain.ErrNotFound
		}
		publishedAt := at
		row.PublishedAt = &publishedAt
		st.outbox[outboxID] = row
		return nil
	})
}

func (r outboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return r.run(func(st *state) error {
		row, ok := st.outbox[outboxID]
		if !ok {
			return domain.ErrNotFound
		}
		failedAt := at
		msg := errMsg
		row.RetryCount++
		row.LastError = &msg
		row.LastErrorAt = &failedAt
		st.outbox[outboxID] = row
		return nil
	})
}
