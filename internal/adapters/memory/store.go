// Package memory holds the in-process adapters used by tests and by the
// service when no database URL is configured.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

type custodyLock struct {
	depositor domain.Address
	amount    uint64
	released  bool
}

type contactKey struct {
	dealID uint64
	role   domain.Role
}

type indexKey struct {
	addr domain.Address
	role domain.Role
}

type state struct {
	nextID      uint64
	deals       map[uint64]domain.Deal
	locks       map[uint64]custodyLock
	ledger      []domain.LedgerEntry
	index       map[indexKey]map[uint64]struct{}
	contacts    map[contactKey]domain.Contact
	arbitration map[string]domain.ArbitrationRequest
	arbOrder    []string
	outbox      map[uuid.UUID]ports.OutboxRecord
	outboxOrder []uuid.UUID
}

func newState() *state {
	return &state{
		deals:       map[uint64]domain.Deal{},
		locks:       map[uint64]custodyLock{},
		index:       map[indexKey]map[uint64]struct{}{},
		contacts:    map[contactKey]domain.Contact{},
		arbitration: map[string]domain.ArbitrationRequest{},
		outbox:      map[uuid.UUID]ports.OutboxRecord{},
	}
}

func (s *state) clone() *state {
	out := &state{
		nextID:      s.nextID,
		deals:       make(map[uint64]domain.Deal, len(s.deals)),
		locks:       make(map[uint64]custodyLock, len(s.locks)),
		ledger:      append([]domain.LedgerEntry(nil), s.ledger...),
		index:       make(map[indexKey]map[uint64]struct{}, len(s.index)),
		contacts:    make(map[contactKey]domain.Contact, len(s.contacts)),
		arbitration: make(map[string]domain.ArbitrationRequest, len(s.arbitration)),
		arbOrder:    append([]string(nil), s.arbOrder...),
		outbox:      make(map[uuid.UUID]ports.OutboxRecord, len(s.outbox)),
		outboxOrder: append([]uuid.UUID(nil), s.outboxOrder...),
	}
	for k, v := range s.deals {
		out.deals[k] = v
	}
	for k, v := range s.locks {
		out.locks[k] = v
	}
	for k, set := range s.index {
		cp := make(map[uint64]struct{}, len(set))
		for id := range set {
			cp[id] = struct{}{}
		}
		out.index[k] = cp
	}
	for k, v := range s.contacts {
		out.contacts[k] = v
	}
	for k, v := range s.arbitration {
		out.arbitration[k] = v
	}
	for k, v := range s.outbox {
		out.outbox[k] = v
	}
	return out
}

// Store serializes every engine step behind one mutex. WithinTx works on
// the live state and restores a snapshot when fn fails.
type Store struct {
	mu    sync.Mutex
	state *state
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// view binds repositories to the store. Repositories obtained inside
// WithinTx already run under the store lock.
type view struct {
	store *Store
	inTx  bool
}

func (v view) run(fn func(st *state) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.store.state)
}

func (v view) Deals() ports.DealRepository              { return dealRepository{v} }
func (v view) Custody() ports.CustodyRepository         { return custodyRepository{v} }
func (v view) Index() ports.PartyIndexRepository        { return indexRepository{v} }
func (v view) Contacts() ports.ContactRepository        { return contactRepository{v} }
func (v view) Arbitration() ports.ArbitrationRepository { return arbitrationRepository{v} }
func (v view) Outbox() ports.OutboxRepository           { return outboxRepository{v} }

func (s *Store) Deals() ports.DealRepository              { return view{store: s}.Deals() }
func (s *Store) Custody() ports.CustodyRepository         { return view{store: s}.Custody() }
func (s *Store) Index() ports.PartyIndexRepository        { return view{store: s}.Index() }
func (s *Store) Contacts() ports.ContactRepository        { return view{store: s}.Contacts() }
func (s *Store) Arbitration() ports.ArbitrationRepository { return view{store: s}.Arbitration() }
func (s *Store) Outbox() ports.OutboxRepository           { return view{store: s}.Outbox() }

func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.state.clone()
	if err := fn(view{store: s, inTx: true}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}
