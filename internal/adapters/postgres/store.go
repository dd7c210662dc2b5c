package postgres

import (
	"context"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
	"gorm.io/gorm"
)

// Store binds every repository to one gorm handle. Inside WithinTx the
// handle is the transaction, so all writes of an engine step commit
// together.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Deals() ports.DealRepository              { return &dealRepository{db: s.db} }
func (s *Store) Custody() ports.CustodyRepository         { return &custodyRepository{db: s.db} }
func (s *Store) Index() ports.PartyIndexRepository        { return &partyIndexRepository{db: s.db} }
func (s *Store) Contacts() ports.ContactRepository        { return &contactRepository{db: s.db} }
func (s *Store) Arbitration() ports.ArbitrationRepository { return &arbitrationRepository{db: s.db} }
func (s *Store) Outbox() ports.OutboxRepository           { return &outboxRepository{db: s.db} }

// WithinTx reports driver, connection and commit failures as
// domain.ErrExternalFailure so callers can tell them from rejections.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ports.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return domain.AsExternal(err)
}

type Repositories struct {
	Store       *Store
	Idempotency ports.IdempotencyRepository
	EventDedup  ports.EventDedupRepository
}

func NewRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Store:       NewStore(db),
		Idempotency: &idempotencyRepository{db: db},
		EventDedup:  &eventDedupRepository{db: db},
	}
}

var _ ports.Store = (*Store)(nil)
