package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

type DealRepository interface {
	// NextID allocates the next sequential deal id. Ids are never reused.
	NextID(ctx context.Context) (uint64, error)
	Put(ctx context.Context, deal domain.Deal) error
	Get(ctx context.Context, id uint64) (domain.Deal, error)
	// Update loads the deal under a write lock, applies mutate and persists
	// the result. A mutate error aborts without writing.
	Update(ctx context.Context, id uint64, mutate func(*domain.Deal) error) (domain.Deal, error)
	MarkHalted(ctx context.Context, id uint64, reason string, at time.Time) error
}

type CustodyRepository interface {
	Lock(ctx context.Context, dealID uint64, depositor domain.Address, amount uint64, at time.Time) error
	LockedValue(ctx context.Context, dealID uint64) (uint64, error)
	// Release zeroes the deal's lock and appends one payout entry per split.
	Release(ctx context.Context, dealID uint64, splits []domain.Split, at time.Time) error
	TotalLocked(ctx context.Context) (uint64, error)
	EntriesForAddress(ctx context.Context, addr domain.Address) ([]domain.LedgerEntry, error)
	EntriesForDeal(ctx context.Context, dealID uint64) ([]domain.LedgerEntry, error)
}

type PartyIndexRepository interface {
	Add(ctx context.Context, addr domain.Address, role domain.Role, dealID uint64) error
	Members(ctx context.Context, addr domain.Address, role domain.Role) ([]uint64, error)
}

type ContactRepository interface {
	Put(ctx context.Context, dealID uint64, role domain.Role, contact domain.Contact) error
	Get(ctx context.Context, dealID uint64, role domain.Role) (domain.Contact, error)
}

type ArbitrationRepository interface {
	Create(ctx context.Context, req domain.ArbitrationRequest) error
	PendingForDeal(ctx context.Context, dealID uint64) (domain.ArbitrationRequest, error)
	Resolve(ctx context.Context, requestID string, verdict domain.Verdict, at time.Time) error
	ListByDeal(ctx context.Context, dealID uint64) ([]domain.ArbitrationRequest, error)
}

type OutboxEvent struct {
	EventID          uuid.UUID
	EventType        string
	PartitionKey     string
	PartitionKeyPath string
	Payload          []byte
	SchemaVersion    string
	TraceID          string
	OccurredAt       time.Time
}

type OutboxRecord struct {
	OutboxID     uuid.UUID
	EventType    string
	PartitionKey string
	Payload      []byte
	RetryCount   int
	FirstSeenAt  time.Time
	PublishedAt  *time.Time
	LastError    *string
	LastErrorAt  *time.Time
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, event OutboxEvent) error
	FetchUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error
}

// Tx is the set of repositories that take part in one atomic engine step.
type Tx interface {
	Deals() DealRepository
	Custody() CustodyRepository
	Index() PartyIndexRepository
	Contacts() ContactRepository
	Arbitration() ArbitrationRepository
	Outbox() OutboxRepository
}

// Store exposes the repositories for plain reads and runs fn atomically:
// either every write made through tx commits or none does.
type Store interface {
	Tx
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseCode int
	ResponseBody []byte
	ExpiresAt    time.Time
}

type IdempotencyRepository interface {
	Get(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error
	Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error
	Release(ctx context.Context, key string) error
}

type EventDedupRepository interface {
	IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error
}
