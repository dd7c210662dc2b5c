package postgres

import (
	"time"

	"github.com/google/uuid"
)

type dealSequenceModel struct {
	ID     int16   `gorm:"column:id;primaryKey"`
	NextID numeric `gorm:"column:next_id"`
}

func (dealSequenceModel) TableName() string { return "deal_sequence" }

type dealModel struct {
	DealID        numeric   `gorm:"column:deal_id;type:numeric(20,0);primaryKey;autoIncrement:false"`
	Employer      string    `gorm:"column:employer"`
	Worker        string    `gorm:"column:worker"`
	Terms         string    `gorm:"column:terms"`
	Budget        numeric   `gorm:"column:budget"`
	Penalty       numeric   `gorm:"column:penalty"`
	Duration      numeric   `gorm:"column:duration"`
	Status        int16     `gorm:"column:status"`
	CreatedAtUnix numeric   `gorm:"column:created_at_unix"`
	Halted        bool      `gorm:"column:halted"`
	HaltReason    string    `gorm:"column:halt_reason"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (dealModel) TableName() string { return "deals" }

type custodyLockModel struct {
	DealID     numeric    `gorm:"column:deal_id;type:numeric(20,0);primaryKey;autoIncrement:false"`
	Depositor  string     `gorm:"column:depositor"`
	Amount     numeric    `gorm:"column:amount"`
	Released   bool       `gorm:"column:released"`
	LockedAt   time.Time  `gorm:"column:locked_at"`
	ReleasedAt *time.Time `gorm:"column:released_at"`
}

func (custodyLockModel) TableName() string { return "custody_locks" }

type custodyLedgerModel struct {
	EntryID    uuid.UUID `gorm:"column:entry_id;type:uuid;primaryKey"`
	DealID     numeric   `gorm:"column:deal_id"`
	EntryType  string    `gorm:"column:entry_type"`
	Address    string    `gorm:"column:address"`
	Amount     numeric   `gorm:"column:amount"`
	Reason     string    `gorm:"column:reason"`
	OccurredAt time.Time `gorm:"column:occurred_at"`
}

func (custodyLedgerModel) TableName() string { return "custody_ledger" }

type partyIndexModel struct {
	Address string  `gorm:"column:address;primaryKey"`
	Role    string  `gorm:"column:role;primaryKey"`
	DealID  numeric `gorm:"column:deal_id;type:numeric(20,0);primaryKey;autoIncrement:false"`
}

func (partyIndexModel) TableName() string { return "party_index" }

type dealContactModel struct {
	DealID   numeric `gorm:"column:deal_id;type:numeric(20,0);primaryKey;autoIncrement:false"`
	Role     string  `gorm:"column:role;primaryKey"`
	Telegram string  `gorm:"column:telegram"`
	Phone    string  `gorm:"column:phone"`
}

func (dealContactModel) TableName() string { return "deal_contacts" }

type arbitrationRequestModel struct {
	RequestID   uuid.UUID  `gorm:"column:request_id;type:uuid;primaryKey"`
	DealID      numeric    `gorm:"column:deal_id"`
	ProofURL    string     `gorm:"column:proof_url"`
	Status      string     `gorm:"column:status"`
	Verdict     string     `gorm:"column:verdict"`
	SubmittedBy string     `gorm:"column:submitted_by"`
	SubmittedAt time.Time  `gorm:"column:submitted_at"`
	ResolvedAt  *time.Time `gorm:"column:resolved_at"`
}

func (arbitrationRequestModel) TableName() string { return "arbitration_requests" }

// escrowOutboxModel rows of one transaction share created_at; seq keeps
// their commit order.
type escrowOutboxModel struct {
	Seq              int64      `gorm:"column:seq;->"`
	OutboxID         uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType        string     `gorm:"column:event_type"`
	PartitionKey     string     `gorm:"column:partition_key"`
	PartitionKeyPath string     `gorm:"column:partition_key_path"`
	Payload          string     `gorm:"column:payload;type:jsonb"`
	SchemaVersion    string     `gorm:"column:schema_version"`
	TraceID          string     `gorm:"column:trace_id"`
	CreatedAt        time.Time  `gorm:"column:created_at"`
	FirstSeenAt      time.Time  `gorm:"column:first_seen_at"`
	PublishedAt      *time.Time `gorm:"column:published_at"`
	RetryCount       int        `gorm:"column:retry_count"`
	LastError        *string    `gorm:"column:last_error"`
	LastErrorAt      *time.Time `gorm:"column:last_error_at"`
}

func (escrowOutboxModel) TableName() string { return "escrow_outbox" }

type escrowIdempotencyModel struct {
	IdempotencyKey string    `gorm:"column:idempotency_key;primaryKey"`
	RequestHash    string    `gorm:"column:request_hash"`
	Status         string    `gorm:"column:status"`
	ResponseCode   int       `gorm:"column:response_code"`
	ResponseBody   *string   `gorm:"column:response_body"`
	ExpiresAt      time.Time `gorm:"column:expires_at"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (escrowIdempotencyModel) TableName() string { return "escrow_idempotency" }

type escrowEventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	EventType   string    `gorm:"column:event_type"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (escrowEventDedupModel) TableName() string { return "escrow_event_dedup" }
