package contracts

import (
	"encoding/json"
	"time"
)

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    string          `json:"schema_version"`
	Data             json.RawMessage `json:"data"`
}

type DealCreatedPayload struct {
	DealID    uint64 `json:"deal_id"`
	Employer  string `json:"employer"`
	Worker    string `json:"worker"`
	Budget    Amount `json:"budget"`
	Penalty   Amount `json:"penalty"`
	Duration  uint64 `json:"duration"`
	CreatedAt uint64 `json:"created_at"`
}

type DealAcceptedPayload struct {
	DealID     uint64 `json:"deal_id"`
	Worker     string `json:"worker"`
	AcceptedAt string `json:"accepted_at"`
}

type PayoutSplitPayload struct {
	Recipient string `json:"recipient"`
	Amount    Amount `json:"amount"`
	Reason    string `json:"reason"`
}

type DealSettledPayload struct {
	DealID    uint64               `json:"deal_id"`
	Status    string               `json:"status"`
	Splits    []PayoutSplitPayload `json:"splits"`
	Via       string               `json:"via"`
	SettledAt string               `json:"settled_at"`
}

// ArbitrationRequestedPayload is everything the external arbiter needs to
// rule: the agreed terms and the worker's proof reference.
type ArbitrationRequestedPayload struct {
	RequestID   string `json:"request_id"`
	DealID      uint64 `json:"deal_id"`
	Terms       string `json:"terms"`
	ProofURL    string `json:"proof_url"`
	SubmittedAt string `json:"submitted_at"`
}

type ArbitrationResolvedPayload struct {
	RequestID  string `json:"request_id"`
	DealID     uint64 `json:"deal_id"`
	Verdict    string `json:"verdict"`
	ResolvedAt string `json:"resolved_at"`
}

// ArbitrationVerdictPayload is consumed from the arbiter's topic.
type ArbitrationVerdictPayload struct {
	DealID  uint64 `json:"deal_id"`
	Verdict string `json:"verdict,omitempty"`
	Raw     string `json:"raw,omitempty"`
}
