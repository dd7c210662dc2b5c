package domain

const (
	EventDealCreated            = "escrow.deal_created"
	EventDealAccepted           = "escrow.deal_accepted"
	EventDealCompleted          = "escrow.deal_completed"
	EventDealCancelled          = "escrow.deal_cancelled"
	EventArbitrationRequested   = "escrow.arbitration_requested"
	EventArbitrationResolved    = "escrow.arbitration_resolved"
	EventArbitrationVerdict     = "escrow.arbitration_verdict"
	CanonicalPartitionKeyPath   = "data.deal_id"
	CanonicalEventSchemaVersion = "v1"
)

func IsCanonicalEmittedEvent(eventType string) bool {
	switch eventType {
	case EventDealCreated, EventDealAccepted, EventDealCompleted, EventDealCancelled,
		EventArbitrationRequested, EventArbitrationResolved:
		return true
	default:
		return false
	}
}

func IsCanonicalInputEvent(eventType string) bool {
	return eventType == EventArbitrationVerdict
}
