package postgres

import (
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
)

func toDealModel(d domain.Deal) dealModel {
	return dealModel{
		DealID:        numeric(d.ID),
		Employer:      d.Employer.String(),
		Worker:        d.Worker.String(),
		Terms:         d.Terms,
		Budget:        numeric(d.Budget),
		Penalty:       numeric(d.Penalty),
		Duration:      numeric(d.Duration),
		Status:        int16(d.Status),
		CreatedAtUnix: numeric(d.CreatedAt),
		Halted:        d.Halted,
		HaltReason:    d.HaltReason,
		UpdatedAt:     d.UpdatedAt,
	}
}

func fromDealModel(m dealModel) domain.Deal {
	return domain.Deal{
		ID:         uint64(m.DealID),
		Employer:   domain.Address(m.Employer),
		Worker:     domain.Address(m.Worker),
		Terms:      m.Terms,
		Budget:     uint64(m.Budget),
		Penalty:    uint64(m.Penalty),
		Duration:   uint64(m.Duration),
		Status:     domain.Status(m.Status),
		CreatedAt:  uint64(m.CreatedAtUnix),
		Halted:     m.Halted,
		HaltReason: m.HaltReason,
		UpdatedAt:  m.UpdatedAt.UTC(),
	}
}

func fromArbitrationModel(m arbitrationRequestModel) domain.ArbitrationRequest {
	return domain.ArbitrationRequest{
		RequestID:   m.RequestID.String(),
		DealID:      uint64(m.DealID),
		ProofURL:    m.ProofURL,
		Status:      m.Status,
		Verdict:     domain.Verdict(m.Verdict),
		SubmittedBy: domain.Address(m.SubmittedBy),
		SubmittedAt: m.SubmittedAt.UTC(),
		ResolvedAt:  m.ResolvedAt,
	}
}

func toOutboxRecord(m escrowOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:     m.OutboxID,
		EventType:    m.EventType,
		PartitionKey: m.PartitionKey,
		Payload:      []byte(m.Payload),
		RetryCount:   m.RetryCount,
		FirstSeenAt:  m.FirstSeenAt,
		PublishedAt:  m.PublishedAt,
		LastError:    m.LastError,
		LastErrorAt:  m.LastErrorAt,
	}
}
