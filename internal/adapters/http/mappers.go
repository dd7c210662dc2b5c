package http

import (
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
)

func toDealResponse(d domain.Deal, now time.Time) contracts.DealResponse {
	return contracts.DealResponse{
		ID:         d.ID,
		Employer:   d.Employer.String(),
		Worker:     d.Worker.String(),
		Terms:      d.Terms,
		Budget:     contracts.Amount(d.Budget),
		Penalty:    contracts.Amount(d.Penalty),
		Duration:   d.Duration,
		Status:     d.Status.String(),
		StatusCode: uint8(d.Status),
		CreatedAt:  d.CreatedAt,
		DeadlineAt: d.DeadlineAt(),
		Overdue:    d.Overdue(now),
		Halted:     d.Halted,
	}
}

func toArbitrationResponse(req domain.ArbitrationRequest) contracts.ArbitrationResponse {
	out := contracts.ArbitrationResponse{
		RequestID:   req.RequestID,
		DealID:      req.DealID,
		ProofURL:    req.ProofURL,
		Status:      req.Status,
		Verdict:     string(req.Verdict),
		SubmittedAt: req.SubmittedAt.UTC().Format(time.RFC3339),
	}
	if req.ResolvedAt != nil {
		out.ResolvedAt = req.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toPositionResponse(p domain.Position) contracts.PositionResponse {
	return contracts.PositionResponse{
		Address:   p.Address.String(),
		Deposited: contracts.Amount(p.Deposited),
		Received:  contracts.Amount(p.Received),
		Net:       p.Net().String(),
	}
}

func toContact(c contracts.ContactRequest) domain.Contact {
	return domain.Contact{Telegram: c.Telegram, Phone: c.Phone}
}
