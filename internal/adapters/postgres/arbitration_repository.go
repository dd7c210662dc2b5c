package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"gorm.io/gorm"
)

type arbitrationRepository struct {
	db *gorm.DB
}

func (r *arbitrationRepository) Create(ctx context.Context, req domain.ArbitrationRequest) error {
	id, err := uuid.Parse(req.RequestID)
	if err != nil {
		return fmt.Errorf("%w: request_id", domain.ErrInvalidInput)
	}
	rec := arbitrationRequestModel{
		RequestID:   id,
		DealID:      numeric(req.DealID),
		ProofURL:    req.ProofURL,
		Status:      req.Status,
		Verdict:     string(req.Verdict),
		SubmittedBy: req.SubmittedBy.String(),
		SubmittedAt: req.SubmittedAt,
		ResolvedAt:  req.ResolvedAt,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: deal %d already has a pending arbitration request", domain.ErrState, req.DealID)
		}
		return err
	}
	return nil
}

func (r *arbitrationRepository) PendingForDeal(ctx context.Context, dealID uint64) (domain.ArbitrationRequest, error) {
	var rec arbitrationRequestModel
	err := r.db.WithContext(ctx).
		Where("deal_id = ? AND status = ?", numeric(dealID), domain.ArbitrationStatusPending).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ArbitrationRequest{}, fmt.Errorf("%w: pending arbitration for deal %d", domain.ErrNotFound, dealID)
	}
	if err != nil {
		return domain.ArbitrationRequest{}, err
	}
	return fromArbitrationModel(rec), nil
}

func (r *arbitrationRepository) Resolve(ctx context.Context, requestID string, verdict domain.Verdict, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&arbitrationRequestModel{}).
		Where("request_id = ? AND status = ?", requestID, domain.ArbitrationStatusPending).
		Updates(map[string]any{
			"status":      domain.ArbitrationStatusResolved,
			"verdict":     string(verdict),
			"resolved_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: arbitration request %s is not pending", domain.ErrState, requestID)
	}
	return nil
}

func (r *arbitrationRepository) ListByDeal(ctx context.Context, dealID uint64) ([]domain.ArbitrationRequest, error) {
	var rows []arbitrationRequestModel
	if err := r.db.WithContext(ctx).Where("deal_id = ?", numeric(dealID)).Order("submitted_at asc").Find(&rows).Error; err != nil {
		return nil, domain.AsExternal(err)
	}
	out := make([]domain.ArbitrationRequest, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromArbitrationModel(row))
	}
	return out, nil
}
