package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type dealRepository struct {
	db *gorm.DB
}

// NextID hands out ids from a single sequence row. The row lock is held
// until the surrounding transaction ends, so a rolled back create returns
// its id and the sequence stays gap-free.
func (r *dealRepository) NextID(ctx context.Context) (uint64, error) {
	var raw string
	row := r.db.WithContext(ctx).
		Raw("UPDATE deal_sequence SET next_id = next_id + 1 WHERE id = 1 RETURNING (next_id - 1)::text").
		Row()
	if err := row.Scan(&raw); err != nil {
		return 0, fmt.Errorf("allocate deal id: %w", err)
	}
	id, err := parseNumeric(raw)
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *dealRepository) Put(ctx context.Context, deal domain.Deal) error {
	rec := toDealModel(deal)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: deal %d", domain.ErrDuplicateID, deal.ID)
		}
		return err
	}
	return nil
}

func (r *dealRepository) Get(ctx context.Context, id uint64) (domain.Deal, error) {
	var rec dealModel
	if err := r.db.WithContext(ctx).Where("deal_id = ?", numeric(id)).Take(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Deal{}, fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
		}
		return domain.Deal{}, domain.AsExternal(err)
	}
	return fromDealModel(rec), nil
}

func (r *dealRepository) Update(ctx context.Context, id uint64, mutate func(*domain.Deal) error) (domain.Deal, error) {
	var out domain.Deal
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec dealModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("deal_id = ?", numeric(id)).Take(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		deal := fromDealModel(rec)
		if err := mutate(&deal); err != nil {
			return err
		}
		next := toDealModel(deal)
		if err := tx.Model(&dealModel{}).Where("deal_id = ?", numeric(id)).Updates(map[string]any{
			"status":      next.Status,
			"halted":      next.Halted,
			"halt_reason": next.HaltReason,
			"updated_at":  next.UpdatedAt,
		}).Error; err != nil {
			return err
		}
		out = deal
		return nil
	})
	return out, err
}

func (r *dealRepository) MarkHalted(ctx context.Context, id uint64, reason string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&dealModel{}).Where("deal_id = ?", numeric(id)).Updates(map[string]any{
		"halted":      true,
		"halt_reason": reason,
		"updated_at":  at,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: deal %d", domain.ErrNotFound, id)
	}
	return nil
}
