package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	idempotencyReserved  = "reserved"
	idempotencyCompleted = "completed"
)

type idempotencyRepository struct {
	db *gorm.DB
}

func (r *idempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	var row escrowIdempotencyModel
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ? AND expires_at > ?", key, now).
		Take(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, domain.AsExternal(err)
	}
	rec := &ports.IdempotencyRecord{
		Key:          row.IdempotencyKey,
		RequestHash:  row.RequestHash,
		ResponseCode: row.ResponseCode,
		ExpiresAt:    row.ExpiresAt,
	}
	if row.ResponseBody != nil {
		rec.ResponseBody = []byte(*row.ResponseBody)
	}
	return rec, nil
}

// Reserve claims key in one statement. An expired row is taken over; a live
// one leaves the insert without effect and the caller gets ErrConflict.
func (r *idempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	now := time.Now().UTC()
	row := escrowIdempotencyModel{
		IdempotencyKey: key,
		RequestHash:    requestHash,
		Status:         idempotencyReserved,
		ExpiresAt:      expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "idempotency_key"}},
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "escrow_idempotency", Name: "expires_at"}, Value: now},
		}},
		DoUpdates: clause.Assignments(map[string]any{
			"request_hash":  requestHash,
			"status":        idempotencyReserved,
			"response_code": 0,
			"response_body": nil,
			"expires_at":    expiresAt,
			"created_at":    now,
			"updated_at":    now,
		}),
	}).Create(&row)
	if res.Error != nil {
		return domain.AsExternal(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&escrowIdempotencyModel{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{
			"status":        idempotencyCompleted,
			"response_code": responseCode,
			"response_body": string(responseBody),
			"updated_at":    at,
		}).Error
}

// Release drops a reservation whose call failed. Completed keys stay.
func (r *idempotencyRepository) Release(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).
		Where("idempotency_key = ? AND status = ?", key, idempotencyReserved).
		Delete(&escrowIdempotencyModel{}).Error
}

type eventDedupRepository struct {
	db *gorm.DB
}

func (r *eventDedupRepository) IsDuplicate(ctx context.Context, eventID string, now time.Time) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&escrowEventDedupModel{}).
		Where("event_id = ? AND expires_at > ?", eventID, now).
		Count(&n).Error
	return n > 0, domain.AsExternal(err)
}

func (r *eventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	row := escrowEventDedupModel{
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now().UTC(),
		ExpiresAt:   expiresAt,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_type", "processed_at", "expires_at"}),
	}).Create(&row).Error
}

var (
	_ ports.IdempotencyRepository = (*idempotencyRepository)(nil)
	_ ports.EventDedupRepository  = (*eventDedupRepository)(nil)
)
