package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/ports"
	"gorm.io/gorm"
)

type outboxRepository struct {
	db *gorm.DB
}

func (r *outboxRepository) Enqueue(ctx context.Context, event ports.OutboxEvent) error {
	row := escrowOutboxModel{
		OutboxID:         event.EventID,
		EventType:        event.EventType,
		PartitionKey:     event.PartitionKey,
		PartitionKeyPath: event.PartitionKeyPath,
		Payload:          string(event.Payload),
		SchemaVersion:    event.SchemaVersion,
		TraceID:          event.TraceID,
		CreatedAt:        event.OccurredAt,
		FirstSeenAt:      event.OccurredAt,
	}
	return r.db.WithContext(ctx).Omit("seq").Create(&row).Error
}

// FetchUnpublished returns pending rows in enqueue order so that events of
// one deal reach the bus in the order they were committed.
func (r *outboxRepository) FetchUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []escrowOutboxModel
	err := r.db.WithContext(ctx).
		Where("published_at IS NULL").
		Order("seq").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]ports.OutboxRecord, len(rows))
	for i, row := range rows {
		out[i] = toOutboxRecord(row)
	}
	return out, nil
}

func (r *outboxRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID, at time.Time) error {
	return r.mark(ctx, outboxID, map[string]any{"published_at": at})
}

func (r *outboxRepository) MarkFailed(ctx context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	return r.mark(ctx, outboxID, map[string]any{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"last_error":    errMsg,
		"last_error_at": at,
	})
}

func (r *outboxRepository) mark(ctx context.Context, outboxID uuid.UUID, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&escrowOutboxModel{}).
		Where("outbox_id = ?", outboxID).
		Updates(fields).Error
}
