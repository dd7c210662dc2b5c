package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type custodyRepository struct {
	db *gorm.DB
}

func (r *custodyRepository) Lock(ctx context.Context, dealID uint64, depositor domain.Address, amount uint64, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lock := custodyLockModel{
			DealID:    numeric(dealID),
			Depositor: depositor.String(),
			Amount:    numeric(amount),
			LockedAt:  at,
		}
		if err := tx.Create(&lock).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: deal %d", domain.ErrDoubleLock, dealID)
			}
			return err
		}
		entry := custodyLedgerModel{
			EntryID:    uuid.New(),
			DealID:     numeric(dealID),
			EntryType:  domain.EntryTypeLock,
			Address:    depositor.String(),
			Amount:     numeric(amount),
			OccurredAt: at,
		}
		return tx.Create(&entry).Error
	})
}

func (r *custodyRepository) LockedValue(ctx context.Context, dealID uint64) (uint64, error) {
	var lock custodyLockModel
	err := r.db.WithContext(ctx).Where("deal_id = ?", numeric(dealID)).Take(&lock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: no lock for deal %d", domain.ErrNotFound, dealID)
	}
	if err != nil {
		return 0, err
	}
	return uint64(lock.Amount), nil
}

func (r *custodyRepository) Release(ctx context.Context, dealID uint64, splits []domain.Split, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lock custodyLockModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("deal_id = ?", numeric(dealID)).Take(&lock).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no lock for deal %d", domain.ErrNotFound, dealID)
		}
		if err != nil {
			return err
		}
		if lock.Released {
			return fmt.Errorf("%w: deal %d already paid out", domain.ErrState, dealID)
		}
		if err := tx.Model(&custodyLockModel{}).Where("deal_id = ?", numeric(dealID)).Updates(map[string]any{
			"amount":      numeric(0),
			"released":    true,
			"released_at": at,
		}).Error; err != nil {
			return err
		}
		if len(splits) == 0 {
			return nil
		}
		entries := make([]custodyLedgerModel, 0, len(splits))
		for _, sp := range splits {
			entries = append(entries, custodyLedgerModel{
				EntryID:    uuid.New(),
				DealID:     numeric(dealID),
				EntryType:  domain.EntryTypePayout,
				Address:    sp.Recipient.String(),
				Amount:     numeric(sp.Amount),
				Reason:     sp.Reason,
				OccurredAt: at,
			})
		}
		return tx.Create(&entries).Error
	})
}

func (r *custodyRepository) TotalLocked(ctx context.Context) (uint64, error) {
	var raw string
	row := r.db.WithContext(ctx).
		Raw("SELECT COALESCE(SUM(amount), 0)::text FROM custody_locks WHERE released = FALSE").
		Row()
	if err := row.Scan(&raw); err != nil {
		return 0, domain.AsExternal(fmt.Errorf("sum custody locks: %w", err))
	}
	total, err := parseNumeric(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: locked total %s", domain.ErrCustodyCapacity, raw)
	}
	return uint64(total), nil
}

func (r *custodyRepository) EntriesForAddress(ctx context.Context, addr domain.Address) ([]domain.LedgerEntry, error) {
	return r.entries(ctx, "address = ?", addr.String())
}

func (r *custodyRepository) EntriesForDeal(ctx context.Context, dealID uint64) ([]domain.LedgerEntry, error) {
	return r.entries(ctx, "deal_id = ?", numeric(dealID))
}

func (r *custodyRepository) entries(ctx context.Context, query string, arg any) ([]domain.LedgerEntry, error) {
	var rows []custodyLedgerModel
	if err := r.db.WithContext(ctx).Where(query, arg).Order("occurred_at asc").Find(&rows).Error; err != nil {
		return nil, domain.AsExternal(err)
	}
	out := make([]domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.LedgerEntry{
			EntryID:    row.EntryID.String(),
			DealID:     uint64(row.DealID),
			EntryType:  row.EntryType,
			Address:    domain.Address(row.Address),
			Amount:     uint64(row.Amount),
			Reason:     row.Reason,
			OccurredAt: row.OccurredAt,
		})
	}
	return out, nil
}
