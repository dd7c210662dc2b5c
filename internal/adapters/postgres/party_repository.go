package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/viralforge/mesh/services/financial-rails/M47-deal-escrow-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type partyIndexRepository struct {
	db *gorm.DB
}

func (r *partyIndexRepository) Add(ctx context.Context, addr domain.Address, role domain.Role, dealID uint64) error {
	rec := partyIndexModel{Address: addr.String(), Role: string(role), DealID: numeric(dealID)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (r *partyIndexRepository) Members(ctx context.Context, addr domain.Address, role domain.Role) ([]uint64, error) {
	var rows []partyIndexModel
	if err := r.db.WithContext(ctx).
		Where("address = ? AND role = ?", addr.String(), string(role)).
		Order("deal_id asc").
		Find(&rows).Error; err != nil {
		return nil, domain.AsExternal(err)
	}
	out := make([]uint64, 0, len(rows))
	for _, row := range rows {
		out = append(out, uint64(row.DealID))
	}
	return out, nil
}

type contactRepository struct {
	db *gorm.DB
}

func (r *contactRepository) Put(ctx context.Context, dealID uint64, role domain.Role, contact domain.Contact) error {
	rec := dealContactModel{
		DealID:   numeric(dealID),
		Role:     string(role),
		Telegram: contact.Telegram,
		Phone:    contact.Phone,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "deal_id"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{"telegram", "phone"}),
	}).Create(&rec).Error
}

func (r *contactRepository) Get(ctx context.Context, dealID uint64, role domain.Role) (domain.Contact, error) {
	var rec dealContactModel
	err := r.db.WithContext(ctx).Where("deal_id = ? AND role = ?", numeric(dealID), string(role)).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Contact{}, fmt.Errorf("%w: %s contact for deal %d", domain.ErrNotFound, role, dealID)
	}
	if err != nil {
		return domain.Contact{}, domain.AsExternal(err)
	}
	return domain.Contact{Telegram: rec.Telegram, Phone: rec.Phone}, nil
}
