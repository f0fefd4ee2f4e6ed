package marketstore

import (
	"context"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// PriceRepository implements domain.PriceCacheRepository
type PriceRepository struct {
	db *gorm.DB
}

var _ domain.PriceCacheRepository = (*PriceRepository)(nil)

// Get returns the cached entry for symbol, or nil when there is none
func (r *PriceRepository) Get(ctx context.Context, symbol string) (*domain.CachedPrice, error) {
	var rows []priceRow
	if err := r.db.WithContext(ctx).Where("symbol = ?", symbol).Limit(1).Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "get cached price of %s", symbol)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].toDomain()
}

// Put replaces the entry for p.Symbol
func (r *PriceRepository) Put(ctx context.Context, p *domain.CachedPrice) error {
	row := newPriceRow(p)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return errors.Wrapf(err, "put cached price of %s", p.Symbol)
	}
	return nil
}
