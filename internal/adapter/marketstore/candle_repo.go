package marketstore

import (
	"context"

	"github.com/yanun0323/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const insertBatchSize = 500

// CandleRepository implements domain.CandleRepository
type CandleRepository struct {
	db *gorm.DB
}

var _ domain.CandleRepository = (*CandleRepository)(nil)

// Latest returns at most q.Limit candles matching q, newest first
func (r *CandleRepository) Latest(ctx context.Context, q domain.CandleQuery) ([]domain.Candle, error) {
	tx := r.db.WithContext(ctx).
		Where("symbol = ? AND resolution = ?", q.Symbol, string(q.Resolution))
	if q.Start != nil {
		tx = tx.Where("ts >= ?", q.Start.UnixMilli())
	}
	if q.End != nil {
		tx = tx.Where("ts < ?", q.End.UnixMilli())
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}

	var rows []candleRow
	if err := tx.Order("ts DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "query candles %s/%s", q.Symbol, q.Resolution)
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// InsertIfAbsent stores candles whose (symbol, resolution, ts) key is new and returns how many were inserted
func (r *CandleRepository) InsertIfAbsent(ctx context.Context, candles []domain.Candle) (int, error) {
	if len(candles) == 0 {
		return 0, nil
	}

	rows := make([]candleRow, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, newCandleRow(c))
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(&rows, insertBatchSize)
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "insert candles")
	}
	return int(result.RowsAffected), nil
}
