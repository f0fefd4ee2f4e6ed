package marketstore

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Amounts are stored as text so both drivers keep exact decimals.
// Times are unix milliseconds.

type priceRow struct {
	Symbol     string `gorm:"primaryKey;size:32"`
	Market     string `gorm:"size:16;not null"`
	Price      string `gorm:"type:text;not null"`
	Source     string `gorm:"size:64;not null"`
	ObservedAt int64  `gorm:"not null"`
	CachedAt   int64  `gorm:"not null"`
}

func (priceRow) TableName() string {
	return "price_cache"
}

func newPriceRow(p *domain.CachedPrice) priceRow {
	return priceRow{
		Symbol:     p.Symbol,
		Market:     string(p.Market),
		Price:      p.Price.String(),
		Source:     p.Source,
		ObservedAt: p.ObservedAt.UnixMilli(),
		CachedAt:   p.CachedAt.UnixMilli(),
	}
}

func (r priceRow) toDomain() (*domain.CachedPrice, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return nil, errors.Wrapf(err, "parse cached price of %s", r.Symbol)
	}
	return &domain.CachedPrice{
		Symbol:     r.Symbol,
		Market:     domain.MarketType(r.Market),
		Price:      price,
		Source:     r.Source,
		ObservedAt: time.UnixMilli(r.ObservedAt).UTC(),
		CachedAt:   time.UnixMilli(r.CachedAt).UTC(),
	}, nil
}

type candleRow struct {
	Symbol     string `gorm:"primaryKey;size:32"`
	Resolution string `gorm:"primaryKey;size:8"`
	Ts         int64  `gorm:"primaryKey;autoIncrement:false"`
	Market     string `gorm:"size:16;not null"`
	Open       string `gorm:"type:text;not null"`
	High       string `gorm:"type:text;not null"`
	Low        string `gorm:"type:text;not null"`
	Close      string `gorm:"type:text;not null"`
	Volume     string `gorm:"type:text;not null"`
	Source     string `gorm:"size:64"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli"`
}

func (candleRow) TableName() string {
	return "historical_candles"
}

func newCandleRow(c domain.Candle) candleRow {
	return candleRow{
		Symbol:     c.Symbol,
		Resolution: string(c.Resolution),
		Ts:         c.Timestamp.UnixMilli(),
		Market:     string(c.Market),
		Open:       c.Open.String(),
		High:       c.High.String(),
		Low:        c.Low.String(),
		Close:      c.Close.String(),
		Volume:     c.Volume.String(),
		Source:     c.Source,
	}
}

func (r candleRow) toDomain() (domain.Candle, error) {
	c := domain.Candle{
		Symbol:     r.Symbol,
		Market:     domain.MarketType(r.Market),
		Resolution: domain.Resolution(r.Resolution),
		Timestamp:  time.UnixMilli(r.Ts).UTC(),
		Source:     r.Source,
	}

	fields := []struct {
		dst *decimal.Decimal
		raw string
	}{
		{&c.Open, r.Open},
		{&c.High, r.High},
		{&c.Low, r.Low},
		{&c.Close, r.Close},
		{&c.Volume, r.Volume},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return domain.Candle{}, errors.Wrapf(err, "parse candle %s/%s@%d", r.Symbol, r.Resolution, r.Ts)
		}
		*f.dst = v
	}

	return c, nil
}
