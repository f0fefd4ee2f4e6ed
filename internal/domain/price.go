package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProviderQuote is a price observation returned by a market data provider
type ProviderQuote struct {
	Symbol     string
	Market     MarketType
	Price      decimal.Decimal
	Source     string
	ObservedAt time.Time
}

// CachedPrice is a provider quote kept for a TTL window from CachedAt.
// A fresher entry replaces the previous one for the same symbol.
type CachedPrice struct {
	Symbol     string
	Market     MarketType
	Price      decimal.Decimal
	Source     string
	ObservedAt time.Time
	CachedAt   time.Time
}

// IsFresh reports whether the entry is still within ttl at now
func (c *CachedPrice) IsFresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(c.CachedAt) < ttl
}
