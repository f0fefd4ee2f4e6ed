package domain

import "github.com/shopspring/decimal"

// FeeSchedule holds the flat per-trade fee for each market
type FeeSchedule struct {
	Stock  decimal.Decimal
	Crypto decimal.Decimal
	Forex  decimal.Decimal
}

// FeeFor returns the fee charged for one trade on the market
func (f FeeSchedule) FeeFor(market MarketType) decimal.Decimal {
	switch market {
	case MarketStock:
		return f.Stock
	case MarketCrypto:
		return f.Crypto
	case MarketForex:
		return f.Forex
	default:
		return f.Stock
	}
}
