package domain

import (
	"strings"
	"time"
	_ "time/tzdata" // market hours are evaluated in America/New_York
)

// MarketType represents the market a symbol trades on
type MarketType string

const (
	MarketStock  MarketType = "stock"
	MarketCrypto MarketType = "crypto"
	MarketForex  MarketType = "forex"
)

var cryptoSymbols = map[string]struct{}{
	"BTC": {}, "ETH": {}, "USDT": {}, "BNB": {}, "XRP": {},
	"ADA": {}, "DOGE": {}, "SOL": {}, "TRX": {}, "DOT": {},
}

var forexCurrencies = map[string]struct{}{
	"EUR": {}, "GBP": {}, "JPY": {}, "CHF": {}, "AUD": {}, "CAD": {}, "NZD": {}, "CNY": {},
}

var newYork = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// ParseMarketType parses a market name (case-insensitive)
func ParseMarketType(s string) (MarketType, error) {
	switch MarketType(strings.ToLower(strings.TrimSpace(s))) {
	case MarketStock:
		return MarketStock, nil
	case MarketCrypto:
		return MarketCrypto, nil
	case MarketForex:
		return MarketForex, nil
	default:
		return "", NewError(KindInvalidParameter, "unknown market %q (expected stock, crypto or forex)", s)
	}
}

// NormalizeSymbol trims and upper-cases a ticker symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Classify determines the market of a symbol.
// Known crypto tickers are CRYPTO, 6-letter pairs starting with a known currency are FOREX,
// everything else is a STOCK.
func Classify(symbol string) MarketType {
	s := NormalizeSymbol(symbol)

	if _, ok := cryptoSymbols[s]; ok {
		return MarketCrypto
	}

	if len(s) == 6 {
		if _, ok := forexCurrencies[s[:3]]; ok {
			return MarketForex
		}
	}

	return MarketStock
}

// RequiresWholeQuantity reports whether trades on the market must use integer quantities
func RequiresWholeQuantity(market MarketType) bool {
	switch market {
	case MarketStock:
		return true
	case MarketCrypto, MarketForex:
		return false
	default:
		return true
	}
}

// IsMarketOpen applies a coarse trading-hours rule (no holiday calendar):
//   - CRYPTO: always open
//   - FOREX: Monday to Friday
//   - STOCK: Monday to Friday, 09:30-16:00 New York time
func IsMarketOpen(market MarketType, now time.Time) bool {
	local := now.In(newYork)
	weekday := local.Weekday()
	isWeekday := weekday != time.Saturday && weekday != time.Sunday

	switch market {
	case MarketCrypto:
		return true
	case MarketForex:
		return isWeekday
	case MarketStock:
		if !isWeekday {
			return false
		}
		open := time.Date(local.Year(), local.Month(), local.Day(), 9, 30, 0, 0, newYork)
		closing := time.Date(local.Year(), local.Month(), local.Day(), 16, 0, 0, 0, newYork)
		return !local.Before(open) && !local.After(closing)
	default:
		return false
	}
}
