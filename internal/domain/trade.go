package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide parses "buy"/"sell" (case-insensitive)
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	case "":
		return "", NewError(KindMissingParameter, "side is required")
	default:
		return "", NewError(KindInvalidParameter, "side must be buy or sell, got %q", s)
	}
}

// Trade is an executed market fill. Trades are append-only.
// TotalCost is the cash that moved: debited for BUY (qty*price + fee), credited for SELL (qty*price - fee).
type Trade struct {
	ID         uuid.UUID
	AccountID  uuid.UUID
	Symbol     string
	Market     MarketType
	Side       Side
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	Fee        decimal.Decimal
	TotalCost  decimal.Decimal
	ExecutedAt time.Time
}

// ValidateQuantity checks the order size for a market
func ValidateQuantity(market MarketType, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return NewError(KindInvalidQuantity, "quantity must be positive, got %s", quantity.String())
	}
	if RequiresWholeQuantity(market) && !quantity.Equal(quantity.Truncate(0)) {
		return NewError(KindInvalidQuantity, "%s trades require integer quantities, got %s", market, quantity.String())
	}
	return nil
}

// Notional returns quantity * price
func Notional(quantity, price decimal.Decimal) decimal.Decimal {
	return quantity.Mul(price)
}
