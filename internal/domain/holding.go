package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuantityEpsilon is the tolerance under which a remaining position counts as closed
var QuantityEpsilon = decimal.New(1, -9)

// Holding represents an account's open position in one symbol
// AverageCost is the quantity-weighted mean purchase price and only meaningful while Quantity > 0
type Holding struct {
	AccountID   uuid.UUID
	Symbol      string
	Market      MarketType
	Quantity    decimal.Decimal
	AverageCost decimal.Decimal
	UpdatedAt   time.Time
}

// NewHolding opens a position from a first BUY
func NewHolding(accountID uuid.UUID, symbol string, market MarketType, quantity, price decimal.Decimal) *Holding {
	return &Holding{
		AccountID:   accountID,
		Symbol:      symbol,
		Market:      market,
		Quantity:    quantity,
		AverageCost: price,
	}
}

// ApplyBuy adds to the position and recomputes the weighted average cost:
// newAvg = (oldQty*oldAvg + qty*price) / (oldQty + qty)
func (h *Holding) ApplyBuy(quantity, price decimal.Decimal) {
	newQty := h.Quantity.Add(quantity)
	if newQty.IsZero() {
		return
	}
	h.AverageCost = h.Quantity.Mul(h.AverageCost).Add(quantity.Mul(price)).Div(newQty)
	h.Quantity = newQty
}

// CanSell reports whether the position holds at least quantity
func (h *Holding) CanSell(quantity decimal.Decimal) bool {
	return quantity.LessThanOrEqual(h.Quantity)
}

// ApplySell removes quantity from the position and reports whether it is now closed.
// The average cost is unchanged by a sell.
func (h *Holding) ApplySell(quantity decimal.Decimal) (closed bool) {
	h.Quantity = h.Quantity.Sub(quantity)
	if IsDust(h.Quantity) {
		h.Quantity = decimal.Zero
		return true
	}
	return false
}

// IsDust reports whether a quantity is zero within QuantityEpsilon
func IsDust(quantity decimal.Decimal) bool {
	return quantity.Abs().LessThanOrEqual(QuantityEpsilon)
}

// MarketValue returns quantity * price
func (h *Holding) MarketValue(price decimal.Decimal) decimal.Decimal {
	return h.Quantity.Mul(price)
}

// CostBasis returns quantity * average cost
func (h *Holding) CostBasis() decimal.Decimal {
	return h.Quantity.Mul(h.AverageCost)
}
