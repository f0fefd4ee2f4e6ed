// Package response renders usecase results as the JSON-shaped documents served by both transports.
// Decimals are rendered as strings and timestamps as unix seconds. Lists are []any so that the
// documents can also be converted to protobuf Structs.
package response

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/history"
	"github.com/simaogato/papertrade-backend/internal/usecase/portfolio"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
	"github.com/simaogato/papertrade-backend/internal/usecase/trading"
)

// Doc is one response document
type Doc = map[string]any

// Account renders a newly registered account
func Account(a *domain.Account) Doc {
	return Doc{
		"user_id": a.ID.String(),
		"api_key": a.APIKey,
		"balance": a.CashBalance.String(),
		"message": "Account created. Keep the API key, it cannot be recovered.",
	}
}

// Price renders a quote
func Price(q *pricing.Quote) Doc {
	return Doc{
		"symbol":    q.Symbol,
		"market":    string(q.Market),
		"price":     q.Price.String(),
		"source":    q.Source,
		"updatedAt": unix(q.ObservedAt),
		"cached":    q.FromCache,
	}
}

// Trade renders an executed order
func Trade(r *trading.ExecuteResult) Doc {
	t := r.Trade
	return Doc{
		"status": "success",
		"trade": Doc{
			"symbol":          t.Symbol,
			"market":          string(t.Market),
			"side":            string(t.Side),
			"quantity":        t.Quantity.String(),
			"price":           t.Price.String(),
			"executed_by_uid": t.AccountID.String(),
		},
		"result": Doc{
			"trade_id":        t.ID.String(),
			"executed_at":     unix(t.ExecutedAt),
			"total_cost":      t.TotalCost.String(),
			"transaction_fee": t.Fee.String(),
			"new_balance":     r.NewBalance.String(),
		},
	}
}

// Balance renders the cash balance
func Balance(balance decimal.Decimal) Doc {
	return Doc{"balance": balance.String()}
}

// Holdings renders a portfolio valuation.
// Positions that could not be priced carry null price fields and a price_error.
func Holdings(v *portfolio.Valuation) Doc {
	items := make([]any, 0, len(v.Positions))
	for _, p := range v.Positions {
		item := Doc{
			"symbol":                 p.Symbol,
			"market":                 string(p.Market),
			"quantity":               p.Quantity.String(),
			"average_price":          p.AverageCost.String(),
			"cost_basis":             p.CostBasis.String(),
			"current_price":          optional(p.CurrentPrice),
			"market_value":           optional(p.MarketValue),
			"unrealized_pnl":         optional(p.UnrealizedPnL),
			"unrealized_pnl_percent": optional(p.UnrealizedPnLPercent),
		}
		if p.PriceError != "" {
			item["price_error"] = p.PriceError
		}
		items = append(items, item)
	}

	return Doc{
		"holdings":              items,
		"total_value":           v.TotalHoldingsValue.String(),
		"cash_balance":          v.CashBalance.String(),
		"total_portfolio_value": v.TotalPortfolioValue.String(),
		"realized_pnl":          optional(v.RealizedPnL),
	}
}

// History renders a candle series
func History(r *history.Result) Doc {
	candles := make([]any, 0, len(r.Candles))
	for _, c := range r.Candles {
		candles = append(candles, Doc{
			"timestamp": unix(c.Timestamp),
			"open":      c.Open.String(),
			"high":      c.High.String(),
			"low":       c.Low.String(),
			"close":     c.Close.String(),
			"volume":    c.Volume.String(),
		})
	}

	return Doc{
		"symbol":     r.Symbol,
		"market":     string(r.Market),
		"resolution": r.RequestedResolution,
		"count":      len(candles),
		"history":    candles,
		"source":     r.Source,
		"updatedAt":  unix(r.UpdatedAt),
	}
}

// MarketStatus renders whether a market is open
func MarketStatus(market domain.MarketType, open bool) Doc {
	return Doc{"market": string(market), "isOpen": open}
}

// Trades renders one page of the trade log
func Trades(p *trading.TradePage) Doc {
	items := make([]any, 0, len(p.Trades))
	for _, t := range p.Trades {
		items = append(items, Doc{
			"trade_id":        t.ID.String(),
			"symbol":          t.Symbol,
			"market":          string(t.Market),
			"side":            string(t.Side),
			"quantity":        t.Quantity.String(),
			"price":           t.Price.String(),
			"transaction_fee": t.Fee.String(),
			"total_cost":      t.TotalCost.String(),
			"executed_at":     unix(t.ExecutedAt),
		})
	}

	return Doc{
		"trades": items,
		"total":  p.Total,
		"limit":  p.Limit,
		"offset": p.Offset,
	}
}

// Error renders a failure. Business-rule rejections include the required and available amounts.
func Error(err error) Doc {
	doc := Doc{
		"error":   string(domain.KindOf(err)),
		"message": err.Error(),
	}
	if domainErr, ok := domain.AsError(err); ok {
		doc["message"] = domainErr.Message
		if domainErr.Required != nil && domainErr.Available != nil {
			doc["required"] = domainErr.Required.String()
			doc["available"] = domainErr.Available.String()
		}
	}
	if domain.KindOf(err) == domain.KindInternal {
		doc["message"] = "internal error"
	}
	return doc
}

func optional(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
