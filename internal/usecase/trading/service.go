package trading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
)

const (
	DefaultTradePageSize = 50
	MaxTradePageSize     = 500
)

// Pricer supplies execution prices
type Pricer interface {
	GetPrice(ctx context.Context, symbol string) (*pricing.Quote, error)
}

// ExecuteInput is a market order
type ExecuteInput struct {
	AccountID uuid.UUID
	Symbol    string
	Side      string
	Quantity  decimal.Decimal
}

// ExecuteResult is the outcome of a filled order.
// Holding is nil when the order closed the position.
type ExecuteResult struct {
	Trade      *domain.Trade
	NewBalance decimal.Decimal
	Holding    *domain.Holding
}

// TradePage is one page of the trade log, newest first
type TradePage struct {
	Trades []*domain.Trade
	Total  int
	Limit  int
	Offset int
}

// TradeService executes market orders against the position ledger
type TradeService struct {
	Pricer    Pricer
	Ledger    domain.Ledger
	TradeRepo domain.TradeRepository
	Fees      domain.FeeSchedule
	Now       func() time.Time
}

// NewTradeService creates a new TradeService instance
func NewTradeService(pricer Pricer, ledger domain.Ledger, tradeRepo domain.TradeRepository, fees domain.FeeSchedule) *TradeService {
	return &TradeService{
		Pricer:    pricer,
		Ledger:    ledger,
		TradeRepo: tradeRepo,
		Fees:      fees,
		Now:       time.Now,
	}
}

// Execute fills a market order at the current price
// Logic:
//  1. Validate the order and price it (nothing is locked or written yet)
//  2. Inside the account's unit of work:
//     BUY:  balance >= qty*price + fee, debit, open or average into the holding
//     SELL: holding >= qty, credit qty*price - fee, reduce or delete the holding
//  3. Append the trade; everything commits together or not at all
func (s *TradeService) Execute(ctx context.Context, in ExecuteInput) (*ExecuteResult, error) {
	side, err := domain.ParseSide(in.Side)
	if err != nil {
		return nil, err
	}

	symbol := domain.NormalizeSymbol(in.Symbol)
	if symbol == "" {
		return nil, domain.NewError(domain.KindMissingParameter, "symbol is required")
	}

	market := domain.Classify(symbol)
	if err := domain.ValidateQuantity(market, in.Quantity); err != nil {
		return nil, err
	}

	quote, err := s.Pricer.GetPrice(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price := quote.Price
	fee := s.Fees.FeeFor(market)
	notional := domain.Notional(in.Quantity, price)

	var result *ExecuteResult
	err = s.Ledger.WithinAccount(ctx, in.AccountID, func(ctx context.Context, tx domain.LedgerTx) error {
		account := tx.Account()
		now := s.Now().UTC()

		holding, err := tx.GetHolding(ctx, symbol)
		if err != nil {
			return err
		}

		var totalCost, newBalance decimal.Decimal
		switch side {
		case domain.SideBuy:
			totalCost = notional.Add(fee)
			if account.CashBalance.LessThan(totalCost) {
				return domain.NewInsufficientFunds(totalCost, account.CashBalance)
			}
			newBalance = account.CashBalance.Sub(totalCost)

			if holding == nil {
				holding = domain.NewHolding(account.ID, symbol, market, in.Quantity, price)
			} else {
				holding.ApplyBuy(in.Quantity, price)
			}
			holding.UpdatedAt = now
			if err := tx.UpsertHolding(ctx, holding); err != nil {
				return err
			}

		case domain.SideSell:
			if holding == nil {
				return domain.NewInsufficientHoldings(in.Quantity, decimal.Zero)
			}
			if !holding.CanSell(in.Quantity) {
				return domain.NewInsufficientHoldings(in.Quantity, holding.Quantity)
			}

			totalCost = notional.Sub(fee)
			newBalance = account.CashBalance.Add(totalCost)
			// The fee can exceed the proceeds of a tiny sale
			if newBalance.IsNegative() {
				return domain.NewInsufficientFunds(fee, account.CashBalance.Add(notional))
			}

			if holding.ApplySell(in.Quantity) {
				if err := tx.DeleteHolding(ctx, symbol); err != nil {
					return err
				}
				holding = nil
			} else {
				holding.UpdatedAt = now
				if err := tx.UpsertHolding(ctx, holding); err != nil {
					return err
				}
			}
		}

		if err := tx.SetBalance(ctx, newBalance); err != nil {
			return err
		}

		trade := &domain.Trade{
			ID:         uuid.New(),
			AccountID:  account.ID,
			Symbol:     symbol,
			Market:     market,
			Side:       side,
			Quantity:   in.Quantity,
			Price:      price,
			Fee:        fee,
			TotalCost:  totalCost,
			ExecutedAt: now,
		}
		if err := tx.AppendTrade(ctx, trade); err != nil {
			return err
		}

		result = &ExecuteResult{
			Trade:      trade,
			NewBalance: newBalance,
			Holding:    holding,
		}
		return nil
	})
	if err != nil {
		if _, ok := domain.AsError(err); !ok {
			return nil, domain.WrapError(domain.KindInternal, err, "failed to execute %s %s", side, symbol)
		}
		return nil, err
	}

	logs.Infof("executed %s %s %s @ %s for account %s, balance %s",
		side, result.Trade.Quantity.String(), symbol, price.String(), in.AccountID, result.NewBalance.String())

	return result, nil
}

// ListTrades returns one page of the account's trade log, newest first
func (s *TradeService) ListTrades(ctx context.Context, accountID uuid.UUID, limit, offset int) (*TradePage, error) {
	if limit == 0 {
		limit = DefaultTradePageSize
	}
	if limit < 1 || limit > MaxTradePageSize {
		return nil, domain.NewError(domain.KindInvalidParameter, "limit must be between 1 and %d, got %d", MaxTradePageSize, limit)
	}
	if offset < 0 {
		return nil, domain.NewError(domain.KindInvalidParameter, "offset must not be negative, got %d", offset)
	}

	trades, err := s.TradeRepo.ListByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.TradeRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &TradePage{
		Trades: trades,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
