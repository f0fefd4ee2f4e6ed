package portfolio

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
)

// DefaultConcurrency bounds the number of parallel price lookups
const DefaultConcurrency = 8

var hundred = decimal.NewFromInt(100)

// Pricer supplies current prices
type Pricer interface {
	GetPrice(ctx context.Context, symbol string) (*pricing.Quote, error)
}

// Position is a holding valued at the current price.
// When pricing failed, the price fields are nil and PriceError says why.
type Position struct {
	Symbol               string
	Market               domain.MarketType
	Quantity             decimal.Decimal
	AverageCost          decimal.Decimal
	CostBasis            decimal.Decimal
	CurrentPrice         *decimal.Decimal
	MarketValue          *decimal.Decimal
	UnrealizedPnL        *decimal.Decimal
	UnrealizedPnLPercent *decimal.Decimal
	PriceError           string
}

// Valuation is an account snapshot
type Valuation struct {
	AccountID           uuid.UUID
	CashBalance         decimal.Decimal
	Positions           []Position
	TotalHoldingsValue  decimal.Decimal
	TotalPortfolioValue decimal.Decimal
	// RealizedPnL is cash minus the default starting balance, set once the account has traded
	RealizedPnL *decimal.Decimal
}

// PortfolioService values accounts at current prices. It never writes.
type PortfolioService struct {
	Pricer         Pricer
	AccountRepo    domain.AccountRepository
	HoldingRepo    domain.HoldingRepository
	TradeRepo      domain.TradeRepository
	DefaultBalance decimal.Decimal
	Concurrency    int
}

// NewPortfolioService creates a new PortfolioService instance
func NewPortfolioService(pricer Pricer, accountRepo domain.AccountRepository, holdingRepo domain.HoldingRepository, tradeRepo domain.TradeRepository, defaultBalance decimal.Decimal) *PortfolioService {
	return &PortfolioService{
		Pricer:         pricer,
		AccountRepo:    accountRepo,
		HoldingRepo:    holdingRepo,
		TradeRepo:      tradeRepo,
		DefaultBalance: defaultBalance,
		Concurrency:    DefaultConcurrency,
	}
}

// Value prices every holding of the account
// Logic:
//   - unrealizedPnL = (price - avg) * qty, percent relative to avg
//   - a holding whose price cannot be fetched keeps its cost fields and is left out of the totals
//   - totalPortfolioValue = cash + sum of priced market values
func (s *PortfolioService) Value(ctx context.Context, accountID uuid.UUID) (*Valuation, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	holdings, err := s.HoldingRepo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	positions := s.pricePositions(ctx, holdings)

	total := decimal.Zero
	for _, p := range positions {
		if p.MarketValue != nil {
			total = total.Add(*p.MarketValue)
		}
	}

	valuation := &Valuation{
		AccountID:           account.ID,
		CashBalance:         account.CashBalance,
		Positions:           positions,
		TotalHoldingsValue:  total,
		TotalPortfolioValue: account.CashBalance.Add(total),
	}

	count, err := s.TradeRepo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		realized := account.CashBalance.Sub(s.DefaultBalance)
		valuation.RealizedPnL = &realized
	}

	return valuation, nil
}

func (s *PortfolioService) pricePositions(ctx context.Context, holdings []*domain.Holding) []Position {
	positions := make([]Position, len(holdings))

	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	for i, h := range holdings {
		positions[i] = Position{
			Symbol:      h.Symbol,
			Market:      h.Market,
			Quantity:    h.Quantity,
			AverageCost: h.AverageCost,
			CostBasis:   h.CostBasis(),
		}

		wg.Add(1)
		go func(p *Position, h *domain.Holding) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			quote, err := s.Pricer.GetPrice(ctx, h.Symbol)
			if err != nil {
				logs.Errorf("valuation price lookup failed for %s, err: %+v", h.Symbol, err)
				p.PriceError = err.Error()
				return
			}
			valuePosition(p, h, quote.Price)
		}(&positions[i], h)
	}
	wg.Wait()

	return positions
}

func valuePosition(p *Position, h *domain.Holding, price decimal.Decimal) {
	marketValue := h.MarketValue(price)
	pnl := price.Sub(h.AverageCost).Mul(h.Quantity)

	p.CurrentPrice = &price
	p.MarketValue = &marketValue
	p.UnrealizedPnL = &pnl

	if !h.AverageCost.IsZero() {
		percent := price.Sub(h.AverageCost).Div(h.AverageCost).Mul(hundred)
		p.UnrealizedPnLPercent = &percent
	}
}
