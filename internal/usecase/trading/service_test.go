package trading

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/pricing"
)

// MockPricer is a mock implementation of Pricer for testing
type MockPricer struct {
	mock.Mock
}

func (m *MockPricer) GetPrice(ctx context.Context, symbol string) (*pricing.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pricing.Quote), args.Error(1)
}

func quote(symbol string, price int64) *pricing.Quote {
	return &pricing.Quote{
		Symbol: symbol,
		Market: domain.Classify(symbol),
		Price:  decimal.NewFromInt(price),
		Source: "mock",
	}
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T, balance string, fees domain.FeeSchedule) (*TradeService, *MockPricer, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.NewStore()
	account := &domain.Account{ID: uuid.New(), APIKey: uuid.NewString(), CashBalance: d(balance)}
	require.NoError(t, store.Create(context.Background(), account))

	pricer := new(MockPricer)
	service := NewTradeService(pricer, store, store.Trades(), fees)
	service.Now = func() time.Time { return time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC) }
	return service, pricer, store, account.ID
}

func TestExecute_BuyAverageSellScenario(t *testing.T) {
	ctx := context.Background()
	service, pricer, store, accountID := setup(t, "100000", domain.FeeSchedule{})

	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 150), nil).Once()
	result, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "aapl", Side: "buy", Quantity: d("10")})
	require.NoError(t, err)
	assert.True(t, result.NewBalance.Equal(d("98500")), "balance %s", result.NewBalance)
	assert.True(t, result.Holding.Quantity.Equal(d("10")))
	assert.True(t, result.Holding.AverageCost.Equal(d("150")))
	assert.True(t, result.Trade.TotalCost.Equal(d("1500")))

	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 160), nil).Once()
	result, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "BUY", Quantity: d("5")})
	require.NoError(t, err)
	assert.True(t, result.Holding.Quantity.Equal(d("15")))
	assert.Equal(t, "153.33", result.Holding.AverageCost.StringFixed(2))
	assert.True(t, result.NewBalance.Equal(d("97700")))

	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 170), nil).Once()
	result, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "sell", Quantity: d("15")})
	require.NoError(t, err)
	assert.True(t, result.Trade.TotalCost.Equal(d("2550")))
	assert.True(t, result.NewBalance.Equal(d("100250")), "balance %s", result.NewBalance)
	assert.Nil(t, result.Holding)

	h, err := store.Get(ctx, accountID, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, h, "closed position must be deleted")

	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 170), nil).Once()
	_, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "sell", Quantity: d("1")})
	assert.Equal(t, domain.KindInsufficientHoldings, domain.KindOf(err))

	count, _ := store.Trades().CountByAccount(ctx, accountID)
	assert.Equal(t, 3, count)
}

func TestExecute_InsufficientFundsLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	service, pricer, store, accountID := setup(t, "1000", domain.FeeSchedule{Stock: d("1")})

	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 100), nil)

	_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "buy", Quantity: d("10")})

	require.Error(t, err)
	domainErr, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindInsufficientFunds, domainErr.Kind)
	assert.True(t, domainErr.Required.Equal(d("1001")))
	assert.True(t, domainErr.Available.Equal(d("1000")))
	assert.Contains(t, err.Error(), "Required: 1001, Available: 1000")

	account, _ := store.GetByID(ctx, accountID)
	assert.True(t, account.CashBalance.Equal(d("1000")))
	holdings, _ := store.ListByAccount(ctx, accountID)
	assert.Empty(t, holdings)
	count, _ := store.Trades().CountByAccount(ctx, accountID)
	assert.Zero(t, count)
}

func TestExecute_FeesAndFractionalCrypto(t *testing.T) {
	ctx := context.Background()
	service, pricer, _, accountID := setup(t, "10000", domain.FeeSchedule{Crypto: d("2.5")})

	pricer.On("GetPrice", ctx, "BTC").Return(quote("BTC", 40000), nil)

	result, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "BTC", Side: "buy", Quantity: d("0.1")})
	require.NoError(t, err)
	assert.Equal(t, domain.MarketCrypto, result.Trade.Market)
	assert.True(t, result.Trade.Fee.Equal(d("2.5")))
	assert.True(t, result.Trade.TotalCost.Equal(d("4002.5")))
	assert.True(t, result.NewBalance.Equal(d("5997.5")))

	result, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "BTC", Side: "sell", Quantity: d("0.04")})
	require.NoError(t, err)
	assert.True(t, result.Trade.TotalCost.Equal(d("1597.5")))
	assert.True(t, result.Holding.Quantity.Equal(d("0.06")))
	assert.True(t, result.Holding.AverageCost.Equal(d("40000")), "sell keeps average cost")
}

func TestExecute_SellAboveHeldQuantityIsRejected(t *testing.T) {
	ctx := context.Background()
	service, pricer, store, accountID := setup(t, "1000", domain.FeeSchedule{})

	pricer.On("GetPrice", ctx, "ETH").Return(quote("ETH", 10), nil)

	_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "ETH", Side: "buy", Quantity: d("0.3")})
	require.NoError(t, err) // balance 997

	_, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "ETH", Side: "sell", Quantity: d("0.3000000001")})
	assert.Equal(t, domain.KindInsufficientHoldings, domain.KindOf(err))

	h, err := store.Get(ctx, accountID, "ETH")
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(d("0.3")), "holding %s", h.Quantity)

	account, err := store.GetByID(ctx, accountID)
	require.NoError(t, err)
	assert.True(t, account.CashBalance.Equal(d("997")), "balance %s", account.CashBalance)

	result, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "ETH", Side: "sell", Quantity: d("0.3")})
	require.NoError(t, err)
	assert.Nil(t, result.Holding)
	assert.True(t, result.NewBalance.Equal(d("1000")))
}

func TestExecute_SellProceedsBelowFee(t *testing.T) {
	ctx := context.Background()
	service, pricer, _, accountID := setup(t, "10", domain.FeeSchedule{Crypto: d("5")})

	pricer.On("GetPrice", ctx, "DOGE").Return(quote("DOGE", 1), nil)

	_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "DOGE", Side: "buy", Quantity: d("5")})
	require.NoError(t, err) // balance 0

	_, err = service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "DOGE", Side: "sell", Quantity: d("1")})
	assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
}

func TestExecute_Validation(t *testing.T) {
	service, pricer, _, accountID := setup(t, "1000", domain.FeeSchedule{})

	tests := []struct {
		name string
		in   ExecuteInput
		kind domain.ErrorKind
	}{
		{"zero quantity", ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "buy", Quantity: d("0")}, domain.KindInvalidQuantity},
		{"negative quantity", ExecuteInput{AccountID: accountID, Symbol: "BTC", Side: "buy", Quantity: d("-1")}, domain.KindInvalidQuantity},
		{"fractional stock", ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "buy", Quantity: d("1.5")}, domain.KindInvalidQuantity},
		{"bad side", ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "short", Quantity: d("1")}, domain.KindInvalidParameter},
		{"missing side", ExecuteInput{AccountID: accountID, Symbol: "AAPL", Quantity: d("1")}, domain.KindMissingParameter},
		{"missing symbol", ExecuteInput{AccountID: accountID, Side: "buy", Quantity: d("1")}, domain.KindMissingParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Execute(context.Background(), tt.in)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
	pricer.AssertNotCalled(t, "GetPrice", mock.Anything, mock.Anything)
}

func TestExecute_PriceFailureAbortsWithoutMutation(t *testing.T) {
	ctx := context.Background()
	service, pricer, store, accountID := setup(t, "1000", domain.FeeSchedule{})

	pricer.On("GetPrice", ctx, "AAPL").Return(nil, domain.NewError(domain.KindUpstreamUnavailable, "provider down"))

	_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "buy", Quantity: d("1")})

	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	account, _ := store.GetByID(ctx, accountID)
	assert.True(t, account.CashBalance.Equal(d("1000")))
}

func TestExecute_UnknownAccount(t *testing.T) {
	ctx := context.Background()
	service, pricer, _, _ := setup(t, "1000", domain.FeeSchedule{})
	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 1), nil)

	_, err := service.Execute(ctx, ExecuteInput{AccountID: uuid.New(), Symbol: "AAPL", Side: "buy", Quantity: d("1")})

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

// MockLedger runs fn against a MockLedgerTx
type MockLedger struct {
	Tx *MockLedgerTx
}

func (l *MockLedger) WithinAccount(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	return fn(ctx, l.Tx)
}

func (l *MockLedger) Reset(context.Context, uuid.UUID, decimal.Decimal) (*domain.ResetResult, error) {
	return nil, errors.New("not implemented")
}

// MockLedgerTx is a mock implementation of LedgerTx for testing
type MockLedgerTx struct {
	mock.Mock
	account *domain.Account
}

func (m *MockLedgerTx) Account() *domain.Account { return m.account }

func (m *MockLedgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	return m.Called(ctx, balance).Error(0)
}

func (m *MockLedgerTx) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *MockLedgerTx) UpsertHolding(ctx context.Context, h *domain.Holding) error {
	return m.Called(ctx, h).Error(0)
}

func (m *MockLedgerTx) DeleteHolding(ctx context.Context, symbol string) error {
	return m.Called(ctx, symbol).Error(0)
}

func (m *MockLedgerTx) AppendTrade(ctx context.Context, t *domain.Trade) error {
	return m.Called(ctx, t).Error(0)
}

func TestExecute_StorageFailureIsInternal(t *testing.T) {
	ctx := context.Background()
	account := &domain.Account{ID: uuid.New(), CashBalance: d("1000")}
	tx := &MockLedgerTx{account: account}
	tx.On("GetHolding", ctx, "AAPL").Return(nil, nil)
	tx.On("UpsertHolding", ctx, mock.Anything).Return(nil)
	tx.On("SetBalance", ctx, mock.MatchedBy(func(b decimal.Decimal) bool { return b.Equal(d("900")) })).Return(nil)
	tx.On("AppendTrade", ctx, mock.Anything).Return(errors.New("connection reset"))

	pricer := new(MockPricer)
	pricer.On("GetPrice", ctx, "AAPL").Return(quote("AAPL", 100), nil)

	service := NewTradeService(pricer, &MockLedger{Tx: tx}, nil, domain.FeeSchedule{})
	_, err := service.Execute(ctx, ExecuteInput{AccountID: account.ID, Symbol: "AAPL", Side: "buy", Quantity: d("1")})

	assert.Equal(t, domain.KindInternal, domain.KindOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	tx.AssertExpectations(t)
}

func TestExecute_ConcurrentBuysNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	service, pricer, store, accountID := setup(t, "1000", domain.FeeSchedule{})
	pricer.On("GetPrice", mock.Anything, "AAPL").Return(quote("AAPL", 100), nil)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "AAPL", Side: "buy", Quantity: d("1")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else {
				assert.Equal(t, domain.KindInsufficientFunds, domain.KindOf(err))
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, rejected)

	// balance + cost basis stays equal to the starting balance with zero fees
	account, _ := store.GetByID(ctx, accountID)
	h, _ := store.Get(ctx, accountID, "AAPL")
	require.NotNil(t, h)
	assert.True(t, account.CashBalance.IsZero())
	assert.True(t, h.Quantity.Equal(d("10")))
	assert.True(t, account.CashBalance.Add(h.CostBasis()).Equal(d("1000")))
}

func TestListTrades(t *testing.T) {
	ctx := context.Background()
	service, pricer, _, accountID := setup(t, "1000", domain.FeeSchedule{})
	pricer.On("GetPrice", ctx, "SOL").Return(quote("SOL", 10), nil)

	for i := 0; i < 3; i++ {
		_, err := service.Execute(ctx, ExecuteInput{AccountID: accountID, Symbol: "SOL", Side: "buy", Quantity: d("1")})
		require.NoError(t, err)
	}

	page, err := service.ListTrades(ctx, accountID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, DefaultTradePageSize, page.Limit)
	assert.Len(t, page.Trades, 3)

	page, err = service.ListTrades(ctx, accountID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Trades, 1)

	_, err = service.ListTrades(ctx, accountID, MaxTradePageSize+1, 0)
	assert.Equal(t, domain.KindInvalidParameter, domain.KindOf(err))
	_, err = service.ListTrades(ctx, accountID, 10, -1)
	assert.Equal(t, domain.KindInvalidParameter, domain.KindOf(err))
}
