package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// MockProvider is a mock implementation of MarketDataProvider for testing
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Quote(ctx context.Context, symbol string, market domain.MarketType) (*domain.ProviderQuote, error) {
	args := m.Called(ctx, symbol, market)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProviderQuote), args.Error(1)
}

func (m *MockProvider) History(ctx context.Context, req domain.HistoryRequest) ([]domain.Candle, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candle), args.Error(1)
}

// MockCandleRepository is a mock implementation of CandleRepository for testing
type MockCandleRepository struct {
	mock.Mock
}

func (m *MockCandleRepository) Latest(ctx context.Context, q domain.CandleQuery) ([]domain.Candle, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Candle), args.Error(1)
}

func (m *MockCandleRepository) InsertIfAbsent(ctx context.Context, candles []domain.Candle) (int, error) {
	args := m.Called(ctx, candles)
	return args.Int(0), args.Error(1)
}

var base = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// dailyCandles returns n daily bars starting at base, oldest first
func dailyCandles(n int) []domain.Candle {
	candles := make([]domain.Candle, n)
	for i := range candles {
		price := decimal.NewFromInt(int64(100 + i))
		candles[i] = domain.Candle{
			Symbol:     "AAPL",
			Market:     domain.MarketStock,
			Resolution: domain.ResolutionDay,
			Timestamp:  base.AddDate(0, 0, i),
			Open:       price,
			High:       price.Add(decimal.NewFromInt(1)),
			Low:        price.Sub(decimal.NewFromInt(1)),
			Close:      price,
			Volume:     decimal.NewFromInt(1000),
		}
	}
	return candles
}

func reversed(candles []domain.Candle) []domain.Candle {
	return chronological(candles)
}

func TestGetHistory_ServesFromStoreWhenFull(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	stored := reversed(dailyCandles(3)) // newest first
	repo.On("Latest", ctx, domain.CandleQuery{Symbol: "AAPL", Resolution: domain.ResolutionDay, Limit: 3}).Return(stored, nil)

	result, err := service.GetHistory(ctx, Query{Symbol: "aapl", Resolution: "1d", Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, SourceCache, result.Source)
	assert.Equal(t, domain.ResolutionDay, result.Resolution)
	assert.Equal(t, "1d", result.RequestedResolution)
	require.Len(t, result.Candles, 3)
	assert.True(t, result.Candles[0].Timestamp.Equal(base))
	assert.True(t, result.Candles[2].Timestamp.Equal(base.AddDate(0, 0, 2)))
	provider.AssertNotCalled(t, "History", mock.Anything, mock.Anything)
}

func TestGetHistory_BackfillsWhenStoreIsShort(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	repo.On("Latest", ctx, mock.Anything).Return(reversed(dailyCandles(2)), nil)

	// Provider returns unordered bars with a duplicate
	fetched := dailyCandles(5)
	fetched = append(fetched, fetched[1])
	fetched[0], fetched[4] = fetched[4], fetched[0]
	provider.On("History", mock.Anything, domain.HistoryRequest{
		Symbol:     "AAPL",
		Market:     domain.MarketStock,
		Resolution: domain.ResolutionDay,
		Limit:      4,
	}).Return(fetched, nil)

	var persisted []domain.Candle
	repo.On("InsertIfAbsent", ctx, mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(1).([]domain.Candle) }).
		Return(2, nil)

	result, err := service.GetHistory(ctx, Query{Symbol: "AAPL", Resolution: "D", Limit: 4})
	require.NoError(t, err)

	assert.Equal(t, SourceProvider, result.Source)
	require.Len(t, result.Candles, 4)
	// Newest four bars, oldest first
	for i, c := range result.Candles {
		assert.True(t, c.Timestamp.Equal(base.AddDate(0, 0, i+1)), "candle %d", i)
		assert.Equal(t, "mock", c.Source)
	}
	assert.Equal(t, result.Candles, persisted)
}

func TestGetHistory_FiltersProviderBatchToRange(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 3)

	repo.On("Latest", ctx, mock.Anything).Return([]domain.Candle{}, nil)
	provider.On("History", mock.Anything, mock.Anything).Return(dailyCandles(5), nil)
	repo.On("InsertIfAbsent", ctx, mock.Anything).Return(2, nil)

	result, err := service.GetHistory(ctx, Query{Symbol: "AAPL", Resolution: "D", Start: &start, End: &end})
	require.NoError(t, err)

	require.Len(t, result.Candles, 2)
	assert.True(t, result.Candles[0].Timestamp.Equal(start))
	assert.True(t, result.Candles[1].Timestamp.Equal(base.AddDate(0, 0, 2)))
}

func TestGetHistory_PersistFailureStillReturnsBatch(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	repo.On("Latest", ctx, mock.Anything).Return(nil, errors.New("database is locked"))
	provider.On("History", mock.Anything, mock.Anything).Return(dailyCandles(3), nil)
	repo.On("InsertIfAbsent", ctx, mock.Anything).Return(0, errors.New("database is locked"))

	result, err := service.GetHistory(ctx, Query{Symbol: "AAPL", Resolution: "D", Limit: 10})
	require.NoError(t, err)

	assert.Len(t, result.Candles, 3)
	assert.Equal(t, SourceProvider, result.Source)
}

func TestGetHistory_ProviderFailure(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	repo.On("Latest", ctx, mock.Anything).Return([]domain.Candle{}, nil)
	provider.On("History", mock.Anything, mock.Anything).Return(nil, errors.New("rate limited"))

	_, err := service.GetHistory(ctx, Query{Symbol: "AAPL", Resolution: "D"})

	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	repo.AssertNotCalled(t, "InsertIfAbsent", mock.Anything, mock.Anything)
}

func TestGetHistory_DefaultLimit(t *testing.T) {
	ctx := context.Background()
	provider := new(MockProvider)
	repo := new(MockCandleRepository)
	service := NewHistoryService(provider, repo, time.Second)

	repo.On("Latest", ctx, mock.MatchedBy(func(q domain.CandleQuery) bool {
		return q.Limit == DefaultLimit
	})).Return([]domain.Candle{}, nil)
	provider.On("History", mock.Anything, mock.Anything).Return([]domain.Candle{}, nil)

	result, err := service.GetHistory(ctx, Query{Symbol: "BTC", Resolution: "1h"})
	require.NoError(t, err)

	assert.Equal(t, domain.MarketCrypto, result.Market)
	assert.Equal(t, domain.Resolution60Min, result.Resolution)
	assert.Empty(t, result.Candles)
	repo.AssertExpectations(t)
}

func TestGetHistory_Validation(t *testing.T) {
	service := NewHistoryService(new(MockProvider), new(MockCandleRepository), time.Second)
	later := base.AddDate(0, 0, 1)

	tests := []struct {
		name string
		q    Query
		kind domain.ErrorKind
	}{
		{"missing symbol", Query{Resolution: "D"}, domain.KindMissingParameter},
		{"missing resolution", Query{Symbol: "AAPL"}, domain.KindMissingParameter},
		{"bad resolution", Query{Symbol: "AAPL", Resolution: "3h"}, domain.KindInvalidResolution},
		{"limit too large", Query{Symbol: "AAPL", Resolution: "D", Limit: 5001}, domain.KindInvalidParameter},
		{"negative limit", Query{Symbol: "AAPL", Resolution: "D", Limit: -1}, domain.KindInvalidParameter},
		{"start after end", Query{Symbol: "AAPL", Resolution: "D", Start: &later, End: &base}, domain.KindInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.GetHistory(context.Background(), tt.q)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}
