package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

func newAccount(t *testing.T, s *Store, balance string) *domain.Account {
	t.Helper()
	account := &domain.Account{
		ID:          uuid.New(),
		APIKey:      uuid.NewString(),
		CashBalance: decimal.RequireFromString(balance),
	}
	require.NoError(t, s.Create(context.Background(), account))
	return account
}

func TestStore_CreateAndLookup(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "1000")

	byID, err := s.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.APIKey, byID.APIKey)
	assert.False(t, byID.CreatedAt.IsZero())

	byKey, err := s.GetByAPIKey(ctx, account.APIKey)
	require.NoError(t, err)
	assert.Equal(t, account.ID, byKey.ID)

	_, err = s.GetByAPIKey(ctx, "nope")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	dup := &domain.Account{ID: uuid.New(), APIKey: account.APIKey}
	assert.Error(t, s.Create(ctx, dup))
}

func TestStore_WithinAccountCommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "1000")

	err := s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
		require.NoError(t, tx.SetBalance(ctx, decimal.NewFromInt(400)))
		require.NoError(t, tx.UpsertHolding(ctx, domain.NewHolding(account.ID, "AAPL", domain.MarketStock, decimal.NewFromInt(4), decimal.NewFromInt(150))))

		// Staged writes are visible inside the unit of work
		h, err := tx.GetHolding(ctx, "AAPL")
		require.NoError(t, err)
		require.NotNil(t, h)
		assert.True(t, tx.Account().CashBalance.Equal(decimal.NewFromInt(400)))

		return tx.AppendTrade(ctx, &domain.Trade{ID: uuid.New(), Symbol: "AAPL", Side: domain.SideBuy})
	})
	require.NoError(t, err)

	got, _ := s.GetByID(ctx, account.ID)
	assert.True(t, got.CashBalance.Equal(decimal.NewFromInt(400)))

	holdings, _ := s.ListByAccount(ctx, account.ID)
	require.Len(t, holdings, 1)
	assert.Equal(t, "AAPL", holdings[0].Symbol)

	count, _ := s.Trades().CountByAccount(ctx, account.ID)
	assert.Equal(t, 1, count)
}

func TestStore_WithinAccountDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "1000")
	boom := errors.New("boom")

	err := s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
		_ = tx.SetBalance(ctx, decimal.NewFromInt(1))
		_ = tx.UpsertHolding(ctx, domain.NewHolding(account.ID, "BTC", domain.MarketCrypto, decimal.NewFromInt(1), decimal.NewFromInt(1)))
		_ = tx.AppendTrade(ctx, &domain.Trade{ID: uuid.New()})
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.GetByID(ctx, account.ID)
	assert.True(t, got.CashBalance.Equal(decimal.NewFromInt(1000)))
	h, _ := s.Get(ctx, account.ID, "BTC")
	assert.Nil(t, h)
	count, _ := s.Trades().CountByAccount(ctx, account.ID)
	assert.Zero(t, count)
}

func TestStore_WithinAccountUnknownAccount(t *testing.T) {
	s := NewStore()
	called := false

	err := s.WithinAccount(context.Background(), uuid.New(), func(context.Context, domain.LedgerTx) error {
		called = true
		return nil
	})

	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.False(t, called)
}

func TestStore_DeleteHolding(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "1000")

	require.NoError(t, s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
		return tx.UpsertHolding(ctx, domain.NewHolding(account.ID, "ETH", domain.MarketCrypto, decimal.NewFromInt(2), decimal.NewFromInt(10)))
	}))
	require.NoError(t, s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
		require.NoError(t, tx.DeleteHolding(ctx, "ETH"))
		h, err := tx.GetHolding(ctx, "ETH")
		assert.Nil(t, h)
		return err
	}))

	holdings, _ := s.ListByAccount(ctx, account.ID)
	assert.Empty(t, holdings)
}

func TestStore_TradesNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "1000")

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
			return tx.AppendTrade(ctx, &domain.Trade{ID: id})
		}))
	}

	page, err := s.Trades().ListByAccount(ctx, account.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, ids[3], page[0].ID)
	assert.Equal(t, ids[2], page[1].ID)

	page, _ = s.Trades().ListByAccount(ctx, account.ID, 10, 10)
	assert.Empty(t, page)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "10")

	require.NoError(t, s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
		_ = tx.UpsertHolding(ctx, domain.NewHolding(account.ID, "AAPL", domain.MarketStock, decimal.NewFromInt(1), decimal.NewFromInt(1)))
		return tx.AppendTrade(ctx, &domain.Trade{ID: uuid.New()})
	}))

	result, err := s.Reset(ctx, account.ID, decimal.NewFromInt(100000))
	require.NoError(t, err)
	assert.Equal(t, 1, result.TradesDeleted)
	assert.Equal(t, 1, result.HoldingsDeleted)

	got, _ := s.GetByID(ctx, account.ID)
	assert.True(t, got.CashBalance.Equal(decimal.NewFromInt(100000)))
	holdings, _ := s.ListByAccount(ctx, account.ID)
	assert.Empty(t, holdings)
}

func TestStore_SerializesUnitsOfWorkPerAccount(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	account := newAccount(t, s, "0")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithinAccount(ctx, account.ID, func(ctx context.Context, tx domain.LedgerTx) error {
				return tx.SetBalance(ctx, tx.Account().CashBalance.Add(decimal.NewFromInt(1)))
			})
		}()
	}
	wg.Wait()

	got, _ := s.GetByID(ctx, account.ID)
	assert.True(t, got.CashBalance.Equal(decimal.NewFromInt(50)), "got %s", got.CashBalance)
}
