package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// GetByID retrieves an account by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)

	// GetByAPIKey retrieves the account owning an API key
	GetByAPIKey(ctx context.Context, apiKey string) (*Account, error)

	// Create inserts a new account
	Create(ctx context.Context, account *Account) error
}

// HoldingRepository is the read side of the position ledger.
// Holdings are only mutated through a LedgerTx.
type HoldingRepository interface {
	// Get returns the holding for (accountID, symbol), or nil when there is none
	Get(ctx context.Context, accountID uuid.UUID, symbol string) (*Holding, error)

	// ListByAccount returns all open holdings of an account ordered by symbol
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Holding, error)
}

// TradeRepository is the read side of the trade log
type TradeRepository interface {
	// ListByAccount returns trades newest first
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Trade, error)

	// CountByAccount returns the number of trades of an account
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
}

// LedgerTx exposes one locked account inside a unit of work.
// Nothing written through it is visible to others until the unit of work commits.
type LedgerTx interface {
	// Account returns the locked account, including a balance set earlier in the unit of work
	Account() *Account

	// SetBalance replaces the account cash balance
	SetBalance(ctx context.Context, balance decimal.Decimal) error

	// GetHolding returns the account's holding for symbol, or nil when there is none
	GetHolding(ctx context.Context, symbol string) (*Holding, error)

	// UpsertHolding creates or replaces the account's holding for h.Symbol
	UpsertHolding(ctx context.Context, h *Holding) error

	// DeleteHolding removes the account's holding for symbol
	DeleteHolding(ctx context.Context, symbol string) error

	// AppendTrade adds a trade to the log
	AppendTrade(ctx context.Context, t *Trade) error
}

// ResetResult summarizes an administrative account reset
type ResetResult struct {
	TradesDeleted   int
	HoldingsDeleted int
	Balance         decimal.Decimal
}

// Ledger serializes mutations per account.
// WithinAccount holds the account exclusively while fn runs and applies everything fn wrote
// atomically when fn returns nil; any error discards all of it.
// Different accounts never block each other.
type Ledger interface {
	WithinAccount(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx LedgerTx) error) error

	// Reset deletes the account's trades and holdings and sets its balance
	Reset(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) (*ResetResult, error)
}

// PriceCacheRepository stores the latest quote per symbol
type PriceCacheRepository interface {
	// Get returns the cached entry for symbol, or nil when there is none
	Get(ctx context.Context, symbol string) (*CachedPrice, error)

	// Put replaces the entry for p.Symbol
	Put(ctx context.Context, p *CachedPrice) error
}

// CandleQuery selects stored candles; Start is inclusive, End exclusive
type CandleQuery struct {
	Symbol     string
	Resolution Resolution
	Start      *time.Time
	End        *time.Time
	Limit      int
}

// CandleRepository stores immutable OHLCV bars
type CandleRepository interface {
	// Latest returns at most q.Limit candles matching q, newest first
	Latest(ctx context.Context, q CandleQuery) ([]Candle, error)

	// InsertIfAbsent stores candles whose key is not present yet and returns how many were inserted.
	// Existing candles are never overwritten.
	InsertIfAbsent(ctx context.Context, candles []Candle) (int, error)
}

// HistoryRequest asks a provider for bars of one symbol
type HistoryRequest struct {
	Symbol     string
	Market     MarketType
	Resolution Resolution
	Limit      int
	Start      *time.Time
	End        *time.Time
}

// MarketDataProvider is the upstream price source
type MarketDataProvider interface {
	// Name identifies the provider in cached data
	Name() string

	// Quote returns the current price of symbol
	Quote(ctx context.Context, symbol string, market MarketType) (*ProviderQuote, error)

	// History returns bars in chronological order
	History(ctx context.Context, req HistoryRequest) ([]Candle, error)
}
