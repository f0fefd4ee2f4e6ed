// Package memory provides an in-process ledger for single-node runs and tests
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// Store keeps accounts, holdings and trades in maps.
// Each account has its own mutex so units of work on different accounts run in parallel.
type Store struct {
	mu       sync.RWMutex
	locks    map[uuid.UUID]*sync.Mutex
	accounts map[uuid.UUID]domain.Account
	apiKeys  map[string]uuid.UUID
	holdings map[uuid.UUID]map[string]domain.Holding
	trades   map[uuid.UUID][]domain.Trade
	now      func() time.Time
}

// NewStore creates an empty Store
func NewStore() *Store {
	return &Store{
		locks:    make(map[uuid.UUID]*sync.Mutex),
		accounts: make(map[uuid.UUID]domain.Account),
		apiKeys:  make(map[string]uuid.UUID),
		holdings: make(map[uuid.UUID]map[string]domain.Holding),
		trades:   make(map[uuid.UUID][]domain.Trade),
		now:      time.Now,
	}
}

// GetByID retrieves an account by its ID
func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "account not found: %s", id)
	}
	return &account, nil
}

// GetByAPIKey retrieves the account owning an API key
func (s *Store) GetByAPIKey(_ context.Context, apiKey string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.apiKeys[apiKey]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "account not found for api key")
	}
	account := s.accounts[id]
	return &account, nil
}

// Create inserts a new account
func (s *Store) Create(_ context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return domain.WrapError(domain.KindInvalidParameter, err, "invalid account")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[account.ID]; exists {
		return domain.NewError(domain.KindInvalidParameter, "account already exists: %s", account.ID)
	}
	if _, exists := s.apiKeys[account.APIKey]; exists {
		return domain.NewError(domain.KindInvalidParameter, "api key already in use")
	}

	now := s.now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	s.accounts[account.ID] = *account
	s.apiKeys[account.APIKey] = account.ID
	s.locks[account.ID] = &sync.Mutex{}
	return nil
}

// Get returns the holding for (accountID, symbol), or nil when there is none
func (s *Store) Get(_ context.Context, accountID uuid.UUID, symbol string) (*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.holdings[accountID][symbol]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// ListByAccount returns all open holdings of an account ordered by symbol
func (s *Store) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*domain.Holding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Holding, 0, len(s.holdings[accountID]))
	for _, h := range s.holdings[accountID] {
		h := h
		result = append(result, &h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

// Trades exposes the trade log as a domain.TradeRepository
func (s *Store) Trades() domain.TradeRepository {
	return tradeLog{s}
}

type tradeLog struct {
	s *Store
}

// ListByAccount returns trades newest first
func (l tradeLog) ListByAccount(_ context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Trade, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	log := l.s.trades[accountID]
	result := make([]*domain.Trade, 0, limit)
	for i := len(log) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		t := log[i]
		result = append(result, &t)
	}
	return result, nil
}

// CountByAccount returns the number of trades of an account
func (l tradeLog) CountByAccount(_ context.Context, accountID uuid.UUID) (int, error) {
	l.s.mu.RLock()
	defer l.s.mu.RUnlock()

	return len(l.s.trades[accountID]), nil
}

func (s *Store) accountLock(accountID uuid.UUID) (*sync.Mutex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lock, ok := s.locks[accountID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "account not found: %s", accountID)
	}
	return lock, nil
}

// WithinAccount runs fn with the account locked and applies its writes only if fn succeeds
func (s *Store) WithinAccount(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	lock, err := s.accountLock(accountID)
	if err != nil {
		return err
	}

	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	account, err := s.GetByID(ctx, accountID)
	if err != nil {
		return err
	}

	tx := &ledgerTx{
		store:    s,
		account:  account,
		holdings: make(map[string]*domain.Holding),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.commit(tx)
	return nil
}

func (s *Store) commit(tx *ledgerTx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := tx.account.ID
	if tx.balance != nil {
		account := s.accounts[id]
		account.CashBalance = *tx.balance
		account.UpdatedAt = s.now().UTC()
		s.accounts[id] = account
	}

	for symbol, h := range tx.holdings {
		if h == nil {
			delete(s.holdings[id], symbol)
			continue
		}
		if s.holdings[id] == nil {
			s.holdings[id] = make(map[string]domain.Holding)
		}
		s.holdings[id][symbol] = *h
	}

	s.trades[id] = append(s.trades[id], tx.trades...)
}

// Reset deletes the account's trades and holdings and sets its balance
func (s *Store) Reset(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) (*domain.ResetResult, error) {
	lock, err := s.accountLock(accountID)
	if err != nil {
		return nil, err
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &domain.ResetResult{
		TradesDeleted:   len(s.trades[accountID]),
		HoldingsDeleted: len(s.holdings[accountID]),
		Balance:         balance,
	}

	delete(s.trades, accountID)
	delete(s.holdings, accountID)

	account := s.accounts[accountID]
	account.CashBalance = balance
	account.UpdatedAt = s.now().UTC()
	s.accounts[accountID] = account

	return result, nil
}

// ledgerTx stages writes until the unit of work commits.
// A nil entry in holdings marks a deletion.
type ledgerTx struct {
	store    *Store
	account  *domain.Account
	balance  *decimal.Decimal
	holdings map[string]*domain.Holding
	trades   []domain.Trade
}

func (tx *ledgerTx) Account() *domain.Account {
	account := *tx.account
	if tx.balance != nil {
		account.CashBalance = *tx.balance
	}
	return &account
}

func (tx *ledgerTx) SetBalance(_ context.Context, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return domain.NewInsufficientFunds(balance.Neg(), decimal.Zero)
	}
	tx.balance = &balance
	return nil
}

func (tx *ledgerTx) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	if staged, ok := tx.holdings[symbol]; ok {
		if staged == nil {
			return nil, nil
		}
		h := *staged
		return &h, nil
	}
	return tx.store.Get(ctx, tx.account.ID, symbol)
}

func (tx *ledgerTx) UpsertHolding(_ context.Context, h *domain.Holding) error {
	staged := *h
	staged.AccountID = tx.account.ID
	tx.holdings[h.Symbol] = &staged
	return nil
}

func (tx *ledgerTx) DeleteHolding(_ context.Context, symbol string) error {
	tx.holdings[symbol] = nil
	return nil
}

func (tx *ledgerTx) AppendTrade(_ context.Context, t *domain.Trade) error {
	trade := *t
	trade.AccountID = tx.account.ID
	tx.trades = append(tx.trades, trade)
	return nil
}
