package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const (
	apiKeyBytes    = 32
	maxKeyAttempts = 5
)

// AccountService manages trading accounts and their API keys
type AccountService struct {
	AccountRepo    domain.AccountRepository
	Ledger         domain.Ledger
	DefaultBalance decimal.Decimal
	NewAPIKey      func() (string, error)
}

// NewAccountService creates a new AccountService instance
func NewAccountService(accountRepo domain.AccountRepository, ledger domain.Ledger, defaultBalance decimal.Decimal) *AccountService {
	return &AccountService{
		AccountRepo:    accountRepo,
		Ledger:         ledger,
		DefaultBalance: defaultBalance,
		NewAPIKey:      GenerateAPIKey,
	}
}

// GenerateAPIKey returns 32 random bytes encoded as unpadded URL-safe base64
func GenerateAPIKey() (string, error) {
	buf := make([]byte, apiKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Create opens an account with a fresh API key
// The starting balance defaults to DefaultBalance; a zero balance is allowed, a negative one is not.
func (s *AccountService) Create(ctx context.Context, initialBalance *decimal.Decimal) (*domain.Account, error) {
	balance := s.DefaultBalance
	if initialBalance != nil {
		if initialBalance.IsNegative() {
			return nil, domain.NewError(domain.KindInvalidParameter, "balance must not be negative, got %s", initialBalance.String())
		}
		balance = *initialBalance
	}

	apiKey, err := s.uniqueAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		ID:          uuid.New(),
		APIKey:      apiKey,
		CashBalance: balance,
	}
	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	logs.Infof("created account %s with balance %s", account.ID, balance.String())
	return account, nil
}

// uniqueAPIKey draws keys until one is unused
func (s *AccountService) uniqueAPIKey(ctx context.Context) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key, err := s.NewAPIKey()
		if err != nil {
			return "", domain.WrapError(domain.KindInternal, err, "failed to generate api key")
		}

		_, err = s.AccountRepo.GetByAPIKey(ctx, key)
		switch domain.KindOf(err) {
		case domain.KindNotFound:
			return key, nil
		case "":
			continue
		default:
			return "", err
		}
	}
	return "", domain.NewError(domain.KindInternal, "failed to generate a unique api key")
}

// Authenticate resolves an API key to its account
func (s *AccountService) Authenticate(ctx context.Context, apiKey string) (*domain.Account, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, domain.NewError(domain.KindUnauthenticated, "missing api key")
	}

	account, err := s.AccountRepo.GetByAPIKey(ctx, apiKey)
	if err != nil {
		if domain.KindOf(err) == domain.KindNotFound {
			return nil, domain.NewError(domain.KindUnauthenticated, "invalid api key")
		}
		return nil, err
	}
	return account, nil
}

// GetBalance returns the account's cash balance
func (s *AccountService) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	account, err := s.AccountRepo.GetByID(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.CashBalance, nil
}

// Reset wipes the account's trades and holdings and restores the default balance
func (s *AccountService) Reset(ctx context.Context, accountID uuid.UUID) (*domain.ResetResult, error) {
	result, err := s.Ledger.Reset(ctx, accountID, s.DefaultBalance)
	if err != nil {
		return nil, err
	}

	logs.Infof("reset account %s: %d trades and %d holdings deleted, balance %s",
		accountID, result.TradesDeleted, result.HoldingsDeleted, result.Balance.String())
	return result, nil
}
