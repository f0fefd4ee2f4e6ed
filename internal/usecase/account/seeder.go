package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// DemoAccountID is the fixed ID of the account provisioned for a configured seed key
var DemoAccountID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// Seed ensures an account exists for apiKey
// If no account owns the key, a demo account with the default balance is created
func (s *AccountService) Seed(ctx context.Context, apiKey string) (*domain.Account, error) {
	if apiKey == "" {
		return nil, domain.NewError(domain.KindMissingParameter, "seed api key is required")
	}

	existing, err := s.AccountRepo.GetByAPIKey(ctx, apiKey)
	if err == nil {
		return existing, nil
	}
	if domain.KindOf(err) != domain.KindNotFound {
		return nil, err
	}

	id := DemoAccountID
	if _, err := s.AccountRepo.GetByID(ctx, id); err == nil {
		// The demo ID is taken by an account with another key
		id = uuid.New()
	}

	account := &domain.Account{
		ID:          id,
		APIKey:      apiKey,
		CashBalance: s.DefaultBalance,
	}
	if err := account.Validate(); err != nil {
		return nil, domain.WrapError(domain.KindInvalidParameter, err, "invalid seed account")
	}
	if err := s.AccountRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	logs.Infof("seeded account %s", account.ID)
	return account, nil
}
