package main

import (
	"context"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/usecase/account"
)

// env is what the commands operate on
type env struct {
	accounts *account.AccountService
	trades   domain.TradeRepository
	close    func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != "postgres" {
		return nil, errors.Errorf("%s ledger cannot be administered offline", cfg.Database.Driver)
	}

	db, err := postgres.NewDB(cfg.Database.DSN())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	accountService := account.NewAccountService(
		postgres.NewAccountRepository(db),
		postgres.NewLedger(db),
		cfg.Trading.DefaultBalance,
	)
	return &env{
		accounts: accountService,
		trades:   postgres.NewTradeRepository(db),
		close:    func() { _ = db.Close() },
	}, nil
}

// resolveAccount finds the account named by id or api key
func (e *env) resolveAccount(ctx context.Context, id, apiKey string) (*domain.Account, error) {
	switch {
	case id != "":
		accountID, err := uuid.Parse(id)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid account id %q", id)
		}
		return e.accounts.AccountRepo.GetByID(ctx, accountID)
	case apiKey != "":
		return e.accounts.Authenticate(ctx, apiKey)
	default:
		return nil, errors.New("one of -id or -key is required")
	}
}

// formatUSD renders an amount with the USD symbol, grouping and two decimals
func formatUSD(amount decimal.Decimal) string {
	cur := money.New(0, money.USD).Currency()
	minor := amount.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(minor.IntPart())
}
