package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for a duplicate key
const uniqueViolation = "23505"

const selectAccount = `
	SELECT id, api_key, cash_balance::text, created_at, updated_at
	FROM accounts
`

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

// GetByID retrieves an account by its ID
func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewError(domain.KindNotFound, "account not found: %s", id)
		}
		return nil, errors.Wrap(err, "get account by id")
	}
	return account, nil
}

// GetByAPIKey retrieves the account owning an API key
func (r *accountRepository) GetByAPIKey(ctx context.Context, apiKey string) (*domain.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, selectAccount+`WHERE api_key = $1`, apiKey))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewError(domain.KindNotFound, "account not found for api key")
		}
		return nil, errors.Wrap(err, "get account by api key")
	}
	return account, nil
}

// Create inserts a new account
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	if err := account.Validate(); err != nil {
		return domain.WrapError(domain.KindInvalidParameter, err, "invalid account")
	}

	query := `
		INSERT INTO accounts (id, api_key, cash_balance)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		account.ID,
		account.APIKey,
		account.CashBalance.String(),
	).Scan(&account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return domain.WrapError(domain.KindInvalidParameter, err, "account already exists")
		}
		return errors.Wrap(err, "create account")
	}

	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var account domain.Account
	var balanceStr string

	if err := row.Scan(
		&account.ID,
		&account.APIKey,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	balance, err := parseDecimal("cash_balance", balanceStr)
	if err != nil {
		return nil, err
	}
	account.CashBalance = balance

	return &account, nil
}
