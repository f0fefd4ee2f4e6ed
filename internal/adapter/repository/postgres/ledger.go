package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// ledger implements domain.Ledger with one database transaction per unit of work.
// The account row is locked with SELECT ... FOR UPDATE, which serializes writers per account.
type ledger struct {
	db *DB
}

// NewLedger creates a new ledger
func NewLedger(db *DB) domain.Ledger {
	return &ledger{db: db}
}

// WithinAccount runs fn inside a transaction holding the account row lock
func (l *ledger) WithinAccount(ctx context.Context, accountID uuid.UUID, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	dbTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin ledger transaction")
	}
	defer dbTx.Rollback()

	account, err := lockAccount(ctx, dbTx, accountID)
	if err != nil {
		return err
	}

	if err := fn(ctx, &ledgerTx{tx: dbTx, account: account}); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return errors.Wrap(err, "commit ledger transaction")
	}
	return nil
}

// Reset deletes the account's trades and holdings and sets its balance
func (l *ledger) Reset(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) (*domain.ResetResult, error) {
	if balance.IsNegative() {
		return nil, domain.NewError(domain.KindInvalidParameter, "balance must not be negative, got %s", balance.String())
	}

	dbTx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin reset transaction")
	}
	defer dbTx.Rollback()

	if _, err := lockAccount(ctx, dbTx, accountID); err != nil {
		return nil, err
	}

	trades, err := execCount(ctx, dbTx, `DELETE FROM trades WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "delete trades")
	}

	holdings, err := execCount(ctx, dbTx, `DELETE FROM holdings WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "delete holdings")
	}

	if err := setBalance(ctx, dbTx, accountID, balance); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit reset transaction")
	}

	return &domain.ResetResult{
		TradesDeleted:   trades,
		HoldingsDeleted: holdings,
		Balance:         balance,
	}, nil
}

func lockAccount(ctx context.Context, q queryer, accountID uuid.UUID) (*domain.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, selectAccount+`WHERE id = $1 FOR UPDATE`, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.NewError(domain.KindNotFound, "account not found: %s", accountID)
		}
		return nil, errors.Wrap(err, "lock account")
	}
	return account, nil
}

func setBalance(ctx context.Context, q queryer, accountID uuid.UUID, balance decimal.Decimal) error {
	_, err := q.ExecContext(ctx,
		`UPDATE accounts SET cash_balance = $2, updated_at = now() WHERE id = $1`,
		accountID, balance.String(),
	)
	if err != nil {
		return errors.Wrap(err, "update balance")
	}
	return nil
}

func execCount(ctx context.Context, q queryer, query string, args ...any) (int, error) {
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// ledgerTx implements domain.LedgerTx on an open *sql.Tx
type ledgerTx struct {
	tx      *sql.Tx
	account *domain.Account
}

func (t *ledgerTx) Account() *domain.Account {
	account := *t.account
	return &account
}

func (t *ledgerTx) SetBalance(ctx context.Context, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return domain.NewInsufficientFunds(balance.Neg(), decimal.Zero)
	}
	if err := setBalance(ctx, t.tx, t.account.ID, balance); err != nil {
		return err
	}
	t.account.CashBalance = balance
	return nil
}

func (t *ledgerTx) GetHolding(ctx context.Context, symbol string) (*domain.Holding, error) {
	return getHolding(ctx, t.tx, t.account.ID, symbol)
}

func (t *ledgerTx) UpsertHolding(ctx context.Context, h *domain.Holding) error {
	row := *h
	row.AccountID = t.account.ID
	return upsertHolding(ctx, t.tx, &row)
}

func (t *ledgerTx) DeleteHolding(ctx context.Context, symbol string) error {
	return deleteHolding(ctx, t.tx, t.account.ID, symbol)
}

func (t *ledgerTx) AppendTrade(ctx context.Context, trade *domain.Trade) error {
	row := *trade
	row.AccountID = t.account.ID
	return insertTrade(ctx, t.tx, &row)
}
