package postgres

import (
	"context"

	"github.com/yanun0323/errors"
)

// schema creates the ledger tables. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id           UUID PRIMARY KEY,
		api_key      TEXT NOT NULL UNIQUE,
		cash_balance NUMERIC NOT NULL CHECK (cash_balance >= 0),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS holdings (
		account_id   UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		symbol       TEXT NOT NULL,
		market       TEXT NOT NULL,
		quantity     NUMERIC NOT NULL CHECK (quantity > 0),
		average_cost NUMERIC NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (account_id, symbol)
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id          UUID PRIMARY KEY,
		account_id  UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		symbol      TEXT NOT NULL,
		market      TEXT NOT NULL,
		side        TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
		quantity    NUMERIC NOT NULL CHECK (quantity > 0),
		price       NUMERIC NOT NULL,
		fee         NUMERIC NOT NULL,
		total_cost  NUMERIC NOT NULL,
		executed_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trades_account_executed ON trades (account_id, executed_at DESC)`,
}

// Migrate creates the ledger schema if it does not exist
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate ledger schema")
		}
	}
	return nil
}
