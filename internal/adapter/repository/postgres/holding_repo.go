package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

const selectHolding = `
	SELECT account_id, symbol, market, quantity::text, average_cost::text, updated_at
	FROM holdings
`

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// Get returns the holding for (accountID, symbol), or nil when there is none
func (r *holdingRepository) Get(ctx context.Context, accountID uuid.UUID, symbol string) (*domain.Holding, error) {
	return getHolding(ctx, r.db, accountID, symbol)
}

// ListByAccount returns all open holdings of an account ordered by symbol
func (r *holdingRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, selectHolding+`WHERE account_id = $1 ORDER BY symbol`, accountID)
	if err != nil {
		return nil, errors.Wrap(err, "list holdings")
	}
	defer rows.Close()

	var holdings []*domain.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate holdings")
	}

	return holdings, nil
}

func getHolding(ctx context.Context, q queryer, accountID uuid.UUID, symbol string) (*domain.Holding, error) {
	h, err := scanHolding(q.QueryRowContext(ctx, selectHolding+`WHERE account_id = $1 AND symbol = $2`, accountID, symbol))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get holding")
	}
	return h, nil
}

func upsertHolding(ctx context.Context, q queryer, h *domain.Holding) error {
	query := `
		INSERT INTO holdings (account_id, symbol, market, quantity, average_cost, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (account_id, symbol) DO UPDATE SET
			market = EXCLUDED.market,
			quantity = EXCLUDED.quantity,
			average_cost = EXCLUDED.average_cost,
			updated_at = EXCLUDED.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		h.AccountID,
		h.Symbol,
		string(h.Market),
		h.Quantity.String(),
		h.AverageCost.String(),
	)
	if err != nil {
		return errors.Wrapf(err, "upsert holding %s", h.Symbol)
	}
	return nil
}

func deleteHolding(ctx context.Context, q queryer, accountID uuid.UUID, symbol string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM holdings WHERE account_id = $1 AND symbol = $2`, accountID, symbol); err != nil {
		return errors.Wrapf(err, "delete holding %s", symbol)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHolding(row scanner) (*domain.Holding, error) {
	var h domain.Holding
	var market, quantityStr, avgStr string

	if err := row.Scan(
		&h.AccountID,
		&h.Symbol,
		&market,
		&quantityStr,
		&avgStr,
		&h.UpdatedAt,
	); err != nil {
		return nil, err
	}
	h.Market = domain.MarketType(market)

	quantity, err := parseDecimal("quantity", quantityStr)
	if err != nil {
		return nil, err
	}
	h.Quantity = quantity

	avg, err := parseDecimal("average_cost", avgStr)
	if err != nil {
		return nil, err
	}
	h.AverageCost = avg

	return &h, nil
}
