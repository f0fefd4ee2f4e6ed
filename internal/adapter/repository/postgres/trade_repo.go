package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/yanun0323/errors"

	"github.com/simaogato/papertrade-backend/internal/domain"
)

// tradeRepository implements domain.TradeRepository
type tradeRepository struct {
	db *DB
}

// NewTradeRepository creates a new trade repository
func NewTradeRepository(db *DB) domain.TradeRepository {
	return &tradeRepository{db: db}
}

// ListByAccount returns trades newest first
func (r *tradeRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Trade, error) {
	query := `
		SELECT id, account_id, symbol, market, side,
			quantity::text, price::text, fee::text, total_cost::text, executed_at
		FROM trades
		WHERE account_id = $1
		ORDER BY executed_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, "list trades")
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var market, side string
		var quantityStr, priceStr, feeStr, totalStr string

		if err := rows.Scan(
			&t.ID,
			&t.AccountID,
			&t.Symbol,
			&market,
			&side,
			&quantityStr,
			&priceStr,
			&feeStr,
			&totalStr,
			&t.ExecutedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		t.Market = domain.MarketType(market)
		t.Side = domain.Side(side)

		if t.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
			return nil, err
		}
		if t.Price, err = parseDecimal("price", priceStr); err != nil {
			return nil, err
		}
		if t.Fee, err = parseDecimal("fee", feeStr); err != nil {
			return nil, err
		}
		if t.TotalCost, err = parseDecimal("total_cost", totalStr); err != nil {
			return nil, err
		}

		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate trades")
	}

	return trades, nil
}

// CountByAccount returns the number of trades of an account
func (r *tradeRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades WHERE account_id = $1`, accountID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "count trades")
	}
	return count, nil
}

func insertTrade(ctx context.Context, q queryer, t *domain.Trade) error {
	query := `
		INSERT INTO trades (id, account_id, symbol, market, side, quantity, price, fee, total_cost, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.ExecContext(ctx, query,
		t.ID,
		t.AccountID,
		t.Symbol,
		string(t.Market),
		string(t.Side),
		t.Quantity.String(),
		t.Price.String(),
		t.Fee.String(),
		t.TotalCost.String(),
		t.ExecutedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert trade")
	}
	return nil
}
