package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Account represents a simulated trading account
// CashBalance is only mutated by trade execution (and the administrative reset)
type Account struct {
	ID          uuid.UUID
	APIKey      string
	CashBalance decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if a.APIKey == "" {
		return errors.New("account api key cannot be empty")
	}
	if a.CashBalance.IsNegative() {
		return errors.New("account balance must not be negative")
	}
	return nil
}
