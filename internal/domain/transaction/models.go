package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types, matching the recurring template types
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidInput        = errors.New("invalid transaction input")
)

// Transaction is a ledger entry. Entries produced from a recurring template
// carry its id in RecurringTemplateID; they are independent records and
// survive the template's deletion.
type Transaction struct {
	ID                  string          `json:"id"`
	UserID              int64           `json:"-"`
	CategoryID          string          `json:"categoryId"`
	Type                string          `json:"type"`
	Amount              decimal.Decimal `json:"amount"`
	Description         string          `json:"description"`
	TransactionDate     time.Time       `json:"transactionDate"`
	RecurringTemplateID *string         `json:"recurringTemplateId,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
}

type CreateTransactionParams struct {
	UserID              int64
	CategoryID          string
	Type                string
	Amount              decimal.Decimal
	Description         string
	TransactionDate     time.Time
	RecurringTemplateID *string
}

// Validate validates the create parameters
func (p CreateTransactionParams) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: valid user ID is required", ErrInvalidInput)
	}
	if p.CategoryID == "" {
		return fmt.Errorf("%w: category ID is required", ErrInvalidInput)
	}
	if p.Type != TypeIncome && p.Type != TypeExpense {
		return fmt.Errorf("%w: type must be 'income' or 'expense'", ErrInvalidInput)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if p.TransactionDate.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrInvalidInput)
	}
	return nil
}
