package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trackify/internal/domain/recurring"
	"trackify/internal/domain/transaction"
)

// TransactionRepository implements the ledger on sqlite.
type TransactionRepository struct {
	conn *sql.DB
}

const transactionSelect = `
	SELECT id, user_id, category_id, type, amount, description, transaction_date, recurring_template_id, created_at
	FROM transactions
`

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var (
		t                transaction.Transaction
		amount, date, at string
		templateID       sql.NullString
	)

	if err := row.Scan(&t.ID, &t.UserID, &t.CategoryID, &t.Type, &amount, &t.Description, &date, &templateID, &at); err != nil {
		return nil, err
	}

	var err error
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s: invalid amount %q: %w", t.ID, amount, err)
	}
	if t.TransactionDate, err = recurring.ParseDate(date); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
	}
	if templateID.Valid {
		t.RecurringTemplateID = &templateID.String
	}
	t.CreatedAt = parseTimestamp(at)

	return &t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO transactions
			(id, user_id, category_id, type, amount, description, transaction_date, recurring_template_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, params.UserID, params.CategoryID, params.Type, params.Amount.String(), params.Description,
		recurring.FormatDate(params.TransactionDate), params.RecurringTemplateID, timestamp(time.Now()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	t, err := scanTransaction(r.conn.QueryRowContext(ctx, transactionSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*transaction.Transaction, error) {
	rows, err := r.conn.QueryContext(ctx, transactionSelect+`
		WHERE user_id = ?
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	return transactions, rows.Err()
}
