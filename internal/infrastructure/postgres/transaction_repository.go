package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"trackify/internal/domain/recurring"
	"trackify/internal/domain/transaction"
)

// TransactionRepository is the ledger the schedule engine writes to.
type TransactionRepository struct {
	db *DB
}

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `id, user_id, category_id, type, amount, description, transaction_date, recurring_template_id, created_at`

func scanTransaction(row rowScanner) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var templateID sql.NullString

	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.Type, &t.Amount, &t.Description,
		&t.TransactionDate, &templateID, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.TransactionDate = recurring.ToDate(t.TransactionDate)
	if templateID.Valid {
		t.RecurringTemplateID = &templateID.String
	}

	return &t, nil
}

func (r *TransactionRepository) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO transactions
			(id, user_id, category_id, type, amount, description, transaction_date, recurring_template_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8)
		RETURNING ` + transactionColumns

	t, err := scanTransaction(r.db.QueryRowContext(
		ctx, query,
		uuid.NewString(), params.UserID, params.CategoryID, params.Type, params.Amount,
		params.Description, recurring.FormatDate(params.TransactionDate), params.RecurringTemplateID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	return t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

func (r *TransactionRepository) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
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

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}
