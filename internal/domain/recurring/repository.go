package recurring

import (
	"context"
	"time"

	"trackify/internal/domain/transaction"
)

// Repository defines the interface for recurring template data access.
// Dates passed in and returned are calendar dates (see ToDate).
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*Template, error)
	// GetByID returns nil, nil when no template has the id.
	GetByID(ctx context.Context, id string) (*Template, error)
	ListByUserID(ctx context.Context, userID int64, filters Filters) ([]*Template, error)
	// ListDue returns active templates with next_due_date <= asOf, oldest first.
	ListDue(ctx context.Context, userID int64, asOf time.Time) ([]*Template, error)
	// ListUpcoming returns active templates with from <= next_due_date <= to.
	ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]*Template, error)
	// ListUserIDsDue returns the users owning at least one active template due by asOf.
	ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error)
	Update(ctx context.Context, id string, params UpdateParams) (*Template, error)
	SetActive(ctx context.Context, id string, isActive bool) (*Template, error)
	Delete(ctx context.Context, id string) error
}

// Ledger is the transaction collaborator the engine writes materialized entries to.
type Ledger interface {
	Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error)
}
