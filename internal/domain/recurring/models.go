package recurring

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the monetary direction of a template.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// IsValid reports whether t is income or expense.
func (t TransactionType) IsValid() bool {
	return t == TypeIncome || t == TypeExpense
}

// Domain errors
var (
	ErrTemplateNotFound     = errors.New("recurring template not found")
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidFrequency     = errors.New("invalid frequency")
	ErrLedgerInsertFailed   = errors.New("ledger insert failed")
	ErrTemplateUpdateFailed = errors.New("template update failed")
)

const maxDescriptionLength = 255

// Template is a rule that produces a ledger transaction on a repeating schedule.
// NextDueDate is the single pointer to the next occurrence; it only moves
// forward except when the schedule itself is edited.
type Template struct {
	ID           string          `json:"id"`
	UserID       int64           `json:"-"`
	CategoryID   string          `json:"categoryId"`
	CategoryName string          `json:"categoryName,omitempty"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Frequency    Frequency       `json:"frequency"`
	StartDate    time.Time       `json:"startDate"`
	EndDate      *time.Time      `json:"endDate,omitempty"`
	NextDueDate  time.Time       `json:"nextDueDate"`
	IsActive     bool            `json:"isActive"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// IsDue reports whether the template should be materialized for asOf.
func (t *Template) IsDue(asOf time.Time) bool {
	return t.IsActive && !t.NextDueDate.After(ToDate(asOf))
}

// Ended reports whether the schedule has run past its end date.
func (t *Template) Ended() bool {
	return t.EndDate != nil && t.NextDueDate.After(*t.EndDate)
}

// Label returns the description used for materialized transactions.
func (t *Template) Label() string {
	if t.Description != "" {
		return t.Description
	}
	if t.CategoryName != "" {
		return "Recurring: " + t.CategoryName
	}
	return "Recurring transaction"
}

// CreateParams contains parameters for creating a template.
// ID and NextDueDate are filled in by the Service before reaching the repository.
type CreateParams struct {
	ID          string
	UserID      int64
	CategoryID  string
	Type        TransactionType
	Amount      decimal.Decimal
	Description string
	Frequency   Frequency
	StartDate   time.Time
	EndDate     *time.Time
	NextDueDate time.Time
}

// Validate validates the create parameters
func (p CreateParams) Validate() error {
	if p.UserID <= 0 {
		return fmt.Errorf("%w: valid user ID is required", ErrInvalidInput)
	}
	if p.CategoryID == "" {
		return fmt.Errorf("%w: category ID is required", ErrInvalidInput)
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: type must be 'income' or 'expense'", ErrInvalidInput)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if len(p.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description must be 255 characters or less", ErrInvalidInput)
	}
	if !p.Frequency.IsValid() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidFrequency)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", ErrInvalidInput)
	}
	if p.EndDate != nil && ToDate(*p.EndDate).Before(ToDate(p.StartDate)) {
		return fmt.Errorf("%w: end date must not be before start date", ErrInvalidInput)
	}
	return nil
}

// UpdateParams contains the fields to change on a template. Nil fields are left untouched.
// ClearEndDate removes the end date and wins over EndDate.
type UpdateParams struct {
	CategoryID   *string
	Type         *TransactionType
	Amount       *decimal.Decimal
	Description  *string
	Frequency    *Frequency
	StartDate    *time.Time
	EndDate      *time.Time
	ClearEndDate bool
	NextDueDate  *time.Time
	IsActive     *bool
}

// Validate validates the update parameters
func (p UpdateParams) Validate() error {
	if p.CategoryID != nil && *p.CategoryID == "" {
		return fmt.Errorf("%w: category ID must not be empty", ErrInvalidInput)
	}
	if p.Type != nil && !p.Type.IsValid() {
		return fmt.Errorf("%w: type must be 'income' or 'expense'", ErrInvalidInput)
	}
	if p.Amount != nil && !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	if p.Description != nil && len(*p.Description) > maxDescriptionLength {
		return fmt.Errorf("%w: description must be 255 characters or less", ErrInvalidInput)
	}
	if p.Frequency != nil && !p.Frequency.IsValid() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidFrequency)
	}
	return nil
}

// ChangesSchedule reports whether the update touches start date or frequency,
// which forces a next-due-date recompute.
func (p UpdateParams) ChangesSchedule() bool {
	return p.StartDate != nil || p.Frequency != nil
}

// Filters narrows ListByUserID. A nil field places no constraint on the result.
type Filters struct {
	// Type keeps only income or only expense templates.
	Type *TransactionType
	// CategoryID keeps templates of one category.
	CategoryID *string
	// Frequency keeps templates with that frequency.
	Frequency *Frequency
	// IsActive keeps only active (true) or only paused/ended (false) templates.
	IsActive *bool
}

// Matches applies the filters to a single template.
func (f Filters) Matches(t *Template) bool {
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.CategoryID != nil && t.CategoryID != *f.CategoryID {
		return false
	}
	if f.Frequency != nil && t.Frequency != *f.Frequency {
		return false
	}
	if f.IsActive != nil && t.IsActive != *f.IsActive {
		return false
	}
	return true
}

// MonthlyTotals is the monthly-equivalent sum of active templates by type.
type MonthlyTotals struct {
	Income  decimal.Decimal `json:"monthlyIncome"`
	Expense decimal.Decimal `json:"monthlyExpense"`
}

// Net returns income minus expense.
func (m MonthlyTotals) Net() decimal.Decimal {
	return m.Income.Sub(m.Expense)
}

// Statistics summarizes a user's templates.
type Statistics struct {
	Total    int           `json:"total"`
	Active   int           `json:"active"`
	Inactive int           `json:"inactive"`
	Totals   MonthlyTotals `json:"totals"`
}
