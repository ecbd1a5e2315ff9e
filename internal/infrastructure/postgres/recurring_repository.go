package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"trackify/internal/domain/recurring"
)

type RecurringRepository struct {
	db *DB
}

func NewRecurringRepository(db *DB) *RecurringRepository {
	return &RecurringRepository{db: db}
}

// templateSelect reads templates joined with their category name. The
// FROM clause is left to the caller so CTEs can alias their rows as rt.
const templateSelect = `
	SELECT rt.id, rt.user_id, rt.category_id, COALESCE(c.name, ''), rt.type, rt.amount,
	       rt.description, rt.frequency, rt.start_date, rt.end_date, rt.next_due_date,
	       rt.is_active, rt.created_at, rt.updated_at
`

const templateJoin = ` LEFT JOIN categories c ON c.id = rt.category_id `

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*recurring.Template, error) {
	var t recurring.Template
	var endDate sql.NullTime

	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName, &t.Type, &t.Amount,
		&t.Description, &t.Frequency, &t.StartDate, &endDate, &t.NextDueDate,
		&t.IsActive, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.StartDate = recurring.ToDate(t.StartDate)
	t.NextDueDate = recurring.ToDate(t.NextDueDate)
	if endDate.Valid {
		end := recurring.ToDate(endDate.Time)
		t.EndDate = &end
	}

	return &t, nil
}

func (r *RecurringRepository) queryTemplates(ctx context.Context, query string, args ...any) ([]*recurring.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recurring templates: %w", err)
	}
	defer rows.Close()

	var templates []*recurring.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recurring template: %w", err)
		}
		templates = append(templates, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recurring templates: %w", err)
	}

	return templates, nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return recurring.FormatDate(*t)
}

func (r *RecurringRepository) Create(ctx context.Context, params recurring.CreateParams) (*recurring.Template, error) {
	query := `
		WITH inserted AS (
			INSERT INTO recurring_templates
				(id, user_id, category_id, type, amount, description, frequency,
				 start_date, end_date, next_due_date, is_active)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8::date, $9::date, $10::date, true)
			RETURNING *
		)
	` + templateSelect + ` FROM inserted rt` + templateJoin

	t, err := scanTemplate(r.db.QueryRowContext(
		ctx, query,
		params.ID, params.UserID, params.CategoryID, string(params.Type), params.Amount,
		params.Description, string(params.Frequency),
		recurring.FormatDate(params.StartDate), dateArg(params.EndDate), recurring.FormatDate(params.NextDueDate),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring template: %w", err)
	}

	return t, nil
}

func (r *RecurringRepository) GetByID(ctx context.Context, id string) (*recurring.Template, error) {
	query := templateSelect + ` FROM recurring_templates rt` + templateJoin + ` WHERE rt.id = $1`

	t, err := scanTemplate(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}

	return t, nil
}

func (r *RecurringRepository) ListByUserID(ctx context.Context, userID int64, filters recurring.Filters) ([]*recurring.Template, error) {
	conditions := []string{"rt.user_id = $1"}
	args := []any{userID}
	argIndex := 2

	add := func(column string, value any) {
		conditions = append(conditions, column+" = $"+strconv.Itoa(argIndex))
		args = append(args, value)
		argIndex++
	}

	if filters.Type != nil {
		add("rt.type", string(*filters.Type))
	}
	if filters.CategoryID != nil {
		add("rt.category_id", *filters.CategoryID)
	}
	if filters.Frequency != nil {
		add("rt.frequency", string(*filters.Frequency))
	}
	if filters.IsActive != nil {
		add("rt.is_active", *filters.IsActive)
	}

	query := templateSelect + ` FROM recurring_templates rt` + templateJoin +
		` WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY rt.next_due_date ASC, rt.id ASC`

	return r.queryTemplates(ctx, query, args...)
}

func (r *RecurringRepository) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]*recurring.Template, error) {
	query := templateSelect + ` FROM recurring_templates rt` + templateJoin + `
		WHERE rt.user_id = $1 AND rt.is_active AND rt.next_due_date <= $2::date
		ORDER BY rt.next_due_date ASC, rt.id ASC
	`
	return r.queryTemplates(ctx, query, userID, recurring.FormatDate(asOf))
}

func (r *RecurringRepository) ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]*recurring.Template, error) {
	query := templateSelect + ` FROM recurring_templates rt` + templateJoin + `
		WHERE rt.user_id = $1 AND rt.is_active
		  AND rt.next_due_date BETWEEN $2::date AND $3::date
		ORDER BY rt.next_due_date ASC, rt.id ASC
	`
	return r.queryTemplates(ctx, query, userID, recurring.FormatDate(from), recurring.FormatDate(to))
}

func (r *RecurringRepository) ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT user_id
		FROM recurring_templates
		WHERE is_active AND next_due_date <= $1::date
		ORDER BY user_id
	`

	rows, err := r.db.QueryContext(ctx, query, recurring.FormatDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list users with due templates: %w", err)
	}
	defer rows.Close()

	var userIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		userIDs = append(userIDs, id)
	}

	return userIDs, rows.Err()
}

func (r *RecurringRepository) Update(ctx context.Context, id string, params recurring.UpdateParams) (*recurring.Template, error) {
	var templateType, frequency any
	if params.Type != nil {
		templateType = string(*params.Type)
	}
	if params.Frequency != nil {
		frequency = string(*params.Frequency)
	}

	query := `
		WITH updated AS (
			UPDATE recurring_templates
			SET category_id = COALESCE($1, category_id),
			    type = COALESCE($2, type),
			    amount = COALESCE($3, amount),
			    description = COALESCE($4, description),
			    frequency = COALESCE($5, frequency),
			    start_date = COALESCE($6::date, start_date),
			    end_date = CASE WHEN $7 THEN NULL ELSE COALESCE($8::date, end_date) END,
			    next_due_date = COALESCE($9::date, next_due_date),
			    is_active = COALESCE($10, is_active),
			    updated_at = CURRENT_TIMESTAMP
			WHERE id = $11
			RETURNING *
		)
	` + templateSelect + ` FROM updated rt` + templateJoin

	t, err := scanTemplate(r.db.QueryRowContext(
		ctx, query,
		params.CategoryID, templateType, params.Amount, params.Description, frequency,
		dateArg(params.StartDate), params.ClearEndDate, dateArg(params.EndDate),
		dateArg(params.NextDueDate), params.IsActive, id,
	))
	if err == sql.ErrNoRows {
		return nil, recurring.ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update recurring template: %w", err)
	}

	return t, nil
}

func (r *RecurringRepository) SetActive(ctx context.Context, id string, isActive bool) (*recurring.Template, error) {
	return r.Update(ctx, id, recurring.UpdateParams{IsActive: &isActive})
}

func (r *RecurringRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring template: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return recurring.ErrTemplateNotFound
	}

	return nil
}
