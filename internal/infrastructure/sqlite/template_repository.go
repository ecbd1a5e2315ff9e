package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/domain/recurring"
)

// TemplateRepository implements recurring.Repository on sqlite.
type TemplateRepository struct {
	conn *sql.DB
}

const templateSelect = `
	SELECT rt.id, rt.user_id, rt.category_id, COALESCE(c.name, ''), rt.type, rt.amount,
	       rt.description, rt.frequency, rt.start_date, rt.end_date, rt.next_due_date,
	       rt.is_active, rt.created_at, rt.updated_at
	FROM recurring_templates rt
	LEFT JOIN categories c ON c.id = rt.category_id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*recurring.Template, error) {
	var (
		t                      recurring.Template
		amount                 string
		startDate, nextDueDate string
		endDate                sql.NullString
		createdAt, updatedAt   string
	)

	err := row.Scan(
		&t.ID, &t.UserID, &t.CategoryID, &t.CategoryName, &t.Type, &amount,
		&t.Description, &t.Frequency, &startDate, &endDate, &nextDueDate,
		&t.IsActive, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("template %s: invalid amount %q: %w", t.ID, amount, err)
	}
	if t.StartDate, err = recurring.ParseDate(startDate); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if t.NextDueDate, err = recurring.ParseDate(nextDueDate); err != nil {
		return nil, fmt.Errorf("template %s: %w", t.ID, err)
	}
	if endDate.Valid {
		end, err := recurring.ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", t.ID, err)
		}
		t.EndDate = &end
	}
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)

	return &t, nil
}

func (r *TemplateRepository) query(ctx context.Context, query string, args ...any) ([]*recurring.Template, error) {
	rows, err := r.conn.QueryContext(ctx, query, args...)
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

	return templates, rows.Err()
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return recurring.FormatDate(*t)
}

func (r *TemplateRepository) Create(ctx context.Context, params recurring.CreateParams) (*recurring.Template, error) {
	now := timestamp(time.Now())

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO recurring_templates
			(id, user_id, category_id, type, amount, description, frequency,
			 start_date, end_date, next_due_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`,
		params.ID, params.UserID, params.CategoryID, string(params.Type), params.Amount.String(),
		params.Description, string(params.Frequency),
		recurring.FormatDate(params.StartDate), dateArg(params.EndDate), recurring.FormatDate(params.NextDueDate),
		now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring template: %w", err)
	}

	return r.GetByID(ctx, params.ID)
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*recurring.Template, error) {
	t, err := scanTemplate(r.conn.QueryRowContext(ctx, templateSelect+` WHERE rt.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}
	return t, nil
}

func (r *TemplateRepository) ListByUserID(ctx context.Context, userID int64, filters recurring.Filters) ([]*recurring.Template, error) {
	conditions := []string{"rt.user_id = ?"}
	args := []any{userID}

	if filters.Type != nil {
		conditions = append(conditions, "rt.type = ?")
		args = append(args, string(*filters.Type))
	}
	if filters.CategoryID != nil {
		conditions = append(conditions, "rt.category_id = ?")
		args = append(args, *filters.CategoryID)
	}
	if filters.Frequency != nil {
		conditions = append(conditions, "rt.frequency = ?")
		args = append(args, string(*filters.Frequency))
	}
	if filters.IsActive != nil {
		conditions = append(conditions, "rt.is_active = ?")
		args = append(args, *filters.IsActive)
	}

	query := templateSelect + ` WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY rt.next_due_date, rt.id`
	return r.query(ctx, query, args...)
}

func (r *TemplateRepository) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]*recurring.Template, error) {
	return r.query(ctx, templateSelect+`
		WHERE rt.user_id = ? AND rt.is_active = 1 AND rt.next_due_date <= ?
		ORDER BY rt.next_due_date, rt.id
	`, userID, recurring.FormatDate(asOf))
}

func (r *TemplateRepository) ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]*recurring.Template, error) {
	return r.query(ctx, templateSelect+`
		WHERE rt.user_id = ? AND rt.is_active = 1 AND rt.next_due_date BETWEEN ? AND ?
		ORDER BY rt.next_due_date, rt.id
	`, userID, recurring.FormatDate(from), recurring.FormatDate(to))
}

func (r *TemplateRepository) ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM recurring_templates
		WHERE is_active = 1 AND next_due_date <= ?
		ORDER BY user_id
	`, recurring.FormatDate(asOf))
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

func (r *TemplateRepository) Update(ctx context.Context, id string, params recurring.UpdateParams) (*recurring.Template, error) {
	var templateType, frequency, amount any
	if params.Type != nil {
		templateType = string(*params.Type)
	}
	if params.Frequency != nil {
		frequency = string(*params.Frequency)
	}
	if params.Amount != nil {
		amount = params.Amount.String()
	}

	result, err := r.conn.ExecContext(ctx, `
		UPDATE recurring_templates
		SET category_id = COALESCE(?, category_id),
		    type = COALESCE(?, type),
		    amount = COALESCE(?, amount),
		    description = COALESCE(?, description),
		    frequency = COALESCE(?, frequency),
		    start_date = COALESCE(?, start_date),
		    end_date = CASE WHEN ? THEN NULL ELSE COALESCE(?, end_date) END,
		    next_due_date = COALESCE(?, next_due_date),
		    is_active = COALESCE(?, is_active),
		    updated_at = ?
		WHERE id = ?
	`,
		params.CategoryID, templateType, amount, params.Description, frequency,
		dateArg(params.StartDate), params.ClearEndDate, dateArg(params.EndDate),
		dateArg(params.NextDueDate), params.IsActive, timestamp(time.Now()), id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update recurring template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, recurring.ErrTemplateNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *TemplateRepository) SetActive(ctx context.Context, id string, isActive bool) (*recurring.Template, error) {
	return r.Update(ctx, id, recurring.UpdateParams{IsActive: &isActive})
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	result, err := r.conn.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recurring template: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return recurring.ErrTemplateNotFound
	}

	return nil
}
