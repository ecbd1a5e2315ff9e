package recurring

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"trackify/internal/domain/transaction"
)

var (
	engineTracer          = otel.Tracer("trackify/recurring")
	engineMeter           = otel.Meter("trackify/recurring")
	materializeTotal, _   = engineMeter.Int64Counter("recurring.materialize.total", metric.WithDescription("Template materializations by status"))
	processDueDuration, _ = engineMeter.Float64Histogram("recurring.process_due.duration", metric.WithDescription("ProcessDue run duration in seconds"), metric.WithUnit("s"))
)

// Status summarizes a ProcessDue run.
type Status string

const (
	StatusNothingDue Status = "nothing_due"
	StatusProcessed  Status = "processed"
	StatusPartial    Status = "partial"
)

// ItemError is the failure recorded for a single template during ProcessDue.
type ItemError struct {
	TemplateID string
	Err        error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("template %s: %v", e.TemplateID, e.Err)
}

// ProcessResult is the outcome of a ProcessDue run.
type ProcessResult struct {
	Due       int
	Processed int
	Errors    []ItemError
}

// Status reports whether nothing was due, everything was processed, or some items failed.
func (r *ProcessResult) Status() Status {
	switch {
	case r.Due == 0:
		return StatusNothingDue
	case len(r.Errors) == 0:
		return StatusProcessed
	default:
		return StatusPartial
	}
}

// Engine detects due templates and materializes them into the ledger.
type Engine struct {
	repo   Repository
	ledger Ledger
	now    func() time.Time
}

// NewEngine creates a new schedule engine
func NewEngine(repo Repository, ledger Ledger) *Engine {
	return &Engine{
		repo:   repo,
		ledger: ledger,
		now:    time.Now,
	}
}

// WithClock replaces the engine's notion of "today". Used by tests and the CLI.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Today returns the engine's current calendar date.
func (e *Engine) Today() time.Time {
	return ToDate(e.now())
}

// GetDueTemplates returns the user's active templates with next_due_date <= asOf.
func (e *Engine) GetDueTemplates(ctx context.Context, userID int64, asOf time.Time) ([]*Template, error) {
	templates, err := e.repo.ListDue(ctx, userID, ToDate(asOf))
	if err != nil {
		return nil, fmt.Errorf("failed to list due templates: %w", err)
	}
	return templates, nil
}

// ProcessDue materializes every template due by asOf, one at a time.
// A failing item is recorded in the result and never stops the batch; only
// the due-list fetch can fail the whole call.
func (e *Engine) ProcessDue(ctx context.Context, userID int64, asOf time.Time) (*ProcessResult, error) {
	ctx, span := engineTracer.Start(ctx, "recurring.process_due")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("as_of", FormatDate(asOf)),
	)
	start := time.Now()

	due, err := e.GetDueTemplates(ctx, userID, asOf)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result := &ProcessResult{Due: len(due)}
	for _, t := range due {
		if err := e.materialize(ctx, t); err != nil {
			log.Printf("Recurring: user %d template %s failed: %v", userID, t.ID, err)
			result.Errors = append(result.Errors, ItemError{TemplateID: t.ID, Err: err})
			continue
		}
		result.Processed++
	}

	span.SetAttributes(
		attribute.Int("recurring.due", result.Due),
		attribute.Int("recurring.processed", result.Processed),
		attribute.Int("recurring.failed", len(result.Errors)),
	)
	processDueDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("status", string(result.Status()))))

	if result.Due > 0 {
		log.Printf("Recurring: user %d processed %d/%d due templates (%s)",
			userID, result.Processed, result.Due, result.Status())
	}

	return result, nil
}

// materialize writes one ledger entry for t and advances its schedule.
// The entry is dated at the template's pre-advance next_due_date. A failed
// ledger write leaves the schedule untouched so the occurrence is retried.
func (e *Engine) materialize(ctx context.Context, t *Template) error {
	ctx, span := engineTracer.Start(ctx, "recurring.materialize")
	defer span.End()
	span.SetAttributes(
		attribute.String("template.id", t.ID),
		attribute.String("template.frequency", string(t.Frequency)),
		attribute.String("template.next_due_date", FormatDate(t.NextDueDate)),
	)

	fail := func(status string, err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		materializeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
		return err
	}

	occurrence := ToDate(t.NextDueDate)

	// Computed before the ledger write so a bad frequency never produces an entry.
	nextDate, err := NextOccurrence(occurrence, t.Frequency)
	if err != nil {
		return fail("invalid_frequency", err)
	}
	shouldContinue := t.EndDate == nil || !nextDate.After(ToDate(*t.EndDate))

	templateID := t.ID
	_, err = e.ledger.Create(ctx, transaction.CreateTransactionParams{
		UserID:              t.UserID,
		CategoryID:          t.CategoryID,
		Type:                string(t.Type),
		Amount:              t.Amount,
		Description:         t.Label(),
		TransactionDate:     occurrence,
		RecurringTemplateID: &templateID,
	})
	if err != nil {
		return fail("ledger_failed", fmt.Errorf("%w: %w", ErrLedgerInsertFailed, err))
	}

	_, err = e.repo.Update(ctx, t.ID, UpdateParams{
		NextDueDate: &nextDate,
		IsActive:    &shouldContinue,
	})
	if err != nil {
		return fail("update_failed", fmt.Errorf("%w: %w", ErrTemplateUpdateFailed, err))
	}

	t.NextDueDate = nextDate
	t.IsActive = shouldContinue
	status := "advanced"
	if !shouldContinue {
		status = "ended"
	}
	span.SetAttributes(attribute.String("template.new_next_due_date", FormatDate(nextDate)))
	materializeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	return nil
}

// GetUpcoming returns active templates due within [today, today+windowDays].
func (e *Engine) GetUpcoming(ctx context.Context, userID int64, windowDays int) ([]*Template, error) {
	if windowDays < 0 {
		return nil, fmt.Errorf("%w: window must not be negative", ErrInvalidInput)
	}
	today := e.Today()
	templates, err := e.repo.ListUpcoming(ctx, userID, today, today.AddDate(0, 0, windowDays))
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming templates: %w", err)
	}
	return templates, nil
}

// EstimateMonthlyTotals sums the monthly equivalent of every active template by type.
func (e *Engine) EstimateMonthlyTotals(ctx context.Context, userID int64) (MonthlyTotals, error) {
	active := true
	templates, err := e.repo.ListByUserID(ctx, userID, Filters{IsActive: &active})
	if err != nil {
		return MonthlyTotals{}, fmt.Errorf("failed to list active templates: %w", err)
	}
	return SumMonthly(templates)
}

// SumMonthly adds up the monthly equivalents of the active templates given.
func SumMonthly(templates []*Template) (MonthlyTotals, error) {
	var totals MonthlyTotals
	for _, t := range templates {
		if !t.IsActive {
			continue
		}
		monthly, err := MonthlyEquivalent(t.Amount, t.Frequency)
		if err != nil {
			return MonthlyTotals{}, fmt.Errorf("template %s: %w", t.ID, err)
		}
		switch t.Type {
		case TypeIncome:
			totals.Income = totals.Income.Add(monthly)
		case TypeExpense:
			totals.Expense = totals.Expense.Add(monthly)
		}
	}
	return totals, nil
}
