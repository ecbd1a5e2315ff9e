package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"trackify/internal/domain/notification"
	"trackify/internal/domain/recurring"
)

const (
	TaskProcessDue       = "process-due"
	TaskUpcomingReminder = "upcoming-reminder"
)

// DueProcessor is the part of recurring.Engine the processing job needs.
type DueProcessor interface {
	Today() time.Time
	ProcessDue(ctx context.Context, userID int64, asOf time.Time) (*recurring.ProcessResult, error)
}

// UpcomingLister is the part of recurring.Engine the reminder job needs.
type UpcomingLister interface {
	Today() time.Time
	GetUpcoming(ctx context.Context, userID int64, windowDays int) ([]*recurring.Template, error)
}

// DueUserLister enumerates users owning due templates.
type DueUserLister interface {
	ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error)
}

// Notifier delivers a message to one user. Implemented by notification.Service.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message) (notification.Outcome, error)
}

// ProcessDueJob materializes one user's due templates as of a fixed date.
type ProcessDueJob struct {
	userID int64
	asOf   time.Time
	engine DueProcessor
}

func NewProcessDueJob(userID int64, asOf time.Time, engine DueProcessor) *ProcessDueJob {
	return &ProcessDueJob{userID: userID, asOf: recurring.ToDate(asOf), engine: engine}
}

// Execute fails when any template failed so the pool records the run as an
// error. The templates that did succeed stay advanced.
func (j *ProcessDueJob) Execute(ctx context.Context) error {
	result, err := j.engine.ProcessDue(ctx, j.userID, j.asOf)
	if err != nil {
		return fmt.Errorf("process due failed: %w", err)
	}

	if len(result.Errors) > 0 {
		return fmt.Errorf("%d of %d due templates failed", len(result.Errors), result.Due)
	}
	return nil
}

func (j *ProcessDueJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *ProcessDueJob) Description() string {
	return fmt.Sprintf("Process due templates for user %d as of %s", j.userID, recurring.FormatDate(j.asOf))
}

// ProcessDueProvider returns one ProcessDueJob per user with something due
// today. All jobs of a run share the same as-of date.
func ProcessDueProvider(users DueUserLister, engine DueProcessor) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		today := engine.Today()
		userIDs, err := users.ListUserIDsDue(ctx, today)
		if err != nil {
			return nil, fmt.Errorf("failed to list users with due templates: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, userID := range userIDs {
			jobs = append(jobs, NewProcessDueJob(userID, today, engine))
		}
		return jobs, nil
	}
}

// UpcomingReminderJob pushes a summary of the user's charges due within the window.
type UpcomingReminderJob struct {
	userID     int64
	windowDays int
	engine     UpcomingLister
	notifier   Notifier
}

func NewUpcomingReminderJob(userID int64, windowDays int, engine UpcomingLister, notifier Notifier) *UpcomingReminderJob {
	return &UpcomingReminderJob{userID: userID, windowDays: windowDays, engine: engine, notifier: notifier}
}

func (j *UpcomingReminderJob) Execute(ctx context.Context) error {
	templates, err := j.engine.GetUpcoming(ctx, j.userID, j.windowDays)
	if err != nil {
		return fmt.Errorf("failed to get upcoming templates: %w", err)
	}
	if len(templates) == 0 {
		return nil
	}

	next := templates[0]
	nextDue := recurring.FormatDate(next.NextDueDate)
	title, body := reminderText(templates, j.windowDays)

	outcome, err := j.notifier.Send(ctx, notification.Message{
		UserID:   j.userID,
		Title:    title,
		Body:     body,
		Category: notification.CategoryRecurring,
		Data: map[string]string{
			"count":            strconv.Itoa(len(templates)),
			"next_template_id": next.ID,
			"next_due_date":    nextDue,
		},
		DedupeKey: reminderKey(next.ID, nextDue),
	})
	if err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	log.Printf("Reminder for user %d (%d upcoming templates): %s", j.userID, len(templates), outcome)
	return nil
}

// reminderKey identifies a reminder by its soonest occurrence, so daily runs
// inside the window push once until that occurrence is materialized.
func reminderKey(templateID, dueDate string) string {
	return "upcoming:" + templateID + ":" + dueDate
}

func (j *UpcomingReminderJob) UserID() string {
	return strconv.FormatInt(j.userID, 10)
}

func (j *UpcomingReminderJob) Description() string {
	return fmt.Sprintf("Upcoming reminder for user %d (%d days)", j.userID, j.windowDays)
}

// templates arrive ordered by next_due_date, so the first is the soonest.
func reminderText(templates []*recurring.Template, windowDays int) (string, string) {
	next := templates[0]
	if len(templates) == 1 {
		return "Upcoming recurring transaction",
			fmt.Sprintf("%s of %s is due on %s", next.Label(), next.Amount.StringFixed(2), recurring.FormatDate(next.NextDueDate))
	}
	return "Upcoming recurring transactions",
		fmt.Sprintf("%d recurring transactions are due in the next %d days. Next: %s on %s",
			len(templates), windowDays, next.Label(), recurring.FormatDate(next.NextDueDate))
}

// UpcomingReminderProvider returns one reminder job per user with a template
// due by the end of the window. Users whose templates all turn out to be
// overdue get no push.
func UpcomingReminderProvider(users DueUserLister, engine UpcomingLister, notifier Notifier, windowDays int) JobProvider {
	return func(ctx context.Context) ([]Job, error) {
		horizon := engine.Today().AddDate(0, 0, windowDays)
		userIDs, err := users.ListUserIDsDue(ctx, horizon)
		if err != nil {
			return nil, fmt.Errorf("failed to list users with upcoming templates: %w", err)
		}

		jobs := make([]Job, 0, len(userIDs))
		for _, userID := range userIDs {
			jobs = append(jobs, NewUpcomingReminderJob(userID, windowDays, engine, notifier))
		}
		return jobs, nil
	}
}

// TriggerUser returns a callback that queues an immediate ProcessDueJob for
// one user. The template listener uses it when a change makes a template due.
func TriggerUser(s *Scheduler, engine DueProcessor) func(ctx context.Context, userID int64) {
	return func(ctx context.Context, userID int64) {
		if err := s.Submit(NewProcessDueJob(userID, engine.Today(), engine)); err != nil {
			log.Printf("Scheduler: failed to queue immediate run for user %d: %v", userID, err)
		}
	}
}
