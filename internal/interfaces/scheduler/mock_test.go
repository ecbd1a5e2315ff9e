package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"trackify/internal/domain/notification"
	"trackify/internal/domain/recurring"
)

type MockEngine struct {
	today           time.Time
	ProcessDueFunc  func(ctx context.Context, userID int64, asOf time.Time) (*recurring.ProcessResult, error)
	GetUpcomingFunc func(ctx context.Context, userID int64, windowDays int) ([]*recurring.Template, error)
}

func (m *MockEngine) Today() time.Time {
	return m.today
}

func (m *MockEngine) ProcessDue(ctx context.Context, userID int64, asOf time.Time) (*recurring.ProcessResult, error) {
	if m.ProcessDueFunc != nil {
		return m.ProcessDueFunc(ctx, userID, asOf)
	}
	return &recurring.ProcessResult{}, nil
}

func (m *MockEngine) GetUpcoming(ctx context.Context, userID int64, windowDays int) ([]*recurring.Template, error) {
	if m.GetUpcomingFunc != nil {
		return m.GetUpcomingFunc(ctx, userID, windowDays)
	}
	return nil, nil
}

type MockUserLister struct {
	ListUserIDsDueFunc func(ctx context.Context, asOf time.Time) ([]int64, error)
}

func (m *MockUserLister) ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error) {
	if m.ListUserIDsDueFunc != nil {
		return m.ListUserIDsDueFunc(ctx, asOf)
	}
	return nil, nil
}

type MockNotifier struct {
	SendFunc func(ctx context.Context, msg notification.Message) (notification.Outcome, error)
	Sent     []notification.Message
}

func (m *MockNotifier) Send(ctx context.Context, msg notification.Message) (notification.Outcome, error) {
	m.Sent = append(m.Sent, msg)
	if m.SendFunc != nil {
		return m.SendFunc(ctx, msg)
	}
	return notification.OutcomePushed, nil
}

// funcJob is a Job backed by a function.
type funcJob struct {
	user string
	fn   func(ctx context.Context) error
}

func (j *funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }
func (j *funcJob) UserID() string                    { return j.user }
func (j *funcJob) Description() string               { return "test job for " + j.user }

// countingJob records how many times it ran and signals done after each run.
type countingJob struct {
	mu   sync.Mutex
	runs int
	done chan struct{}
}

func newCountingJob() *countingJob {
	return &countingJob{done: make(chan struct{}, 16)}
}

func (j *countingJob) Execute(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	j.done <- struct{}{}
	return nil
}

func (j *countingJob) UserID() string      { return "1" }
func (j *countingJob) Description() string { return "counting job" }

func (j *countingJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func day(s string) time.Time {
	d, err := recurring.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
