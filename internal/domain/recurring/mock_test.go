package recurring

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"trackify/internal/domain/transaction"
)

// memRepo is an in-memory Repository for engine and service tests.
// UpdateFunc, when set, replaces Update so tests can inject failures.
type memRepo struct {
	mu        sync.Mutex
	templates map[string]*Template

	ListDueFunc func(ctx context.Context, userID int64, asOf time.Time) ([]*Template, error)
	UpdateFunc  func(ctx context.Context, id string, params UpdateParams) (*Template, error)
}

func newMemRepo(templates ...*Template) *memRepo {
	r := &memRepo{templates: map[string]*Template{}}
	for _, t := range templates {
		r.templates[t.ID] = t
	}
	return r
}

func (r *memRepo) get(id string) *Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := *r.templates[id]
	return &t
}

func (r *memRepo) Create(ctx context.Context, params CreateParams) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := &Template{
		ID:          params.ID,
		UserID:      params.UserID,
		CategoryID:  params.CategoryID,
		Type:        params.Type,
		Amount:      params.Amount,
		Description: params.Description,
		Frequency:   params.Frequency,
		StartDate:   params.StartDate,
		EndDate:     params.EndDate,
		NextDueDate: params.NextDueDate,
		IsActive:    true,
	}
	r.templates[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (r *memRepo) list(keep func(*Template) bool) []*Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Template
	for _, t := range r.templates {
		if keep(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *memRepo) ListByUserID(ctx context.Context, userID int64, filters Filters) ([]*Template, error) {
	return r.list(func(t *Template) bool { return t.UserID == userID && filters.Matches(t) }), nil
}

func (r *memRepo) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]*Template, error) {
	if r.ListDueFunc != nil {
		return r.ListDueFunc(ctx, userID, asOf)
	}
	return r.list(func(t *Template) bool { return t.UserID == userID && t.IsDue(asOf) }), nil
}

func (r *memRepo) ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]*Template, error) {
	return r.list(func(t *Template) bool {
		return t.UserID == userID && t.IsActive && !t.NextDueDate.Before(from) && !t.NextDueDate.After(to)
	}), nil
}

func (r *memRepo) ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, t := range r.list(func(t *Template) bool { return t.IsDue(asOf) }) {
		if !seen[t.UserID] {
			seen[t.UserID] = true
			ids = append(ids, t.UserID)
		}
	}
	return ids, nil
}

func (r *memRepo) Update(ctx context.Context, id string, params UpdateParams) (*Template, error) {
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, id, params)
	}
	return r.apply(id, params), nil
}

func (r *memRepo) apply(id string, params UpdateParams) *Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[id]
	if !ok {
		return nil
	}
	if params.CategoryID != nil {
		t.CategoryID = *params.CategoryID
	}
	if params.Type != nil {
		t.Type = *params.Type
	}
	if params.Amount != nil {
		t.Amount = *params.Amount
	}
	if params.Description != nil {
		t.Description = *params.Description
	}
	if params.Frequency != nil {
		t.Frequency = *params.Frequency
	}
	if params.StartDate != nil {
		t.StartDate = *params.StartDate
	}
	if params.EndDate != nil {
		t.EndDate = params.EndDate
	}
	if params.ClearEndDate {
		t.EndDate = nil
	}
	if params.NextDueDate != nil {
		t.NextDueDate = *params.NextDueDate
	}
	if params.IsActive != nil {
		t.IsActive = *params.IsActive
	}
	cp := *t
	return &cp
}

func (r *memRepo) SetActive(ctx context.Context, id string, isActive bool) (*Template, error) {
	return r.apply(id, UpdateParams{IsActive: &isActive}), nil
}

func (r *memRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[id]; !ok {
		return ErrTemplateNotFound
	}
	delete(r.templates, id)
	return nil
}

// MockLedger records created transactions. CreateFunc, when set, decides the outcome.
type MockLedger struct {
	CreateFunc func(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error)
	Created    []transaction.CreateTransactionParams
}

func (m *MockLedger) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	if m.CreateFunc != nil {
		if _, err := m.CreateFunc(ctx, params); err != nil {
			return nil, err
		}
	}
	m.Created = append(m.Created, params)
	return &transaction.Transaction{
		UserID:              params.UserID,
		CategoryID:          params.CategoryID,
		Type:                params.Type,
		Amount:              params.Amount,
		Description:         params.Description,
		TransactionDate:     params.TransactionDate,
		RecurringTemplateID: params.RecurringTemplateID,
	}, nil
}

var errStore = errors.New("store unavailable")

func date(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func datePtr(s string) *time.Time {
	t := date(s)
	return &t
}

func newTemplate(id string, f Frequency, nextDue string) *Template {
	return &Template{
		ID:           id,
		UserID:       1,
		CategoryID:   "cat-rent",
		CategoryName: "Rent",
		Type:         TypeExpense,
		Amount:       decimal.RequireFromString("1200.00"),
		Frequency:    f,
		StartDate:    date(nextDue),
		NextDueDate:  date(nextDue),
		IsActive:     true,
	}
}
