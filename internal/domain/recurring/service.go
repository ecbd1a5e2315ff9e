package recurring

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service handles single-template operations. Every method checks that the
// template belongs to userID; a template owned by someone else is reported as
// ErrTemplateNotFound.
type Service struct {
	repo Repository
}

// NewService creates a new recurring template service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates params and stores a new active template whose first
// occurrence is its start date.
func (s *Service) Create(ctx context.Context, userID int64, params CreateParams) (*Template, error) {
	params.UserID = userID
	if err := params.Validate(); err != nil {
		return nil, err
	}

	params.ID = uuid.NewString()
	params.StartDate = ToDate(params.StartDate)
	params.NextDueDate = params.StartDate
	if params.EndDate != nil {
		end := ToDate(*params.EndDate)
		params.EndDate = &end
	}

	template, err := s.repo.Create(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to create recurring template: %w", err)
	}
	return template, nil
}

// Get returns a template by ID, verifying ownership
func (s *Service) Get(ctx context.Context, userID int64, id string) (*Template, error) {
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get recurring template: %w", err)
	}
	if template == nil || template.UserID != userID {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// List returns the user's templates narrowed by filters.
func (s *Service) List(ctx context.Context, userID int64, filters Filters) ([]*Template, error) {
	templates, err := s.repo.ListByUserID(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}
	return templates, nil
}

// Update applies a partial edit. Editing the start date resets the schedule to
// the new start; editing only the frequency re-steps from the start date to the
// first occurrence on or after the current next_due_date. A recomputed date
// past the end date ends the template, and so does moving the end date before
// the current next_due_date.
func (s *Service) Update(ctx context.Context, userID int64, id string, params UpdateParams) (*Template, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	// Schedule pointers are owned by the engine and the recompute below.
	params.NextDueDate = nil
	params.IsActive = nil

	start := current.StartDate
	if params.StartDate != nil {
		start = ToDate(*params.StartDate)
		params.StartDate = &start
	}
	end := current.EndDate
	if params.EndDate != nil {
		e := ToDate(*params.EndDate)
		params.EndDate = &e
		end = &e
	}
	if params.ClearEndDate {
		params.EndDate = nil
		end = nil
	}
	if end != nil && end.Before(start) {
		return nil, fmt.Errorf("%w: end date must not be before start date", ErrInvalidInput)
	}

	if params.ChangesSchedule() {
		frequency := current.Frequency
		if params.Frequency != nil {
			frequency = *params.Frequency
		}

		next := start
		if params.StartDate == nil {
			next, err = FirstOnOrAfter(start, frequency, current.NextDueDate)
			if err != nil {
				return nil, err
			}
		}
		params.NextDueDate = &next
	}

	next := current.NextDueDate
	if params.NextDueDate != nil {
		next = *params.NextDueDate
	}
	if end != nil && next.After(*end) {
		inactive := false
		params.IsActive = &inactive
	}

	template, err := s.repo.Update(ctx, id, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update recurring template: %w", err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// SetActive pauses or resumes a template. A template whose next occurrence
// lies past its end date has ended and cannot be resumed.
func (s *Service) SetActive(ctx context.Context, userID int64, id string, isActive bool) (*Template, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if isActive && current.Ended() {
		return nil, fmt.Errorf("%w: template ended on %s", ErrInvalidInput, FormatDate(*current.EndDate))
	}

	template, err := s.repo.SetActive(ctx, id, isActive)
	if err != nil {
		return nil, fmt.Errorf("failed to set template status: %w", err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// Toggle flips a template between active and paused.
func (s *Service) Toggle(ctx context.Context, userID int64, id string) (*Template, error) {
	current, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.SetActive(ctx, userID, id, !current.IsActive)
}

// Delete removes a template. Transactions it already produced are kept.
func (s *Service) Delete(ctx context.Context, userID int64, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Statistics counts the user's templates and estimates their monthly totals.
func (s *Service) Statistics(ctx context.Context, userID int64) (*Statistics, error) {
	templates, err := s.repo.ListByUserID(ctx, userID, Filters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list recurring templates: %w", err)
	}

	stats := &Statistics{Total: len(templates)}
	for _, t := range templates {
		if t.IsActive {
			stats.Active++
		} else {
			stats.Inactive++
		}
	}

	stats.Totals, err = SumMonthly(templates)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
