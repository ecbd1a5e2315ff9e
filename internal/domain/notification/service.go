package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Service delivers messages to a user's devices and keeps the in-app list.
type Service struct {
	repo      Repository
	messenger Messenger
}

// NewService creates a new notification service. messenger may be nil, in
// which case messages are only stored.
func NewService(repo Repository, messenger Messenger) *Service {
	return &Service{repo: repo, messenger: messenger}
}

// RegisterDevice stores a device token and makes sure the user has a
// preferences row.
func (s *Service) RegisterDevice(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	token, err := s.repo.UpsertDeviceToken(ctx, params)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.GetPreferences(ctx, params.UserID)
	if errors.Is(err, ErrPreferencesNotFound) {
		_, err = s.repo.UpsertPreferences(ctx, params.UserID, PreferenceChanges{})
	}
	if err != nil {
		log.Printf("Warning: failed to ensure notification preferences for user %d: %v", params.UserID, err)
	}

	return token, nil
}

// Preferences returns the user's stored preferences, or the all-enabled
// defaults when none are stored.
func (s *Service) Preferences(ctx context.Context, userID int64) (*Preferences, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}

	prefs, err := s.repo.GetPreferences(ctx, userID)
	if errors.Is(err, ErrPreferencesNotFound) {
		return DefaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return prefs, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	return s.repo.UpsertPreferences(ctx, userID, changes)
}

// List returns one page of the user's notifications. Out-of-range paging
// falls back to page 1 and 20 per page.
func (s *Service) List(ctx context.Context, userID int64, page, perPage int) (*Page, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > maxPerPage {
		perPage = defaultPerPage
	}

	items, total, err := s.repo.ListByUserID(ctx, userID, page, perPage)
	if err != nil {
		return nil, err
	}
	return &Page{Items: items, Page: page, PerPage: perPage, Total: total}, nil
}

func (s *Service) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	if notificationID == "" {
		return ErrNotificationNotFound
	}
	if userID <= 0 {
		return ErrInvalidUser
	}
	return s.repo.MarkOpened(ctx, notificationID, userID)
}

// Send stores msg and pushes it to the user's active devices. Muted
// categories and repeated dedupe keys are reported through the Outcome, not
// as errors. A failed push still leaves the message in the in-app list.
func (s *Service) Send(ctx context.Context, msg Message) (Outcome, error) {
	if err := msg.Validate(); err != nil {
		return "", err
	}

	prefs, err := s.Preferences(ctx, msg.UserID)
	if err != nil {
		return "", err
	}
	if !prefs.Allows(msg.Category) {
		return OutcomeMuted, nil
	}

	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	if _, ok := data["route"]; !ok {
		data["route"] = string(msg.Category)
	}
	msg.Data = data

	// Stored first so a repeated dedupe key never reaches a device.
	if _, err := s.repo.CreateNotification(ctx, msg); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return OutcomeDuplicate, nil
		}
		return "", fmt.Errorf("failed to store notification: %w", err)
	}

	if s.messenger == nil {
		return OutcomeStored, nil
	}

	tokens, err := s.repo.ActiveTokens(ctx, msg.UserID)
	if err != nil {
		return OutcomeStored, fmt.Errorf("failed to load device tokens: %w", err)
	}
	if len(tokens) == 0 {
		return OutcomeStored, nil
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}
	if err := s.messenger.SendMulticast(ctx, tokenStrings, msg.Title, msg.Body, msg.Data); err != nil {
		log.Printf("Error pushing notification to user %d: %v", msg.UserID, err)
		return OutcomeStored, nil
	}

	return OutcomePushed, nil
}
