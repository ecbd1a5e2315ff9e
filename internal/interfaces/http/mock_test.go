package http

import (
	"context"
	"time"

	"trackify/internal/domain/notification"
	"trackify/internal/domain/recurring"
	"trackify/internal/domain/transaction"
)

// MockRecurringRepo implements recurring.Repository for testing
type MockRecurringRepo struct {
	CreateFunc         func(ctx context.Context, params recurring.CreateParams) (*recurring.Template, error)
	GetByIDFunc        func(ctx context.Context, id string) (*recurring.Template, error)
	ListByUserIDFunc   func(ctx context.Context, userID int64, filters recurring.Filters) ([]*recurring.Template, error)
	ListDueFunc        func(ctx context.Context, userID int64, asOf time.Time) ([]*recurring.Template, error)
	ListUpcomingFunc   func(ctx context.Context, userID int64, from, to time.Time) ([]*recurring.Template, error)
	ListUserIDsDueFunc func(ctx context.Context, asOf time.Time) ([]int64, error)
	UpdateFunc         func(ctx context.Context, id string, params recurring.UpdateParams) (*recurring.Template, error)
	SetActiveFunc      func(ctx context.Context, id string, isActive bool) (*recurring.Template, error)
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockRecurringRepo) Create(ctx context.Context, params recurring.CreateParams) (*recurring.Template, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockRecurringRepo) GetByID(ctx context.Context, id string) (*recurring.Template, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockRecurringRepo) ListByUserID(ctx context.Context, userID int64, filters recurring.Filters) ([]*recurring.Template, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, filters)
	}
	return nil, nil
}

func (m *MockRecurringRepo) ListDue(ctx context.Context, userID int64, asOf time.Time) ([]*recurring.Template, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, userID, asOf)
	}
	return nil, nil
}

func (m *MockRecurringRepo) ListUpcoming(ctx context.Context, userID int64, from, to time.Time) ([]*recurring.Template, error) {
	if m.ListUpcomingFunc != nil {
		return m.ListUpcomingFunc(ctx, userID, from, to)
	}
	return nil, nil
}

func (m *MockRecurringRepo) ListUserIDsDue(ctx context.Context, asOf time.Time) ([]int64, error) {
	if m.ListUserIDsDueFunc != nil {
		return m.ListUserIDsDueFunc(ctx, asOf)
	}
	return nil, nil
}

func (m *MockRecurringRepo) Update(ctx context.Context, id string, params recurring.UpdateParams) (*recurring.Template, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params)
	}
	return nil, nil
}

func (m *MockRecurringRepo) SetActive(ctx context.Context, id string, isActive bool) (*recurring.Template, error) {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, isActive)
	}
	return nil, nil
}

func (m *MockRecurringRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockTransactionRepo implements transaction.Repository and recurring.Ledger for testing
type MockTransactionRepo struct {
	CreateFunc       func(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error)
	GetByIDFunc      func(ctx context.Context, id string) (*transaction.Transaction, error)
	ListByUserIDFunc func(ctx context.Context, userID int64, limit, offset int) ([]*transaction.Transaction, error)
}

func (m *MockTransactionRepo) Create(ctx context.Context, params transaction.CreateTransactionParams) (*transaction.Transaction, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return &transaction.Transaction{ID: "tx-1", UserID: params.UserID, Amount: params.Amount, TransactionDate: params.TransactionDate}, nil
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockTransactionRepo) ListByUserID(ctx context.Context, userID int64, limit, offset int) ([]*transaction.Transaction, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit, offset)
	}
	return nil, nil
}

// MockNotificationRepo implements notification.Repository for testing
type MockNotificationRepo struct {
	UpsertDeviceTokenFunc func(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error)
	GetPreferencesFunc    func(ctx context.Context, userID int64) (*notification.Preferences, error)
	UpsertPreferencesFunc func(ctx context.Context, userID int64, changes notification.PreferenceChanges) (*notification.Preferences, error)
	ListByUserIDFunc      func(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error)
	MarkOpenedFunc        func(ctx context.Context, notificationID string, userID int64) error
}

func (m *MockNotificationRepo) UpsertDeviceToken(ctx context.Context, params notification.RegisterDeviceParams) (*notification.DeviceToken, error) {
	if m.UpsertDeviceTokenFunc != nil {
		return m.UpsertDeviceTokenFunc(ctx, params)
	}
	return &notification.DeviceToken{ID: "dt-1", UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
}

func (m *MockNotificationRepo) ActiveTokens(ctx context.Context, userID int64) ([]*notification.DeviceToken, error) {
	return nil, nil
}

func (m *MockNotificationRepo) DeactivateToken(ctx context.Context, token string) error {
	return nil
}

func (m *MockNotificationRepo) GetPreferences(ctx context.Context, userID int64) (*notification.Preferences, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	return nil, notification.ErrPreferencesNotFound
}

func (m *MockNotificationRepo) UpsertPreferences(ctx context.Context, userID int64, changes notification.PreferenceChanges) (*notification.Preferences, error) {
	if m.UpsertPreferencesFunc != nil {
		return m.UpsertPreferencesFunc(ctx, userID, changes)
	}
	return notification.DefaultPreferences(userID), nil
}

func (m *MockNotificationRepo) CreateNotification(ctx context.Context, msg notification.Message) (*notification.Notification, error) {
	return &notification.Notification{UserID: msg.UserID, Title: msg.Title, Body: msg.Body, Category: msg.Category}, nil
}

func (m *MockNotificationRepo) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, page, perPage)
	}
	return nil, 0, nil
}

func (m *MockNotificationRepo) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	if m.MarkOpenedFunc != nil {
		return m.MarkOpenedFunc(ctx, notificationID, userID)
	}
	return nil
}
