package notification

import "context"

// Repository defines the interface for notification data access.
type Repository interface {
	// UpsertDeviceToken registers a token, moving it to params.UserID when
	// another user registered it before.
	UpsertDeviceToken(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error)
	ActiveTokens(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateToken(ctx context.Context, token string) error

	// GetPreferences returns ErrPreferencesNotFound when the user has none stored.
	GetPreferences(ctx context.Context, userID int64) (*Preferences, error)
	UpsertPreferences(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error)

	// CreateNotification stores msg. It returns ErrDuplicate when msg has a
	// DedupeKey the user already received.
	CreateNotification(ctx context.Context, msg Message) (*Notification, error)
	// ListByUserID returns one page, newest first, and the total count.
	ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error)
	// MarkOpened returns ErrNotificationNotFound unless the notification belongs to userID.
	MarkOpened(ctx context.Context, notificationID string, userID int64) error
}

// Messenger sends push notifications. Implemented by the Firebase FCM client.
type Messenger interface {
	SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}
