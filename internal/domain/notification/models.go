package notification

import (
	"errors"
	"time"
)

// Category groups notifications so users can mute them separately.
type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryRecurring Category = "recurring"
)

func (c Category) IsValid() bool {
	return c == CategoryGeneral || c == CategoryRecurring
}

type DeviceType string

const (
	DeviceIOS     DeviceType = "ios"
	DeviceAndroid DeviceType = "android"
)

func (d DeviceType) IsValid() bool {
	return d == DeviceIOS || d == DeviceAndroid
}

// Domain errors
var (
	ErrNotificationNotFound = errors.New("notification not found")
	ErrPreferencesNotFound  = errors.New("notification preferences not found")
	ErrDuplicate            = errors.New("notification already sent")
	ErrInvalidCategory      = errors.New("invalid notification category")
	ErrInvalidDeviceType    = errors.New("device type must be 'ios' or 'android'")
	ErrInvalidToken         = errors.New("device token is required")
	ErrInvalidUser          = errors.New("valid user ID is required")
	ErrInvalidMessage       = errors.New("notification title and body are required")
)

// Outcome reports what Send did with a message.
type Outcome string

const (
	// OutcomeMuted means the user disabled the message's category.
	OutcomeMuted Outcome = "muted"
	// OutcomeDuplicate means a message with the same dedupe key was sent before.
	OutcomeDuplicate Outcome = "duplicate"
	// OutcomeStored means the message is in the in-app list but no device got a push.
	OutcomeStored Outcome = "stored"
	// OutcomePushed means the message was stored and pushed to the user's devices.
	OutcomePushed Outcome = "pushed"
)

// DeviceToken is a registered FCM token.
type DeviceToken struct {
	ID         string
	UserID     int64
	Token      string
	DeviceType DeviceType
	IsActive   bool
	CreatedAt  time.Time
	LastUsed   time.Time
}

// Preferences holds a user's per-category toggles. Users without a stored
// row get DefaultPreferences.
type Preferences struct {
	ID               string
	UserID           int64
	GeneralEnabled   bool
	RecurringEnabled bool
	UpdatedAt        time.Time
}

func DefaultPreferences(userID int64) *Preferences {
	return &Preferences{UserID: userID, GeneralEnabled: true, RecurringEnabled: true}
}

// Allows reports whether messages of category c reach the user.
func (p *Preferences) Allows(c Category) bool {
	switch c {
	case CategoryGeneral:
		return p.GeneralEnabled
	case CategoryRecurring:
		return p.RecurringEnabled
	default:
		return false
	}
}

// Notification is a stored message shown in the in-app list.
type Notification struct {
	ID        string
	UserID    int64
	Title     string
	Body      string
	Category  Category
	Data      map[string]string
	DedupeKey string
	OpenedAt  *time.Time
	CreatedAt time.Time
}

// Page is one slice of a user's notification list.
type Page struct {
	Items   []*Notification
	Page    int
	PerPage int
	Total   int
}

// Pages returns the number of pages needed for Total.
func (p *Page) Pages() int {
	if p.PerPage <= 0 {
		return 0
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

type RegisterDeviceParams struct {
	UserID     int64
	Token      string
	DeviceType DeviceType
}

func (p RegisterDeviceParams) Validate() error {
	if p.UserID <= 0 {
		return ErrInvalidUser
	}
	if p.Token == "" {
		return ErrInvalidToken
	}
	if !p.DeviceType.IsValid() {
		return ErrInvalidDeviceType
	}
	return nil
}

// PreferenceChanges carries a partial preferences update. Nil fields keep
// their stored value.
type PreferenceChanges struct {
	GeneralEnabled   *bool
	RecurringEnabled *bool
}

// Message is a notification to deliver. A non-empty DedupeKey makes the
// message deliverable once per user.
type Message struct {
	UserID    int64
	Title     string
	Body      string
	Category  Category
	Data      map[string]string
	DedupeKey string
}

func (m Message) Validate() error {
	if m.UserID <= 0 {
		return ErrInvalidUser
	}
	if m.Title == "" || m.Body == "" {
		return ErrInvalidMessage
	}
	if !m.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}
