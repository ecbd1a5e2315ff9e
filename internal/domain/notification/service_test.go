package notification

import (
	"context"
	"errors"
	"testing"
)

// MockRepo implements Repository for testing
type MockRepo struct {
	UpsertDeviceTokenFunc  func(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error)
	ActiveTokensFunc       func(ctx context.Context, userID int64) ([]*DeviceToken, error)
	DeactivateTokenFunc    func(ctx context.Context, token string) error
	GetPreferencesFunc     func(ctx context.Context, userID int64) (*Preferences, error)
	UpsertPreferencesFunc  func(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error)
	CreateNotificationFunc func(ctx context.Context, msg Message) (*Notification, error)
	ListByUserIDFunc       func(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error)
	MarkOpenedFunc         func(ctx context.Context, notificationID string, userID int64) error
}

func (m *MockRepo) UpsertDeviceToken(ctx context.Context, params RegisterDeviceParams) (*DeviceToken, error) {
	if m.UpsertDeviceTokenFunc != nil {
		return m.UpsertDeviceTokenFunc(ctx, params)
	}
	return &DeviceToken{UserID: params.UserID, Token: params.Token, DeviceType: params.DeviceType, IsActive: true}, nil
}

func (m *MockRepo) ActiveTokens(ctx context.Context, userID int64) ([]*DeviceToken, error) {
	if m.ActiveTokensFunc != nil {
		return m.ActiveTokensFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockRepo) DeactivateToken(ctx context.Context, token string) error {
	if m.DeactivateTokenFunc != nil {
		return m.DeactivateTokenFunc(ctx, token)
	}
	return nil
}

func (m *MockRepo) GetPreferences(ctx context.Context, userID int64) (*Preferences, error) {
	if m.GetPreferencesFunc != nil {
		return m.GetPreferencesFunc(ctx, userID)
	}
	return nil, ErrPreferencesNotFound
}

func (m *MockRepo) UpsertPreferences(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error) {
	if m.UpsertPreferencesFunc != nil {
		return m.UpsertPreferencesFunc(ctx, userID, changes)
	}
	return DefaultPreferences(userID), nil
}

func (m *MockRepo) CreateNotification(ctx context.Context, msg Message) (*Notification, error) {
	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, msg)
	}
	return &Notification{UserID: msg.UserID, Title: msg.Title, DedupeKey: msg.DedupeKey}, nil
}

func (m *MockRepo) ListByUserID(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, page, perPage)
	}
	return nil, 0, nil
}

func (m *MockRepo) MarkOpened(ctx context.Context, notificationID string, userID int64) error {
	if m.MarkOpenedFunc != nil {
		return m.MarkOpenedFunc(ctx, notificationID, userID)
	}
	return nil
}

// MockMessenger records multicast sends
type MockMessenger struct {
	Err  error
	Sent [][]string
}

func (m *MockMessenger) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) error {
	m.Sent = append(m.Sent, tokens)
	return m.Err
}

func reminder(userID int64) Message {
	return Message{
		UserID:    userID,
		Title:     "Upcoming charges",
		Body:      "Rent is due tomorrow",
		Category:  CategoryRecurring,
		DedupeKey: "upcoming:t1:2025-03-11",
	}
}

func twoDevices(ctx context.Context, userID int64) ([]*DeviceToken, error) {
	return []*DeviceToken{{Token: "a"}, {Token: "b"}}, nil
}

func TestRegisterDevice_CreatesDefaultPreferences(t *testing.T) {
	upserted := false
	repo := &MockRepo{
		UpsertPreferencesFunc: func(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error) {
			upserted = true
			if changes.GeneralEnabled != nil || changes.RecurringEnabled != nil {
				t.Error("expected an empty change set for defaults")
			}
			return DefaultPreferences(userID), nil
		},
	}

	token, err := NewService(repo, nil).RegisterDevice(context.Background(), RegisterDeviceParams{
		UserID:     1,
		Token:      "fcm-token",
		DeviceType: DeviceAndroid,
	})
	if err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
	if token.Token != "fcm-token" {
		t.Errorf("token = %q", token.Token)
	}
	if !upserted {
		t.Error("expected default preferences to be created")
	}
}

func TestRegisterDevice_KeepsExistingPreferences(t *testing.T) {
	repo := &MockRepo{
		GetPreferencesFunc: func(ctx context.Context, userID int64) (*Preferences, error) {
			return &Preferences{UserID: userID}, nil
		},
		UpsertPreferencesFunc: func(ctx context.Context, userID int64, changes PreferenceChanges) (*Preferences, error) {
			t.Error("stored preferences must not be overwritten")
			return nil, nil
		},
	}

	if _, err := NewService(repo, nil).RegisterDevice(context.Background(), RegisterDeviceParams{UserID: 1, Token: "t", DeviceType: DeviceIOS}); err != nil {
		t.Fatalf("RegisterDevice() error = %v", err)
	}
}

func TestRegisterDevice_Validation(t *testing.T) {
	tests := []struct {
		name    string
		params  RegisterDeviceParams
		wantErr error
	}{
		{"missing user", RegisterDeviceParams{Token: "t", DeviceType: DeviceIOS}, ErrInvalidUser},
		{"missing token", RegisterDeviceParams{UserID: 1, DeviceType: DeviceIOS}, ErrInvalidToken},
		{"bad device type", RegisterDeviceParams{UserID: 1, Token: "t", DeviceType: "web"}, ErrInvalidDeviceType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewService(&MockRepo{}, nil).RegisterDevice(context.Background(), tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSend(t *testing.T) {
	t.Run("Pushed", func(t *testing.T) {
		var stored *Message
		repo := &MockRepo{
			ActiveTokensFunc: twoDevices,
			CreateNotificationFunc: func(ctx context.Context, msg Message) (*Notification, error) {
				stored = &msg
				return &Notification{}, nil
			},
		}
		messenger := &MockMessenger{}

		outcome, err := NewService(repo, messenger).Send(context.Background(), reminder(1))
		if err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if outcome != OutcomePushed {
			t.Errorf("outcome = %q, want %q", outcome, OutcomePushed)
		}
		if len(messenger.Sent) != 1 || len(messenger.Sent[0]) != 2 {
			t.Errorf("expected one multicast to 2 tokens, got %v", messenger.Sent)
		}
		if stored == nil {
			t.Fatal("expected notification to be stored")
		}
		if stored.Data["route"] != string(CategoryRecurring) {
			t.Errorf("route = %q, want %q", stored.Data["route"], CategoryRecurring)
		}
		if stored.DedupeKey != "upcoming:t1:2025-03-11" {
			t.Errorf("dedupe key = %q", stored.DedupeKey)
		}
	})

	t.Run("Caller Route Kept", func(t *testing.T) {
		var route string
		repo := &MockRepo{
			CreateNotificationFunc: func(ctx context.Context, msg Message) (*Notification, error) {
				route = msg.Data["route"]
				return &Notification{}, nil
			},
		}
		msg := reminder(1)
		msg.Data = map[string]string{"route": "recurring/t1"}

		if _, err := NewService(repo, nil).Send(context.Background(), msg); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
		if route != "recurring/t1" {
			t.Errorf("route = %q", route)
		}
		if msg.Data["route"] != "recurring/t1" || len(msg.Data) != 1 {
			t.Error("caller's data map must not be modified")
		}
	})

	t.Run("Muted", func(t *testing.T) {
		repo := &MockRepo{
			GetPreferencesFunc: func(ctx context.Context, userID int64) (*Preferences, error) {
				return &Preferences{UserID: userID, GeneralEnabled: true}, nil
			},
			CreateNotificationFunc: func(ctx context.Context, msg Message) (*Notification, error) {
				t.Error("muted messages must not be stored")
				return nil, nil
			},
		}
		messenger := &MockMessenger{}

		outcome, err := NewService(repo, messenger).Send(context.Background(), reminder(1))
		if err != nil || outcome != OutcomeMuted {
			t.Errorf("Send() = %q, %v; want %q", outcome, err, OutcomeMuted)
		}
		if len(messenger.Sent) != 0 {
			t.Error("expected no push when category is muted")
		}
	})

	t.Run("Duplicate Not Pushed", func(t *testing.T) {
		repo := &MockRepo{
			ActiveTokensFunc: twoDevices,
			CreateNotificationFunc: func(ctx context.Context, msg Message) (*Notification, error) {
				return nil, ErrDuplicate
			},
		}
		messenger := &MockMessenger{}

		outcome, err := NewService(repo, messenger).Send(context.Background(), reminder(1))
		if err != nil || outcome != OutcomeDuplicate {
			t.Errorf("Send() = %q, %v; want %q", outcome, err, OutcomeDuplicate)
		}
		if len(messenger.Sent) != 0 {
			t.Error("a duplicate must not reach a device")
		}
	})

	t.Run("No Devices", func(t *testing.T) {
		outcome, err := NewService(&MockRepo{}, &MockMessenger{}).Send(context.Background(), reminder(1))
		if err != nil || outcome != OutcomeStored {
			t.Errorf("Send() = %q, %v; want %q", outcome, err, OutcomeStored)
		}
	})

	t.Run("Push Failure Still Stored", func(t *testing.T) {
		repo := &MockRepo{ActiveTokensFunc: twoDevices}
		messenger := &MockMessenger{Err: errors.New("fcm unavailable")}

		outcome, err := NewService(repo, messenger).Send(context.Background(), reminder(1))
		if err != nil || outcome != OutcomeStored {
			t.Errorf("Send() = %q, %v; want %q", outcome, err, OutcomeStored)
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		storeErr := errors.New("disk full")
		repo := &MockRepo{
			CreateNotificationFunc: func(ctx context.Context, msg Message) (*Notification, error) {
				return nil, storeErr
			},
		}

		if _, err := NewService(repo, nil).Send(context.Background(), reminder(1)); !errors.Is(err, storeErr) {
			t.Errorf("expected store error, got %v", err)
		}
	})
}

func TestSend_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(m *Message)
		wantErr error
	}{
		{"missing user", func(m *Message) { m.UserID = 0 }, ErrInvalidUser},
		{"missing title", func(m *Message) { m.Title = "" }, ErrInvalidMessage},
		{"unknown category", func(m *Message) { m.Category = "budgets" }, ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := reminder(1)
			tt.mutate(&msg)
			if _, err := NewService(&MockRepo{}, nil).Send(context.Background(), msg); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPreferences(t *testing.T) {
	t.Run("Defaults When Missing", func(t *testing.T) {
		prefs, err := NewService(&MockRepo{}, nil).Preferences(context.Background(), 7)
		if err != nil {
			t.Fatalf("Preferences() error = %v", err)
		}
		if !prefs.Allows(CategoryGeneral) || !prefs.Allows(CategoryRecurring) {
			t.Errorf("expected all categories enabled, got %+v", prefs)
		}
	})

	t.Run("Store Error", func(t *testing.T) {
		storeErr := errors.New("connection refused")
		repo := &MockRepo{
			GetPreferencesFunc: func(ctx context.Context, userID int64) (*Preferences, error) {
				return nil, storeErr
			},
		}
		if _, err := NewService(repo, nil).Preferences(context.Background(), 1); !errors.Is(err, storeErr) {
			t.Errorf("expected store error, got %v", err)
		}
	})
}

func TestList_Paging(t *testing.T) {
	tests := []struct {
		name                 string
		page, perPage        int
		wantPage, wantPerPage int
	}{
		{"passthrough", 3, 50, 3, 50},
		{"page below one", 0, 10, 1, 10},
		{"per page too large", 2, 500, 2, 20},
		{"per page zero", 1, 0, 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPage, gotPerPage int
			repo := &MockRepo{
				ListByUserIDFunc: func(ctx context.Context, userID int64, page, perPage int) ([]*Notification, int, error) {
					gotPage, gotPerPage = page, perPage
					return nil, 0, nil
				},
			}
			page, err := NewService(repo, nil).List(context.Background(), 1, tt.page, tt.perPage)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if gotPage != tt.wantPage || gotPerPage != tt.wantPerPage {
				t.Errorf("paging = (%d, %d), want (%d, %d)", gotPage, gotPerPage, tt.wantPage, tt.wantPerPage)
			}
			if page.Page != tt.wantPage || page.PerPage != tt.wantPerPage {
				t.Errorf("page = %+v, want the effective paging", page)
			}
		})
	}
}

func TestPage_Pages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{40, 20, 2},
		{41, 20, 3},
	}

	for _, tt := range tests {
		p := &Page{Total: tt.total, PerPage: tt.perPage}
		if got := p.Pages(); got != tt.want {
			t.Errorf("Pages() with total=%d perPage=%d = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}
