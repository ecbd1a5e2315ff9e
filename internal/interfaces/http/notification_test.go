package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trackify/internal/domain/notification"
)

func newTestNotificationHandler(repo *MockNotificationRepo) *NotificationHandler {
	return NewNotificationHandler(notification.NewService(repo, nil))
}

func TestHandlePreferences(t *testing.T) {
	t.Run("Defaults When Missing", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestNotificationHandler(&MockNotificationRepo{}).HandlePreferences(rr,
			withUser(httptest.NewRequest(http.MethodGet, "/api/notifications/preferences/", nil), 1))

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		var resp PreferencesPayload
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.GeneralEnabled == nil || !*resp.GeneralEnabled || resp.RecurringEnabled == nil || !*resp.RecurringEnabled {
			t.Errorf("expected all-enabled defaults, got %+v", resp)
		}
	})

	t.Run("Partial Update", func(t *testing.T) {
		var got notification.PreferenceChanges
		repo := &MockNotificationRepo{
			UpsertPreferencesFunc: func(ctx context.Context, userID int64, changes notification.PreferenceChanges) (*notification.Preferences, error) {
				got = changes
				return &notification.Preferences{UserID: userID, GeneralEnabled: true}, nil
			},
		}

		body := bytes.NewBufferString(`{"recurring_enabled":false}`)
		rr := httptest.NewRecorder()
		newTestNotificationHandler(repo).HandlePreferences(rr,
			withUser(httptest.NewRequest(http.MethodPost, "/api/notifications/preferences/", body), 1))

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
		if got.GeneralEnabled != nil {
			t.Error("general_enabled should be left untouched")
		}
		if got.RecurringEnabled == nil || *got.RecurringEnabled {
			t.Errorf("recurring_enabled = %v, want false", got.RecurringEnabled)
		}

		var resp PreferencesPayload
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.RecurringEnabled == nil || *resp.RecurringEnabled {
			t.Errorf("response recurring_enabled = %v, want false", resp.RecurringEnabled)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestNotificationHandler(&MockNotificationRepo{}).HandlePreferences(rr,
			withUser(httptest.NewRequest(http.MethodDelete, "/api/notifications/preferences/", nil), 1))

		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
		}
		if allow := rr.Header().Get("Allow"); allow != "GET, POST" {
			t.Errorf("Allow = %q, want %q", allow, "GET, POST")
		}
	})

	t.Run("Unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		newTestNotificationHandler(&MockNotificationRepo{}).HandlePreferences(rr,
			httptest.NewRequest(http.MethodGet, "/api/notifications/preferences/", nil))

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
		}
	})
}

func TestHandleRegisterDevice(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "Success", body: `{"token":"fcm-abc","device_type":"android"}`, expectedStatus: http.StatusCreated},
		{name: "Missing Token", body: `{"device_type":"ios"}`, expectedStatus: http.StatusBadRequest},
		{name: "Invalid Device Type", body: `{"token":"fcm-abc","device_type":"web"}`, expectedStatus: http.StatusBadRequest},
		{name: "Invalid JSON", body: `not json`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefsCreated := false
			repo := &MockNotificationRepo{
				UpsertPreferencesFunc: func(ctx context.Context, userID int64, changes notification.PreferenceChanges) (*notification.Preferences, error) {
					prefsCreated = true
					return notification.DefaultPreferences(userID), nil
				},
			}

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/notifications/register-device/", bytes.NewBufferString(tt.body)), 7)
			rr := httptest.NewRecorder()
			newTestNotificationHandler(repo).HandleRegisterDevice(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Fatalf("status = %d, want %d (body: %s)", rr.Code, tt.expectedStatus, rr.Body.String())
			}
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var resp DeviceResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.Token != "fcm-abc" || resp.DeviceType != "android" || !resp.Active {
				t.Errorf("unexpected response: %+v", resp)
			}
			if !prefsCreated {
				t.Error("expected default preferences to be created on first registration")
			}
		})
	}
}

func TestHandleNotifications_List(t *testing.T) {
	opened := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	repo := &MockNotificationRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64, page, perPage int) ([]*notification.Notification, int, error) {
			if page != 2 || perPage != 20 {
				t.Errorf("page=%d perPage=%d, want 2 and 20", page, perPage)
			}
			return []*notification.Notification{
				{ID: "n1", Title: "Upcoming", Body: "Rent", Category: notification.CategoryRecurring, OpenedAt: &opened},
			}, 41, nil
		},
	}

	rr := httptest.NewRecorder()
	newTestNotificationHandler(repo).HandleNotifications(rr,
		withUser(httptest.NewRequest(http.MethodGet, "/api/notifications/?page=2&per_page=500", nil), 1))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	var resp NotificationPageResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Page != 2 || resp.PerPage != 20 || resp.Pages != 3 || resp.Total != 41 {
		t.Errorf("unexpected paging: %+v", resp)
	}
	if len(resp.Notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(resp.Notifications))
	}
	n := resp.Notifications[0]
	if n.Body != "Rent" || n.Category != "recurring" || n.OpenedAt == nil || n.Data == nil {
		t.Errorf("unexpected notification: %+v", n)
	}
}

func TestHandleOpen(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		markErr        error
		expectedStatus int
	}{
		{name: "Success", body: `{"notification_id":"n1"}`, expectedStatus: http.StatusOK},
		{name: "Missing ID", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "Not Found", body: `{"notification_id":"n2"}`, markErr: notification.ErrNotificationNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockNotificationRepo{
				MarkOpenedFunc: func(ctx context.Context, notificationID string, userID int64) error {
					return tt.markErr
				},
			}

			req := withUser(httptest.NewRequest(http.MethodPost, "/api/notifications/open/", bytes.NewBufferString(tt.body)), 1)
			rr := httptest.NewRecorder()
			newTestNotificationHandler(repo).HandleOpen(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleNotificationByID(t *testing.T) {
	var gotID string
	var gotUser int64
	repo := &MockNotificationRepo{
		MarkOpenedFunc: func(ctx context.Context, notificationID string, userID int64) error {
			gotID, gotUser = notificationID, userID
			return nil
		},
	}

	req := withUser(httptest.NewRequest(http.MethodPut, "/api/notifications/n9", nil), 5)
	req.SetPathValue("id", "n9")
	rr := httptest.NewRecorder()
	newTestNotificationHandler(repo).HandleNotificationByID(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if gotID != "n9" || gotUser != 5 {
		t.Errorf("MarkOpened(%q, %d), want (n9, 5)", gotID, gotUser)
	}

	get := withUser(httptest.NewRequest(http.MethodGet, "/api/notifications/n9", nil), 5)
	rr = httptest.NewRecorder()
	newTestNotificationHandler(repo).HandleNotificationByID(rr, get)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want %d", rr.Code, http.StatusMethodNotAllowed)
	}
}
