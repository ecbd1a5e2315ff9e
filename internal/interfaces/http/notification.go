package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"trackify/internal/domain/notification"
)

type NotificationHandler struct {
	service *notification.Service
}

func NewNotificationHandler(service *notification.Service) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type RegisterDeviceRequest struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
}

type DeviceResponse struct {
	Token      string `json:"token"`
	DeviceType string `json:"device_type"`
	Active     bool   `json:"active"`
}

// PreferencesPayload is both the response and the partial update request;
// omitted fields are left unchanged.
type PreferencesPayload struct {
	GeneralEnabled   *bool `json:"general_enabled,omitempty"`
	RecurringEnabled *bool `json:"recurring_enabled,omitempty"`
}

type NotificationResponse struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Category  string            `json:"category"`
	Data      map[string]string `json:"data"`
	OpenedAt  *string           `json:"opened_at"`
	CreatedAt string            `json:"created_at"`
}

type NotificationPageResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Page          int                    `json:"page"`
	PerPage       int                    `json:"per_page"`
	Total         int                    `json:"total"`
	Pages         int                    `json:"pages"`
}

type OpenNotificationRequest struct {
	NotificationID string `json:"notification_id"`
}

// HandleNotifications handles GET /api/notifications/?page=&per_page=
func (h *NotificationHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	// Unparsable values become 0 and fall back to the service defaults.
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, err := h.service.List(r.Context(), userID, page, perPage)
	if err != nil {
		log.Printf("Error listing notifications for user %d: %v", userID, err)
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}

	resp := NotificationPageResponse{
		Notifications: make([]NotificationResponse, 0, len(result.Items)),
		Page:          result.Page,
		PerPage:       result.PerPage,
		Total:         result.Total,
		Pages:         result.Pages(),
	}
	for _, n := range result.Items {
		resp.Notifications = append(resp.Notifications, toNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleNotificationByID handles PUT /api/notifications/{id}, which marks
// the notification opened.
func (h *NotificationHandler) HandleNotificationByID(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPut) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	h.markOpened(w, r, userID, r.PathValue("id"))
}

// HandleOpen handles POST /api/notifications/open/ for clients that report
// taps with the id in the body.
func (h *NotificationHandler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req OpenNotificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	h.markOpened(w, r, userID, req.NotificationID)
}

func (h *NotificationHandler) markOpened(w http.ResponseWriter, r *http.Request, userID int64, id string) {
	if id == "" {
		http.Error(w, "notification_id is required", http.StatusBadRequest)
		return
	}

	err := h.service.MarkOpened(r.Context(), id, userID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, notification.ErrNotificationNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	default:
		log.Printf("Error marking notification %s opened for user %d: %v", id, userID, err)
		http.Error(w, "Failed to update notification", http.StatusInternalServerError)
	}
}

// HandlePreferences handles GET and POST /api/notifications/preferences/
func (h *NotificationHandler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
		return
	}

	var (
		prefs *notification.Preferences
		err   error
	)
	if r.Method == http.MethodGet {
		prefs, err = h.service.Preferences(r.Context(), userID)
	} else {
		var req PreferencesPayload
		if !decodeJSON(w, r, &req) {
			return
		}
		prefs, err = h.service.UpdatePreferences(r.Context(), userID, notification.PreferenceChanges{
			GeneralEnabled:   req.GeneralEnabled,
			RecurringEnabled: req.RecurringEnabled,
		})
	}
	if err != nil {
		log.Printf("Error handling notification preferences for user %d: %v", userID, err)
		http.Error(w, "Failed to handle preferences", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PreferencesPayload{
		GeneralEnabled:   &prefs.GeneralEnabled,
		RecurringEnabled: &prefs.RecurringEnabled,
	})
}

// HandleRegisterDevice handles POST /api/notifications/register-device/
func (h *NotificationHandler) HandleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	device, err := h.service.RegisterDevice(r.Context(), notification.RegisterDeviceParams{
		UserID:     userID,
		Token:      req.Token,
		DeviceType: notification.DeviceType(req.DeviceType),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, DeviceResponse{
			Token:      device.Token,
			DeviceType: string(device.DeviceType),
			Active:     device.IsActive,
		})
	case errors.Is(err, notification.ErrInvalidToken), errors.Is(err, notification.ErrInvalidDeviceType):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("Error registering device for user %d: %v", userID, err)
		http.Error(w, "Failed to register device", http.StatusInternalServerError)
	}
}

func toNotificationResponse(n *notification.Notification) NotificationResponse {
	resp := NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body,
		Category:  string(n.Category),
		Data:      n.Data,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	}
	if resp.Data == nil {
		resp.Data = map[string]string{}
	}
	if n.OpenedAt != nil {
		opened := n.OpenedAt.Format(time.RFC3339)
		resp.OpenedAt = &opened
	}
	return resp
}
