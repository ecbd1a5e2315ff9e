package main

import (
	"net/http"

	httphandlers "trackify/internal/interfaces/http"
	"trackify/internal/shared/middleware"
)

// SetupRoutes configures all HTTP routes and returns the final handler with middleware.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", httphandlers.HandleHealth(deps.DB))

	// Protected routes
	authMiddleware := middleware.Auth(deps.JWT)
	protect := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(h))
	}

	protect("/api/recurring/{$}", deps.RecurringHandler.HandleTemplates)
	protect("/api/recurring/due", deps.RecurringHandler.HandleDue)
	protect("/api/recurring/process", deps.RecurringHandler.HandleProcess)
	protect("/api/recurring/upcoming", deps.RecurringHandler.HandleUpcoming)
	protect("/api/recurring/stats", deps.RecurringHandler.HandleStats)
	protect("/api/recurring/estimate", deps.RecurringHandler.HandleEstimate)
	protect("/api/recurring/{id}", deps.RecurringHandler.HandleTemplateByID)
	protect("/api/recurring/{id}/toggle", deps.RecurringHandler.HandleToggle)

	protect("/api/transactions/{$}", deps.TransactionHandler.HandleListTransactions)
	protect("/api/transactions/{id}", deps.TransactionHandler.HandleGetTransaction)

	protect("/api/notifications/register-device/{$}", deps.NotificationHandler.HandleRegisterDevice)
	protect("/api/notifications/preferences/{$}", deps.NotificationHandler.HandlePreferences)
	protect("/api/notifications/open/{$}", deps.NotificationHandler.HandleOpen)
	protect("/api/notifications/{id}", deps.NotificationHandler.HandleNotificationByID)
	protect("/api/notifications/{$}", deps.NotificationHandler.HandleNotifications)

	// Apply global middleware
	return middleware.Telemetry(middleware.Tracing(middleware.Logging(mux)))
}
