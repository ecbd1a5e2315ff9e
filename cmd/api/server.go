package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"trackify/internal/infrastructure/postgres/listener"
	"trackify/internal/interfaces/scheduler"
)

// StartServer creates and starts the HTTP server in the background.
func StartServer(addr string, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("HTTP server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	return srv
}

// GracefulShutdown stops accepting requests, then stops the listener and
// drains the scheduler. sched and l may be nil.
func GracefulShutdown(srv *http.Server, sched *scheduler.Scheduler, l *listener.TemplateListener, timeout time.Duration) {
	log.Println("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if l != nil {
		l.Stop()
	}

	if sched != nil {
		sched.Shutdown(timeout)
	}

	log.Println("Server stopped")
}
