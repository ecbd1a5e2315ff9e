package main

import (
	"context"
	"log"

	"trackify/internal/domain/notification"
	"trackify/internal/domain/recurring"
	"trackify/internal/infrastructure/firebase"
	"trackify/internal/infrastructure/postgres"
	httphandlers "trackify/internal/interfaces/http"
	"trackify/internal/shared/auth"
	"trackify/internal/shared/config"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB *postgres.DB

	// Handlers
	RecurringHandler    *httphandlers.RecurringHandler
	TransactionHandler  *httphandlers.TransactionHandler
	NotificationHandler *httphandlers.NotificationHandler

	// Auth
	JWT *auth.JWT

	// Scheduler collaborators
	Engine              *recurring.Engine
	RecurringRepo       *postgres.RecurringRepository
	NotificationService *notification.Service
}

// NewDependencies connects to the database, applies migrations and wires
// repositories, services and handlers.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	// Initialize repositories
	recurringRepo := postgres.NewRecurringRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Initialize domain services
	recurringService := recurring.NewService(recurringRepo)
	engine := recurring.NewEngine(recurringRepo, transactionRepo)

	var messenger notification.Messenger
	if cfg.Firebase.CredentialsFile != "" {
		fcm, err := firebase.NewClient(ctx, cfg.Firebase.CredentialsFile, notificationRepo.DeactivateToken)
		if err != nil {
			log.Printf("Warning: Failed to initialize Firebase: %v", err)
		} else {
			messenger = fcm
			log.Println("Firebase messaging initialized")
		}
	} else {
		log.Println("Firebase credentials not set, push notifications are stored only")
	}
	notificationService := notification.NewService(notificationRepo, messenger)

	return &Dependencies{
		DB:                  db,
		RecurringHandler:    httphandlers.NewRecurringHandler(recurringService, engine),
		TransactionHandler:  httphandlers.NewTransactionHandler(transactionRepo),
		NotificationHandler: httphandlers.NewNotificationHandler(notificationService),
		JWT:                 auth.NewJWT(cfg.JWT.Secret),
		Engine:              engine,
		RecurringRepo:       recurringRepo,
		NotificationService: notificationService,
	}, nil
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
}
