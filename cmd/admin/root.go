package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"trackify/internal/domain/recurring"
	"trackify/internal/domain/transaction"
	"trackify/internal/infrastructure/postgres"
	"trackify/internal/infrastructure/sqlite"
	"trackify/internal/shared/config"
)

type rootOptions struct {
	sqlitePath string
	timeout    time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Trackify admin CLI",
		Long: `Management commands for recurring transaction templates.

Commands run against postgres using the same environment as the API
(DB_HOST, DB_USER, ...), or against a local sqlite file with --sqlite.

Examples:
  admin migrate
  admin process-due --all
  admin process-due --user-id 1 --as-of 2025-03-01
  admin --sqlite ./trackify.db category add --user-id 1 --name Rent --type expense
  admin next-date --date 2025-01-31 --frequency monthly --count 3`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.sqlitePath, "sqlite", "", "Use a local sqlite database file instead of postgres")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "Timeout for the operation")

	cmd.AddCommand(
		newMigrateCmd(opts),
		newProcessDueCmd(opts),
		newDueCmd(opts),
		newUpcomingCmd(opts),
		newEstimateCmd(opts),
		newListCmd(opts),
		newCreateCmd(opts),
		newCategoryCmd(opts),
		newNextDateCmd(),
		newTokenCmd(),
	)

	return cmd
}

// backend is the storage a command runs against.
type backend struct {
	templates   recurring.Repository
	ledger      transaction.Repository
	addCategory func(ctx context.Context, id string, userID int64, name, categoryType string) error
	migrate     func(ctx context.Context) error
	close       func() error
}

func (o *rootOptions) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), o.timeout)
}

func (o *rootOptions) open() (*backend, error) {
	if o.sqlitePath != "" {
		store, err := sqlite.Open(o.sqlitePath)
		if err != nil {
			return nil, err
		}
		return &backend{
			templates:   store.Templates(),
			ledger:      store.Transactions(),
			addCategory: store.AddCategory,
			// The sqlite schema is created on open.
			migrate: func(context.Context) error { return nil },
			close:   store.Close,
		}, nil
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString(), postgres.PoolConfig{
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Connected to database")

	return &backend{
		templates:   postgres.NewRecurringRepository(db),
		ledger:      postgres.NewTransactionRepository(db),
		addCategory: db.AddCategory,
		migrate:     db.Migrate,
		close:       db.Close,
	}, nil
}

func parseAsOfFlag(raw string) (time.Time, error) {
	if raw == "" {
		return recurring.ToDate(time.Now()), nil
	}
	asOf, err := recurring.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of %q (use YYYY-MM-DD)", raw)
	}
	return asOf, nil
}
