package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a single-file local database holding templates, categories and
// the ledger. It backs the admin CLI when no postgres is available.
type Store struct {
	conn   *sql.DB
	dbPath string
}

// Open opens or creates the database at dbPath.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// One writer keeps sqlite from returning SQLITE_BUSY under the worker pool.
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{conn: conn, dbPath: dbPath}
	if err := store.initializeSchema(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Printf("Opened sqlite store at %s", dbPath)
	return store, nil
}

// Dates are stored as YYYY-MM-DD text and amounts as decimal text so
// neither goes through float or driver time conversion.
func (s *Store) initializeSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS categories (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			type TEXT NOT NULL CHECK (type IN ('income', 'expense'))
		);

		CREATE TABLE IF NOT EXISTS recurring_templates (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			category_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			frequency TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT,
			next_due_date TEXT NOT NULL,
			is_active INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_templates_due ON recurring_templates(user_id, is_active, next_due_date);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			category_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			transaction_date TEXT NOT NULL,
			recurring_template_id TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_date ON transactions(user_id, transaction_date DESC);
	`

	_, err := s.conn.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Templates returns the recurring template repository backed by this store.
func (s *Store) Templates() *TemplateRepository {
	return &TemplateRepository{conn: s.conn}
}

// Transactions returns the ledger backed by this store.
func (s *Store) Transactions() *TransactionRepository {
	return &TransactionRepository{conn: s.conn}
}

// AddCategory inserts or renames a category. Templates only reference
// categories; their name is used for fallback descriptions.
func (s *Store) AddCategory(ctx context.Context, id string, userID int64, name, categoryType string) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type
	`, id, userID, name, categoryType)
	if err != nil {
		return fmt.Errorf("failed to add category: %w", err)
	}
	return nil
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
