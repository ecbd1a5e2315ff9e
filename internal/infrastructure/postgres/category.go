package postgres

import (
	"context"
	"fmt"
)

// AddCategory inserts or renames a category. Templates read the name for
// fallback descriptions.
func (db *DB) AddCategory(ctx context.Context, id string, userID int64, name, categoryType string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, type = EXCLUDED.type
	`, id, userID, name, categoryType)
	if err != nil {
		return fmt.Errorf("failed to add category: %w", err)
	}
	return nil
}
