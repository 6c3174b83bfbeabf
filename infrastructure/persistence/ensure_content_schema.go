package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureContentSchema adds newer columns used by the dispatcher if they are
// missing. Safe to call at startup; performs metadata lookups and conditional
// ALTER TABLE.
func EnsureContentSchema(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	checks := []struct {
		table  string
		column string
		ddl    string
	}{
		{"platform_posts", "retryable", "ALTER TABLE platform_posts ADD COLUMN retryable BOOLEAN NOT NULL DEFAULT FALSE"},
		{"platform_posts", "error_message", "ALTER TABLE platform_posts ADD COLUMN error_message TEXT"},
		{"platform_posts", "platform_id", "ALTER TABLE platform_posts ADD COLUMN platform_id TEXT"},
		{"content_items", "published_at", "ALTER TABLE content_items ADD COLUMN published_at TIMESTAMPTZ"},
	}

	for _, c := range checks {
		exists, err := columnExists(ctx, db, c.table, c.column)
		if err != nil {
			return err
		}
		if !exists {
			if _, err := db.ExecContext(ctx, c.ddl); err != nil {
				return fmt.Errorf("adding column %s.%s failed: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func columnExists(ctx context.Context, db *sql.DB, table, column string) (bool, error) {
	row := db.QueryRowContext(ctx, `SELECT 1 FROM information_schema.columns WHERE table_name=$1 AND column_name=$2`, table, column)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
