package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// EnsureContentSchemaMSSQL ensures columns used by the dispatcher exist in MSSQL tables.
func EnsureContentSchemaMSSQL(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Helper to add a column if missing via COL_LENGTH check
	addIfMissing := func(table, column, ddl string) error {
		q := fmt.Sprintf(`IF COL_LENGTH('%s', '%s') IS NULL BEGIN %s END`, table, column, ddl)
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure column %s.%s: %w", table, column, err)
		}
		return nil
	}
	if err := addIfMissing("dbo.platform_posts", "retryable", "ALTER TABLE dbo.[platform_posts] ADD retryable BIT NOT NULL DEFAULT 0"); err != nil {
		return err
	}
	if err := addIfMissing("dbo.platform_posts", "error_message", "ALTER TABLE dbo.[platform_posts] ADD error_message NVARCHAR(MAX) NULL"); err != nil {
		return err
	}
	if err := addIfMissing("dbo.platform_posts", "platform_id", "ALTER TABLE dbo.[platform_posts] ADD platform_id NVARCHAR(255) NULL"); err != nil {
		return err
	}
	if err := addIfMissing("dbo.content_items", "published_at", "ALTER TABLE dbo.[content_items] ADD published_at DATETIMEOFFSET NULL"); err != nil {
		return err
	}
	return nil
}
