package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
)

// ContentRepositoryMSSQL is the Azure SQL variant of the content store used in
// production. Hashtags and media refs are stored as JSON text since SQL Server
// has no array type.
type ContentRepositoryMSSQL struct {
	db *sql.DB
}

func NewContentRepositoryMSSQL(db *sql.DB) *ContentRepositoryMSSQL {
	return &ContentRepositoryMSSQL{db: db}
}

func encodeList(v []string) string {
	if len(v) == 0 {
		return "[]"
	}
	raw, _ := json.Marshal(v)
	return string(raw)
}

func decodeList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}

func (r *ContentRepositoryMSSQL) scanContentRow(row interface{ Scan(...interface{}) error }) (*model.ContentItem, error) {
	item := &model.ContentItem{}
	var hashtags, mediaRefs string
	var scheduledAt, publishedAt sql.NullTime
	err := row.Scan(
		&item.ID, &item.WorkspaceID, &item.AuthorID, &item.Title, &item.Caption,
		&hashtags, &mediaRefs, &item.Status, &scheduledAt, &publishedAt,
		&item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Hashtags = decodeList(hashtags)
	item.MediaRefs = decodeList(mediaRefs)
	if scheduledAt.Valid {
		item.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	return item, nil
}

func (r *ContentRepositoryMSSQL) GetByID(ctx context.Context, id int64) (*model.ContentItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_items WHERE id=@p1`, id)
	item, err := r.scanContentRow(row)
	if err != nil {
		return nil, err
	}
	item.Posts, err = r.loadPosts(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ContentRepositoryMSSQL) loadPosts(ctx context.Context, contentID int64) ([]*model.PlatformPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM platform_posts WHERE content_id=@p1 ORDER BY id ASC`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []*model.PlatformPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *ContentRepositoryMSSQL) ScheduleContent(ctx context.Context, contentID int64, scheduledAt time.Time, posts []*model.PlatformPost) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx,
		`UPDATE content_items SET status=@p1, scheduled_at=@p2, published_at=NULL, updated_at=@p3 WHERE id=@p4`,
		model.ContentStatusScheduled, scheduledAt, now, contentID,
	); err != nil {
		return err
	}
	// Scheduling a previously failed item supersedes its failed posts; the new
	// attempt owns the (platform, account) pairs and the old rows must not stay
	// in the retry pool. Published posts are kept for history.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM platform_posts WHERE content_id=@p1 AND status=@p2`,
		contentID, model.PostStatusFailed,
	); err != nil {
		return err
	}
	for _, p := range posts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO platform_posts (content_id, platform, account_id, status, retryable, created_at, updated_at)
			 VALUES (@p1,@p2,@p3,@p4,0,@p5,@p5)`,
			contentID, p.Platform, p.AccountID, model.PostStatusScheduled, now,
		); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (r *ContentRepositoryMSSQL) Reschedule(ctx context.Context, contentID int64, scheduledAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET scheduled_at=@p1, updated_at=@p2 WHERE id=@p3`,
		scheduledAt, time.Now().UTC(), contentID,
	)
	return err
}

func (r *ContentRepositoryMSSQL) CancelSchedule(ctx context.Context, contentID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx,
		`UPDATE content_items SET status=@p1, scheduled_at=NULL, updated_at=@p2 WHERE id=@p3`,
		model.ContentStatusDraft, time.Now().UTC(), contentID,
	); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM platform_posts WHERE content_id=@p1 AND status=@p2`,
		contentID, model.PostStatusScheduled,
	); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func (r *ContentRepositoryMSSQL) FindDueContent(ctx context.Context, now time.Time, limit int) ([]*model.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p1) `+contentColumns+` FROM content_items
		 WHERE status=@p2 AND scheduled_at<=@p3
		 ORDER BY scheduled_at ASC`,
		limit, model.ContentStatusScheduled, now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*model.ContentItem
	for rows.Next() {
		item, err := r.scanContentRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Posts, err = r.loadPosts(ctx, item.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *ContentRepositoryMSSQL) ClaimForPublishing(ctx context.Context, contentID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`UPDATE content_items SET status=@p1, updated_at=@p2 WHERE id=@p3 AND status=@p4`,
		model.ContentStatusPublishing, now, contentID, model.ContentStatusScheduled,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return false, nil
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE platform_posts SET status=@p1, updated_at=@p2 WHERE content_id=@p3 AND status=@p4`,
		model.PostStatusPublishing, now, contentID, model.PostStatusScheduled,
	); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ContentRepositoryMSSQL) UpdateContentStatus(ctx context.Context, contentID int64, status string, publishedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET status=@p1, published_at=@p2, updated_at=@p3 WHERE id=@p4`,
		status, publishedAt, time.Now().UTC(), contentID,
	)
	return err
}

func (r *ContentRepositoryMSSQL) UpdatePlatformPostStatus(ctx context.Context, postID int64, status string, platformID *string, publishedAt *time.Time, errMsg *string, retryable bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE platform_posts SET status=@p1, platform_id=@p2, published_at=@p3, error_message=@p4, retryable=@p5, updated_at=@p6 WHERE id=@p7`,
		status, platformID, publishedAt, errMsg, retryable, time.Now().UTC(), postID,
	)
	return err
}

func (r *ContentRepositoryMSSQL) FindScheduledInRange(ctx context.Context, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM content_items
		 WHERE workspace_id=@p1 AND status=@p2 AND scheduled_at>=@p3 AND scheduled_at<=@p4
		 ORDER BY scheduled_at ASC`,
		workspaceID, model.ContentStatusScheduled, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*model.ContentItem
	for rows.Next() {
		item, err := r.scanContentRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.Posts, err = r.loadPosts(ctx, item.ID); err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (r *ContentRepositoryMSSQL) QueueStatus(ctx context.Context, workspaceID int64, now time.Time) (*model.QueueStatus, error) {
	qs := &model.QueueStatus{}
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), SUM(CASE WHEN scheduled_at<=@p1 THEN 1 ELSE 0 END)
		 FROM content_items WHERE workspace_id=@p2 AND status=@p3`,
		now.Add(24*time.Hour), workspaceID, model.ContentStatusScheduled,
	)
	var upcoming sql.NullInt64
	if err := row.Scan(&qs.TotalScheduled, &upcoming); err != nil {
		return nil, err
	}
	qs.UpcomingWithin24h = upcoming.Int64
	next := r.db.QueryRowContext(ctx,
		`SELECT TOP 1 `+contentColumns+` FROM content_items
		 WHERE workspace_id=@p1 AND status=@p2
		 ORDER BY scheduled_at ASC`,
		workspaceID, model.ContentStatusScheduled,
	)
	item, err := r.scanContentRow(next)
	if err != nil {
		if err == sql.ErrNoRows {
			return qs, nil
		}
		return nil, err
	}
	qs.NextItem = item
	return qs, nil
}

func (r *ContentRepositoryMSSQL) FindRetryablePosts(ctx context.Context, limit int) ([]*model.PlatformPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT TOP (@p1) `+postColumns+` FROM platform_posts
		 WHERE status=@p2 AND retryable=1
		 ORDER BY updated_at ASC`,
		limit, model.PostStatusFailed,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var posts []*model.PlatformPost
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *ContentRepositoryMSSQL) AllPostsPublished(ctx context.Context, contentID int64) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM platform_posts WHERE content_id=@p1 AND status<>@p2`,
		contentID, model.PostStatusPublished,
	)
	var remaining int64
	if err := row.Scan(&remaining); err != nil {
		return false, err
	}
	return remaining == 0, nil
}

func (r *ContentRepositoryMSSQL) CountPostsByStatus(ctx context.Context) (*model.DispatchStats, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM platform_posts GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	stats := &model.DispatchStats{}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		switch status {
		case model.PostStatusScheduled:
			stats.Scheduled = count
		case model.PostStatusPublishing:
			stats.Publishing = count
		case model.PostStatusPublished:
			stats.Published = count
		case model.PostStatusFailed:
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

var _ repository.IContent = (*ContentRepositoryMSSQL)(nil)
