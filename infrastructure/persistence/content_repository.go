package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
)

// ContentRepository implements the content store on PostgreSQL.
type ContentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) *ContentRepository { return &ContentRepository{db: db} }

const contentColumns = `id, workspace_id, author_id, title, caption, hashtags, media_refs, status, scheduled_at, published_at, created_at, updated_at`
const postColumns = `id, content_id, platform, account_id, status, platform_id, published_at, error_message, retryable, created_at, updated_at`

func scanContent(row interface{ Scan(...interface{}) error }) (*model.ContentItem, error) {
	item := &model.ContentItem{}
	var scheduledAt, publishedAt sql.NullTime
	err := row.Scan(
		&item.ID, &item.WorkspaceID, &item.AuthorID, &item.Title, &item.Caption,
		pq.Array(&item.Hashtags), pq.Array(&item.MediaRefs),
		&item.Status, &scheduledAt, &publishedAt, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if scheduledAt.Valid {
		item.ScheduledAt = &scheduledAt.Time
	}
	if publishedAt.Valid {
		item.PublishedAt = &publishedAt.Time
	}
	return item, nil
}

func scanPost(row interface{ Scan(...interface{}) error }) (*model.PlatformPost, error) {
	post := &model.PlatformPost{}
	var platformID, errMsg sql.NullString
	var publishedAt sql.NullTime
	err := row.Scan(
		&post.ID, &post.ContentID, &post.Platform, &post.AccountID, &post.Status,
		&platformID, &publishedAt, &errMsg, &post.Retryable, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if platformID.Valid {
		post.PlatformID = &platformID.String
	}
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if errMsg.Valid {
		post.ErrorMessage = &errMsg.String
	}
	return post, nil
}

func (r *ContentRepository) GetByID(ctx context.Context, id int64) (*model.ContentItem, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM content_items WHERE id=$1`, id)
	item, err := scanContent(row)
	if err != nil {
		return nil, err
	}
	item.Posts, err = r.loadPosts(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *ContentRepository) loadPosts(ctx context.Context, contentID int64) ([]*model.PlatformPost, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+` FROM platform_posts WHERE content_id=$1 ORDER BY id ASC`, contentID)
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

func (r *ContentRepository) ScheduleContent(ctx context.Context, contentID int64, scheduledAt time.Time, posts []*model.PlatformPost) error {
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
		`UPDATE content_items SET status=$1, scheduled_at=$2, published_at=NULL, updated_at=$3 WHERE id=$4`,
		model.ContentStatusScheduled, scheduledAt, now, contentID,
	); err != nil {
		return err
	}
	// Scheduling a previously failed item supersedes its failed posts; the new
	// attempt owns the (platform, account) pairs and the old rows must not stay
	// in the retry pool. Published posts are kept for history.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM platform_posts WHERE content_id=$1 AND status=$2`,
		contentID, model.PostStatusFailed,
	); err != nil {
		return err
	}
	for _, p := range posts {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO platform_posts (content_id, platform, account_id, status, retryable, created_at, updated_at)
			 VALUES ($1,$2,$3,$4,false,$5,$5)`,
			contentID, p.Platform, p.AccountID, model.PostStatusScheduled, now,
		); err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

func (r *ContentRepository) Reschedule(ctx context.Context, contentID int64, scheduledAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET scheduled_at=$1, updated_at=$2 WHERE id=$3`,
		scheduledAt, time.Now().UTC(), contentID,
	)
	return err
}

func (r *ContentRepository) CancelSchedule(ctx context.Context, contentID int64) error {
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
		`UPDATE content_items SET status=$1, scheduled_at=NULL, updated_at=$2 WHERE id=$3`,
		model.ContentStatusDraft, time.Now().UTC(), contentID,
	); err != nil {
		return err
	}
	// Posts that already resolved stay for history; only pending ones go.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM platform_posts WHERE content_id=$1 AND status=$2`,
		contentID, model.PostStatusScheduled,
	); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func (r *ContentRepository) FindDueContent(ctx context.Context, now time.Time, limit int) ([]*model.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM content_items
		 WHERE status=$1 AND scheduled_at<=$2
		 ORDER BY scheduled_at ASC LIMIT $3`,
		model.ContentStatusScheduled, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*model.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
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

// ClaimForPublishing is the guard against overlapping ticks: the conditional
// UPDATE succeeds for exactly one caller per scheduled item.
func (r *ContentRepository) ClaimForPublishing(ctx context.Context, contentID int64) (bool, error) {
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
		`UPDATE content_items SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
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
		`UPDATE platform_posts SET status=$1, updated_at=$2 WHERE content_id=$3 AND status=$4`,
		model.PostStatusPublishing, now, contentID, model.PostStatusScheduled,
	); err != nil {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ContentRepository) UpdateContentStatus(ctx context.Context, contentID int64, status string, publishedAt *time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE content_items SET status=$1, published_at=$2, updated_at=$3 WHERE id=$4`,
		status, publishedAt, time.Now().UTC(), contentID,
	)
	return err
}

func (r *ContentRepository) UpdatePlatformPostStatus(ctx context.Context, postID int64, status string, platformID *string, publishedAt *time.Time, errMsg *string, retryable bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE platform_posts SET status=$1, platform_id=$2, published_at=$3, error_message=$4, retryable=$5, updated_at=$6 WHERE id=$7`,
		status, platformID, publishedAt, errMsg, retryable, time.Now().UTC(), postID,
	)
	return err
}

func (r *ContentRepository) FindScheduledInRange(ctx context.Context, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM content_items
		 WHERE workspace_id=$1 AND status=$2 AND scheduled_at>=$3 AND scheduled_at<=$4
		 ORDER BY scheduled_at ASC`,
		workspaceID, model.ContentStatusScheduled, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*model.ContentItem
	for rows.Next() {
		item, err := scanContent(rows)
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

func (r *ContentRepository) QueueStatus(ctx context.Context, workspaceID int64, now time.Time) (*model.QueueStatus, error) {
	qs := &model.QueueStatus{}
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE scheduled_at<=$1) FROM content_items WHERE workspace_id=$2 AND status=$3`,
		now.Add(24*time.Hour), workspaceID, model.ContentStatusScheduled,
	)
	if err := row.Scan(&qs.TotalScheduled, &qs.UpcomingWithin24h); err != nil {
		return nil, err
	}
	next := r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM content_items
		 WHERE workspace_id=$1 AND status=$2
		 ORDER BY scheduled_at ASC LIMIT 1`,
		workspaceID, model.ContentStatusScheduled,
	)
	item, err := scanContent(next)
	if err != nil {
		if err == sql.ErrNoRows {
			return qs, nil
		}
		return nil, err
	}
	qs.NextItem = item
	return qs, nil
}

func (r *ContentRepository) FindRetryablePosts(ctx context.Context, limit int) ([]*model.PlatformPost, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM platform_posts
		 WHERE status=$1 AND retryable=true
		 ORDER BY updated_at ASC LIMIT $2`,
		model.PostStatusFailed, limit,
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

func (r *ContentRepository) AllPostsPublished(ctx context.Context, contentID int64) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM platform_posts WHERE content_id=$1 AND status<>$2`,
		contentID, model.PostStatusPublished,
	)
	var remaining int64
	if err := row.Scan(&remaining); err != nil {
		return false, err
	}
	return remaining == 0, nil
}

func (r *ContentRepository) CountPostsByStatus(ctx context.Context) (*model.DispatchStats, error) {
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

var _ repository.IContent = (*ContentRepository)(nil)
