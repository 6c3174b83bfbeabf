package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"kreatr-scheduler/domain/model"
)

func contentRows(t *testing.T, now time.Time) *sqlmock.Rows {
	t.Helper()
	return sqlmock.NewRows([]string{
		"id", "workspace_id", "author_id", "title", "caption", "hashtags", "media_refs",
		"status", "scheduled_at", "published_at", "created_at", "updated_at",
	}).AddRow(
		1, 7, "user-1", "Launch teaser", "We are live", "{launch,teaser}", "{https://cdn.example.com/teaser.mp4}",
		model.ContentStatusScheduled, now.Add(-time.Minute), nil, now.Add(-time.Hour), now.Add(-time.Minute),
	)
}

func postRows(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "content_id", "platform", "account_id", "status", "platform_id",
		"published_at", "error_message", "retryable", "created_at", "updated_at",
	}).AddRow(
		11, 1, model.PlatformTwitter, 21, model.PostStatusScheduled, nil, nil, nil, false, now, now,
	)
}

func TestContentRepository_FindDueContent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT (.+) FROM content_items\s+WHERE status=\$1 AND scheduled_at<=\$2`).
		WithArgs(model.ContentStatusScheduled, now, 50).
		WillReturnRows(contentRows(t, now))
	mock.ExpectQuery(`SELECT (.+) FROM platform_posts WHERE content_id=\$1`).
		WithArgs(int64(1)).
		WillReturnRows(postRows(now))

	items, err := repo.FindDueContent(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, int64(1), items[0].ID)
	require.Equal(t, []string{"launch", "teaser"}, items[0].Hashtags)
	require.Len(t, items[0].Posts, 1)
	require.Equal(t, model.PlatformTwitter, items[0].Posts[0].Platform)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_ClaimForPublishing_Wins(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE content_items SET status=\$1`).
		WithArgs(model.ContentStatusPublishing, sqlmock.AnyArg(), int64(1), model.ContentStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE platform_posts SET status=\$1`).
		WithArgs(model.PostStatusPublishing, sqlmock.AnyArg(), int64(1), model.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	claimed, err := repo.ClaimForPublishing(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_ClaimForPublishing_AlreadyClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE content_items SET status=\$1`).
		WithArgs(model.ContentStatusPublishing, sqlmock.AnyArg(), int64(1), model.ContentStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	claimed, err := repo.ClaimForPublishing(context.Background(), 1)
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_ScheduleContent_SupersedesFailedPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	scheduledAt := time.Now().UTC().Add(time.Hour)
	posts := []*model.PlatformPost{
		{ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE content_items SET status=\$1, scheduled_at=\$2, published_at=NULL`).
		WithArgs(model.ContentStatusScheduled, scheduledAt, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM platform_posts WHERE content_id=$1 AND status=$2`)).
		WithArgs(int64(1), model.PostStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO platform_posts`).
		WithArgs(int64(1), model.PlatformTwitter, int64(21), model.PostStatusScheduled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(13, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ScheduleContent(context.Background(), 1, scheduledAt, posts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_CancelSchedule_RemovesOnlyPendingPosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE content_items SET status=\$1, scheduled_at=NULL`).
		WithArgs(model.ContentStatusDraft, sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM platform_posts WHERE content_id=$1 AND status=$2`)).
		WithArgs(int64(1), model.PostStatusScheduled).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.CancelSchedule(context.Background(), 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_QueueStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WithArgs(now.Add(24*time.Hour), int64(7), model.ContentStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"count", "filtered"}).AddRow(5, 2))
	mock.ExpectQuery(`SELECT (.+) FROM content_items\s+WHERE workspace_id=\$1 AND status=\$2`).
		WithArgs(int64(7), model.ContentStatusScheduled).
		WillReturnRows(contentRows(t, now))

	qs, err := repo.QueueStatus(context.Background(), 7, now)
	require.NoError(t, err)
	require.Equal(t, int64(5), qs.TotalScheduled)
	require.Equal(t, int64(2), qs.UpcomingWithin24h)
	require.NotNil(t, qs.NextItem)
	require.Equal(t, int64(1), qs.NextItem.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_QueueStatus_EmptyQueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT COUNT\(\*\), COUNT\(\*\) FILTER`).
		WithArgs(now.Add(24*time.Hour), int64(7), model.ContentStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"count", "filtered"}).AddRow(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM content_items\s+WHERE workspace_id=\$1 AND status=\$2`).
		WithArgs(int64(7), model.ContentStatusScheduled).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	qs, err := repo.QueueStatus(context.Background(), 7, now)
	require.NoError(t, err)
	require.Equal(t, int64(0), qs.TotalScheduled)
	require.Nil(t, qs.NextItem)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_FindRetryablePosts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	now := time.Now().UTC()
	msg := "connection reset"

	rows := sqlmock.NewRows([]string{
		"id", "content_id", "platform", "account_id", "status", "platform_id",
		"published_at", "error_message", "retryable", "created_at", "updated_at",
	}).AddRow(12, 1, model.PlatformInstagram, 22, model.PostStatusFailed, nil, nil, msg, true, now, now)

	mock.ExpectQuery(`SELECT (.+) FROM platform_posts\s+WHERE status=\$1 AND retryable=true`).
		WithArgs(model.PostStatusFailed, 10).
		WillReturnRows(rows)

	posts, err := repo.FindRetryablePosts(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	require.True(t, posts[0].Retryable)
	require.NotNil(t, posts[0].ErrorMessage)
	require.Equal(t, msg, *posts[0].ErrorMessage)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_AllPostsPublished(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM platform_posts WHERE content_id=$1 AND status<>$2`)).
		WithArgs(int64(1), model.PostStatusPublished).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	done, err := repo.AllPostsPublished(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, done)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestContentRepository_UpdatePlatformPostStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewContentRepository(db)
	platformID := "tw-1"
	now := time.Now().UTC()

	mock.ExpectExec(`UPDATE platform_posts SET status=\$1, platform_id=\$2`).
		WithArgs(model.PostStatusPublished, platformID, now, nil, false, sqlmock.AnyArg(), int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.UpdatePlatformPostStatus(context.Background(), 11, model.PostStatusPublished, &platformID, &now, nil, false)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
