package repository

import (
	"context"
	"time"

	"kreatr-scheduler/domain/model"
)

// IContent is the persistence contract for content items and their platform
// posts. All multi-row mutations (schedule, cancel, claim) are transactional
// so a content item and its posts are never observed half-updated.
type IContent interface {
	// GetByID loads a content item with its platform posts.
	GetByID(ctx context.Context, id int64) (*model.ContentItem, error)

	// ScheduleContent moves a content item into scheduled state and inserts
	// its platform posts in one transaction.
	ScheduleContent(ctx context.Context, contentID int64, scheduledAt time.Time, posts []*model.PlatformPost) error

	// Reschedule updates scheduled_at only; platform posts are untouched.
	Reschedule(ctx context.Context, contentID int64, scheduledAt time.Time) error

	// CancelSchedule returns the item to draft, clears scheduled_at, and
	// deletes only its still-scheduled platform posts.
	CancelSchedule(ctx context.Context, contentID int64) error

	// FindDueContent returns scheduled items whose time has passed, oldest
	// first, with platform posts attached. limit bounds per-tick work.
	FindDueContent(ctx context.Context, now time.Time, limit int) ([]*model.ContentItem, error)

	// ClaimForPublishing atomically flips an item (and its scheduled posts)
	// from scheduled to publishing. Returns false when another tick already
	// claimed it.
	ClaimForPublishing(ctx context.Context, contentID int64) (bool, error)

	// UpdateContentStatus resolves the content-level aggregate status.
	UpdateContentStatus(ctx context.Context, contentID int64, status string, publishedAt *time.Time) error

	// UpdatePlatformPostStatus records one platform attempt outcome.
	UpdatePlatformPostStatus(ctx context.Context, postID int64, status string, platformID *string, publishedAt *time.Time, errMsg *string, retryable bool) error

	// FindScheduledInRange lists a workspace's scheduled items between two times.
	FindScheduledInRange(ctx context.Context, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error)

	// QueueStatus derives the scheduling queue aggregate for a workspace.
	QueueStatus(ctx context.Context, workspaceID int64, now time.Time) (*model.QueueStatus, error)

	// FindRetryablePosts returns failed, retry-eligible platform posts (oldest
	// first, bounded) with no content loaded; callers fetch parents as needed.
	FindRetryablePosts(ctx context.Context, limit int) ([]*model.PlatformPost, error)

	// AllPostsPublished reports whether every post under the content item has
	// been published.
	AllPostsPublished(ctx context.Context, contentID int64) (bool, error)

	// CountPostsByStatus groups platform posts by status for monitoring.
	CountPostsByStatus(ctx context.Context) (*model.DispatchStats, error)
}
