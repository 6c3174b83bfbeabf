package repository

import (
	"context"
	"time"
)

// DispatchAttempt is one append-only record of a publish attempt.
type DispatchAttempt struct {
	ContentID    int64     `bson:"content_id" json:"content_id"`
	PostID       int64     `bson:"post_id" json:"post_id"`
	WorkspaceID  int64     `bson:"workspace_id" json:"workspace_id"`
	Platform     string    `bson:"platform" json:"platform"`
	Status       string    `bson:"status" json:"status"`
	PlatformID   *string   `bson:"platform_id,omitempty" json:"platform_id,omitempty"`
	ErrorMessage *string   `bson:"error_message,omitempty" json:"error_message,omitempty"`
	AttemptedAt  time.Time `bson:"attempted_at" json:"attempted_at"`
}

// IDispatchHistory records publish attempts for audit/debugging. Best-effort:
// the dispatcher logs and continues when history writes fail.
type IDispatchHistory interface {
	RecordAttempts(ctx context.Context, attempts []*DispatchAttempt) error
	ListByContent(ctx context.Context, contentID int64, limit int) ([]*DispatchAttempt, error)
}
