package usecase

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/cache"
	"kreatr-scheduler/infrastructure/logger"
)

// Validation errors surfaced to the API layer. Never retried automatically.
var (
	ErrNotFound        = errors.New("content not found")
	ErrForbidden       = errors.New("not a member of the content's workspace")
	ErrInvalidSchedule = errors.New("scheduled time must be in the future")
	ErrNoActiveAccount = errors.New("platform has no active linked account")
	ErrInvalidPlatform = errors.New("unsupported platform")
	ErrConflict        = errors.New("content is not in a schedulable state")
)

const queueStatusTTL = 30 * time.Second

type IScheduleUsecase interface {
	Schedule(ctx context.Context, userID string, contentID int64, scheduledAt time.Time, platforms []string) (*model.ContentItem, error)
	Reschedule(ctx context.Context, userID string, contentID int64, scheduledAt time.Time) (*model.ContentItem, error)
	Cancel(ctx context.Context, userID string, contentID int64) (*model.ContentItem, error)
	GetScheduled(ctx context.Context, userID string, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error)
	GetQueueStatus(ctx context.Context, userID string, workspaceID int64) (*model.QueueStatus, error)
}

type scheduleUsecase struct {
	contentRepo   repository.IContent
	accountRepo   repository.IPlatformAccount
	workspaceRepo repository.IWorkspace
	queueCache    cache.IQueueCache // optional
	now           func() time.Time
}

func NewScheduleUsecase(
	contentRepo repository.IContent,
	accountRepo repository.IPlatformAccount,
	workspaceRepo repository.IWorkspace,
	queueCache cache.IQueueCache,
) IScheduleUsecase {
	return &scheduleUsecase{
		contentRepo:   contentRepo,
		accountRepo:   accountRepo,
		workspaceRepo: workspaceRepo,
		queueCache:    queueCache,
		now:           time.Now,
	}
}

// loadOwned fetches the content item and enforces workspace membership.
func (u *scheduleUsecase) loadOwned(ctx context.Context, userID string, contentID int64) (*model.ContentItem, error) {
	content, err := u.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	member, err := u.workspaceRepo.IsMember(ctx, content.WorkspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrForbidden
	}
	return content, nil
}

func (u *scheduleUsecase) Schedule(ctx context.Context, userID string, contentID int64, scheduledAt time.Time, platforms []string) (*model.ContentItem, error) {
	if !scheduledAt.After(u.now()) {
		return nil, ErrInvalidSchedule
	}
	if len(platforms) == 0 {
		return nil, ErrInvalidPlatform
	}

	content, err := u.loadOwned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if !model.CanTransitionStatus(content.Status, model.ContentStatusScheduled) {
		return nil, ErrConflict
	}

	// One platform post per (platform, active account) pair. Every requested
	// platform must have at least one usable account before anything is written.
	var posts []*model.PlatformPost
	seen := make(map[string]struct{}, len(platforms))
	for _, p := range platforms {
		p = strings.ToLower(p)
		if !model.ValidatePlatform(p) {
			return nil, ErrInvalidPlatform
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		accounts, err := u.accountRepo.GetActiveAccounts(ctx, content.WorkspaceID, p)
		if err != nil {
			return nil, err
		}
		if len(accounts) == 0 {
			return nil, ErrNoActiveAccount
		}
		for _, acc := range accounts {
			posts = append(posts, &model.PlatformPost{
				ContentID: content.ID,
				Platform:  p,
				AccountID: acc.ID,
				Status:    model.PostStatusScheduled,
			})
		}
	}

	if err := u.contentRepo.ScheduleContent(ctx, content.ID, scheduledAt.UTC(), posts); err != nil {
		return nil, err
	}
	u.invalidateQueueStatus(ctx, content.WorkspaceID)
	logger.GetLogger().
		WithField("content_id", content.ID).
		WithField("scheduled_at", scheduledAt.UTC()).
		WithField("posts", len(posts)).
		Info("Content scheduled")
	return u.contentRepo.GetByID(ctx, content.ID)
}

// Reschedule moves the publication time. The future-time constraint is applied
// here as well as on the initial schedule; moving an item into the past would
// just make the next tick publish it immediately.
func (u *scheduleUsecase) Reschedule(ctx context.Context, userID string, contentID int64, scheduledAt time.Time) (*model.ContentItem, error) {
	if !scheduledAt.After(u.now()) {
		return nil, ErrInvalidSchedule
	}
	content, err := u.loadOwned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if content.Status != model.ContentStatusScheduled {
		return nil, ErrConflict
	}
	if err := u.contentRepo.Reschedule(ctx, content.ID, scheduledAt.UTC()); err != nil {
		return nil, err
	}
	u.invalidateQueueStatus(ctx, content.WorkspaceID)
	return u.contentRepo.GetByID(ctx, content.ID)
}

// Cancel is only legal while the item is still scheduled; once a tick has
// claimed it for publishing the outcome is already in flight.
func (u *scheduleUsecase) Cancel(ctx context.Context, userID string, contentID int64) (*model.ContentItem, error) {
	content, err := u.loadOwned(ctx, userID, contentID)
	if err != nil {
		return nil, err
	}
	if content.Status != model.ContentStatusScheduled {
		return nil, ErrConflict
	}
	if err := u.contentRepo.CancelSchedule(ctx, content.ID); err != nil {
		return nil, err
	}
	u.invalidateQueueStatus(ctx, content.WorkspaceID)
	logger.GetLogger().WithField("content_id", content.ID).Info("Schedule cancelled")
	return u.contentRepo.GetByID(ctx, content.ID)
}

func (u *scheduleUsecase) GetScheduled(ctx context.Context, userID string, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error) {
	member, err := u.workspaceRepo.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrForbidden
	}
	return u.contentRepo.FindScheduledInRange(ctx, workspaceID, from, to)
}

func (u *scheduleUsecase) GetQueueStatus(ctx context.Context, userID string, workspaceID int64) (*model.QueueStatus, error) {
	member, err := u.workspaceRepo.IsMember(ctx, workspaceID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrForbidden
	}
	if u.queueCache != nil {
		if qs, err := u.queueCache.GetQueueStatus(ctx, workspaceID); err == nil && qs != nil {
			return qs, nil
		}
	}
	qs, err := u.contentRepo.QueueStatus(ctx, workspaceID, u.now())
	if err != nil {
		return nil, err
	}
	if u.queueCache != nil {
		if err := u.queueCache.SetQueueStatus(ctx, workspaceID, qs, queueStatusTTL); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to cache queue status")
		}
	}
	return qs, nil
}

func (u *scheduleUsecase) invalidateQueueStatus(ctx context.Context, workspaceID int64) {
	if u.queueCache == nil {
		return
	}
	if err := u.queueCache.InvalidateQueueStatus(ctx, workspaceID); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Failed to invalidate queue status cache")
	}
}
