package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/logger"
	"kreatr-scheduler/infrastructure/pubsub"
	"kreatr-scheduler/infrastructure/servicebus"
)

const (
	defaultBatchSize       = 50
	defaultItemParallelism = 4
	defaultPostParallelism = 3
	defaultPublishTimeout  = 30 * time.Second
	defaultRetryBatch      = 10
)

// IDispatchUsecase is the scheduled-dispatch engine. One ProcessScheduledPosts
// call is one tick: it claims due content, fans publication out per platform,
// and writes aggregate status back. Safe to invoke concurrently; the claim
// guarantees each item is dispatched once.
type IDispatchUsecase interface {
	ProcessScheduledPosts(ctx context.Context) (*model.TickSummary, error)
	RetryFailedPosts(ctx context.Context, limit int) (*model.RetrySummary, error)
	GetStats(ctx context.Context) (*model.DispatchStats, error)
}

type dispatchUsecase struct {
	contentRepo repository.IContent
	accountRepo repository.IPlatformAccount
	publishers  map[string]repository.IPublisher

	// optional collaborators; the engine degrades gracefully without them
	history   repository.IDispatchHistory
	events    pubsub.IEventEmitter
	alerts    servicebus.IAlertNotifier
	broadcast func(*model.PlatformPost, *model.ContentItem)

	batchSize       int
	itemParallelism int
	postParallelism int
	publishTimeout  time.Duration
	now             func() time.Time
}

// DispatchOption tunes the engine.
type DispatchOption func(*dispatchUsecase)

func WithBatchSize(n int) DispatchOption {
	return func(u *dispatchUsecase) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

func WithPublishTimeout(d time.Duration) DispatchOption {
	return func(u *dispatchUsecase) {
		if d > 0 {
			u.publishTimeout = d
		}
	}
}

func WithParallelism(items, posts int) DispatchOption {
	return func(u *dispatchUsecase) {
		if items > 0 {
			u.itemParallelism = items
		}
		if posts > 0 {
			u.postParallelism = posts
		}
	}
}

// WithBroadcaster attaches a realtime status callback (SSE hub).
func WithBroadcaster(fn func(*model.PlatformPost, *model.ContentItem)) DispatchOption {
	return func(u *dispatchUsecase) {
		u.broadcast = fn
	}
}

func NewDispatchUsecase(
	contentRepo repository.IContent,
	accountRepo repository.IPlatformAccount,
	publishers map[string]repository.IPublisher,
	history repository.IDispatchHistory,
	events pubsub.IEventEmitter,
	alerts servicebus.IAlertNotifier,
	opts ...DispatchOption,
) IDispatchUsecase {
	u := &dispatchUsecase{
		contentRepo:     contentRepo,
		accountRepo:     accountRepo,
		publishers:      publishers,
		history:         history,
		events:          events,
		alerts:          alerts,
		batchSize:       defaultBatchSize,
		itemParallelism: defaultItemParallelism,
		postParallelism: defaultPostParallelism,
		publishTimeout:  defaultPublishTimeout,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *dispatchUsecase) ProcessScheduledPosts(ctx context.Context) (*model.TickSummary, error) {
	now := u.now().UTC()
	due, err := u.contentRepo.FindDueContent(ctx, now, u.batchSize)
	if err != nil {
		return nil, fmt.Errorf("loading due content: %w", err)
	}
	summary := &model.TickSummary{Due: len(due)}
	if len(due) == 0 {
		return summary, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.itemParallelism)
	for _, item := range due {
		item := item
		g.Go(func() error {
			claimed, err := u.contentRepo.ClaimForPublishing(gctx, item.ID)
			if err != nil {
				logger.GetLogger().
					WithField("content_id", item.ID).
					WithField("error", err).
					Error("Claim failed; skipping item")
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			if !claimed {
				// Another tick got here first.
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			published := u.processItem(gctx, item)
			mu.Lock()
			summary.Claimed++
			if published {
				summary.Published++
			} else {
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // per-item errors are recorded, never propagated

	logger.GetLogger().
		WithField("due", summary.Due).
		WithField("claimed", summary.Claimed).
		WithField("published", summary.Published).
		WithField("failed", summary.Failed).
		WithField("skipped", summary.Skipped).
		Info("Dispatch tick completed")

	if summary.Failed > 0 && u.alerts != nil {
		if err := u.alerts.NotifyFailures(ctx, summary); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failure alert not delivered")
		}
	}
	return summary, nil
}

// processItem publishes every scheduled post of one claimed content item and
// resolves the content-level aggregate. Returns true when all posts published.
func (u *dispatchUsecase) processItem(ctx context.Context, item *model.ContentItem) bool {
	var pending []*model.PlatformPost
	for _, p := range item.Posts {
		if p.Status == model.PostStatusScheduled || p.Status == model.PostStatusPublishing {
			pending = append(pending, p)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.postParallelism)
	for _, post := range pending {
		post := post
		g.Go(func() error {
			u.publishOne(gctx, item, post)
			return nil
		})
	}
	_ = g.Wait() // barrier: all platform attempts finish before aggregation

	// The aggregate spans every post under the item, not just this tick's
	// attempts. A failed post left over from an earlier pass keeps the
	// content failed even when the fresh attempts all land.
	allPublished := true
	for _, p := range item.Posts {
		if p.Status != model.PostStatusPublished {
			allPublished = false
			break
		}
	}

	now := u.now().UTC()
	status := model.ContentStatusFailed
	var publishedAt *time.Time
	if allPublished {
		status = model.ContentStatusPublished
		publishedAt = &now
	}
	if err := u.contentRepo.UpdateContentStatus(ctx, item.ID, status, publishedAt); err != nil {
		logger.GetLogger().
			WithField("content_id", item.ID).
			WithField("error", err).
			Error("Failed to persist content aggregate status")
	}
	u.emitOutcome(ctx, item, status)
	return allPublished
}

// publishOne runs a single platform attempt and records its outcome. It never
// returns an error: a failing or panicking publisher becomes a failed post.
func (u *dispatchUsecase) publishOne(ctx context.Context, item *model.ContentItem, post *model.PlatformPost) bool {
	platformID, pubErr := u.callPublisher(ctx, item, post)
	now := u.now().UTC()

	if pubErr == nil {
		post.Status = model.PostStatusPublished
		post.PlatformID = &platformID
		post.PublishedAt = &now
		post.ErrorMessage = nil
		post.Retryable = false
		if err := u.contentRepo.UpdatePlatformPostStatus(ctx, post.ID, model.PostStatusPublished, &platformID, &now, nil, false); err != nil {
			logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("Failed to persist published post")
		}
	} else {
		msg := pubErr.Message
		post.Status = model.PostStatusFailed
		post.ErrorMessage = &msg
		post.Retryable = pubErr.Retryable()
		if err := u.contentRepo.UpdatePlatformPostStatus(ctx, post.ID, model.PostStatusFailed, nil, nil, &msg, pubErr.Retryable()); err != nil {
			logger.GetLogger().WithField("post_id", post.ID).WithField("error", err).Error("Failed to persist failed post")
		}
		logger.GetLogger().
			WithField("post_id", post.ID).
			WithField("platform", post.Platform).
			WithField("code", string(pubErr.Code)).
			WithField("error", msg).
			Warn("Platform publish failed")
	}

	u.recordAttempt(ctx, item, post)
	if u.broadcast != nil {
		u.broadcast(post, item)
	}
	return pubErr == nil
}

// callPublisher resolves the publisher and account, bounds the call with the
// publish timeout, and normalizes every failure into a PublishError. Timeouts
// count as transient network errors. Panics inside a publisher are contained.
func (u *dispatchUsecase) callPublisher(ctx context.Context, item *model.ContentItem, post *model.PlatformPost) (platformID string, pubErr *model.PublishError) {
	pub, ok := u.publishers[post.Platform]
	if !ok {
		return "", model.NewPublishError(post.Platform, model.PublishErrUnknown, "no publisher registered for platform")
	}
	account, err := u.accountRepo.GetByID(ctx, post.AccountID)
	if err != nil {
		return "", model.NewPublishError(post.Platform, model.PublishErrUnknown, fmt.Sprintf("account lookup failed: %v", err))
	}
	if account == nil || !account.Active {
		return "", model.NewPublishError(post.Platform, model.PublishErrAuthExpired, "linked account is no longer active")
	}

	pubCtx, cancel := context.WithTimeout(ctx, u.publishTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.GetLogger().
				WithField("platform", post.Platform).
				WithField("panic", r).
				Error("Publisher panicked")
			pubErr = model.NewPublishError(post.Platform, model.PublishErrUnknown, fmt.Sprintf("publisher panic: %v", r))
		}
	}()

	id, err := pub.Publish(pubCtx, item, account)
	if err != nil {
		pe := model.AsPublishError(post.Platform, err)
		if pubCtx.Err() == context.DeadlineExceeded {
			pe = model.NewPublishError(post.Platform, model.PublishErrTransientNetwork, "publish call timed out")
		}
		return "", pe
	}
	return id, nil
}

// RetryFailedPosts re-attempts failed, retry-eligible platform posts in a
// bounded batch. When a retry leaves every post of a content item published,
// the parent is promoted to published as well.
func (u *dispatchUsecase) RetryFailedPosts(ctx context.Context, limit int) (*model.RetrySummary, error) {
	if limit <= 0 {
		limit = defaultRetryBatch
	}
	posts, err := u.contentRepo.FindRetryablePosts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("loading retryable posts: %w", err)
	}
	summary := &model.RetrySummary{Attempted: len(posts)}
	for _, post := range posts {
		item, err := u.contentRepo.GetByID(ctx, post.ContentID)
		if err != nil {
			logger.GetLogger().WithField("content_id", post.ContentID).WithField("error", err).Warn("Retry skipped; parent content not loadable")
			continue
		}
		if u.publishOne(ctx, item, post) {
			summary.Succeeded++
			u.promoteIfComplete(ctx, item)
		}
	}
	return summary, nil
}

// promoteIfComplete lifts a failed content item back to published once every
// one of its posts has succeeded.
func (u *dispatchUsecase) promoteIfComplete(ctx context.Context, item *model.ContentItem) {
	done, err := u.contentRepo.AllPostsPublished(ctx, item.ID)
	if err != nil {
		logger.GetLogger().WithField("content_id", item.ID).WithField("error", err).Warn("Post-retry aggregate check failed")
		return
	}
	if !done {
		return
	}
	now := u.now().UTC()
	if err := u.contentRepo.UpdateContentStatus(ctx, item.ID, model.ContentStatusPublished, &now); err != nil {
		logger.GetLogger().WithField("content_id", item.ID).WithField("error", err).Error("Failed to promote content after retry")
		return
	}
	u.emitOutcome(ctx, item, model.ContentStatusPublished)
	logger.GetLogger().WithField("content_id", item.ID).Info("Content promoted to published after retry")
}

func (u *dispatchUsecase) GetStats(ctx context.Context) (*model.DispatchStats, error) {
	return u.contentRepo.CountPostsByStatus(ctx)
}

func (u *dispatchUsecase) recordAttempt(ctx context.Context, item *model.ContentItem, post *model.PlatformPost) {
	if u.history == nil {
		return
	}
	attempt := &repository.DispatchAttempt{
		ContentID:    item.ID,
		PostID:       post.ID,
		WorkspaceID:  item.WorkspaceID,
		Platform:     post.Platform,
		Status:       post.Status,
		PlatformID:   post.PlatformID,
		ErrorMessage: post.ErrorMessage,
		AttemptedAt:  u.now().UTC(),
	}
	if err := u.history.RecordAttempts(ctx, []*repository.DispatchAttempt{attempt}); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Dispatch history write failed")
	}
}

func (u *dispatchUsecase) emitOutcome(ctx context.Context, item *model.ContentItem, status string) {
	if u.events == nil {
		return
	}
	evt := pubsub.ContentOutcomeEvent{
		ContentID:   item.ID,
		WorkspaceID: item.WorkspaceID,
		Status:      status,
		OccurredAt:  u.now().UTC(),
	}
	if err := u.events.EmitContentOutcome(ctx, evt); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Outcome event not emitted")
	}
}
