package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/usecase"
)

func dueItem(contentID int64, posts ...*model.PlatformPost) *model.ContentItem {
	scheduledAt := time.Now().UTC().Add(-time.Minute)
	return &model.ContentItem{
		ID:          contentID,
		WorkspaceID: 7,
		AuthorID:    "user-1",
		Title:       "Launch teaser",
		Caption:     "We are live",
		Hashtags:    []string{"launch"},
		MediaRefs:   []string{"https://cdn.example.com/teaser.mp4"},
		Status:      model.ContentStatusScheduled,
		ScheduledAt: &scheduledAt,
		Posts:       posts,
	}
}

func activeAccount(id int64, platform string) *model.PlatformAccount {
	return &model.PlatformAccount{ID: id, WorkspaceID: 7, Platform: platform, AccessToken: "tok", Active: true}
}

func TestProcessScheduledPosts_AllPlatformsSucceed(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	postA := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	postB := &model.PlatformPost{ID: 12, ContentID: 1, Platform: model.PlatformInstagram, AccountID: 22, Status: model.PostStatusScheduled}
	item := dueItem(1, postA, postB)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, mock.Anything, model.PostStatusPublished, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.Anything).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(21)).Return(activeAccount(21, model.PlatformTwitter), nil)
	accountRepo.On("GetByID", mock.Anything, int64(22)).Return(activeAccount(22, model.PlatformInstagram), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformTwitter: &fakePublisher{platform: model.PlatformTwitter, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "tw-1", nil
		}},
		model.PlatformInstagram: &fakePublisher{platform: model.PlatformInstagram, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "ig-1", nil
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Due)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 0, summary.Skipped)

	// aggregate published with a timestamp
	contentRepo.AssertCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.MatchedBy(func(ts *time.Time) bool { return ts != nil }))
	assert.Equal(t, model.PostStatusPublished, postA.Status)
	require.NotNil(t, postA.PlatformID)
	assert.Equal(t, "tw-1", *postA.PlatformID)
	assert.Equal(t, model.PostStatusPublished, postB.Status)
}

func TestProcessScheduledPosts_PartialFailureKeepsSuccesses(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	postA := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	postB := &model.PlatformPost{ID: 12, ContentID: 1, Platform: model.PlatformInstagram, AccountID: 22, Status: model.PostStatusScheduled}
	item := dueItem(1, postA, postB)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(21)).Return(activeAccount(21, model.PlatformTwitter), nil)
	accountRepo.On("GetByID", mock.Anything, int64(22)).Return(activeAccount(22, model.PlatformInstagram), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformTwitter: &fakePublisher{platform: model.PlatformTwitter, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "tw-1", nil
		}},
		model.PlatformInstagram: &fakePublisher{platform: model.PlatformInstagram, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrTransientNetwork, "connection reset")
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 0, summary.Published)
	assert.Equal(t, 1, summary.Failed)

	// the successful platform post survives the aggregate failure
	assert.Equal(t, model.PostStatusPublished, postA.Status)
	assert.Equal(t, model.PostStatusFailed, postB.Status)
	assert.True(t, postB.Retryable)
	contentRepo.AssertCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil))
}

func TestProcessScheduledPosts_LeftoverFailedPostBlocksPromotion(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	// A failed post from a previous attempt sits next to a fresh scheduled one.
	oldFailed := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusFailed, Retryable: true}
	fresh := &model.PlatformPost{ID: 12, ContentID: 1, Platform: model.PlatformInstagram, AccountID: 22, Status: model.PostStatusScheduled}
	item := dueItem(1, oldFailed, fresh)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(12), model.PostStatusPublished, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(22)).Return(activeAccount(22, model.PlatformInstagram), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformInstagram: &fakePublisher{platform: model.PlatformInstagram, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "ig-9", nil
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Claimed)
	assert.Equal(t, 0, summary.Published)
	assert.Equal(t, 1, summary.Failed)

	// fresh attempt succeeded, but the aggregate stays failed while any post is not published
	assert.Equal(t, model.PostStatusPublished, fresh.Status)
	assert.Equal(t, model.PostStatusFailed, oldFailed.Status)
	contentRepo.AssertCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil))
	contentRepo.AssertNotCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.Anything)
}

func TestProcessScheduledPosts_ClaimLostSkipsItem(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	post := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	item := dueItem(1, post)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(false, nil)

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, map[string]repository.IPublisher{}, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Claimed)
	contentRepo.AssertNotCalled(t, "UpdatePlatformPostStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	contentRepo.AssertNotCalled(t, "UpdateContentStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessScheduledPosts_NoDueContent(t *testing.T) {
	contentRepo := new(MockContentRepo)
	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{}, nil)

	uc := usecase.NewDispatchUsecase(contentRepo, new(MockAccountRepo), map[string]repository.IPublisher{}, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Due)
}

func TestProcessScheduledPosts_UnknownPlatformFailsPost(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	post := &model.PlatformPost{ID: 11, ContentID: 1, Platform: "myspace", AccountID: 21, Status: model.PostStatusScheduled}
	item := dueItem(1, post)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(11), model.PostStatusFailed, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, map[string]repository.IPublisher{}, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, model.PostStatusFailed, post.Status)
	assert.False(t, post.Retryable)
}

func TestProcessScheduledPosts_InactiveAccountIsAuthExpired(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	post := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	item := dueItem(1, post)

	inactive := activeAccount(21, model.PlatformTwitter)
	inactive.Active = false

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(11), model.PostStatusFailed, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(21)).Return(inactive, nil)

	called := false
	publishers := map[string]repository.IPublisher{
		model.PlatformTwitter: &fakePublisher{platform: model.PlatformTwitter, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			called = true
			return "tw-1", nil
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.False(t, called, "publisher must not be invoked for an inactive account")
	assert.Equal(t, model.PostStatusFailed, post.Status)
}

func TestProcessScheduledPosts_PublishTimeoutIsTransient(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	post := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	item := dueItem(1, post)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(11), model.PostStatusFailed, mock.Anything, mock.Anything, mock.Anything, true).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(21)).Return(activeAccount(21, model.PlatformTwitter), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformTwitter: &fakePublisher{platform: model.PlatformTwitter, publish: func(ctx context.Context, _ *model.ContentItem, _ *model.PlatformAccount) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil,
		usecase.WithPublishTimeout(20*time.Millisecond))
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, post.Retryable, "timeouts must stay retryable")
}

func TestProcessScheduledPosts_PublisherPanicIsContained(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	post := &model.PlatformPost{ID: 11, ContentID: 1, Platform: model.PlatformTwitter, AccountID: 21, Status: model.PostStatusScheduled}
	item := dueItem(1, post)

	contentRepo.On("FindDueContent", mock.Anything, mock.Anything, mock.Anything).Return([]*model.ContentItem{item}, nil)
	contentRepo.On("ClaimForPublishing", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(11), model.PostStatusFailed, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusFailed, (*time.Time)(nil)).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(21)).Return(activeAccount(21, model.PlatformTwitter), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformTwitter: &fakePublisher{platform: model.PlatformTwitter, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			panic("nil dereference in vendor SDK")
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.ProcessScheduledPosts(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, model.PostStatusFailed, post.Status)
	require.NotNil(t, post.ErrorMessage)
	assert.Contains(t, *post.ErrorMessage, "panic")
}

func TestRetryFailedPosts_PromotesParentWhenComplete(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	failed := &model.PlatformPost{ID: 12, ContentID: 1, Platform: model.PlatformInstagram, AccountID: 22, Status: model.PostStatusFailed, Retryable: true}
	parent := dueItem(1, failed)
	parent.Status = model.ContentStatusFailed

	contentRepo.On("FindRetryablePosts", mock.Anything, 10).Return([]*model.PlatformPost{failed}, nil)
	contentRepo.On("GetByID", mock.Anything, int64(1)).Return(parent, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(12), model.PostStatusPublished, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("AllPostsPublished", mock.Anything, int64(1)).Return(true, nil)
	contentRepo.On("UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.Anything).Return(nil)
	accountRepo.On("GetByID", mock.Anything, int64(22)).Return(activeAccount(22, model.PlatformInstagram), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformInstagram: &fakePublisher{platform: model.PlatformInstagram, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "ig-2", nil
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.RetryFailedPosts(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Succeeded)
	contentRepo.AssertCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.MatchedBy(func(ts *time.Time) bool { return ts != nil }))
}

func TestRetryFailedPosts_StillIncompleteLeavesParent(t *testing.T) {
	contentRepo := new(MockContentRepo)
	accountRepo := new(MockAccountRepo)

	failed := &model.PlatformPost{ID: 12, ContentID: 1, Platform: model.PlatformInstagram, AccountID: 22, Status: model.PostStatusFailed, Retryable: true}
	parent := dueItem(1, failed)
	parent.Status = model.ContentStatusFailed

	contentRepo.On("FindRetryablePosts", mock.Anything, 10).Return([]*model.PlatformPost{failed}, nil)
	contentRepo.On("GetByID", mock.Anything, int64(1)).Return(parent, nil)
	contentRepo.On("UpdatePlatformPostStatus", mock.Anything, int64(12), model.PostStatusPublished, mock.Anything, mock.Anything, mock.Anything, false).Return(nil)
	contentRepo.On("AllPostsPublished", mock.Anything, int64(1)).Return(false, nil)
	accountRepo.On("GetByID", mock.Anything, int64(22)).Return(activeAccount(22, model.PlatformInstagram), nil)

	publishers := map[string]repository.IPublisher{
		model.PlatformInstagram: &fakePublisher{platform: model.PlatformInstagram, publish: func(context.Context, *model.ContentItem, *model.PlatformAccount) (string, error) {
			return "ig-2", nil
		}},
	}

	uc := usecase.NewDispatchUsecase(contentRepo, accountRepo, publishers, nil, nil, nil)
	summary, err := uc.RetryFailedPosts(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
	contentRepo.AssertNotCalled(t, "UpdateContentStatus", mock.Anything, int64(1), model.ContentStatusPublished, mock.Anything)
}

func TestGetStats_PropagatesRepoError(t *testing.T) {
	contentRepo := new(MockContentRepo)
	contentRepo.On("CountPostsByStatus", mock.Anything).Return(nil, errors.New("connection refused"))

	uc := usecase.NewDispatchUsecase(contentRepo, new(MockAccountRepo), map[string]repository.IPublisher{}, nil, nil, nil)
	_, err := uc.GetStats(context.Background())
	assert.Error(t, err)
}
