package usecase_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"kreatr-scheduler/domain/model"
)

// Mock implementations

type MockContentRepo struct {
	mock.Mock
}

func (m *MockContentRepo) GetByID(ctx context.Context, id int64) (*model.ContentItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ContentItem), args.Error(1)
}

func (m *MockContentRepo) ScheduleContent(ctx context.Context, contentID int64, scheduledAt time.Time, posts []*model.PlatformPost) error {
	args := m.Called(ctx, contentID, scheduledAt, posts)
	return args.Error(0)
}

func (m *MockContentRepo) Reschedule(ctx context.Context, contentID int64, scheduledAt time.Time) error {
	args := m.Called(ctx, contentID, scheduledAt)
	return args.Error(0)
}

func (m *MockContentRepo) CancelSchedule(ctx context.Context, contentID int64) error {
	args := m.Called(ctx, contentID)
	return args.Error(0)
}

func (m *MockContentRepo) FindDueContent(ctx context.Context, now time.Time, limit int) ([]*model.ContentItem, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ContentItem), args.Error(1)
}

func (m *MockContentRepo) ClaimForPublishing(ctx context.Context, contentID int64) (bool, error) {
	args := m.Called(ctx, contentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockContentRepo) UpdateContentStatus(ctx context.Context, contentID int64, status string, publishedAt *time.Time) error {
	args := m.Called(ctx, contentID, status, publishedAt)
	return args.Error(0)
}

func (m *MockContentRepo) UpdatePlatformPostStatus(ctx context.Context, postID int64, status string, platformID *string, publishedAt *time.Time, errMsg *string, retryable bool) error {
	args := m.Called(ctx, postID, status, platformID, publishedAt, errMsg, retryable)
	return args.Error(0)
}

func (m *MockContentRepo) FindScheduledInRange(ctx context.Context, workspaceID int64, from, to time.Time) ([]*model.ContentItem, error) {
	args := m.Called(ctx, workspaceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ContentItem), args.Error(1)
}

func (m *MockContentRepo) QueueStatus(ctx context.Context, workspaceID int64, now time.Time) (*model.QueueStatus, error) {
	args := m.Called(ctx, workspaceID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueStatus), args.Error(1)
}

func (m *MockContentRepo) FindRetryablePosts(ctx context.Context, limit int) ([]*model.PlatformPost, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PlatformPost), args.Error(1)
}

func (m *MockContentRepo) AllPostsPublished(ctx context.Context, contentID int64) (bool, error) {
	args := m.Called(ctx, contentID)
	return args.Bool(0), args.Error(1)
}

func (m *MockContentRepo) CountPostsByStatus(ctx context.Context) (*model.DispatchStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DispatchStats), args.Error(1)
}

type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) GetActiveAccounts(ctx context.Context, workspaceID int64, platform string) ([]*model.PlatformAccount, error) {
	args := m.Called(ctx, workspaceID, platform)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PlatformAccount), args.Error(1)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id int64) (*model.PlatformAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlatformAccount), args.Error(1)
}

type MockWorkspaceRepo struct {
	mock.Mock
}

func (m *MockWorkspaceRepo) IsMember(ctx context.Context, workspaceID int64, userID string) (bool, error) {
	args := m.Called(ctx, workspaceID, userID)
	return args.Bool(0), args.Error(1)
}

type MockQueueCache struct {
	mock.Mock
}

func (m *MockQueueCache) GetQueueStatus(ctx context.Context, workspaceID int64) (*model.QueueStatus, error) {
	args := m.Called(ctx, workspaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QueueStatus), args.Error(1)
}

func (m *MockQueueCache) SetQueueStatus(ctx context.Context, workspaceID int64, status *model.QueueStatus, ttl time.Duration) error {
	args := m.Called(ctx, workspaceID, status, ttl)
	return args.Error(0)
}

func (m *MockQueueCache) InvalidateQueueStatus(ctx context.Context, workspaceID int64) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}

// fakePublisher lets each test script a platform's publish outcome.
type fakePublisher struct {
	platform string
	publish  func(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error)
}

func (p *fakePublisher) Platform() string { return p.platform }

func (p *fakePublisher) Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error) {
	return p.publish(ctx, content, account)
}
