package repository

import (
	"context"

	"kreatr-scheduler/domain/model"
)

// IPublisher performs the actual publish call against one platform. A
// successful call returns the platform-assigned identifier; failures are
// *model.PublishError so the dispatcher can tell retryable ones apart.
// Implementations must not mutate the content item.
type IPublisher interface {
	Platform() string
	Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error)
}
