package youtube

import (
	"context"
	"fmt"
	"net/http"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Publisher uploads videos to the linked channel via the YouTube Data API.
// The service client is built per publish because each account carries its
// own token.
type Publisher struct {
	// fetch retrieves the media body; overridable in tests
	fetch func(ctx context.Context, ref string) (*http.Response, error)
}

func NewPublisher() repository.IPublisher {
	return &Publisher{fetch: fetchMedia}
}

func (p *Publisher) Platform() string { return model.PlatformYouTube }

func (p *Publisher) Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error) {
	if len(content.MediaRefs) == 0 {
		return "", model.NewPublishError(model.PlatformYouTube, model.PublishErrValidationRejected, "youtube requires a video media ref")
	}

	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken}))
	service, err := youtube.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return "", model.NewPublishError(model.PlatformYouTube, model.PublishErrUnknown, fmt.Sprintf("creating youtube service: %v", err))
	}

	media, err := p.fetch(ctx, content.MediaRefs[0])
	if err != nil {
		return "", model.NewPublishError(model.PlatformYouTube, model.PublishErrTransientNetwork, fmt.Sprintf("fetching media: %v", err))
	}
	defer media.Body.Close()
	if media.StatusCode != http.StatusOK {
		return "", model.NewPublishError(model.PlatformYouTube, model.PublishErrValidationRejected, fmt.Sprintf("media ref returned status %d", media.StatusCode))
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       content.Title,
			Description: content.ComposedCaption(),
			Tags:        content.Hashtags,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: "public"},
	}

	inserted, err := service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(media.Body).
		Context(ctx).
		Do()
	if err != nil {
		return "", classifyAPIError(err)
	}
	return inserted.Id, nil
}

func fetchMedia(ctx context.Context, ref string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	return http.DefaultClient.Do(req)
}

func classifyAPIError(err error) *model.PublishError {
	if apiErr, ok := err.(*googleapi.Error); ok {
		msg := fmt.Sprintf("status %d: %s", apiErr.Code, apiErr.Message)
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return model.NewPublishError(model.PlatformYouTube, model.PublishErrAuthExpired, msg)
		case apiErr.Code == http.StatusTooManyRequests:
			return model.NewPublishError(model.PlatformYouTube, model.PublishErrRateLimited, msg)
		case apiErr.Code == http.StatusBadRequest:
			return model.NewPublishError(model.PlatformYouTube, model.PublishErrValidationRejected, msg)
		case apiErr.Code >= 500:
			return model.NewPublishError(model.PlatformYouTube, model.PublishErrTransientNetwork, msg)
		}
		return model.NewPublishError(model.PlatformYouTube, model.PublishErrUnknown, msg)
	}
	return model.NewPublishError(model.PlatformYouTube, model.PublishErrTransientNetwork, err.Error())
}

var _ repository.IPublisher = (*Publisher)(nil)
