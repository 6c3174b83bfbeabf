package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"

	"github.com/google/go-querystring/query"
)

const defaultHost = "https://graph.facebook.com/v21.0"

// Publisher posts to Instagram through the Graph API. Publishing is two
// calls: create a media container, then publish it. The account's ExternalID
// is the IG user id.
type Publisher struct {
	host   string
	client *http.Client
}

func NewPublisher(host string) repository.IPublisher {
	if host == "" {
		host = defaultHost
	}
	return &Publisher{host: host, client: http.DefaultClient}
}

func (p *Publisher) Platform() string { return model.PlatformInstagram }

type containerParams struct {
	ImageURL    string `url:"image_url,omitempty"`
	VideoURL    string `url:"video_url,omitempty"`
	MediaType   string `url:"media_type,omitempty"`
	Caption     string `url:"caption"`
	AccessToken string `url:"access_token"`
}

type publishParams struct {
	CreationID  string `url:"creation_id"`
	AccessToken string `url:"access_token"`
}

type graphResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (p *Publisher) Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error) {
	if len(content.MediaRefs) == 0 {
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrValidationRejected, "instagram requires at least one media ref")
	}

	params := containerParams{
		Caption:     content.ComposedCaption(),
		AccessToken: account.AccessToken,
	}
	media := content.MediaRefs[0]
	if isVideoRef(media) {
		params.VideoURL = media
		params.MediaType = "REELS"
	} else {
		params.ImageURL = media
	}

	container, err := p.graphPost(ctx, fmt.Sprintf("/%s/media", url.PathEscape(account.ExternalID)), params)
	if err != nil {
		return "", err
	}

	published, err := p.graphPost(ctx, fmt.Sprintf("/%s/media_publish", url.PathEscape(account.ExternalID)), publishParams{
		CreationID:  container,
		AccessToken: account.AccessToken,
	})
	if err != nil {
		return "", err
	}
	return published, nil
}

func (p *Publisher) graphPost(ctx context.Context, path string, params interface{}) (string, error) {
	form, err := query.Values(params)
	if err != nil {
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrUnknown, err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, strings.NewReader(form.Encode()))
	if err != nil {
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrTransientNetwork, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var out graphResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d: %s", resp.StatusCode, string(body))
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrAuthExpired, msg)
		case resp.StatusCode == http.StatusTooManyRequests || (out.Error != nil && out.Error.Code == 4):
			return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrRateLimited, msg)
		case resp.StatusCode == http.StatusBadRequest:
			return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrValidationRejected, msg)
		case resp.StatusCode >= 500:
			return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrTransientNetwork, msg)
		}
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrUnknown, msg)
	}
	if out.ID == "" {
		return "", model.NewPublishError(model.PlatformInstagram, model.PublishErrUnknown, "graph call succeeded but response had no id")
	}
	return out.ID, nil
}

func isVideoRef(ref string) bool {
	lower := strings.ToLower(ref)
	for _, ext := range []string{".mp4", ".mov", ".m4v"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

var _ repository.IPublisher = (*Publisher)(nil)
