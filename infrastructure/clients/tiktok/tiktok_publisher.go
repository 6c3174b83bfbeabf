package tiktok

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"

	"golang.org/x/oauth2"
)

const defaultHost = "https://open.tiktokapis.com"

// Publisher uploads videos via the TikTok Content Posting API in
// PULL_FROM_URL mode. TikTok processes the upload asynchronously; the
// publish_id it returns is the identifier we keep.
type Publisher struct {
	host string
}

func NewPublisher(host string) repository.IPublisher {
	if host == "" {
		host = defaultHost
	}
	return &Publisher{host: host}
}

func (p *Publisher) Platform() string { return model.PlatformTikTok }

type videoInitRequest struct {
	PostInfo   postInfo   `json:"post_info"`
	SourceInfo sourceInfo `json:"source_info"`
}

type postInfo struct {
	Title        string `json:"title"`
	PrivacyLevel string `json:"privacy_level"`
}

type sourceInfo struct {
	Source   string `json:"source"`
	VideoURL string `json:"video_url"`
}

type videoInitResponse struct {
	Data struct {
		PublishID string `json:"publish_id"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (p *Publisher) Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error) {
	if len(content.MediaRefs) == 0 {
		return "", model.NewPublishError(model.PlatformTikTok, model.PublishErrValidationRejected, "tiktok requires a video media ref")
	}

	payload, err := json.Marshal(videoInitRequest{
		PostInfo: postInfo{
			Title:        content.ComposedCaption(),
			PrivacyLevel: "PUBLIC_TO_EVERYONE",
		},
		SourceInfo: sourceInfo{
			Source:   "PULL_FROM_URL",
			VideoURL: content.MediaRefs[0],
		},
	})
	if err != nil {
		return "", model.NewPublishError(model.PlatformTikTok, model.PublishErrUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/v2/post/publish/video/init/", bytes.NewReader(payload))
	if err != nil {
		return "", model.NewPublishError(model.PlatformTikTok, model.PublishErrUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken}))
	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewPublishError(model.PlatformTikTok, model.PublishErrTransientNetwork, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	var out videoInitResponse
	_ = json.Unmarshal(body, &out)

	if resp.StatusCode != http.StatusOK || (out.Error.Code != "" && out.Error.Code != "ok") {
		return "", classify(resp.StatusCode, out.Error.Code, string(body))
	}
	if out.Data.PublishID == "" {
		return "", model.NewPublishError(model.PlatformTikTok, model.PublishErrUnknown, "init succeeded but response had no publish_id")
	}
	return out.Data.PublishID, nil
}

func classify(status int, code, body string) *model.PublishError {
	msg := fmt.Sprintf("status %d code %s: %s", status, code, body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || code == "access_token_invalid":
		return model.NewPublishError(model.PlatformTikTok, model.PublishErrAuthExpired, msg)
	case status == http.StatusTooManyRequests || code == "rate_limit_exceeded" || code == "spam_risk_too_many_posts":
		return model.NewPublishError(model.PlatformTikTok, model.PublishErrRateLimited, msg)
	case status == http.StatusBadRequest || code == "invalid_params" || code == "url_ownership_unverified":
		return model.NewPublishError(model.PlatformTikTok, model.PublishErrValidationRejected, msg)
	case status >= 500:
		return model.NewPublishError(model.PlatformTikTok, model.PublishErrTransientNetwork, msg)
	}
	return model.NewPublishError(model.PlatformTikTok, model.PublishErrUnknown, msg)
}

var _ repository.IPublisher = (*Publisher)(nil)
