package twitter

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

const defaultHost = "https://api.twitter.com"

// Publisher posts tweets through the v2 API using the linked account's
// user-context token.
type Publisher struct {
	host string
}

func NewPublisher(host string) repository.IPublisher {
	if host == "" {
		host = defaultHost
	}
	return &Publisher{host: host}
}

func (p *Publisher) Platform() string { return model.PlatformTwitter }

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Detail string `json:"detail"`
	Title  string `json:"title"`
}

func (p *Publisher) Publish(ctx context.Context, content *model.ContentItem, account *model.PlatformAccount) (string, error) {
	payload, err := json.Marshal(tweetRequest{Text: content.ComposedCaption()})
	if err != nil {
		return "", model.NewPublishError(model.PlatformTwitter, model.PublishErrUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return "", model.NewPublishError(model.PlatformTwitter, model.PublishErrUnknown, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: account.AccessToken}))
	resp, err := client.Do(req)
	if err != nil {
		return "", model.NewPublishError(model.PlatformTwitter, model.PublishErrTransientNetwork, err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, body)
	}

	var out tweetResponse
	if err := json.Unmarshal(body, &out); err != nil || out.Data.ID == "" {
		return "", model.NewPublishError(model.PlatformTwitter, model.PublishErrUnknown, "tweet created but response had no id")
	}
	return out.Data.ID, nil
}

func classifyStatus(status int, body []byte) *model.PublishError {
	msg := fmt.Sprintf("status %d: %s", status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.NewPublishError(model.PlatformTwitter, model.PublishErrAuthExpired, msg)
	case status == http.StatusTooManyRequests:
		return model.NewPublishError(model.PlatformTwitter, model.PublishErrRateLimited, msg)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return model.NewPublishError(model.PlatformTwitter, model.PublishErrValidationRejected, msg)
	case status >= 500:
		return model.NewPublishError(model.PlatformTwitter, model.PublishErrTransientNetwork, msg)
	}
	return model.NewPublishError(model.PlatformTwitter, model.PublishErrUnknown, msg)
}

var _ repository.IPublisher = (*Publisher)(nil)
