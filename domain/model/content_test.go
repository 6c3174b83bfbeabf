package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionStatus(t *testing.T) {
	allowed := [][2]string{
		{ContentStatusDraft, ContentStatusScheduled},
		{ContentStatusScheduled, ContentStatusPublishing},
		{ContentStatusScheduled, ContentStatusDraft},
		{ContentStatusPublishing, ContentStatusPublished},
		{ContentStatusPublishing, ContentStatusFailed},
		{ContentStatusFailed, ContentStatusScheduled},
		{ContentStatusFailed, ContentStatusPublished},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransitionStatus(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	denied := [][2]string{
		{ContentStatusDraft, ContentStatusPublishing},
		{ContentStatusDraft, ContentStatusPublished},
		{ContentStatusScheduled, ContentStatusPublished},
		{ContentStatusPublished, ContentStatusScheduled},
		{ContentStatusPublished, ContentStatusDraft},
		{ContentStatusPublishing, ContentStatusDraft},
		{ContentStatusPublishing, ContentStatusScheduled},
	}
	for _, pair := range denied {
		assert.False(t, CanTransitionStatus(pair[0], pair[1]), "%s -> %s should be denied", pair[0], pair[1])
	}
}

func TestValidatePlatform(t *testing.T) {
	for _, p := range []string{PlatformTikTok, PlatformInstagram, PlatformTwitter, PlatformYouTube} {
		assert.True(t, ValidatePlatform(p))
	}
	assert.False(t, ValidatePlatform("myspace"))
	assert.False(t, ValidatePlatform(""))
	assert.False(t, ValidatePlatform("Twitter"))
}

func TestComposedCaption(t *testing.T) {
	item := &ContentItem{Caption: "We are live", Hashtags: []string{"launch", "#teaser"}}
	assert.Equal(t, "We are live\n\n#launch #teaser", item.ComposedCaption())

	noTags := &ContentItem{Caption: "Just text"}
	assert.Equal(t, "Just text", noTags.ComposedCaption())

	onlyTags := &ContentItem{Hashtags: []string{"solo"}}
	assert.Equal(t, "#solo", onlyTags.ComposedCaption())

	empty := &ContentItem{}
	assert.Equal(t, "", empty.ComposedCaption())
}

func TestPublishErrorRetryable(t *testing.T) {
	assert.True(t, NewPublishError(PlatformTwitter, PublishErrRateLimited, "slow down").Retryable())
	assert.True(t, NewPublishError(PlatformTwitter, PublishErrTransientNetwork, "reset").Retryable())
	assert.False(t, NewPublishError(PlatformTwitter, PublishErrAuthExpired, "token dead").Retryable())
	assert.False(t, NewPublishError(PlatformTwitter, PublishErrValidationRejected, "too long").Retryable())
	assert.False(t, NewPublishError(PlatformTwitter, PublishErrUnknown, "??").Retryable())
}

func TestAsPublishError(t *testing.T) {
	typed := NewPublishError(PlatformTikTok, PublishErrRateLimited, "limit")
	assert.Equal(t, typed, AsPublishError(PlatformTikTok, typed))

	plain := AsPublishError(PlatformTikTok, assert.AnError)
	assert.Equal(t, PublishErrUnknown, plain.Code)
	assert.Equal(t, PlatformTikTok, plain.Platform)
}
