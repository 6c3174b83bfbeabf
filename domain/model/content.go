package model

import (
	"strings"
	"time"
)

// Content status lifecycle. A content item is authored as a draft, scheduled
// for one or more platforms, claimed by the dispatcher at its due time, and
// resolved to published or failed once every platform attempt has completed.
const (
	ContentStatusDraft      = "draft"
	ContentStatusScheduled  = "scheduled"
	ContentStatusPublishing = "publishing"
	ContentStatusPublished  = "published"
	ContentStatusFailed     = "failed"
)

// PlatformPost status mirrors the content lifecycle minus draft. A cancelled
// schedule returns the content to draft and removes its pending posts.
const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// Supported publishing platforms.
const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformTwitter   = "twitter"
	PlatformYouTube   = "youtube"
)

// ContentItem is the schedulable unit of content, independent of any single
// platform. ScheduledAt is set only while the item is scheduled/publishing;
// PublishedAt only after every platform post succeeded.
type ContentItem struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	AuthorID    string     `json:"author_id"`
	Title       string     `json:"title"`
	Caption     string     `json:"caption"`
	Hashtags    []string   `json:"hashtags"`
	MediaRefs   []string   `json:"media_refs"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Posts []*PlatformPost `json:"posts,omitempty"`
}

// PlatformPost is one platform-specific publication record belonging to a
// ContentItem; there is exactly one per (platform, account) pair chosen at
// schedule time. PlatformID is the identifier assigned by the platform on a
// successful publish.
type PlatformPost struct {
	ID           int64      `json:"id"`
	ContentID    int64      `json:"content_id"`
	Platform     string     `json:"platform"`
	AccountID    int64      `json:"account_id"`
	Status       string     `json:"status"`
	PlatformID   *string    `json:"platform_id,omitempty"`
	PublishedAt  *time.Time `json:"published_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	Retryable    bool       `json:"retryable"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// ComposedCaption joins the caption and hashtags into the text sent to
// platforms that take a single body field.
func (c *ContentItem) ComposedCaption() string {
	parts := make([]string, 0, 2)
	if c.Caption != "" {
		parts = append(parts, c.Caption)
	}
	if len(c.Hashtags) > 0 {
		tags := make([]string, 0, len(c.Hashtags))
		for _, h := range c.Hashtags {
			if h == "" {
				continue
			}
			if !strings.HasPrefix(h, "#") {
				h = "#" + h
			}
			tags = append(tags, h)
		}
		if len(tags) > 0 {
			parts = append(parts, strings.Join(tags, " "))
		}
	}
	return strings.Join(parts, "\n\n")
}

// QueueStatus is a read-only aggregate over a workspace's scheduled queue.
type QueueStatus struct {
	UpcomingWithin24h int64        `json:"upcoming_within_24h"`
	TotalScheduled    int64        `json:"total_scheduled"`
	NextItem          *ContentItem `json:"next_item,omitempty"`
}

// DispatchStats counts platform posts grouped by status.
type DispatchStats struct {
	Scheduled  int64 `json:"scheduled"`
	Publishing int64 `json:"publishing"`
	Published  int64 `json:"published"`
	Failed     int64 `json:"failed"`
}

// TickSummary reports the outcome of one dispatch tick.
type TickSummary struct {
	Due       int `json:"due"`
	Claimed   int `json:"claimed"`
	Skipped   int `json:"skipped"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// RetrySummary reports the outcome of one retry pass.
type RetrySummary struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
}

// ValidatePlatform reports whether the platform is one we can publish to.
func ValidatePlatform(platform string) bool {
	switch platform {
	case PlatformTikTok, PlatformInstagram, PlatformTwitter, PlatformYouTube:
		return true
	}
	return false
}

// CanTransitionStatus checks whether a content status transition is legal.
func CanTransitionStatus(from, to string) bool {
	transitions := map[string][]string{
		ContentStatusDraft: {
			ContentStatusScheduled,
		},
		ContentStatusScheduled: {
			ContentStatusPublishing, // claimed by dispatch tick
			ContentStatusDraft,      // cancelled back to draft
		},
		ContentStatusPublishing: {
			ContentStatusPublished,
			ContentStatusFailed,
		},
		ContentStatusFailed: {
			ContentStatusScheduled, // rescheduled after failure
			ContentStatusPublished, // promoted once retries cover every post
		},
	}

	allowed, exists := transitions[from]
	if !exists {
		return false
	}
	for _, a := range allowed {
		if a == to {
			return true
		}
	}
	return false
}
