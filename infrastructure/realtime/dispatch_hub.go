package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"kreatr-scheduler/domain/model"
)

// PostStatusEvent represents an SSE payload for platform post status updates.
type PostStatusEvent struct {
	Type       string  `json:"type"`
	ContentID  int64   `json:"content_id"`
	PostID     int64   `json:"post_id"`
	Platform   string  `json:"platform"`
	Status     string  `json:"status"`
	PlatformID *string `json:"platform_id,omitempty"`
	Error      *string `json:"error,omitempty"`
}

// Hub maintains per-user subscribers listening for dispatch status events.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan PostStatusEvent]struct{}
}

func NewDispatchHub() *Hub {
	return &Hub{users: make(map[string]map[chan PostStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan PostStatusEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	notify := c.Writer.CloseNotify()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: post_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan PostStatusEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan PostStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// BroadcastPostStatus broadcasts to all subscribers of the content author.
func (h *Hub) BroadcastPostStatus(post *model.PlatformPost, item *model.ContentItem) {
	if post == nil || item == nil {
		return
	}
	evt := PostStatusEvent{
		Type:       "post_status",
		ContentID:  item.ID,
		PostID:     post.ID,
		Platform:   post.Platform,
		Status:     post.Status,
		PlatformID: post.PlatformID,
		Error:      post.ErrorMessage,
	}
	h.mu.RLock()
	subs := h.users[item.AuthorID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
}
