package pubsub

import (
	"context"
	"encoding/json"
	"time"

	"cloud.google.com/go/pubsub"

	"kreatr-scheduler/infrastructure/logger"
)

// ContentOutcomeEvent is published once per content item when a dispatch tick
// (or retry promotion) resolves its aggregate status.
type ContentOutcomeEvent struct {
	ContentID   int64     `json:"content_id"`
	WorkspaceID int64     `json:"workspace_id"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// IEventEmitter publishes dispatch outcomes for downstream consumers
// (notifications, analytics).
type IEventEmitter interface {
	EmitContentOutcome(ctx context.Context, evt ContentOutcomeEvent) error
}

type EventEmitter struct {
	client *pubsub.Client
	topic  string
}

// NewPubSub connects the Google Pub/Sub client for the project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

func NewEventEmitter(client *pubsub.Client, topic string) IEventEmitter {
	return &EventEmitter{client: client, topic: topic}
}

func (e *EventEmitter) EmitContentOutcome(ctx context.Context, evt ContentOutcomeEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	topic := e.client.Topic(e.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", e.topic).Info("Outcome topic missing - creating it")
		if _, err := e.client.CreateTopic(ctx, e.topic); err != nil {
			return err
		}
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().
		WithField("server_id", serverID).
		WithField("content_id", evt.ContentID).
		WithField("status", evt.Status).
		Info("Outcome event published")
	return nil
}
