package persistence

import (
	"context"

	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	historyDatabase   = "kreatr_scheduler"
	historyCollection = "dispatch_attempts"
)

// DispatchHistoryRepository appends publish attempts to Mongo for audit.
type DispatchHistoryRepository struct {
	client *mongo.Client
}

func NewDispatchHistoryRepository(client *mongo.Client) repository.IDispatchHistory {
	return &DispatchHistoryRepository{client: client}
}

func (r *DispatchHistoryRepository) collection() *mongo.Collection {
	return r.client.Database(historyDatabase).Collection(historyCollection)
}

func (r *DispatchHistoryRepository) RecordAttempts(ctx context.Context, attempts []*repository.DispatchAttempt) error {
	if len(attempts) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(attempts))
	for _, a := range attempts {
		docs = append(docs, a)
	}
	_, err := r.collection().InsertMany(ctx, docs)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("record dispatch attempts failed")
	}
	return err
}

func (r *DispatchHistoryRepository) ListByContent(ctx context.Context, contentID int64, limit int) ([]*repository.DispatchAttempt, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "attempted_at", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "content_id", Value: contentID}}, opts)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("list dispatch attempts failed")
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("closing history cursor failed")
		}
	}(cursor, ctx)

	var attempts []*repository.DispatchAttempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}
