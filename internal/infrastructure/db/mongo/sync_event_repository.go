package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fitnessapp/identity-sync/internal/core/domain"
	"github.com/fitnessapp/identity-sync/internal/core/ports"
)

const syncEventsCollection = "sync_events"

// SyncEventRepository implements ports.SyncEventRepository using MongoDB.
type SyncEventRepository struct {
	db *mongo.Database
}

func NewSyncEventRepository(db *mongo.Database) ports.SyncEventRepository {
	return &SyncEventRepository{db: db}
}

// InsertEvent persists a sync event to the audit collection.
func (r *SyncEventRepository) InsertEvent(ctx context.Context, event *domain.SyncEvent) error {
	doc := bson.M{
		"_id":          event.ID,
		"user_id":      event.UserID,
		"email":        event.Email,
		"subject_id":   event.SubjectID,
		"provider":     event.Provider,
		"outcome":      string(event.Outcome),
		"occurred_at":  event.OccurredAt.UTC(),
		"processed_at": time.Now().UTC(),
	}

	_, err := r.db.Collection(syncEventsCollection).InsertOne(ctx, doc)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// redelivery of an already recorded event
		return nil
	}
	return err
}
