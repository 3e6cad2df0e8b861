package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/brewline/console/internal/core/domain"
	"github.com/brewline/console/internal/core/ports"
)

const sessionEventCollection = "session_events"

// SessionEventRepository implements ports.SessionEventRepository using MongoDB.
type SessionEventRepository struct {
	col *mongo.Collection
}

// NewSessionEventRepository creates a new SessionEventRepository.
func NewSessionEventRepository(db *mongo.Database) ports.SessionEventRepository {
	return &SessionEventRepository{col: db.Collection(sessionEventCollection)}
}

// InsertEvent appends a lifecycle event to the session_events audit collection.
func (r *SessionEventRepository) InsertEvent(ctx context.Context, event *domain.SessionEvent) error {
	doc := bson.M{
		"_id":         event.ID,
		"kind":        string(event.Kind),
		"occurred_at": event.OccurredAt.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.Subject != "" {
		doc["subject"] = event.Subject
	}
	if event.Email != "" {
		doc["email"] = event.Email
	}
	if event.TenantID != "" {
		doc["tenant_id"] = event.TenantID
	}
	if event.Role != "" {
		doc["role"] = string(event.Role)
	}
	if event.Reason != "" {
		doc["reason"] = event.Reason
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}
