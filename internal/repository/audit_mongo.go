package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"notification-worker/internal/model"
)

// MongoAuditRepository appends outcome records as documents. The event id is
// stored as a plain field, not as _id, so redeliveries insert cleanly.
type MongoAuditRepository struct {
	coll *mongo.Collection
}

func NewMongoAuditRepository(client *mongo.Client, database, collection string) *MongoAuditRepository {
	return &MongoAuditRepository{coll: client.Database(database).Collection(collection)}
}

func (r *MongoAuditRepository) Append(ctx context.Context, ev *model.NotificationEvent) error {
	_, err := r.coll.InsertOne(ctx, ev)
	return err
}
