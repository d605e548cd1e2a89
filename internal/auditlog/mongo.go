// Package auditlog implements the analytics/audit log store.
//
// This file provides the MongoDB backend. Documents land in a single
// append-only collection; schema and index maintenance belong to the
// collection's owners, not to this service.
package auditlog

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore writes audit entries to a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore connects to uri and returns a store bound to db.collection
// along with a disconnect function. The initial connect is bounded by ctx.
func NewMongoStore(ctx context.Context, uri, db, collection string) (*MongoStore, func(context.Context) error, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	s := &MongoStore{coll: client.Database(db).Collection(collection)}
	return s, client.Disconnect, nil
}

// Insert appends one audit document. LoggedAt is stamped here (UTC) when the
// caller left it zero, so the stored timestamp reflects write time even on a
// retried delivery.
func (s *MongoStore) Insert(ctx context.Context, e Entry) error {
	if e.LoggedAt.IsZero() {
		e.LoggedAt = time.Now().UTC()
	}
	_, err := s.coll.InsertOne(ctx, e)
	return err
}
