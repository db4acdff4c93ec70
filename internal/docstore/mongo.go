package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/config"
	"paytrack-service/internal/pipeline"
)

// Mongo is the document store backed by a MongoDB deployment. Construct it
// with Connect and close it on shutdown; there is no package-level handle.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

func Connect(ctx context.Context, cfg config.Mongo) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrStoreUnavailable, err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, apperror.Wrap(apperror.ErrStoreUnavailable, err)
	}

	return &Mongo{client: client, db: client.Database(cfg.Database)}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *Mongo) Collection(name string) Collection {
	return &mongoCollection{col: m.db.Collection(name)}
}

// EnsureIndexes creates the indexes the repositories rely on, most notably
// the unique constraint on custom_order_id.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	orderIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "school_id", Value: 1}}},
		{
			Keys:    bson.D{{Key: "custom_order_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	if _, err := m.db.Collection("Order").Indexes().CreateMany(ctx, orderIndexes); err != nil {
		return mapError(err)
	}

	statusIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "collect_id", Value: 1}}},
	}
	if _, err := m.db.Collection("OrderStatus").Indexes().CreateMany(ctx, statusIndexes); err != nil {
		return mapError(err)
	}

	return nil
}

type mongoCollection struct {
	col *mongo.Collection
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc bson.M) error {
	if _, err := c.col.InsertOne(ctx, doc); err != nil {
		return mapError(err)
	}
	return nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error) {
	result, err := c.col.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return 0, mapError(err)
	}
	return result.MatchedCount, nil
}

func (c *mongoCollection) Aggregate(ctx context.Context, stages []pipeline.Stage) ([]bson.M, error) {
	native, err := Translate(stages)
	if err != nil {
		return nil, err
	}

	cursor, err := c.col.Aggregate(ctx, native)
	if err != nil {
		return nil, mapError(err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, mapError(err)
	}
	return docs, nil
}

// errDuplicateKey marks unique-index violations from the in-memory store so
// IsDuplicateKey covers both implementations.
var errDuplicateKey = errors.New("duplicate key")

// IsDuplicateKey reports whether err is a unique-index violation.
func IsDuplicateKey(err error) bool {
	return mongo.IsDuplicateKeyError(err) || errors.Is(err, errDuplicateKey)
}

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		// Not masked: the repository classifies it as a domain conflict.
		return err
	case errors.Is(err, context.DeadlineExceeded) || mongo.IsTimeout(err):
		return apperror.Wrap(apperror.ErrQueryTimeout, err)
	default:
		return apperror.Wrap(apperror.ErrStoreUnavailable, err)
	}
}
