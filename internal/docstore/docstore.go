// Package docstore is the generic accessor to named document collections.
// It owns the client lifecycle and the translation of typed pipeline stages
// into the store's native aggregation format; it carries no business logic.
package docstore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"paytrack-service/internal/pipeline"
)

// Store hands out collection handles by name.
type Store interface {
	Collection(name string) Collection
}

// Collection supports insert, point update-by-filter, and pipeline
// aggregation. No retries, no validation; failures propagate.
type Collection interface {
	InsertOne(ctx context.Context, doc bson.M) error
	// UpdateOne applies a field set to the first document matching the
	// equality filter and reports how many documents matched (0 or 1).
	UpdateOne(ctx context.Context, filter bson.M, set bson.M) (int64, error)
	Aggregate(ctx context.Context, stages []pipeline.Stage) ([]bson.M, error)
}
