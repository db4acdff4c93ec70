package order

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/docstore"
	"paytrack-service/internal/pipeline"
)

// CreateFields is the caller-supplied part of a new order.
type CreateFields struct {
	SchoolID      primitive.ObjectID
	TrusteeID     primitive.ObjectID
	CustomOrderID string
	GatewayName   string
	OrderAmount   float64
}

// Repository provides the typed operations over the Order and OrderStatus
// collections. The store client is injected at construction time.
type Repository struct {
	store docstore.Store
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Create inserts a new order with a generated id and seeds its single
// pending status row. A custom_order_id collision fails with a conflict and
// leaves the existing order untouched.
func (r *Repository) Create(ctx context.Context, fields CreateFields) (*Order, error) {
	now := time.Now().UTC()
	o := &Order{
		ID:            primitive.NewObjectID(),
		SchoolID:      fields.SchoolID,
		TrusteeID:     fields.TrusteeID,
		CustomOrderID: fields.CustomOrderID,
		GatewayName:   fields.GatewayName,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	doc := bson.M{
		"_id":             o.ID,
		"school_id":       o.SchoolID,
		"trustee_id":      o.TrusteeID,
		"custom_order_id": o.CustomOrderID,
		"gateway_name":    o.GatewayName,
		"created_at":      o.CreatedAt,
		"updated_at":      o.UpdatedAt,
	}

	if err := r.store.Collection(CollectionOrder).InsertOne(ctx, doc); err != nil {
		if docstore.IsDuplicateKey(err) {
			return nil, apperror.ErrDuplicateOrderID
		}
		return nil, err
	}

	statusDoc := bson.M{
		"collect_id":         o.ID,
		"order_amount":       fields.OrderAmount,
		"transaction_amount": float64(0),
		"status":             string(StatusPending),
		"payment_mode":       "",
		"payment_time":       now,
		"created_at":         now,
		"updated_at":         now,
	}

	if err := r.store.Collection(CollectionOrderStatus).InsertOne(ctx, statusDoc); err != nil {
		return nil, err
	}

	return o, nil
}

// UpdateStatus applies the field set to the status row whose collect_id
// equals the given order id and returns the matched count. A zero count is
// not an error here; the caller decides.
func (r *Repository) UpdateStatus(ctx context.Context, collectID primitive.ObjectID, set bson.M) (int64, error) {
	return r.store.Collection(CollectionOrderStatus).UpdateOne(ctx, bson.M{"collect_id": collectID}, set)
}

// Aggregate executes an ordered stage sequence against the named collection.
// Result ordering follows the pipeline, not insertion order.
func (r *Repository) Aggregate(ctx context.Context, collection string, stages []pipeline.Stage) ([]bson.M, error) {
	return r.store.Collection(collection).Aggregate(ctx, stages)
}

// FindStatusByCustomID returns the first joined order/status record for the
// given custom order id, or NotFound.
func (r *Repository) FindStatusByCustomID(ctx context.Context, customOrderID string) (bson.M, error) {
	stages := []pipeline.Stage{
		pipeline.Join{
			From:         CollectionOrderStatus,
			LocalField:   "_id",
			ForeignField: "collect_id",
			As:           "order_status",
			Unwind:       true,
		},
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.Eq{Field: "custom_order_id", Value: customOrderID},
		}},
		pipeline.Limit{N: 1},
	}

	docs, err := r.Aggregate(ctx, CollectionOrder, stages)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperror.NotFound("no order matches the given custom_order_id")
	}
	return docs[0], nil
}
