package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/docstore"
)

func newTestRepo() (*Repository, *docstore.Memstore) {
	store := docstore.NewMemstore()
	store.EnsureUniqueIndex(CollectionOrder, "custom_order_id")
	return NewRepository(store), store
}

func newFields(customOrderID string) CreateFields {
	return CreateFields{
		SchoolID:      primitive.NewObjectID(),
		TrusteeID:     primitive.NewObjectID(),
		CustomOrderID: customOrderID,
		GatewayName:   "Edviron",
		OrderAmount:   250,
	}
}

func TestCreateSeedsPendingStatusRow(t *testing.T) {
	repo, store := newTestRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, newFields("ORD-1"))
	require.NoError(t, err)
	assert.False(t, o.ID.IsZero())

	docs, err := store.Collection(CollectionOrderStatus).Aggregate(ctx, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, o.ID, docs[0]["collect_id"])
	assert.Equal(t, string(StatusPending), docs[0]["status"])
	assert.Equal(t, float64(250), docs[0]["order_amount"])
}

func TestCreateDuplicateCustomOrderID(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	first, err := repo.Create(ctx, newFields("ORD-DUP"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newFields("ORD-DUP"))
	assert.ErrorIs(t, err, apperror.ErrDuplicateOrderID)

	// The first order is unaffected.
	found, err := repo.FindStatusByCustomID(ctx, "ORD-DUP")
	require.NoError(t, err)
	assert.Equal(t, first.ID, found["_id"])
}

func TestUpdateStatusMatchedCount(t *testing.T) {
	repo, _ := newTestRepo()
	ctx := context.Background()

	o, err := repo.Create(ctx, newFields("ORD-1"))
	require.NoError(t, err)

	set := bson.M{"status": string(StatusSuccess), "transaction_amount": float64(250), "updated_at": time.Now().UTC()}

	matched, err := repo.UpdateStatus(ctx, o.ID, set)
	require.NoError(t, err)
	assert.Equal(t, int64(1), matched)

	matched, err = repo.UpdateStatus(ctx, primitive.NewObjectID(), set)
	require.NoError(t, err)
	assert.Equal(t, int64(0), matched)
}

func TestFindStatusByCustomIDNotFound(t *testing.T) {
	repo, _ := newTestRepo()

	_, err := repo.FindStatusByCustomID(context.Background(), "ORD-NOPE")
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
}
