package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/pipeline"
)

func TestTranslateJoinUnwind(t *testing.T) {
	native, err := Translate([]pipeline.Stage{
		pipeline.Join{
			From:         "OrderStatus",
			LocalField:   "_id",
			ForeignField: "collect_id",
			As:           "order_status",
			Unwind:       true,
		},
	})
	require.NoError(t, err)
	require.Len(t, native, 2)

	assert.Equal(t, bson.D{{Key: "$lookup", Value: bson.D{
		{Key: "from", Value: "OrderStatus"},
		{Key: "localField", Value: "_id"},
		{Key: "foreignField", Value: "collect_id"},
		{Key: "as", Value: "order_status"},
	}}}, native[0])
	assert.Equal(t, bson.D{{Key: "$unwind", Value: "$order_status"}}, native[1])
}

func TestTranslateEqFoldIsAnchored(t *testing.T) {
	native, err := Translate([]pipeline.Stage{
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.EqFold{Field: "order_status.status", Values: []string{"success", "failed"}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, native, 1)

	match := native[0][0].Value.(bson.M)
	conditions := match["$and"].(bson.A)
	require.Len(t, conditions, 1)
	or := conditions[0].(bson.M)["$or"].(bson.A)
	require.Len(t, or, 2)

	first := or[0].(bson.M)["order_status.status"].(primitive.Regex)
	assert.Equal(t, "^success$", first.Pattern)
	assert.Equal(t, "i", first.Options)
}

func TestTranslateMatchKeepsEveryPredicate(t *testing.T) {
	native, err := Translate([]pipeline.Stage{
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.EqFold{Field: "order_status.status", Values: []string{"success"}},
			pipeline.EqFold{Field: "gateway_name", Values: []string{"Edviron"}},
			pipeline.Eq{Field: "custom_order_id", Value: "ORD-1"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, native, 1)

	match := native[0][0].Value.(bson.M)
	conditions := match["$and"].(bson.A)
	require.Len(t, conditions, 3)

	statusOr := conditions[0].(bson.M)["$or"].(bson.A)
	assert.Equal(t, "^success$", statusOr[0].(bson.M)["order_status.status"].(primitive.Regex).Pattern)

	gatewayOr := conditions[1].(bson.M)["$or"].(bson.A)
	assert.Equal(t, "^Edviron$", gatewayOr[0].(bson.M)["gateway_name"].(primitive.Regex).Pattern)

	assert.Equal(t, bson.M{"custom_order_id": "ORD-1"}, conditions[2])
}

func TestTranslateSortTieBreakAndRange(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	native, err := Translate([]pipeline.Stage{
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.TimeRange{Field: "order_status.payment_time", Start: &start},
		}},
		pipeline.ToDouble{Field: "order_status.transaction_amount"},
		pipeline.Sort{Field: "order_status.payment_time", Descending: true, TieBreak: "_id"},
		pipeline.Skip{N: 10},
		pipeline.Limit{N: 5},
		pipeline.Count{As: "totalEntries"},
	})
	require.NoError(t, err)
	require.Len(t, native, 6)

	match := native[0][0].Value.(bson.M)
	conditions := match["$and"].(bson.A)
	require.Len(t, conditions, 1)
	bounds := conditions[0].(bson.M)["order_status.payment_time"].(bson.M)
	assert.Equal(t, start, bounds["$gte"])
	_, hasUpper := bounds["$lte"]
	assert.False(t, hasUpper)

	addFields := native[1][0].Value.(bson.M)
	assert.Equal(t, bson.M{"$toDouble": "$order_status.transaction_amount"},
		addFields["order_status.transaction_amount"])

	sort := native[2][0].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "order_status.payment_time", Value: -1}, {Key: "_id", Value: 1}}, sort)

	assert.Equal(t, bson.D{{Key: "$skip", Value: int64(10)}}, native[3])
	assert.Equal(t, bson.D{{Key: "$limit", Value: int64(5)}}, native[4])
	assert.Equal(t, bson.D{{Key: "$count", Value: "totalEntries"}}, native[5])
}

func TestTranslateProjection(t *testing.T) {
	native, err := Translate([]pipeline.Stage{
		pipeline.Project{Fields: []pipeline.ProjectedField{
			{Name: "collect_id", From: "_id"},
			{Name: "school_id"},
		}},
	})
	require.NoError(t, err)

	projection := native[0][0].Value.(bson.D)
	assert.Equal(t, bson.D{
		{Key: "collect_id", Value: "$_id"},
		{Key: "school_id", Value: 1},
	}, projection)
}
