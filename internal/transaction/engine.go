// Package transaction builds and executes the filter, join, sort, and
// pagination pipelines behind the transaction listing endpoints.
package transaction

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/order"
	"paytrack-service/internal/pipeline"
)

var (
	queryErrorValidationCounter = metrics.GetOrCreateCounter(`transaction_query_total{result="validation_failed"}`)
	queryErrorStoreCounter      = metrics.GetOrCreateCounter(`transaction_query_total{result="store_failed"}`)
	querySuccessCounter         = metrics.GetOrCreateCounter(`transaction_query_total{result="success"}`)

	queryDurationHistogram = metrics.GetOrCreateHistogram(`transaction_query_duration_milliseconds`)
)

// Row is one projected joined record.
type Row struct {
	CollectID         primitive.ObjectID `bson:"collect_id" json:"collect_id"`
	SchoolID          primitive.ObjectID `bson:"school_id" json:"school_id"`
	GatewayName       string             `bson:"gateway_name" json:"gateway_name"`
	OrderAmount       float64            `bson:"order_amount" json:"order_amount"`
	TransactionAmount float64            `bson:"transaction_amount" json:"transaction_amount"`
	Status            string             `bson:"status" json:"status"`
	PaymentTime       time.Time          `bson:"payment_time" json:"payment_time"`
	CustomOrderID     string             `bson:"custom_order_id" json:"custom_order_id"`
}

// Meta is pagination metadata reflecting the post-filter, pre-page row count.
type Meta struct {
	Page         int   `json:"page"`
	PageSize     int   `json:"pageSize"`
	TotalEntries int64 `json:"totalEntries"`
	TotalPages   int64 `json:"totalPages"`
}

type Page struct {
	Data []Row `json:"data"`
	Meta Meta  `json:"meta"`
}

// Aggregator runs an ordered stage sequence against a named collection.
type Aggregator interface {
	Aggregate(ctx context.Context, collection string, stages []pipeline.Stage) ([]bson.M, error)
}

type Engine struct {
	repo   Aggregator
	logger *slog.Logger
}

func NewEngine(repo Aggregator, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger}
}

// Query returns one page of joined transaction rows plus pagination
// metadata. Filters combine with AND across categories and OR within a
// category's value set.
func (e *Engine) Query(ctx context.Context, filter Filter) (*Page, error) {
	startTime := time.Now()

	r, err := filter.resolve()
	if err != nil {
		queryErrorValidationCounter.Inc()
		return nil, err
	}

	base := baseStages(r)

	total, err := e.count(ctx, base)
	if err != nil {
		queryErrorStoreCounter.Inc()
		return nil, err
	}

	stages := append(base,
		pipeline.Sort{Field: r.sortField, Descending: r.desc, TieBreak: "_id"},
		projectionStage(),
		pipeline.Skip{N: int64(r.page-1) * int64(r.pageSize)},
		pipeline.Limit{N: int64(r.pageSize)},
	)

	docs, err := e.repo.Aggregate(ctx, order.CollectionOrder, stages)
	if err != nil {
		queryErrorStoreCounter.Inc()
		return nil, err
	}

	rows, err := decodeRows(docs)
	if err != nil {
		queryErrorStoreCounter.Inc()
		return nil, err
	}

	totalPages := int64(0)
	if total > 0 {
		totalPages = (total + int64(r.pageSize) - 1) / int64(r.pageSize)
	}

	e.logger.InfoContext(ctx, "Transaction query executed",
		"totalEntries", total, "page", r.page, "pageSize", r.pageSize)

	querySuccessCounter.Inc()
	queryDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))

	return &Page{
		Data: rows,
		Meta: Meta{
			Page:         r.page,
			PageSize:     r.pageSize,
			TotalEntries: total,
			TotalPages:   totalPages,
		},
	}, nil
}

// BySchool returns every joined row for one school in natural order.
func (e *Engine) BySchool(ctx context.Context, schoolID string) ([]Row, error) {
	id, err := primitive.ObjectIDFromHex(schoolID)
	if err != nil {
		queryErrorValidationCounter.Inc()
		return nil, apperror.Validation("schoolId must be a valid identifier")
	}

	stages := []pipeline.Stage{
		joinStage(),
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.Eq{Field: "school_id", Value: id},
		}},
		pipeline.ToDouble{Field: "order_status.transaction_amount"},
		projectionStage(),
	}

	return e.run(ctx, stages)
}

// StatusByCustomOrderID returns the joined rows for one custom order token.
// The join is one-to-many, so more than one row is possible.
func (e *Engine) StatusByCustomOrderID(ctx context.Context, customOrderID string) ([]Row, error) {
	stages := []pipeline.Stage{
		joinStage(),
		pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.Eq{Field: "custom_order_id", Value: customOrderID},
		}},
		pipeline.ToDouble{Field: "order_status.transaction_amount"},
		projectionStage(),
	}

	return e.run(ctx, stages)
}

func (e *Engine) run(ctx context.Context, stages []pipeline.Stage) ([]Row, error) {
	docs, err := e.repo.Aggregate(ctx, order.CollectionOrder, stages)
	if err != nil {
		queryErrorStoreCounter.Inc()
		return nil, err
	}

	rows, err := decodeRows(docs)
	if err != nil {
		queryErrorStoreCounter.Inc()
		return nil, err
	}

	querySuccessCounter.Inc()
	return rows, nil
}

func (e *Engine) count(ctx context.Context, base []pipeline.Stage) (int64, error) {
	stages := append(append([]pipeline.Stage{}, base...), pipeline.Count{As: "totalEntries"})

	docs, err := e.repo.Aggregate(ctx, order.CollectionOrder, stages)
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 0, nil
	}

	var result struct {
		TotalEntries int64 `bson:"totalEntries"`
	}
	if err := decodeDoc(docs[0], &result); err != nil {
		return 0, err
	}
	return result.TotalEntries, nil
}

// baseStages builds the join plus every narrowing filter and the amount
// normalization; both the data and the count pipelines start from it.
func baseStages(r *resolved) []pipeline.Stage {
	stages := []pipeline.Stage{joinStage()}

	if len(r.statuses) > 0 {
		stages = append(stages, pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.EqFold{Field: "order_status.status", Values: r.statuses},
		}})
	}

	if len(r.schoolIDs) > 0 {
		values := make([]any, 0, len(r.schoolIDs))
		for _, id := range r.schoolIDs {
			values = append(values, id)
		}
		stages = append(stages, pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.In{Field: "school_id", Values: values},
		}})
	}

	if r.collectID != nil {
		stages = append(stages, pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.Eq{Field: "_id", Value: *r.collectID},
		}})
	}

	if r.start != nil || r.end != nil {
		stages = append(stages, pipeline.Match{Predicates: []pipeline.Predicate{
			pipeline.TimeRange{Field: "order_status.payment_time", Start: r.start, End: r.end},
		}})
	}

	stages = append(stages, pipeline.ToDouble{Field: "order_status.transaction_amount"})

	return stages
}

func joinStage() pipeline.Stage {
	return pipeline.Join{
		From:         order.CollectionOrderStatus,
		LocalField:   "_id",
		ForeignField: "collect_id",
		As:           "order_status",
		Unwind:       true,
	}
}

func projectionStage() pipeline.Stage {
	return pipeline.Project{Fields: []pipeline.ProjectedField{
		{Name: "collect_id", From: "_id"},
		{Name: "school_id"},
		{Name: "gateway_name"},
		{Name: "order_amount", From: "order_status.order_amount"},
		{Name: "transaction_amount", From: "order_status.transaction_amount"},
		{Name: "status", From: "order_status.status"},
		{Name: "payment_time", From: "order_status.payment_time"},
		{Name: "custom_order_id"},
	}}
}

func decodeRows(docs []bson.M) ([]Row, error) {
	rows := make([]Row, 0, len(docs))
	for _, doc := range docs {
		var row Row
		if err := decodeDoc(doc, &row); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func decodeDoc(doc bson.M, out any) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return apperror.Wrap(apperror.ErrStoreUnavailable, err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return apperror.Wrap(apperror.ErrStoreUnavailable, err)
	}
	return nil
}
