package transaction

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/order"
)

const (
	SortByPaymentTime       = "payment_time"
	SortByTransactionAmount = "transaction_amount"
	SortByOrderAmount       = "order_amount"
	SortByStatus            = "status"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// Filter narrows, sorts, and pages the joined transaction rows. String
// fields left empty mean "absent"; Page and PageSize must be positive.
type Filter struct {
	Statuses  []string
	SchoolIDs []string
	CollectID string
	StartDate string
	EndDate   string
	SortBy    string
	SortOrder string
	Page      int
	PageSize  int
}

// resolved is the validated, typed form of a Filter.
type resolved struct {
	statuses  []string
	schoolIDs []primitive.ObjectID
	collectID *primitive.ObjectID
	start     *time.Time
	end       *time.Time
	sortField string
	desc      bool
	page      int
	pageSize  int
}

func (f Filter) resolve() (*resolved, error) {
	if f.Page <= 0 || f.PageSize <= 0 {
		return nil, apperror.ErrInvalidPageSize
	}

	r := &resolved{page: f.Page, pageSize: f.PageSize}

	for _, raw := range f.Statuses {
		status, err := order.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		r.statuses = append(r.statuses, string(status))
	}

	for _, raw := range f.SchoolIDs {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(raw))
		if err != nil {
			return nil, apperror.Validation("school_id must be a valid identifier")
		}
		r.schoolIDs = append(r.schoolIDs, id)
	}

	if f.CollectID != "" {
		id, err := primitive.ObjectIDFromHex(strings.TrimSpace(f.CollectID))
		if err != nil {
			return nil, apperror.ErrMalformedOrderID
		}
		r.collectID = &id
	}

	// Unparsable date bounds are dropped, never rejected; see parseLenientTime.
	r.start = parseLenientTime(f.StartDate)
	r.end = parseLenientTime(f.EndDate)

	switch f.SortBy {
	case "", SortByPaymentTime:
		r.sortField = "order_status.payment_time"
	case SortByTransactionAmount:
		r.sortField = "order_status.transaction_amount"
	case SortByOrderAmount:
		r.sortField = "order_status.order_amount"
	case SortByStatus:
		r.sortField = "order_status.status"
	default:
		return nil, apperror.ErrInvalidSortField
	}

	switch f.SortOrder {
	case "", SortAsc:
	case SortDesc:
		r.desc = true
	default:
		return nil, apperror.ErrInvalidSortOrder
	}

	return r, nil
}

var lenientLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseLenientTime is the single place where a bad date string is tolerated:
// a bound that does not parse is treated as absent so a listing request never
// fails over a cosmetic filter mistake. Do not reuse this for fields where
// invalid input must be rejected.
func parseLenientTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range lenientLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	return nil
}
