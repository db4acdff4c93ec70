package reconcile

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/order"
)

// Event is one gateway-delivered status assertion for an order. Amounts are
// decimals because gateways send them both as numbers and as numeric text.
type Event struct {
	OrderID           string          `json:"order_id"`
	OrderAmount       decimal.Decimal `json:"order_amount"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Gateway           string          `json:"gateway"`
	BankReference     string          `json:"bank_reference,omitempty"`
	Status            string          `json:"status"`
	PaymentMode       string          `json:"payment_mode"`
	PaymentDetails    string          `json:"payment_details,omitempty"`
	PaymentMessage    string          `json:"payment_message,omitempty"`
	PaymentTime       string          `json:"payment_time"`
	ErrorMessage      string          `json:"error_message,omitempty"`
}

// parsedEvent is the validated form; validation runs once, before any store
// access.
type parsedEvent struct {
	collectID   primitive.ObjectID
	status      order.Status
	paymentTime time.Time
}

var paymentTimeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func (e Event) parse() (*parsedEvent, error) {
	collectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(e.OrderID))
	if err != nil {
		return nil, apperror.ErrMalformedOrderID
	}

	status, err := order.ParseStatus(e.Status)
	if err != nil {
		return nil, err
	}

	// Strict, unlike the listing date filter: a reconciliation event with an
	// unreadable timestamp must not mutate state.
	var paymentTime time.Time
	parsed := false
	for _, layout := range paymentTimeLayouts {
		if ts, err := time.Parse(layout, strings.TrimSpace(e.PaymentTime)); err == nil {
			paymentTime = ts.UTC()
			parsed = true
			break
		}
	}
	if !parsed {
		return nil, apperror.Validation("payment_time is not a parseable timestamp")
	}

	return &parsedEvent{collectID: collectID, status: status, paymentTime: paymentTime}, nil
}
