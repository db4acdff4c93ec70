package order

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CollectionOrder       = "Order"
	CollectionOrderStatus = "OrderStatus"
)

// Order is one payment-collection request. ID is generated at creation and
// immutable; CustomOrderID is globally unique.
type Order struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	SchoolID      primitive.ObjectID `bson:"school_id" json:"school_id"`
	TrusteeID     primitive.ObjectID `bson:"trustee_id" json:"trustee_id"`
	CustomOrderID string             `bson:"custom_order_id" json:"custom_order_id"`
	GatewayName   string             `bson:"gateway_name" json:"gateway_name"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// OrderStatus is the mutable outcome record referencing its Order through
// CollectID. Reconciliation targets exactly one row per order.
type OrderStatus struct {
	CollectID         primitive.ObjectID `bson:"collect_id" json:"collect_id"`
	OrderAmount       float64            `bson:"order_amount" json:"order_amount"`
	TransactionAmount float64            `bson:"transaction_amount" json:"transaction_amount"`
	PaymentMode       string             `bson:"payment_mode" json:"payment_mode"`
	PaymentDetails    string             `bson:"payment_details,omitempty" json:"payment_details,omitempty"`
	BankReference     string             `bson:"bank_reference,omitempty" json:"bank_reference,omitempty"`
	PaymentMessage    string             `bson:"payment_message,omitempty" json:"payment_message,omitempty"`
	Status            string             `bson:"status" json:"status"`
	ErrorMessage      string             `bson:"error_message,omitempty" json:"error_message,omitempty"`
	PaymentTime       time.Time          `bson:"payment_time" json:"payment_time"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time          `bson:"updated_at" json:"updated_at"`
}
