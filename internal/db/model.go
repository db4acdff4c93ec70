package db

import (
	"time"

	"github.com/google/uuid"
)

// WebhookLogEntity is one append-only audit row: a full snapshot of a
// received reconciliation event plus the server-assigned receipt time. Rows
// are never updated or deleted.
type WebhookLogEntity struct {
	ID                uuid.UUID
	OrderID           string
	OrderAmount       float64
	TransactionAmount float64
	Gateway           string
	BankReference     *string
	Status            string
	PaymentMode       string
	PaymentDetails    *string
	PaymentMessage    *string
	PaymentTime       time.Time
	ErrorMessage      *string
	ReceivedAt        time.Time
}
