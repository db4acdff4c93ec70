// Package reconcile consumes gateway status-update events and applies them
// to order state, appending every event to the webhook audit log.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/db"
	"paytrack-service/internal/logging"
)

var (
	reconcileErrorValidationCounter = metrics.GetOrCreateCounter(`reconcile_total{result="validation_failed"}`)
	reconcileErrorUpdateCounter     = metrics.GetOrCreateCounter(`reconcile_total{result="update_failed"}`)
	reconcileErrorAuditCounter      = metrics.GetOrCreateCounter(`reconcile_total{result="audit_failed"}`)
	reconcileNotFoundCounter        = metrics.GetOrCreateCounter(`reconcile_total{result="order_not_found"}`)
	reconcileSuccessCounter         = metrics.GetOrCreateCounter(`reconcile_total{result="success"}`)

	reconcileDurationHistogram = metrics.GetOrCreateHistogram(`reconcile_duration_milliseconds`)
)

// StatusUpdater issues the atomic point update against the order status row.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, collectID primitive.ObjectID, set bson.M) (int64, error)
}

// AuditAppender appends one audit row per event.
type AuditAppender interface {
	Create(ctx context.Context, entity *db.WebhookLogEntity) (*db.WebhookLogEntity, error)
}

type Engine struct {
	orders StatusUpdater
	audit  AuditAppender
	logger *slog.Logger
	now    func() time.Time
}

func NewEngine(orders StatusUpdater, audit AuditAppender, logger *slog.Logger) *Engine {
	return &Engine{orders: orders, audit: audit, logger: logger, now: time.Now}
}

// Apply validates the event, updates the matching status row, and appends
// the audit record. The audit append runs after the update attempt was
// issued and regardless of its matched count, so an event referencing an
// unknown order still leaves exactly one audit row before the caller sees
// OrderNotFound.
func (e *Engine) Apply(ctx context.Context, event Event) error {
	startTime := time.Now()
	ctx = logging.AppendCtx(ctx, slog.String("orderId", event.OrderID))

	parsed, err := event.parse()
	if err != nil {
		e.logger.WarnContext(ctx, "Rejected status update event", "error", err)
		reconcileErrorValidationCounter.Inc()
		return err
	}

	now := e.now().UTC()

	set := bson.M{
		"order_amount":       event.OrderAmount.InexactFloat64(),
		"transaction_amount": event.TransactionAmount.InexactFloat64(),
		"gateway":            event.Gateway,
		"bank_reference":     event.BankReference,
		"status":             string(parsed.status),
		"payment_mode":       event.PaymentMode,
		"payment_details":    event.PaymentDetails,
		"payment_message":    event.PaymentMessage,
		"payment_time":       parsed.paymentTime,
		"error_message":      event.ErrorMessage,
		"updated_at":         now,
	}

	matched, updateErr := e.orders.UpdateStatus(ctx, parsed.collectID, set)

	// The audit trail is truth-preserving: append even when the update
	// matched nothing or failed, and never roll the append back.
	if _, err := e.audit.Create(ctx, e.auditEntity(event, parsed, now)); err != nil {
		e.logger.ErrorContext(ctx, "Error appending webhook audit log", "error", err)
		reconcileErrorAuditCounter.Inc()
		return err
	}

	if updateErr != nil {
		e.logger.ErrorContext(ctx, "Error updating order status", "error", updateErr)
		reconcileErrorUpdateCounter.Inc()
		return updateErr
	}

	if matched == 0 {
		e.logger.WarnContext(ctx, "No order status row matched status update event")
		reconcileNotFoundCounter.Inc()
		return apperror.ErrOrderNotFound
	}

	e.logger.InfoContext(ctx, "Order status reconciled", "status", string(parsed.status))
	reconcileSuccessCounter.Inc()
	reconcileDurationHistogram.Update(float64(time.Since(startTime).Milliseconds()))

	return nil
}

func (e *Engine) auditEntity(event Event, parsed *parsedEvent, receivedAt time.Time) *db.WebhookLogEntity {
	return &db.WebhookLogEntity{
		ID:                uuid.New(),
		OrderID:           event.OrderID,
		OrderAmount:       event.OrderAmount.InexactFloat64(),
		TransactionAmount: event.TransactionAmount.InexactFloat64(),
		Gateway:           event.Gateway,
		BankReference:     optional(event.BankReference),
		Status:            string(parsed.status),
		PaymentMode:       event.PaymentMode,
		PaymentDetails:    optional(event.PaymentDetails),
		PaymentMessage:    optional(event.PaymentMessage),
		PaymentTime:       parsed.paymentTime,
		ErrorMessage:      optional(event.ErrorMessage),
		ReceivedAt:        receivedAt,
	}
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
