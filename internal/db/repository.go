package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"paytrack-service/internal/apperror"
)

// WebhookLogRepository writes and reads the append-only webhook audit log.
type WebhookLogRepository struct {
	pool *pgxpool.Pool
}

func NewWebhookLogRepository(pool *pgxpool.Pool) *WebhookLogRepository {
	return &WebhookLogRepository{pool: pool}
}

// Create appends one audit row. There is no update or delete counterpart.
func (r *WebhookLogRepository) Create(ctx context.Context, entity *WebhookLogEntity) (*WebhookLogEntity, error) {
	query := `INSERT INTO webhook_log (id, order_id, order_amount, transaction_amount, gateway,
	              bank_reference, status, payment_mode, payment_details, payment_message,
	              payment_time, error_message, received_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err := r.pool.QueryRow(ctx, query,
		entity.ID, entity.OrderID, entity.OrderAmount, entity.TransactionAmount, entity.Gateway,
		entity.BankReference, entity.Status, entity.PaymentMode, entity.PaymentDetails,
		entity.PaymentMessage, entity.PaymentTime, entity.ErrorMessage, entity.ReceivedAt,
	).Scan(&entity.ID)
	if err != nil {
		return nil, mapError(err)
	}
	return entity, nil
}

// GetByOrderID returns every audit row recorded for an order, oldest first.
func (r *WebhookLogRepository) GetByOrderID(ctx context.Context, orderID string) ([]*WebhookLogEntity, error) {
	query := `SELECT id, order_id, order_amount, transaction_amount, gateway, bank_reference,
	              status, payment_mode, payment_details, payment_message, payment_time,
	              error_message, received_at
	          FROM webhook_log WHERE order_id = $1 ORDER BY received_at`
	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entities []*WebhookLogEntity
	for rows.Next() {
		var entity WebhookLogEntity
		err := rows.Scan(&entity.ID, &entity.OrderID, &entity.OrderAmount, &entity.TransactionAmount,
			&entity.Gateway, &entity.BankReference, &entity.Status, &entity.PaymentMode,
			&entity.PaymentDetails, &entity.PaymentMessage, &entity.PaymentTime,
			&entity.ErrorMessage, &entity.ReceivedAt)
		if err != nil {
			return nil, mapError(err)
		}
		entities = append(entities, &entity)
	}
	return entities, rows.Err()
}

func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.ErrQueryTimeout, err)
	}
	return apperror.Wrap(apperror.ErrStoreUnavailable, err)
}
