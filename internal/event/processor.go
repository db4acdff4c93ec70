// Package event feeds gateway status events from the message broker into
// the reconciliation engine.
package event

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"paytrack-service/internal/logging"
	"paytrack-service/internal/reconcile"
)

// StatusEvent is the broker envelope around one reconciliation event.
type StatusEvent struct {
	ID        uuid.UUID       `json:"id"`
	Event     string          `json:"event"`
	OrderInfo reconcile.Event `json:"order_info"`
}

type Reconciler interface {
	Apply(ctx context.Context, event reconcile.Event) error
}

type Processor struct {
	engine Reconciler
	logger *slog.Logger
}

func NewProcessor(engine Reconciler, logger *slog.Logger) *Processor {
	return &Processor{engine: engine, logger: logger}
}

func (p *Processor) Process(ctx context.Context, event StatusEvent) error {
	ctx = logging.AppendCtx(ctx, slog.String("eventId", event.ID.String()))

	p.logger.InfoContext(ctx, "Processing status event", "event", event.Event)

	if err := p.engine.Apply(ctx, event.OrderInfo); err != nil {
		p.logger.ErrorContext(ctx, "Error applying status event", "error", err)
		return err
	}

	return nil
}
