// Package payment orchestrates payment initiation: it asks the gateway for a
// collect request and records the resulting order.
package payment

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/gateway"
	"paytrack-service/internal/order"
)

var amountPattern = regexp.MustCompile(`^\d+$`)

type CreateRequest struct {
	SchoolID      string `json:"school_id"`
	TrusteeID     string `json:"trustee_id"`
	CustomOrderID string `json:"custom_order_id"`
	Amount        string `json:"amount"`
	CallbackURL   string `json:"callback_url"`
}

type CreateResponse struct {
	OrderID           string `json:"order_id"`
	CustomOrderID     string `json:"custom_order_id"`
	CollectRequestID  string `json:"collect_request_id"`
	CollectRequestURL string `json:"collect_request_url"`
	Sign              string `json:"sign"`
}

// CollectRequester is the outbound gateway call.
type CollectRequester interface {
	CreateCollectRequest(ctx context.Context, req gateway.CollectRequest) (*gateway.CollectResponse, error)
}

// OrderCreator records the order once the gateway accepted the request.
type OrderCreator interface {
	Create(ctx context.Context, fields order.CreateFields) (*order.Order, error)
}

type Service struct {
	gateway     CollectRequester
	orders      OrderCreator
	gatewayName string
	logger      *slog.Logger
}

func NewService(gw CollectRequester, orders OrderCreator, gatewayName string, logger *slog.Logger) *Service {
	return &Service{gateway: gw, orders: orders, gatewayName: gatewayName, logger: logger}
}

// Create validates the request, obtains a collect request from the gateway,
// and persists the order with its seeded pending status row.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResponse, error) {
	schoolID, err := primitive.ObjectIDFromHex(req.SchoolID)
	if err != nil {
		return nil, apperror.Validation("school_id must be a valid identifier")
	}

	trusteeID := primitive.NilObjectID
	if req.TrusteeID != "" {
		trusteeID, err = primitive.ObjectIDFromHex(req.TrusteeID)
		if err != nil {
			return nil, apperror.Validation("trustee_id must be a valid identifier")
		}
	}

	if req.CustomOrderID == "" {
		return nil, apperror.Validation("custom_order_id is required")
	}

	if !amountPattern.MatchString(req.Amount) {
		return nil, apperror.Validation("amount must be a numeric string")
	}
	amount, _ := strconv.ParseFloat(req.Amount, 64)

	if _, err := url.ParseRequestURI(req.CallbackURL); err != nil {
		return nil, apperror.Validation("callback_url must be a valid URL")
	}

	collectResp, err := s.gateway.CreateCollectRequest(ctx, gateway.CollectRequest{
		SchoolID:    req.SchoolID,
		Amount:      req.Amount,
		CallbackURL: req.CallbackURL,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Error creating collect request", "error", err)
		return nil, err
	}

	o, err := s.orders.Create(ctx, order.CreateFields{
		SchoolID:      schoolID,
		TrusteeID:     trusteeID,
		CustomOrderID: req.CustomOrderID,
		GatewayName:   s.gatewayName,
		OrderAmount:   amount,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Order created", "orderId", o.ID.Hex(), "customOrderId", o.CustomOrderID)

	return &CreateResponse{
		OrderID:           o.ID.Hex(),
		CustomOrderID:     o.CustomOrderID,
		CollectRequestID:  collectResp.CollectRequestID,
		CollectRequestURL: collectResp.CollectRequestURL,
		Sign:              collectResp.Sign,
	}, nil
}
