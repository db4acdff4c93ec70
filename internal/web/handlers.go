// Package web is the thin HTTP layer: request decoding, auth verification,
// and response shaping. Domain behavior lives in the engines it calls.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"paytrack-service/internal/apperror"
	"paytrack-service/internal/payment"
	"paytrack-service/internal/reconcile"
	"paytrack-service/internal/transaction"
)

type PaymentCreator interface {
	Create(ctx context.Context, req payment.CreateRequest) (*payment.CreateResponse, error)
}

type TransactionQuerier interface {
	Query(ctx context.Context, filter transaction.Filter) (*transaction.Page, error)
	BySchool(ctx context.Context, schoolID string) ([]transaction.Row, error)
	StatusByCustomOrderID(ctx context.Context, customOrderID string) ([]transaction.Row, error)
}

type Reconciler interface {
	Apply(ctx context.Context, event reconcile.Event) error
}

type Handlers struct {
	payments     PaymentCreator
	transactions TransactionQuerier
	reconciler   Reconciler
	logger       *slog.Logger
}

func NewHandlers(payments PaymentCreator, transactions TransactionQuerier, reconciler Reconciler, logger *slog.Logger) *Handlers {
	return &Handlers{payments: payments, transactions: transactions, reconciler: reconciler, logger: logger}
}

func (h *Handlers) Register(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.HandleFunc("GET /liveness", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.Handle("POST /create-payment", auth(http.HandlerFunc(h.createPayment)))
	mux.Handle("GET /transactions", auth(http.HandlerFunc(h.listTransactions)))
	mux.Handle("GET /transactions/school/{schoolId}", auth(http.HandlerFunc(h.transactionsBySchool)))
	mux.Handle("GET /transaction-status/{customOrderId}", auth(http.HandlerFunc(h.transactionStatus)))

	// The gateway authenticates through its own retry contract, not a bearer
	// token; the payload is validated before any state change.
	mux.HandleFunc("POST /webhook", h.webhook)
}

func (h *Handlers) createPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.Validation("request body is not valid JSON"))
		return
	}

	resp, err := h.payments.Create(r.Context(), req)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error creating payment", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := transaction.Filter{
		Statuses:  splitMulti(query["status"]),
		SchoolIDs: splitMulti(query["school_id"]),
		CollectID: query.Get("collect_id"),
		StartDate: query.Get("startDate"),
		EndDate:   query.Get("endDate"),
		SortBy:    query.Get("sortBy"),
		SortOrder: query.Get("sortOrder"),
		Page:      intParam(query.Get("page"), 1),
		PageSize:  intParam(query.Get("limit"), 10),
	}

	page, err := h.transactions.Query(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *Handlers) transactionsBySchool(w http.ResponseWriter, r *http.Request) {
	schoolID := r.PathValue("schoolId")

	rows, err := h.transactions.BySchool(r.Context(), schoolID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"schoolId":     schoolID,
		"transactions": rows,
	})
}

func (h *Handlers) transactionStatus(w http.ResponseWriter, r *http.Request) {
	rows, err := h.transactions.StatusByCustomOrderID(r.Context(), r.PathValue("customOrderId"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

type webhookPayload struct {
	Status    int             `json:"status"`
	OrderInfo reconcile.Event `json:"order_info"`
}

func (h *Handlers) webhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apperror.Validation("request body is not valid JSON"))
		return
	}

	if err := h.reconciler.Apply(r.Context(), payload.OrderInfo); err != nil {
		h.logger.ErrorContext(r.Context(), "Error handling webhook", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Transaction updated successfully"})
}

func splitMulti(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.KindValidation:
		status = http.StatusBadRequest
	case apperror.KindNotFound:
		status = http.StatusNotFound
	case apperror.KindConflict:
		status = http.StatusConflict
	case apperror.KindUnavailable:
		status = http.StatusServiceUnavailable
	case apperror.KindTimeout:
		status = http.StatusGatewayTimeout
	}

	var appErr *apperror.Error
	message := "internal error"
	if errors.As(err, &appErr) {
		message = appErr.Error()
	}

	writeJSON(w, status, map[string]string{"message": message})
}
