package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "uvlicense/internal/errors"
	"uvlicense/internal/middleware"
	"uvlicense/internal/payment"
)

// PaymentService is the intake surface the webhook handler needs.
type PaymentService interface {
	HandleCompleted(ctx context.Context, ev payment.Event) (string, error)
}

// PaymentHandler handles payment provider webhooks.
type PaymentHandler struct {
	service PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a payment webhook handler.
func NewPaymentHandler(service PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "payment")),
	}
}

// WebhookRequest is the provider payment-completed payload.
type WebhookRequest struct {
	OrderID       string `json:"order_id" validate:"required"`
	PayerID       string `json:"payer_id"`
	Email         string `json:"email"`
	Amount        string `json:"amount"`
	PaymentStatus string `json:"payment_status" validate:"required"`
}

// Bind implements render.Binder.
func (wr *WebhookRequest) Bind(r *http.Request) error {
	return validate.Struct(wr)
}

// WebhookResponse carries the issued (or re-delivered) license key.
type WebhookResponse struct {
	LicenseKey string `json:"license_key"`
}

// Routes returns the chi router for payment endpoints.
func (h *PaymentHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/webhook", h.Webhook)
	return r
}

// Webhook handles POST /api/paypal/webhook.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	data := &WebhookRequest{}
	if err := render.Bind(r, data); err != nil {
		h.logger.WarnContext(ctx, "invalid webhook payload",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apperrors.ErrInvalidRequest(err))
		return
	}

	key, err := h.service.HandleCompleted(ctx, payment.Event{
		OrderID:       data.OrderID,
		PayerID:       data.PayerID,
		Email:         data.Email,
		Amount:        data.Amount,
		PaymentStatus: data.PaymentStatus,
	})
	if err != nil {
		if errors.Is(err, payment.ErrNotCompleted) {
			render.Render(w, r, apperrors.ErrPaymentNotCompleted)
			return
		}
		h.logger.ErrorContext(ctx, "webhook processing failed",
			slog.String("request_id", reqID),
			slog.String("order_id", data.OrderID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apperrors.ErrInternal(err))
		return
	}

	render.JSON(w, r, WebhookResponse{LicenseKey: key})
}
