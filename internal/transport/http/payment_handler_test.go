package http

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"uvlicense/internal/payment"
)

type mockPaymentService struct {
	mock.Mock
}

func (m *mockPaymentService) HandleCompleted(ctx context.Context, ev payment.Event) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

func validWebhookBody() map[string]string {
	return map[string]string{
		"order_id":       "ORDER-1",
		"payer_id":       "PAYER-7",
		"email":          "buyer@example.com",
		"amount":         "29.99",
		"payment_status": "COMPLETED",
	}
}

func TestWebhookIssuesKey(t *testing.T) {
	svc := &mockPaymentService{}
	svc.On("HandleCompleted", mock.Anything, payment.Event{
		OrderID:       "ORDER-1",
		PayerID:       "PAYER-7",
		Email:         "buyer@example.com",
		Amount:        "29.99",
		PaymentStatus: "COMPLETED",
	}).Return("key-abc", nil)

	handler := NewPaymentHandler(svc, testLogger())
	rec := postJSON(t, handler.Routes(), "/webhook", validWebhookBody())

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "key-abc", body["license_key"])
	svc.AssertExpectations(t)
}

func TestWebhookRejectsIncompletePayment(t *testing.T) {
	svc := &mockPaymentService{}
	svc.On("HandleCompleted", mock.Anything, mock.Anything).
		Return("", payment.ErrNotCompleted)

	handler := NewPaymentHandler(svc, testLogger())
	payload := validWebhookBody()
	payload["payment_status"] = "PENDING"
	rec := postJSON(t, handler.Routes(), "/webhook", payload)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "payment_not_completed", body["status"])
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	cases := []struct {
		name string
		body map[string]string
	}{
		{"empty body", map[string]string{}},
		{"missing order id", map[string]string{"payment_status": "COMPLETED"}},
		{"missing status", map[string]string{"order_id": "ORDER-1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockPaymentService{}
			handler := NewPaymentHandler(svc, testLogger())
			rec := postJSON(t, handler.Routes(), "/webhook", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			svc.AssertNotCalled(t, "HandleCompleted")
		})
	}
}

func TestWebhookStoreFailureIs500(t *testing.T) {
	svc := &mockPaymentService{}
	svc.On("HandleCompleted", mock.Anything, mock.Anything).
		Return("", context.DeadlineExceeded)

	handler := NewPaymentHandler(svc, testLogger())
	rec := postJSON(t, handler.Routes(), "/webhook", validWebhookBody())

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "internal_error", body["status"])
}
