// Package errors defines the client-facing error surface. Every
// expected protocol outcome renders as a structured 4xx body with a
// stable status code; store I/O failures are the only 5xx class.
package errors

import (
	"net/http"

	"github.com/go-chi/render"
)

// ErrResponse is a structured API error implementing render.Renderer.
// The Status field is the machine-checkable code clients branch on.
type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	Status         string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

// Error implements the error interface.
func (e *ErrResponse) Error() string {
	if e.ErrorText != "" {
		return e.ErrorText
	}
	return e.Status
}

// Render implements the render.Renderer interface.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// Stable status codes for the license protocol.
const (
	StatusInvalid             = "invalid"
	StatusPlatformMismatch    = "platform_mismatch"
	StatusNotFound            = "not_found"
	StatusExpired             = "expired"
	StatusDeviceMismatch      = "device_mismatch"
	StatusPaymentNotCompleted = "payment_not_completed"
)

// Predefined protocol outcomes. All are expected, recoverable, and
// surfaced as 400s; none carry token or validity fields.
var (
	ErrInvalidLicense = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusInvalid,
		ErrorText:      "The license key is invalid or was not issued for this product",
	}

	ErrPlatformMismatch = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusPlatformMismatch,
		ErrorText:      "The license does not cover the requesting platform",
	}

	ErrLicenseNotFound = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusNotFound,
		ErrorText:      "The license is not on record",
	}

	ErrLicenseExpired = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusExpired,
		ErrorText:      "The license has expired",
	}

	ErrDeviceMismatch = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusDeviceMismatch,
		ErrorText:      "The license is bound to a different device",
	}

	ErrPaymentNotCompleted = &ErrResponse{
		HTTPStatusCode: http.StatusBadRequest,
		Status:         StatusPaymentNotCompleted,
		ErrorText:      "The payment has not been completed",
	}
)

// ErrInvalidRequest creates a bad request error for undecodable or
// unvalidatable request bodies.
func ErrInvalidRequest(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		Status:         "invalid_request",
		ErrorText:      err.Error(),
	}
}

// ErrInternal creates an internal server error. The underlying error is
// logged, never sent to the client.
func ErrInternal(err error) *ErrResponse {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		Status:         "internal_error",
		ErrorText:      "An unexpected error occurred. Please try again later",
	}
}
