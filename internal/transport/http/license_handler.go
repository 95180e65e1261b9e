// Package http contains the HTTP boundary: request decoding and
// validation, JSON rendering, and the mapping from domain outcomes to
// stable wire statuses. No protocol invariants live here.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "uvlicense/internal/errors"
	"uvlicense/internal/license"
	"uvlicense/internal/middleware"
)

var validate = validator.New()

// ActivationService is the domain surface the license handler needs.
type ActivationService interface {
	Activate(ctx context.Context, req license.ActivationRequest) (license.Activation, error)
	Rebind(ctx context.Context, licenseID, fingerprint string) error
}

// LicenseHandler handles license activation requests.
type LicenseHandler struct {
	service ActivationService
	logger  *slog.Logger
}

// NewLicenseHandler creates a license handler.
func NewLicenseHandler(service ActivationService, logger *slog.Logger) *LicenseHandler {
	return &LicenseHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "license")),
	}
}

// ActivateRequest is the activation request payload.
type ActivateRequest struct {
	LicenseKey        string `json:"license_key" validate:"required"`
	Platform          string `json:"platform" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

// Bind implements render.Binder.
func (a *ActivateRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// RebindRequest is the admin rebind payload.
type RebindRequest struct {
	LicenseID         string `json:"license_id" validate:"required"`
	DeviceFingerprint string `json:"device_fingerprint" validate:"required"`
}

// Bind implements render.Binder.
func (a *RebindRequest) Bind(r *http.Request) error {
	return validate.Struct(a)
}

// ActivateResponse is the successful activation response.
type ActivateResponse struct {
	Status       string    `json:"status"`
	Token        string    `json:"token"`
	ValidUntil   time.Time `json:"valid_until"`
	Entitlements []string  `json:"entitlements"`
}

// Routes returns the chi router for license endpoints.
func (h *LicenseHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/activate", h.Activate)
	r.Post("/rebind", h.Rebind)
	return r
}

// Activate handles POST /api/licenses/activate.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	data := &ActivateRequest{}
	if err := render.Bind(r, data); err != nil {
		h.logger.WarnContext(ctx, "invalid activation request",
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)
		render.Render(w, r, apperrors.ErrInvalidRequest(err))
		return
	}

	activation, err := h.service.Activate(ctx, license.ActivationRequest{
		LicenseKey:        data.LicenseKey,
		Platform:          data.Platform,
		DeviceFingerprint: data.DeviceFingerprint,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, ActivateResponse{
		Status:       "activated",
		Token:        activation.Token,
		ValidUntil:   activation.ValidUntil,
		Entitlements: activation.Entitlements,
	})
}

// Rebind handles POST /api/licenses/rebind. This is the explicit
// re-binding operation; it replaces the bound device set outright.
func (h *LicenseHandler) Rebind(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data := &RebindRequest{}
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, apperrors.ErrInvalidRequest(err))
		return
	}

	if err := h.service.Rebind(ctx, data.LicenseID, data.DeviceFingerprint); err != nil {
		h.handleError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]string{"status": "rebound"})
}

// handleError maps pipeline outcomes to their stable wire statuses.
// Everything the protocol anticipates is a 400; only store failures
// surface as 500.
func (h *LicenseHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var problem *apperrors.ErrResponse
	switch {
	case errors.Is(err, license.ErrInvalidKey):
		problem = apperrors.ErrInvalidLicense
	case errors.Is(err, license.ErrPlatformMismatch):
		problem = apperrors.ErrPlatformMismatch
	case errors.Is(err, license.ErrNotFound):
		problem = apperrors.ErrLicenseNotFound
	case errors.Is(err, license.ErrExpired):
		problem = apperrors.ErrLicenseExpired
	case errors.Is(err, license.ErrDeviceMismatch):
		problem = apperrors.ErrDeviceMismatch
	default:
		h.logger.ErrorContext(ctx, "activation failed",
			slog.String("request_id", middleware.GetReqID(ctx)),
			slog.String("error", err.Error()),
		)
		problem = apperrors.ErrInternal(err)
	}

	render.Render(w, r, problem)
}
