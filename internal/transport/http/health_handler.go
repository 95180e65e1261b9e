package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// HealthHandler reports liveness and record-store reachability.
type HealthHandler struct {
	check  func(ctx context.Context) error
	logger *slog.Logger
}

// NewHealthHandler creates a health handler. check probes the record
// store; nil disables the probe.
func NewHealthHandler(check func(ctx context.Context) error, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		check:  check,
		logger: logger.With(slog.String("handler", "health")),
	}
}

// HealthResponse is the health check body.
type HealthResponse struct {
	Status    string    `json:"status"`
	Store     string    `json:"store"`
	Timestamp time.Time `json:"timestamp"`
}

// Health handles GET /api/health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ok", Store: "ok", Timestamp: time.Now().UTC()}
	if h.check != nil {
		if err := h.check(ctx); err != nil {
			h.logger.ErrorContext(ctx, "store health check failed",
				slog.String("error", err.Error()),
			)
			resp.Status = "degraded"
			resp.Store = "unreachable"
			render.Status(r, http.StatusServiceUnavailable)
		}
	}

	render.JSON(w, r, resp)
}
