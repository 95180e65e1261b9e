package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"uvlicense/internal/pricing"
)

// PricingHandler serves the plan catalog and checkout redirects.
type PricingHandler struct {
	service *pricing.Service
	logger  *slog.Logger
}

// NewPricingHandler creates a pricing handler.
func NewPricingHandler(service *pricing.Service, logger *slog.Logger) *PricingHandler {
	return &PricingHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "pricing")),
	}
}

// PricingResponse wraps the plan catalog.
type PricingResponse struct {
	Plans []pricing.Plan `json:"plans"`
}

// CheckoutRequest optionally names a plan.
type CheckoutRequest struct {
	Plan string `json:"plan"`
}

// Bind implements render.Binder. The plan field is optional.
func (c *CheckoutRequest) Bind(r *http.Request) error {
	return nil
}

// CheckoutResponse carries the provider checkout page URL.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
}

// PricingRoutes returns the router for GET /api/pricing.
func (h *PricingHandler) PricingRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetPricing)
	return r
}

// CheckoutRoutes returns the router for POST /api/checkout.
func (h *PricingHandler) CheckoutRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Checkout)
	return r
}

// GetPricing handles GET /api/pricing.
func (h *PricingHandler) GetPricing(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, PricingResponse{Plans: h.service.Plans()})
}

// Checkout handles POST /api/checkout.
func (h *PricingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	data := &CheckoutRequest{}
	// Body is optional; an empty or absent plan falls back to the bare
	// checkout page.
	_ = render.Bind(r, data)

	render.JSON(w, r, CheckoutResponse{CheckoutURL: h.service.CheckoutURL(data.Plan)})
}
