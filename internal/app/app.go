// Package app wires the application together: configuration, logging,
// telemetry, the record store, the license protocol services, and the
// HTTP router, plus the server lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"uvlicense/internal/config"
	"uvlicense/internal/infrastructure"
	"uvlicense/internal/license"
	"uvlicense/internal/middleware"
	"uvlicense/internal/payment"
	"uvlicense/internal/pricing"
	"uvlicense/internal/signing"
	"uvlicense/internal/store"
	"uvlicense/internal/store/bolt"
	handlers "uvlicense/internal/transport/http"
)

// Version is set at build time.
var Version = "dev"

// Application is the composed service.
type Application struct {
	Config      *config.Config
	Logger      *slog.Logger
	Router      *chi.Mux
	Server      *http.Server
	Store       store.Store
	Signer      *signing.Signer
	Issuer      *license.Issuer
	Coordinator *license.Coordinator
	Intake      *payment.Intake
	Pricing     *pricing.Service
	Telemetry   *infrastructure.Telemetry
}

// New builds the application from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	telemetry, err := infrastructure.NewTelemetry(Version)
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	metrics, err := license.NewMetrics(telemetry.Meter)
	if err != nil {
		return nil, fmt.Errorf("create license metrics: %w", err)
	}

	st, err := bolt.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	signer, err := signing.New([]byte(cfg.License.Secret))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create signer: %w", err)
	}

	opts := license.Options{
		ProductID:      cfg.License.ProductID,
		ProductName:    cfg.License.ProductName,
		MaxDevices:     cfg.License.MaxDevices,
		ActivationDays: cfg.License.ActivationDays,
		Platforms:      cfg.License.Platforms,
	}

	issuer := license.NewIssuer(signer, opts)
	coordinator := license.NewCoordinator(signer, st, opts, logger, metrics)
	intake := payment.NewIntake(issuer, st, payment.Options{
		Provider:        cfg.Payment.Provider,
		CompletedStatus: cfg.Payment.CompletedStatus,
	}, opts, []byte(cfg.License.Secret), logger, metrics)

	plans, err := pricing.NewService(
		pricing.DefaultPlans(cfg.License.ProductID, cfg.License.ProductName),
		cfg.Payment.CheckoutURL,
	)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build pricing catalog: %w", err)
	}

	app := &Application{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Signer:      signer,
		Issuer:      issuer,
		Coordinator: coordinator,
		Intake:      intake,
		Pricing:     plans,
		Telemetry:   telemetry,
	}
	app.setupRouter()

	app.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return app, nil
}

// setupRouter configures the HTTP router and middleware chain.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(a.Logger))
	r.Use(middleware.Recoverer(a.Logger))
	r.Use(middleware.SecurityHeaders)
	if a.Config.Limits.Enabled {
		r.Use(middleware.NewRateLimiter(a.Config.Limits.RPS, a.Config.Limits.Burst, a.Logger).Handler)
	}

	licenseHandler := handlers.NewLicenseHandler(a.Coordinator, a.Logger)
	paymentHandler := handlers.NewPaymentHandler(a.Intake, a.Logger)
	pricingHandler := handlers.NewPricingHandler(a.Pricing, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.storeCheck, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(chimw.Timeout(a.Config.Server.ReadTimeout))

		r.Mount("/pricing", pricingHandler.PricingRoutes())
		r.Mount("/checkout", pricingHandler.CheckoutRoutes())
		r.Mount("/paypal", paymentHandler.Routes())
		r.Mount("/licenses", licenseHandler.Routes())
		r.Get("/health", healthHandler.Health)
	})

	r.Handle("/metrics", a.Telemetry.PrometheusHTTP)

	a.Router = r
}

// storeCheck probes the record store. A missing probe key still means
// the store answered.
func (a *Application) storeCheck(ctx context.Context) error {
	_, err := a.Store.GetLicense(ctx, "health-probe")
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}

// Run starts the HTTP server and blocks until the context is cancelled
// or a termination signal arrives, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("server starting",
			slog.String("addr", a.Server.Addr),
			slog.String("version", Version),
			slog.String("product", a.Config.License.ProductID),
		)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.Logger.Info("shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	err := g.Wait()

	if closeErr := a.Store.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close store: %w", closeErr)
	}
	a.Logger.Info("server stopped")
	return err
}
