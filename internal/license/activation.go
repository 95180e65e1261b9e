package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"uvlicense/internal/signing"
	"uvlicense/internal/store"
)

// ActivationRequest is one device's attempt to activate a license key.
// Fingerprint stability across calls from the same device is the
// client's contract.
type ActivationRequest struct {
	LicenseKey        string
	Platform          string
	DeviceFingerprint string
}

// Activation is the successful outcome: a signed, time-boxed token the
// device can use to prove entitlement offline until ValidUntil.
type Activation struct {
	Token        string
	ValidUntil   time.Time
	Entitlements []string
}

// Coordinator runs the activation protocol: verify the key, enforce
// device binding against the record store, and issue an activation
// token. The pipeline is linear and total; every request ends in
// exactly one outcome.
type Coordinator struct {
	signer  *signing.Signer
	store   store.LicenseStore
	opts    Options
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// NewCoordinator creates an activation coordinator.
func NewCoordinator(signer *signing.Signer, st store.LicenseStore, opts Options, logger *slog.Logger, metrics *Metrics) *Coordinator {
	return &Coordinator{
		signer:  signer,
		store:   st,
		opts:    opts,
		logger:  logger.With(slog.String("component", "activation")),
		metrics: metrics,
		now:     time.Now,
	}
}

// Activate validates the key, binds the device on first use, and
// issues a fresh activation token. Domain failures come back as the
// package sentinel errors; anything else is a store failure.
func (c *Coordinator) Activate(ctx context.Context, req ActivationRequest) (Activation, error) {
	start := c.now()

	act, err := c.activate(ctx, req)
	c.observe(ctx, err, c.now().Sub(start))
	return act, err
}

func (c *Coordinator) activate(ctx context.Context, req ActivationRequest) (Activation, error) {
	payload, err := c.signer.VerifyLicense(req.LicenseKey)
	if err != nil {
		return Activation{}, ErrInvalidKey
	}

	if payload.Product != c.opts.ProductID {
		return Activation{}, ErrInvalidKey
	}

	if !platformCovered(payload.Platform, req.Platform) {
		return Activation{}, ErrPlatformMismatch
	}

	now := c.now()

	// Lookup, expiry check, and binding run in one store transaction,
	// so concurrent requests for the same license serialize: at most
	// MaxDevices fingerprints ever bind, and losers observe
	// ErrDeviceMismatch instead of overwriting the winner.
	rec, err := c.store.UpdateLicense(ctx, payload.LicenseID, func(rec *store.LicenseRecord) error {
		if rec.Expired(now) {
			return ErrExpired
		}
		if rec.BoundTo(req.DeviceFingerprint) {
			return nil
		}
		if len(rec.Devices) >= rec.MaxDevices {
			return ErrDeviceMismatch
		}
		rec.Devices = append(rec.Devices, store.DeviceBinding{
			Fingerprint: req.DeviceFingerprint,
			BoundAt:     now,
		})
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return Activation{}, ErrNotFound
		case errors.Is(err, ErrExpired), errors.Is(err, ErrDeviceMismatch):
			return Activation{}, err
		default:
			return Activation{}, fmt.Errorf("update license %s: %w", payload.LicenseID, err)
		}
	}

	validUntil := now.Add(c.opts.ActivationWindow())
	token, err := c.signer.SignActivation(signing.ActivationClaims{
		LicenseID:         payload.LicenseID,
		DeviceFingerprint: req.DeviceFingerprint,
		IssuedAt:          now,
		ExpiresAt:         validUntil,
	})
	if err != nil {
		return Activation{}, fmt.Errorf("sign activation token: %w", err)
	}

	c.logger.InfoContext(ctx, "license activated",
		slog.String("license_id", payload.LicenseID),
		slog.String("platform", req.Platform),
		slog.Int("bound_devices", len(rec.Devices)),
		slog.Time("valid_until", validUntil),
	)

	return Activation{
		Token:        token,
		ValidUntil:   validUntil,
		Entitlements: c.entitlements(payload, rec),
	}, nil
}

// Rebind replaces the bound device set with a single fingerprint. This
// is the only path that may change an existing binding; ordinary
// activation never evicts a device.
func (c *Coordinator) Rebind(ctx context.Context, licenseID, fingerprint string) error {
	if strings.TrimSpace(fingerprint) == "" {
		return fmt.Errorf("fingerprint is required")
	}

	now := c.now()
	_, err := c.store.UpdateLicense(ctx, licenseID, func(rec *store.LicenseRecord) error {
		rec.Devices = []store.DeviceBinding{{Fingerprint: fingerprint, BoundAt: now}}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("rebind license %s: %w", licenseID, err)
	}

	c.logger.InfoContext(ctx, "license rebound",
		slog.String("license_id", licenseID),
	)
	return nil
}

// entitlements lists the platform tags the activated device is cleared
// for: the product's full supported set for a wildcard key, or the
// key's single platform.
func (c *Coordinator) entitlements(payload signing.LicensePayload, rec store.LicenseRecord) []string {
	if payload.Platform == signing.PlatformAny {
		if len(rec.Platforms) > 0 {
			return append([]string(nil), rec.Platforms...)
		}
		return append([]string(nil), c.opts.Platforms...)
	}
	return []string{payload.Platform}
}

// observe records activation metrics by terminal status.
func (c *Coordinator) observe(ctx context.Context, err error, elapsed time.Duration) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordActivation(ctx, StatusFor(err), elapsed)
}

// StatusFor maps a pipeline outcome to its stable wire status.
// A nil error is "activated".
func StatusFor(err error) string {
	switch {
	case err == nil:
		return "activated"
	case errors.Is(err, ErrInvalidKey):
		return "invalid"
	case errors.Is(err, ErrPlatformMismatch):
		return "platform_mismatch"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrDeviceMismatch):
		return "device_mismatch"
	default:
		return "error"
	}
}

// platformCovered reports whether a key's platform scope covers the
// requesting platform. The wildcard covers everything; otherwise tags
// compare case-insensitively.
func platformCovered(scope, requested string) bool {
	if strings.EqualFold(scope, signing.PlatformAny) {
		return true
	}
	return strings.EqualFold(scope, requested)
}
