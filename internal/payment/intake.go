// Package payment translates external payment-completed events into
// durable license state. Order IDs are idempotency keys: redelivery of
// an event returns the originally issued key and writes nothing.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"uvlicense/internal/license"
	"uvlicense/internal/signing"
	"uvlicense/internal/store"
)

// ErrNotCompleted rejects events whose payment status is anything but
// the provider's completed marker.
var ErrNotCompleted = errors.New("payment not completed")

// Event is a provider "payment completed" notification.
type Event struct {
	OrderID       string `json:"order_id"`
	PayerID       string `json:"payer_id"`
	Email         string `json:"email"`
	Amount        string `json:"amount"`
	PaymentStatus string `json:"payment_status"`
}

// Options configures the intake boundary.
type Options struct {
	Provider        string
	CompletedStatus string
}

// Intake converts completed payments into a license plus two persisted
// records.
type Intake struct {
	issuer  *license.Issuer
	store   store.PurchaseStore
	opts    Options
	lic     license.Options
	hashKey []byte
	logger  *slog.Logger
	metrics *license.Metrics
	now     func() time.Time
}

// NewIntake creates a payment intake. hashKey keys the buyer email
// hash; the raw address is never persisted.
func NewIntake(issuer *license.Issuer, st store.PurchaseStore, opts Options, lic license.Options, hashKey []byte, logger *slog.Logger, metrics *license.Metrics) *Intake {
	return &Intake{
		issuer:  issuer,
		store:   st,
		opts:    opts,
		lic:     lic,
		hashKey: hashKey,
		logger:  logger.With(slog.String("component", "payment_intake")),
		metrics: metrics,
		now:     time.Now,
	}
}

// HandleCompleted validates the event, issues a license, and persists
// the purchase and license records atomically. Redelivered orders
// return the previously issued key without minting a second license.
func (in *Intake) HandleCompleted(ctx context.Context, ev Event) (string, error) {
	key, duplicate, err := in.handle(ctx, ev)
	if in.metrics != nil {
		result := "ok"
		if err != nil {
			result = "rejected"
		}
		in.metrics.RecordWebhook(ctx, result, duplicate)
	}
	return key, err
}

func (in *Intake) handle(ctx context.Context, ev Event) (string, bool, error) {
	if ev.OrderID == "" {
		return "", false, fmt.Errorf("%w: order id is missing", ErrNotCompleted)
	}
	if !strings.EqualFold(ev.PaymentStatus, in.opts.CompletedStatus) {
		return "", false, ErrNotCompleted
	}

	// Fast path for redelivery. The authoritative check is the order
	// index inside RecordPurchase; this read just avoids issuing a
	// throwaway key for the common retry case.
	if existing, err := in.store.GetPurchaseByOrder(ctx, ev.OrderID); err == nil {
		in.logRedelivery(ctx, ev.OrderID, existing.License.LicenseID)
		return existing.License.LicenseKey, true, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", false, fmt.Errorf("lookup order %s: %w", ev.OrderID, err)
	}

	issued, err := in.issuer.Issue(signing.PlatformAny)
	if err != nil {
		return "", false, err
	}

	now := in.now()

	rec := store.LicenseRecord{
		ID:          issued.Payload.LicenseID,
		ProductID:   in.lic.ProductID,
		ProductName: in.lic.ProductName,
		MaxDevices:  in.lic.MaxDevices,
		Platforms:   append([]string(nil), in.lic.Platforms...),
		CreatedAt:   now,
	}

	purchase := store.PurchaseRecord{
		OrderID:  ev.OrderID,
		Provider: in.opts.Provider,
		Status:   strings.ToUpper(ev.PaymentStatus),
		Amount:   ev.Amount,
		Product: store.ProductInfo{
			ID:   in.lic.ProductID,
			Name: in.lic.ProductName,
		},
		Buyer: store.BuyerInfo{
			PayerID:   ev.PayerID,
			EmailHash: in.hashEmail(ev.Email),
		},
		License: store.LicenseInfo{
			LicenseID:  issued.Payload.LicenseID,
			LicenseKey: issued.Key,
			Platform:   issued.Payload.Platform,
		},
		CreatedAt: now,
	}

	err = in.store.RecordPurchase(ctx, purchase, rec)
	if errors.Is(err, store.ErrOrderExists) {
		// Lost a race with a concurrent redelivery; the winner's key
		// is the canonical one.
		existing, lookupErr := in.store.GetPurchaseByOrder(ctx, ev.OrderID)
		if lookupErr != nil {
			return "", true, fmt.Errorf("lookup order %s after conflict: %w", ev.OrderID, lookupErr)
		}
		in.logRedelivery(ctx, ev.OrderID, existing.License.LicenseID)
		return existing.License.LicenseKey, true, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("record purchase %s: %w", ev.OrderID, err)
	}

	in.logger.InfoContext(ctx, "purchase recorded",
		slog.String("order_id", ev.OrderID),
		slog.String("license_id", issued.Payload.LicenseID),
		slog.String("provider", in.opts.Provider),
	)
	return issued.Key, false, nil
}

func (in *Intake) logRedelivery(ctx context.Context, orderID, licenseID string) {
	in.logger.InfoContext(ctx, "payment event redelivered, returning original key",
		slog.String("order_id", orderID),
		slog.String("license_id", licenseID),
	)
}

// hashEmail computes the keyed one-way hash persisted in place of the
// buyer's address.
func (in *Intake) hashEmail(email string) string {
	if email == "" {
		return ""
	}
	mac := hmac.New(sha256.New, in.hashKey)
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(mac.Sum(nil))
}
