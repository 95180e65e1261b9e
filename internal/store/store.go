// Package store defines the durable record types and persistence
// interfaces for purchases and licenses. Implementations must provide
// atomic per-record writes: a cancelled or crashed write never leaves a
// half-written record behind.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// ErrOrderExists indicates a purchase for the order has already been
// recorded. Callers use it to detect webhook redelivery.
var ErrOrderExists = errors.New("order already recorded")

// DeviceBinding associates a license with one device fingerprint.
type DeviceBinding struct {
	Fingerprint string    `json:"fingerprint"`
	BoundAt     time.Time `json:"bound_at"`
}

// LicenseRecord is the durable state of an issued license. The ID is
// immutable after creation; Devices grows only through activation
// binding or an explicit rebind, never past MaxDevices.
type LicenseRecord struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	MaxDevices  int             `json:"max_devices"`
	Platforms   []string        `json:"platforms"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
	Devices     []DeviceBinding `json:"devices,omitempty"`
}

// Expired reports whether the license has a set expiry in the past.
func (r LicenseRecord) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && now.After(*r.ExpiresAt)
}

// BoundTo reports whether fingerprint is already in the device set.
func (r LicenseRecord) BoundTo(fingerprint string) bool {
	for _, d := range r.Devices {
		if d.Fingerprint == fingerprint {
			return true
		}
	}
	return false
}

// BuyerInfo identifies the purchaser. Only a keyed hash of the buyer's
// email is ever persisted; the raw address is discarded at intake.
type BuyerInfo struct {
	PayerID   string `json:"payer_id"`
	EmailHash string `json:"email_hash"`
}

// ProductInfo is a snapshot of the product at purchase time.
type ProductInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LicenseInfo is a denormalized copy of the issued license's public
// facts, kept on the purchase so webhook redelivery can return the
// original key without re-issuing.
type LicenseInfo struct {
	LicenseID  string `json:"license_id"`
	LicenseKey string `json:"license_key"`
	Platform   string `json:"platform"`
}

// PurchaseRecord is the durable state of one completed payment. It is
// written once and never mutated. OrderID maps to at most one record.
type PurchaseRecord struct {
	OrderID   string      `json:"order_id"`
	Provider  string      `json:"provider"`
	Status    string      `json:"status"`
	Amount    string      `json:"amount"`
	Product   ProductInfo `json:"product"`
	Buyer     BuyerInfo   `json:"buyer"`
	License   LicenseInfo `json:"license"`
	CreatedAt time.Time   `json:"created_at"`
}

// LicenseStore persists license records.
type LicenseStore interface {
	// PutLicense creates or replaces a license record.
	PutLicense(ctx context.Context, rec LicenseRecord) error

	// GetLicense fetches a license record or ErrNotFound.
	GetLicense(ctx context.Context, id string) (LicenseRecord, error)

	// UpdateLicense applies fn to the stored record inside a single
	// write transaction and persists the result. The read-check-write
	// sequence is serialized per store, so concurrent updates to the
	// same ID are linearizable. An error from fn aborts the update
	// without committing.
	UpdateLicense(ctx context.Context, id string, fn func(*LicenseRecord) error) (LicenseRecord, error)
}

// PurchaseStore persists purchase records keyed by order ID.
type PurchaseStore interface {
	// RecordPurchase writes the purchase, its license record, and the
	// order index entry in one atomic transaction. Returns
	// ErrOrderExists without writing anything when the order ID is
	// already recorded.
	RecordPurchase(ctx context.Context, purchase PurchaseRecord, license LicenseRecord) error

	// GetPurchaseByOrder fetches the purchase for an order ID or
	// ErrNotFound.
	GetPurchaseByOrder(ctx context.Context, orderID string) (PurchaseRecord, error)

	// ListPurchases returns all recorded purchases ordered by order ID.
	ListPurchases(ctx context.Context) ([]PurchaseRecord, error)
}

// Store combines the license and purchase stores behind one handle.
type Store interface {
	LicenseStore
	PurchaseStore
	Close() error
}
