package license

import (
	"errors"
	"time"
)

// Domain outcomes of the activation pipeline. Each maps to exactly one
// stable wire status; the transport layer does the mapping.
var (
	// ErrInvalidKey covers undecodable keys, bad signatures, and keys
	// issued for another product.
	ErrInvalidKey = errors.New("license key is invalid")

	// ErrPlatformMismatch means the key does not cover the requesting
	// platform.
	ErrPlatformMismatch = errors.New("license platform mismatch")

	// ErrNotFound means the key verified but no record exists for it.
	ErrNotFound = errors.New("license not found")

	// ErrExpired means the license record has a set expiry in the past.
	ErrExpired = errors.New("license expired")

	// ErrDeviceMismatch means the device slots are taken by other
	// fingerprints. Binding is sticky: activation never evicts an
	// existing binding.
	ErrDeviceMismatch = errors.New("license bound to a different device")
)

// Options is the immutable licensing configuration, validated at
// startup.
type Options struct {
	ProductID      string
	ProductName    string
	MaxDevices     int
	ActivationDays int
	Platforms      []string
}

// ActivationWindow returns how long an issued activation token stays
// valid.
func (o Options) ActivationWindow() time.Duration {
	return time.Duration(o.ActivationDays) * 24 * time.Hour
}
