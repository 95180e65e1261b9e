package license

import (
	"fmt"

	"github.com/google/uuid"

	"uvlicense/internal/signing"
)

// SignedLicense pairs a freshly issued payload with its opaque key.
// The payload feeds the license record; the key goes to the buyer.
type SignedLicense struct {
	Payload signing.LicensePayload
	Key     string
}

// Issuer creates signed license keys. It has no side effects beyond
// identifier generation; persisting the record is the caller's job.
type Issuer struct {
	signer *signing.Signer
	opts   Options
	newID  func() string
}

// NewIssuer creates an Issuer for the configured product.
func NewIssuer(signer *signing.Signer, opts Options) *Issuer {
	return &Issuer{
		signer: signer,
		opts:   opts,
		newID:  func() string { return uuid.New().String() },
	}
}

// Issue generates a fresh license for the given platform scope and
// signs it. Platform is "any" for the wildcard or a specific tag.
func (i *Issuer) Issue(platform string) (SignedLicense, error) {
	if platform == "" {
		platform = signing.PlatformAny
	}

	payload := signing.LicensePayload{
		LicenseID: i.newID(),
		Product:   i.opts.ProductID,
		Platform:  platform,
	}

	key, err := i.signer.SignLicense(payload)
	if err != nil {
		return SignedLicense{}, fmt.Errorf("issue license: %w", err)
	}
	return SignedLicense{Payload: payload, Key: key}, nil
}
