// Package signing produces and verifies the tamper-evident tokens the
// license protocol runs on: license keys and activation tokens. Both
// are HMAC-SHA256 signed JWTs, so a client can check authenticity
// offline and any single-bit mutation fails verification. Nothing here
// touches the record store; binding and expiry policy live server-side
// in the activation coordinator.
package signing

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures. ErrMalformed covers tokens that cannot be
// decoded at all; ErrBadSignature covers tokens that decode but fail
// authentication. Verify never returns a payload alongside either.
var (
	ErrMalformed    = errors.New("token is malformed")
	ErrBadSignature = errors.New("token signature is invalid")
)

// PlatformAny is the wildcard platform tag on license payloads.
const PlatformAny = "any"

// LicensePayload is the signed content of a license key. It asserts a
// product/platform entitlement independent of any device and carries
// no expiry of its own.
type LicensePayload struct {
	LicenseID string `json:"lid"`
	Product   string `json:"product"`
	Platform  string `json:"platform"`
}

// ActivationClaims is the signed content of an activation token. The
// embedded expiry bounds how long a device may operate offline before
// re-validating.
type ActivationClaims struct {
	LicenseID         string    `json:"lid"`
	DeviceFingerprint string    `json:"dfp"`
	IssuedAt          time.Time `json:"-"`
	ExpiresAt         time.Time `json:"-"`
}

type licenseClaims struct {
	jwt.RegisteredClaims
	LicenseID string `json:"lid"`
	Product   string `json:"product"`
	Platform  string `json:"platform"`
}

type activationClaims struct {
	jwt.RegisteredClaims
	LicenseID         string `json:"lid"`
	DeviceFingerprint string `json:"dfp"`
}

// Signer signs and verifies tokens with a server-held shared secret.
type Signer struct {
	secret []byte
}

// New creates a Signer. The secret must be non-empty; it is supplied
// at process start and never rotated at runtime.
func New(secret []byte) (*Signer, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}
	return &Signer{secret: secret}, nil
}

// SignLicense serializes and signs a license payload into an opaque key.
func (s *Signer) SignLicense(payload LicensePayload) (string, error) {
	if payload.LicenseID == "" {
		return "", errors.New("license id is required")
	}

	claims := licenseClaims{
		LicenseID: payload.LicenseID,
		Product:   payload.Product,
		Platform:  payload.Platform,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign license payload: %w", err)
	}
	return token, nil
}

// VerifyLicense authenticates a license key and returns its payload.
func (s *Signer) VerifyLicense(key string) (LicensePayload, error) {
	var claims licenseClaims
	if err := s.parse(key, &claims); err != nil {
		return LicensePayload{}, err
	}
	return LicensePayload{
		LicenseID: claims.LicenseID,
		Product:   claims.Product,
		Platform:  claims.Platform,
	}, nil
}

// SignActivation signs an activation token. IssuedAt and ExpiresAt are
// carried as Unix seconds in the registered claims.
func (s *Signer) SignActivation(claims ActivationClaims) (string, error) {
	if claims.LicenseID == "" {
		return "", errors.New("license id is required")
	}
	if claims.DeviceFingerprint == "" {
		return "", errors.New("device fingerprint is required")
	}

	payload := activationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
		LicenseID:         claims.LicenseID,
		DeviceFingerprint: claims.DeviceFingerprint,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, payload).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign activation claims: %w", err)
	}
	return token, nil
}

// VerifyActivation authenticates an activation token and returns its
// claims. Expiry of the token itself is the client's concern; the
// server re-binds through the activation pipeline, so verification
// here only checks authenticity.
func (s *Signer) VerifyActivation(token string) (ActivationClaims, error) {
	var claims activationClaims
	if err := s.parse(token, &claims); err != nil {
		return ActivationClaims{}, err
	}

	out := ActivationClaims{
		LicenseID:         claims.LicenseID,
		DeviceFingerprint: claims.DeviceFingerprint,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// parse decodes and authenticates a token. The HMAC comparison inside
// the jwt library is constant time. Claims validation is skipped so
// license keys without exp parse cleanly and activation tokens can be
// inspected past their expiry; time policy belongs to callers.
func (s *Signer) parse(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return mapJWTError(err)
	}
	return nil
}

// mapJWTError collapses jwt library errors into the package taxonomy.
func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrBadSignature
	case errors.Is(err, jwt.ErrTokenMalformed), errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrMalformed
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
