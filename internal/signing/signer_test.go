package signing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	s, err := New([]byte("test-secret-0123456789abcdef"))
	require.NoError(t, err)
	return s
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	_, err = New([]byte{})
	assert.Error(t, err)
}

func TestLicenseRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	payload := LicensePayload{
		LicenseID: "lic-123",
		Product:   "ultimate-video",
		Platform:  PlatformAny,
	}

	key, err := s.SignLicense(payload)
	require.NoError(t, err)
	require.NotEmpty(t, key)

	got, err := s.VerifyLicense(key)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestSignLicenseRequiresID(t *testing.T) {
	s := newTestSigner(t)

	_, err := s.SignLicense(LicensePayload{Product: "ultimate-video"})
	assert.Error(t, err)
}

func TestActivationRoundTrip(t *testing.T) {
	s := newTestSigner(t)

	issued := time.Now().Truncate(time.Second)
	claims := ActivationClaims{
		LicenseID:         "lic-123",
		DeviceFingerprint: "dev-123",
		IssuedAt:          issued,
		ExpiresAt:         issued.Add(30 * 24 * time.Hour),
	}

	token, err := s.SignActivation(claims)
	require.NoError(t, err)

	got, err := s.VerifyActivation(token)
	require.NoError(t, err)
	assert.Equal(t, claims.LicenseID, got.LicenseID)
	assert.Equal(t, claims.DeviceFingerprint, got.DeviceFingerprint)
	assert.True(t, claims.IssuedAt.Equal(got.IssuedAt))
	assert.True(t, claims.ExpiresAt.Equal(got.ExpiresAt))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	s := newTestSigner(t)
	other, err := New([]byte("a-different-secret-0123456789"))
	require.NoError(t, err)

	key, err := s.SignLicense(LicensePayload{LicenseID: "lic-123", Product: "p", Platform: "any"})
	require.NoError(t, err)

	_, err = other.VerifyLicense(key)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	s := newTestSigner(t)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, err := s.VerifyLicense(token)
		assert.ErrorIs(t, err, ErrMalformed, "token %q", token)
	}
}

// Any single-character mutation of a valid token must fail
// verification; a flipped bit never yields a payload.
func TestVerifyDetectsTampering(t *testing.T) {
	s := newTestSigner(t)

	key, err := s.SignLicense(LicensePayload{
		LicenseID: "lic-123",
		Product:   "ultimate-video",
		Platform:  "windows",
	})
	require.NoError(t, err)

	for i := 0; i < len(key); i++ {
		mutated := []byte(key)
		if mutated[i] == 'A' {
			mutated[i] = 'B'
		} else {
			mutated[i] = 'A'
		}
		if string(mutated) == key {
			continue
		}

		_, err := s.VerifyLicense(string(mutated))
		require.Error(t, err, "mutation at offset %d was accepted", i)
		require.True(t,
			errors.Is(err, ErrMalformed) || errors.Is(err, ErrBadSignature),
			"unexpected error for mutation at offset %d: %v", i, err)
	}
}

func TestVerifyRejectsUnsignedAlgorithm(t *testing.T) {
	s := newTestSigner(t)

	// alg=none token with a valid-looking body.
	token := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJsaWQiOiJsaWMtMTIzIn0."
	_, err := s.VerifyLicense(token)
	assert.Error(t, err)
}
