package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uvlicense/internal/signing"
)

func TestIssuerProducesVerifiableKeys(t *testing.T) {
	signer, err := signing.New([]byte("test-secret-0123456789abcdef"))
	require.NoError(t, err)
	issuer := NewIssuer(signer, testOpts)

	issued, err := issuer.Issue("windows")
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Key)
	assert.NotEmpty(t, issued.Payload.LicenseID)

	payload, err := signer.VerifyLicense(issued.Key)
	require.NoError(t, err)
	assert.Equal(t, issued.Payload, payload)
	assert.Equal(t, "ultimate-video", payload.Product)
	assert.Equal(t, "windows", payload.Platform)
}

func TestIssuerDefaultsToWildcardPlatform(t *testing.T) {
	signer, err := signing.New([]byte("test-secret-0123456789abcdef"))
	require.NoError(t, err)
	issuer := NewIssuer(signer, testOpts)

	issued, err := issuer.Issue("")
	require.NoError(t, err)
	assert.Equal(t, signing.PlatformAny, issued.Payload.Platform)
}

func TestIssuerKeysAreUnique(t *testing.T) {
	signer, err := signing.New([]byte("test-secret-0123456789abcdef"))
	require.NoError(t, err)
	issuer := NewIssuer(signer, testOpts)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		issued, err := issuer.Issue("any")
		require.NoError(t, err)
		require.False(t, seen[issued.Payload.LicenseID], "duplicate license id")
		seen[issued.Payload.LicenseID] = true
	}
}
