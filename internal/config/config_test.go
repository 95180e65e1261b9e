package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := Default()
	cfg.License.ProductID = "ultimate-video"
	cfg.License.ProductName = "Ultimate Video"
	cfg.License.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Payment.CheckoutURL = "https://pay.example.com/checkout"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 1, cfg.License.MaxDevices)
	assert.Equal(t, 30, cfg.License.ActivationDays)
	assert.Equal(t, []string{"windows", "macos"}, cfg.License.Platforms)
	assert.Equal(t, "paypal", cfg.Payment.Provider)
	assert.Equal(t, "COMPLETED", cfg.Payment.CompletedStatus)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.True(t, cfg.Limits.Enabled)

	// The secret never defaults.
	assert.Empty(t, cfg.License.Secret)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing secret", func(c *Config) { c.License.Secret = "" }},
		{"short secret", func(c *Config) { c.License.Secret = "too-short" }},
		{"missing product id", func(c *Config) { c.License.ProductID = "" }},
		{"zero max devices", func(c *Config) { c.License.MaxDevices = 0 }},
		{"zero activation days", func(c *Config) { c.License.ActivationDays = 0 }},
		{"empty platform tag", func(c *Config) { c.License.Platforms = []string{"windows", " "} }},
		{"bad checkout url", func(c *Config) { c.Payment.CheckoutURL = "not a url" }},
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log output", func(c *Config) { c.Logging.Output = "syslog" }},
		{"zero rps", func(c *Config) { c.Limits.RPS = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

// writeConfigFile drops a config.yaml into a temp working directory so
// Load picks it up.
func writeConfigFile(t *testing.T, content string) {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

const yamlConfig = `
server:
  port: 9090
license:
  product_id: ultimate-video
  product_name: Ultimate Video
  secret: 0123456789abcdef0123456789abcdef
  max_devices: 3
  activation_days: 7
payment:
  checkout_url: https://pay.example.com/checkout
`

// File-supplied values must survive the env overlay when the
// corresponding variables are unset.
func TestLoadFromYAMLFile(t *testing.T) {
	writeConfigFile(t, yamlConfig)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3, cfg.License.MaxDevices)
	assert.Equal(t, 7, cfg.License.ActivationDays)
	assert.Equal(t, "ultimate-video", cfg.License.ProductID)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "paypal", cfg.Payment.Provider)
	assert.Equal(t, []string{"windows", "macos"}, cfg.License.Platforms)
	assert.Equal(t, "stdout", cfg.Logging.Output)
	assert.True(t, cfg.Limits.Enabled)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	writeConfigFile(t, yamlConfig)
	t.Setenv("UV_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	// Env only overrides what it names.
	assert.Equal(t, 3, cfg.License.MaxDevices)
	assert.Equal(t, 7, cfg.License.ActivationDays)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UV_LICENSE_PRODUCT_ID", "ultimate-video")
	t.Setenv("UV_LICENSE_PRODUCT_NAME", "Ultimate Video")
	t.Setenv("UV_LICENSE_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("UV_LICENSE_MAX_DEVICES", "3")
	t.Setenv("UV_PAYMENT_CHECKOUT_URL", "https://pay.example.com/checkout")
	t.Setenv("UV_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ultimate-video", cfg.License.ProductID)
	assert.Equal(t, 3, cfg.License.MaxDevices)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Untouched fields keep their defaults.
	assert.Equal(t, "paypal", cfg.Payment.Provider)
}

func TestLoadRejectsIncompleteEnv(t *testing.T) {
	t.Setenv("UV_LICENSE_PRODUCT_ID", "ultimate-video")
	t.Setenv("UV_LICENSE_PRODUCT_NAME", "Ultimate Video")
	t.Setenv("UV_PAYMENT_CHECKOUT_URL", "https://pay.example.com/checkout")
	// No secret.

	_, err := Load()
	assert.Error(t, err)
}
