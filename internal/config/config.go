// Package config loads and validates the process configuration. Values
// come from environment variables (UV prefix) with an optional YAML
// file underneath; everything is validated once at startup and never
// mutated afterwards.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Payment PaymentConfig `yaml:"payment" envconfig:"PAYMENT"`
	Store   StoreConfig   `yaml:"store" envconfig:"STORE"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Limits  LimitsConfig  `yaml:"limits" envconfig:"LIMITS"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
}

// LicenseConfig is the immutable licensing configuration: which product
// this server issues licenses for, how many devices a license may bind,
// and how long an activation token stays valid.
type LicenseConfig struct {
	ProductID      string   `yaml:"product_id" envconfig:"PRODUCT_ID" validate:"required"`
	ProductName    string   `yaml:"product_name" envconfig:"PRODUCT_NAME" validate:"required"`
	MaxDevices     int      `yaml:"max_devices" envconfig:"MAX_DEVICES" validate:"min=1"`
	ActivationDays int      `yaml:"activation_days" envconfig:"ACTIVATION_DAYS" validate:"min=1"`
	Platforms      []string `yaml:"platforms" envconfig:"PLATFORMS" validate:"min=1"`
	Secret         string   `yaml:"secret" envconfig:"SECRET" validate:"required,min=16"`
}

// PaymentConfig describes the external payment provider boundary.
type PaymentConfig struct {
	Provider        string `yaml:"provider" envconfig:"PROVIDER" validate:"required"`
	CompletedStatus string `yaml:"completed_status" envconfig:"COMPLETED_STATUS" validate:"required"`
	CheckoutURL     string `yaml:"checkout_url" envconfig:"CHECKOUT_URL" validate:"required,url"`
}

// StoreConfig locates the record database.
type StoreConfig struct {
	Path string `yaml:"path" envconfig:"PATH" validate:"required"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// LimitsConfig contains rate limiting configuration.
type LimitsConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gt=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"min=1"`
}

// Load reads configuration from an optional YAML file, overlays
// environment variables, and validates the result. Precedence is
// defaults, then file, then environment; defaults live in Default()
// only, so envconfig never touches a field whose variable is unset.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := envconfig.Process("UV", cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks structural constraints plus the rules the tag
// language cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	for _, p := range c.License.Platforms {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("license platforms must not contain empty tags")
		}
	}
	switch strings.ToLower(c.Logging.Output) {
	case "stdout", "file", "both":
	default:
		return fmt.Errorf("logging output must be stdout, file, or both: %q", c.Logging.Output)
	}
	return nil
}

// configFilePath returns the first config file found in the usual
// locations, or empty to rely on env vars only.
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Default returns the documented default configuration. The license
// secret has no default; it must be supplied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		License: LicenseConfig{
			MaxDevices:     1,
			ActivationDays: 30,
			Platforms:      []string{"windows", "macos"},
		},
		Payment: PaymentConfig{
			Provider:        "paypal",
			CompletedStatus: "COMPLETED",
		},
		Store: StoreConfig{
			Path: "data/records.db",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "stdout",
			FilePath: "logs/uvlicensed.log",
		},
		Limits: LimitsConfig{
			Enabled: true,
			RPS:     50,
			Burst:   25,
		},
	}
}
