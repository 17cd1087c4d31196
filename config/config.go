// Package config loads the configuration of the cgt tool from a YAML file,
// an optional .env file and TAXLOT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/etnz/taxlot"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up in the working directory.
const DefaultFile = "taxlot.yaml"

// Supported storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Config represents the application configuration.
type Config struct {
	Timezone            string       `yaml:"timezone"`
	LotMatching         string       `yaml:"lot_matching"`
	BrokerageAllocation string       `yaml:"brokerage_allocation"`
	BaseCurrency        string       `yaml:"base_currency"`
	Backend             string       `yaml:"backend"`
	DataPath            string       `yaml:"data_path"`
	Quotes              QuotesConfig `yaml:"quotes"`
	CGTWindowDays       int          `yaml:"cgt_window_days"`
	Log                 LogConfig    `yaml:"log"`
	Listen              string       `yaml:"listen"`
}

// QuotesConfig locates market prices.
type QuotesConfig struct {
	// Manual is the quotes file maintained by "cgt price set".
	Manual string `yaml:"manual"`
	// File is a JSON document holding quotes, empty for manual quotes only.
	File string `yaml:"file"`
	// Path is the JSONPath selecting quote records in File.
	Path string `yaml:"path"`
	// StaleAfter is the age from which a quote is reported stale.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// LogConfig represents the logger configuration.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Timezone:            "Australia/Brisbane",
		LotMatching:         taxlot.FIFO.String(),
		BrokerageAllocation: taxlot.AllocateBuy.String(),
		BaseCurrency:        "AUD",
		Backend:             BackendSQLite,
		DataPath:            "portfolio.db",
		Quotes: QuotesConfig{
			Manual:     "quotes.json",
			Path:       "$.quotes[*]",
			StaleAfter: 60 * time.Minute,
		},
		CGTWindowDays: 60,
		Log:           LogConfig{Level: "info"},
		Listen:        ":8080",
	}
}

// Load loads the configuration.
//
// It starts from Default, loads a .env file from the current directory if
// available, reads the YAML file at path if it exists, then applies the
// TAXLOT_* environment variables. The result is validated.
func Load(path string) (*Config, error) {
	// Try to load .env from current directory (ignore error if not found)
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("%w: failed to parse %s: %w", taxlot.ErrInvalid, path, err)
			}
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// applyEnv overrides fields with the environment variables that are set.
func (c *Config) applyEnv() error {
	c.Timezone = getEnvOrDefault("TAXLOT_TIMEZONE", c.Timezone)
	c.LotMatching = getEnvOrDefault("TAXLOT_LOT_MATCHING", c.LotMatching)
	c.BrokerageAllocation = getEnvOrDefault("TAXLOT_BROKERAGE_ALLOCATION", c.BrokerageAllocation)
	c.BaseCurrency = getEnvOrDefault("TAXLOT_BASE_CURRENCY", c.BaseCurrency)
	c.Backend = getEnvOrDefault("TAXLOT_BACKEND", c.Backend)
	c.DataPath = getEnvOrDefault("TAXLOT_DATA_PATH", c.DataPath)
	c.Quotes.Manual = getEnvOrDefault("TAXLOT_QUOTES_MANUAL", c.Quotes.Manual)
	c.Quotes.File = getEnvOrDefault("TAXLOT_QUOTES_FILE", c.Quotes.File)
	c.Log.Level = getEnvOrDefault("TAXLOT_LOG_LEVEL", c.Log.Level)
	c.Listen = getEnvOrDefault("TAXLOT_LISTEN", c.Listen)

	if v := os.Getenv("TAXLOT_LOG_PRETTY"); v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: invalid boolean value for TAXLOT_LOG_PRETTY: %s", taxlot.ErrInvalid, v)
		}
		c.Log.Pretty = pretty
	}
	if v := os.Getenv("TAXLOT_CGT_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: invalid integer value for TAXLOT_CGT_WINDOW_DAYS: %s", taxlot.ErrInvalid, v)
		}
		c.CGTWindowDays = days
	}
	if v := os.Getenv("TAXLOT_QUOTES_STALE_AFTER"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: invalid duration value for TAXLOT_QUOTES_STALE_AFTER: %s", taxlot.ErrInvalid, v)
		}
		c.Quotes.StaleAfter = d
	}
	return nil
}

// Validate checks every field and returns the first failure.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil || c.Timezone == "" {
		return fmt.Errorf("%w: unknown timezone %q", taxlot.ErrInvalid, c.Timezone)
	}
	if _, err := taxlot.ParseMatchMethod(c.LotMatching); err != nil {
		return err
	}
	if _, err := taxlot.ParseFeeAllocation(c.BrokerageAllocation); err != nil {
		return err
	}
	if err := taxlot.ValidateCurrency(c.BaseCurrency); err != nil {
		return err
	}
	switch strings.ToLower(c.Backend) {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("%w: unknown backend %q, want %s or %s", taxlot.ErrInvalid, c.Backend, BackendSQLite, BackendJSON)
	}
	if c.DataPath == "" {
		return fmt.Errorf("%w: data_path is missing", taxlot.ErrInvalid)
	}
	if c.CGTWindowDays <= 0 {
		return fmt.Errorf("%w: cgt_window_days must be positive, got %d", taxlot.ErrInvalid, c.CGTWindowDays)
	}
	if c.Quotes.StaleAfter < 0 {
		return fmt.Errorf("%w: quotes.stale_after must not be negative, got %s", taxlot.ErrInvalid, c.Quotes.StaleAfter)
	}
	return nil
}

// Location returns the configured timezone, the local one if invalid.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// LedgerOptions returns the ledger options of a validated configuration.
func (c *Config) LedgerOptions(log *zerolog.Logger) taxlot.Options {
	method, _ := taxlot.ParseMatchMethod(c.LotMatching)
	fees, _ := taxlot.ParseFeeAllocation(c.BrokerageAllocation)
	return taxlot.Options{
		Location: c.Location(),
		Method:   method,
		Fees:     fees,
		Logger:   log,
	}
}

// Write saves the configuration as YAML at path.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
