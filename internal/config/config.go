// Package config provides YAML configuration file loading and validation.
// It handles environment variable expansion, default value application,
// network aliases and the precedence of file, environment and flag values.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmagro/sol-explorer/internal/address"
)

// Well-known cluster endpoints.
const (
	MainnetURL  = "https://api.mainnet-beta.solana.com"
	DevnetURL   = "https://api.devnet.solana.com"
	TestnetURL  = "https://api.testnet.solana.com"
	LocalnetURL = "http://localhost:8899"
)

// EnvRPCURL overrides rpc_url from the config file.
const EnvRPCURL = "SOLANA_RPC_URL"

// Config represents the configuration loaded from YAML. Zero values are
// replaced with defaults by Validate.
type Config struct {
	RPCURL            string        `yaml:"rpc_url"`             // Endpoint or network alias (supports ${VAR} expansion)
	Timeout           time.Duration `yaml:"timeout"`             // Per-attempt RPC timeout (e.g., "15s")
	MaxRetries        int           `yaml:"max_retries"`         // Retries after the first attempt (0 = none)
	BackoffInitial    time.Duration `yaml:"backoff_initial"`     // First retry delay before jitter
	BackoffMax        time.Duration `yaml:"backoff_max"`         // Cap on a single retry delay
	BatchSize         int           `yaml:"batch_size"`          // Accounts per JSON-RPC batch (max 100)
	Workers           int           `yaml:"workers"`             // Concurrent batches / metadata lookups
	RequestsPerSecond float64       `yaml:"requests_per_second"` // Client-side rate limit (0 = off)
	LogLevel          string        `yaml:"log_level"`           // debug, info, warn, error
	LogFile           string        `yaml:"log_file"`            // Optional rotating log file
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		RPCURL:         MainnetURL,
		Timeout:        15 * time.Second,
		MaxRetries:     3,
		BackoffInitial: 250 * time.Millisecond,
		BackoffMax:     5 * time.Second,
		BatchSize:      100,
		Workers:        4,
		LogLevel:       "warn",
	}
}

// Validate applies defaults for unset fields and rejects impossible values.
// It may emit warnings (to stderr) for suspicious values but does not fail on
// warnings.
func (c *Config) Validate() error {
	def := Default()
	if c.RPCURL == "" {
		c.RPCURL = def.RPCURL
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.BackoffInitial == 0 {
		c.BackoffInitial = def.BackoffInitial
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = def.BackoffMax
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers == 0 {
		c.Workers = def.Workers
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0")
	}
	if c.BackoffMax < c.BackoffInitial {
		return fmt.Errorf("backoff_max (%s) must be >= backoff_initial (%s)", c.BackoffMax, c.BackoffInitial)
	}
	if c.BatchSize < 1 || c.BatchSize > 100 {
		return fmt.Errorf("batch_size must be between 1 and 100")
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must be >= 0")
	}

	resolved, err := ResolveURL(c.RPCURL)
	if err != nil {
		return fmt.Errorf("rpc_url: %w", err)
	}
	c.RPCURL = resolved

	const low = 500 * time.Millisecond
	const high = 2 * time.Minute
	if c.Timeout < low {
		fmt.Fprintf(os.Stderr, "Warning: timeout is very low (%s); requests may fail under normal network jitter\n", c.Timeout)
	}
	if c.Timeout > high {
		fmt.Fprintf(os.Stderr, "Warning: timeout is very high (%s); failures may take a long time to surface\n", c.Timeout)
	}

	return nil
}

// Load reads and parses a YAML configuration file, expanding environment
// variables and validating the result.
//
// A missing file is not an error: the built-in defaults are used, so the
// tool works with nothing but an --url flag. The SOLANA_RPC_URL environment
// variable, when set, overrides rpc_url from the file.
//
// Environment variable expansion:
//
//	Values can use ${VAR} syntax which will be expanded using os.ExpandEnv().
//	Example: rpc_url: ${HELIUS_URL}
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = Default()
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(EnvRPCURL)); v != "" {
		cfg.RPCURL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveURL expands a network alias or checks an explicit http(s) URL.
//
//	m, main, mainnet, mainnet-beta  -> mainnet-beta
//	d, dev, devnet                  -> devnet
//	t, test, testnet                -> testnet
//	l, local, localhost             -> http://localhost:8899
func ResolveURL(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "m", "main", "mainnet", "mainnet-beta":
		return MainnetURL, nil
	case "d", "dev", "devnet":
		return DevnetURL, nil
	case "t", "test", "testnet":
		return TestnetURL, nil
	case "l", "local", "localhost":
		return LocalnetURL, nil
	}

	u, err := url.Parse(strings.TrimSpace(v))
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", address.ErrInvalidInput, v, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: invalid url %q (expected a network name or an http(s) url)", address.ErrInvalidInput, v)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: invalid url %q (missing host)", address.ErrInvalidInput, v)
	}
	return u.String(), nil
}

// NetworkName returns a short label for a resolved endpoint.
func NetworkName(rpcURL string) string {
	switch rpcURL {
	case MainnetURL:
		return "mainnet-beta"
	case DevnetURL:
		return "devnet"
	case TestnetURL:
		return "testnet"
	case LocalnetURL:
		return "localnet"
	}
	if u, err := url.Parse(rpcURL); err == nil && u.Host != "" {
		return u.Host
	}
	return rpcURL
}
