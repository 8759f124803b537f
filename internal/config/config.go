// Package config defines the top-level configuration for the terminal and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by HYPERTERM_* environment variables.
type Config struct {
	Hyperliquid HyperliquidConfig `toml:"hyperliquid"`
	Account     AccountConfig     `toml:"account"`
	Feed        FeedConfig        `toml:"feed"`
	Poller      PollerConfig      `toml:"poller"`
	Order       OrderConfig       `toml:"order"`
	Server      ServerConfig      `toml:"server"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// HyperliquidConfig holds the exchange endpoints. The REST and streaming
// endpoints always point at the same network; Network selects which signing
// domain the write path uses.
type HyperliquidConfig struct {
	ApiURL  string `toml:"api_url"`
	WsURL   string `toml:"ws_url"`
	Network string `toml:"network"` // "mainnet" or "testnet"
}

// AccountConfig holds the watched address and the trading credential. The
// private key may be supplied raw or as an encrypted key file plus password.
type AccountConfig struct {
	Address          string `toml:"address"`
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// FeedConfig holds market-data stream parameters.
type FeedConfig struct {
	Symbol        string `toml:"symbol"`
	BookDepth     int    `toml:"book_depth"`
	TradeTapeSize int    `toml:"trade_tape_size"`
}

// PollerConfig holds account-refresh parameters.
type PollerConfig struct {
	Interval duration `toml:"interval"`
}

// OrderConfig holds order-construction parameters.
type OrderConfig struct {
	Slippage float64 `toml:"slippage"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	RateLimit   int      `toml:"rate_limit"` // requests per minute per client, 0 disables
	APIKey      string   `toml:"api_key"`    // if empty, authentication is disabled
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Hyperliquid: HyperliquidConfig{
			ApiURL:  "https://api.hyperliquid.xyz",
			WsURL:   "wss://api.hyperliquid.xyz/ws",
			Network: "mainnet",
		},
		Feed: FeedConfig{
			Symbol:        "BTC",
			BookDepth:     15,
			TradeTapeSize: 50,
		},
		Poller: PollerConfig{
			Interval: duration{10 * time.Second},
		},
		Order: OrderConfig{
			Slippage: 0.01,
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode. In readonly mode
// the order endpoint is disabled and no credential is required.
var validModes = map[string]bool{
	"full":     true,
	"readonly": true,
}

// validNetworks enumerates the accepted values for HyperliquidConfig.Network.
var validNetworks = map[string]bool{
	"mainnet": true,
	"testnet": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: full, readonly)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Hyperliquid endpoints
	if c.Hyperliquid.ApiURL == "" {
		errs = append(errs, "hyperliquid: api_url must not be empty")
	}
	if c.Hyperliquid.WsURL == "" {
		errs = append(errs, "hyperliquid: ws_url must not be empty")
	}
	if !validNetworks[strings.ToLower(c.Hyperliquid.Network)] {
		errs = append(errs, fmt.Sprintf("hyperliquid: unknown network %q (valid: mainnet, testnet)", c.Hyperliquid.Network))
	}

	// Account — the address is always needed for the account view; a
	// credential source only in full mode.
	if c.Account.Address == "" {
		errs = append(errs, "account: address must not be empty")
	}
	if strings.ToLower(c.Mode) == "full" {
		if c.Account.PrivateKey == "" && c.Account.EncryptedKeyPath == "" {
			errs = append(errs, "account: either private_key or encrypted_key_path must be set for mode full")
		}
		if c.Account.EncryptedKeyPath != "" && c.Account.KeyPassword == "" {
			errs = append(errs, "account: key_password is required when encrypted_key_path is set")
		}
	}

	// Feed
	if c.Feed.Symbol == "" {
		errs = append(errs, "feed: symbol must not be empty")
	}
	if c.Feed.BookDepth < 1 {
		errs = append(errs, "feed: book_depth must be >= 1")
	}
	if c.Feed.TradeTapeSize < 1 {
		errs = append(errs, "feed: trade_tape_size must be >= 1")
	}

	// Poller
	if c.Poller.Interval.Duration <= 0 {
		errs = append(errs, "poller: interval must be positive")
	}

	// Order
	if c.Order.Slippage <= 0 || c.Order.Slippage >= 1 {
		errs = append(errs, fmt.Sprintf("order: slippage must be in (0, 1), got %g", c.Order.Slippage))
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Mainnet reports whether the write path signs for the production network.
func (c *Config) Mainnet() bool {
	return strings.ToLower(c.Hyperliquid.Network) == "mainnet"
}

// ReadOnly reports whether order placement is disabled.
func (c *Config) ReadOnly() bool {
	return strings.ToLower(c.Mode) == "readonly"
}
