package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies HYPERTERM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known HYPERTERM_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.ApiURL, "HYPERTERM_HYPERLIQUID_API_URL")
	setStr(&cfg.Hyperliquid.WsURL, "HYPERTERM_HYPERLIQUID_WS_URL")
	setStr(&cfg.Hyperliquid.Network, "HYPERTERM_HYPERLIQUID_NETWORK")

	// ── Account ──
	setStr(&cfg.Account.Address, "HYPERTERM_ACCOUNT_ADDRESS")
	setStr(&cfg.Account.PrivateKey, "HYPERTERM_ACCOUNT_PRIVATE_KEY")
	setStr(&cfg.Account.EncryptedKeyPath, "HYPERTERM_ACCOUNT_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Account.KeyPassword, "HYPERTERM_ACCOUNT_KEY_PASSWORD")

	// ── Feed ──
	setStr(&cfg.Feed.Symbol, "HYPERTERM_FEED_SYMBOL")
	setInt(&cfg.Feed.BookDepth, "HYPERTERM_FEED_BOOK_DEPTH")
	setInt(&cfg.Feed.TradeTapeSize, "HYPERTERM_FEED_TRADE_TAPE_SIZE")

	// ── Poller ──
	setDuration(&cfg.Poller.Interval, "HYPERTERM_POLLER_INTERVAL")

	// ── Order ──
	setFloat64(&cfg.Order.Slippage, "HYPERTERM_ORDER_SLIPPAGE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "HYPERTERM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "HYPERTERM_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "HYPERTERM_SERVER_CORS_ORIGINS")
	setInt(&cfg.Server.RateLimit, "HYPERTERM_SERVER_RATE_LIMIT")
	setStr(&cfg.Server.APIKey, "HYPERTERM_SERVER_API_KEY")

	// ── Top-level ──
	setStr(&cfg.Mode, "HYPERTERM_MODE")
	setStr(&cfg.LogLevel, "HYPERTERM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
