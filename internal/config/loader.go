package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies CLOBCLIENT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known CLOBCLIENT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "CLOBCLIENT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "CLOBCLIENT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "CLOBCLIENT_WALLET_KEY_PASSWORD")
	setInt(&cfg.Wallet.SignatureType, "CLOBCLIENT_WALLET_SIGNATURE_TYPE")
	setStr(&cfg.Wallet.FunderAddress, "CLOBCLIENT_WALLET_FUNDER_ADDRESS")

	// ── Polymarket ──
	setStr(&cfg.Polymarket.ClobHost, "CLOBCLIENT_POLYMARKET_CLOB_HOST")
	setStr(&cfg.Polymarket.GammaHost, "CLOBCLIENT_POLYMARKET_GAMMA_HOST")
	setInt64(&cfg.Polymarket.ChainID, "CLOBCLIENT_POLYMARKET_CHAIN_ID")
	setInt64(&cfg.Polymarket.AuthNonce, "CLOBCLIENT_POLYMARKET_AUTH_NONCE")
	setStr(&cfg.Polymarket.ExchangeAddress, "CLOBCLIENT_POLYMARKET_EXCHANGE_ADDRESS")
	setStr(&cfg.Polymarket.NegRiskExchangeAddress, "CLOBCLIENT_POLYMARKET_NEG_RISK_EXCHANGE_ADDRESS")

	// ── Creds ──
	setStr(&cfg.Creds.ApiKey, "CLOBCLIENT_CREDS_API_KEY")
	setStr(&cfg.Creds.Secret, "CLOBCLIENT_CREDS_SECRET")
	setStr(&cfg.Creds.Passphrase, "CLOBCLIENT_CREDS_PASSPHRASE")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "CLOBCLIENT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CLOBCLIENT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CLOBCLIENT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CLOBCLIENT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CLOBCLIENT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CLOBCLIENT_REDIS_TLS_ENABLED")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "CLOBCLIENT_LOG_LEVEL")
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

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
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
