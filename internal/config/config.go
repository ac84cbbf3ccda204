// Package config defines the configuration for the CLOB client and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by CLOBCLIENT_* environment
// variables.
type Config struct {
	Wallet     WalletConfig     `toml:"wallet"`
	Polymarket PolymarketConfig `toml:"polymarket"`
	Creds      CredsConfig      `toml:"creds"`
	Redis      RedisConfig      `toml:"redis"`
	LogLevel   string           `toml:"log_level"`
}

// WalletConfig holds the signing wallet and funder parameters.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	// SignatureType selects the wallet scheme: 0 EOA, 1 Poly proxy,
	// 2 Gnosis Safe.
	SignatureType int `toml:"signature_type"`
	// FunderAddress is the proxy/Safe holding collateral; required for
	// signature types 1 and 2.
	FunderAddress string `toml:"funder_address"`
}

// PolymarketConfig holds API endpoints and chain parameters.
type PolymarketConfig struct {
	ClobHost  string `toml:"clob_host"`
	GammaHost string `toml:"gamma_host"`
	ChainID   int64  `toml:"chain_id"`
	// AuthNonce selects the credential set derived for the wallet; 0 is
	// the venue default.
	AuthNonce int64 `toml:"auth_nonce"`
	// Exchange address overrides for chains without built-in contract
	// configuration.
	ExchangeAddress        string `toml:"exchange_address"`
	NegRiskExchangeAddress string `toml:"neg_risk_exchange_address"`
}

// CredsConfig optionally carries pre-derived L2 credentials so startup can
// skip the L1 round trip.
type CredsConfig struct {
	ApiKey     string `toml:"api_key"`
	Secret     string `toml:"secret"`
	Passphrase string `toml:"passphrase"`
}

// RedisConfig holds Redis connection parameters for the market metadata
// cache. An empty Addr disables the cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// Defaults returns the built-in configuration: Polygon mainnet against the
// production endpoints.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			ClobHost:  "https://clob.polymarket.com",
			GammaHost: "https://gamma-api.polymarket.com",
			ChainID:   137,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for contradictions before any component
// is constructed.
func (c *Config) Validate() error {
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" {
		return fmt.Errorf("config: wallet requires private_key or encrypted_key_path")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.PrivateKey == "" && c.Wallet.KeyPassword == "" {
		return fmt.Errorf("config: encrypted_key_path requires key_password")
	}
	switch c.Wallet.SignatureType {
	case 0:
	case 1, 2:
		if c.Wallet.FunderAddress == "" {
			return fmt.Errorf("config: signature_type %d requires funder_address", c.Wallet.SignatureType)
		}
	default:
		return fmt.Errorf("config: unknown signature_type %d", c.Wallet.SignatureType)
	}
	if c.Wallet.FunderAddress != "" && !common.IsHexAddress(c.Wallet.FunderAddress) {
		return fmt.Errorf("config: funder_address %q is not a hex address", c.Wallet.FunderAddress)
	}
	if c.Polymarket.ClobHost == "" {
		return fmt.Errorf("config: polymarket.clob_host is required")
	}
	if c.Polymarket.ChainID <= 0 {
		return fmt.Errorf("config: polymarket.chain_id must be positive")
	}
	if c.Polymarket.ChainID != 137 {
		if c.Polymarket.ExchangeAddress == "" || c.Polymarket.NegRiskExchangeAddress == "" {
			return fmt.Errorf("config: chain %d needs exchange_address and neg_risk_exchange_address", c.Polymarket.ChainID)
		}
	}
	for _, addr := range []string{c.Polymarket.ExchangeAddress, c.Polymarket.NegRiskExchangeAddress} {
		if addr != "" && !common.IsHexAddress(addr) {
			return fmt.Errorf("config: %q is not a hex address", addr)
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}
