package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/openpoly/clobclient/internal/cache/redis"
	"github.com/openpoly/clobclient/internal/config"
	"github.com/openpoly/clobclient/internal/crypto"
	"github.com/openpoly/clobclient/internal/domain"
	"github.com/openpoly/clobclient/internal/orders"
	"github.com/openpoly/clobclient/internal/platform/polymarket"
	"github.com/openpoly/clobclient/internal/service"
)

// Deps holds the wired dependency graph: the signer, the exchange clients,
// the order builder, the optional market cache, and the trading service that
// ties them together.
type Deps struct {
	Signer  *crypto.KeySigner
	Clob    *polymarket.ClobClient
	Gamma   *polymarket.GammaClient
	Builder *orders.OrderBuilder
	Markets domain.MarketCache // nil when Redis is not configured
	Trading *service.TradingService
}

// Wire constructs every dependency from the configuration. The returned
// cleanup function closes held connections and must be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	privateKeyHex, err := crypto.LoadPrivateKey(crypto.KeySource{
		RawHex:        cfg.Wallet.PrivateKey,
		KeyfilePath:   cfg.Wallet.EncryptedKeyPath,
		KeyfileSecret: cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: load private key: %w", err)
	}
	signer, err := crypto.NewKeySigner(privateKeyHex)
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: create signer: %w", err)
	}

	contracts, err := contractConfig(cfg)
	if err != nil {
		return nil, cleanup, err
	}

	var funder *common.Address
	if cfg.Wallet.FunderAddress != "" {
		addr := common.HexToAddress(cfg.Wallet.FunderAddress)
		funder = &addr
	}
	builder, err := orders.NewOrderBuilder(
		signer,
		domain.SignatureType(cfg.Wallet.SignatureType),
		funder,
		cfg.Polymarket.ChainID,
		contracts,
	)
	if err != nil {
		return nil, cleanup, fmt.Errorf("app: create order builder: %w", err)
	}

	clob := polymarket.NewClobClient(cfg.Polymarket.ClobHost, signer, cfg.Polymarket.ChainID).
		WithAuthNonce(cfg.Polymarket.AuthNonce)
	if cfg.Creds.ApiKey != "" {
		creds := domain.ApiCreds{
			Key:        cfg.Creds.ApiKey,
			Secret:     cfg.Creds.Secret,
			Passphrase: cfg.Creds.Passphrase,
		}
		if err := clob.SetCreds(creds); err != nil {
			return nil, cleanup, fmt.Errorf("app: configured credentials: %w", err)
		}
	}

	gamma := polymarket.NewGammaClient(cfg.Polymarket.GammaHost)

	var markets domain.MarketCache
	if cfg.Redis.Addr != "" {
		rdb, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("app: connect redis: %w", err)
		}
		closers = append(closers, func() { _ = rdb.Close() })
		markets = redis.NewMarketCache(rdb)
	}

	trading := service.NewTradingService(clob, builder, markets, logger)

	return &Deps{
		Signer:  signer,
		Clob:    clob,
		Gamma:   gamma,
		Builder: builder,
		Markets: markets,
		Trading: trading,
	}, cleanup, nil
}

// contractConfig resolves the exchange addresses: built-in for known chains,
// config overrides otherwise.
func contractConfig(cfg *config.Config) (orders.ContractConfig, error) {
	if cfg.Polymarket.ExchangeAddress != "" && cfg.Polymarket.NegRiskExchangeAddress != "" {
		return orders.ContractConfig{
			Exchange:        common.HexToAddress(cfg.Polymarket.ExchangeAddress),
			NegRiskExchange: common.HexToAddress(cfg.Polymarket.NegRiskExchangeAddress),
		}, nil
	}
	contracts, err := orders.ContractConfigForChain(cfg.Polymarket.ChainID)
	if err != nil {
		return orders.ContractConfig{}, fmt.Errorf("app: %w", err)
	}
	return contracts, nil
}
