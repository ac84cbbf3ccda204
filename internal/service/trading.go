// Package service wires the order engine together: credential management,
// market metadata resolution, order building, and submission.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/openpoly/clobclient/internal/domain"
	"github.com/openpoly/clobclient/internal/orders"
)

// ClobAPI is the slice of the CLOB client the trading service depends on.
type ClobAPI interface {
	CreateOrDeriveApiKey(ctx context.Context) (domain.ApiCreds, error)
	PostOrder(ctx context.Context, order domain.SignedOrder, orderType domain.OrderType) (domain.OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAll(ctx context.Context) error
	GetTickSize(ctx context.Context, tokenID string) (decimal.Decimal, error)
	GetNegRisk(ctx context.Context, tokenID string) (bool, error)
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}

// TradingService turns caller intents (token, price, size, side) into
// submitted orders. It resolves tick size and neg-risk per token, going
// through the market cache when one is attached, builds and signs the order,
// and posts it. Cancellation of an in-flight submission is never retried
// here: a replayed signed order risks duplicate submission, so retries stay
// with the caller.
type TradingService struct {
	clob    ClobAPI
	builder *orders.OrderBuilder
	markets domain.MarketCache // optional
	logger  *slog.Logger
}

// NewTradingService creates a TradingService. markets may be nil, in which
// case every metadata lookup hits the REST API.
func NewTradingService(clob ClobAPI, builder *orders.OrderBuilder, markets domain.MarketCache, logger *slog.Logger) *TradingService {
	return &TradingService{
		clob:    clob,
		builder: builder,
		markets: markets,
		logger:  logger,
	}
}

// EnsureCreds establishes L2 credentials, creating them on first use and
// deriving the existing set otherwise.
func (s *TradingService) EnsureCreds(ctx context.Context) (domain.ApiCreds, error) {
	creds, err := s.clob.CreateOrDeriveApiKey(ctx)
	if err != nil {
		return domain.ApiCreds{}, fmt.Errorf("service: ensure creds: %w", err)
	}
	s.logger.Info("api credentials established", slog.String("api_key", creds.Key))
	return creds, nil
}

// PlaceOrder builds, signs, and submits a limit order.
func (s *TradingService) PlaceOrder(ctx context.Context, args domain.OrderArgs, orderType domain.OrderType, extras domain.ExtraOrderArgs) (domain.OrderResult, error) {
	opts, err := s.orderOptions(ctx, args.TokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	signed, err := s.builder.BuildOrder(args, extras, opts)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("service: build order: %w", err)
	}

	s.logger.Info("submitting order",
		slog.String("token_id", args.TokenID),
		slog.String("side", string(args.Side)),
		slog.String("price", args.Price.String()),
		slog.String("size", args.Size.String()),
		slog.Bool("neg_risk", opts.NegRisk),
	)
	result, err := s.clob.PostOrder(ctx, signed, orderType)
	if err != nil {
		return result, fmt.Errorf("service: post order: %w", err)
	}
	return result, nil
}

// PlaceMarketOrder prices args.Amount shares against the current book,
// builds the order at the resulting volume-weighted price, and submits it.
// An empty order type defaults to fill-or-kill.
func (s *TradingService) PlaceMarketOrder(ctx context.Context, args domain.MarketOrderArgs, orderType domain.OrderType, extras domain.ExtraOrderArgs) (domain.OrderResult, error) {
	opts, err := s.orderOptions(ctx, args.TokenID)
	if err != nil {
		return domain.OrderResult{}, err
	}

	book, err := s.clob.GetOrderBook(ctx, args.TokenID)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("service: fetch book: %w", err)
	}
	levels := book.Asks
	shares := args.Amount
	if args.Side == domain.SideSell {
		levels = book.Bids
	}
	price, err := orders.CalculateMarketPrice(levels, shares, args.Side)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("service: price market order: %w", err)
	}
	price = orders.RoundToTick(price, opts.TickSize)

	signed, err := s.builder.BuildMarketOrder(args, price, extras, opts)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("service: build market order: %w", err)
	}

	if orderType == "" {
		orderType = domain.OrderTypeFOK
	}
	result, err := s.clob.PostOrder(ctx, signed, orderType)
	if err != nil {
		return result, fmt.Errorf("service: post market order: %w", err)
	}
	return result, nil
}

// Cancel cancels one order by ID.
func (s *TradingService) Cancel(ctx context.Context, orderID string) error {
	return s.clob.CancelOrder(ctx, orderID)
}

// CancelAll cancels every open order for the wallet.
func (s *TradingService) CancelAll(ctx context.Context) error {
	return s.clob.CancelAll(ctx)
}

// orderOptions resolves the tick size and neg-risk flag for a token: cache
// first, then the two REST lookups concurrently, then a cache write-back.
func (s *TradingService) orderOptions(ctx context.Context, tokenID string) (domain.CreateOrderOptions, error) {
	if s.markets != nil {
		if m, err := s.markets.GetByToken(ctx, tokenID); err == nil && !m.TickSize.IsZero() {
			return domain.CreateOrderOptions{TickSize: m.TickSize, NegRisk: m.NegRisk}, nil
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("market cache lookup failed", slog.String("token_id", tokenID), slog.String("error", err.Error()))
		}
	}

	var (
		tick    decimal.Decimal
		negRisk bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tick, err = s.clob.GetTickSize(gctx, tokenID)
		return err
	})
	g.Go(func() error {
		var err error
		negRisk, err = s.clob.GetNegRisk(gctx, tokenID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.CreateOrderOptions{}, fmt.Errorf("service: resolve market metadata: %w", err)
	}

	if s.markets != nil {
		m := domain.Market{
			ID:       tokenID,
			TokenIDs: [2]string{tokenID, ""},
			TickSize: tick,
			NegRisk:  negRisk,
		}
		if err := s.markets.Set(ctx, m); err != nil {
			s.logger.Warn("market cache write failed", slog.String("token_id", tokenID), slog.String("error", err.Error()))
		}
	}
	return domain.CreateOrderOptions{TickSize: tick, NegRisk: negRisk}, nil
}
