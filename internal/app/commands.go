package app

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/openpoly/clobclient/internal/crypto"
	"github.com/openpoly/clobclient/internal/domain"
)

// DeriveKey establishes L2 API credentials for the configured wallet and
// prints them. Rerunning derives the same set.
func (a *App) DeriveKey(ctx context.Context, deps *Deps) error {
	creds, err := deps.Trading.EnsureCreds(ctx)
	if err != nil {
		return err
	}
	return printJSON(creds)
}

// Place builds, signs, and submits a limit order.
func (a *App) Place(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("place", flag.ContinueOnError)
	tokenID := fs.String("token", "", "CLOB token ID")
	side := fs.String("side", "", "BUY or SELL")
	price := fs.String("price", "", "limit price in collateral units")
	size := fs.String("size", "", "order size in shares")
	orderType := fs.String("type", "GTC", "order type: GTC, GTD, FOK, FAK")
	expiration := fs.Int64("expiration", 0, "unix expiration for GTD orders")
	feeRateBps := fs.Int64("fee-bps", 0, "fee rate in basis points")
	if err := fs.Parse(args); err != nil {
		return err
	}

	orderArgs, err := parseOrderArgs(*tokenID, *side, *price, *size)
	if err != nil {
		return err
	}
	if err := a.ensureCreds(ctx, deps); err != nil {
		return err
	}

	result, err := deps.Trading.PlaceOrder(ctx, orderArgs, domain.OrderType(strings.ToUpper(*orderType)), domain.ExtraOrderArgs{
		FeeRateBps: *feeRateBps,
		Expiration: *expiration,
	})
	if err != nil {
		return err
	}
	a.logger.Info("order placed", slog.String("order_id", result.OrderID), slog.String("status", result.Status))
	return printJSON(result)
}

// Market prices an order off the current book and submits it.
func (a *App) Market(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("market", flag.ContinueOnError)
	tokenID := fs.String("token", "", "CLOB token ID")
	side := fs.String("side", "", "BUY or SELL")
	amount := fs.String("amount", "", "shares to match against the book")
	orderType := fs.String("type", "FOK", "order type: FOK or FAK")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tokenID == "" || *amount == "" {
		return fmt.Errorf("app: market requires -token and -amount")
	}
	sideVal := domain.Side(strings.ToUpper(*side))
	if !sideVal.Valid() {
		return fmt.Errorf("app: side must be BUY or SELL, got %q", *side)
	}
	amountVal, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("app: parse amount: %w", err)
	}
	if err := a.ensureCreds(ctx, deps); err != nil {
		return err
	}

	result, err := deps.Trading.PlaceMarketOrder(ctx, domain.MarketOrderArgs{
		TokenID: *tokenID,
		Amount:  amountVal,
		Side:    sideVal,
	}, domain.OrderType(strings.ToUpper(*orderType)), domain.ExtraOrderArgs{})
	if err != nil {
		return err
	}
	a.logger.Info("market order placed", slog.String("order_id", result.OrderID), slog.String("status", result.Status))
	return printJSON(result)
}

// Cancel cancels a single order by ID.
func (a *App) Cancel(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	orderID := fs.String("order", "", "order ID to cancel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" {
		return fmt.Errorf("app: cancel requires -order")
	}
	if err := a.ensureCreds(ctx, deps); err != nil {
		return err
	}
	if err := deps.Trading.Cancel(ctx, *orderID); err != nil {
		return err
	}
	a.logger.Info("order cancelled", slog.String("order_id", *orderID))
	return nil
}

// CancelAll cancels every open order for the wallet.
func (a *App) CancelAll(ctx context.Context, deps *Deps) error {
	if err := a.ensureCreds(ctx, deps); err != nil {
		return err
	}
	if err := deps.Trading.CancelAll(ctx); err != nil {
		return err
	}
	a.logger.Info("all orders cancelled")
	return nil
}

// Book prints the current order book for a token.
func (a *App) Book(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	tokenID := fs.String("token", "", "CLOB token ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tokenID == "" {
		return fmt.Errorf("app: book requires -token")
	}
	book, err := deps.Clob.GetOrderBook(ctx, *tokenID)
	if err != nil {
		return err
	}
	return printJSON(book)
}

// Midpoint prints the midpoint price for a token.
func (a *App) Midpoint(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("midpoint", flag.ContinueOnError)
	tokenID := fs.String("token", "", "CLOB token ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *tokenID == "" {
		return fmt.Errorf("app: midpoint requires -token")
	}
	mid, err := deps.Clob.GetMidpoint(ctx, *tokenID)
	if err != nil {
		return err
	}
	fmt.Println(mid.String())
	return nil
}

// Markets lists markets from the Gamma API.
func (a *App) Markets(ctx context.Context, deps *Deps, args []string) error {
	fs := flag.NewFlagSet("markets", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "page size")
	offset := fs.Int("offset", 0, "page offset")
	token := fs.String("token", "", "look up the market for one CLOB token ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token != "" {
		market, err := deps.Gamma.GetMarketByToken(ctx, *token)
		if err != nil {
			return err
		}
		return printJSON(market)
	}
	markets, err := deps.Gamma.GetMarkets(ctx, *limit, *offset)
	if err != nil {
		return err
	}
	return printJSON(markets)
}

// EncryptKey encrypts a raw private key into a keyfile. It does not need the
// wired dependencies, only the keymanager.
func (a *App) EncryptKey(args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ContinueOnError)
	keyHex := fs.String("key", "", "raw private key hex (falls back to configured wallet key)")
	password := fs.String("password", "", "encryption password (falls back to configured key_password)")
	out := fs.String("out", "wallet.key.json", "output keyfile path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hex := *keyHex
	if hex == "" {
		hex = a.cfg.Wallet.PrivateKey
	}
	pw := *password
	if pw == "" {
		pw = a.cfg.Wallet.KeyPassword
	}
	if hex == "" || pw == "" {
		return fmt.Errorf("app: encrypt-key requires a private key and a password")
	}

	data, err := crypto.EncryptPrivateKey(hex, pw)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("app: write keyfile: %w", err)
	}
	a.logger.Info("keyfile written", slog.String("path", *out))
	return nil
}

// ensureCreds makes sure the CLOB client carries L2 credentials, deriving
// them when the configuration did not provide a set.
func (a *App) ensureCreds(ctx context.Context, deps *Deps) error {
	if _, err := deps.Clob.Creds(); err == nil {
		return nil
	}
	creds, err := deps.Trading.EnsureCreds(ctx)
	if err != nil {
		return err
	}
	return deps.Clob.SetCreds(creds)
}

// parseOrderArgs validates and converts the place command flags.
func parseOrderArgs(tokenID, side, price, size string) (domain.OrderArgs, error) {
	if tokenID == "" || price == "" || size == "" {
		return domain.OrderArgs{}, fmt.Errorf("app: place requires -token, -price, and -size")
	}
	sideVal := domain.Side(strings.ToUpper(side))
	if !sideVal.Valid() {
		return domain.OrderArgs{}, fmt.Errorf("app: side must be BUY or SELL, got %q", side)
	}
	priceVal, err := decimal.NewFromString(price)
	if err != nil {
		return domain.OrderArgs{}, fmt.Errorf("app: parse price: %w", err)
	}
	sizeVal, err := decimal.NewFromString(size)
	if err != nil {
		return domain.OrderArgs{}, fmt.Errorf("app: parse size: %w", err)
	}
	return domain.OrderArgs{
		TokenID: tokenID,
		Price:   priceVal,
		Size:    sizeVal,
		Side:    sideVal,
	}, nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
