// Package app provides the top-level lifecycle for the CLOB client CLI. It
// wires the dependency graph (signer, exchange clients, order builder,
// optional market cache, trading service) and dispatches the requested
// command.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openpoly/clobclient/internal/config"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and executes the named command with its
// remaining arguments.
func (a *App) Run(ctx context.Context, command string, args []string) error {
	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch command {
	case "derive-key":
		return a.DeriveKey(ctx, deps)
	case "place":
		return a.Place(ctx, deps, args)
	case "market":
		return a.Market(ctx, deps, args)
	case "cancel":
		return a.Cancel(ctx, deps, args)
	case "cancel-all":
		return a.CancelAll(ctx, deps)
	case "book":
		return a.Book(ctx, deps, args)
	case "midpoint":
		return a.Midpoint(ctx, deps, args)
	case "markets":
		return a.Markets(ctx, deps, args)
	case "encrypt-key":
		return a.EncryptKey(args)
	default:
		return fmt.Errorf("app: unknown command %q", command)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
