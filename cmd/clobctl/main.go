// Command clobctl is the CLI entry point for the CLOB client. It loads
// configuration, validates it, wires dependencies, sets up signal handling,
// and runs the requested command.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/openpoly/clobclient/internal/app"
	"github.com/openpoly/clobclient/internal/config"
)

const usage = `usage: clobctl [-config path] <command> [flags]

commands:
  derive-key   establish L2 API credentials for the configured wallet
  place        build, sign, and submit a limit order
  market       price an order off the book and submit it
  cancel       cancel one order by ID
  cancel-all   cancel every open order
  book         print the order book for a token
  midpoint     print the midpoint price for a token
  markets      list markets from the Gamma API
  encrypt-key  encrypt a raw private key into a keyfile
`

func main() {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)
	args := flag.Args()[1:]

	// Setup structured JSON logger on stderr so command output on stdout
	// stays machine-readable.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration. A missing default config file is fine as long as
	// the environment supplies the required values.
	path := *configPath
	if _, err := os.Stat(path); err != nil && path == "config.toml" {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// Set log level from config.
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Setup signal handling for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)
	defer application.Close()

	if err := application.Run(ctx, command, args); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("interrupted")
			os.Exit(1)
		}
		logger.Error("command failed",
			slog.String("command", command),
			slog.String("error", err.Error()),
		)
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
