package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"

	"gamebook/app/internal/app/bootstrap"
	"gamebook/app/internal/config"
	"gamebook/app/internal/gamebook"
	applog "gamebook/app/internal/log"
	"gamebook/app/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	closeLog, err := applog.RedirectToFile(logger, cfg.LogFile)
	if err != nil {
		return eris.Wrap(err, "failure redirecting logs")
	}
	defer func() { _ = closeLog() }()

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		App:         "player",
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	store, err := bootstrap.OpenStore(ctx, bootstrap.Dependencies{Config: cfg, Logger: logger, SentryHub: sentryHub}, nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	player, err := gamebook.NewPlayer(store.Service, logger)
	if err != nil {
		return eris.Wrap(err, "creating player")
	}

	logger.WithField("theme", cfg.PlayerTheme).Info("starting terminal player")
	return tui.Run(ctx, player, tui.Options{Theme: cfg.PlayerTheme, Logger: logger})
}
