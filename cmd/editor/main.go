package main

import (
	"context"
	"errors"
	"fmt"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gamebook/app/internal/app/bootstrap"
	"gamebook/app/internal/config"
	"gamebook/app/internal/gamebook"
	applog "gamebook/app/internal/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor HTTP API and reader preview",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDependencies(cmd.Context(), serve)
		},
	}

	root := &cobra.Command{
		Use:           "editor",
		Short:         "Gamebook editor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serveCmd.RunE,
	}

	root.AddCommand(serveCmd, &cobra.Command{
		Use:   "migrate",
		Short: "Apply the gamebook schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDependencies(cmd.Context(), migrate)
		},
	}, &cobra.Command{
		Use:   "dangling",
		Short: "List links whose target page no longer exists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDependencies(cmd.Context(), func(ctx context.Context, deps bootstrap.Dependencies) error {
				return dangling(ctx, deps, cmd)
			})
		},
	})

	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

func withDependencies(ctx context.Context, fn func(context.Context, bootstrap.Dependencies) error) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
		App:         "editor",
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	return fn(ctx, bootstrap.Dependencies{Config: cfg, Logger: logger, SentryHub: sentryHub})
}

func migrate(ctx context.Context, deps bootstrap.Dependencies) error {
	store, err := bootstrap.OpenStore(ctx, deps, nil)
	if err != nil {
		return err
	}
	return store.Cleanup()
}

func dangling(ctx context.Context, deps bootstrap.Dependencies, cmd *cobra.Command) error {
	store, err := bootstrap.OpenStore(ctx, deps, nil)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Cleanup(); closeErr != nil {
			deps.Logger.WithError(closeErr).Error("closing database")
		}
	}()

	links, err := store.Service.DanglingLinks(ctx)
	if err != nil {
		return eris.Wrap(err, "listing dangling links")
	}

	out := cmd.OutOrStdout()
	if len(links) == 0 {
		fmt.Fprintln(out, "no dangling links")
		return nil
	}
	for _, link := range links {
		fmt.Fprintf(out, "link %d on page %d -> missing page %d (%s)\n", link.ID, link.FromPageID, link.ToPageID, link.Label())
	}
	return nil
}

func serve(ctx context.Context, deps bootstrap.Dependencies) error {
	logger := deps.Logger

	result, err := bootstrap.Build(ctx, deps)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := result.Cleanup(); closeErr != nil {
			logger.WithError(closeErr).Error("closing database")
		}
	}()

	reportBookState(ctx, result.Service, logger, deps.SentryHub)

	httpServer := &stdhttp.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", deps.Config.ServerPort),
		Handler: result.HTTPServer.Handler(),
	}

	logger.WithFields(logrus.Fields{
		"addr":    httpServer.Addr,
		"drafter": result.Drafter != nil,
	}).Info("starting http server")

	serverErrCh := make(chan error, 1)
	go func() {
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErrCh <- err
			return
		}
		serverErrCh <- nil
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		if err != nil {
			return eris.Wrap(err, "http server error")
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.ShutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutting down http server")
	}

	logger.Info("http server shut down cleanly")
	return nil
}

// reportBookState logs the page count and warns about dangling links at startup.
func reportBookState(ctx context.Context, service gamebook.Service, logger *logrus.Logger, hub *sentry.Hub) {
	count, err := service.CountPages(ctx)
	if err != nil {
		return
	}

	links, err := service.DanglingLinks(ctx)
	if err != nil {
		return
	}

	entry := logger.WithFields(logrus.Fields{"pages": count, "dangling_links": len(links)})
	if len(links) == 0 {
		entry.Info("gamebook loaded")
		return
	}

	entry.Warn("gamebook has links to missing pages")
	if hub != nil {
		hub.CaptureMessage(fmt.Sprintf("gamebook has %d dangling links", len(links)))
	}
}
