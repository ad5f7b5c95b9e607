package bootstrap

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"gamebook/app/internal/config"
	"gamebook/app/internal/db"
	"gamebook/app/internal/gamebook"
	apphttp "gamebook/app/internal/http"
	"gamebook/app/internal/llm"
	applog "gamebook/app/internal/log"
)

// Dependencies are the ambient services shared by both entry points.
type Dependencies struct {
	Config    *config.Config
	Logger    *logrus.Logger
	SentryHub *sentry.Hub
}

// Store bundles the persistence layer and the service built on it.
type Store struct {
	Database   *gorm.DB
	Repository gamebook.Repository
	Service    gamebook.Service
	Cleanup    func() error
}

// Result is the fully wired editor.
type Result struct {
	Store
	Drafter    llm.Drafter
	HTTPServer *apphttp.Server
}

// OpenDatabase connects to the configured database without touching the schema.
func OpenDatabase(deps Dependencies) (*gorm.DB, error) {
	if deps.Config == nil {
		return nil, eris.New("config is required")
	}

	dbCfg := deps.Config.Database
	opts := db.Options{
		Driver: dbCfg.Driver,
		Path:   dbCfg.Path,
		Logger: applog.GORMLogger(deps.Logger),
	}
	if dbCfg.Driver == db.DriverPostgres {
		opts.DSN = dbCfg.PostgresDSN()
	}

	conn, err := db.Open(opts)
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if deps.Logger != nil {
		deps.Logger.WithFields(logrus.Fields{"driver": opts.Driver, "component": "bootstrap"}).Info("database connection established")
	}
	return conn, nil
}

// OpenStore opens the database, applies the schema and builds the gamebook
// service. The drafter may be nil.
func OpenStore(ctx context.Context, deps Dependencies, drafter llm.Drafter) (Store, error) {
	conn, err := OpenDatabase(deps)
	if err != nil {
		return Store{}, err
	}

	closeOnError := func(wrapped error) (Store, error) {
		if closeErr := db.Close(conn); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Store{}, wrapped
	}

	if err := gamebook.Migrate(ctx, conn, deps.Logger); err != nil {
		return closeOnError(eris.Wrap(err, "running gamebook migrations"))
	}

	repo, err := gamebook.NewRepository(conn, deps.Logger)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating gamebook repository"))
	}

	opts := gamebook.ServiceOptions{
		Repository:  repo,
		Logger:      deps.Logger,
		SentryHub:   deps.SentryHub,
		StartPageID: deps.Config.StartPageID,
	}
	if drafter != nil {
		opts.Drafter = drafter
	}

	service, err := gamebook.NewService(opts)
	if err != nil {
		return closeOnError(eris.Wrap(err, "creating gamebook service"))
	}

	return Store{
		Database:   conn,
		Repository: repo,
		Service:    service,
		Cleanup:    func() error { return db.Close(conn) },
	}, nil
}

// NewDrafter builds the LLM drafter. It returns nil without error when no API
// key is configured, which leaves drafting disabled.
func NewDrafter(deps Dependencies) (llm.Drafter, error) {
	cfg := deps.Config
	if cfg == nil || cfg.LLMAPIKey == "" {
		return nil, nil
	}
	if len(cfg.LLMModels) == 0 {
		return nil, eris.New("LLM_MODELS must include at least one model name when LLM_API_KEY is set")
	}

	client, err := llm.NewClient(llm.ClientOptions{
		APIKey:  cfg.LLMAPIKey,
		BaseURL: cfg.LLMEndpoint,
		Logger:  deps.Logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "creating llm client")
	}

	drafter, err := llm.NewDrafter(llm.DrafterOptions{Client: client, Model: cfg.LLMModels[0]})
	if err != nil {
		return nil, eris.Wrap(err, "initialising llm drafter")
	}

	if deps.Logger != nil {
		deps.Logger.WithFields(logrus.Fields{
			"model":     cfg.LLMModels[0],
			"base_url":  client.BaseURL(),
			"component": "bootstrap",
		}).Info("page drafter enabled")
	}
	return drafter, nil
}

// Build composes the editor: store, optional drafter and HTTP transport.
func Build(ctx context.Context, deps Dependencies) (Result, error) {
	drafter, err := NewDrafter(deps)
	if err != nil {
		return Result{}, err
	}

	store, err := OpenStore(ctx, deps, drafter)
	if err != nil {
		return Result{}, err
	}

	rl := deps.Config.RateLimit
	server, err := apphttp.NewServer(apphttp.Options{
		Service:           store.Service,
		Database:          store.Database,
		DrafterConfigured: drafter != nil,
		Logger:            deps.Logger,
		SentryHub:         deps.SentryHub,
		RateLimiter: apphttp.RateLimiterSettings{
			Burst:             rl.Burst,
			RequestsPerSecond: rl.RequestsPerSecond,
			ClientTTL:         rl.ClientTTL,
		},
	})
	if err != nil {
		if closeErr := store.Cleanup(); closeErr != nil && deps.Logger != nil {
			deps.Logger.WithError(closeErr).Error("closing database after bootstrap failure")
		}
		return Result{}, eris.Wrap(err, "initialising http server")
	}

	cleanup := store.Cleanup
	store.Cleanup = func() error {
		server.Close()
		return cleanup()
	}

	return Result{Store: store, Drafter: drafter, HTTPServer: server}, nil
}
