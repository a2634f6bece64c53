// Package app wires the pipeline together and manages its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jonesrussell/newsroom/internal/api"
	"github.com/jonesrussell/newsroom/internal/collaborators"
	"github.com/jonesrussell/newsroom/internal/config"
	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/dedup"
	"github.com/jonesrussell/newsroom/internal/grouper"
	"github.com/jonesrussell/newsroom/internal/ingest"
	"github.com/jonesrussell/newsroom/internal/janitor"
	"github.com/jonesrussell/newsroom/internal/lifecycle"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/metrics"
	redisclient "github.com/jonesrussell/newsroom/internal/redis"
	"github.com/jonesrussell/newsroom/internal/scorer"
	"github.com/jonesrussell/newsroom/internal/translate"
	"github.com/jonesrussell/newsroom/internal/worker"
	"github.com/jonesrussell/newsroom/internal/workspace"
)

const (
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 30 * time.Second
	// FlushCacheTimeout bounds cache flush operations.
	FlushCacheTimeout = 30 * time.Second

	schemaTimeout = 5 * time.Second
	idleTimeout   = 120 * time.Second
)

// App holds the assembled service.
type App struct {
	config      *config.Config
	logger      logger.Logger
	db          *sqlx.DB
	redisClient *goredis.Client
	tracker     *dedup.Tracker
	sweeper     *worker.SweepWorker
	httpServer  *http.Server
	version     string
}

// Options configures App construction.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads configuration and initializes every dependency.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "newsroom"),
		logger.String("version", opts.Version),
	)

	redisClient, err := redisclient.NewClient(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Redis: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect to Postgres: %w", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	app := &App{
		config:      cfg,
		logger:      appLogger,
		db:          db,
		redisClient: redisClient,
		version:     opts.Version,
	}
	app.assemble()

	return app, nil
}

// assemble builds the pipeline graph and the HTTP server.
func (a *App) assemble() {
	cfg := a.config

	newsRepo := database.NewNewsRepository(a.db)
	groupRepo := database.NewGroupRepository(a.db)
	draftRepo := database.NewDraftRepository(a.db)
	workspaceRepo := database.NewWorkspaceRepository(a.db)

	embedder := collaborators.NewEmbeddingClient(cfg.Collaborators.EmbeddingURL, cfg.Collaborators.RatePerSecond)
	generator := collaborators.NewGeneratorClient(cfg.Collaborators.GeneratorURL)
	translator := collaborators.NewTranslatorClient(cfg.Collaborators.TranslatorURL)
	extractor := collaborators.NewFactExtractorClient(cfg.Collaborators.FactExtractorURL)
	images := collaborators.NewLocalImageStore(cfg.Collaborators.ImageStoreDir, a.logger)

	var sink collaborators.PublishSink
	if publisher, err := collaborators.NewPublishClient(cfg.Collaborators.PublishURL, cfg.Collaborators.PublishToken); err != nil {
		a.logger.Warn("Publish sink not configured; publish operations will fail",
			logger.Error(err),
		)
	} else {
		sink = publisher
	}

	locks := workspace.NewLocks()
	a.tracker = dedup.NewTracker(a.redisClient, cfg.Pipeline.SeenURLTTL, a.logger)

	grouperSvc := grouper.NewGrouper(groupRepo, newsRepo, cfg.Pipeline.GroupingThreshold, cfg.Pipeline.GroupWindow, a.logger)
	scorerSvc := scorer.NewScorer(groupRepo, newsRepo, a.logger)
	janitorSvc := janitor.NewJanitor(newsRepo, cfg.Pipeline.ItemTTL, a.logger)

	ingestor := ingest.NewService(
		newsRepo,
		a.tracker,
		dedup.NewFilter(cfg.Pipeline.DedupThreshold, cfg.Pipeline.DedupLookback),
		grouperSvc,
		scorerSvc,
		janitorSvc,
		embedder,
		extractor,
		locks,
		cfg.Pipeline.DedupLookback,
		a.logger,
	)

	machine := lifecycle.NewMachine(lifecycle.Deps{
		Drafts:           draftRepo,
		Items:            newsRepo,
		Groups:           groupRepo,
		Facts:            newsRepo,
		Generator:        generator,
		Images:           images,
		Sink:             sink,
		Forker:           translate.NewForker(draftRepo, translator, a.logger),
		Notifier:         lifecycle.NewRedisNotifier(a.redisClient, cfg.Drafts.NotifyChannel, a.logger),
		Locks:            locks,
		Stripper:         lifecycle.NewTrailerStripper(cfg.Drafts.StripHeadings),
		Logger:           a.logger,
		MinWordCount:     cfg.Drafts.MinWordCount,
		AllowedLanguages: cfg.Drafts.Languages,
	})

	apiMetrics := metrics.New(prometheus.DefaultRegisterer)

	a.sweeper = worker.NewSweepWorker(
		workspaceRepo,
		janitorSvc,
		locks,
		apiMetrics,
		worker.SweepWorkerConfig{Interval: cfg.Pipeline.SweepInterval},
		a.logger,
	)

	router := api.NewRouter(api.Deps{
		DB:          a.db,
		RedisClient: a.redisClient,
		Config:      cfg,
		Ingestor:    ingestor,
		Machine:     machine,
		News:        newsRepo,
		Groups:      groupRepo,
		Drafts:      draftRepo,
		Workspaces:  workspaceRepo,
		Metrics:     apiMetrics,
		Logger:      a.logger,
	})

	a.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}
}

// Run starts the background workers and the HTTP server, then blocks until
// shutdown.
func (a *App) Run(ctx context.Context) error {
	a.sweeper.Start(ctx)
	defer a.sweeper.Stop()

	serverErr := make(chan error, 1)

	go func() {
		a.logger.Info("Starting HTTP server",
			logger.String("address", a.httpServer.Addr),
			logger.Bool("debug", a.config.Debug),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		a.logger.Info("Shutting down gracefully",
			logger.String("signal", sig.String()),
		)
	case <-ctx.Done():
		a.logger.Info("Context cancelled, shutting down")
	case err := <-serverErr:
		if err != nil {
			a.logger.Error("Server error", logger.Error(err))
			runErr = err
		}
	}

	a.shutdownHTTPServer()
	a.logger.Info("Service stopped")
	return runErr
}

func (a *App) shutdownHTTPServer() {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", logger.Error(err))
	} else {
		a.logger.Info("HTTP server stopped")
	}
}

// FlushCache clears the Redis seen-URL cache.
func (a *App) FlushCache(ctx context.Context) error {
	return a.tracker.FlushAll(ctx)
}

// Close releases connections.
func (a *App) Close() error {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", logger.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", logger.Error(err))
		}
	}
	return a.logger.Sync()
}

// Logger returns the application logger.
func (a *App) Logger() logger.Logger {
	return a.logger
}
