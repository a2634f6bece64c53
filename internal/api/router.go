// Package api exposes the pipeline over a gin REST surface.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/jonesrussell/newsroom/internal/config"
	"github.com/jonesrussell/newsroom/internal/database"
	"github.com/jonesrussell/newsroom/internal/ingest"
	"github.com/jonesrussell/newsroom/internal/lifecycle"
	"github.com/jonesrussell/newsroom/internal/logger"
	"github.com/jonesrussell/newsroom/internal/metrics"
	redisclient "github.com/jonesrussell/newsroom/internal/redis"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	healthCheckTimeout   = 2 * time.Second
	serviceVersion       = "1.0.0"

	defaultListLimit = 50
	maxListLimit     = 500
)

// Router holds the API dependencies.
type Router struct {
	db          *sqlx.DB
	redisClient *redis.Client
	cfg         *config.Config

	ingestor   *ingest.Service
	machine    *lifecycle.Machine
	news       *database.NewsRepository
	groups     *database.GroupRepository
	drafts     *database.DraftRepository
	workspaces *database.WorkspaceRepository
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// Deps bundles the router's dependencies.
type Deps struct {
	DB          *sqlx.DB
	RedisClient *redis.Client
	Config      *config.Config

	Ingestor   *ingest.Service
	Machine    *lifecycle.Machine
	News       *database.NewsRepository
	Groups     *database.GroupRepository
	Drafts     *database.DraftRepository
	Workspaces *database.WorkspaceRepository
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// NewRouter creates a new API router.
func NewRouter(deps Deps) *Router {
	return &Router{
		db:          deps.DB,
		redisClient: deps.RedisClient,
		cfg:         deps.Config,
		ingestor:    deps.Ingestor,
		machine:     deps.Machine,
		news:        deps.News,
		groups:      deps.Groups,
		drafts:      deps.Drafts,
		workspaces:  deps.Workspaces,
		metrics:     deps.Metrics,
		logger:      deps.Logger,
	}
}

// SetupRoutes builds the gin engine with middleware and all service routes.
func (r *Router) SetupRoutes() *gin.Engine {
	if !r.cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(corsMiddleware(r.cfg.Server.CORSOrigins))
	if r.metrics != nil {
		router.Use(requestMetrics(r.metrics))
	}

	router.GET("/health", r.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	workspaces := v1.Group("/workspaces")
	workspaces.GET("", r.listWorkspaces)
	workspaces.POST("", r.createWorkspace)
	workspaces.POST("/:id/ingest", r.ingestBatch)
	workspaces.GET("/:id/groups", r.listGroups)
	workspaces.GET("/:id/drafts", r.listDrafts)
	workspaces.GET("/:id/stats", r.workspaceStats)

	groups := v1.Group("/groups")
	groups.GET("/:id", r.getGroup)
	groups.GET("/:id/facts", r.listGroupFacts)

	drafts := v1.Group("/drafts")
	drafts.POST("", r.createDraft)
	drafts.GET("/:id", r.getDraft)
	drafts.POST("/:id/edit", r.editDraft)
	drafts.POST("/:id/approve", r.approveDraft)
	drafts.POST("/:id/publish", r.publishDraft)
	drafts.POST("/:id/translate", r.translateDraft)

	return router
}

// healthCheck reports service, database, and Redis status.
func (r *Router) healthCheck(c *gin.Context) {
	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "newsroom",
		"version": serviceVersion,
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	dbConnected := true
	if err := r.db.PingContext(ctx); err != nil {
		dbConnected = false
		health["status"] = healthStatusDegraded
	}
	health["database"] = gin.H{"connected": dbConnected}

	redisConnected, _ := redisclient.CheckConnection(r.redisClient)
	health["redis"] = gin.H{"connected": redisConnected}
	if !redisConnected && health["status"] == healthStatusHealthy {
		health["status"] = healthStatusDegraded
	}

	c.JSON(200, health)
}
