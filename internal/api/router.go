package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/creatorlens/creatorlens/internal/cache"
	"github.com/creatorlens/creatorlens/internal/db"
	"github.com/creatorlens/creatorlens/internal/engine"
	"github.com/creatorlens/creatorlens/pkg/config"
	"github.com/creatorlens/creatorlens/pkg/logging"
)

// Router wires the engine operations to HTTP routes
type Router struct {
	database  *db.DB
	store     *db.Store
	cache     *cache.Cache
	engine    *engine.Engine
	refresher *engine.Refresher
	cfg       *config.Config
	logger    *zap.Logger
}

// NewRouter creates a new API router
func NewRouter(database *db.DB, store *db.Store, redisCache *cache.Cache, eng *engine.Engine, refresher *engine.Refresher, cfg *config.Config) *Router {
	return &Router{
		database:  database,
		store:     store,
		cache:     redisCache,
		engine:    eng,
		refresher: refresher,
		cfg:       cfg,
		logger:    logging.WithComponent("api-router"),
	}
}

// SetupRoutes sets up all API routes
func (r *Router) SetupRoutes(router *gin.Engine) {
	router.GET("/health", r.healthHandler)
	router.GET("/.well-known/healthcheck.json", r.healthHandler)

	v1 := router.Group("/v1")
	{
		v1.POST("/platforms/:platform/ingest", r.ingestHandler)
		v1.POST("/refresh", r.refreshHandler)
		v1.POST("/sync-all", r.syncAllHandler)
		v1.DELETE("/accounts/:id", r.deleteAccountHandler)

		v1.GET("/analytics/overview", r.overviewHandler)
		v1.GET("/analytics/daily", r.dailyPerformanceHandler)
		v1.GET("/analytics/rolling-median", r.rollingMedianHandler)
	}
}
