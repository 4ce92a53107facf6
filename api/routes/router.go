// api/routes/router.go
package routes

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"boxoffice/docs"
	"boxoffice/internal/sandbox"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/pkg/cache"
	"boxoffice/pkg/clock"
	"boxoffice/pkg/logger"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Router holds all route dependencies
type Router struct {
	config  *config.Config
	db      *database.DB
	log     *logger.Logger
	service *sandbox.Service

	// PerformanceID is the seeded demo performance when running in memory
	PerformanceID int64
}

// NewRouter builds the sandbox on whatever storage is enabled. Without
// Postgres the catalogue lives in memory and is seeded with the demo
// performance; without Redis holds live in memory too.
func NewRouter(ctx context.Context, cfg *config.Config, db *database.DB, log *logger.Logger) (*Router, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	r := &Router{config: cfg, db: db, log: log}
	clk := clock.New()

	var repo sandbox.Repository
	if pg := db.GetPostgreSQL(); pg != nil {
		repo = sandbox.NewRepository(pg)
	} else {
		mem := sandbox.NewMemoryRepository()
		id, err := sandbox.SeedDemo(ctx, mem, clk.Now())
		if err != nil {
			return nil, fmt.Errorf("failed to seed in-memory catalogue: %w", err)
		}
		r.PerformanceID = id
		repo = mem
		log.Info("using in-memory catalogue", "performance_id", id)
	}

	var holds sandbox.HoldStore
	var cacheSvc cache.Service
	if rdb := db.GetRedisClient(); rdb != nil {
		redisHolds := sandbox.NewRedisHoldStore(rdb, clk)
		preloadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := redisHolds.PreloadScripts(preloadCtx); err != nil {
			// scripts still load on first use
			log.Warn("failed to preload hold scripts", "error", err)
		}
		cancel()
		holds = redisHolds
		cacheSvc = cache.NewService(rdb, log)
	} else {
		holds = sandbox.NewMemoryHoldStore(clk)
		log.Info("using in-memory seat holds")
	}

	r.service = sandbox.NewService(repo, holds, cacheSvc, clk, sandbox.ConfigFrom(cfg), log)
	return r, nil
}

// Service exposes the sandbox for the release beacon consumer
func (r *Router) Service() *sandbox.Service {
	return r.service
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	controller := sandbox.NewController(r.service)

	api := engine.Group(r.config.GetAPIBasePath())
	sandbox.SetupRoutes(api, controller)

	// Mock payment gateway landing page
	engine.GET("/pay", controller.PaymentPage)

	docs.SwaggerInfo.BasePath = r.config.GetAPIBasePath()
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "boxoffice-sandbox",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "boxoffice-sandbox",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"postgres":    r.db.GetPostgreSQL() != nil,
			"redis":       r.db.GetRedisClient() != nil,
			"timestamp":   time.Now(),
		})
	})
}
