package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boxoffice/api/routes"
	"boxoffice/internal/sandbox"
	"boxoffice/internal/shared/config"
	"boxoffice/internal/shared/database"
	"boxoffice/internal/shared/middleware"
	"boxoffice/pkg/logger"
	"boxoffice/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// @title           Boxoffice Sandbox API
// @version         1.0
// @description     Seat holds, bookings and mock payments for the checkout client.
// @host            localhost:8080
// @BasePath        /api/v1
func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	appLogger = logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.SetDefault(appLogger)

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	db, err := database.InitDB(rootCtx, cfg, appLogger)
	if err != nil {
		appLogger.Error("failed to initialize storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	appRouter, err := routes.NewRouter(rootCtx, cfg, db, appLogger)
	if err != nil {
		appLogger.Error("failed to build router", slog.Any("error", err))
		os.Exit(1)
	}

	// Rate limiting needs redis for its sliding window
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			SeatRequests:    cfg.RateLimit.SeatRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			PaymentRequests: cfg.RateLimit.PaymentRequests,
			HealthRequests:  cfg.RateLimit.HealthRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else if cfg.RateLimit.Enabled {
		appLogger.Warn("Rate limiting requested without redis, disabled")
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Kafka release beacons
	if cfg.Kafka.Enabled {
		cc := sandbox.DefaultConsumerConfig()
		cc.Brokers = cfg.Kafka.Brokers
		cc.GroupID = cfg.Kafka.GroupID
		cc.Topics = []string{cfg.Kafka.ReleaseTopic}
		consumer, err := sandbox.NewReleaseConsumer(cc, appRouter.Service(), appLogger)
		if err != nil {
			appLogger.Error("Failed to start release consumer", slog.Any("error", err))
		} else {
			consumer.Start(rootCtx, cfg.Kafka.Workers)
			defer func() {
				if err := consumer.Stop(); err != nil {
					appLogger.WithError(err).Warn("Error stopping release consumer")
				}
			}()
		}
	}

	engine := gin.New()
	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery(), middleware.CORS())
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter, appLogger))
	}
	appRouter.SetupRoutes(engine)

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Sandbox running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("api_base", cfg.GetAPIBasePath()),
			slog.Int64("demo_performance", appRouter.PerformanceID),
			slog.Bool("postgres", db.GetPostgreSQL() != nil),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.String("version", Version),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}
