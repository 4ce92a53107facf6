package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boxoffice/internal/shared/config"
	"boxoffice/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB holds the sandbox's optional connections. Either may be nil when its
// section is disabled; the sandbox then falls back to in-memory stores.
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
	log        *logger.Logger
}

// InitDB opens the enabled connections and migrates the schema
func InitDB(ctx context.Context, cfg *config.Config, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	db := &DB{log: log.WithComponent("database")}

	if cfg.Database.Enabled {
		pg, err := initPostgreSQL(ctx, cfg, db.log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		db.PostgreSQL = pg
		if err := Migrate(pg); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		if err := MigrateConstraints(pg); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to add constraints: %w", err)
		}
	}

	if cfg.Redis.Enabled {
		rdb, err := initRedis(ctx, cfg, db.log)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		db.Redis = rdb
	}

	return db, nil
}

// OpenPostgreSQL connects without migrating; used by the seed command
func OpenPostgreSQL(ctx context.Context, cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	return initPostgreSQL(ctx, cfg, log.WithComponent("database"))
}

// initPostgreSQL initializes PostgreSQL connection with GORM
func initPostgreSQL(ctx context.Context, cfg *config.Config, log *logger.Logger) (*gorm.DB, error) {
	var gormLogger gormlogger.Interface
	if cfg.IsDevelopment() {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Warn)
	} else {
		gormLogger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	gormConfig := &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("PostgreSQL connected", "host", cfg.Database.Host, "database", cfg.Database.Name)
	return db, nil
}

// initRedis initializes Redis connection
func initRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,

		// Connection pool settings
		PoolSize:     10,
		MinIdleConns: 5,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}

	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Info("Redis connected", "addr", cfg.Redis.Addr)
	return rdb, nil
}

// Close closes all database connections
func (db *DB) Close() error {
	var errs []error

	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close PostgreSQL: %w", err))
			}
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("errors closing databases: %w", err)
	}

	if db.log != nil {
		db.log.Info("database connections closed")
	}
	return nil
}

// HealthCheck pings whichever connections are open
func (db *DB) HealthCheck(ctx context.Context) error {
	if db.PostgreSQL != nil {
		sqlDB, err := db.PostgreSQL.DB()
		if err != nil {
			return fmt.Errorf("PostgreSQL health check failed: %w", err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("PostgreSQL ping failed: %w", err)
		}
	}

	if db.Redis != nil {
		if err := db.Redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
	}

	return nil
}

// GetRedisClient returns the Redis client, nil when disabled
func (db *DB) GetRedisClient() *redis.Client {
	return db.Redis
}

// GetPostgreSQL returns the PostgreSQL GORM instance, nil when disabled
func (db *DB) GetPostgreSQL() *gorm.DB {
	return db.PostgreSQL
}
