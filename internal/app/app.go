package app

import (
	"go-dispensa/internal/config"
	"go-dispensa/internal/middleware"
	"go-dispensa/internal/shared/connection"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const (
	apiRatePerSecond = 20
	apiRateBurst     = 40
)

// BuildApp connects infrastructure and registers every module on router.
// The returned cleanup closes the connections it opened.
func BuildApp(router *gin.Engine, cfg *config.Config, logger *zap.Logger) (func(), error) {
	log := logger.Named("app")

	gormDB, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	log.Info("database connection established")

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	if err := migrate(gormDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = connection.ConnectRedisWithRetry(cfg.RedisAddr, cfg.DBRetries)
		if err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		log.Info("redis connection established")
	} else {
		log.Warn("REDIS_ADDR not set, using in-process locks without caching")
	}

	router.Use(
		middleware.ContextLogger(logger),
		middleware.RateLimitByIP(rate.Limit(apiRatePerSecond), apiRateBurst),
	)

	if err := registerModules(router, sqlDB, gormDB, rdb, cfg, logger); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	cleanup := func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		_ = sqlDB.Close()
	}
	return cleanup, nil
}

func connect(cfg *config.Config) (*gorm.DB, error) {
	return connection.ConnectGORMWithRetry(connection.PostgresOptions{
		Host:     cfg.DBHost,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		DBName:   cfg.DBName,
		Port:     cfg.DBPort,
		SSLMode:  cfg.DBSSLMode,
	}, cfg.DBRetries)
}
