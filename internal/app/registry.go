package app

import (
	"database/sql"
	"time"

	"go-dispensa/internal/config"
	"go-dispensa/internal/department"
	"go-dispensa/internal/dispensa"
	"go-dispensa/internal/messaging/kafka"
	"go-dispensa/internal/middleware"
	"go-dispensa/internal/rbac"
	"go-dispensa/internal/rbac/infra"
	"go-dispensa/internal/shared/audit"
	"go-dispensa/internal/shared/counter"
	"go-dispensa/internal/shared/locker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const lockWait = 2 * time.Second

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) error {
	// --- RBAC Core ---
	enforcer, err := infra.NewEnforcer()
	if err != nil {
		return err
	}
	rbacService := rbac.NewService(enforcer, logger)
	if err := rbacService.LoadPolicy(infra.DefaultPolicy); err != nil {
		return err
	}

	// --- Services ---
	departmentService := department.NewService(department.NewRepository(gormDB), rdb, cfg.SectorCacheTTL, logger)
	dispensaService := newDispensaService(db, gormDB, rdb, departmentService, cfg, logger)

	// --- Handlers ---
	departmentHandler := department.NewHandler(departmentService, logger)
	dispensaHandler := dispensa.NewHandler(dispensaService, logger)
	rbacHandler := rbac.NewHandler(rbacService, logger)

	// --- Routes Registration ---
	auth := middleware.Auth(cfg.JWTSecret)
	api := router.Group("/api/v1")
	{
		dispensa.RegisterRoutes(api, dispensaHandler, rbacService, auth, dispensa.RouteOptions{
			Redis:         rdb,
			DecisionRate:  rate.Limit(cfg.DecisionRate),
			DecisionBurst: cfg.DecisionBurst,
		})
		department.RegisterRoutes(api, departmentHandler, rbacService, auth)
	}

	rbac.RegisterRoutes(router, rbacHandler, auth)

	return nil
}

// newDispensaService wires the workflow engine. Without Redis, decisions are
// serialized in-process and documents are rendered on every request.
func newDispensaService(
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	units dispensa.UnitScope,
	cfg *config.Config,
	logger *zap.Logger,
) dispensa.Service {
	deps := dispensa.Dependencies{
		Outbox:           kafka.NewOutboxRepository(db),
		Counter:          counter.NewRepository(gormDB),
		Units:            units,
		Audit:            audit.NewZapLogger(logger),
		LockTTL:          cfg.DecisionLockTTL,
		DocumentCacheTTL: cfg.DocumentCacheTTL,
	}
	if rdb != nil {
		deps.Locker = locker.NewRedisLocker(rdb, lockWait, logger)
		deps.Cache = dispensa.NewRedisDocumentCache(rdb)
	} else {
		deps.Locker = locker.NewLocalLocker(lockWait)
	}

	return dispensa.NewService(db, dispensa.NewRepository(gormDB), deps, logger)
}
