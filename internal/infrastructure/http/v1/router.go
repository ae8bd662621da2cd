// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"ledgerbook/internal/core/idempotency"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/infrastructure/http/v1/handlers"
	"ledgerbook/internal/infrastructure/http/v1/middleware"
	"ledgerbook/pkg/logger"
)

// RouterConfig holds the services the API exposes.
type RouterConfig struct {
	Logger *logger.Logger

	Documents *commercial.Service
	Ledger    *settlement.Ledger
	Items     *item.Service
	Intents   commercial.IntentStore

	// Idempotency backs X-Idempotency-Key when IdempotencyEnabled is set.
	Idempotency        idempotency.Store
	IdempotencyEnabled bool

	// Version and Storage are reported by /health/info.
	Version string
	Storage string
	// HealthChecks are pinged by /health/ready.
	HealthChecks map[string]handlers.Pinger

	// Development enables gin debug mode.
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	router := gin.New()

	// Order matters: the error handler must run after recovery aborts.
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.Storage, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	business := router.Group("/api/v1/businesses/:" + middleware.ParamBusinessID)
	business.Use(middleware.Business())
	if cfg.IdempotencyEnabled && cfg.Idempotency != nil {
		business.Use(middleware.Idempotency(cfg.Idempotency))
	}

	base := handlers.NewBaseHandler()

	handlers.NewDocumentHandler(base, cfg.Documents).RegisterRoutes(business.Group("/documents"))
	handlers.NewTransactionHandler(base, cfg.Ledger).RegisterRoutes(business)
	handlers.NewItemHandler(base, cfg.Items).RegisterRoutes(business.Group("/items"))

	if cfg.Intents != nil {
		ops := handlers.NewOperationHandler(base, cfg.Intents)
		business.GET("/operations/:id", ops.Get)
	}

	return router
}
