// Package app wires storage, locking and domain services from Config.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"ledgerbook/internal/config"
	"ledgerbook/internal/core/idempotency"
	corelock "ledgerbook/internal/core/lock"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/domain/registers/stock"
	v1 "ledgerbook/internal/infrastructure/http/v1"
	"ledgerbook/internal/infrastructure/http/v1/handlers"
	redislock "ledgerbook/internal/infrastructure/lock"
	"ledgerbook/internal/infrastructure/storage/memstore"
	"ledgerbook/internal/infrastructure/storage/postgres"
	"ledgerbook/internal/infrastructure/storage/postgres/catalog_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/document_repo"
	"ledgerbook/internal/infrastructure/storage/postgres/register_repo"
	"ledgerbook/pkg/logger"
	"ledgerbook/pkg/numerator"
)

// Version is reported by /health/info and the CLI.
var Version = "dev"

// App holds the wired services of one process.
type App struct {
	Config *config.Config
	Logger *logger.Logger

	Documents   *commercial.Service
	Ledger      *settlement.Ledger
	Items       *item.Service
	Intents     commercial.IntentStore
	Idempotency idempotency.Store

	// Pool is nil for the memory driver.
	Pool *postgres.Pool

	healthChecks map[string]handlers.Pinger
	closers      []func()
}

// storage is the set of repositories one driver provides.
type storage struct {
	documents   commercial.Repository
	items       item.Repository
	txns        settlement.Repository
	intents     commercial.IntentStore
	numberer    commercial.Numberer
	idempotency idempotency.Store
}

// New builds the application for cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{
		Config:       cfg,
		Logger:       log,
		healthChecks: make(map[string]handlers.Pinger),
	}

	var (
		st  *storage
		err error
	)
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		st, err = a.openPostgres(ctx)
	default:
		st = a.openMemory()
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.openLocker(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Ledger = settlement.NewLedger(st.txns)
	a.Items = item.NewService(st.items)
	a.Intents = st.intents
	a.Idempotency = st.idempotency
	a.Documents = commercial.NewService(
		st.documents,
		a.Ledger,
		stock.NewReconciler(st.items),
		st.intents,
		locker,
		st.numberer,
	)

	log.Infow("application wired",
		"storage", cfg.StorageDriver,
		"distributed_lock", cfg.RedisAddr != "",
		"idempotency", cfg.IdempotencyEnabled,
	)
	return a, nil
}

func (a *App) openMemory() *storage {
	store := memstore.New()
	a.healthChecks["store"] = store
	return &storage{
		documents:   store.Documents(),
		items:       store.Items(),
		txns:        store.Transactions(),
		intents:     store.Intents(),
		numberer:    store.Sequences(),
		idempotency: store.Idempotency().WithTTL(a.Config.IdempotencyTTL),
	}
}

func (a *App) openPostgres(ctx context.Context) (*storage, error) {
	cfg := a.Config
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	a.Pool = pool
	a.closers = append(a.closers, pool.Close)

	txm := postgres.NewTxManager(pool)
	a.healthChecks["database"] = txm

	if cfg.MigrateOnBoot {
		if err := postgres.EnsureSchema(ctx, txm); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	journal, err := postgres.NewJournal(txm)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	opts := numerator.DefaultOptions()
	if cfg.NumberingCached {
		opts.Strategy = numerator.StrategyCached
	}

	return &storage{
		documents:   document_repo.NewCommercialRepo(txm),
		items:       catalog_repo.NewItemRepo(txm),
		txns:        register_repo.NewTransactionRepo(txm),
		intents:     journal,
		numberer:    numerator.New(pool, opts),
		idempotency: postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL),
	}, nil
}

func (a *App) openLocker(ctx context.Context) (corelock.Locker, error) {
	cfg := a.Config
	if cfg.RedisAddr == "" {
		return corelock.NewKeyedMutex(corelock.WithWait(cfg.LockWait)), nil
	}
	locker, err := redislock.NewRedisLocker(ctx, redislock.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		TTL:      cfg.LockTTL,
		Wait:     cfg.LockWait,
	})
	if err != nil {
		return nil, fmt.Errorf("open redis lock: %w", err)
	}
	a.healthChecks["redis"] = locker
	a.closers = append(a.closers, func() { _ = locker.Close() })
	return locker, nil
}

// Router builds the HTTP API.
func (a *App) Router() *gin.Engine {
	return v1.NewRouter(v1.RouterConfig{
		Logger:             a.Logger,
		Documents:          a.Documents,
		Ledger:             a.Ledger,
		Items:              a.Items,
		Intents:            a.Intents,
		Idempotency:        a.Idempotency,
		IdempotencyEnabled: a.Config.IdempotencyEnabled,
		Version:            Version,
		Storage:            a.Config.StorageDriver,
		HealthChecks:       a.healthChecks,
		Development:        a.Config.IsDevelopment(),
	})
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
