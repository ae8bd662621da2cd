// Package main is the entry point for the ledgerbook maintenance worker.
// It reports operations left incomplete, expires idempotency keys and
// logs pool statistics on a fixed interval.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"ledgerbook/internal/app"
	"ledgerbook/internal/config"
	"ledgerbook/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting ledgerbook worker", "interval", cfg.WorkerInterval, "stale_after", cfg.IntentStaleAfter)

	application, err := app.New(ctx, cfg, log.WithComponent("worker"))
	if err != nil {
		log.Fatalw("failed to start application", "error", err)
	}
	defer application.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		run(ctx, application, cfg.WorkerInterval)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}

func run(ctx context.Context, a *app.App, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.Maintain(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Maintain(ctx)
		}
	}
}
