package app

import (
	"context"
	"time"

	"ledgerbook/internal/domain/documents/commercial"
)

// staleBatch bounds one sweep of open intents.
const staleBatch = 100

// SweepStaleIntents reports operations that began before the stale window
// and never finished. Their step logs show which store calls committed;
// nothing is rolled back automatically.
func (a *App) SweepStaleIntents(ctx context.Context) ([]*commercial.OperationLog, error) {
	olderThan := time.Now().UTC().Add(-a.Config.IntentStaleAfter)
	stale, err := a.Intents.ListStale(ctx, olderThan, staleBatch)
	if err != nil {
		return nil, err
	}
	for _, op := range stale {
		a.Logger.Warnw("operation left incomplete",
			"operation_id", op.ID.String(),
			"operation", op.Operation,
			"business_id", op.BusinessID,
			"started_at", op.StartedAt,
			"committed_steps", op.CommittedSteps(),
		)
	}
	return stale, nil
}

// Maintain runs one maintenance pass: stale intent sweep, idempotency
// key cleanup and pool statistics.
func (a *App) Maintain(ctx context.Context) {
	if _, err := a.SweepStaleIntents(ctx); err != nil {
		a.Logger.Errorw("stale intent sweep failed", "error", err)
	}

	if n, err := a.Idempotency.CleanupExpired(ctx); err != nil {
		a.Logger.Errorw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		a.Logger.Infow("cleaned up idempotency keys", "count", n)
	}

	if a.Pool != nil {
		a.Pool.LogStats(ctx)
	}
}
