package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbook/internal/app"
	"ledgerbook/internal/config"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Env:                "test",
		StorageDriver:      config.DriverMemory,
		LockTTL:            time.Second,
		IdempotencyEnabled: true,
		IdempotencyTTL:     time.Hour,
		IntentStaleAfter:   time.Minute,
		WorkerInterval:     time.Minute,
	}
}

func TestNew_Memory(t *testing.T) {
	a, err := app.New(context.Background(), memoryConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Pool)
	require.NotNil(t, a.Documents)

	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"healthy"`)
}

// openIntents never finishes Begin'd logs.
type openIntents struct {
	commercial.IntentStore
	logs []*commercial.OperationLog
}

func (o *openIntents) ListStale(context.Context, time.Time, int) ([]*commercial.OperationLog, error) {
	return o.logs, nil
}

func TestSweepStaleIntents(t *testing.T) {
	a, err := app.New(context.Background(), memoryConfig(), logger.Nop())
	require.NoError(t, err)
	defer a.Close()

	stale := &commercial.OperationLog{
		Operation:  commercial.OpCreate,
		BusinessID: "shop-1",
		Status:     commercial.IntentOpen,
		StartedAt:  time.Now().Add(-time.Hour),
	}
	a.Intents = &openIntents{IntentStore: a.Intents, logs: []*commercial.OperationLog{stale}}

	got, err := a.SweepStaleIntents(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 1)

	a.Maintain(context.Background())
}
