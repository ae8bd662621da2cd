package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates sys_sequences keyed by (business_id, key).
// Strict passes two args and adds 1, cached passes the range size as the third.
type mockQuerier struct {
	mu     sync.Mutex
	values map[string]int64
	calls  int
	err    error
}

func newMockQuerier() *mockQuerier {
	return &mockQuerier{values: make(map[string]int64)}
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	key := args[0].(string) + "/" + args[1].(string)
	var increment int64 = 1
	if len(args) == 3 {
		increment = args[2].(int64)
	}
	m.values[key] += increment
	return &mockRow{val: m.values[key]}
}

var period = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newMockQuerier()
	svc := New(q, nil)
	ctx := context.Background()
	cfg := DefaultConfig("INV")

	num, err := svc.GetNextNumber(ctx, "biz-1", cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", num)

	num, err = svc.GetNextNumber(ctx, "biz-1", cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00002", num)

	// another business has its own sequence
	num, err = svc.GetNextNumber(ctx, "biz-2", cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", num)
	assert.Equal(t, 3, q.calls)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newMockQuerier()
	svc := New(q, &Options{Strategy: StrategyCached, RangeSize: 10})
	ctx := context.Background()
	cfg := DefaultConfig("BILL")

	num, err := svc.GetNextNumber(ctx, "biz-1", cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "BILL-2026-00001", num)
	assert.Equal(t, int64(10), q.values["biz-1/BILL_2026"])

	for i := 2; i <= 10; i++ {
		_, err := svc.GetNextNumber(ctx, "biz-1", cfg, period)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "range served from memory")

	num, err = svc.GetNextNumber(ctx, "biz-1", cfg, period)
	require.NoError(t, err)
	assert.Equal(t, "BILL-2026-00011", num)
	assert.Equal(t, int64(20), q.values["biz-1/BILL_2026"])
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_Errors(t *testing.T) {
	q := newMockQuerier()
	svc := New(q, nil)

	_, err := svc.GetNextNumber(context.Background(), "", DefaultConfig("INV"), period)
	assert.Error(t, err)

	q.err = errors.New("connection reset")
	_, err = svc.Next(context.Background(), "biz-1", "INV", period)
	assert.ErrorIs(t, err, q.err)
}

func TestBuildKey(t *testing.T) {
	tests := []struct {
		reset string
		want  string
	}{
		{"year", "INV_2026"},
		{"month", "INV_2026_03"},
		{"never", "INV"},
	}
	for _, tt := range tests {
		t.Run(tt.reset, func(t *testing.T) {
			cfg := DefaultConfig("INV")
			cfg.ResetPeriod = tt.reset
			assert.Equal(t, tt.want, BuildKey(cfg, period))
		})
	}
}

func TestFormatAndParse(t *testing.T) {
	cfg := DefaultConfig("INV")
	assert.Equal(t, "INV-2026-00042", Format(cfg, period, 42))

	cfg.IncludeYear = false
	cfg.PadWidth = 3
	assert.Equal(t, "INV-042", Format(cfg, period, 42))

	assert.Equal(t, int64(42), ParseNumber("INV-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("BILL-007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
}
