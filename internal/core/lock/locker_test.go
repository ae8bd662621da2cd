package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		active  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := m.Lock(ctx, BusinessKey("b1"))
			require.NoError(t, err)
			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			active--
			mu.Unlock()
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Empty(t, m.slots)
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	r1, err := m.Lock(ctx, BusinessKey("b1"))
	require.NoError(t, err)
	defer r1()

	r2, err := m.Lock(ctx, BusinessKey("b2"))
	require.NoError(t, err)
	r2()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	m := NewKeyedMutex()
	release, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release() // second call is a no-op
	assert.Empty(t, m.slots)
}

func TestKeyedMutex_WaitExpires(t *testing.T) {
	m := NewKeyedMutex(WithWait(20 * time.Millisecond))
	release, err := m.Lock(context.Background(), BusinessKey("b1"))
	require.NoError(t, err)

	start := time.Now()
	_, err = m.Lock(context.Background(), BusinessKey("b1"))
	require.ErrorIs(t, err, ErrNotObtained)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	release()
	assert.Empty(t, m.slots)
}

func TestKeyedMutex_WaitObtainsWhenReleased(t *testing.T) {
	m := NewKeyedMutex(WithWait(time.Second))
	release, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)

	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	r2, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)
	r2()
	assert.Empty(t, m.slots)
}

func TestKeyedMutex_CallerDeadlineWinsOverWait(t *testing.T) {
	m := NewKeyedMutex(WithWait(time.Second))
	release, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrNotObtained)
}
