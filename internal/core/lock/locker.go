// Package lock serializes mutating operations per business.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Locker acquires an exclusive lock on a key.
// Implementations live in infrastructure (redis) or here (in-process).
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned
	// release func must be called exactly once.
	Lock(ctx context.Context, key string) (release func(), err error)
}

// ErrNotObtained is returned when a lock could not be acquired in time.
var ErrNotObtained = errors.New("lock: not obtained")

// BusinessKey is the lock key for every mutation of one business.
func BusinessKey(businessID string) string {
	return "lock:" + businessID
}

// KeyedMutex is an in-process Locker. It only serializes callers inside one
// process and is the default when no redis is configured.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
	wait  time.Duration
}

type slot struct {
	ch   chan struct{}
	refs int
}

// Option configures a KeyedMutex.
type Option func(*KeyedMutex)

// WithWait bounds how long Lock waits for a held key before giving up
// with ErrNotObtained. Zero waits until ctx is done.
func WithWait(d time.Duration) Option {
	return func(m *KeyedMutex) { m.wait = d }
}

// NewKeyedMutex creates an in-process locker.
func NewKeyedMutex(opts ...Option) *KeyedMutex {
	m := &KeyedMutex{slots: make(map[string]*slot)}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lock implements Locker.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	s, ok := m.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		m.slots[key] = s
	}
	s.refs++
	m.mu.Unlock()

	waitCtx := ctx
	if m.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}

	select {
	case s.ch <- struct{}{}:
	case <-waitCtx.Done():
		m.unref(key, s)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: waited %s", ErrNotObtained, key, m.wait)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			m.unref(key, s)
		})
	}, nil
}

func (m *KeyedMutex) unref(key string, s *slot) {
	m.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(m.slots, key)
	}
	m.mu.Unlock()
}
