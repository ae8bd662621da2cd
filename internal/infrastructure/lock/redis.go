// Package lock provides the Redis-backed business lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	corelock "ledgerbook/internal/core/lock"
	"ledgerbook/pkg/logger"
)

// Config holds Redis connection and lock settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// TTL bounds how long a crashed holder can keep a business locked.
	TTL time.Duration
	// Wait is how long Lock retries before reporting the business busy.
	Wait time.Duration
	// RetryEvery is the backoff between attempts.
	RetryEvery time.Duration
}

// RedisLocker implements corelock.Locker across processes.
type RedisLocker struct {
	client *redis.Client
	locker *redislock.Client
	cfg    Config
}

var _ corelock.Locker = (*RedisLocker)(nil)

// NewRedisLocker connects to Redis and pings it once.
func NewRedisLocker(ctx context.Context, cfg Config) (*RedisLocker, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Second
	}
	if cfg.Wait <= 0 {
		cfg.Wait = 5 * time.Second
	}
	if cfg.RetryEvery <= 0 {
		cfg.RetryEvery = 50 * time.Millisecond
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}

	return &RedisLocker{
		client: client,
		locker: redislock.New(client),
		cfg:    cfg,
	}, nil
}

// Lock implements corelock.Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()

	held, err := l.locker.Obtain(waitCtx, key, l.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.cfg.RetryEvery),
	})
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s: %v", corelock.ErrNotObtained, key, err)
		}
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// The caller's context may be cancelled by now.
		if err := held.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "failed to release redis lock", "key", key, "error", err)
		}
	}, nil
}

// Ping checks Redis connectivity.
func (l *RedisLocker) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
