package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/idempotency"
)

// IdempotencyRecord is the stored state of one key.
type IdempotencyRecord = idempotency.Record

type idempotencyKey struct {
	businessID string
	key        string
}

// IdempotencyRepo implements idempotency.Store.
type IdempotencyRepo struct {
	s   *Store
	ttl time.Duration
}

var _ idempotency.Store = (*IdempotencyRepo)(nil)

// WithTTL sets how long keys are kept.
func (r *IdempotencyRepo) WithTTL(ttl time.Duration) *IdempotencyRepo {
	r.ttl = ttl
	return r
}

// AcquireKey implements idempotency.Store.
func (r *IdempotencyRepo) AcquireKey(_ context.Context, key, businessID, operation, requestHash string) (*idempotency.Replay, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	ttl := r.ttl
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	k := idempotencyKey{businessID: businessID, key: key}
	rec, ok := r.s.idempotency[k]
	if !ok || rec.ExpiresAt.Before(now) {
		r.s.idempotency[k] = &idempotency.Record{
			Key:         key,
			BusinessID:  businessID,
			Operation:   operation,
			Status:      idempotency.StatusPending,
			RequestHash: requestHash,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.Add(ttl),
		}
		return nil, nil
	}

	if rec.Operation != operation || rec.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.Operation).
			WithDetail("request_operation", operation)
	}

	switch rec.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return idempotency.ReplayOf(rec), nil
	default:
		if now.Sub(rec.UpdatedAt) > idempotency.StaleAfter {
			rec.UpdatedAt = now
			return nil, nil
		}
		return nil, apperror.NewIdempotencyConflict(key)
	}
}

// CompleteKey implements idempotency.Store.
func (r *IdempotencyRepo) CompleteKey(_ context.Context, key, businessID string, statusCode int, contentType string, response any) error {
	return r.finish(idempotencyKey{businessID: businessID, key: key}, idempotency.StatusSuccess, statusCode, contentType, response)
}

// FailKey implements idempotency.Store.
func (r *IdempotencyRepo) FailKey(_ context.Context, key, businessID string, statusCode int, contentType string, response any) error {
	return r.finish(idempotencyKey{businessID: businessID, key: key}, idempotency.StatusFailed, statusCode, contentType, response)
}

func (r *IdempotencyRepo) finish(k idempotencyKey, status idempotency.Status, statusCode int, contentType string, response any) error {
	var body []byte
	if response != nil {
		b, err := json.Marshal(response)
		if err != nil {
			return fmt.Errorf("marshal response: %w", err)
		}
		body = b
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.idempotency[k]
	if !ok {
		return apperror.NewNotFound("idempotency key", k.key)
	}
	rec.Status = status
	rec.Response = body
	rec.StatusCode = statusCode
	rec.ContentType = contentType
	rec.UpdatedAt = r.s.now()
	return nil
}

// CleanupExpired implements idempotency.Store.
func (r *IdempotencyRepo) CleanupExpired(_ context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	var n int64
	for key, rec := range r.s.idempotency {
		if rec.ExpiresAt.Before(now) {
			delete(r.s.idempotency, key)
			n++
		}
	}
	return n, nil
}
