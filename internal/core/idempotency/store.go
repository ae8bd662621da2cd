// Package idempotency defines the key store behind the HTTP idempotency middleware.
package idempotency

import (
	"context"
	"net/http"
	"time"
)

// Status represents the state of an idempotent operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// StaleAfter is how long a pending key may sit before another request reclaims it.
const StaleAfter = time.Minute

// Record stores the result of an idempotent operation.
type Record struct {
	Key         string    `db:"idempotency_key"`
	BusinessID  string    `db:"business_id"`
	Operation   string    `db:"operation"`
	Status      Status    `db:"status"`
	RequestHash string    `db:"request_hash"` // SHA256 of request body
	Response    []byte    `db:"response"`
	StatusCode  int       `db:"response_status"`
	ContentType string    `db:"response_content_type"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

// Replay is the cached HTTP response for replay.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Store manages idempotency keys.
type Store interface {
	// AcquireKey returns (nil, nil) when the key is now held by the caller,
	// a Replay when the operation already finished, or an error when the key
	// is in use or belongs to a different request. Keys are scoped per
	// business: the same key in two businesses names two records.
	AcquireKey(ctx context.Context, key, businessID, operation, requestHash string) (*Replay, error)

	CompleteKey(ctx context.Context, key, businessID string, statusCode int, contentType string, response any) error
	FailKey(ctx context.Context, key, businessID string, statusCode int, contentType string, response any) error

	// CleanupExpired removes expired records and reports how many.
	CleanupExpired(ctx context.Context) (int64, error)
}

// ReplayOf converts a finished record into its replay.
func ReplayOf(r *Record) *Replay {
	status := r.StatusCode
	// Older records may lack a status; default to 200 for JSON bodies.
	if status == 0 {
		status = http.StatusOK
	}
	ct := r.ContentType
	if ct == "" {
		ct = "application/json"
	}
	return &Replay{StatusCode: status, ContentType: ct, Body: r.Response}
}
