// Package entity provides the fields every persisted ledger record shares.
package entity

import (
	"context"
	"strings"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without store access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// BaseEntity contains common fields for all business-scoped records.
type BaseEntity struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// BusinessID scopes the record. Every query filters on it.
	BusinessID string `db:"business_id" json:"businessId"`

	// Version for optimistic locking (incremented on each update)
	Version int `db:"version" json:"version"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBaseEntity creates a new BaseEntity with generated ID.
func NewBaseEntity(businessID string) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:         id.New(),
		BusinessID: businessID,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch updates the UpdatedAt timestamp and increments version.
func (b *BaseEntity) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// Validate implements Validatable interface.
func (b *BaseEntity) Validate(ctx context.Context) error {
	if strings.TrimSpace(b.BusinessID) == "" {
		return apperror.NewValidation("business is required").
			WithDetail("field", "businessId")
	}
	return nil
}

// BelongsTo reports whether the record is scoped to businessID.
func (b *BaseEntity) BelongsTo(businessID string) bool {
	return b.BusinessID == businessID
}
