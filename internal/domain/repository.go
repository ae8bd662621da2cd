// Package domain provides types shared by the ledger's domain packages.
package domain

import (
	"context"
	"time"
)

// --- Filter & Pagination ---

// ListFilter contains common filtering options for list operations.
type ListFilter struct {
	// BusinessID scopes every list query (required)
	BusinessID string

	// Search performs a substring match on the entity's searchable field
	Search string

	// DateFrom/DateTo bound the business date (inclusive)
	DateFrom *time.Time
	DateTo   *time.Time

	// OrderBy specifies sorting (e.g., "date", "-created_at")
	OrderBy string

	// Pagination. Limit 0 means no limit.
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter(businessID string) ListFilter {
	return ListFilter{
		BusinessID: businessID,
		Limit:      50,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page applies Offset/Limit to an in-memory slice.
func Page[T any](items []T, f ListFilter) ListResult[T] {
	res := ListResult[T]{TotalCount: int64(len(items)), Limit: f.Limit, Offset: f.Offset}
	if f.Offset >= len(items) {
		res.Items = []T{}
		return res
	}
	items = items[f.Offset:]
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	res.Items = items
	return res
}

// --- Hooks ---

// HookEvent represents lifecycle event type.
type HookEvent string

const (
	BeforeCreate HookEvent = "before_create"
	AfterCreate  HookEvent = "after_create"
	BeforeUpdate HookEvent = "before_update"
	AfterUpdate  HookEvent = "after_update"
	BeforeDelete HookEvent = "before_delete"
	AfterDelete  HookEvent = "after_delete"
)

// Hook is a function that runs at specific lifecycle points.
type Hook[T any] func(ctx context.Context, entity T) error

// HookRegistry stores lifecycle hooks for an entity type.
type HookRegistry[T any] struct {
	hooks map[HookEvent][]Hook[T]
}

// NewHookRegistry creates an empty hook registry.
func NewHookRegistry[T any]() *HookRegistry[T] {
	return &HookRegistry[T]{
		hooks: make(map[HookEvent][]Hook[T]),
	}
}

// On registers a hook for the specified event.
func (r *HookRegistry[T]) On(event HookEvent, hook Hook[T]) {
	r.hooks[event] = append(r.hooks[event], hook)
}

// Run executes all hooks for the specified event, stopping at the first error.
func (r *HookRegistry[T]) Run(ctx context.Context, event HookEvent, entity T) error {
	for _, hook := range r.hooks[event] {
		if err := hook(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}
