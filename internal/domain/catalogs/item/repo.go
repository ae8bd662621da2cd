package item

import (
	"context"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/registers/stock"
)

// Repository defines the interface for Item persistence.
type Repository interface {
	// ReadStock/WriteStock serve the stock reconciler.
	stock.ItemStore

	Create(ctx context.Context, item *Item) error
	GetByID(ctx context.Context, businessID string, itemID id.ID) (*Item, error)

	// Update stores catalog fields with optimistic locking. Stock is not touched.
	Update(ctx context.Context, item *Item) error
	Delete(ctx context.Context, businessID string, itemID id.ID) error
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Item], error)
}

// ListFilter for filtering items.
type ListFilter struct {
	domain.ListFilter

	// LowStockOnly returns items with stock below their minimum
	LowStockOnly bool
}
