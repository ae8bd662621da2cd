// Package item provides the inventory catalog.
// An item's stockQuantity is a mutable aggregate with no movement history.
package item

import (
	"context"
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/entity"
	"ledgerbook/internal/core/types"
)

// Item is an inventory catalog entry.
type Item struct {
	entity.BaseEntity

	Name string `db:"name" json:"name"`
	SKU  string `db:"sku" json:"sku,omitempty"`
	Unit string `db:"unit" json:"unit,omitempty"`

	// StockQuantity reflects the sum of all persisted documents' effects.
	StockQuantity types.Quantity `db:"stock_quantity" json:"stockQuantity"`
	MinStock      types.Quantity `db:"min_stock" json:"minStock"`

	PurchasePrice types.Money `db:"purchase_price" json:"purchasePrice"`
	SalePrice     types.Money `db:"sale_price" json:"salePrice"`
}

// NewItem creates an item with an opening stock level.
func NewItem(businessID, name string, openingStock types.Quantity) *Item {
	return &Item{
		BaseEntity:    entity.NewBaseEntity(businessID),
		Name:          name,
		StockQuantity: openingStock,
	}
}

// IsLowStock reports whether stock has fallen below the minimum.
func (i *Item) IsLowStock() bool {
	return i.StockQuantity < i.MinStock
}

// Validate implements entity.Validatable interface.
func (i *Item) Validate(ctx context.Context) error {
	if err := i.BaseEntity.Validate(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(i.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if i.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").WithDetail("field", "minStock")
	}
	if i.PurchasePrice.IsNegative() || i.SalePrice.IsNegative() {
		return apperror.NewValidation("prices cannot be negative").WithDetail("field", "price")
	}
	return nil
}
