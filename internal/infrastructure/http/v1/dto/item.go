package dto

import (
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/catalogs/item"
)

// CreateItemRequest registers an inventory item.
type CreateItemRequest struct {
	Name          string         `json:"name" binding:"required"`
	SKU           string         `json:"sku,omitempty"`
	Unit          string         `json:"unit,omitempty"`
	OpeningStock  types.Quantity `json:"openingStock"`
	MinStock      types.Quantity `json:"minStock"`
	PurchasePrice types.Money    `json:"purchasePrice"`
	SalePrice     types.Money    `json:"salePrice"`
}

// ToEntity converts the request for businessID.
func (r *CreateItemRequest) ToEntity(businessID string) *item.Item {
	it := item.NewItem(businessID, r.Name, r.OpeningStock)
	it.SKU = r.SKU
	it.Unit = r.Unit
	it.MinStock = r.MinStock
	it.PurchasePrice = r.PurchasePrice
	it.SalePrice = r.SalePrice
	return it
}

// UpdateItemRequest changes catalog fields. Stock is not editable here.
type UpdateItemRequest struct {
	Name          *string         `json:"name,omitempty"`
	SKU           *string         `json:"sku,omitempty"`
	Unit          *string         `json:"unit,omitempty"`
	MinStock      *types.Quantity `json:"minStock,omitempty"`
	PurchasePrice *types.Money    `json:"purchasePrice,omitempty"`
	SalePrice     *types.Money    `json:"salePrice,omitempty"`
	Version       int             `json:"version" binding:"required"`
}

// ApplyTo copies set fields onto it.
func (r *UpdateItemRequest) ApplyTo(it *item.Item) {
	if r.Name != nil {
		it.Name = *r.Name
	}
	if r.SKU != nil {
		it.SKU = *r.SKU
	}
	if r.Unit != nil {
		it.Unit = *r.Unit
	}
	if r.MinStock != nil {
		it.MinStock = *r.MinStock
	}
	if r.PurchasePrice != nil {
		it.PurchasePrice = *r.PurchasePrice
	}
	if r.SalePrice != nil {
		it.SalePrice = *r.SalePrice
	}
	it.Version = r.Version
}

// ItemResponse adds the derived low-stock flag.
type ItemResponse struct {
	*item.Item
	LowStock bool `json:"lowStock"`
}

// FromItem builds the response for it.
func FromItem(it *item.Item) ItemResponse {
	return ItemResponse{Item: it, LowStock: it.IsLowStock()}
}
