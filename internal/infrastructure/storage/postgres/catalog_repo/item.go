// Package catalog_repo stores catalog entries.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/registers/stock"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const itemTable = "cat_items"

// ItemRepo implements item.Repository.
type ItemRepo struct {
	table *postgres.Table[*item.Item]
}

var _ item.Repository = (*ItemRepo)(nil)

// NewItemRepo creates the item repository.
func NewItemRepo(txm *postgres.TxManager) *ItemRepo {
	return &ItemRepo{table: &postgres.Table[*item.Item]{
		TxManager:    txm,
		Name:         itemTable,
		Cols:         postgres.ExtractDBColumns[item.Item](),
		Entity:       "item",
		DefaultOrder: "name ASC",
	}}
}

// Create implements item.Repository.
func (r *ItemRepo) Create(ctx context.Context, it *item.Item) error {
	return r.table.Insert(ctx, it)
}

// GetByID implements item.Repository.
func (r *ItemRepo) GetByID(ctx context.Context, businessID string, itemID id.ID) (*item.Item, error) {
	it := &item.Item{}
	q := r.table.Select(businessID).Where(squirrel.Eq{"id": itemID})
	if err := r.table.GetOne(ctx, it, q, itemID.String()); err != nil {
		return nil, err
	}
	return it, nil
}

// Update implements item.Repository. stock_quantity is owned by WriteStock.
func (r *ItemRepo) Update(ctx context.Context, it *item.Item) error {
	next, err := r.table.UpdateCAS(ctx, it, "stock_quantity")
	if err != nil {
		return err
	}
	it.Version = next

	var qty types.Quantity
	sql, args, err := postgres.Builder().
		Select("stock_quantity").From(itemTable).
		Where(squirrel.Eq{"id": it.ID, "business_id": it.BusinessID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := r.table.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&qty); err != nil {
		return fmt.Errorf("reload stock: %w", err)
	}
	it.StockQuantity = qty
	return nil
}

// Delete implements item.Repository.
func (r *ItemRepo) Delete(ctx context.Context, businessID string, itemID id.ID) error {
	n, err := r.table.DeleteWhere(ctx, businessID, squirrel.Eq{"id": itemID})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("item", itemID.String())
	}
	return nil
}

// List implements item.Repository.
func (r *ItemRepo) List(ctx context.Context, filter item.ListFilter) (domain.ListResult[*item.Item], error) {
	return r.table.Page(ctx, buildItemQuery(r.table.Select(filter.BusinessID), filter), filter.ListFilter)
}

func buildItemQuery(q squirrel.SelectBuilder, filter item.ListFilter) squirrel.SelectBuilder {
	if filter.LowStockOnly {
		q = q.Where("stock_quantity < min_stock")
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	return q
}

// ReadStock implements stock.ItemStore.
func (r *ItemRepo) ReadStock(ctx context.Context, businessID string, itemID id.ID) (stock.Snapshot, error) {
	snap := stock.Snapshot{ItemID: itemID}
	sql, args, err := postgres.Builder().
		Select("stock_quantity", "min_stock", "version").
		From(itemTable).
		Where(squirrel.Eq{"id": itemID, "business_id": businessID}).
		ToSql()
	if err != nil {
		return snap, fmt.Errorf("build query: %w", err)
	}

	err = r.table.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&snap.Quantity, &snap.MinStock, &snap.Version)
	if err != nil {
		if pgxscan.NotFound(err) {
			return snap, apperror.NewNotFound("item", itemID.String())
		}
		return snap, fmt.Errorf("read stock: %w", err)
	}
	return snap, nil
}

// WriteStock implements stock.ItemStore.
func (r *ItemRepo) WriteStock(ctx context.Context, businessID string, itemID id.ID, quantity types.Quantity, expectedVersion int) error {
	sql, args, err := postgres.Builder().
		Update(itemTable).
		Set("stock_quantity", quantity).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": itemID, "business_id": businessID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.table.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("write stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("item", itemID.String())
	}
	return nil
}
