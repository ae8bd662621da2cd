package memstore

import (
	"context"
	"sort"
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/registers/stock"
)

// ItemRepo implements item.Repository and stock.ItemStore.
type ItemRepo struct {
	s *Store
}

var (
	_ item.Repository = (*ItemRepo)(nil)
	_ stock.ItemStore = (*ItemRepo)(nil)
)

func copyItem(it *item.Item) *item.Item {
	c := *it
	return &c
}

func (r *ItemRepo) get(businessID string, itemID id.ID) (*item.Item, error) {
	it, ok := r.s.items[itemID]
	if !ok || it.BusinessID != businessID {
		return nil, apperror.NewNotFound("item", itemID.String())
	}
	return it, nil
}

// Create stores a new item.
func (r *ItemRepo) Create(_ context.Context, it *item.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[it.ID]; ok {
		return apperror.NewConflict("item already exists").WithDetail("id", it.ID.String())
	}
	r.s.items[it.ID] = copyItem(it)
	return nil
}

// GetByID retrieves an item.
func (r *ItemRepo) GetByID(_ context.Context, businessID string, itemID id.ID) (*item.Item, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	it, err := r.get(businessID, itemID)
	if err != nil {
		return nil, err
	}
	return copyItem(it), nil
}

// Update stores catalog fields if the version matches. Stock is preserved.
func (r *ItemRepo) Update(_ context.Context, it *item.Item) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, err := r.get(it.BusinessID, it.ID)
	if err != nil {
		return err
	}
	if stored.Version != it.Version {
		return apperror.NewConcurrentModification("item", it.ID.String())
	}

	it.Version++
	it.UpdatedAt = r.s.now()
	it.StockQuantity = stored.StockQuantity
	c := copyItem(it)
	c.CreatedAt = stored.CreatedAt
	r.s.items[it.ID] = c
	return nil
}

// Delete removes an item.
func (r *ItemRepo) Delete(_ context.Context, businessID string, itemID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.get(businessID, itemID); err != nil {
		return err
	}
	delete(r.s.items, itemID)
	return nil
}

// List filters items by name or SKU, ordered by name.
func (r *ItemRepo) List(_ context.Context, f item.ListFilter) (domain.ListResult[*item.Item], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	out := make([]*item.Item, 0)
	for _, it := range r.s.items {
		if it.BusinessID != f.BusinessID {
			continue
		}
		if f.LowStockOnly && !it.IsLowStock() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(it.Name), search) &&
			!strings.Contains(strings.ToLower(it.SKU), search) {
			continue
		}
		out = append(out, copyItem(it))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return domain.Page(out, f.ListFilter), nil
}

// ReadStock implements stock.ItemStore.
func (r *ItemRepo) ReadStock(_ context.Context, businessID string, itemID id.ID) (stock.Snapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	it, err := r.get(businessID, itemID)
	if err != nil {
		return stock.Snapshot{}, err
	}
	return stock.Snapshot{
		ItemID:   it.ID,
		Quantity: it.StockQuantity,
		MinStock: it.MinStock,
		Version:  it.Version,
	}, nil
}

// WriteStock implements stock.ItemStore.
func (r *ItemRepo) WriteStock(_ context.Context, businessID string, itemID id.ID, quantity types.Quantity, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	it, err := r.get(businessID, itemID)
	if err != nil {
		return err
	}
	if it.Version != expectedVersion {
		return apperror.NewConcurrentModification("item", itemID.String())
	}
	it.StockQuantity = quantity
	it.Version++
	it.UpdatedAt = r.s.now()
	return nil
}
