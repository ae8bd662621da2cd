// Package stock applies signed quantity deltas to inventory items.
package stock

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
	"ledgerbook/pkg/logger"
)

var tracer = otel.Tracer("ledgerbook/stock")

// Direction is the sign applied to line quantities.
type Direction int

const (
	// Outbound removes stock (sale forward effect).
	Outbound Direction = -1
	// Inbound adds stock (purchase forward effect).
	Inbound Direction = 1
)

// Reverse returns the direction that undoes d.
func (d Direction) Reverse() Direction { return -d }

func (d Direction) String() string {
	if d < 0 {
		return "outbound"
	}
	return "inbound"
}

// Line is the stock-relevant part of a document line.
// Lines without ItemID are free-text and carry no stock effect.
type Line struct {
	ItemID   *id.ID
	Quantity types.Quantity
}

// Snapshot is an item's stock state as read right before a write.
type Snapshot struct {
	ItemID   id.ID
	Quantity types.Quantity
	MinStock types.Quantity
	Version  int
}

// ItemStore is the per-item read and compare-and-swap write the reconciler needs.
type ItemStore interface {
	// ReadStock returns apperror NotFound when the item no longer exists.
	ReadStock(ctx context.Context, businessID string, itemID id.ID) (Snapshot, error)

	// WriteStock stores quantity if the item is still at expectedVersion,
	// otherwise returns apperror ConcurrentModification.
	WriteStock(ctx context.Context, businessID string, itemID id.ID, quantity types.Quantity, expectedVersion int) error
}

// Change is one applied item write.
type Change struct {
	ItemID id.ID          `json:"itemId"`
	Delta  types.Quantity `json:"delta"`
	Before types.Quantity `json:"before"`
	After  types.Quantity `json:"after"`
}

// Result reports what a reconciliation pass did.
type Result struct {
	Applied  []Change `json:"applied"`
	Skipped  []id.ID  `json:"skipped,omitempty"`
	LowStock []id.ID  `json:"lowStock,omitempty"`
}

// AppliedIDs lists the items already written.
func (r Result) AppliedIDs() []string {
	ids := make([]string, len(r.Applied))
	for i, c := range r.Applied {
		ids[i] = c.ItemID.String()
	}
	return ids
}

// Reconciler applies document line deltas to item stock.
type Reconciler struct {
	store       ItemStore
	maxAttempts int
}

// DefaultMaxAttempts bounds read-then-write retries on version conflicts.
const DefaultMaxAttempts = 3

// NewReconciler creates a reconciler over store.
func NewReconciler(store ItemStore) *Reconciler {
	return &Reconciler{store: store, maxAttempts: DefaultMaxAttempts}
}

// WithMaxAttempts overrides the conflict retry bound.
func (r *Reconciler) WithMaxAttempts(n int) *Reconciler {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

// ApplyDelta writes stock + dir × quantity for every line with an item, in order.
//
// A missing item is skipped. The first failed write stops the pass and is
// returned together with the changes already applied; those are not undone.
func (r *Reconciler) ApplyDelta(ctx context.Context, businessID string, lines []Line, dir Direction) (Result, error) {
	ctx, span := tracer.Start(ctx, "stock.apply_delta",
		trace.WithAttributes(
			attribute.String("business.id", businessID),
			attribute.Int("stock.direction", int(dir)),
			attribute.Int("stock.lines", len(lines)),
		))
	defer span.End()

	var res Result
	for i, line := range lines {
		if line.ItemID == nil || line.Quantity.IsZero() {
			continue
		}

		change, snap, err := r.applyOne(ctx, businessID, *line.ItemID, line.Quantity.Mul(int(dir)))
		if err != nil {
			if apperror.IsNotFound(err) {
				logger.Warn(ctx, "stock read missing, line skipped",
					"item_id", line.ItemID.String(),
					"line", i+1,
					"code", apperror.CodeStockReadMissing,
				)
				res.Skipped = append(res.Skipped, *line.ItemID)
				continue
			}
			span.RecordError(err)
			return res, fmt.Errorf("item %s: %w", line.ItemID, err)
		}

		res.Applied = append(res.Applied, change)
		if change.After < snap.MinStock {
			logger.Warn(ctx, "item below minimum stock",
				"item_id", change.ItemID.String(),
				"stock", change.After.String(),
				"min_stock", snap.MinStock.String(),
			)
			res.LowStock = append(res.LowStock, change.ItemID)
		}
	}

	return res, nil
}

func (r *Reconciler) applyOne(ctx context.Context, businessID string, itemID id.ID, delta types.Quantity) (Change, Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		snap, err := r.store.ReadStock(ctx, businessID, itemID)
		if err != nil {
			return Change{}, Snapshot{}, err
		}

		after := snap.Quantity + delta
		err = r.store.WriteStock(ctx, businessID, itemID, after, snap.Version)
		if err == nil {
			return Change{ItemID: itemID, Delta: delta, Before: snap.Quantity, After: after}, snap, nil
		}
		if !apperror.IsConcurrentModification(err) {
			return Change{}, Snapshot{}, err
		}

		lastErr = err
		logger.Debug(ctx, "stock write conflict, retrying", "item_id", itemID.String(), "attempt", attempt)
	}
	return Change{}, Snapshot{}, lastErr
}
