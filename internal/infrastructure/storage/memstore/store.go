// Package memstore keeps every ledger entity in process memory.
// It backs the "memory" storage driver and the domain tests.
//
// Each call touches one entity kind only, mirroring the postgres store:
// there is no cross-entity transaction here either.
package memstore

import (
	"context"
	"sync"
	"time"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain/catalogs/item"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/domain/registers/settlement"
)

// Store holds all tables. Use the accessor methods to get per-entity repos.
type Store struct {
	mu sync.RWMutex

	documents    map[id.ID]*commercial.Document
	lines        map[id.ID][]commercial.LineItem // document id -> lines
	transactions map[id.ID]*settlement.Transaction
	items        map[id.ID]*item.Item
	intents      map[id.ID]*commercial.OperationLog
	sequences    map[string]int64
	idempotency  map[idempotencyKey]*IdempotencyRecord

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		documents:    make(map[id.ID]*commercial.Document),
		lines:        make(map[id.ID][]commercial.LineItem),
		transactions: make(map[id.ID]*settlement.Transaction),
		items:        make(map[id.ID]*item.Item),
		intents:      make(map[id.ID]*commercial.OperationLog),
		sequences:    make(map[string]int64),
		idempotency:  make(map[idempotencyKey]*IdempotencyRecord),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Documents returns the document header and line item repository.
func (s *Store) Documents() *DocumentRepo { return &DocumentRepo{s: s} }

// Transactions returns the settlement transaction repository.
func (s *Store) Transactions() *TransactionRepo { return &TransactionRepo{s: s} }

// Items returns the item catalog repository.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s: s} }

// Intents returns the operation journal.
func (s *Store) Intents() *IntentRepo { return &IntentRepo{s: s} }

// Sequences returns the document numberer.
func (s *Store) Sequences() *SequenceRepo { return &SequenceRepo{s: s} }

// Idempotency returns the idempotency key store.
func (s *Store) Idempotency() *IdempotencyRepo { return &IdempotencyRepo{s: s} }

// Ping always succeeds. It lets the store stand in for a database health check.
func (s *Store) Ping(context.Context) error { return nil }
