package memstore

import (
	"context"
	"sort"
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/registers/settlement"
)

// TransactionRepo implements settlement.Repository.
type TransactionRepo struct {
	s *Store
}

var _ settlement.Repository = (*TransactionRepo)(nil)

func copyTransaction(t *settlement.Transaction) *settlement.Transaction {
	c := *t
	return &c
}

// Insert stores a transaction.
func (r *TransactionRepo) Insert(_ context.Context, txn *settlement.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.transactions[txn.ID]; ok {
		return apperror.NewConflict("transaction already exists").WithDetail("id", txn.ID.String())
	}
	r.s.transactions[txn.ID] = copyTransaction(txn)
	return nil
}

// GetByID retrieves a transaction.
func (r *TransactionRepo) GetByID(_ context.Context, businessID string, txnID id.ID) (*settlement.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.transactions[txnID]
	if !ok || t.BusinessID != businessID {
		return nil, apperror.NewNotFound("transaction", txnID.String())
	}
	return copyTransaction(t), nil
}

// Delete removes a transaction.
func (r *TransactionRepo) Delete(_ context.Context, businessID string, txnID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.transactions[txnID]
	if !ok || t.BusinessID != businessID {
		return apperror.NewNotFound("transaction", txnID.String())
	}
	delete(r.s.transactions, txnID)
	return nil
}

// DeleteByDocument removes every transaction linked to a document.
func (r *TransactionRepo) DeleteByDocument(_ context.Context, businessID string, documentID id.ID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for txnID, t := range r.s.transactions {
		if t.BusinessID == businessID && t.DocumentID != nil && *t.DocumentID == documentID {
			delete(r.s.transactions, txnID)
			n++
		}
	}
	return n, nil
}

// ListByDocument returns a document's transactions in date order.
func (r *TransactionRepo) ListByDocument(_ context.Context, businessID string, documentID id.ID) ([]*settlement.Transaction, error) {
	return r.collect(func(t *settlement.Transaction) bool {
		return t.BusinessID == businessID && t.DocumentID != nil && *t.DocumentID == documentID
	}), nil
}

// ListByMode returns a business's transactions, optionally for one mode.
func (r *TransactionRepo) ListByMode(_ context.Context, businessID string, mode *string) ([]*settlement.Transaction, error) {
	return r.collect(func(t *settlement.Transaction) bool {
		return t.BusinessID == businessID && (mode == nil || t.Mode == *mode)
	}), nil
}

// List filters transactions, newest first.
func (r *TransactionRepo) List(_ context.Context, f settlement.ListFilter) (domain.ListResult[*settlement.Transaction], error) {
	search := strings.ToLower(f.Search)
	out := r.collect(func(t *settlement.Transaction) bool {
		switch {
		case t.BusinessID != f.BusinessID:
			return false
		case f.DocumentID != nil && (t.DocumentID == nil || *t.DocumentID != *f.DocumentID):
			return false
		case f.Unlinked && t.DocumentID != nil:
			return false
		case f.PartyID != nil && (t.PartyID == nil || *t.PartyID != *f.PartyID):
			return false
		case f.Mode != nil && t.Mode != settlement.NormalizeMode(*f.Mode):
			return false
		case f.Type != nil && t.Type != *f.Type:
			return false
		case f.DateFrom != nil && t.Date.Before(*f.DateFrom):
			return false
		case f.DateTo != nil && t.Date.After(*f.DateTo):
			return false
		case search != "" && !strings.Contains(strings.ToLower(t.Description), search):
			return false
		}
		return true
	})

	// collect sorts oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return domain.Page(out, f.ListFilter), nil
}

func (r *TransactionRepo) collect(keep func(*settlement.Transaction) bool) []*settlement.Transaction {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*settlement.Transaction, 0)
	for _, t := range r.s.transactions {
		if keep(t) {
			out = append(out, copyTransaction(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
