package settlement

import (
	"context"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain"
	"ledgerbook/pkg/logger"
)

// Ledger answers settlement questions by folding the stored transaction set.
// Nothing it returns is cached.
type Ledger struct {
	repo Repository
}

// NewLedger creates a ledger over repo.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// NetSettled recomputes how much of a document has been settled.
func (l *Ledger) NetSettled(ctx context.Context, businessID string, documentID id.ID, settling Type) (types.Money, error) {
	txns, err := l.repo.ListByDocument(ctx, businessID, documentID)
	if err != nil {
		return types.Zero(), err
	}
	return FoldNetSettled(settling, txns), nil
}

// Balance folds every transaction of one mode.
func (l *Ledger) Balance(ctx context.Context, businessID, mode string) (types.Money, error) {
	mode = NormalizeMode(mode)
	txns, err := l.repo.ListByMode(ctx, businessID, &mode)
	if err != nil {
		return types.Zero(), err
	}
	return FoldModeBalance(mode, txns), nil
}

// Balances folds every transaction of the business into per-mode balances.
func (l *Ledger) Balances(ctx context.Context, businessID string) ([]ModeBalance, error) {
	txns, err := l.repo.ListByMode(ctx, businessID, nil)
	if err != nil {
		return nil, err
	}
	return FoldModeBalances(txns), nil
}

// Record stores a general-ledger transaction that is not tied to a document.
// Document-linked settlements go through the document service so the
// document's status is re-derived in the same operation.
func (l *Ledger) Record(ctx context.Context, txn *Transaction) error {
	if txn.DocumentID != nil {
		return apperror.NewValidation("document-linked transactions must be recorded as document payments").
			WithDetail("field", "documentId")
	}
	if err := txn.Validate(ctx); err != nil {
		return err
	}
	if err := l.repo.Insert(ctx, txn); err != nil {
		return err
	}
	logger.Info(ctx, "transaction recorded",
		"id", txn.ID, "type", txn.Type, "mode", txn.Mode, "amount", txn.Amount.String())
	return nil
}

// Insert stores a transaction without the unlinked check. Used by the
// document orchestrator.
func (l *Ledger) Insert(ctx context.Context, txn *Transaction) error {
	if err := txn.Validate(ctx); err != nil {
		return err
	}
	return l.repo.Insert(ctx, txn)
}

// Get retrieves a transaction.
func (l *Ledger) Get(ctx context.Context, businessID string, txnID id.ID) (*Transaction, error) {
	return l.repo.GetByID(ctx, businessID, txnID)
}

// Delete removes a general-ledger transaction.
func (l *Ledger) Delete(ctx context.Context, businessID string, txnID id.ID) error {
	txn, err := l.repo.GetByID(ctx, businessID, txnID)
	if err != nil {
		return err
	}
	if txn.DocumentID != nil {
		return apperror.NewValidation("document-linked transactions must be removed through the document").
			WithDetail("document_id", txn.DocumentID.String())
	}
	return l.repo.Delete(ctx, businessID, txnID)
}

// Remove deletes any transaction. Used by the document orchestrator.
func (l *Ledger) Remove(ctx context.Context, businessID string, txnID id.ID) error {
	return l.repo.Delete(ctx, businessID, txnID)
}

// RemoveForDocument deletes every transaction linked to a document.
func (l *Ledger) RemoveForDocument(ctx context.Context, businessID string, documentID id.ID) (int64, error) {
	return l.repo.DeleteByDocument(ctx, businessID, documentID)
}

// ForDocument lists a document's transactions.
func (l *Ledger) ForDocument(ctx context.Context, businessID string, documentID id.ID) ([]*Transaction, error) {
	return l.repo.ListByDocument(ctx, businessID, documentID)
}

// List retrieves transactions.
func (l *Ledger) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error) {
	if filter.BusinessID == "" {
		return domain.ListResult[*Transaction]{}, apperror.NewValidation("business is required")
	}
	return l.repo.List(ctx, filter)
}
