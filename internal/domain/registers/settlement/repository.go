package settlement

import (
	"context"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
)

// Repository defines persistence for transactions.
type Repository interface {
	Insert(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, businessID string, txnID id.ID) (*Transaction, error)
	Delete(ctx context.Context, businessID string, txnID id.ID) error

	// DeleteByDocument removes every transaction linked to a document.
	DeleteByDocument(ctx context.Context, businessID string, documentID id.ID) (int64, error)

	// ListByDocument returns every transaction linked to a document.
	ListByDocument(ctx context.Context, businessID string, documentID id.ID) ([]*Transaction, error)

	// ListByMode returns every transaction of a business, optionally for one mode.
	ListByMode(ctx context.Context, businessID string, mode *string) ([]*Transaction, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Transaction], error)
}

// ListFilter for filtering transactions.
type ListFilter struct {
	domain.ListFilter

	DocumentID *id.ID
	PartyID    *id.ID
	Mode       *string
	Type       *Type

	// Unlinked restricts to general-ledger entries
	Unlinked bool
}
