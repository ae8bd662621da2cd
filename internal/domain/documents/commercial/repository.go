package commercial

import (
	"context"
	"time"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
)

// Repository defines the per-entity store calls the orchestrator issues.
// No call spans more than one entity.
type Repository interface {
	InsertHeader(ctx context.Context, doc *Document) error

	// UpdateHeader stores doc if it is still at doc.Version and bumps the version.
	UpdateHeader(ctx context.Context, doc *Document) error
	DeleteHeader(ctx context.Context, businessID string, docID id.ID) error
	GetHeader(ctx context.Context, businessID string, docID id.ID) (*Document, error)
	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Document], error)

	InsertLines(ctx context.Context, businessID string, docID id.ID, lines []LineItem) error
	DeleteLines(ctx context.Context, businessID string, docID id.ID) error
	GetLines(ctx context.Context, businessID string, docID id.ID) ([]LineItem, error)
}

// ListFilter for filtering documents.
type ListFilter struct {
	domain.ListFilter

	Kind    *Kind
	Status  *Status
	PartyID *id.ID
}

// Numberer hands out document numbers per business.
type Numberer interface {
	Next(ctx context.Context, businessID, prefix string, date time.Time) (string, error)
}
