// Package document_repo stores commercial documents and their line items.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/documents/commercial"
	"ledgerbook/internal/infrastructure/storage/postgres"
)

const (
	headerTable = "doc_commercial"
	linesTable  = "doc_commercial_lines"
)

var (
	headerColumns = postgres.ExtractDBColumns[commercial.Document]()
	lineColumns   = postgres.ExtractDBColumns[commercial.LineItem]()
)

// CommercialRepo implements commercial.Repository.
type CommercialRepo struct {
	headers *postgres.Table[*commercial.Document]
	lines   *postgres.Table[*commercial.LineItem]
	batch   *postgres.BatchInserter
}

var _ commercial.Repository = (*CommercialRepo)(nil)

// NewCommercialRepo creates the document repository.
func NewCommercialRepo(txm *postgres.TxManager) *CommercialRepo {
	return &CommercialRepo{
		headers: &postgres.Table[*commercial.Document]{
			TxManager:    txm,
			Name:         headerTable,
			Cols:         headerColumns,
			Entity:       "document",
			DefaultOrder: "date DESC",
		},
		lines: &postgres.Table[*commercial.LineItem]{
			TxManager: txm,
			Name:      linesTable,
			Cols:      lineColumns,
			Entity:    "line item",
		},
		batch: postgres.NewBatchInserter(txm),
	}
}

// InsertHeader implements commercial.Repository.
func (r *CommercialRepo) InsertHeader(ctx context.Context, doc *commercial.Document) error {
	return r.headers.Insert(ctx, doc)
}

// UpdateHeader implements commercial.Repository. On success doc.Version
// holds the stored version.
func (r *CommercialRepo) UpdateHeader(ctx context.Context, doc *commercial.Document) error {
	// kind is fixed at creation
	next, err := r.headers.UpdateCAS(ctx, doc, "kind")
	if err != nil {
		if apperror.IsConcurrentModification(err) {
			if _, getErr := r.GetHeader(ctx, doc.BusinessID, doc.ID); apperror.IsNotFound(getErr) {
				return getErr
			}
		}
		return err
	}
	doc.Version = next
	return nil
}

// DeleteHeader implements commercial.Repository.
func (r *CommercialRepo) DeleteHeader(ctx context.Context, businessID string, docID id.ID) error {
	n, err := r.headers.DeleteWhere(ctx, businessID, squirrel.Eq{"id": docID})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NewNotFound("document", docID.String())
	}
	return nil
}

// GetHeader implements commercial.Repository.
func (r *CommercialRepo) GetHeader(ctx context.Context, businessID string, docID id.ID) (*commercial.Document, error) {
	doc := &commercial.Document{}
	q := r.headers.Select(businessID).Where(squirrel.Eq{"id": docID})
	if err := r.headers.GetOne(ctx, doc, q, docID.String()); err != nil {
		return nil, err
	}
	return doc, nil
}

// List implements commercial.Repository.
func (r *CommercialRepo) List(ctx context.Context, filter commercial.ListFilter) (domain.ListResult[*commercial.Document], error) {
	return r.headers.Page(ctx, buildListQuery(r.headers.Select(filter.BusinessID), filter), filter.ListFilter)
}

func buildListQuery(q squirrel.SelectBuilder, filter commercial.ListFilter) squirrel.SelectBuilder {
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.PartyID != nil {
		q = q.Where(squirrel.Eq{"party_id": *filter.PartyID})
	}
	if filter.Search != "" {
		q = q.Where(squirrel.ILike{"document_number": "%" + filter.Search + "%"})
	}
	return postgres.DateRange(q, "date", filter.ListFilter)
}

// InsertLines implements commercial.Repository.
func (r *CommercialRepo) InsertLines(ctx context.Context, businessID string, docID id.ID, lines []commercial.LineItem) error {
	for _, l := range lines {
		if l.DocumentID != docID || l.BusinessID != businessID {
			return apperror.NewValidation("line item does not belong to document").
				WithDetail("line", l.LineNo)
		}
	}

	rows := postgres.StructRows(lines, lineColumns)
	if _, err := r.batch.InsertRows(ctx, linesTable, lineColumns, rows); err != nil {
		return fmt.Errorf("insert lines of %s: %w", docID, err)
	}
	return nil
}

// DeleteLines implements commercial.Repository.
func (r *CommercialRepo) DeleteLines(ctx context.Context, businessID string, docID id.ID) error {
	_, err := r.lines.DeleteWhere(ctx, businessID, squirrel.Eq{"document_id": docID})
	return err
}

// GetLines implements commercial.Repository.
func (r *CommercialRepo) GetLines(ctx context.Context, businessID string, docID id.ID) ([]commercial.LineItem, error) {
	q := r.lines.Select(businessID).
		Where(squirrel.Eq{"document_id": docID}).
		OrderBy("line_no")
	rows, err := r.lines.SelectAll(ctx, q)
	if err != nil {
		return nil, err
	}
	out := make([]commercial.LineItem, len(rows))
	for i, l := range rows {
		out[i] = *l
	}
	return out, nil
}
