package memstore

import (
	"context"
	"sort"
	"strings"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/domain"
	"ledgerbook/internal/domain/documents/commercial"
)

// DocumentRepo implements commercial.Repository.
type DocumentRepo struct {
	s *Store
}

var _ commercial.Repository = (*DocumentRepo)(nil)

func copyDocument(d *commercial.Document) *commercial.Document {
	c := *d
	c.LineItems = nil
	if d.Attachments != nil {
		c.Attachments = append([]string(nil), d.Attachments...)
	}
	return &c
}

// InsertHeader stores a new document header.
func (r *DocumentRepo) InsertHeader(_ context.Context, doc *commercial.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.documents[doc.ID]; ok {
		return apperror.NewConflict("document already exists").WithDetail("id", doc.ID.String())
	}
	r.s.documents[doc.ID] = copyDocument(doc)
	return nil
}

// UpdateHeader stores doc if the stored version still matches.
func (r *DocumentRepo) UpdateHeader(_ context.Context, doc *commercial.Document) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.documents[doc.ID]
	if !ok || stored.BusinessID != doc.BusinessID {
		return apperror.NewNotFound("document", doc.ID.String())
	}
	if stored.Version != doc.Version {
		return apperror.NewConcurrentModification("document", doc.ID.String())
	}

	doc.Version++
	doc.UpdatedAt = r.s.now()
	c := copyDocument(doc)
	c.CreatedAt = stored.CreatedAt
	r.s.documents[doc.ID] = c
	return nil
}

// DeleteHeader removes a document header.
func (r *DocumentRepo) DeleteHeader(_ context.Context, businessID string, docID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.documents[docID]
	if !ok || stored.BusinessID != businessID {
		return apperror.NewNotFound("document", docID.String())
	}
	delete(r.s.documents, docID)
	return nil
}

// GetHeader retrieves a document header without line items.
func (r *DocumentRepo) GetHeader(_ context.Context, businessID string, docID id.ID) (*commercial.Document, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stored, ok := r.s.documents[docID]
	if !ok || stored.BusinessID != businessID {
		return nil, apperror.NewNotFound("document", docID.String())
	}
	return copyDocument(stored), nil
}

// List filters headers and orders them newest first.
func (r *DocumentRepo) List(_ context.Context, f commercial.ListFilter) (domain.ListResult[*commercial.Document], error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	out := make([]*commercial.Document, 0)
	for _, d := range r.s.documents {
		if d.BusinessID != f.BusinessID {
			continue
		}
		if f.Kind != nil && d.Kind != *f.Kind {
			continue
		}
		if f.Status != nil && d.Status != *f.Status {
			continue
		}
		if f.PartyID != nil && (d.PartyID == nil || *d.PartyID != *f.PartyID) {
			continue
		}
		if f.DateFrom != nil && d.Date.Before(*f.DateFrom) {
			continue
		}
		if f.DateTo != nil && d.Date.After(*f.DateTo) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(d.Number), search) {
			continue
		}
		out = append(out, copyDocument(d))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return domain.Page(out, f.ListFilter), nil
}

// InsertLines appends line items for a document.
func (r *DocumentRepo) InsertLines(_ context.Context, businessID string, docID id.ID, lines []commercial.LineItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, l := range lines {
		if l.DocumentID != docID || l.BusinessID != businessID {
			return apperror.NewValidation("line item does not belong to document").
				WithDetail("line", l.LineNo)
		}
	}
	r.s.lines[docID] = append(r.s.lines[docID], lines...)
	return nil
}

// DeleteLines removes every line item of a document.
func (r *DocumentRepo) DeleteLines(_ context.Context, businessID string, docID id.ID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	kept := r.s.lines[docID][:0]
	for _, l := range r.s.lines[docID] {
		if l.BusinessID != businessID {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(r.s.lines, docID)
		return nil
	}
	r.s.lines[docID] = kept
	return nil
}

// GetLines returns a document's line items ordered by line number.
func (r *DocumentRepo) GetLines(_ context.Context, businessID string, docID id.ID) ([]commercial.LineItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]commercial.LineItem, 0, len(r.s.lines[docID]))
	for _, l := range r.s.lines[docID] {
		if l.BusinessID == businessID {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out, nil
}
