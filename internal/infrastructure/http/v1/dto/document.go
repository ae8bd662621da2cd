package dto

import (
	"time"

	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/documents/commercial"
)

// LineRequest is one line item of a document request.
type LineRequest struct {
	ItemID        *string        `json:"itemId,omitempty"`
	Description   string         `json:"description,omitempty"`
	Quantity      types.Quantity `json:"quantity"`
	Rate          types.Money    `json:"rate"`
	TaxPercent    types.Percent  `json:"taxPercent"`
	PurchasePrice types.Money    `json:"purchasePrice"`
}

// DiscountRequest is a document-level discount.
type DiscountRequest struct {
	Value types.Money `json:"value"`
	Type  string      `json:"type,omitempty"`
}

// DocumentRequest is the header and lines shared by create, update and preview.
type DocumentRequest struct {
	Kind              string          `json:"kind" binding:"required"`
	PartyID           *string         `json:"partyId,omitempty"`
	DocumentNumber    string          `json:"documentNumber,omitempty"`
	Date              time.Time       `json:"date" binding:"required"`
	DueDate           *time.Time      `json:"dueDate,omitempty"`
	Discount          DiscountRequest `json:"discount"`
	InvoiceTaxPercent types.Percent   `json:"invoiceTaxPercent"`
	Notes             string          `json:"notes,omitempty"`
	Attachments       []string        `json:"attachments,omitempty"`
	LineItems         []LineRequest   `json:"lineItems" binding:"required,min=1"`
}

// SettlementRequest is money recorded together with a new document.
type SettlementRequest struct {
	Amount      types.Money `json:"amount"`
	Mode        string      `json:"mode,omitempty"`
	Date        *time.Time  `json:"date,omitempty"`
	Description string      `json:"description,omitempty"`
}

// CreateDocumentRequest creates a sale invoice or purchase bill.
type CreateDocumentRequest struct {
	DocumentRequest
	Settlement *SettlementRequest `json:"settlement,omitempty"`
}

// UpdateDocumentRequest replaces a document's header and lines.
type UpdateDocumentRequest struct {
	DocumentRequest
	// Version, when set, must match the stored document.
	Version int `json:"version,omitempty"`
}

// PaymentRequest records money against an existing document.
type PaymentRequest struct {
	Amount      types.Money `json:"amount"`
	Mode        string      `json:"mode,omitempty"`
	Date        *time.Time  `json:"date,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ToHeader converts the request into the document header.
func (r *DocumentRequest) ToHeader() (commercial.Header, error) {
	kind, err := commercial.ParseKind(r.Kind)
	if err != nil {
		return commercial.Header{}, err
	}
	partyID, err := ParseOptionalID("partyId", r.PartyID)
	if err != nil {
		return commercial.Header{}, err
	}
	return commercial.Header{
		PartyID: partyID,
		Number:  r.DocumentNumber,
		Kind:    kind,
		Date:    r.Date,
		DueDate: r.DueDate,
		Discount: commercial.Discount{
			Value: r.Discount.Value,
			Type:  commercial.DiscountType(r.Discount.Type),
		},
		InvoiceTaxPercent: r.InvoiceTaxPercent,
		Notes:             r.Notes,
		Attachments:       r.Attachments,
	}, nil
}

// ToLines converts the line requests.
func (r *DocumentRequest) ToLines() ([]commercial.LineInput, error) {
	lines := make([]commercial.LineInput, len(r.LineItems))
	for i, l := range r.LineItems {
		itemID, err := ParseOptionalID("lineItems.itemId", l.ItemID)
		if err != nil {
			return nil, err
		}
		lines[i] = commercial.LineInput{
			ItemID:        itemID,
			Description:   l.Description,
			Quantity:      l.Quantity,
			Rate:          l.Rate,
			TaxPercent:    l.TaxPercent,
			PurchasePrice: l.PurchasePrice,
		}
	}
	return lines, nil
}

// ToInput converts a create request.
func (r *CreateDocumentRequest) ToInput() (commercial.CreateInput, error) {
	header, err := r.ToHeader()
	if err != nil {
		return commercial.CreateInput{}, err
	}
	lines, err := r.ToLines()
	if err != nil {
		return commercial.CreateInput{}, err
	}
	in := commercial.CreateInput{Header: header, Lines: lines}
	if s := r.Settlement; s != nil && s.Amount.IsPositive() {
		in.Settlement = &commercial.SettlementProposal{
			Amount:      s.Amount,
			Mode:        s.Mode,
			Date:        derefTime(s.Date),
			Description: s.Description,
		}
	}
	return in, nil
}

// ToInput converts an update request.
func (r *UpdateDocumentRequest) ToInput() (commercial.UpdateInput, error) {
	header, err := r.ToHeader()
	if err != nil {
		return commercial.UpdateInput{}, err
	}
	lines, err := r.ToLines()
	if err != nil {
		return commercial.UpdateInput{}, err
	}
	return commercial.UpdateInput{Header: header, Lines: lines, ExpectedVersion: r.Version}, nil
}

// ToInput converts a payment request.
func (r *PaymentRequest) ToInput() commercial.PaymentInput {
	return commercial.PaymentInput{
		Amount:      r.Amount,
		Mode:        r.Mode,
		Date:        derefTime(r.Date),
		Description: r.Description,
	}
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
