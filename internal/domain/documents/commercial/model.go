// Package commercial provides sale invoices and purchase bills together with
// the orchestration that keeps their totals, stock effects and settlement
// status consistent.
package commercial

import (
	"context"
	"strings"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/entity"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/registers/settlement"
	"ledgerbook/internal/domain/registers/stock"
)

// Kind distinguishes invoices from bills. Every sign decision goes through it.
type Kind string

const (
	KindSale     Kind = "SALE"
	KindPurchase Kind = "PURCHASE"
)

// ParseKind validates a document kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindSale, KindPurchase:
		return k, nil
	}
	return "", apperror.NewValidation("invalid document kind").
		WithDetail("field", "kind").
		WithDetail("value", s)
}

// Direction is the forward stock effect: sales remove stock, purchases add it.
func (k Kind) Direction() stock.Direction {
	if k == KindSale {
		return stock.Outbound
	}
	return stock.Inbound
}

// SettlingType is the transaction type that pays this kind of document down.
func (k Kind) SettlingType() settlement.Type {
	if k == KindSale {
		return settlement.Receipt
	}
	return settlement.Payment
}

// NumberPrefix is used when a document number is generated.
func (k Kind) NumberPrefix() string {
	if k == KindSale {
		return "INV"
	}
	return "BILL"
}

// Status is the payment status of a document. It is always derived.
type Status string

const (
	StatusUnpaid  Status = "UNPAID"
	StatusPartial Status = "PARTIAL"
	StatusPaid    Status = "PAID"
)

// ParseStatus validates a payment status filter value.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusUnpaid, StatusPartial, StatusPaid:
		return st, nil
	}
	return "", apperror.NewValidation("invalid payment status").
		WithDetail("field", "status").
		WithDetail("value", s)
}

// Rank orders statuses: UNPAID < PARTIAL < PAID.
func (s Status) Rank() int {
	switch s {
	case StatusPartial:
		return 1
	case StatusPaid:
		return 2
	default:
		return 0
	}
}

// DiscountType selects how Discount.Value is read.
type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountFixed   DiscountType = "fixed"
)

// Discount is a document-level discount.
type Discount struct {
	Value types.Money  `json:"value"`
	Type  DiscountType `json:"type"`
}

// LineItem is one priced row owned by a document.
type LineItem struct {
	ID         id.ID  `db:"id" json:"id"`
	DocumentID id.ID  `db:"document_id" json:"documentId"`
	BusinessID string `db:"business_id" json:"-"`
	LineNo     int    `db:"line_no" json:"lineNo"`

	// ItemID is nil for free-text lines.
	ItemID      *id.ID `db:"item_id" json:"itemId,omitempty"`
	Description string `db:"description" json:"description"`

	// Quantity is stored positive; the document kind gives its direction.
	Quantity      types.Quantity `db:"quantity" json:"quantity"`
	Rate          types.Money    `db:"rate" json:"rate"`
	TaxPercent    types.Percent  `db:"tax_percent" json:"taxPercent"`
	PurchasePrice types.Money    `db:"purchase_price" json:"purchasePrice"`
	Amount        types.Money    `db:"amount" json:"amount"`
}

// Document is a sale invoice or a purchase bill header.
type Document struct {
	entity.BaseEntity

	// PartyID is nil for walk-in sales.
	PartyID *id.ID     `db:"party_id" json:"partyId,omitempty"`
	Number  string     `db:"document_number" json:"documentNumber"`
	Kind    Kind       `db:"kind" json:"kind"`
	Date    time.Time  `db:"date" json:"date"`
	DueDate *time.Time `db:"due_date" json:"dueDate,omitempty"`

	DiscountValue     types.Money   `db:"discount_value" json:"discountValue"`
	DiscountType      DiscountType  `db:"discount_type" json:"discountType"`
	InvoiceTaxPercent types.Percent `db:"invoice_tax_percent" json:"invoiceTaxPercent"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	TaxAmount      types.Money `db:"tax_amount" json:"taxAmount"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`
	BalanceAmount  types.Money `db:"balance_amount" json:"balanceAmount"`
	Status         Status      `db:"status" json:"status"`

	Notes       string   `db:"notes" json:"notes,omitempty"`
	Attachments []string `db:"attachments" json:"attachments,omitempty"`

	LineItems []LineItem `db:"-" json:"lineItems"`
}

// Discount returns the header's discount settings.
func (d *Document) Discount() Discount {
	return Discount{Value: d.DiscountValue, Type: d.DiscountType}
}

// StockLines projects line items onto their stock effect.
func (d *Document) StockLines() []stock.Line {
	return stockLines(d.LineItems)
}

func stockLines(lines []LineItem) []stock.Line {
	out := make([]stock.Line, len(lines))
	for i, l := range lines {
		out[i] = stock.Line{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	return out
}

// applyTotals copies calculated totals and status onto the header.
func (d *Document) applyTotals(t Totals, status Status, balance types.Money) {
	d.Subtotal = t.Subtotal
	d.TaxAmount = t.TaxAmount
	d.DiscountAmount = t.DiscountAmount
	d.TotalAmount = t.TotalAmount
	d.Status = status
	d.BalanceAmount = balance
}

// Header is the caller-editable part of a document.
type Header struct {
	PartyID           *id.ID
	Number            string
	Kind              Kind
	Date              time.Time
	DueDate           *time.Time
	Discount          Discount
	InvoiceTaxPercent types.Percent
	Notes             string
	Attachments       []string
}

// LineInput is a caller-supplied line item.
type LineInput struct {
	ItemID        *id.ID
	Description   string
	Quantity      types.Quantity
	Rate          types.Money
	TaxPercent    types.Percent
	PurchasePrice types.Money
}

// SettlementProposal is the amount a caller wants recorded alongside a new
// document. It becomes one transaction; it is never taken as the settled total.
type SettlementProposal struct {
	Amount      types.Money
	Mode        string
	Date        time.Time
	Description string
}

// Validate checks the header before anything is written.
func (h *Header) Validate(ctx context.Context) error {
	if _, err := ParseKind(string(h.Kind)); err != nil {
		return err
	}
	if h.Kind == KindPurchase && h.PartyID == nil {
		return apperror.NewValidation("supplier is required for purchases").WithDetail("field", "partyId")
	}
	if h.Date.IsZero() {
		return apperror.NewValidation("date is required").WithDetail("field", "date")
	}
	if h.DueDate != nil && h.DueDate.Before(h.Date) {
		return apperror.NewValidation("due date is before document date").WithDetail("field", "dueDate")
	}
	switch h.Discount.Type {
	case DiscountPercent, DiscountFixed:
	case "":
		h.Discount.Type = DiscountFixed
	default:
		return apperror.NewValidation("invalid discount type").
			WithDetail("field", "discount.type").
			WithDetail("value", string(h.Discount.Type))
	}
	return nil
}

// ValidateLines checks caller-supplied lines.
func ValidateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one line item is required").WithDetail("field", "lineItems")
	}
	for i, l := range lines {
		if !l.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lineItems.quantity").
				WithDetail("line", i+1)
		}
		if l.Rate.IsNegative() {
			return apperror.NewValidation("rate cannot be negative").
				WithDetail("field", "lineItems.rate").
				WithDetail("line", i+1)
		}
		if l.ItemID == nil && strings.TrimSpace(l.Description) == "" {
			return apperror.NewValidation("free-text lines need a description").
				WithDetail("field", "lineItems.description").
				WithDetail("line", i+1)
		}
	}
	return nil
}

// buildLines materializes line inputs for documentID.
func buildLines(businessID string, documentID id.ID, in []LineInput) []LineItem {
	lines := make([]LineItem, len(in))
	for i, l := range in {
		lines[i] = LineItem{
			ID:            id.New(),
			DocumentID:    documentID,
			BusinessID:    businessID,
			LineNo:        i + 1,
			ItemID:        l.ItemID,
			Description:   strings.TrimSpace(l.Description),
			Quantity:      l.Quantity,
			Rate:          l.Rate,
			TaxPercent:    l.TaxPercent,
			PurchasePrice: l.PurchasePrice,
			Amount:        l.Quantity.Decimal().Mul(l.Rate),
		}
	}
	return lines
}

// newDocument builds an unsaved document from a header.
func newDocument(businessID string, h Header) *Document {
	doc := &Document{BaseEntity: entity.NewBaseEntity(businessID)}
	doc.applyHeader(h)
	return doc
}

func (d *Document) applyHeader(h Header) {
	d.PartyID = h.PartyID
	if h.Number != "" {
		d.Number = h.Number
	}
	d.Kind = h.Kind
	d.Date = h.Date
	d.DueDate = h.DueDate
	d.DiscountValue = h.Discount.Value
	d.DiscountType = h.Discount.Type
	d.InvoiceTaxPercent = h.InvoiceTaxPercent
	d.Notes = h.Notes
	d.Attachments = h.Attachments
}
