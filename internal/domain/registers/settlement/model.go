// Package settlement records receipts and payments and folds them into
// per-document settled amounts and per-mode balances.
package settlement

import (
	"context"
	"strings"
	"time"

	"ledgerbook/internal/core/apperror"
	"ledgerbook/internal/core/entity"
	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
)

// Type is the direction of a settlement event.
type Type string

const (
	// Receipt is money coming in.
	Receipt Type = "RECEIPT"
	// Payment is money going out.
	Payment Type = "PAYMENT"
)

// ParseType validates a transaction type.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToUpper(strings.TrimSpace(s))); t {
	case Receipt, Payment:
		return t, nil
	}
	return "", apperror.NewValidation("invalid transaction type").
		WithDetail("field", "type").
		WithDetail("value", s)
}

// Well-known payment modes. Any other non-empty name is a custom mode.
const (
	ModeCash   = "CASH"
	ModeBank   = "BANK"
	ModeOnline = "ONLINE"
)

// NormalizeMode upper-cases and trims a mode name. Empty means CASH.
func NormalizeMode(mode string) string {
	mode = strings.ToUpper(strings.TrimSpace(mode))
	if mode == "" {
		return ModeCash
	}
	return mode
}

// Transaction is a single receipt or payment, optionally tied to a document.
type Transaction struct {
	entity.BaseEntity

	PartyID *id.ID `db:"party_id" json:"partyId,omitempty"`

	// DocumentID is nil for general-ledger entries.
	DocumentID *id.ID `db:"document_id" json:"documentId,omitempty"`

	// Amount is always positive; Type carries the sign.
	Amount      types.Money `db:"amount" json:"amount"`
	Type        Type        `db:"type" json:"type"`
	Mode        string      `db:"mode" json:"mode"`
	Date        time.Time   `db:"date" json:"date"`
	Description string      `db:"description" json:"description,omitempty"`
}

// NewTransaction creates a transaction with a normalized mode.
func NewTransaction(businessID string, typ Type, amount types.Money, mode string, date time.Time) *Transaction {
	if date.IsZero() {
		date = time.Now().UTC()
	}
	return &Transaction{
		BaseEntity: entity.NewBaseEntity(businessID),
		Amount:     amount,
		Type:       typ,
		Mode:       NormalizeMode(mode),
		Date:       date,
	}
}

// Signed returns the amount with its balance sign (receipt +, payment -).
func (t *Transaction) Signed() types.Money {
	if t.Type == Payment {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Validate implements entity.Validatable interface.
func (t *Transaction) Validate(ctx context.Context) error {
	if err := t.BaseEntity.Validate(ctx); err != nil {
		return err
	}
	if _, err := ParseType(string(t.Type)); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return apperror.NewValidation("amount must be positive").WithDetail("field", "amount")
	}
	if t.Mode == "" {
		return apperror.NewValidation("mode is required").WithDetail("field", "mode")
	}
	return nil
}
