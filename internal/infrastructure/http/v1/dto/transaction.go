package dto

import (
	"time"

	"ledgerbook/internal/core/types"
	"ledgerbook/internal/domain/registers/settlement"
)

// CreateTransactionRequest records a general-ledger receipt or payment.
type CreateTransactionRequest struct {
	Type        string      `json:"type" binding:"required"`
	Amount      types.Money `json:"amount"`
	Mode        string      `json:"mode,omitempty"`
	Date        *time.Time  `json:"date,omitempty"`
	PartyID     *string     `json:"partyId,omitempty"`
	Description string      `json:"description,omitempty"`
}

// ToEntity converts the request for businessID.
func (r *CreateTransactionRequest) ToEntity(businessID string) (*settlement.Transaction, error) {
	typ, err := settlement.ParseType(r.Type)
	if err != nil {
		return nil, err
	}
	partyID, err := ParseOptionalID("partyId", r.PartyID)
	if err != nil {
		return nil, err
	}
	txn := settlement.NewTransaction(businessID, typ, r.Amount, r.Mode, derefTime(r.Date))
	txn.PartyID = partyID
	txn.Description = r.Description
	return txn, nil
}

// BalancesResponse lists per-mode balances.
type BalancesResponse struct {
	Modes []settlement.ModeBalance `json:"modes"`
	Total types.Money              `json:"total"`
}

// NewBalancesResponse sums the mode balances.
func NewBalancesResponse(modes []settlement.ModeBalance) BalancesResponse {
	total := types.Zero()
	for _, m := range modes {
		total = total.Add(m.Balance)
	}
	if modes == nil {
		modes = []settlement.ModeBalance{}
	}
	return BalancesResponse{Modes: modes, Total: total}
}
