package settlement

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/types"
)

// FoldNetSettled sums a document's transactions, counting the settling type
// positive and the opposite type negative.
func FoldNetSettled(settling Type, txns []*Transaction) types.Money {
	net := decimal.Zero
	for _, t := range txns {
		if t.Type == settling {
			net = net.Add(t.Amount)
		} else {
			net = net.Sub(t.Amount)
		}
	}
	return net
}

// ModeBalance is the folded balance for one payment mode.
type ModeBalance struct {
	Mode     string      `json:"mode"`
	Receipts types.Money `json:"receipts"`
	Payments types.Money `json:"payments"`
	Balance  types.Money `json:"balance"`
}

// FoldModeBalances computes receipts minus payments per mode, sorted by mode.
func FoldModeBalances(txns []*Transaction) []ModeBalance {
	byMode := make(map[string]*ModeBalance)
	for _, t := range txns {
		mb, ok := byMode[t.Mode]
		if !ok {
			mb = &ModeBalance{Mode: t.Mode, Receipts: decimal.Zero, Payments: decimal.Zero, Balance: decimal.Zero}
			byMode[t.Mode] = mb
		}
		if t.Type == Payment {
			mb.Payments = mb.Payments.Add(t.Amount)
		} else {
			mb.Receipts = mb.Receipts.Add(t.Amount)
		}
		mb.Balance = mb.Balance.Add(t.Signed())
	}

	out := make([]ModeBalance, 0, len(byMode))
	for _, mb := range byMode {
		out = append(out, *mb)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Mode < out[j].Mode })
	return out
}

// FoldModeBalance returns the balance for a single mode.
func FoldModeBalance(mode string, txns []*Transaction) types.Money {
	mode = NormalizeMode(mode)
	bal := decimal.Zero
	for _, t := range txns {
		if t.Mode == mode {
			bal = bal.Add(t.Signed())
		}
	}
	return bal
}
