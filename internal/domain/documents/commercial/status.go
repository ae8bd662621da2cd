package commercial

import (
	"ledgerbook/internal/core/types"
)

// ResolveStatus derives payment status and outstanding balance from the
// document total and the amount settled against it.
//
// A document whose settled amount reaches its total is PAID, including a
// zero-total document with nothing settled.
func ResolveStatus(total, netSettled types.Money) (Status, types.Money) {
	balance := types.NonNegative(total.Sub(netSettled))

	switch {
	case netSettled.GreaterThanOrEqual(total):
		return StatusPaid, balance
	case netSettled.IsPositive():
		return StatusPartial, balance
	default:
		return StatusUnpaid, balance
	}
}
