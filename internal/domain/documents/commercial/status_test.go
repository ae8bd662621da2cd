package commercial

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"ledgerbook/internal/core/types"
)

func TestResolveStatus(t *testing.T) {
	tests := []struct {
		name    string
		total   string
		settled string
		status  Status
		balance string
	}{
		{"nothing settled", "110", "0", StatusUnpaid, "110"},
		{"partially settled", "110", "50", StatusPartial, "60"},
		{"exactly settled", "110", "110", StatusPaid, "0"},
		{"overpaid", "110", "150", StatusPaid, "0"},
		{"net refund", "110", "-20", StatusUnpaid, "130"},
		{"zero total", "0", "0", StatusPaid, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, balance := ResolveStatus(types.MustMoney(tt.total), types.MustMoney(tt.settled))
			assert.Equal(t, tt.status, status)
			assertMoney(t, tt.balance, balance, "balance")
		})
	}
}

func TestResolveStatus_Monotonic(t *testing.T) {
	total := types.MustMoney("100")
	prevStatus, prevBalance := ResolveStatus(total, decimal.NewFromInt(-20))
	prevSettled := decimal.NewFromInt(-20)

	for settled := int64(-10); settled <= 130; settled += 5 {
		net := decimal.NewFromInt(settled)
		status, balance := ResolveStatus(total, net)

		assert.GreaterOrEqual(t, status.Rank(), prevStatus.Rank(), "settled %d", settled)
		if prevSettled.LessThan(total) {
			assert.True(t, balance.LessThan(prevBalance), "balance must drop at settled %d", settled)
		} else {
			assert.True(t, balance.IsZero())
		}
		prevStatus, prevBalance, prevSettled = status, balance, net
	}
}

func TestKind(t *testing.T) {
	k, err := ParseKind(" sale ")
	assert.NoError(t, err)
	assert.Equal(t, KindSale, k)

	_, err = ParseKind("refund")
	assert.Error(t, err)

	assert.Equal(t, -1, int(KindSale.Direction()))
	assert.Equal(t, 1, int(KindPurchase.Direction()))
	assert.Equal(t, 1, int(KindSale.Direction().Reverse()))
	assert.Equal(t, "RECEIPT", string(KindSale.SettlingType()))
	assert.Equal(t, "PAYMENT", string(KindPurchase.SettlingType()))
}
