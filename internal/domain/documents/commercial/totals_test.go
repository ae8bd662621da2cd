package commercial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgerbook/internal/core/id"
	"ledgerbook/internal/core/types"
)

func line(qty int64, rate, tax string) LineItem {
	return LineItem{
		Quantity:   types.NewQuantityFromInt(qty),
		Rate:       types.MustMoney(rate),
		TaxPercent: types.MustMoney(tax),
	}
}

func assertMoney(t *testing.T, want string, got types.Money, field string) {
	t.Helper()
	assert.Truef(t, types.MustMoney(want).Equal(got), "%s: want %s, got %s", field, want, got.String())
}

func TestCalculateTotals(t *testing.T) {
	tests := []struct {
		name       string
		kind       Kind
		lines      []LineItem
		discount   Discount
		invoiceTax string
		subtotal   string
		itemTax    string
		discAmount string
		invTax     string
		total      string
	}{
		{
			name:       "single taxed line",
			kind:       KindSale,
			lines:      []LineItem{line(2, "50", "10")},
			discount:   Discount{Type: DiscountFixed},
			invoiceTax: "0",
			subtotal:   "100", itemTax: "10", discAmount: "0", invTax: "0", total: "110",
		},
		{
			name:       "percent discount with invoice tax on discounted base",
			kind:       KindSale,
			lines:      []LineItem{line(1, "200", "0")},
			discount:   Discount{Value: types.MustMoney("10"), Type: DiscountPercent},
			invoiceTax: "5",
			subtotal:   "200", itemTax: "0", discAmount: "20", invTax: "9", total: "189",
		},
		{
			name:       "item tax is charged on the undiscounted amount",
			kind:       KindPurchase,
			lines:      []LineItem{line(1, "100", "10")},
			discount:   Discount{Value: types.MustMoney("10"), Type: DiscountFixed},
			invoiceTax: "0",
			subtotal:   "100", itemTax: "10", discAmount: "10", invTax: "0", total: "100",
		},
		{
			name:       "item and invoice tax add up",
			kind:       KindSale,
			lines:      []LineItem{line(2, "50", "10"), line(1, "100", "0")},
			discount:   Discount{Value: types.MustMoney("20"), Type: DiscountFixed},
			invoiceTax: "10",
			subtotal:   "200", itemTax: "10", discAmount: "20", invTax: "18", total: "208",
		},
		{
			name:       "negative inputs clamp to zero",
			kind:       KindSale,
			lines:      []LineItem{line(1, "100", "-10")},
			discount:   Discount{Value: types.MustMoney("-5"), Type: DiscountFixed},
			invoiceTax: "-3",
			subtotal:   "100", itemTax: "0", discAmount: "0", invTax: "0", total: "100",
		},
		{
			name:       "discount capped at subtotal",
			kind:       KindSale,
			lines:      []LineItem{line(1, "100", "10")},
			discount:   Discount{Value: types.MustMoney("500"), Type: DiscountFixed},
			invoiceTax: "10",
			subtotal:   "100", itemTax: "10", discAmount: "100", invTax: "0", total: "10",
		},
		{
			name:       "no lines",
			kind:       KindSale,
			discount:   Discount{Type: DiscountPercent, Value: types.MustMoney("10")},
			invoiceTax: "5",
			subtotal:   "0", itemTax: "0", discAmount: "0", invTax: "0", total: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateTotals(tt.kind, tt.lines, tt.discount, types.MustMoney(tt.invoiceTax))
			assertMoney(t, tt.subtotal, got.Subtotal, "subtotal")
			assertMoney(t, tt.itemTax, got.ItemTax, "itemTax")
			assertMoney(t, tt.discAmount, got.DiscountAmount, "discountAmount")
			assertMoney(t, tt.invTax, got.InvoiceTaxAmount, "invoiceTaxAmount")
			assertMoney(t, tt.total, got.TotalAmount, "totalAmount")
			assert.True(t, got.TaxAmount.Equal(got.ItemTax.Add(got.InvoiceTaxAmount)))
		})
	}
}

func TestCalculateTotals_FractionalQuantity(t *testing.T) {
	l := LineItem{Quantity: types.NewQuantityFromFloat64(1.5), Rate: types.MustMoney("10"), TaxPercent: types.MustMoney("0")}
	got := CalculateTotals(KindSale, []LineItem{l}, Discount{Type: DiscountFixed}, types.Zero())
	assertMoney(t, "15", got.Subtotal, "subtotal")
}

func TestCalculateTotals_Margin(t *testing.T) {
	l := line(2, "50", "0")
	l.PurchasePrice = types.MustMoney("30")
	disc := Discount{Value: types.MustMoney("5"), Type: DiscountFixed}

	sale := CalculateTotals(KindSale, []LineItem{l}, disc, types.Zero())
	assertMoney(t, "60", sale.CostBasis, "costBasis")
	assertMoney(t, "35", sale.ProjectedMargin, "projectedMargin")

	purchase := CalculateTotals(KindPurchase, []LineItem{l}, disc, types.Zero())
	assertMoney(t, "60", purchase.CostBasis, "costBasis")
	assert.True(t, purchase.ProjectedMargin.IsZero())
}

func TestCalculateTotals_Deterministic(t *testing.T) {
	itemID := id.New()
	lines := []LineItem{line(3, "19.99", "7.5"), line(1, "0.01", "18")}
	lines[0].ItemID = &itemID
	disc := Discount{Value: types.MustMoney("12.5"), Type: DiscountPercent}

	first := CalculateTotals(KindSale, lines, disc, types.MustMoney("3"))
	second := CalculateTotals(KindSale, lines, disc, types.MustMoney("3"))

	assert.True(t, first.TotalAmount.Equal(second.TotalAmount))
	assert.True(t, first.TaxAmount.Equal(second.TaxAmount))
	assert.True(t, first.DiscountAmount.Equal(second.DiscountAmount))
	assert.True(t, first.Subtotal.Equal(second.Subtotal))
}
