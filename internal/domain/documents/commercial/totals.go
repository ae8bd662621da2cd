package commercial

import (
	"github.com/shopspring/decimal"

	"ledgerbook/internal/core/types"
)

// Totals is the output of CalculateTotals.
type Totals struct {
	Subtotal         types.Money `json:"subtotal"`
	ItemTax          types.Money `json:"itemTax"`
	DiscountAmount   types.Money `json:"discountAmount"`
	InvoiceTaxAmount types.Money `json:"invoiceTaxAmount"`
	TaxAmount        types.Money `json:"taxAmount"`
	TotalAmount      types.Money `json:"totalAmount"`

	// CostBasis and ProjectedMargin are display-only and never persisted.
	CostBasis       types.Money `json:"costBasis"`
	ProjectedMargin types.Money `json:"projectedMargin"`
}

// CalculateTotals computes document totals from its lines.
//
// Item tax is charged on the undiscounted line amount while invoice tax is
// charged on subtotal minus discount; the two are added, not compounded.
// Negative discount and tax inputs count as zero and the discount never
// exceeds the subtotal.
func CalculateTotals(kind Kind, lines []LineItem, discount Discount, invoiceTaxPercent types.Percent) Totals {
	subtotal := decimal.Zero
	itemTax := decimal.Zero
	costBasis := decimal.Zero

	for _, l := range lines {
		qty := l.Quantity.Decimal()
		amount := qty.Mul(l.Rate)
		subtotal = subtotal.Add(amount)
		itemTax = itemTax.Add(types.ApplyPercent(amount, types.NonNegative(l.TaxPercent)))
		costBasis = costBasis.Add(qty.Mul(l.PurchasePrice))
	}

	discountAmount := types.NonNegative(discount.Value)
	if discount.Type == DiscountPercent {
		discountAmount = types.ApplyPercent(subtotal, discountAmount)
	}
	if discountAmount.GreaterThan(subtotal) {
		discountAmount = subtotal
	}

	invoiceTax := types.ApplyPercent(subtotal.Sub(discountAmount), types.NonNegative(invoiceTaxPercent))
	taxAmount := itemTax.Add(invoiceTax)

	t := Totals{
		Subtotal:         subtotal,
		ItemTax:          itemTax,
		DiscountAmount:   discountAmount,
		InvoiceTaxAmount: invoiceTax,
		TaxAmount:        taxAmount,
		TotalAmount:      subtotal.Add(taxAmount).Sub(discountAmount),
		CostBasis:        costBasis,
		ProjectedMargin:  decimal.Zero,
	}
	if kind == KindSale {
		t.ProjectedMargin = subtotal.Sub(costBasis).Sub(discountAmount)
	}
	return t
}
