package engine

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/coachbook/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Totals are the derived amounts of an invoice.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// ComputeTotals derives the amounts from items and taxRate.
//
//	subtotal  = Σ quantity × price
//	taxAmount = subtotal × taxRate / 100
//	total     = subtotal + taxAmount
//
// Arithmetic is decimal; subtotal and taxAmount are rounded half away from
// zero to cents, so total is exact in cents.
func ComputeTotals(items []domain.InvoiceItem, taxRate float64) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Price))
		subtotal = subtotal.Add(line)
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(decimal.NewFromFloat(taxRate)).Div(hundred).Round(2)
	total := subtotal.Add(tax)

	return Totals{
		Subtotal:  subtotal.InexactFloat64(),
		TaxAmount: tax.InexactFloat64(),
		Total:     total.InexactFloat64(),
	}
}

// WithTotals returns inv with its derived amounts recomputed.
func WithTotals(inv domain.Invoice) domain.Invoice {
	t := ComputeTotals(inv.Items, inv.TaxRate)
	inv.Subtotal = t.Subtotal
	inv.TaxAmount = t.TaxAmount
	inv.Total = t.Total
	return inv
}
