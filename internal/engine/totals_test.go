package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/coachbook/internal/domain"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name    string
		items   []domain.InvoiceItem
		taxRate float64
		want    Totals
	}{
		{
			name:    "no items",
			taxRate: 19,
			want:    Totals{},
		},
		{
			name:    "single session",
			items:   []domain.InvoiceItem{{Quantity: 1, Price: 120}},
			taxRate: 19,
			want:    Totals{Subtotal: 120, TaxAmount: 22.8, Total: 142.8},
		},
		{
			name: "several lines",
			items: []domain.InvoiceItem{
				{Quantity: 2, Price: 120},
				{Quantity: 1.5, Price: 80},
			},
			taxRate: 19,
			want:    Totals{Subtotal: 360, TaxAmount: 68.4, Total: 428.4},
		},
		{
			name:    "zero tax",
			items:   []domain.InvoiceItem{{Quantity: 3, Price: 99.99}},
			taxRate: 0,
			want:    Totals{Subtotal: 299.97, TaxAmount: 0, Total: 299.97},
		},
		{
			name:    "tax rounded to cents",
			items:   []domain.InvoiceItem{{Quantity: 1, Price: 33.33}},
			taxRate: 7,
			want:    Totals{Subtotal: 33.33, TaxAmount: 2.33, Total: 35.66},
		},
		{
			name:    "no float drift",
			items:   []domain.InvoiceItem{{Quantity: 1, Price: 0.1}, {Quantity: 1, Price: 0.2}},
			taxRate: 0,
			want:    Totals{Subtotal: 0.3, TaxAmount: 0, Total: 0.3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTotals(tt.items, tt.taxRate))
		})
	}
}

func TestComputeTotals_OrderIndependent(t *testing.T) {
	a := []domain.InvoiceItem{{Quantity: 1, Price: 120}, {Quantity: 2, Price: 45.5}, {Quantity: 1, Price: 10}}
	b := []domain.InvoiceItem{a[2], a[0], a[1]}

	assert.Equal(t, ComputeTotals(a, 19), ComputeTotals(b, 19))
}

func TestWithTotals_IgnoresStoredTotals(t *testing.T) {
	inv := domain.Invoice{
		Items:     []domain.InvoiceItem{{Quantity: 1, Price: 120}},
		TaxRate:   19,
		Subtotal:  1,
		TaxAmount: 2,
		Total:     3,
	}

	got := WithTotals(inv)
	assert.Equal(t, 120.0, got.Subtotal)
	assert.Equal(t, 22.8, got.TaxAmount)
	assert.Equal(t, 142.8, got.Total)

	assert.Equal(t, got, WithTotals(got))
}
