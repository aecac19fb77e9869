package render

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
)

func consentData() engine.ConsentData {
	return engine.ConsentData{
		CompanyName: "North Star Coaching",
		CoacheeID:   "c1",
		CoacheeName: "Clara Meyer",
		Type:        domain.ConsentPrivacy,
		PolicyText:  "I agree that my personal data is processed for coaching purposes.",
		GrantedAt:   time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC),
	}
}

func invoiceData(items int) engine.InvoiceData {
	inv := domain.Invoice{
		ID:            "inv-1",
		InvoiceNumber: "CS-2025-001",
		CoacheeID:     "c1",
		Date:          time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC),
		TaxRate:       19,
		Currency:      "EUR",
		Status:        domain.InvoiceStatusSent,
		Notes:         "Thank you.",
	}
	for i := 0; i < items; i++ {
		inv.Items = append(inv.Items, domain.InvoiceItem{
			Description: fmt.Sprintf("Session %d", i+1),
			Quantity:    1,
			Price:       120,
		})
	}
	return engine.InvoiceData{
		Invoice:     engine.WithTotals(inv),
		CoacheeName: "Clara Meyer",
		Settings:    domain.DefaultSettings(),
	}
}

func TestRenderConsent(t *testing.T) {
	r := New(WithCompression(false), WithAuthor("North Star Coaching"))

	out, err := r.RenderConsent(context.Background(), consentData())
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, string(out), "Clara Meyer")
	assert.Contains(t, string(out), "Consent: privacy")
	assert.Contains(t, string(out), "personal data")
}

func TestRenderConsent_EmptyPolicyFails(t *testing.T) {
	data := consentData()
	data.PolicyText = ""

	out, err := New().RenderConsent(context.Background(), data)
	assert.Error(t, err)
	assert.Nil(t, out)
}

func TestRenderConsent_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().RenderConsent(ctx, consentData())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderInvoice(t *testing.T) {
	out, err := New(WithCompression(false)).RenderInvoice(context.Background(), invoiceData(1))
	require.NoError(t, err)

	s := string(out)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Contains(t, s, "Invoice CS-2025-001")
	assert.Contains(t, s, "Bill to: Clara Meyer")
	assert.Contains(t, s, "120.00 EUR")
	assert.Contains(t, s, "22.80 EUR")
	assert.Contains(t, s, "142.80 EUR")
	assert.NotContains(t, s, "DRAFT")
}

func TestRenderInvoice_DraftMarker(t *testing.T) {
	data := invoiceData(1)
	data.Invoice.Status = domain.InvoiceStatusDraft

	out, err := New(WithCompression(false)).RenderInvoice(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, string(out), "DRAFT")
}

func TestRenderInvoice_PaginatesLongInvoices(t *testing.T) {
	short, err := New(WithCompression(false)).RenderInvoice(context.Background(), invoiceData(1))
	require.NoError(t, err)
	long, err := New(WithCompression(false)).RenderInvoice(context.Background(), invoiceData(80))
	require.NoError(t, err)

	assert.Contains(t, string(short), "/Count 1")
	assert.NotContains(t, string(long), "/Count 1\n")
	assert.Contains(t, string(long), "Session 80")
}

func TestRenderInvoice_CompressedIsSmaller(t *testing.T) {
	plain, err := New(WithCompression(false)).RenderInvoice(context.Background(), invoiceData(30))
	require.NoError(t, err)
	packed, err := New().RenderInvoice(context.Background(), invoiceData(30))
	require.NoError(t, err)

	assert.Less(t, len(packed), len(plain))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "142.80 EUR", money(mustDecimal(t, "142.8"), "EUR"))
	assert.Equal(t, "0.00", money(mustDecimal(t, "0"), ""))
}
