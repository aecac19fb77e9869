package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/testutil"
)

func numbered(numbers ...string) []domain.Invoice {
	out := make([]domain.Invoice, len(numbers))
	for i, n := range numbers {
		out[i] = domain.Invoice{ID: n, InvoiceNumber: n}
	}
	return out
}

func TestNextInvoiceNumber(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		prefix   string
		want     string
	}{
		{"no invoices", nil, "CS", "CS-2025-001"},
		{"increments", []string{"CS-2025-001", "CS-2025-002"}, "CS", "CS-2025-003"},
		{"unordered input", []string{"CS-2025-007", "CS-2025-003"}, "CS", "CS-2025-008"},
		{"previous year resets", []string{"CS-2024-017"}, "CS", "CS-2025-001"},
		{"latest year wins", []string{"CS-2024-099", "CS-2025-004"}, "CS", "CS-2025-005"},
		{"inherits wider width", []string{"CS-2025-0009"}, "CS", "CS-2025-0010"},
		{"inherits narrow width", []string{"CS-2025-9"}, "CS", "CS-2025-10"},
		{"grows past width", []string{"CS-2025-999"}, "CS", "CS-2025-1000"},
		{"configured prefix replaces parsed", []string{"OLD-2025-004"}, "CS", "CS-2025-005"},
		{"no dash resets", []string{"INV42"}, "CS", "CS-2025-001"},
		{"two parts resets", []string{"CS-2025"}, "CS", "CS-2025-001"},
		{"non-numeric sequence resets", []string{"CS-2025-abc"}, "CS", "CS-2025-001"},
		{"non-numeric year resets", []string{"CS-X-001"}, "CS", "CS-2025-001"},
		{"empty numbers ignored", []string{"", ""}, "CS", "CS-2025-001"},
		{"malformed greatest resets", []string{"CS-2025-002", "legacy"}, "CS", "CS-2025-001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextInvoiceNumber(numbered(tt.existing...), tt.prefix, 2025)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Numbers are compared as strings, so after 999 the greatest number stays
// "CS-2025-999" and the next number repeats "CS-2025-1000".
func TestNextInvoiceNumber_LexicographicOrderPast999(t *testing.T) {
	got := NextInvoiceNumber(numbered("CS-2025-999", "CS-2025-1000"), "CS", 2025)
	assert.Equal(t, "CS-2025-1000", got)
}

// A malformed greatest number restarts the sequence even when the restarted
// number is already taken.
func TestNextInvoiceNumber_MalformedGreatestRepeatsExisting(t *testing.T) {
	existing := numbered("CS-2025-001", "CS-2025-002", "legacy-7")

	got := NextInvoiceNumber(existing, "CS", 2025)
	assert.Equal(t, "CS-2025-001", got)
	assert.Equal(t, got, existing[0].InvoiceNumber)
}

func TestNextInvoiceNumber_Monotonic(t *testing.T) {
	var invoices []domain.Invoice
	for i := 1; i <= 12; i++ {
		n := NextInvoiceNumber(invoices, "CS", 2025)
		assert.Equal(t, formatNumber("CS", 2025, i, 3), n)
		invoices = append(invoices, domain.Invoice{InvoiceNumber: n})
	}

	assert.Equal(t, "CS-2026-001", NextInvoiceNumber(invoices, "CS", 2026))
}

func TestEngine_NextInvoiceNumber_UsesSettingsAndClock(t *testing.T) {
	snap := fixture()
	snap.Settings.InvoicePrefix = "MB"
	snap.Invoices = numbered("MB-2025-041")
	env := newTestEnv(t, snap)

	assert.Equal(t, "MB-2025-042", env.engine.NextInvoiceNumber())

	env.clock.Set(testutil.Date(2026, time.January, 2))
	assert.Equal(t, "MB-2026-001", env.engine.NextInvoiceNumber())
}

func TestEngine_NextInvoiceNumber_DefaultPrefix(t *testing.T) {
	snap := fixture()
	snap.Settings.InvoicePrefix = ""
	env := newTestEnv(t, snap)

	assert.Equal(t, "CS-2025-001", env.engine.NextInvoiceNumber())
}
