package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/coachbook/internal/domain"
)

// NextInvoiceNumber returns the number following the greatest existing one.
//
// The greatest number is chosen by string comparison. Within one year and
// one sequence width that equals numeric order. Once a year passes 999
// invoices, "CS-2025-999" still sorts after "CS-2025-1000" and the 1000th
// number would be issued again; zero-padded legacy numbers of a different
// width have the same problem.
//
// Empty, malformed or previous-year numbers restart the sequence at 001.
// The restart does not check for collisions: a malformed number such as
// "legacy-7" sorts after "CS-2025-001", so CS-2025-001 is issued again.
// The returned prefix is always the given one, not the parsed one.
func NextInvoiceNumber(invoices []domain.Invoice, prefix string, year int) string {
	fresh := formatNumber(prefix, year, 1, 3)

	latest := ""
	for _, inv := range invoices {
		if inv.InvoiceNumber > latest {
			latest = inv.InvoiceNumber
		}
	}
	if latest == "" {
		return fresh
	}

	parts := strings.Split(latest, "-")
	if len(parts) != 3 {
		return fresh
	}

	parsedYear, err := strconv.Atoi(parts[1])
	if err != nil || parsedYear != year {
		return fresh
	}

	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 0 {
		return fresh
	}

	return formatNumber(prefix, year, seq+1, len(parts[2]))
}

func formatNumber(prefix string, year, seq, width int) string {
	return fmt.Sprintf("%s-%d-%0*d", prefix, year, width, seq)
}

// NextInvoiceNumber returns the next number for the committed invoices,
// using the configured prefix and the clock's current year.
func (e *Engine) NextInvoiceNumber() string {
	snap := e.store.GetState()
	return NextInvoiceNumber(snap.Invoices, snap.Settings.Prefix(), e.clock.Now().Year())
}
