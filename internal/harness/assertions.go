package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/engine"
	"github.com/roach88/coachbook/internal/persist"
	"github.com/roach88/coachbook/internal/state"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s\n", ev.Seq, ev.Do, ev.Outcome, ev.Ref)
		}
	}
	return buf.String()
}

// AssertionContext gives assertions access to the final state.
type AssertionContext struct {
	Ctx     context.Context
	Store   *state.Store
	Adapter durable.Adapter

	// Resolve maps scenario aliases to ids.
	Resolve func(string) string

	Logger *slog.Logger
}

func (c *AssertionContext) resolve(name string) string {
	if c.Resolve == nil {
		return name
	}
	return c.Resolve(name)
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	snap := actx.Store.GetState()
	for i, a := range assertions {
		if err := evaluate(snap, a, actx); err != nil {
			if ae, ok := err.(*AssertionError); ok {
				ae.Trace = result.Trace
			}
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluate(snap domain.Snapshot, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertInvoiceNumber:
		inv, err := lookupInvoice(snap, a, actx)
		if err != nil {
			return err
		}
		return expectEqual(a.Type, a.Equals, inv.InvoiceNumber)

	case AssertInvoiceStatus:
		inv, err := lookupInvoice(snap, a, actx)
		if err != nil {
			return err
		}
		return expectEqual(a.Type, a.Equals, string(inv.Status))

	case AssertInvoiceTotals:
		inv, err := lookupInvoice(snap, a, actx)
		if err != nil {
			return err
		}
		return assertTotals(a, inv)

	case AssertInvoiceCount:
		n := 0
		for _, inv := range snap.Invoices {
			if a.Coachee == "" || inv.CoacheeID == a.Coachee {
				n++
			}
		}
		return expectEqual(a.Type, fmt.Sprint(*a.Count), fmt.Sprint(n))

	case AssertSessionBilled:
		s, ok := snap.Session(a.Session)
		if !ok {
			return missing(a.Type, "session", a.Session)
		}
		return expectEqual(a.Type, fmt.Sprint(*a.Billed), fmt.Sprint(s.Billed))

	case AssertUnbilledCount:
		n := len(engine.UnbilledSessions(snap, a.Coachee))
		return expectEqual(a.Type, fmt.Sprint(*a.Count), fmt.Sprint(n))

	case AssertConsentGranted:
		c, ok := snap.Coachee(a.Coachee)
		if !ok {
			return missing(a.Type, "coachee", a.Coachee)
		}
		got := c.HasConsent(domain.ConsentType(a.Consent))
		return expectEqual(a.Type, fmt.Sprint(*a.Granted), fmt.Sprint(got))

	case AssertDocumentCount:
		n := len(actx.Store.DocumentsFor(a.Coachee))
		return expectEqual(a.Type, fmt.Sprint(*a.Count), fmt.Sprint(n))

	case AssertScheduleDue:
		id := actx.resolve(a.Schedule)
		sch, ok := snap.Schedule(id)
		if !ok {
			return missing(a.Type, "schedule", id)
		}
		return expectEqual(a.Type, a.Equals, sch.NextDueDate.Format(time.DateOnly))

	case AssertPersisted:
		return assertPersisted(snap, actx)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func lookupInvoice(snap domain.Snapshot, a Assertion, actx *AssertionContext) (domain.Invoice, error) {
	id := actx.resolve(a.Invoice)
	inv, ok := snap.Invoice(id)
	if !ok {
		return domain.Invoice{}, missing(a.Type, "invoice", id)
	}
	return inv, nil
}

func assertTotals(a Assertion, inv domain.Invoice) error {
	var want, got []string
	check := func(name string, expected *float64, actual float64) {
		if expected == nil {
			return
		}
		if !decimal.NewFromFloat(*expected).Equal(decimal.NewFromFloat(actual)) {
			want = append(want, fmt.Sprintf("%s=%v", name, *expected))
			got = append(got, fmt.Sprintf("%s=%v", name, actual))
		}
	}
	check("subtotal", a.Subtotal, inv.Subtotal)
	check("tax", a.Tax, inv.TaxAmount)
	check("total", a.Total, inv.Total)

	if len(want) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     a.Type,
		Expected: strings.Join(want, " "),
		Actual:   strings.Join(got, " "),
	}
}

// assertPersisted hydrates a second store from the durable copy and checks
// that every collection serializes identically to the live snapshot.
func assertPersisted(live domain.Snapshot, actx *AssertionContext) error {
	ctx := actx.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	reloaded := state.New()
	if _, err := persist.Hydrate(ctx, actx.Adapter, reloaded, actx.Logger); err != nil {
		return fmt.Errorf("hydrate durable copy: %w", err)
	}
	again := reloaded.GetState()

	var diverged []string
	for _, c := range domain.Collections {
		a, err := json.Marshal(live.Slice(c))
		if err != nil {
			return err
		}
		b, err := json.Marshal(again.Slice(c))
		if err != nil {
			return err
		}
		if !bytes.Equal(a, b) {
			diverged = append(diverged, c.Key())
		}
	}
	if len(diverged) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertPersisted,
		Expected: "durable copy matches live state",
		Actual:   "diverged: " + strings.Join(diverged, ", "),
	}
}

func expectEqual(typ, want, got string) error {
	if want == got {
		return nil
	}
	return &AssertionError{Type: typ, Expected: want, Actual: got}
}

func missing(typ, kind, id string) error {
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%s %q to exist", kind, id),
		Actual:   "not found",
	}
}
