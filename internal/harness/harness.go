package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/engine"
	"github.com/roach88/coachbook/internal/persist"
	"github.com/roach88/coachbook/internal/render"
	"github.com/roach88/coachbook/internal/seed"
	"github.com/roach88/coachbook/internal/state"
	"github.com/roach88/coachbook/internal/testutil"
)

// DefaultToday is the clock start for scenarios that do not set today.
var DefaultToday = testutil.Date(2025, 1, 1)

// Harness holds the per-run wiring. Every Run builds a new one.
type Harness struct {
	store   *state.Store
	adapter *durable.Memory
	engine  *engine.Engine
	clock   *testutil.DeterministicClock
	logger  *slog.Logger

	drafts map[string]*engine.Draft
	refs   map[string]string
}

// stepOutput carries step results that expectations can check.
type stepOutput struct {
	alreadyBilled []string
	issued        int
}

// Run executes a scenario against a fresh store and returns the result.
//
// Execution flow:
//  1. Hydrate an empty in-memory durable store and attach a synchronizer
//  2. Apply the scenario data as a seed
//  3. Execute steps, checking each against its expectation
//  4. Evaluate assertions
//
// The returned error reports broken scenarios (bad seed data), never
// failed expectations; those are collected in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.runStep(ctx, i, step, result)
	}

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   h.store,
		Adapter: h.adapter,
		Resolve: h.ref,
		Logger:  h.logger,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(ctx context.Context, scenario *Scenario) (*Harness, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	today := scenario.Today
	if today.IsZero() {
		today = DefaultToday
	}
	clock := testutil.NewDeterministicClock(today)

	st := state.New()
	mem := durable.NewMemory()
	persist.NewSynchronizer(st, persist.NewDirectWriter(mem, persist.WithWriterLogger(logger)), logger)
	if _, err := persist.Hydrate(ctx, mem, st, logger); err != nil {
		return nil, fmt.Errorf("failed to hydrate store: %w", err)
	}

	if scenario.Data.Kind != 0 {
		raw, err := yaml.Marshal(&scenario.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode scenario data: %w", err)
		}
		s, err := seed.Parse(raw, seed.FormatYAML, scenario.Name)
		if err != nil {
			return nil, err
		}
		seed.Apply(st, s)
	}

	eng := engine.New(st,
		engine.WithClock(clock),
		engine.WithIDGenerator(testutil.NewSequentialIDs("id")),
		engine.WithRenderer(render.New()),
		engine.WithLogger(logger),
	)

	return &Harness{
		store:   st,
		adapter: mem,
		engine:  eng,
		clock:   clock,
		logger:  logger,
		drafts:  make(map[string]*engine.Draft),
		refs:    make(map[string]string),
	}, nil
}

func (h *Harness) runStep(ctx context.Context, i int, step Step, result *Result) {
	ev, out, err := h.execute(ctx, step)
	ev.Do = step.Do
	ev.Outcome = outcomeOf(err)
	result.addTrace(ev)

	prefix := fmt.Sprintf("steps[%d] %s", i, step.Do)
	var want Expect
	if step.Expect != nil {
		want = *step.Expect
	}

	switch {
	case want.Error != "" && ev.Outcome != want.Error:
		result.AddError(fmt.Sprintf("%s: expected error %s, got %s", prefix, want.Error, describe(err)))
		return
	case want.Error == "" && err != nil:
		result.AddError(fmt.Sprintf("%s: %v", prefix, err))
		return
	}

	if want.AlreadyBilled != nil && strings.Join(want.AlreadyBilled, ",") != strings.Join(out.alreadyBilled, ",") {
		result.AddError(fmt.Sprintf("%s: expected already billed %v, got %v", prefix, want.AlreadyBilled, out.alreadyBilled))
	}
	if want.Issued != nil && *want.Issued != out.issued {
		result.AddError(fmt.Sprintf("%s: expected %d issued invoices, got %d", prefix, *want.Issued, out.issued))
	}
}

func (h *Harness) execute(ctx context.Context, step Step) (TraceEvent, stepOutput, error) {
	var ev TraceEvent
	var out stepOutput

	switch step.Do {
	case StepCreateInvoice:
		d, err := h.engine.OpenDraft(step.Coachee)
		if err != nil {
			return ev, out, err
		}
		h.keepDraft(step.As, d)
		ev.Ref, ev.Detail = d.Invoice.ID, d.Invoice.InvoiceNumber

	case StepEditInvoice:
		d, err := h.engine.EditDraft(h.ref(step.Invoice))
		if err != nil {
			return ev, out, err
		}
		h.keepDraft(step.As, d)
		ev.Ref, ev.Detail = d.Invoice.ID, d.Invoice.InvoiceNumber

	case StepSelectCoachee, StepAddSession, StepAddItem, StepRemoveItem, StepSaveDraft, StepFinalize:
		d, err := h.draft(step.Draft)
		if err != nil {
			return ev, out, err
		}
		ev.Ref = d.Invoice.ID
		return h.executeDraft(d, step, ev)

	case StepSetStatus:
		res, err := h.engine.SetInvoiceStatus(h.ref(step.Invoice), domain.InvoiceStatus(step.Status))
		if err != nil {
			return ev, out, err
		}
		ev.Ref, ev.Detail = res.Invoice.ID, string(res.Invoice.Status)
		out.alreadyBilled = res.AlreadyBilled

	case StepGrantConsent:
		doc, err := h.engine.GrantConsent(ctx, step.Coachee, domain.ConsentType(step.Consent), step.Policy)
		if err != nil {
			return ev, out, err
		}
		ev.Ref, ev.Detail = doc.ID, doc.Name

	case StepCreateSchedule:
		in := engine.ScheduleInput{
			CoacheeID: step.Coachee,
			RateID:    step.Rate,
			Quantity:  step.Quantity,
			Interval:  domain.Interval(step.Interval),
		}
		if step.NextDue != nil {
			in.NextDueDate = *step.NextDue
		}
		sch, err := h.engine.CreateSchedule(in)
		if err != nil {
			return ev, out, err
		}
		if step.As != "" {
			h.refs[step.As] = sch.ID
		}
		ev.Ref, ev.Detail = sch.ID, sch.NextDueDate.Format(time.DateOnly)

	case StepPauseSchedule:
		ev.Ref = h.ref(step.Schedule)
		return ev, out, h.engine.PauseSchedule(ev.Ref)

	case StepResumeSchedule:
		ev.Ref = h.ref(step.Schedule)
		return ev, out, h.engine.ResumeSchedule(ev.Ref)

	case StepRemoveSchedule:
		ev.Ref = h.ref(step.Schedule)
		return ev, out, h.engine.RemoveSchedule(ev.Ref)

	case StepAdvanceSchedule:
		sch, err := h.engine.AdvanceSchedule(h.ref(step.Schedule))
		if err != nil {
			return ev, out, err
		}
		ev.Ref, ev.Detail = sch.ID, sch.NextDueDate.Format(time.DateOnly)

	case StepIssueDue:
		issued, err := h.engine.IssueDue(ctx)
		if err != nil {
			return ev, out, err
		}
		numbers := make([]string, len(issued))
		for i, inv := range issued {
			numbers[i] = inv.InvoiceNumber
			if step.As != "" {
				h.refs[fmt.Sprintf("%s.%d", step.As, i+1)] = inv.ID
			}
		}
		ev.Detail = strings.Join(numbers, ",")
		out.issued = len(issued)

	case StepAdvanceClock:
		h.clock.Advance(time.Duration(step.Days) * 24 * time.Hour)
		ev.Detail = h.clock.Now().Format(time.DateOnly)

	default:
		return ev, out, fmt.Errorf("unknown step %q", step.Do)
	}

	return ev, out, nil
}

func (h *Harness) executeDraft(d *engine.Draft, step Step, ev TraceEvent) (TraceEvent, stepOutput, error) {
	var out stepOutput

	switch step.Do {
	case StepSelectCoachee:
		return ev, out, d.SelectCoachee(step.Coachee)

	case StepAddSession:
		item, err := d.AddSession(step.Session)
		if err != nil {
			return ev, out, err
		}
		ev.Detail = item.Description

	case StepAddItem:
		qty := step.Quantity
		if qty == 0 {
			qty = 1
		}
		d.AddItem(domain.InvoiceItem{Description: step.Description, Quantity: qty, Price: step.Price})
		ev.Detail = step.Description

	case StepRemoveItem:
		return ev, out, d.RemoveItem(step.Index)

	case StepSaveDraft:
		inv, err := h.engine.SaveDraft(d)
		if err != nil {
			return ev, out, err
		}
		ev.Detail = inv.InvoiceNumber

	case StepFinalize:
		res, err := h.engine.Finalize(d, domain.InvoiceStatus(step.Status))
		if err != nil {
			return ev, out, err
		}
		ev.Detail = res.Invoice.InvoiceNumber
		out.alreadyBilled = res.AlreadyBilled
	}

	return ev, out, nil
}

func (h *Harness) keepDraft(alias string, d *engine.Draft) {
	if alias == "" {
		alias = d.Invoice.ID
	}
	h.drafts[alias] = d
}

func (h *Harness) draft(alias string) (*engine.Draft, error) {
	d, ok := h.drafts[alias]
	if !ok {
		return nil, fmt.Errorf("unknown draft %q", alias)
	}
	return d, nil
}

// ref maps a scenario alias to an entity id. Unknown names are taken as ids.
func (h *Harness) ref(name string) string {
	if d, ok := h.drafts[name]; ok {
		return d.Invoice.ID
	}
	if id, ok := h.refs[name]; ok {
		return id
	}
	return name
}

func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}

func describe(err error) string {
	if err == nil {
		return OutcomeOK
	}
	return err.Error()
}
