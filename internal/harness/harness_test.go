package harness

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/state"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(strings.TrimSuffix(filepath.Base(path), ".yaml"), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
			assert.Len(t, result.Trace, len(scenario.Steps))
		})
	}
}

func TestGolden(t *testing.T) {
	for _, name := range []string{"finalize_standard_session", "consent_pipeline"} {
		t.Run(name, func(t *testing.T) {
			result, err := RunWithGolden(t, loadScenario(t, name))
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario := loadScenario(t, "concurrent_drafts")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, first.Trace, second.Trace)
}

const scenarioHead = `
name: inline
description: inline scenario
today: 2025-03-15
data:
  coachees:
    - {id: c1, firstName: Clara}
  sessions:
    - {id: s1, coacheeId: c1, date: 2025-03-10, status: completed}
`

func TestRun_FailedAssertion(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioHead + `
steps:
  - {do: create_invoice, coachee: c1, as: inv}
  - {do: save_draft, draft: inv}
assertions:
  - {type: invoice_number, invoice: inv, equals: CS-2025-999}
  - {type: session_billed, session: s1, billed: true}
  - {type: session_billed, session: nope, billed: true}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Expected: CS-2025-999")
	assert.Contains(t, result.Errors[0], "Actual: CS-2025-001")
	assert.Contains(t, result.Errors[1], "Actual: false")
	assert.Contains(t, result.Errors[2], "not found")
	assert.Contains(t, result.Errors[0], "[1] create_invoice ok")
}

func TestRun_UnexpectedStepOutcome(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioHead + `
steps:
  - {do: create_invoice, coachee: ghost}
  - {do: create_invoice, coachee: c1, as: inv, expect: {error: NOT_FOUND}}
  - {do: add_session, draft: unknown, session: s1}
assertions:
  - {type: invoice_count, count: 0}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "steps[0] create_invoice")
	assert.Contains(t, result.Errors[1], "expected error NOT_FOUND, got ok")
	assert.Contains(t, result.Errors[2], `unknown draft "unknown"`)

	outcomes := []string{result.Trace[0].Outcome, result.Trace[1].Outcome, result.Trace[2].Outcome}
	assert.Equal(t, []string{"NOT_FOUND", OutcomeOK, "error"}, outcomes)
}

func TestRun_TotalsMismatch(t *testing.T) {
	scenario, err := ParseScenario([]byte(scenarioHead + `
steps:
  - {do: create_invoice, coachee: c1, as: inv}
  - {do: add_session, draft: inv, session: s1}
  - {do: save_draft, draft: inv}
assertions:
  - {type: invoice_totals, invoice: inv, subtotal: 100, total: 119}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "fallback price is 100: %v", result.Errors)

	scenario.Assertions[0].Total = ptr(99.0)
	result, err = Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "total=99")
	assert.Contains(t, result.Errors[0], "total=119")
}

func TestRun_BadSeedData(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: bad
description: bad data
data:
  coachees:
    - {id: c1, firstName: Clara, status: archived}
steps:
  - {do: issue_due}
assertions:
  - {type: persisted}
`))
	require.NoError(t, err)

	_, err = Run(scenario)
	assert.Error(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, loadScenario(t, "finalize_standard_session"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_DefaultToday(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: no_today
description: clock defaults
data:
  coachees:
    - {id: c1, firstName: Clara}
steps:
  - {do: create_invoice, coachee: c1, as: inv}
  - {do: advance_clock, days: 1}
assertions:
  - {type: invoice_count, count: 0}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass)
	assert.Equal(t, "CS-2025-001", result.Trace[0].Detail)
	assert.Equal(t, "2025-01-02", result.Trace[1].Detail)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing name", "description: x\nsteps: [{do: issue_due}]\nassertions: [{type: persisted}]", "name is required"},
		{"missing description", "name: x\nsteps: [{do: issue_due}]\nassertions: [{type: persisted}]", "description is required"},
		{"no steps", "name: x\ndescription: x\nassertions: [{type: persisted}]", "steps list"},
		{"no assertions", "name: x\ndescription: x\nsteps: [{do: issue_due}]", "assertions list"},
		{"unknown step", "name: x\ndescription: x\nsteps: [{do: fly}]\nassertions: [{type: persisted}]", `unknown step "fly"`},
		{"missing step field", "name: x\ndescription: x\nsteps: [{do: finalize, draft: d}]\nassertions: [{type: persisted}]", "status is required for finalize"},
		{"unknown assertion", "name: x\ndescription: x\nsteps: [{do: issue_due}]\nassertions: [{type: vibes}]", `unknown assertion type "vibes"`},
		{"missing assertion field", "name: x\ndescription: x\nsteps: [{do: issue_due}]\nassertions: [{type: session_billed, session: s1}]", "billed is required"},
		{"unknown field", "name: x\ndescription: x\nstep: []\n", "field step not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")
}

func TestAssertPersisted_DetectsDivergence(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	require.NoError(t, mem.Set(ctx, domain.CollectionTasks.Key(), []byte(`[{"id":"t1","title":"stale","coacheeId":null,"done":false}]`)))

	st := state.New()
	st.Dispatch(state.SetTasks{Tasks: []domain.Task{{ID: "t1", Title: "fresh"}}})

	actx := &AssertionContext{Ctx: ctx, Store: st, Adapter: mem, Logger: quiet()}
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertPersisted}}, actx)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "diverged: tasks")
}

func ptr[T any](v T) *T { return &v }

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
