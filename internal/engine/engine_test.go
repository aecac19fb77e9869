package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
	"github.com/roach88/coachbook/internal/testutil"
)

func strPtr(s string) *string { return &s }

// fakeRenderer records calls and returns a canned result.
type fakeRenderer struct {
	mu       sync.Mutex
	payload  []byte
	err      error
	consents []ConsentData
	invoices []InvoiceData
}

func (f *fakeRenderer) RenderConsent(_ context.Context, data ConsentData) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consents = append(f.consents, data)
	return f.payload, f.err
}

func (f *fakeRenderer) RenderInvoice(_ context.Context, data InvoiceData) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoices = append(f.invoices, data)
	return f.payload, f.err
}

// fixture is one coachee with one completed, unbilled session and a
// "Standard Coaching" rate of 120.00.
func fixture() domain.Snapshot {
	snap := domain.EmptySnapshot()
	snap.Coachees = []domain.Coachee{
		{ID: "c1", FirstName: "Clara", LastName: "Meyer", Status: domain.CoacheeStatusActive},
		{ID: "c2", FirstName: "Ben", LastName: "Okafor", Status: domain.CoacheeStatusActive},
	}
	snap.Sessions = []domain.Session{
		{
			ID:        "s1",
			CoacheeID: strPtr("c1"),
			Date:      testutil.Date(2025, time.March, 10),
			Topic:     "Career goals",
			Status:    domain.SessionStatusCompleted,
		},
	}
	snap.ServiceRates = []domain.ServiceRate{
		{ID: "r1", Name: "Standard Coaching", Price: 120, Currency: "EUR"},
	}
	return snap
}

type testEnv struct {
	engine *Engine
	store  *state.Store
	clock  *testutil.DeterministicClock
}

func newTestEnv(t *testing.T, snap domain.Snapshot, opts ...Option) testEnv {
	t.Helper()
	s := state.New(state.WithSnapshot(snap))
	clock := testutil.NewDeterministicClock(testutil.Date(2025, time.March, 15))
	base := []Option{
		WithClock(clock),
		WithIDGenerator(testutil.NewSequentialIDs("gen")),
	}
	return testEnv{
		engine: New(s, append(base, opts...)...),
		store:  s,
		clock:  clock,
	}
}

func TestNew_Defaults(t *testing.T) {
	e := New(state.New())

	assert.IsType(t, SystemClock{}, e.clock)
	assert.IsType(t, UUIDv7Generator{}, e.ids)
	assert.Equal(t, DefaultFallbackPrice, e.fallbackPrice)
	assert.Nil(t, e.renderer)
	assert.Len(t, e.NewID(), 36)
}

func TestRuleError_Format(t *testing.T) {
	err := newRuleError(ErrCodeNotFound, "inv-9", "invoice not found")
	assert.Equal(t, "NOT_FOUND: invoice not found (id=inv-9)", err.Error())

	cause := errors.New("disk full")
	wrapped := &RuleError{Code: ErrCodeRenderFailed, Message: "rendering", Err: cause}
	assert.Equal(t, "RENDER_FAILED: rendering: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestRuleError_Predicates(t *testing.T) {
	tests := []struct {
		code RuleErrorCode
		pred func(error) bool
	}{
		{ErrCodeNotFound, IsNotFound},
		{ErrCodeNotDraft, IsNotDraft},
		{ErrCodeRenderFailed, IsRenderFailed},
		{ErrCodeAlreadyGranted, IsAlreadyGranted},
		{ErrCodeInvalidState, IsInvalidState},
		{ErrCodeMissingCoachee, IsMissingCoachee},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			err := fmt.Errorf("cli: %w", newRuleError(tt.code, "", "x"))
			assert.True(t, tt.pred(err))
			assert.Equal(t, tt.code, CodeOf(err))
			assert.False(t, tt.pred(errors.New("plain")))
		})
	}
	assert.Equal(t, RuleErrorCode(""), CodeOf(nil))
}
