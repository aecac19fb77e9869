package persist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/state"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// failingAdapter fails every call.
type failingAdapter struct{ err error }

func (f failingAdapter) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingAdapter) Set(context.Context, string, []byte) error   { return f.err }
func (f failingAdapter) Close() error                                { return nil }

// recordingWriter keeps every write in order.
type recordingWriter struct {
	mu     sync.Mutex
	writes []write
}

func (r *recordingWriter) Write(key string, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.writes = append(r.writes, write{key: key, payload: payload})
}

func (r *recordingWriter) Close(context.Context) error { return nil }

func (r *recordingWriter) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, w := range r.writes {
		keys = append(keys, w.key)
	}
	return keys
}

func TestHydrate_AbsentKeysDefault(t *testing.T) {
	store := state.New()
	report, err := Hydrate(context.Background(), durable.NewMemory(), store, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, domain.Collections, report.Absent)
	assert.Empty(t, report.Corrupt)
	assert.True(t, store.Loaded())

	snap := store.GetState()
	assert.NotNil(t, snap.Coachees)
	assert.Empty(t, snap.Coachees)
	assert.Equal(t, domain.DefaultSettings(), snap.Settings)
}

func TestHydrate_LoadsStoredValues(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	require.NoError(t, mem.Set(ctx, "coachees", []byte(`[{"id":"c1","firstName":"Clara","status":"active","consents":{"privacy":true},"documents":["ignored"]}]`)))
	require.NoError(t, mem.Set(ctx, "sessions", []byte(`[{"id":"s1","coacheeId":"c1","status":"completed","billed":false,"date":"2025-03-10T00:00:00Z"}]`)))
	require.NoError(t, mem.Set(ctx, "settings", []byte(`{"taxRate":7,"currency":"CHF"}`)))

	store := state.New()
	report, err := Hydrate(ctx, mem, store, quietLogger())
	require.NoError(t, err)
	assert.False(t, report.Defaulted(domain.CollectionCoachees))
	assert.True(t, report.Defaulted(domain.CollectionInvoices))

	snap := store.GetState()
	require.Len(t, snap.Coachees, 1)
	assert.True(t, snap.Coachees[0].HasConsent(domain.ConsentPrivacy))
	require.Len(t, snap.Sessions, 1)
	assert.True(t, snap.Sessions[0].BelongsTo("c1"))

	// Missing settings fields keep their defaults.
	assert.Equal(t, 7.0, snap.Settings.TaxRate)
	assert.Equal(t, "CHF", snap.Settings.Currency)
	assert.Equal(t, 14, snap.Settings.PaymentDeadlineDays)
	assert.Equal(t, "CS", snap.Settings.InvoicePrefix)
}

func TestHydrate_CorruptValuesDefault(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	require.NoError(t, mem.Set(ctx, "coachees", []byte(`{not json`)))
	require.NoError(t, mem.Set(ctx, "invoices", []byte(`[1, 2]`)))
	require.NoError(t, mem.Set(ctx, "settings", []byte(`"oops"`)))
	require.NoError(t, mem.Set(ctx, "tasks", []byte(`null`)))
	require.NoError(t, mem.Set(ctx, "serviceRates", []byte(`[{"id":"r1","name":"Standard","price":120}]`)))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	store := state.New()
	report, err := Hydrate(ctx, mem, store, logger)
	require.NoError(t, err)

	assert.Equal(t, []domain.Collection{
		domain.CollectionCoachees,
		domain.CollectionInvoices,
		domain.CollectionSettings,
	}, report.Corrupt)
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "collection=coachees")

	snap := store.GetState()
	assert.Empty(t, snap.Coachees)
	assert.Empty(t, snap.Invoices)
	assert.NotNil(t, snap.Tasks)
	assert.Equal(t, domain.DefaultSettings(), snap.Settings)
	assert.Len(t, snap.ServiceRates, 1)
	assert.True(t, store.Loaded())
}

func TestHydrate_ReadErrorsDefault(t *testing.T) {
	store := state.New()
	report, err := Hydrate(context.Background(), failingAdapter{err: errors.New("connection refused")}, store, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, domain.Collections, report.Corrupt)
	assert.True(t, store.Loaded())
}

func TestHydrate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := state.New()
	_, err := Hydrate(ctx, failingAdapter{err: context.Canceled}, store, quietLogger())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, store.Loaded())
}

func TestSynchronizer_IgnoresEventsBeforeLoad(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	require.NoError(t, mem.Set(ctx, "coachees", []byte(`[{"id":"c1","firstName":"Clara","status":"active"}]`)))
	writesBefore := mem.Writes()

	store := state.New()
	NewSynchronizer(store, NewDirectWriter(mem, WithWriterLogger(quietLogger())), quietLogger())

	store.Dispatch(state.AddTask{Task: domain.Task{ID: "t0", Title: "before load"}})
	_, err := Hydrate(ctx, mem, store, quietLogger())
	require.NoError(t, err)

	assert.Equal(t, writesBefore, mem.Writes(), "hydration must not write")
	raw, err := mem.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Clara")
}

func TestSynchronizer_WritesOnlyChangedCollections(t *testing.T) {
	store := state.New()
	store.MarkLoaded()
	rec := &recordingWriter{}
	NewSynchronizer(store, rec, quietLogger())

	store.Dispatch(state.AddCoachee{Coachee: domain.Coachee{ID: "c1", Status: domain.CoacheeStatusActive}})
	assert.Equal(t, []string{"coachees"}, rec.keys())

	store.Dispatch(state.UpdateSession{Session: domain.Session{ID: "missing"}})
	assert.Equal(t, []string{"coachees"}, rec.keys(), "no-op dispatch writes nothing")

	store.Dispatch(state.AttachConsentDocument{
		Document:    domain.Document{ID: "d1", Name: "privacy_consent_c1.pdf", IsConsentDocument: true},
		CoacheeID:   "c1",
		ConsentType: domain.ConsentPrivacy,
	})
	assert.ElementsMatch(t, []string{"coachees", "coachees", "documents"}, rec.keys())
}

func TestSynchronizer_Stop(t *testing.T) {
	store := state.New()
	store.MarkLoaded()
	rec := &recordingWriter{}
	syncer := NewSynchronizer(store, rec, quietLogger())

	syncer.Stop()
	syncer.Stop()
	store.Dispatch(state.AddTask{Task: domain.Task{ID: "t1"}})
	assert.Empty(t, rec.keys())
}

func TestRoundTrip_HydrateAfterWriteThrough(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()

	first := state.New()
	w := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))
	NewSynchronizer(first, w, quietLogger())
	_, err := Hydrate(ctx, mem, first, quietLogger())
	require.NoError(t, err)

	coachee := "c1"
	first.Dispatch(state.AddCoachee{Coachee: domain.Coachee{ID: "c1", FirstName: "Clara", Status: domain.CoacheeStatusActive}})
	first.Dispatch(state.AddSession{Session: domain.Session{
		ID: "s1", CoacheeID: &coachee, Status: domain.SessionStatusCompleted,
		Date: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
	}})
	first.Dispatch(state.SetSettings{Settings: domain.Settings{TaxRate: 7.7, Currency: "CHF", PaymentDeadlineDays: 30, InvoicePrefix: "ZH"}})
	require.NoError(t, w.Close(ctx))

	second := state.New()
	_, err = Hydrate(ctx, mem, second, quietLogger())
	require.NoError(t, err)

	a, b := first.GetState(), second.GetState()
	assert.Equal(t, a.Coachees, b.Coachees)
	assert.Equal(t, a.Sessions, b.Sessions)
	assert.Equal(t, a.Settings, b.Settings)
}

func TestAsyncWriter_IdenticalPayloadSkipped(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	w := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))

	w.Write("coachees", []byte(`[{"id":"c1"}]`))
	w.Write("coachees", []byte(`[{"id":"c1"}]`))
	w.Write("sessions", []byte(`[{"id":"c1"}]`))
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, Stats{Written: 2, Skipped: 1}, w.Stats())
	got, err := mem.Get(ctx, "coachees")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"c1"}]`, string(got))
}

func TestAsyncWriter_SameSnapshotTwiceReadsBackIdentical(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	store := state.New()
	store.MarkLoaded()

	w := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))
	s := NewSynchronizer(store, w, quietLogger())

	coachees := []domain.Coachee{{ID: "c1", FirstName: "Clara"}, {ID: "c2", FirstName: "Ben"}}
	store.Dispatch(state.SetCoachees{Coachees: coachees})
	require.NoError(t, w.Close(ctx))
	once, err := mem.Get(ctx, "coachees")
	require.NoError(t, err)

	s.Stop()
	w2 := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))
	NewSynchronizer(store, w2, quietLogger())
	store.Dispatch(state.SetCoachees{Coachees: coachees})
	store.Dispatch(state.SetCoachees{Coachees: coachees})
	require.NoError(t, w2.Close(ctx))
	twice, err := mem.Get(ctx, "coachees")
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestAsyncWriter_ChangedPayloadAfterSameIsWritten(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	w := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))

	w.Write("tasks", []byte(`[]`))
	w.Write("tasks", []byte(`[{"id":"t1"}]`))
	w.Write("tasks", []byte(`[]`))
	require.NoError(t, w.Close(ctx))

	got, err := mem.Get(ctx, "tasks")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	assert.Equal(t, int64(3), w.Stats().Written)
}

func TestAsyncWriter_FailuresAreLoggedAndDropped(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	w := NewAsyncWriter(failingAdapter{err: errors.New("disk full")}, WithWriterLogger(logger))

	w.Write("coachees", []byte(`[]`))
	w.Write("coachees", []byte(`[]`))
	require.NoError(t, w.Close(context.Background()))

	assert.Equal(t, Stats{Failed: 2}, w.Stats(), "failed payloads are not remembered")
	assert.Contains(t, logs.String(), "durable write failed")
	assert.Contains(t, logs.String(), "disk full")
}

func TestAsyncWriter_CloseDrainsQueue(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	w := NewAsyncWriter(mem, WithWriterLogger(quietLogger()))

	for i := 0; i < 100; i++ {
		w.Write("journalEntries", []byte{byte('a' + i%26)})
	}
	require.NoError(t, w.Close(ctx))
	assert.Equal(t, 0, w.Pending())

	got, err := mem.Get(ctx, "journalEntries")
	require.NoError(t, err)
	assert.Equal(t, []byte{byte('a' + 99%26)}, got)

	// Writes after close are dropped.
	w.Write("journalEntries", []byte("late"))
	got, err = mem.Get(ctx, "journalEntries")
	require.NoError(t, err)
	assert.NotEqual(t, "late", string(got))
	assert.NoError(t, w.Close(ctx), "close is idempotent")
}

// blockingAdapter blocks Set until released.
type blockingAdapter struct {
	*durable.Memory
	release chan struct{}
}

func (b blockingAdapter) Set(ctx context.Context, key string, value []byte) error {
	<-b.release
	return b.Memory.Set(ctx, key, value)
}

func TestAsyncWriter_CloseHonorsContext(t *testing.T) {
	adapter := blockingAdapter{Memory: durable.NewMemory(), release: make(chan struct{})}
	w := NewAsyncWriter(adapter, WithWriterLogger(quietLogger()))
	w.Write("tasks", []byte(`[]`))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Close(ctx), context.DeadlineExceeded)

	close(adapter.release)
	require.NoError(t, w.Close(context.Background()))
	assert.Equal(t, int64(1), w.Stats().Written)
}

func TestDirectWriter(t *testing.T) {
	ctx := context.Background()
	mem := durable.NewMemory()
	w := NewDirectWriter(mem, WithWriterLogger(quietLogger()))

	w.Write("settings", []byte(`{"taxRate":19}`))
	got, err := mem.Get(ctx, "settings")
	require.NoError(t, err)
	assert.Equal(t, `{"taxRate":19}`, string(got))

	failing := NewDirectWriter(failingAdapter{err: errors.New("nope")}, WithWriterLogger(quietLogger()))
	failing.Write("settings", []byte(`{}`))
	assert.Equal(t, Stats{Failed: 1}, failing.Stats())
	assert.NoError(t, failing.Close(ctx))
}

func TestSynchronizer_WriteAll(t *testing.T) {
	rec := &recordingWriter{}
	s := NewSynchronizer(state.New(), rec, quietLogger())

	s.WriteAll(domain.EmptySnapshot())

	var want []string
	for _, c := range domain.Collections {
		want = append(want, c.Key())
	}
	assert.Equal(t, want, rec.keys())
}
