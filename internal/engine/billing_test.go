package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
	"github.com/roach88/coachbook/internal/testutil"
)

func TestFinalize_SingleSessionExample(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	require.Len(t, d.Available(), 1)

	item, err := d.AddSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "Career goals (2025-03-10)", item.Description)
	assert.Equal(t, 120.0, item.Price)
	assert.Equal(t, 1.0, item.Quantity)
	assert.Empty(t, d.Available())

	res, err := env.engine.Finalize(d, domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Empty(t, res.AlreadyBilled)

	inv := res.Invoice
	assert.Equal(t, "CS-2025-001", inv.InvoiceNumber)
	assert.Equal(t, 120.0, inv.Subtotal)
	assert.Equal(t, 22.8, inv.TaxAmount)
	assert.Equal(t, 142.8, inv.Total)
	assert.Equal(t, domain.InvoiceStatusSent, inv.Status)
	assert.Equal(t, testutil.Date(2025, time.March, 29), inv.DueDate)

	snap := env.store.GetState()
	stored, ok := snap.Invoice(inv.ID)
	require.True(t, ok)
	assert.Equal(t, inv, stored)

	s1, _ := snap.Session("s1")
	assert.True(t, s1.Billed)
	assert.Empty(t, UnbilledSessions(snap, "c1"))
}

func TestUnbilledSessions(t *testing.T) {
	snap := fixture()
	snap.Sessions = append(snap.Sessions,
		domain.Session{ID: "planned", CoacheeID: strPtr("c1"), Status: domain.SessionStatusPlanned},
		domain.Session{ID: "cancelled", CoacheeID: strPtr("c1"), Status: domain.SessionStatusCancelled},
		domain.Session{ID: "billed", CoacheeID: strPtr("c1"), Status: domain.SessionStatusCompleted, Billed: true},
		domain.Session{ID: "package", CoacheeID: strPtr("c1"), Status: domain.SessionStatusCompleted, PackageID: strPtr("p1")},
		domain.Session{ID: "other", CoacheeID: strPtr("c2"), Status: domain.SessionStatusCompleted},
		domain.Session{ID: "unassigned", Status: domain.SessionStatusCompleted},
		domain.Session{ID: "s2", CoacheeID: strPtr("c1"), Status: domain.SessionStatusCompleted},
	)

	var ids []string
	for _, s := range UnbilledSessions(snap, "c1") {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"s1", "s2"}, ids)
}

func TestStandardRate(t *testing.T) {
	rates := []domain.ServiceRate{
		{ID: "r0", Name: "Workshop", Price: 900},
		{ID: "r1", Name: "STANDARD Session", Price: 95},
		{ID: "r2", Name: "Standard Coaching", Price: 120},
	}

	r, ok := StandardRate(rates)
	require.True(t, ok)
	assert.Equal(t, "r1", r.ID)

	_, ok = StandardRate(rates[:1])
	assert.False(t, ok)
}

func TestAddSession_FallbackPrice(t *testing.T) {
	snap := fixture()
	snap.ServiceRates = []domain.ServiceRate{{ID: "r9", Name: "Intensive", Price: 300}}

	env := newTestEnv(t, snap)
	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	item, err := d.AddSession("s1")
	require.NoError(t, err)
	assert.Equal(t, DefaultFallbackPrice, item.Price)

	env = newTestEnv(t, snap, WithFallbackPrice(80))
	d, err = env.engine.OpenDraft("c1")
	require.NoError(t, err)
	item, err = d.AddSession("s1")
	require.NoError(t, err)
	assert.Equal(t, 80.0, item.Price)
}

func TestAddSession_DefaultTopic(t *testing.T) {
	snap := fixture()
	snap.Sessions[0].Topic = ""
	env := newTestEnv(t, snap)

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	item, err := d.AddSession("s1")
	require.NoError(t, err)
	assert.Equal(t, "Coaching session (2025-03-10)", item.Description)
	assert.Equal(t, "s1", *item.SessionID)
}

func TestAddSession_Rejections(t *testing.T) {
	env := newTestEnv(t, fixture())

	noCoachee, err := env.engine.OpenDraft("")
	require.NoError(t, err)
	_, err = noCoachee.AddSession("s1")
	assert.True(t, IsMissingCoachee(err))

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	_, err = d.AddSession("s1")
	require.NoError(t, err)

	_, err = d.AddSession("s1")
	assert.True(t, IsInvalidState(err), "same session twice")

	_, err = d.AddSession("missing")
	assert.True(t, IsInvalidState(err))
}

func TestOpenDraft(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	assert.Equal(t, "gen-1", d.Invoice.ID)
	assert.Equal(t, "CS-2025-001", d.Invoice.InvoiceNumber)
	assert.Equal(t, domain.InvoiceStatusDraft, d.Invoice.Status)
	assert.Equal(t, 19.0, d.Invoice.TaxRate)
	assert.Equal(t, "EUR", d.Invoice.Currency)
	assert.Equal(t, testutil.Date(2025, time.March, 15), d.Invoice.Date)

	_, err = env.engine.OpenDraft("nobody")
	assert.True(t, IsNotFound(err))

	assert.Empty(t, env.store.GetState().Invoices, "opening a draft stores nothing")
}

func TestDraft_RemoveItemReturnsSessionToPool(t *testing.T) {
	env := newTestEnv(t, fixture())
	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)

	d.AddItem(domain.InvoiceItem{Description: "Material", Quantity: 1, Price: 15})
	_, err = d.AddSession("s1")
	require.NoError(t, err)
	assert.Empty(t, d.Available())
	assert.Equal(t, Totals{Subtotal: 135, TaxAmount: 25.65, Total: 160.65}, d.Totals())

	require.NoError(t, d.RemoveItem(1))
	require.Len(t, d.Available(), 1)
	assert.Len(t, d.Invoice.Items, 1)

	assert.True(t, IsNotFound(d.RemoveItem(5)))
	assert.True(t, IsNotFound(d.RemoveItem(-1)))
}

func TestDraft_SelectCoacheeDropsSessionLines(t *testing.T) {
	snap := fixture()
	snap.Sessions = append(snap.Sessions, domain.Session{ID: "s9", CoacheeID: strPtr("c2"), Status: domain.SessionStatusCompleted})
	env := newTestEnv(t, snap)

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	d.AddItem(domain.InvoiceItem{Description: "Travel", Quantity: 1, Price: 20})
	_, err = d.AddSession("s1")
	require.NoError(t, err)

	require.NoError(t, d.SelectCoachee("c2"))
	assert.Equal(t, "c2", d.Invoice.CoacheeID)
	require.Len(t, d.Invoice.Items, 1)
	assert.Equal(t, "Travel", d.Invoice.Items[0].Description)
	require.Len(t, d.Available(), 1)
	assert.Equal(t, "s9", d.Available()[0].ID)

	assert.True(t, IsNotFound(d.SelectCoachee("nobody")))
}

func TestSaveDraft_DoesNotMarkSessions(t *testing.T) {
	env := newTestEnv(t, fixture())
	before := env.store.GetState()

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	_, err = d.AddSession("s1")
	require.NoError(t, err)

	inv, err := env.engine.SaveDraft(d)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, 142.8, inv.Total)

	after := env.store.GetState()
	assert.Equal(t, before.Sessions, after.Sessions)
	assert.Equal(t, before.Revisions.Of(domain.CollectionSessions), after.Revisions.Of(domain.CollectionSessions))
	assert.Len(t, UnbilledSessions(after, "c1"), 1)

	// Saving again keeps the number.
	d.AddItem(domain.InvoiceItem{Description: "Extra", Quantity: 1, Price: 10})
	again, err := env.engine.SaveDraft(d)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, again.InvoiceNumber)
	assert.Len(t, env.store.GetState().Invoices, 1)
}

func TestSaveDraft_ConcurrentDraftsGetDistinctNumbers(t *testing.T) {
	env := newTestEnv(t, fixture())

	d1, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	d2, err := env.engine.OpenDraft("c2")
	require.NoError(t, err)
	assert.Equal(t, d1.Invoice.InvoiceNumber, d2.Invoice.InvoiceNumber, "provisional numbers match")

	inv1, err := env.engine.SaveDraft(d1)
	require.NoError(t, err)
	inv2, err := env.engine.SaveDraft(d2)
	require.NoError(t, err)

	assert.Equal(t, "CS-2025-001", inv1.InvoiceNumber)
	assert.Equal(t, "CS-2025-002", inv2.InvoiceNumber)
}

func TestSaveDraft_ParallelCallersGetDistinctNumbers(t *testing.T) {
	env := newTestEnv(t, fixture())

	const n = 16
	drafts := make([]*Draft, n)
	for i := range drafts {
		d, err := env.engine.OpenDraft("c2")
		require.NoError(t, err)
		drafts[i] = d
	}

	var wg sync.WaitGroup
	for _, d := range drafts {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.SaveDraft(d)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, inv := range env.store.GetState().Invoices {
		assert.False(t, seen[inv.InvoiceNumber], "duplicate number %s", inv.InvoiceNumber)
		seen[inv.InvoiceNumber] = true
	}
	assert.Len(t, seen, n)
	assert.True(t, seen["CS-2025-016"])
}

func TestFinalize_NoDoubleBilling(t *testing.T) {
	env := newTestEnv(t, fixture())

	d1, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	d2, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)

	// Both drafts see the same session.
	_, err = d1.AddSession("s1")
	require.NoError(t, err)
	_, err = d2.AddSession("s1")
	require.NoError(t, err)

	_, err = env.engine.Finalize(d1, domain.InvoiceStatusSent)
	require.NoError(t, err)
	mid := env.store.GetState()

	res, err := env.engine.Finalize(d2, domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, res.AlreadyBilled)
	assert.Equal(t, "CS-2025-002", res.Invoice.InvoiceNumber)

	after := env.store.GetState()
	s1, _ := after.Session("s1")
	assert.True(t, s1.Billed)
	assert.Equal(t, mid.Revisions.Of(domain.CollectionSessions), after.Revisions.Of(domain.CollectionSessions),
		"second finalize must not rewrite sessions")

	// A fresh draft no longer offers the session.
	d3, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	assert.Empty(t, d3.Available())
}

func TestFinalize_Rejections(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("")
	require.NoError(t, err)
	d.AddItem(domain.InvoiceItem{Description: "Workshop", Quantity: 1, Price: 500})

	_, err = env.engine.Finalize(d, domain.InvoiceStatusPaid)
	assert.True(t, IsMissingCoachee(err))

	require.NoError(t, d.SelectCoachee("c1"))
	_, err = env.engine.Finalize(d, domain.InvoiceStatusDraft)
	assert.True(t, IsInvalidState(err))
	_, err = env.engine.Finalize(d, "archived")
	assert.True(t, IsInvalidState(err))

	assert.Empty(t, env.store.GetState().Invoices)
}

func TestEditDraft(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	_, err = d.AddSession("s1")
	require.NoError(t, err)
	saved, err := env.engine.SaveDraft(d)
	require.NoError(t, err)

	edit, err := env.engine.EditDraft(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.InvoiceNumber, edit.Invoice.InvoiceNumber)
	assert.Empty(t, edit.Available(), "session already on the draft")

	// Edits are local until saved.
	require.NoError(t, edit.RemoveItem(0))
	stored, _ := env.store.GetState().Invoice(saved.ID)
	assert.Len(t, stored.Items, 1)

	_, err = env.engine.Finalize(edit, domain.InvoiceStatusSent)
	require.NoError(t, err)

	_, err = env.engine.EditDraft(saved.ID)
	assert.True(t, IsNotDraft(err))
	_, err = env.engine.EditDraft("nope")
	assert.True(t, IsNotFound(err))

	// The session was removed before finalizing, so it stays unbilled.
	s1, _ := env.store.GetState().Session("s1")
	assert.False(t, s1.Billed)
}

func TestSaveDraft_RejectsSettledInvoice(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	stale, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	stale.Invoice.ID = d.Invoice.ID

	_, err = env.engine.Finalize(d, domain.InvoiceStatusSent)
	require.NoError(t, err)

	_, err = env.engine.SaveDraft(stale)
	assert.True(t, IsNotDraft(err))
	_, err = env.engine.Finalize(stale, domain.InvoiceStatusPaid)
	assert.True(t, IsNotDraft(err))
}

func TestSetInvoiceStatus(t *testing.T) {
	env := newTestEnv(t, fixture())

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	_, err = d.AddSession("s1")
	require.NoError(t, err)
	saved, err := env.engine.SaveDraft(d)
	require.NoError(t, err)

	res, err := env.engine.SetInvoiceStatus(saved.ID, domain.InvoiceStatusDraft)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusDraft, res.Invoice.Status)

	res, err = env.engine.SetInvoiceStatus(saved.ID, domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, saved.InvoiceNumber, res.Invoice.InvoiceNumber)
	s1, _ := env.store.GetState().Session("s1")
	assert.True(t, s1.Billed)

	res, err = env.engine.SetInvoiceStatus(saved.ID, domain.InvoiceStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, domain.InvoiceStatusPaid, res.Invoice.Status)

	_, err = env.engine.SetInvoiceStatus(saved.ID, domain.InvoiceStatusDraft)
	assert.True(t, IsInvalidState(err))

	_, err = env.engine.SetInvoiceStatus("nope", domain.InvoiceStatusPaid)
	assert.True(t, IsNotFound(err))
}

func TestFinalize_StoredTotalsRecomputed(t *testing.T) {
	snap := fixture()
	snap.Invoices = []domain.Invoice{{
		ID:            "inv-legacy",
		InvoiceNumber: "CS-2025-001",
		CoacheeID:     "c1",
		Items:         []domain.InvoiceItem{{Description: "Session", Quantity: 1, Price: 120}},
		TaxRate:       19,
		Total:         999,
		Status:        domain.InvoiceStatusDraft,
	}}
	env := newTestEnv(t, snap)

	res, err := env.engine.SetInvoiceStatus("inv-legacy", domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Equal(t, 142.8, res.Invoice.Total)
	assert.Equal(t, "CS-2025-001", res.Invoice.InvoiceNumber)
}

func TestFinalize_MissingSessionReferenceIsTolerated(t *testing.T) {
	snap := fixture()
	snap.Invoices = []domain.Invoice{{
		ID:        "inv-1",
		CoacheeID: "c1",
		Items:     []domain.InvoiceItem{{Description: "Gone", Quantity: 1, Price: 50, SessionID: strPtr("deleted")}},
		TaxRate:   0,
		Status:    domain.InvoiceStatusDraft,
	}}
	env := newTestEnv(t, snap)

	res, err := env.engine.SetInvoiceStatus("inv-1", domain.InvoiceStatusSent)
	require.NoError(t, err)
	assert.Empty(t, res.AlreadyBilled)
	assert.Equal(t, "CS-2025-001", res.Invoice.InvoiceNumber, "unnumbered invoices get a number")
}

func TestFinalize_GoesThroughOneTransition(t *testing.T) {
	env := newTestEnv(t, fixture())
	var events []state.Event
	env.store.Subscribe(func(ev state.Event) { events = append(events, ev) })

	d, err := env.engine.OpenDraft("c1")
	require.NoError(t, err)
	_, err = d.AddSession("s1")
	require.NoError(t, err)
	_, err = env.engine.Finalize(d, domain.InvoiceStatusSent)
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "saveInvoice", state.Name(events[0].Action))
	assert.ElementsMatch(t,
		[]domain.Collection{domain.CollectionInvoices, domain.CollectionSessions},
		events[0].Changed)
}
