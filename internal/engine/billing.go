package engine

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// DefaultSessionTopic describes session items whose session has no topic.
const DefaultSessionTopic = "Coaching session"

// standardRateMarker selects the rate used to price session items.
const standardRateMarker = "standard"

// UnbilledSessions returns the sessions that may become invoice lines for
// coacheeID, in store order.
func UnbilledSessions(snap domain.Snapshot, coacheeID string) []domain.Session {
	var out []domain.Session
	for _, s := range snap.Sessions {
		if s.Unbilled(coacheeID) {
			out = append(out, s)
		}
	}
	return out
}

// StandardRate returns the first rate whose case-folded name contains "standard".
func StandardRate(rates []domain.ServiceRate) (domain.ServiceRate, bool) {
	fold := cases.Fold()
	for _, r := range rates {
		if strings.Contains(fold.String(r.Name), standardRateMarker) {
			return r, true
		}
	}
	return domain.ServiceRate{}, false
}

// SessionItem builds the invoice line for a session at the given price.
func SessionItem(s domain.Session, price float64) domain.InvoiceItem {
	topic := s.Topic
	if topic == "" {
		topic = DefaultSessionTopic
	}
	id := s.ID
	return domain.InvoiceItem{
		Description: fmt.Sprintf("%s (%s)", topic, s.Date.Format("2006-01-02")),
		Quantity:    1,
		Price:       price,
		SessionID:   &id,
	}
}

// Draft is an invoice being edited.
//
// The candidate pool is computed from the committed store when the draft is
// opened or its coachee changes. Adding a session removes it from this
// draft's pool only; the store is untouched until SaveDraft or Finalize.
// Two drafts for the same coachee therefore see the same sessions.
//
// A Draft is not safe for concurrent use.
type Draft struct {
	Invoice domain.Invoice

	engine *Engine
	pool   []domain.Session
	stored bool // the invoice exists in the store
}

// OpenDraft starts a new draft invoice. coacheeID may be empty and selected
// later with SelectCoachee.
func (e *Engine) OpenDraft(coacheeID string) (*Draft, error) {
	snap := e.store.GetState()
	if coacheeID != "" {
		if _, ok := snap.Coachee(coacheeID); !ok {
			return nil, newRuleError(ErrCodeNotFound, coacheeID, "coachee not found")
		}
	}

	now := e.clock.Now()
	settings := snap.Settings
	d := &Draft{
		Invoice: domain.Invoice{
			ID:            e.ids.Generate(),
			InvoiceNumber: NextInvoiceNumber(snap.Invoices, settings.Prefix(), now.Year()),
			CoacheeID:     coacheeID,
			Date:          now,
			DueDate:       now.AddDate(0, 0, settings.PaymentDeadlineDays),
			Items:         []domain.InvoiceItem{},
			TaxRate:       settings.TaxRate,
			Currency:      settings.Currency,
			Status:        domain.InvoiceStatusDraft,
		},
		engine: e,
	}
	d.refreshPool(snap)
	return d, nil
}

// EditDraft reopens a stored draft invoice.
func (e *Engine) EditDraft(invoiceID string) (*Draft, error) {
	snap := e.store.GetState()
	inv, ok := snap.Invoice(invoiceID)
	if !ok {
		return nil, newRuleError(ErrCodeNotFound, invoiceID, "invoice not found")
	}
	if !inv.IsDraft() {
		return nil, newRuleError(ErrCodeNotDraft, invoiceID, "invoice is %s", inv.Status)
	}

	d := &Draft{Invoice: inv.Clone(), engine: e, stored: true}
	if d.Invoice.Items == nil {
		d.Invoice.Items = []domain.InvoiceItem{}
	}
	d.refreshPool(snap)
	return d, nil
}

func (d *Draft) refreshPool(snap domain.Snapshot) {
	if d.Invoice.CoacheeID == "" {
		d.pool = nil
		return
	}
	d.pool = UnbilledSessions(snap, d.Invoice.CoacheeID)
}

// SelectCoachee switches the draft to another coachee. Session lines of the
// previous coachee are dropped and the pool is recomputed.
func (d *Draft) SelectCoachee(coacheeID string) error {
	snap := d.engine.store.GetState()
	if _, ok := snap.Coachee(coacheeID); !ok {
		return newRuleError(ErrCodeNotFound, coacheeID, "coachee not found")
	}
	if coacheeID == d.Invoice.CoacheeID {
		return nil
	}

	kept := make([]domain.InvoiceItem, 0, len(d.Invoice.Items))
	for _, item := range d.Invoice.Items {
		if item.SessionID == nil {
			kept = append(kept, item)
		}
	}
	d.Invoice.Items = kept
	d.Invoice.CoacheeID = coacheeID
	d.refreshPool(snap)
	return nil
}

// Available returns the pool sessions not yet on this draft.
func (d *Draft) Available() []domain.Session {
	onDraft := make(map[string]bool)
	for _, id := range d.Invoice.SessionIDs() {
		onDraft[id] = true
	}

	var out []domain.Session
	for _, s := range d.pool {
		if !onDraft[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// AddSession adds an available session as a line item, priced by the
// standard rate or the engine's fallback price.
func (d *Draft) AddSession(sessionID string) (domain.InvoiceItem, error) {
	if d.Invoice.CoacheeID == "" {
		return domain.InvoiceItem{}, newRuleError(ErrCodeMissingCoachee, d.Invoice.ID, "select a coachee first")
	}

	var session *domain.Session
	for _, s := range d.Available() {
		if s.ID == sessionID {
			session = &s
			break
		}
	}
	if session == nil {
		return domain.InvoiceItem{}, newRuleError(ErrCodeInvalidState, sessionID, "session is not available for this invoice")
	}

	price := d.engine.fallbackPrice
	if rate, ok := StandardRate(d.engine.store.GetState().ServiceRates); ok {
		price = rate.Price
	}

	item := SessionItem(*session, price)
	d.Invoice.Items = append(d.Invoice.Items, item)
	return item, nil
}

// AddItem appends a free-form line.
func (d *Draft) AddItem(item domain.InvoiceItem) {
	d.Invoice.Items = append(d.Invoice.Items, item)
}

// RemoveItem removes the line at index. A removed session line makes the
// session available again.
func (d *Draft) RemoveItem(index int) error {
	if index < 0 || index >= len(d.Invoice.Items) {
		return newRuleError(ErrCodeNotFound, d.Invoice.ID, "no item at index %d", index)
	}
	items := make([]domain.InvoiceItem, 0, len(d.Invoice.Items)-1)
	items = append(items, d.Invoice.Items[:index]...)
	items = append(items, d.Invoice.Items[index+1:]...)
	d.Invoice.Items = items
	return nil
}

// Totals returns the draft's current derived amounts.
func (d *Draft) Totals() Totals {
	return ComputeTotals(d.Invoice.Items, d.Invoice.TaxRate)
}

// SaveDraft stores the draft without touching any session.
func (e *Engine) SaveDraft(d *Draft) (domain.Invoice, error) {
	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	snap := e.store.GetState()
	if stored, ok := snap.Invoice(d.Invoice.ID); ok && !stored.IsDraft() {
		return domain.Invoice{}, newRuleError(ErrCodeNotDraft, d.Invoice.ID, "invoice is %s", stored.Status)
	}

	inv := e.prepare(snap, d.Invoice, d.stored)
	inv.Status = domain.InvoiceStatusDraft

	e.store.Dispatch(state.SaveInvoice{Invoice: inv})
	d.Invoice = inv.Clone()
	d.stored = true

	e.logger.Info("invoice draft saved",
		"invoice_id", inv.ID,
		"number", inv.InvoiceNumber,
		"items", len(inv.Items))
	return inv, nil
}

// FinalizeResult reports the outcome of leaving draft status.
type FinalizeResult struct {
	Invoice domain.Invoice

	// AlreadyBilled lists sessions on the invoice that another invoice
	// had settled first. They stay on the invoice and stay billed.
	AlreadyBilled []string
}

// Finalize moves the draft to a settled status, stores it and marks every
// referenced session billed, all in one transition.
func (e *Engine) Finalize(d *Draft, status domain.InvoiceStatus) (FinalizeResult, error) {
	res, err := e.finalize(d.Invoice, d.stored, status)
	if err != nil {
		return FinalizeResult{}, err
	}
	d.Invoice = res.Invoice.Clone()
	d.stored = true
	return res, nil
}

// SetInvoiceStatus changes the status of a stored invoice. Leaving draft
// status goes through the same path as Finalize. A settled invoice can move
// between settled statuses but never back to draft.
func (e *Engine) SetInvoiceStatus(invoiceID string, status domain.InvoiceStatus) (FinalizeResult, error) {
	inv, ok := e.store.GetState().Invoice(invoiceID)
	if !ok {
		return FinalizeResult{}, newRuleError(ErrCodeNotFound, invoiceID, "invoice not found")
	}
	if inv.IsSettled() && status == domain.InvoiceStatusDraft {
		return FinalizeResult{}, newRuleError(ErrCodeInvalidState, invoiceID, "settled invoice cannot return to draft")
	}
	if inv.IsDraft() && status == domain.InvoiceStatusDraft {
		return FinalizeResult{Invoice: inv}, nil
	}
	return e.finalize(inv.Clone(), true, status)
}

func (e *Engine) finalize(inv domain.Invoice, stored bool, status domain.InvoiceStatus) (FinalizeResult, error) {
	if !status.Valid() || status == domain.InvoiceStatusDraft {
		return FinalizeResult{}, newRuleError(ErrCodeInvalidState, inv.ID, "cannot finalize to status %q", status)
	}
	if inv.CoacheeID == "" {
		return FinalizeResult{}, newRuleError(ErrCodeMissingCoachee, inv.ID, "invoice has no coachee")
	}

	e.commitMu.Lock()
	defer e.commitMu.Unlock()

	snap := e.store.GetState()
	if current, ok := snap.Invoice(inv.ID); ok && current.IsSettled() && inv.IsDraft() {
		return FinalizeResult{}, newRuleError(ErrCodeNotDraft, inv.ID, "invoice is already %s", current.Status)
	}

	var already []string
	for _, id := range inv.SessionIDs() {
		s, ok := snap.Session(id)
		if !ok {
			e.logger.Warn("invoice references missing session", "invoice_id", inv.ID, "session_id", id)
			continue
		}
		if s.Billed && inv.IsDraft() {
			already = append(already, id)
		}
	}
	if len(already) > 0 {
		e.logger.Warn("sessions were billed by another invoice",
			"invoice_id", inv.ID,
			"sessions", already)
	}

	inv = e.prepare(snap, inv, stored)
	inv.Status = status

	e.store.Dispatch(state.SaveInvoice{Invoice: inv})

	e.logger.Info("invoice finalized",
		"invoice_id", inv.ID,
		"number", inv.InvoiceNumber,
		"status", string(status),
		"total", inv.Total)
	return FinalizeResult{Invoice: inv, AlreadyBilled: already}, nil
}

// prepare assigns a number to invoices that are not yet stored and recomputes
// the totals. A new invoice's number is taken against the committed store at
// commit time, so two drafts opened together never share a number. Callers
// hold commitMu.
func (e *Engine) prepare(snap domain.Snapshot, inv domain.Invoice, stored bool) domain.Invoice {
	inv = inv.Clone()
	if !stored || inv.InvoiceNumber == "" {
		inv.InvoiceNumber = NextInvoiceNumber(snap.Invoices, snap.Settings.Prefix(), e.clock.Now().Year())
	}
	if inv.Items == nil {
		inv.Items = []domain.InvoiceItem{}
	}
	return WithTotals(inv)
}
