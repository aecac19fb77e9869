package state

import "github.com/roach88/coachbook/internal/domain"

// apply computes the next snapshot for a. It returns the collections that
// changed; an empty result means a is a no-op and prev is returned unchanged.
//
// apply never writes into a slice reachable from prev. Changed collections
// always get a fresh backing array.
func apply(prev domain.Snapshot, a Action) (domain.Snapshot, []domain.Collection) {
	next := prev
	var changed []domain.Collection
	mark := func(c domain.Collection, ok bool) {
		if ok {
			changed = append(changed, c)
		}
	}

	switch act := a.(type) {
	case SetCoachees:
		next.Coachees = setAll(act.Coachees)
		mark(domain.CollectionCoachees, true)
	case AddCoachee:
		next.Coachees = appendCopy(prev.Coachees, act.Coachee)
		mark(domain.CollectionCoachees, true)
	case UpdateCoachee:
		var ok bool
		next.Coachees, ok = replaceByID(prev.Coachees, coacheeID, act.Coachee)
		mark(domain.CollectionCoachees, ok)
	case RemoveCoachee:
		var ok bool
		next.Coachees, ok = removeByID(prev.Coachees, coacheeID, act.ID)
		mark(domain.CollectionCoachees, ok)

	case SetSessions:
		next.Sessions = setAll(act.Sessions)
		mark(domain.CollectionSessions, true)
	case AddSession:
		next.Sessions = appendCopy(prev.Sessions, act.Session)
		mark(domain.CollectionSessions, true)
	case UpdateSession:
		var ok bool
		next.Sessions, ok = replaceByID(prev.Sessions, sessionID, act.Session)
		mark(domain.CollectionSessions, ok)
	case RemoveSession:
		var ok bool
		next.Sessions, ok = removeByID(prev.Sessions, sessionID, act.ID)
		mark(domain.CollectionSessions, ok)

	case SetInvoices:
		next.Invoices = setAll(act.Invoices)
		mark(domain.CollectionInvoices, true)
	case AddInvoice:
		next.Invoices = appendCopy(prev.Invoices, act.Invoice)
		mark(domain.CollectionInvoices, true)
	case UpdateInvoice:
		var ok bool
		next.Invoices, ok = replaceByID(prev.Invoices, invoiceID, act.Invoice)
		mark(domain.CollectionInvoices, ok)
	case RemoveInvoice:
		var ok bool
		next.Invoices, ok = removeByID(prev.Invoices, invoiceID, act.ID)
		mark(domain.CollectionInvoices, ok)

	case SetRecurringInvoices:
		next.RecurringInvoices = setAll(act.Schedules)
		mark(domain.CollectionRecurringInvoices, true)
	case AddRecurringInvoice:
		next.RecurringInvoices = appendCopy(prev.RecurringInvoices, act.Schedule)
		mark(domain.CollectionRecurringInvoices, true)
	case UpdateRecurringInvoice:
		var ok bool
		next.RecurringInvoices, ok = replaceByID(prev.RecurringInvoices, scheduleID, act.Schedule)
		mark(domain.CollectionRecurringInvoices, ok)
	case RemoveRecurringInvoice:
		var ok bool
		next.RecurringInvoices, ok = removeByID(prev.RecurringInvoices, scheduleID, act.ID)
		mark(domain.CollectionRecurringInvoices, ok)

	case SetServiceRates:
		next.ServiceRates = setAll(act.Rates)
		mark(domain.CollectionServiceRates, true)
	case AddServiceRate:
		next.ServiceRates = appendCopy(prev.ServiceRates, act.Rate)
		mark(domain.CollectionServiceRates, true)
	case UpdateServiceRate:
		var ok bool
		next.ServiceRates, ok = replaceByID(prev.ServiceRates, rateID, act.Rate)
		mark(domain.CollectionServiceRates, ok)
	case RemoveServiceRate:
		var ok bool
		next.ServiceRates, ok = removeByID(prev.ServiceRates, rateID, act.ID)
		mark(domain.CollectionServiceRates, ok)

	case SetDocuments:
		next.Documents = setAll(act.Documents)
		mark(domain.CollectionDocuments, true)
	case AddDocument:
		next.Documents = appendCopy(prev.Documents, act.Document)
		mark(domain.CollectionDocuments, true)
	case UpdateDocument:
		var ok bool
		next.Documents, ok = replaceByID(prev.Documents, documentID, act.Document)
		mark(domain.CollectionDocuments, ok)
	case RemoveDocument:
		var ok bool
		next.Documents, ok = removeByID(prev.Documents, documentID, act.ID)
		mark(domain.CollectionDocuments, ok)

	case SetJournalEntries:
		next.JournalEntries = setAll(act.Entries)
		mark(domain.CollectionJournalEntries, true)
	case AddJournalEntry:
		next.JournalEntries = appendCopy(prev.JournalEntries, act.Entry)
		mark(domain.CollectionJournalEntries, true)
	case UpdateJournalEntry:
		var ok bool
		next.JournalEntries, ok = replaceByID(prev.JournalEntries, journalID, act.Entry)
		mark(domain.CollectionJournalEntries, ok)
	case RemoveJournalEntry:
		var ok bool
		next.JournalEntries, ok = removeByID(prev.JournalEntries, journalID, act.ID)
		mark(domain.CollectionJournalEntries, ok)

	case SetTasks:
		next.Tasks = setAll(act.Tasks)
		mark(domain.CollectionTasks, true)
	case AddTask:
		next.Tasks = appendCopy(prev.Tasks, act.Task)
		mark(domain.CollectionTasks, true)
	case UpdateTask:
		var ok bool
		next.Tasks, ok = replaceByID(prev.Tasks, taskID, act.Task)
		mark(domain.CollectionTasks, ok)
	case RemoveTask:
		var ok bool
		next.Tasks, ok = removeByID(prev.Tasks, taskID, act.ID)
		mark(domain.CollectionTasks, ok)

	case SetSettings:
		next.Settings = act.Settings
		mark(domain.CollectionSettings, true)

	case AttachConsentDocument:
		return applyAttachConsent(prev, act)
	case SaveInvoice:
		return applySaveInvoice(prev, act)
	case IssueRecurringInvoice:
		return applyIssueRecurring(prev, act)
	}

	for _, c := range changed {
		next.Revisions.Bump(c)
	}
	return next, changed
}

// applyAttachConsent is all-or-nothing: either both the document and the
// consent flag land, or neither does. A granted consent has exactly one
// archival document, so a second grant is a no-op.
func applyAttachConsent(prev domain.Snapshot, act AttachConsentDocument) (domain.Snapshot, []domain.Collection) {
	idx := indexByID(prev.Coachees, coacheeID, act.CoacheeID)
	if idx < 0 || prev.Coachees[idx].HasConsent(act.ConsentType) {
		return prev, nil
	}

	coachee := prev.Coachees[idx].Clone()
	if coachee.Consents == nil {
		coachee.Consents = make(map[string]bool, 1)
	}
	coachee.Consents[string(act.ConsentType)] = true

	doc := act.Document
	if doc.CoacheeID == nil {
		id := act.CoacheeID
		doc.CoacheeID = &id
	}

	next := prev
	next.Coachees = cloneSlice(prev.Coachees)
	next.Coachees[idx] = coachee
	next.Documents = appendCopy(prev.Documents, doc)

	changed := []domain.Collection{domain.CollectionCoachees, domain.CollectionDocuments}
	for _, c := range changed {
		next.Revisions.Bump(c)
	}
	return next, changed
}

// applySaveInvoice upserts the invoice and, for settled invoices, sets
// billed=true on every referenced session that is not billed yet. Sessions
// that are already billed or no longer exist are left alone.
func applySaveInvoice(prev domain.Snapshot, act SaveInvoice) (domain.Snapshot, []domain.Collection) {
	next := prev
	inv := act.Invoice.Clone()

	if replaced, ok := replaceByID(prev.Invoices, invoiceID, inv); ok {
		next.Invoices = replaced
	} else {
		next.Invoices = appendCopy(prev.Invoices, inv)
	}
	changed := []domain.Collection{domain.CollectionInvoices}

	if inv.IsSettled() {
		var sessions []domain.Session
		for _, id := range inv.SessionIDs() {
			idx := indexByID(prev.Sessions, sessionID, id)
			if idx < 0 || prev.Sessions[idx].Billed {
				continue
			}
			if sessions == nil {
				sessions = cloneSlice(prev.Sessions)
			}
			sessions[idx].Billed = true
		}
		if sessions != nil {
			next.Sessions = sessions
			changed = append(changed, domain.CollectionSessions)
		}
	}

	for _, c := range changed {
		next.Revisions.Bump(c)
	}
	return next, changed
}

// applyIssueRecurring stores a draft invoice and the schedule that issued it
// in one transition.
func applyIssueRecurring(prev domain.Snapshot, act IssueRecurringInvoice) (domain.Snapshot, []domain.Collection) {
	schedules, ok := replaceByID(prev.RecurringInvoices, scheduleID, act.Schedule)
	if !ok {
		return prev, nil
	}

	next, changed := applySaveInvoice(prev, SaveInvoice{Invoice: act.Invoice})
	next.RecurringInvoices = schedules
	next.Revisions.Bump(domain.CollectionRecurringInvoices)
	return next, append(changed, domain.CollectionRecurringInvoices)
}

func coacheeID(c domain.Coachee) string                   { return c.ID }
func sessionID(s domain.Session) string                   { return s.ID }
func invoiceID(i domain.Invoice) string                   { return i.ID }
func scheduleID(s domain.RecurringInvoiceSchedule) string { return s.ID }
func rateID(r domain.ServiceRate) string                  { return r.ID }
func documentID(d domain.Document) string                 { return d.ID }
func journalID(j domain.JournalEntry) string              { return j.ID }
func taskID(t domain.Task) string                         { return t.ID }

// setAll copies items so the caller cannot mutate the stored collection later.
// A nil input becomes an empty collection.
func setAll[T any](items []T) []T {
	out := make([]T, len(items))
	copy(out, items)
	return out
}

func cloneSlice[T any](items []T) []T {
	return setAll(items)
}

// appendCopy appends v to a fresh copy of items.
func appendCopy[T any](items []T, v T) []T {
	out := make([]T, len(items), len(items)+1)
	copy(out, items)
	return append(out, v)
}

func indexByID[T any](items []T, idOf func(T) string, id string) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

// replaceByID returns a copy of items with the entity matching v's id replaced.
// ok is false, and items is returned untouched, when nothing matches.
func replaceByID[T any](items []T, idOf func(T) string, v T) ([]T, bool) {
	idx := indexByID(items, idOf, idOf(v))
	if idx < 0 {
		return items, false
	}
	out := cloneSlice(items)
	out[idx] = v
	return out, true
}

// removeByID returns a copy of items without the entity with the given id.
func removeByID[T any](items []T, idOf func(T) string, id string) ([]T, bool) {
	idx := indexByID(items, idOf, id)
	if idx < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:idx]...)
	out = append(out, items[idx+1:]...)
	return out, true
}
