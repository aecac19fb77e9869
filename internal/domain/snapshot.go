package domain

// Snapshot is the complete in-memory state at one point in time.
//
// Snapshots are produced by the state store only. Treat every slice and map
// reachable from a Snapshot as read-only: the store shares unchanged
// collections between consecutive snapshots.
type Snapshot struct {
	Coachees          []Coachee                  `json:"coachees"`
	Sessions          []Session                  `json:"sessions"`
	Invoices          []Invoice                  `json:"invoices"`
	RecurringInvoices []RecurringInvoiceSchedule `json:"recurringInvoices"`
	ServiceRates      []ServiceRate              `json:"serviceRates"`
	Documents         []Document                 `json:"documents"`
	JournalEntries    []JournalEntry             `json:"journalEntries"`
	Tasks             []Task                     `json:"tasks"`
	Settings          Settings                   `json:"settings"`

	Revisions Revisions `json:"-"`
}

// EmptySnapshot returns a snapshot with empty collections and default settings.
func EmptySnapshot() Snapshot {
	return Snapshot{
		Coachees:          []Coachee{},
		Sessions:          []Session{},
		Invoices:          []Invoice{},
		RecurringInvoices: []RecurringInvoiceSchedule{},
		ServiceRates:      []ServiceRate{},
		Documents:         []Document{},
		JournalEntries:    []JournalEntry{},
		Tasks:             []Task{},
		Settings:          DefaultSettings(),
	}
}

// Slice returns the collection value for c, ready for JSON serialization.
// Settings is returned as a value; everything else as its slice.
func (s Snapshot) Slice(c Collection) any {
	switch c {
	case CollectionCoachees:
		return s.Coachees
	case CollectionSessions:
		return s.Sessions
	case CollectionInvoices:
		return s.Invoices
	case CollectionRecurringInvoices:
		return s.RecurringInvoices
	case CollectionServiceRates:
		return s.ServiceRates
	case CollectionDocuments:
		return s.Documents
	case CollectionJournalEntries:
		return s.JournalEntries
	case CollectionTasks:
		return s.Tasks
	case CollectionSettings:
		return s.Settings
	}
	return nil
}

// Coachee looks up a coachee by id.
func (s Snapshot) Coachee(id string) (Coachee, bool) {
	for _, c := range s.Coachees {
		if c.ID == id {
			return c, true
		}
	}
	return Coachee{}, false
}

// CoacheeDisplayName returns the coachee's display name, or
// UnknownCoacheeName when the reference dangles.
func (s Snapshot) CoacheeDisplayName(id string) string {
	if c, ok := s.Coachee(id); ok {
		return c.DisplayName()
	}
	return UnknownCoacheeName
}

// Session looks up a session by id.
func (s Snapshot) Session(id string) (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

// Invoice looks up an invoice by id.
func (s Snapshot) Invoice(id string) (Invoice, bool) {
	for _, inv := range s.Invoices {
		if inv.ID == id {
			return inv, true
		}
	}
	return Invoice{}, false
}

// Schedule looks up a recurring schedule by id.
func (s Snapshot) Schedule(id string) (RecurringInvoiceSchedule, bool) {
	for _, sch := range s.RecurringInvoices {
		if sch.ID == id {
			return sch, true
		}
	}
	return RecurringInvoiceSchedule{}, false
}

// Rate looks up a service rate by id.
func (s Snapshot) Rate(id string) (ServiceRate, bool) {
	for _, r := range s.ServiceRates {
		if r.ID == id {
			return r, true
		}
	}
	return ServiceRate{}, false
}

// Document looks up a document by id.
func (s Snapshot) Document(id string) (Document, bool) {
	for _, d := range s.Documents {
		if d.ID == id {
			return d, true
		}
	}
	return Document{}, false
}

// Task looks up a task by id.
func (s Snapshot) Task(id string) (Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}
