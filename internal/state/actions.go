package state

import "github.com/roach88/coachbook/internal/domain"

// Action is one named state transition. The set of actions is closed: only
// types declared in this package implement it.
type Action interface {
	actionName() string
}

// Name returns the action's catalogue name, e.g. "addCoachee".
func Name(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// Coachees.
type (
	SetCoachees   struct{ Coachees []domain.Coachee }
	AddCoachee    struct{ Coachee domain.Coachee }
	UpdateCoachee struct{ Coachee domain.Coachee }
	RemoveCoachee struct{ ID string }
)

// Sessions.
type (
	SetSessions   struct{ Sessions []domain.Session }
	AddSession    struct{ Session domain.Session }
	UpdateSession struct{ Session domain.Session }
	RemoveSession struct{ ID string }
)

// Invoices.
type (
	SetInvoices   struct{ Invoices []domain.Invoice }
	AddInvoice    struct{ Invoice domain.Invoice }
	UpdateInvoice struct{ Invoice domain.Invoice }
	RemoveInvoice struct{ ID string }
)

// Recurring invoice schedules.
type (
	SetRecurringInvoices   struct{ Schedules []domain.RecurringInvoiceSchedule }
	AddRecurringInvoice    struct{ Schedule domain.RecurringInvoiceSchedule }
	UpdateRecurringInvoice struct{ Schedule domain.RecurringInvoiceSchedule }
	RemoveRecurringInvoice struct{ ID string }
)

// Service rates.
type (
	SetServiceRates   struct{ Rates []domain.ServiceRate }
	AddServiceRate    struct{ Rate domain.ServiceRate }
	UpdateServiceRate struct{ Rate domain.ServiceRate }
	RemoveServiceRate struct{ ID string }
)

// Documents.
type (
	SetDocuments   struct{ Documents []domain.Document }
	AddDocument    struct{ Document domain.Document }
	UpdateDocument struct{ Document domain.Document }
	RemoveDocument struct{ ID string }
)

// Journal entries.
type (
	SetJournalEntries  struct{ Entries []domain.JournalEntry }
	AddJournalEntry    struct{ Entry domain.JournalEntry }
	UpdateJournalEntry struct{ Entry domain.JournalEntry }
	RemoveJournalEntry struct{ ID string }
)

// Tasks.
type (
	SetTasks   struct{ Tasks []domain.Task }
	AddTask    struct{ Task domain.Task }
	UpdateTask struct{ Task domain.Task }
	RemoveTask struct{ ID string }
)

// SetSettings replaces the settings singleton.
type SetSettings struct{ Settings domain.Settings }

// AttachConsentDocument appends a consent document and flips the coachee's
// consent flag in one transition. If the coachee does not exist, or the
// consent is already granted, nothing changes.
type AttachConsentDocument struct {
	Document    domain.Document
	CoacheeID   string
	ConsentType domain.ConsentType
}

// SaveInvoice inserts or replaces an invoice. When the saved invoice is no
// longer a draft, every session it references is marked billed in the same
// transition. Marking is idempotent.
type SaveInvoice struct{ Invoice domain.Invoice }

// IssueRecurringInvoice stores an invoice issued by a schedule together with
// the schedule's advanced state. If the schedule no longer exists nothing
// changes.
type IssueRecurringInvoice struct {
	Invoice  domain.Invoice
	Schedule domain.RecurringInvoiceSchedule
}

func (SetCoachees) actionName() string   { return "setCoachees" }
func (AddCoachee) actionName() string    { return "addCoachee" }
func (UpdateCoachee) actionName() string { return "updateCoachee" }
func (RemoveCoachee) actionName() string { return "removeCoachee" }

func (SetSessions) actionName() string   { return "setSessions" }
func (AddSession) actionName() string    { return "addSession" }
func (UpdateSession) actionName() string { return "updateSession" }
func (RemoveSession) actionName() string { return "removeSession" }

func (SetInvoices) actionName() string   { return "setInvoices" }
func (AddInvoice) actionName() string    { return "addInvoice" }
func (UpdateInvoice) actionName() string { return "updateInvoice" }
func (RemoveInvoice) actionName() string { return "removeInvoice" }

func (SetRecurringInvoices) actionName() string   { return "setRecurringInvoices" }
func (AddRecurringInvoice) actionName() string    { return "addRecurringInvoice" }
func (UpdateRecurringInvoice) actionName() string { return "updateRecurringInvoice" }
func (RemoveRecurringInvoice) actionName() string { return "removeRecurringInvoice" }

func (SetServiceRates) actionName() string   { return "setServiceRates" }
func (AddServiceRate) actionName() string    { return "addServiceRate" }
func (UpdateServiceRate) actionName() string { return "updateServiceRate" }
func (RemoveServiceRate) actionName() string { return "removeServiceRate" }

func (SetDocuments) actionName() string   { return "setDocuments" }
func (AddDocument) actionName() string    { return "addDocument" }
func (UpdateDocument) actionName() string { return "updateDocument" }
func (RemoveDocument) actionName() string { return "removeDocument" }

func (SetJournalEntries) actionName() string  { return "setJournalEntries" }
func (AddJournalEntry) actionName() string    { return "addJournalEntry" }
func (UpdateJournalEntry) actionName() string { return "updateJournalEntry" }
func (RemoveJournalEntry) actionName() string { return "removeJournalEntry" }

func (SetTasks) actionName() string   { return "setTasks" }
func (AddTask) actionName() string    { return "addTask" }
func (UpdateTask) actionName() string { return "updateTask" }
func (RemoveTask) actionName() string { return "removeTask" }

func (SetSettings) actionName() string           { return "setSettings" }
func (AttachConsentDocument) actionName() string { return "attachConsentDocument" }
func (SaveInvoice) actionName() string           { return "saveInvoice" }
func (IssueRecurringInvoice) actionName() string { return "issueRecurringInvoice" }
