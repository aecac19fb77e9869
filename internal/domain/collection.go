package domain

// Collection names one entity collection. The string value is the durable
// storage key the collection is serialized under.
type Collection string

const (
	CollectionCoachees          Collection = "coachees"
	CollectionSessions          Collection = "sessions"
	CollectionInvoices          Collection = "invoices"
	CollectionRecurringInvoices Collection = "recurringInvoices"
	CollectionServiceRates      Collection = "serviceRates"
	CollectionDocuments         Collection = "documents"
	CollectionJournalEntries    Collection = "journalEntries"
	CollectionTasks             Collection = "tasks"
	CollectionSettings          Collection = "settings"
)

// Collections lists every collection in a fixed order.
// The order is used for hydration and for deterministic change reporting.
var Collections = []Collection{
	CollectionCoachees,
	CollectionSessions,
	CollectionInvoices,
	CollectionRecurringInvoices,
	CollectionServiceRates,
	CollectionDocuments,
	CollectionJournalEntries,
	CollectionTasks,
	CollectionSettings,
}

// Key returns the durable storage key.
func (c Collection) Key() string { return string(c) }

// Valid reports whether c is a known collection.
func (c Collection) Valid() bool { return c.index() >= 0 }

func (c Collection) index() int {
	for i, known := range Collections {
		if known == c {
			return i
		}
	}
	return -1
}

// Revisions counts transitions per collection. A collection whose revision
// did not change between two snapshots still shares its backing slice.
type Revisions [9]uint64

// Of returns the revision of c. Unknown collections report 0.
func (r Revisions) Of(c Collection) uint64 {
	i := c.index()
	if i < 0 {
		return 0
	}
	return r[i]
}

// Bump increments the revision of c.
func (r *Revisions) Bump(c Collection) {
	if i := c.index(); i >= 0 {
		r[i]++
	}
}
