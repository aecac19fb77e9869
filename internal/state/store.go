package state

import (
	"log/slog"
	"sync"

	"github.com/roach88/coachbook/internal/domain"
)

// Event describes one completed transition. Observers receive it after the
// new snapshot has been published.
type Event struct {
	Action  Action
	Prev    domain.Snapshot
	Next    domain.Snapshot
	Changed []domain.Collection

	// Loaded is false while initial hydration is still running. Persistence
	// must ignore such events so defaults never overwrite durable data.
	Loaded bool
}

// Observer is notified after every transition that changed something.
type Observer func(Event)

// Change reports which collections a dispatch changed.
type Change struct {
	Collections []domain.Collection
}

// Empty reports whether the dispatch was a no-op.
func (c Change) Empty() bool { return len(c.Collections) == 0 }

// Has reports whether collection col changed.
func (c Change) Has(col domain.Collection) bool {
	for _, changed := range c.Collections {
		if changed == col {
			return true
		}
	}
	return false
}

// Store holds the current snapshot and serializes all mutations.
//
// Thread-safety model:
//   - Dispatch(): safe from any goroutine; calls are serialized
//   - GetState(), DocumentsFor(): safe from any goroutine, including observers
//   - Observers must not call Dispatch (deadlock)
type Store struct {
	dispatchMu sync.Mutex // serializes transitions and their notifications

	mu        sync.RWMutex // guards the fields below
	snap      domain.Snapshot
	docIndex  map[string][]string
	loaded    bool
	observers []observerEntry
	nextObsID int

	logger *slog.Logger
}

type observerEntry struct {
	id int
	fn Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for transition diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSnapshot seeds the store with an initial snapshot instead of the empty one.
// The store is still not marked loaded.
func WithSnapshot(snap domain.Snapshot) Option {
	return func(s *Store) {
		s.snap = snap
	}
}

// New creates a store holding an empty snapshot with default settings.
func New(opts ...Option) *Store {
	s := &Store{
		snap:   domain.EmptySnapshot(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.docIndex = buildDocumentIndex(s.snap.Documents)
	return s
}

// GetState returns the current snapshot. The result is read-only.
func (s *Store) GetState() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Loaded reports whether initial hydration has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// MarkLoaded records that initial hydration finished. From now on observers
// see Loaded=true on every event.
func (s *Store) MarkLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
}

// Subscribe registers an observer. The returned function removes it.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextObsID++
	id := s.nextObsID
	s.observers = append(s.observers, observerEntry{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies a and notifies observers. It returns the collections that
// changed. A no-op action (for example an update of an unknown id) changes
// nothing and notifies nobody.
func (s *Store) Dispatch(a Action) Change {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	s.mu.Lock()
	prev := s.snap
	next, changed := apply(prev, a)
	if len(changed) == 0 {
		s.mu.Unlock()
		s.logger.Debug("action was a no-op", "action", Name(a))
		return Change{}
	}
	s.snap = next
	for _, c := range changed {
		if c == domain.CollectionDocuments {
			s.docIndex = buildDocumentIndex(next.Documents)
		}
	}
	loaded := s.loaded
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.logger.Debug("action applied",
		"action", Name(a),
		"changed", changed,
		"loaded", loaded,
	)

	ev := Event{Action: a, Prev: prev, Next: next, Changed: changed, Loaded: loaded}
	for _, o := range observers {
		o.fn(ev)
	}

	return Change{Collections: changed}
}

// DocumentsFor returns the documents attached to a coachee, in the order
// they were added to the Documents collection.
func (s *Store) DocumentsFor(coacheeID string) []domain.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.docIndex[coacheeID]
	if len(ids) == 0 {
		return nil
	}
	byID := make(map[string]domain.Document, len(s.snap.Documents))
	for _, d := range s.snap.Documents {
		byID[d.ID] = d
	}
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if d, ok := byID[id]; ok {
			out = append(out, d)
		}
	}
	return out
}

// buildDocumentIndex maps coachee id → document ids. General documents
// (no coachee) are not indexed.
func buildDocumentIndex(docs []domain.Document) map[string][]string {
	idx := make(map[string][]string)
	for _, d := range docs {
		if d.CoacheeID == nil {
			continue
		}
		idx[*d.CoacheeID] = append(idx[*d.CoacheeID], d.ID)
	}
	return idx
}
