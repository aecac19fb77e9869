package persist

import (
	"encoding/json"
	"log/slog"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/state"
)

// Synchronizer writes every changed collection to a Writer once the store
// has finished loading.
type Synchronizer struct {
	writer      Writer
	logger      *slog.Logger
	unsubscribe func()
}

// NewSynchronizer subscribes to store. Call Stop to detach.
func NewSynchronizer(store *state.Store, writer Writer, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{writer: writer, logger: logger}
	s.unsubscribe = store.Subscribe(s.observe)
	return s
}

// Stop detaches the synchronizer from the store. The writer is not closed.
func (s *Synchronizer) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Synchronizer) observe(ev state.Event) {
	// Writing before load would replace durable data with defaults.
	if !ev.Loaded {
		return
	}
	for _, c := range ev.Changed {
		s.writeCollection(ev.Next, c)
	}
}

func (s *Synchronizer) writeCollection(snap domain.Snapshot, c domain.Collection) {
	payload, err := json.Marshal(snap.Slice(c))
	if err != nil {
		s.logger.Error("serialize collection", "collection", string(c), "error", err)
		return
	}
	s.writer.Write(c.Key(), payload)
}

// WriteAll writes every collection of snap. Used to seed an empty backend.
func (s *Synchronizer) WriteAll(snap domain.Snapshot) {
	for _, c := range domain.Collections {
		s.writeCollection(snap, c)
	}
}
