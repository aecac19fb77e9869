package seed

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/engine"
	"github.com/roach88/coachbook/internal/state"
)

// Apply replaces every collection present in s. Invoice totals are
// recomputed before they reach the store. It returns the collections set.
func Apply(store *state.Store, s *Seed) []domain.Collection {
	var applied []domain.Collection
	set := func(c domain.Collection, a state.Action) {
		store.Dispatch(a)
		applied = append(applied, c)
	}

	if s.Coachees != nil {
		set(domain.CollectionCoachees, state.SetCoachees{Coachees: s.Coachees})
	}
	if s.Sessions != nil {
		set(domain.CollectionSessions, state.SetSessions{Sessions: s.Sessions})
	}
	if s.Invoices != nil {
		invoices := make([]domain.Invoice, len(s.Invoices))
		for i, inv := range s.Invoices {
			invoices[i] = engine.WithTotals(inv)
		}
		set(domain.CollectionInvoices, state.SetInvoices{Invoices: invoices})
	}
	if s.RecurringInvoices != nil {
		set(domain.CollectionRecurringInvoices, state.SetRecurringInvoices{Schedules: s.RecurringInvoices})
	}
	if s.ServiceRates != nil {
		set(domain.CollectionServiceRates, state.SetServiceRates{Rates: s.ServiceRates})
	}
	if s.Documents != nil {
		set(domain.CollectionDocuments, state.SetDocuments{Documents: s.Documents})
	}
	if s.JournalEntries != nil {
		set(domain.CollectionJournalEntries, state.SetJournalEntries{Entries: s.JournalEntries})
	}
	if s.Tasks != nil {
		set(domain.CollectionTasks, state.SetTasks{Tasks: s.Tasks})
	}
	if s.Settings != nil {
		set(domain.CollectionSettings, state.SetSettings{Settings: *s.Settings})
	}
	return applied
}

// FromSnapshot builds a seed holding every collection of snap.
func FromSnapshot(snap domain.Snapshot) *Seed {
	settings := snap.Settings
	return &Seed{
		Settings:          &settings,
		Coachees:          snap.Coachees,
		Sessions:          snap.Sessions,
		Invoices:          snap.Invoices,
		RecurringInvoices: snap.RecurringInvoices,
		ServiceRates:      snap.ServiceRates,
		Documents:         snap.Documents,
		JournalEntries:    snap.JournalEntries,
		Tasks:             snap.Tasks,
	}
}

// Encode writes s as JSON or YAML using the JSON field names, so the output
// loads back with Load.
func Encode(w io.Writer, s *Seed, format Format) error {
	js, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seed: %w", err)
	}

	switch format {
	case FormatJSON:
		_, err = w.Write(append(js, '\n'))
		return err
	case FormatYAML:
		var generic any
		if err := json.Unmarshal(js, &generic); err != nil {
			return fmt.Errorf("encode seed: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("encode seed: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("cannot export as %q", format)
}
