package persist

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/coachbook/internal/domain"
	"github.com/roach88/coachbook/internal/durable"
	"github.com/roach88/coachbook/internal/state"
)

// Report describes what hydration found.
type Report struct {
	// Absent lists collections with no stored value.
	Absent []domain.Collection

	// Corrupt lists collections whose stored value could not be read or decoded.
	Corrupt []domain.Collection
}

// Defaulted reports whether c was replaced by its default.
func (r Report) Defaulted(c domain.Collection) bool {
	return slices.Contains(r.Absent, c) || slices.Contains(r.Corrupt, c)
}

// Hydrate loads every collection from adapter into store and marks it loaded.
//
// Absent or unreadable collections become their empty default; settings start
// from domain.DefaultSettings() so fields missing from a stored object keep
// their defaults. Neither case is an error. Hydrate only fails when ctx ends
// first, and then the store is left unloaded.
func Hydrate(ctx context.Context, adapter durable.Adapter, store *state.Store, logger *slog.Logger) (Report, error) {
	if logger == nil {
		logger = slog.Default()
	}

	snap := domain.EmptySnapshot()
	decoders := map[domain.Collection]func([]byte) error{
		domain.CollectionCoachees:          func(b []byte) error { return decodeInto(b, &snap.Coachees) },
		domain.CollectionSessions:          func(b []byte) error { return decodeInto(b, &snap.Sessions) },
		domain.CollectionInvoices:          func(b []byte) error { return decodeInto(b, &snap.Invoices) },
		domain.CollectionRecurringInvoices: func(b []byte) error { return decodeInto(b, &snap.RecurringInvoices) },
		domain.CollectionServiceRates:      func(b []byte) error { return decodeInto(b, &snap.ServiceRates) },
		domain.CollectionDocuments:         func(b []byte) error { return decodeInto(b, &snap.Documents) },
		domain.CollectionJournalEntries:    func(b []byte) error { return decodeInto(b, &snap.JournalEntries) },
		domain.CollectionTasks:             func(b []byte) error { return decodeInto(b, &snap.Tasks) },
		domain.CollectionSettings:          func(b []byte) error { return decodeInto(b, &snap.Settings) },
	}

	var (
		mu     sync.Mutex
		report Report
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range domain.Collections {
		c := c
		decode := decoders[c]
		g.Go(func() error {
			raw, err := adapter.Get(gctx, c.Key())
			switch {
			case errors.Is(err, durable.ErrNotFound):
				mu.Lock()
				report.Absent = append(report.Absent, c)
				mu.Unlock()
				return nil
			case err != nil:
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				logger.Warn("durable read failed, using default", "collection", string(c), "error", err)
			default:
				if err = decode(raw); err == nil {
					return nil
				}
				logger.Warn("durable value corrupt, using default", "collection", string(c), "error", err)
			}
			mu.Lock()
			report.Corrupt = append(report.Corrupt, c)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	// Goroutines finish in any order.
	report.Absent = inCollectionOrder(report.Absent)
	report.Corrupt = inCollectionOrder(report.Corrupt)

	store.Dispatch(state.SetCoachees{Coachees: snap.Coachees})
	store.Dispatch(state.SetSessions{Sessions: snap.Sessions})
	store.Dispatch(state.SetInvoices{Invoices: snap.Invoices})
	store.Dispatch(state.SetRecurringInvoices{Schedules: snap.RecurringInvoices})
	store.Dispatch(state.SetServiceRates{Rates: snap.ServiceRates})
	store.Dispatch(state.SetDocuments{Documents: snap.Documents})
	store.Dispatch(state.SetJournalEntries{Entries: snap.JournalEntries})
	store.Dispatch(state.SetTasks{Tasks: snap.Tasks})
	store.Dispatch(state.SetSettings{Settings: snap.Settings})
	store.MarkLoaded()

	logger.Info("store hydrated",
		"coachees", len(snap.Coachees),
		"sessions", len(snap.Sessions),
		"invoices", len(snap.Invoices),
		"documents", len(snap.Documents),
		"absent", len(report.Absent),
		"corrupt", len(report.Corrupt))
	return report, nil
}

// decodeInto decodes raw into *dst, starting from its current value.
// On error *dst is left untouched.
func decodeInto[T any](raw []byte, dst *T) error {
	v := *dst
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	*dst = v
	return nil
}

func inCollectionOrder(cs []domain.Collection) []domain.Collection {
	var out []domain.Collection
	for _, c := range domain.Collections {
		if slices.Contains(cs, c) {
			out = append(out, c)
		}
	}
	return out
}
