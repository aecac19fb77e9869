// Package state implements the domain store: the single authoritative
// in-memory copy of every business entity.
//
// ARCHITECTURE:
//
// Single-Writer Dispatch:
// Dispatch is the only mutation path. Calls are serialized, so two actions
// never interleave mid-transition. Each transition:
//  1. Applies the action to the current snapshot (copy on write).
//  2. Publishes the new snapshot.
//  3. Rebuilds derived indexes for the changed collections.
//  4. Notifies observers synchronously, in subscription order.
//
// Collections the action did not touch keep their backing slice and revision,
// so observers can detect change cheaply.
//
// Observers run on the dispatching goroutine. They may read the store but
// MUST NOT call Dispatch; that deadlocks.
//
// The store never validates entities beyond their structure. Callers (the
// rule engine, the CLI) own validation.
package state
