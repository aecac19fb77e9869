// Package persist keeps durable storage in step with the domain store.
//
// ARCHITECTURE:
//
// Hydration:
// Hydrate reads every collection key concurrently, substitutes the empty
// collection or default settings for anything absent or unreadable, loads the
// result through Set actions and only then marks the store loaded.
//
// Write-through:
// The Synchronizer observes the store. For every transition after load it
// serializes each changed collection and hands the payload to a Writer. It
// never blocks on storage and never reports a failure to the dispatcher.
//
// Writers:
//   - AsyncWriter: FIFO queue drained by one goroutine (default)
//   - DirectWriter: writes inline on the dispatching goroutine
//
// Each write replaces the whole collection, so a repeated or reordered write
// of the same payload is harmless. In-memory state can still be ahead of
// durable state if the process dies before the queue drains; there is no
// write-ahead log.
package persist
