// Package domain defines the business entities of a coaching practice and the
// immutable Snapshot that holds them.
//
// This package contains type definitions and pure read helpers only. All other
// internal packages import domain; domain imports nothing internal.
//
// Key design constraints:
//   - Every entity lives inside its parent collection and is serialized wholesale
//     under that collection's durable key (see Collection).
//   - Snapshots are values. Slices and maps reachable from a Snapshot are shared
//     between snapshots and MUST NOT be mutated by readers.
//   - Invoice totals are derived from items and tax rate; they are recomputed
//     by the rule engine before every write and never trusted from input.
//   - Dangling references (an invoice pointing at a removed coachee) are legal;
//     read helpers return placeholders instead of failing.
package domain
