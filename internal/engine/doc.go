// Package engine implements the business rules layered on the domain store.
//
// The engine never mutates entities directly. Every operation reads the
// committed snapshot, derives new values, and commits them through one
// state.Action, so each rule lands in a single transition.
//
// RULES:
//
// Invoice numbering:
// Numbers have the form PREFIX-YEAR-SEQ. The next number is derived from the
// lexicographically greatest existing number. A new calendar year, or a
// malformed latest number, restarts the sequence at 001. Otherwise the
// sequence is incremented and padded to the width of the previous number.
//
// Billing:
// A Draft holds a local candidate pool of unbilled sessions. Adding a session
// to a draft only removes it from that draft's pool. Sessions are marked
// billed when the invoice leaves draft status, in the same transition that
// stores the invoice. Marking is a set, never a toggle.
//
// Totals:
// subtotal, taxAmount and total are recomputed from the items and tax rate
// before every write. Stored totals are never trusted.
//
// Consent:
// Granting consent renders the policy through a Renderer first. Only when a
// non-empty artifact comes back are the document and the consent flag
// committed, together.
//
// Recurring schedules:
// Schedules are declarative. NextDueDate moves only through AdvanceSchedule
// or IssueDue, one interval at a time and always forward. A schedule keeps
// its anchor day of month; shorter months clamp to their last day.
package engine
