// Package harness runs YAML scenarios against a fresh store and rule engine.
//
// A scenario seeds the store, replays a list of steps through the engine and
// then checks assertions against the final snapshot and the durable copy.
// It backs the package-level conformance tests and the `coachbook test`
// command.
//
// # Scenario Format
//
//	name: finalize_standard_session
//	description: "One completed session becomes one invoice line"
//	today: 2025-03-15
//	data:                      # seed document, same format as `coachbook import`
//	  serviceRates:
//	    - {id: r1, name: Standard Coaching, price: 120}
//	  coachees:
//	    - {id: c1, firstName: Clara, lastName: Meyer}
//	  sessions:
//	    - {id: s1, coacheeId: c1, date: 2025-03-10, status: completed}
//	steps:
//	  - do: create_invoice
//	    coachee: c1
//	    as: inv
//	  - do: add_session
//	    draft: inv
//	    session: s1
//	  - do: finalize
//	    draft: inv
//	    status: sent
//	assertions:
//	  - type: invoice_number
//	    invoice: inv
//	    equals: CS-2025-001
//	  - type: session_billed
//	    session: s1
//	    billed: true
//
// Steps that are expected to fail carry `expect: {error: CODE}` with one of
// the engine's rule error codes.
//
// # Step Types
//
//   - create_invoice, edit_invoice, select_coachee, add_session, add_item,
//     remove_item, save_draft, finalize, set_status
//   - grant_consent
//   - create_schedule, pause_schedule, resume_schedule, advance_schedule,
//     remove_schedule, issue_due
//   - advance_clock
//
// # Assertion Types
//
//   - invoice_number, invoice_totals, invoice_status, invoice_count
//   - session_billed, unbilled_count
//   - consent_granted, document_count
//   - schedule_due
//   - persisted: the durable copy hydrates into the same snapshot
//
// # Deterministic Testing
//
// Every run uses a testutil.DeterministicClock frozen at `today`,
// sequential ids and an in-memory durable adapter written through a
// DirectWriter, so traces are stable enough for golden comparison.
package harness
