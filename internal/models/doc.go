// Package models defines the core domain models for rollcall.
//
// # Models
//
//   - Activity: an event or meeting an organizer runs
//   - Participant: one person's commitment record against one Activity
//   - Ticket / TicketLink: externally-owned support tickets attached to meetings
//   - Obligation: a computed view over payments or tickets that can block closure
//   - Cents: integer money amounts, rendered as "12.34" on the wire
//
// # Design Principles
//
// 1. **No floating point money**: every amount is a whole number of cents
// 2. **IDs, not pointers**: relationships are expressed with ID strings
// 3. **Never delete participants**: history stays auditable while the activity exists
// 4. **Derived fields stay derived**: AmountOwed and Paid are recomputed, never edited directly
package models
