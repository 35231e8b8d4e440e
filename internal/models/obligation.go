package models

// TicketStatus mirrors the external ticket system's lifecycle.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketInProgress, TicketClosed:
		return true
	}
	return false
}

// Ticket is the last known state of an external support ticket.
type Ticket struct {
	Ref       string
	Status    TicketStatus
	UpdatedAt int64
}

// TicketLink attaches a ticket to a meeting.
type TicketLink struct {
	ActivityID string
	TicketRef  string

	// Internal links never block settlement.
	Internal bool

	// Ticket is the joined ticket record, nil when the ticket system has
	// never reported this ref.
	Ticket *Ticket

	CreatedAt int64
}

// ObligationKind names the resource an obligation tracks.
type ObligationKind string

const (
	ObligationPayment ObligationKind = "payment"
	ObligationTicket  ObligationKind = "ticket"
	ObligationCost    ObligationKind = "cost"
)

// Obligation is anything attached to an activity that can block settlement.
type Obligation struct {
	Kind ObligationKind

	// Ref is a human-readable identifier, e.g. "payment:bob" or "ticket:SUP-12".
	Ref string

	// Internal obligations never block.
	Internal bool

	// Linked is false when the obligation has no resolution record at all.
	Linked bool

	// Resolved is true once the obligation reached its resolved state:
	// paid for payments, closed for tickets.
	Resolved bool
}

// Blocks reports whether o prevents settlement.
func (o Obligation) Blocks() bool {
	return !o.Internal && o.Linked && !o.Resolved
}
