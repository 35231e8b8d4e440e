// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/mmynk/rollcall/internal/models"
)

// Store is the single source of truth for activities, participants and
// ticket obligations. There is no in-process cache of counts: every decision
// that reads a count and then writes must happen inside WithTx.
//
// Implementations: sqlite.SQLiteStore (default) and postgres.Store.
type Store interface {
	Reader

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back completely otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Reader holds the non-transactional lookups used for pre-checks
// (existence, organizer-ship) and read-only views.
type Reader interface {
	// GetActivity retrieves an activity by its ID.
	// Returns an error matching apperr.ErrNotFound if it does not exist.
	GetActivity(ctx context.Context, activityID string) (*models.Activity, error)

	// ListParticipants returns every participant of the activity, ordered by
	// creation.
	ListParticipants(ctx context.Context, activityID string) ([]*models.Participant, error)

	// ListTicketLinks returns the tickets attached to the activity with their
	// last known status joined in.
	ListTicketLinks(ctx context.Context, activityID string) ([]*models.TicketLink, error)
}

// Tx is the unit of work handed to WithTx callbacks.
type Tx interface {
	Reader

	// LockActivity loads the activity and holds it against concurrent
	// writers until the transaction ends.
	LockActivity(ctx context.Context, activityID string) (*models.Activity, error)

	// CreateActivity persists a new activity. ID and timestamps are
	// populated when empty.
	CreateActivity(ctx context.Context, activity *models.Activity) error

	// UpdateActivity writes back every mutable activity column.
	UpdateActivity(ctx context.Context, activity *models.Activity) error

	// GetParticipant finds the row for (activity, person).
	// Returns an error matching apperr.ErrNotFound if there is none.
	GetParticipant(ctx context.Context, activityID, personID string) (*models.Participant, error)

	// GetParticipantByID finds a participant row of the activity by row ID.
	GetParticipantByID(ctx context.Context, activityID, participantID string) (*models.Participant, error)

	// SaveParticipant inserts the participant when its ID is empty and
	// updates it otherwise.
	SaveParticipant(ctx context.Context, participant *models.Participant) error

	// CountConfirmed counts confirmed participants, ignoring excludePersonID.
	CountConfirmed(ctx context.Context, activityID, excludePersonID string) (int, error)

	// CountRiders counts riders assigned to the given driver.
	CountRiders(ctx context.Context, activityID, driverPersonID string) (int, error)

	// AttachTicket links a ticket ref to an activity. Re-attaching updates
	// the internal flag.
	AttachTicket(ctx context.Context, link *models.TicketLink) error

	// UpsertTicket records the last known status of a ticket.
	UpsertTicket(ctx context.Context, ticket *models.Ticket) error
}
