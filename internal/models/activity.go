package models

import "time"

// ActivityKind distinguishes the two kinds of activity. The kind decides which
// obligations gate settlement: payments for events, support tickets for meetings.
type ActivityKind string

const (
	KindEvent   ActivityKind = "event"
	KindMeeting ActivityKind = "meeting"
)

// Valid reports whether k is a known kind.
func (k ActivityKind) Valid() bool {
	return k == KindEvent || k == KindMeeting
}

// ActivityStatus is the lifecycle state of an Activity.
//
//	draft -> open -> completed -> settled
//	   \------\---------\-------> cancelled
type ActivityStatus string

const (
	ActivityDraft     ActivityStatus = "draft"
	ActivityOpen      ActivityStatus = "open"
	ActivityCompleted ActivityStatus = "completed"
	ActivitySettled   ActivityStatus = "settled"
	ActivityCancelled ActivityStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s ActivityStatus) Terminal() bool {
	return s == ActivitySettled || s == ActivityCancelled
}

// Activity is an event or meeting coordinated by one organizer.
type Activity struct {
	// ID is the unique identifier for the activity (UUID format).
	ID string

	// Kind is either KindEvent or KindMeeting.
	Kind ActivityKind

	// Title is the human-readable name of the activity.
	Title string

	// OrganizerID is the person who created the activity and may run
	// organizer-only operations on it.
	OrganizerID string

	// Capacity is the maximum number of confirmed participants.
	// Only enforced for events; zero means unbounded.
	Capacity int

	// EstimatedCost, ActualCost and FinalCost are successive cost figures.
	// Nil means "not set yet".
	EstimatedCost *Cents
	ActualCost    *Cents
	FinalCost     *Cents

	// CostLocked is set once the organizer locks the final cost.
	CostLocked bool

	// Status is the lifecycle state.
	Status ActivityStatus

	// SettledAt is the Unix timestamp of settlement, zero until settled.
	SettledAt int64

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// IsSettled reports whether the activity reached its terminal settled state.
func (a *Activity) IsSettled() bool {
	return a.Status == ActivitySettled
}

// Bounded reports whether confirmed participation is capped.
func (a *Activity) Bounded() bool {
	return a.Kind == KindEvent && a.Capacity > 0
}

// CurrentCost returns the authoritative cost figure: final, else actual,
// else estimated, else zero.
func (a *Activity) CurrentCost() Cents {
	switch {
	case a.FinalCost != nil:
		return *a.FinalCost
	case a.ActualCost != nil:
		return *a.ActualCost
	case a.EstimatedCost != nil:
		return *a.EstimatedCost
	default:
		return 0
	}
}

// AcceptsCommitments reports whether the ledger may change participation.
func (a *Activity) AcceptsCommitments() bool {
	return a.Status == ActivityOpen
}

// Touch bumps UpdatedAt.
func (a *Activity) Touch() {
	a.UpdatedAt = time.Now().Unix()
}
