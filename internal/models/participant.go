package models

import "time"

// CommitmentStatus is a participant's commitment level.
type CommitmentStatus string

const (
	StatusInvited   CommitmentStatus = "invited"
	StatusConfirmed CommitmentStatus = "confirmed"
	StatusWaitlist  CommitmentStatus = "waitlist"
	StatusMaybe     CommitmentStatus = "maybe"
	StatusDeclined  CommitmentStatus = "declined"
)

// Requestable reports whether a person may ask for s directly.
// Invited is only ever set by the organizer.
func (s CommitmentStatus) Requestable() bool {
	switch s {
	case StatusConfirmed, StatusWaitlist, StatusMaybe, StatusDeclined:
		return true
	}
	return false
}

// PaymentStatus tracks the claim/confirm protocol for one participant.
type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentInReview PaymentStatus = "in_review"
	PaymentPaid     PaymentStatus = "paid"
)

// TransportMode is how a participant gets to the activity.
type TransportMode string

const (
	TransportNone        TransportMode = ""
	TransportIndependent TransportMode = "independent"
	TransportDriver      TransportMode = "driver"
	TransportRider       TransportMode = "rider"
)

// Valid reports whether m is a concrete selection.
func (m TransportMode) Valid() bool {
	switch m {
	case TransportIndependent, TransportDriver, TransportRider:
		return true
	}
	return false
}

// Participant is one person's record against one activity. The pair
// (ActivityID, PersonID) is unique.
type Participant struct {
	// ID is the unique identifier for the participant row (UUID format).
	ID string

	ActivityID string
	PersonID   string

	// Status is the commitment level.
	Status CommitmentStatus

	// AmountOwed is this participant's share of the current cost.
	// Derived by the tracker; only confirmed participants owe anything.
	AmountOwed Cents

	// PaymentStatus and Paid move together: Paid == (PaymentStatus == PaymentPaid).
	PaymentStatus PaymentStatus
	Paid          bool

	// PaidBy is the person who claimed the payment, when it was not the
	// participant themselves.
	PaidBy string

	// Transport is the selected mode, TransportNone until chosen.
	Transport TransportMode

	// Seats is the number of rider seats offered; drivers only.
	Seats int

	// PickupNote is free text for the driver.
	PickupNote string

	// DriverID is the assigned driver's person ID; riders only.
	DriverID string

	// StatusChangedAt orders the waitlist and the split residue.
	// Unix nanoseconds so concurrent requests stay distinguishable.
	StatusChangedAt int64

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64
	UpdatedAt int64
}

// NewParticipant returns a fresh row for person in activity.
func NewParticipant(activityID, personID string, status CommitmentStatus) *Participant {
	now := time.Now()
	return &Participant{
		ActivityID:      activityID,
		PersonID:        personID,
		Status:          status,
		PaymentStatus:   PaymentUnpaid,
		StatusChangedAt: now.UnixNano(),
		CreatedAt:       now.Unix(),
		UpdatedAt:       now.Unix(),
	}
}

// SetStatus changes the commitment status, recording when it changed.
func (p *Participant) SetStatus(s CommitmentStatus) {
	if p.Status == s {
		return
	}
	p.Status = s
	p.StatusChangedAt = time.Now().UnixNano()
}

// SetPayment moves the payment state and keeps Paid in lockstep.
func (p *Participant) SetPayment(s PaymentStatus) {
	p.PaymentStatus = s
	p.Paid = s == PaymentPaid
}

// IsDriver reports whether p is a confirmed driver.
func (p *Participant) IsDriver() bool {
	return p.Status == StatusConfirmed && p.Transport == TransportDriver
}
