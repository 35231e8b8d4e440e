package service

import (
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/tracker"
)

// Activity is the wire form of models.Activity.
type Activity struct {
	ID            string        `json:"id"`
	Kind          string        `json:"kind"`
	Title         string        `json:"title"`
	OrganizerID   string        `json:"organizerId"`
	Capacity      int           `json:"capacity"`
	EstimatedCost *models.Cents `json:"estimatedCost,omitempty"`
	ActualCost    *models.Cents `json:"actualCost,omitempty"`
	FinalCost     *models.Cents `json:"finalCost,omitempty"`
	CurrentCost   models.Cents  `json:"currentCost"`
	CostLocked    bool          `json:"costLocked"`
	Status        string        `json:"status"`
	SettledAt     int64         `json:"settledAt,omitempty"`
	CreatedAt     int64         `json:"createdAt"`
	UpdatedAt     int64         `json:"updatedAt"`
}

// Participant is the wire form of models.Participant.
type Participant struct {
	ID            string       `json:"id"`
	ActivityID    string       `json:"activityId"`
	PersonID      string       `json:"personId"`
	Status        string       `json:"status"`
	AmountOwed    models.Cents `json:"amountOwed"`
	PaymentStatus string       `json:"paymentStatus"`
	Paid          bool         `json:"paid"`
	PaidBy        string       `json:"paidBy,omitempty"`
	Transport     string       `json:"transportSelection,omitempty"`
	Seats         int          `json:"seats,omitempty"`
	PickupNote    string       `json:"pickupNote,omitempty"`
	DriverID      string       `json:"driverId,omitempty"`
}

// Collection is the wire form of the tracker aggregate.
type Collection struct {
	TotalDue           models.Cents `json:"totalDue"`
	TotalCollected     models.Cents `json:"totalCollected"`
	Outstanding        models.Cents `json:"outstanding"`
	Paid               int          `json:"paid"`
	InReview           int          `json:"inReview"`
	Unpaid             int          `json:"unpaid"`
	CollectionComplete bool         `json:"collectionComplete"`
}

// TicketLink is the wire form of models.TicketLink.
type TicketLink struct {
	ActivityID string `json:"activityId"`
	TicketRef  string `json:"ticketRef"`
	Internal   bool   `json:"internal"`
	Status     string `json:"status,omitempty"`
}

// Ticket is the wire form of models.Ticket.
type Ticket struct {
	Ref       string `json:"ref"`
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updatedAt"`
}

type CreateActivityRequest struct {
	Kind          string        `json:"kind"`
	Title         string        `json:"title"`
	Capacity      int           `json:"capacity"`
	EstimatedCost *models.Cents `json:"estimatedCost,omitempty"`
	Draft         bool          `json:"draft,omitempty"`
}

// ActivityRequest addresses one activity.
type ActivityRequest struct {
	ActivityID string `json:"activityId"`
}

type ActivityResponse struct {
	Activity *Activity `json:"activity"`
}

type GetActivityResponse struct {
	Activity     *Activity      `json:"activity"`
	Participants []*Participant `json:"participants"`
	Collection   *Collection    `json:"collection"`
	Tickets      []*TicketLink  `json:"tickets,omitempty"`
	BlockedBy    []string       `json:"blockedBy,omitempty"`
}

type InviteParticipantsRequest struct {
	ActivityID string   `json:"activityId"`
	PersonIDs  []string `json:"personIds"`
}

type ParticipantsResponse struct {
	Participants []*Participant `json:"participants"`
}

type SubmitCommitmentRequest struct {
	ActivityID         string `json:"activityId"`
	PersonID           string `json:"personId"`
	Status             string `json:"status"`
	TransportSelection string `json:"transportSelection,omitempty"`
	Seats              int    `json:"seats,omitempty"`
	PickupNote         string `json:"pickupNote,omitempty"`
	Exact              bool   `json:"exact,omitempty"`
}

type SubmitCommitmentResponse struct {
	RequestedStatus string       `json:"requestedStatus"`
	EffectiveStatus string       `json:"effectiveStatus"`
	Participant     *Participant `json:"participant"`
}

type WithdrawRequest struct {
	ActivityID string `json:"activityId"`
	PersonID   string `json:"personId"`
}

type ParticipantResponse struct {
	Participant *Participant `json:"participant"`
}

type SetCostRequest struct {
	ActivityID string       `json:"activityId"`
	Amount     models.Cents `json:"amount"`
}

type LockCostRequest struct {
	ActivityID  string       `json:"activityId"`
	FinalAmount models.Cents `json:"finalAmount"`
}

type LockCostResponse struct {
	Activity       *Activity      `json:"activity"`
	PerPersonShare models.Cents   `json:"perPersonShare"`
	Participants   []*Participant `json:"participants"`
}

type CollectionResponse struct {
	Collection *Collection `json:"collection"`
}

type ClaimPaymentRequest struct {
	ActivityID        string   `json:"activityId"`
	PersonID          string   `json:"personId"`
	CoveringPersonIDs []string `json:"coveringPersonIds,omitempty"`
}

type ClaimPaymentResponse struct {
	PaymentStatus string         `json:"paymentStatus"`
	Participants  []*Participant `json:"participants"`
}

type PaymentDecisionRequest struct {
	ActivityID    string `json:"activityId"`
	ParticipantID string `json:"participantId"`
}

type SettleResponse struct {
	Closed    bool   `json:"closed"`
	Status    string `json:"status"`
	SettledAt int64  `json:"settledAt"`
}

type AssignRiderRequest struct {
	ActivityID     string `json:"activityId"`
	DriverPersonID string `json:"driverPersonId"`
	RiderPersonID  string `json:"riderPersonId"`
}

type UnassignRiderRequest struct {
	ActivityID    string `json:"activityId"`
	RiderPersonID string `json:"riderPersonId"`
}

type AttachTicketRequest struct {
	ActivityID string `json:"activityId"`
	TicketRef  string `json:"ticketRef"`
	Internal   bool   `json:"internal,omitempty"`
}

type AttachTicketResponse struct {
	Link *TicketLink `json:"link"`
}

type RecordTicketStatusRequest struct {
	TicketRef string `json:"ticketRef"`
	Status    string `json:"status"`
}

type TicketResponse struct {
	Ticket *Ticket `json:"ticket"`
}

func toActivity(a *models.Activity) *Activity {
	return &Activity{
		ID:            a.ID,
		Kind:          string(a.Kind),
		Title:         a.Title,
		OrganizerID:   a.OrganizerID,
		Capacity:      a.Capacity,
		EstimatedCost: a.EstimatedCost,
		ActualCost:    a.ActualCost,
		FinalCost:     a.FinalCost,
		CurrentCost:   a.CurrentCost(),
		CostLocked:    a.CostLocked,
		Status:        string(a.Status),
		SettledAt:     a.SettledAt,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

func toParticipant(p *models.Participant) *Participant {
	return &Participant{
		ID:            p.ID,
		ActivityID:    p.ActivityID,
		PersonID:      p.PersonID,
		Status:        string(p.Status),
		AmountOwed:    p.AmountOwed,
		PaymentStatus: string(p.PaymentStatus),
		Paid:          p.Paid,
		PaidBy:        p.PaidBy,
		Transport:     string(p.Transport),
		Seats:         p.Seats,
		PickupNote:    p.PickupNote,
		DriverID:      p.DriverID,
	}
}

func toParticipants(ps []*models.Participant) []*Participant {
	out := make([]*Participant, len(ps))
	for i, p := range ps {
		out[i] = toParticipant(p)
	}
	return out
}

func toCollection(agg *tracker.Aggregate) *Collection {
	return &Collection{
		TotalDue:           agg.TotalDue,
		TotalCollected:     agg.TotalCollected,
		Outstanding:        agg.Outstanding,
		Paid:               agg.Paid,
		InReview:           agg.InReview,
		Unpaid:             agg.Unpaid,
		CollectionComplete: agg.CollectionComplete,
	}
}

func toTicketLink(l *models.TicketLink) *TicketLink {
	out := &TicketLink{ActivityID: l.ActivityID, TicketRef: l.TicketRef, Internal: l.Internal}
	if l.Ticket != nil {
		out.Status = string(l.Ticket.Status)
	}
	return out
}
