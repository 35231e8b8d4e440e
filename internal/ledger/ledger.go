// Package ledger records who is coming to an activity. It enforces the hard
// capacity limit of events and keeps the waitlist ordered.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/observability"
	"github.com/mmynk/rollcall/internal/storage"
	"github.com/mmynk/rollcall/internal/tracker"
)

// Ledger applies commitment changes.
type Ledger struct {
	store    storage.Store
	notifier notify.Notifier
	events   events.Publisher
}

// New creates a Ledger. notifier and publisher may be nil.
func New(store storage.Store, notifier notify.Notifier, publisher events.Publisher) *Ledger {
	return &Ledger{store: store, notifier: notifier, events: publisher}
}

// CommitmentRequest is a person's request to change their commitment.
type CommitmentRequest struct {
	ActivityID string
	PersonID   string
	Status     models.CommitmentStatus
	Transport  models.TransportMode
	Seats      int

	// PickupNote replaces the stored note when non-empty; an empty note
	// keeps the previous one.
	PickupNote string

	// Exact makes a confirmation that would be waitlisted fail with
	// ErrConflict instead, leaving the participant unchanged.
	Exact bool
}

// Validate checks the request on its own, before any state is read.
func (r CommitmentRequest) Validate() error {
	if strings.TrimSpace(r.ActivityID) == "" {
		return apperr.Validation("activity id is required")
	}
	if strings.TrimSpace(r.PersonID) == "" {
		return apperr.Validation("person id is required")
	}
	if !r.Status.Requestable() {
		return apperr.Validation("status %q cannot be requested", r.Status)
	}
	if r.Transport != models.TransportNone && !r.Transport.Valid() {
		return apperr.Validation("unknown transport selection %q", r.Transport)
	}
	if r.Status == models.StatusConfirmed && r.Transport == models.TransportNone {
		return apperr.Validation("confirming requires a transport selection")
	}
	if r.Seats < 0 {
		return apperr.Validation("seats cannot be negative")
	}
	if r.Transport == models.TransportDriver && r.Seats == 0 {
		return apperr.Validation("drivers must offer at least one seat")
	}
	return nil
}

// CommitmentResult reports what the ledger actually granted.
type CommitmentResult struct {
	Requested   models.CommitmentStatus
	Effective   models.CommitmentStatus
	Participant *models.Participant
}

// SubmitCommitment applies a commitment in one transaction. A confirmation
// that does not fit is stored as waitlist and reported as such; losing the
// race for the last seat is not an error.
func (l *Ledger) SubmitCommitment(ctx context.Context, callerID string, req CommitmentRequest) (*CommitmentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if callerID != req.PersonID {
		return nil, apperr.Forbidden("cannot change another person's commitment")
	}
	if _, err := storage.RequireActivity(ctx, l.store, req.ActivityID); err != nil {
		return nil, err
	}

	result := &CommitmentResult{Requested: req.Status}
	var organizerID string
	var confirmedSetChanged bool

	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, req.ActivityID)
		if err != nil {
			return err
		}
		if !activity.AcceptsCommitments() {
			return apperr.Conflict("activity %s is %s and does not accept commitments", activity.ID, activity.Status)
		}
		organizerID = activity.OrganizerID

		p, err := tx.GetParticipant(ctx, activity.ID, req.PersonID)
		switch {
		case err == nil:
		case apperr.IsNotFound(err):
			p = models.NewParticipant(activity.ID, req.PersonID, models.StatusInvited)
		default:
			return err
		}

		wasConfirmed := p.Status == models.StatusConfirmed
		wasDriver := p.IsDriver()

		effective := req.Status
		if req.Status == models.StatusConfirmed && activity.Bounded() {
			n, err := tx.CountConfirmed(ctx, activity.ID, req.PersonID)
			if err != nil {
				return err
			}
			if n >= activity.Capacity {
				if req.Exact {
					return apperr.Conflict("activity %s is full", activity.ID)
				}
				effective = models.StatusWaitlist
			}
		}

		isConfirmed := effective == models.StatusConfirmed
		confirmedSetChanged = wasConfirmed != isConfirmed
		if confirmedSetChanged && activity.CostLocked {
			return apperr.Conflict("cost of activity %s is locked; attendance can no longer change", activity.ID)
		}

		p.SetStatus(effective)
		if req.Transport != models.TransportNone {
			p.Transport = req.Transport
			p.Seats = 0
			if req.Transport == models.TransportDriver {
				p.Seats = req.Seats
			}
		}
		if req.PickupNote != "" {
			p.PickupNote = req.PickupNote
		}
		if p.Transport != models.TransportRider || !isConfirmed {
			p.DriverID = ""
		}

		if wasDriver {
			if err := releaseOrCheckRiders(ctx, tx, p); err != nil {
				return err
			}
		}

		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if confirmedSetChanged {
			if _, err := tracker.RecomputeShares(ctx, tx, activity); err != nil {
				return err
			}
			refreshed, err := tx.GetParticipant(ctx, activity.ID, req.PersonID)
			if err != nil {
				return err
			}
			p = refreshed
		}

		result.Effective = effective
		result.Participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordCommitment(string(req.Status), string(result.Effective))
	slog.Info("Commitment recorded",
		"activity_id", req.ActivityID,
		"person_id", req.PersonID,
		"requested", req.Status,
		"effective", result.Effective,
	)
	events.Publish(ctx, l.events, events.Event{
		ActivityID: req.ActivityID,
		Kind:       events.KindCommitment,
		PersonID:   req.PersonID,
		Status:     string(result.Effective),
	})
	if confirmedSetChanged && organizerID != req.PersonID {
		notify.Send(ctx, l.notifier, notify.Notification{
			RecipientID: organizerID,
			Title:       "Attendance changed",
			Message:     fmt.Sprintf("%s is now %s.", req.PersonID, result.Effective),
			Link:        "/activities/" + req.ActivityID,
		})
	}
	return result, nil
}

// releaseOrCheckRiders runs when p was a confirmed driver before this change.
// A driver who stops driving releases every assigned rider; a driver who keeps
// driving must still have a seat for each of them.
func releaseOrCheckRiders(ctx context.Context, tx storage.Tx, p *models.Participant) error {
	if p.IsDriver() {
		riders, err := tx.CountRiders(ctx, p.ActivityID, p.PersonID)
		if err != nil {
			return err
		}
		if p.Seats < riders {
			return apperr.Validation("cannot offer %d seats with %d riders assigned", p.Seats, riders)
		}
		return nil
	}

	participants, err := tx.ListParticipants(ctx, p.ActivityID)
	if err != nil {
		return err
	}
	for _, rider := range participants {
		if rider.DriverID != p.PersonID {
			continue
		}
		rider.DriverID = ""
		if err := tx.SaveParticipant(ctx, rider); err != nil {
			return err
		}
	}
	return nil
}

// Withdraw declines the person's participation. A freed slot is not given to
// the waitlist automatically; the organizer promotes explicitly.
func (l *Ledger) Withdraw(ctx context.Context, callerID, activityID, personID string) (*models.Participant, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, apperr.Validation("person id is required")
	}
	if callerID != personID {
		return nil, apperr.Forbidden("cannot withdraw another person")
	}
	if _, err := storage.RequireActivity(ctx, l.store, activityID); err != nil {
		return nil, err
	}

	var participant *models.Participant
	var wasConfirmed bool
	var organizerID string
	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.AcceptsCommitments() {
			return apperr.Conflict("activity %s is %s and does not accept commitments", activityID, activity.Status)
		}
		organizerID = activity.OrganizerID

		p, err := tx.GetParticipant(ctx, activityID, personID)
		if err != nil {
			return err
		}
		if p.Status == models.StatusDeclined {
			participant = p
			return nil
		}

		wasConfirmed = p.Status == models.StatusConfirmed
		if wasConfirmed && activity.CostLocked {
			return apperr.Conflict("cost of activity %s is locked; attendance can no longer change", activityID)
		}
		wasDriver := p.IsDriver()

		p.SetStatus(models.StatusDeclined)
		p.DriverID = ""
		if wasDriver {
			if err := releaseOrCheckRiders(ctx, tx, p); err != nil {
				return err
			}
		}
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return err
		}
		if wasConfirmed {
			if _, err := tracker.RecomputeShares(ctx, tx, activity); err != nil {
				return err
			}
			if p, err = tx.GetParticipant(ctx, activityID, personID); err != nil {
				return err
			}
		}
		participant = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, l.events, events.Event{
		ActivityID: activityID,
		Kind:       events.KindCommitment,
		PersonID:   personID,
		Status:     string(models.StatusDeclined),
	})
	if wasConfirmed && organizerID != personID {
		notify.Send(ctx, l.notifier, notify.Notification{
			RecipientID: organizerID,
			Title:       "Participant withdrew",
			Message:     fmt.Sprintf("%s withdrew; a slot is free.", personID),
			Link:        "/activities/" + activityID,
		})
	}
	return participant, nil
}

// PromoteWaitlisted confirms the longest-waiting participant if a slot is free.
func (l *Ledger) PromoteWaitlisted(ctx context.Context, callerID, activityID string) (*models.Participant, error) {
	if _, err := storage.RequireOrganizer(ctx, l.store, activityID, callerID); err != nil {
		return nil, err
	}

	var promoted *models.Participant
	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !activity.AcceptsCommitments() {
			return apperr.Conflict("activity %s is %s and does not accept commitments", activityID, activity.Status)
		}
		if activity.CostLocked {
			return apperr.Conflict("cost of activity %s is locked; attendance can no longer change", activityID)
		}

		participants, err := tx.ListParticipants(ctx, activityID)
		if err != nil {
			return err
		}
		next := nextWaitlisted(participants)
		if next == nil {
			return apperr.Conflict("nobody is waiting for activity %s", activityID)
		}

		if activity.Bounded() {
			n, err := tx.CountConfirmed(ctx, activityID, "")
			if err != nil {
				return err
			}
			if n >= activity.Capacity {
				return apperr.Conflict("activity %s is full", activityID)
			}
		}

		next.SetStatus(models.StatusConfirmed)
		if next.Transport == models.TransportNone {
			next.Transport = models.TransportIndependent
		}
		if err := tx.SaveParticipant(ctx, next); err != nil {
			return err
		}
		if _, err := tracker.RecomputeShares(ctx, tx, activity); err != nil {
			return err
		}
		promoted, err = tx.GetParticipant(ctx, activityID, next.PersonID)
		return err
	})
	if err != nil {
		return nil, err
	}

	observability.RecordCommitment(string(models.StatusWaitlist), string(models.StatusConfirmed))
	events.Publish(ctx, l.events, events.Event{
		ActivityID: activityID,
		Kind:       events.KindCommitment,
		PersonID:   promoted.PersonID,
		Status:     string(models.StatusConfirmed),
	})
	notify.Send(ctx, l.notifier, notify.Notification{
		RecipientID: promoted.PersonID,
		Title:       "You're in",
		Message:     "A slot opened up and you have been moved off the waitlist.",
		Link:        "/activities/" + activityID,
	})
	return promoted, nil
}

func nextWaitlisted(participants []*models.Participant) *models.Participant {
	var waiting []*models.Participant
	for _, p := range participants {
		if p.Status == models.StatusWaitlist {
			waiting = append(waiting, p)
		}
	}
	if len(waiting) == 0 {
		return nil
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].StatusChangedAt != waiting[j].StatusChangedAt {
			return waiting[i].StatusChangedAt < waiting[j].StatusChangedAt
		}
		return waiting[i].ID < waiting[j].ID
	})
	return waiting[0]
}
