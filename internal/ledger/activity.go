package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/storage"
)

// CreateRequest describes a new activity.
type CreateRequest struct {
	Kind          models.ActivityKind
	Title         string
	Capacity      int
	EstimatedCost *models.Cents
	Draft         bool
}

// Validate checks the request before anything is written.
func (r CreateRequest) Validate() error {
	if !r.Kind.Valid() {
		return apperr.Validation("unknown activity kind %q", r.Kind)
	}
	if strings.TrimSpace(r.Title) == "" {
		return apperr.Validation("title is required")
	}
	if r.Capacity < 0 {
		return apperr.Validation("capacity cannot be negative")
	}
	if r.Kind == models.KindEvent && r.Capacity < 1 {
		return apperr.Validation("events need a capacity of at least 1")
	}
	if r.Kind == models.KindMeeting && r.EstimatedCost != nil {
		return apperr.Validation("meetings carry no cost")
	}
	if r.EstimatedCost != nil && *r.EstimatedCost < 0 {
		return apperr.Validation("estimated cost cannot be negative")
	}
	return nil
}

// CreateActivity creates an activity organized by the caller.
func (l *Ledger) CreateActivity(ctx context.Context, callerID string, req CreateRequest) (*models.Activity, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, apperr.Forbidden("an identity is required to organize an activity")
	}

	activity := &models.Activity{
		Kind:          req.Kind,
		Title:         strings.TrimSpace(req.Title),
		OrganizerID:   callerID,
		Capacity:      req.Capacity,
		EstimatedCost: req.EstimatedCost,
		Status:        models.ActivityOpen,
	}
	if req.Kind == models.KindMeeting {
		activity.Capacity = 0
	}
	if req.Draft {
		activity.Status = models.ActivityDraft
	}

	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.CreateActivity(ctx, activity)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Activity created",
		"activity_id", activity.ID,
		"kind", activity.Kind,
		"organizer_id", callerID,
		"capacity", activity.Capacity,
	)
	return activity, nil
}

var transitions = map[models.ActivityStatus][]models.ActivityStatus{
	models.ActivityOpen:      {models.ActivityDraft},
	models.ActivityCompleted: {models.ActivityOpen},
	models.ActivityCancelled: {models.ActivityDraft, models.ActivityOpen, models.ActivityCompleted},
}

// Transition moves the activity to status. Settlement is not reachable from
// here; only the closure gate settles.
func (l *Ledger) Transition(ctx context.Context, callerID, activityID string, to models.ActivityStatus) (*models.Activity, error) {
	allowedFrom, ok := transitions[to]
	if !ok {
		return nil, apperr.Validation("cannot transition to %q", to)
	}
	if _, err := storage.RequireOrganizer(ctx, l.store, activityID, callerID); err != nil {
		return nil, err
	}

	var activity *models.Activity
	var participants []*models.Participant
	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		activity, err = tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if !statusIn(activity.Status, allowedFrom) {
			return apperr.Conflict("activity %s cannot move from %s to %s", activityID, activity.Status, to)
		}
		activity.Status = to
		if err := tx.UpdateActivity(ctx, activity); err != nil {
			return err
		}
		if to == models.ActivityCancelled {
			participants, err = tx.ListParticipants(ctx, activityID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Activity status changed", "activity_id", activityID, "status", to)
	events.Publish(ctx, l.events, events.Event{ActivityID: activityID, Kind: events.KindLifecycle, Status: string(to)})

	var notes []notify.Notification
	for _, p := range participants {
		if p.Status != models.StatusConfirmed && p.Status != models.StatusWaitlist {
			continue
		}
		notes = append(notes, notify.Notification{
			RecipientID: p.PersonID,
			Title:       "Activity cancelled",
			Message:     fmt.Sprintf("%s has been cancelled.", activity.Title),
			Link:        "/activities/" + activityID,
		})
	}
	notify.Send(ctx, l.notifier, notes...)

	return activity, nil
}

func statusIn(s models.ActivityStatus, set []models.ActivityStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

// Invite creates invited rows for people who have no row yet. Existing rows
// are returned untouched.
func (l *Ledger) Invite(ctx context.Context, callerID, activityID string, personIDs []string) ([]*models.Participant, error) {
	unique := make([]string, 0, len(personIDs))
	seen := make(map[string]bool, len(personIDs))
	for _, id := range personIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, apperr.Validation("at least one person id is required")
	}
	if _, err := storage.RequireOrganizer(ctx, l.store, activityID, callerID); err != nil {
		return nil, err
	}

	var rows []*models.Participant
	var invited []string
	err := l.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Status != models.ActivityDraft && activity.Status != models.ActivityOpen {
			return apperr.Conflict("activity %s is %s and cannot take invitations", activityID, activity.Status)
		}

		for _, personID := range unique {
			p, err := tx.GetParticipant(ctx, activityID, personID)
			if err == nil {
				rows = append(rows, p)
				continue
			}
			if !apperr.IsNotFound(err) {
				return err
			}
			p = models.NewParticipant(activityID, personID, models.StatusInvited)
			if err := tx.SaveParticipant(ctx, p); err != nil {
				return err
			}
			rows = append(rows, p)
			invited = append(invited, personID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	notes := make([]notify.Notification, 0, len(invited))
	for _, personID := range invited {
		notes = append(notes, notify.Notification{
			RecipientID: personID,
			Title:       "You're invited",
			Message:     "You have been invited to an activity.",
			Link:        "/activities/" + activityID,
		})
	}
	notify.Send(ctx, l.notifier, notes...)
	return rows, nil
}
