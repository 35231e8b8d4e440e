package closure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/observability"
	"github.com/mmynk/rollcall/internal/storage"
)

// Outcome is the result of a successful settlement attempt. Repeated
// attempts on a settled activity return the same outcome.
type Outcome struct {
	ActivityID string
	Status     models.ActivityStatus
	SettledAt  int64
}

// Gate is the single authority allowed to move an activity to settled.
type Gate struct {
	store    storage.Store
	notifier notify.Notifier
	events   events.Publisher
}

// NewGate creates a Gate. notifier and publisher may be nil.
func NewGate(store storage.Store, notifier notify.Notifier, publisher events.Publisher) *Gate {
	return &Gate{store: store, notifier: notifier, events: publisher}
}

// Settle is the organizer's explicit settlement request.
func (g *Gate) Settle(ctx context.Context, callerID, activityID string) (*Outcome, error) {
	if _, err := storage.RequireOrganizer(ctx, g.store, activityID, callerID); err != nil {
		return nil, err
	}
	return g.AttemptClose(ctx, activityID)
}

// AttemptClose settles the activity if nothing blocks it. Obligations are
// read and the status is written in the same transaction. A blocked attempt
// returns *apperr.BlockedError and changes nothing.
func (g *Gate) AttemptClose(ctx context.Context, activityID string) (*Outcome, error) {
	var (
		outcome        *Outcome
		participants   []*models.Participant
		alreadySettled bool
	)

	err := g.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}

		if activity.IsSettled() {
			alreadySettled = true
			outcome = &Outcome{ActivityID: activity.ID, Status: activity.Status, SettledAt: activity.SettledAt}
			return nil
		}
		if activity.Status != models.ActivityOpen && activity.Status != models.ActivityCompleted {
			return apperr.Conflict("activity %s is %s and cannot be settled", activityID, activity.Status)
		}

		participants, err = tx.ListParticipants(ctx, activityID)
		if err != nil {
			return err
		}
		var links []*models.TicketLink
		if activity.Kind == models.KindMeeting {
			links, err = tx.ListTicketLinks(ctx, activityID)
			if err != nil {
				return err
			}
		}

		if blockers := Blocking(Obligations(activity, participants, links)); len(blockers) > 0 {
			return &apperr.BlockedError{ActivityID: activityID, BlockedBy: blockers}
		}

		activity.Status = models.ActivitySettled
		activity.SettledAt = time.Now().Unix()
		if err := tx.UpdateActivity(ctx, activity); err != nil {
			return fmt.Errorf("failed to settle activity: %w", err)
		}
		outcome = &Outcome{ActivityID: activity.ID, Status: activity.Status, SettledAt: activity.SettledAt}
		return nil
	})
	if err != nil {
		if blocked, ok := apperr.AsBlocked(err); ok {
			observability.RecordSettlementAttempt(observability.SettlementBlocked)
			slog.Info("Settlement blocked", "activity_id", activityID, "blocked_by", blocked.BlockedBy)
		} else {
			observability.RecordSettlementAttempt(observability.SettlementRejected)
		}
		return nil, err
	}

	if alreadySettled {
		observability.RecordSettlementAttempt(observability.SettlementAlreadySettled)
		return outcome, nil
	}

	observability.RecordSettlementAttempt(observability.SettlementSettled)
	slog.Info("Activity settled", "activity_id", activityID, "settled_at", outcome.SettledAt)

	events.Publish(ctx, g.events, events.Event{
		ActivityID: activityID,
		Kind:       events.KindSettled,
		Status:     string(models.ActivitySettled),
		At:         outcome.SettledAt,
	})

	var notes []notify.Notification
	for _, p := range participants {
		if p.Status != models.StatusConfirmed {
			continue
		}
		notes = append(notes, notify.Notification{
			RecipientID: p.PersonID,
			Title:       "Activity settled",
			Message:     "All obligations are resolved and the activity is closed.",
			Link:        "/activities/" + activityID,
		})
	}
	notify.Send(ctx, g.notifier, notes...)

	return outcome, nil
}
