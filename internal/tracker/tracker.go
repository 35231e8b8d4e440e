// Package tracker owns the cost of an activity and how it is divided among
// confirmed participants, and reports how much of it has been collected.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/calculator"
	"github.com/mmynk/rollcall/internal/closure"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/observability"
	"github.com/mmynk/rollcall/internal/storage"
)

// Closer is the settlement authority the tracker signals once collection
// completes.
type Closer interface {
	AttemptClose(ctx context.Context, activityID string) (*closure.Outcome, error)
}

// Tracker manages costs, shares and collection.
type Tracker struct {
	store    storage.Store
	gate     Closer
	notifier notify.Notifier
	events   events.Publisher
}

// New creates a Tracker. notifier and publisher may be nil.
func New(store storage.Store, gate Closer, notifier notify.Notifier, publisher events.Publisher) *Tracker {
	return &Tracker{store: store, gate: gate, notifier: notifier, events: publisher}
}

// LockResult is returned by LockCost.
type LockResult struct {
	Activity       *models.Activity
	PerPersonShare models.Cents
	Participants   []*models.Participant
}

// Aggregate summarizes collection for one activity.
type Aggregate struct {
	calculator.Collection
	CollectionComplete bool
}

// RecomputeShares reassigns AmountOwed across the activity's participants
// from its current cost and saves the rows that changed. It must run inside
// the transaction that changed the confirmed set or the cost.
func RecomputeShares(ctx context.Context, tx storage.Tx, activity *models.Activity) ([]*models.Participant, error) {
	participants, err := tx.ListParticipants(ctx, activity.ID)
	if err != nil {
		return nil, err
	}

	changed, err := calculator.Assign(activity.CurrentCost(), participants, activity.OrganizerID)
	if err != nil {
		return nil, fmt.Errorf("failed to split cost: %w", err)
	}
	for _, p := range changed {
		if err := tx.SaveParticipant(ctx, p); err != nil {
			return nil, err
		}
	}
	return participants, nil
}

// SetEstimatedCost records the organizer's estimate.
func (t *Tracker) SetEstimatedCost(ctx context.Context, callerID, activityID string, amount models.Cents) (*models.Activity, error) {
	return t.setCost(ctx, callerID, activityID, amount, func(a *models.Activity) { a.EstimatedCost = &amount })
}

// SetActualCost records the cost discovered after the fact.
func (t *Tracker) SetActualCost(ctx context.Context, callerID, activityID string, amount models.Cents) (*models.Activity, error) {
	return t.setCost(ctx, callerID, activityID, amount, func(a *models.Activity) { a.ActualCost = &amount })
}

func (t *Tracker) setCost(ctx context.Context, callerID, activityID string, amount models.Cents, apply func(*models.Activity)) (*models.Activity, error) {
	if amount < 0 {
		return nil, apperr.Validation("cost cannot be negative")
	}
	if _, err := storage.RequireOrganizer(ctx, t.store, activityID, callerID); err != nil {
		return nil, err
	}

	var activity *models.Activity
	err := t.store.WithTx(ctx, func(tx storage.Tx) error {
		var err error
		activity, err = tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Kind != models.KindEvent {
			return apperr.Conflict("only events carry a cost")
		}
		if activity.Status.Terminal() {
			return apperr.Conflict("activity %s is %s", activityID, activity.Status)
		}
		if activity.CostLocked {
			return apperr.Conflict("cost of activity %s is locked", activityID)
		}

		apply(activity)
		if err := tx.UpdateActivity(ctx, activity); err != nil {
			return err
		}
		_, err = RecomputeShares(ctx, tx, activity)
		return err
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, t.events, events.Event{ActivityID: activityID, Kind: events.KindCost, Status: activity.CurrentCost().String()})
	return activity, nil
}

// LockCost fixes the final cost and splits it among the confirmed
// participants. Re-locking is allowed until a payment has been claimed.
func (t *Tracker) LockCost(ctx context.Context, callerID, activityID string, final models.Cents) (*LockResult, error) {
	if final < 0 {
		return nil, apperr.Validation("final cost cannot be negative")
	}
	if _, err := storage.RequireOrganizer(ctx, t.store, activityID, callerID); err != nil {
		return nil, err
	}

	result := &LockResult{}
	err := t.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Kind != models.KindEvent {
			return apperr.Conflict("only events carry a cost")
		}
		if activity.Status != models.ActivityOpen && activity.Status != models.ActivityCompleted {
			return apperr.Conflict("activity %s is %s", activityID, activity.Status)
		}

		participants, err := tx.ListParticipants(ctx, activityID)
		if err != nil {
			return err
		}
		confirmed := 0
		for _, p := range participants {
			if p.PaymentStatus != models.PaymentUnpaid {
				return apperr.Conflict("cost cannot change once payments have been claimed")
			}
			if p.Status == models.StatusConfirmed {
				confirmed++
			}
		}
		if confirmed == 0 && final > 0 {
			return apperr.Conflict("activity %s has no confirmed participants to split %s", activityID, final)
		}

		activity.FinalCost = &final
		activity.CostLocked = true
		if err := tx.UpdateActivity(ctx, activity); err != nil {
			return err
		}

		participants, err = RecomputeShares(ctx, tx, activity)
		if err != nil {
			return err
		}

		result.Activity = activity
		result.PerPersonShare = calculator.PerPersonShare(final, confirmed)
		for _, p := range participants {
			if p.Status == models.StatusConfirmed {
				result.Participants = append(result.Participants, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	observability.RecordCostLocked()
	slog.Info("Cost locked",
		"activity_id", activityID,
		"final_cost", final.String(),
		"per_person", result.PerPersonShare.String(),
		"participants", len(result.Participants),
	)
	events.Publish(ctx, t.events, events.Event{ActivityID: activityID, Kind: events.KindCost, Status: "locked"})

	notes := make([]notify.Notification, 0, len(result.Participants))
	for _, p := range result.Participants {
		if p.AmountOwed == 0 {
			continue
		}
		notes = append(notes, notify.Notification{
			RecipientID: p.PersonID,
			Title:       "Cost finalized",
			Message:     fmt.Sprintf("Your share of %s is %s.", result.Activity.Title, p.AmountOwed),
			Link:        "/activities/" + activityID,
		})
	}
	notify.Send(ctx, t.notifier, notes...)

	return result, nil
}

// Aggregate reports totals over the confirmed participants. Collection is
// complete once the cost is locked and no non-internal payment is outstanding.
func (t *Tracker) Aggregate(ctx context.Context, activityID string) (*Aggregate, error) {
	activity, err := storage.RequireActivity(ctx, t.store, activityID)
	if err != nil {
		return nil, err
	}
	participants, err := t.store.ListParticipants(ctx, activityID)
	if err != nil {
		return nil, err
	}
	return Summarize(activity, participants), nil
}

// Summarize computes the aggregate from already loaded rows.
func Summarize(activity *models.Activity, participants []*models.Participant) *Aggregate {
	return &Aggregate{
		Collection: calculator.Collect(participants),
		CollectionComplete: activity.Kind == models.KindEvent &&
			activity.CostLocked &&
			len(closure.Blocking(closure.PaymentObligations(activity, participants))) == 0,
	}
}

// CheckCollection signals the gate when collection for the activity is
// complete. It runs after the triggering transaction committed; failures are
// logged, never returned.
func (t *Tracker) CheckCollection(ctx context.Context, activityID string) {
	agg, err := t.Aggregate(ctx, activityID)
	if err != nil {
		slog.Warn("Failed to evaluate collection", "activity_id", activityID, "error", err)
		return
	}
	if !agg.CollectionComplete || t.gate == nil {
		return
	}

	outcome, err := t.gate.AttemptClose(ctx, activityID)
	switch {
	case err == nil:
		slog.Info("Collection complete", "activity_id", activityID, "status", outcome.Status)
	case errors.Is(err, apperr.ErrConflict):
		slog.Info("Collection complete but activity not settled", "activity_id", activityID, "reason", err)
	default:
		slog.Warn("Failed to settle after collection", "activity_id", activityID, "error", err)
	}
}
