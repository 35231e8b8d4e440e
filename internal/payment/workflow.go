// Package payment runs the claim/confirm protocol between participants and
// the organizer:
//
//	unpaid --claim--> in_review --confirm--> paid
//	                  in_review --reject---> unpaid
//
// Confirmation is a manual attestation by the organizer; no money moves here.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/observability"
	"github.com/mmynk/rollcall/internal/storage"
)

// CollectionChecker is told after every confirmed payment so it can decide
// whether the activity is ready to settle.
type CollectionChecker interface {
	CheckCollection(ctx context.Context, activityID string)
}

// Workflow applies payment transitions.
type Workflow struct {
	store     storage.Store
	collector CollectionChecker
	notifier  notify.Notifier
	events    events.Publisher
}

// New creates a Workflow. collector, notifier and publisher may be nil.
func New(store storage.Store, collector CollectionChecker, notifier notify.Notifier, publisher events.Publisher) *Workflow {
	return &Workflow{store: store, collector: collector, notifier: notifier, events: publisher}
}

// Claim marks personID's payment, and optionally the payments of the people
// they covered, as awaiting the organizer's review.
func (w *Workflow) Claim(ctx context.Context, callerID, activityID, personID string, covering []string) ([]*models.Participant, error) {
	if strings.TrimSpace(personID) == "" {
		return nil, apperr.Validation("person id is required")
	}
	if callerID != personID {
		return nil, apperr.Forbidden("cannot claim a payment for another person")
	}
	covered := dedupe(covering, personID)
	activity, err := storage.RequireActivity(ctx, w.store, activityID)
	if err != nil {
		return nil, err
	}

	var claimed []*models.Participant
	err = w.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err = tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if err := acceptsPayments(activity); err != nil {
			return err
		}
		if !activity.CostLocked {
			return apperr.Conflict("cost of activity %s is not locked yet", activityID)
		}

		for i, id := range append([]string{personID}, covered...) {
			p, err := tx.GetParticipant(ctx, activityID, id)
			if err != nil {
				return err
			}
			if err := claimable(p); err != nil {
				return err
			}
			p.SetPayment(models.PaymentInReview)
			p.PaidBy = ""
			if i > 0 {
				p.PaidBy = personID
			}
			if err := tx.SaveParticipant(ctx, p); err != nil {
				return err
			}
			claimed = append(claimed, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, p := range claimed {
		observability.RecordPaymentTransition(string(models.PaymentInReview))
		events.Publish(ctx, w.events, events.Event{
			ActivityID: activityID,
			Kind:       events.KindPayment,
			PersonID:   p.PersonID,
			Status:     string(models.PaymentInReview),
		})
	}
	slog.Info("Payment claimed", "activity_id", activityID, "person_id", personID, "covering", covered)

	message := fmt.Sprintf("%s reports paying %s.", personID, total(claimed))
	if len(covered) > 0 {
		message = fmt.Sprintf("%s reports paying %s, covering %s.", personID, total(claimed), strings.Join(covered, ", "))
	}
	notify.Send(ctx, w.notifier, notify.Notification{
		RecipientID: activity.OrganizerID,
		Title:       "Payment to review",
		Message:     message,
		Link:        "/activities/" + activityID,
	})
	return claimed, nil
}

// Confirm accepts a claimed payment. Confirming a paid participant again is a
// no-op.
func (w *Workflow) Confirm(ctx context.Context, callerID, activityID, participantID string) (*models.Participant, error) {
	if strings.TrimSpace(participantID) == "" {
		return nil, apperr.Validation("participant id is required")
	}
	if _, err := storage.RequireOrganizer(ctx, w.store, activityID, callerID); err != nil {
		return nil, err
	}

	var participant *models.Participant
	var changed bool
	err := w.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		p, err := tx.GetParticipantByID(ctx, activityID, participantID)
		if err != nil {
			return err
		}
		participant = p

		if p.PaymentStatus == models.PaymentPaid {
			return nil
		}
		if err := acceptsPayments(activity); err != nil {
			return err
		}
		if p.PaymentStatus != models.PaymentInReview {
			return apperr.Conflict("payment of %s has not been claimed", p.PersonID)
		}

		p.SetPayment(models.PaymentPaid)
		changed = true
		return tx.SaveParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return participant, nil
	}

	observability.RecordPaymentTransition(string(models.PaymentPaid))
	slog.Info("Payment confirmed", "activity_id", activityID, "person_id", participant.PersonID)
	events.Publish(ctx, w.events, events.Event{
		ActivityID: activityID,
		Kind:       events.KindPayment,
		PersonID:   participant.PersonID,
		Status:     string(models.PaymentPaid),
	})
	notify.Send(ctx, w.notifier, notify.Notification{
		RecipientID: participant.PersonID,
		Title:       "Payment confirmed",
		Message:     fmt.Sprintf("Your payment of %s was confirmed.", participant.AmountOwed),
		Link:        "/activities/" + activityID,
	})

	if w.collector != nil {
		w.collector.CheckCollection(ctx, activityID)
	}
	return participant, nil
}

// Reject sends a claimed payment back to unpaid.
func (w *Workflow) Reject(ctx context.Context, callerID, activityID, participantID string) (*models.Participant, error) {
	if strings.TrimSpace(participantID) == "" {
		return nil, apperr.Validation("participant id is required")
	}
	if _, err := storage.RequireOrganizer(ctx, w.store, activityID, callerID); err != nil {
		return nil, err
	}

	var participant *models.Participant
	var claimedBy string
	err := w.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if err := acceptsPayments(activity); err != nil {
			return err
		}
		p, err := tx.GetParticipantByID(ctx, activityID, participantID)
		if err != nil {
			return err
		}
		switch p.PaymentStatus {
		case models.PaymentInReview:
		case models.PaymentPaid:
			return apperr.Conflict("payment of %s is already confirmed", p.PersonID)
		default:
			return apperr.Conflict("payment of %s has not been claimed", p.PersonID)
		}

		claimedBy = p.PaidBy
		p.SetPayment(models.PaymentUnpaid)
		p.PaidBy = ""
		participant = p
		return tx.SaveParticipant(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	observability.RecordPaymentTransition(string(models.PaymentUnpaid))
	slog.Info("Payment rejected", "activity_id", activityID, "person_id", participant.PersonID)
	events.Publish(ctx, w.events, events.Event{
		ActivityID: activityID,
		Kind:       events.KindPayment,
		PersonID:   participant.PersonID,
		Status:     string(models.PaymentUnpaid),
	})

	notes := []notify.Notification{{
		RecipientID: participant.PersonID,
		Title:       "Payment not confirmed",
		Message:     "The organizer could not confirm your payment.",
		Link:        "/activities/" + activityID,
	}}
	if claimedBy != "" && claimedBy != participant.PersonID {
		notes = append(notes, notify.Notification{
			RecipientID: claimedBy,
			Title:       "Payment not confirmed",
			Message:     fmt.Sprintf("The organizer could not confirm your payment for %s.", participant.PersonID),
			Link:        "/activities/" + activityID,
		})
	}
	notify.Send(ctx, w.notifier, notes...)
	return participant, nil
}

func acceptsPayments(activity *models.Activity) error {
	if activity.Kind != models.KindEvent {
		return apperr.Conflict("activity %s does not take payments", activity.ID)
	}
	switch activity.Status {
	case models.ActivityOpen, models.ActivityCompleted:
		return nil
	}
	return apperr.Conflict("activity %s is %s", activity.ID, activity.Status)
}

func claimable(p *models.Participant) error {
	if p.Status != models.StatusConfirmed {
		return apperr.Conflict("%s is not a confirmed participant", p.PersonID)
	}
	if p.AmountOwed <= 0 {
		return apperr.Conflict("%s owes nothing", p.PersonID)
	}
	switch p.PaymentStatus {
	case models.PaymentPaid:
		return apperr.Conflict("payment of %s is already confirmed", p.PersonID)
	case models.PaymentInReview:
		return apperr.Conflict("payment of %s is already awaiting review", p.PersonID)
	}
	return nil
}

func dedupe(ids []string, exclude string) []string {
	seen := map[string]bool{exclude: true}
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func total(participants []*models.Participant) models.Cents {
	var sum models.Cents
	for _, p := range participants {
		sum += p.AmountOwed
	}
	return sum
}
