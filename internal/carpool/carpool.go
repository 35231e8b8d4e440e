// Package carpool assigns riders to drivers' free seats.
package carpool

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

// Matcher assigns and releases rides.
type Matcher struct {
	store    storage.Store
	notifier notify.Notifier
	events   events.Publisher
}

// New creates a Matcher. notifier and publisher may be nil.
func New(store storage.Store, notifier notify.Notifier, publisher events.Publisher) *Matcher {
	return &Matcher{store: store, notifier: notifier, events: publisher}
}

// AssignRider seats riderPersonID in driverPersonID's car. The seat count is
// checked and the assignment written in one transaction.
func (m *Matcher) AssignRider(ctx context.Context, callerID, activityID, driverPersonID, riderPersonID string) (*models.Participant, error) {
	if strings.TrimSpace(driverPersonID) == "" || strings.TrimSpace(riderPersonID) == "" {
		return nil, apperr.Validation("driver and rider are required")
	}
	if driverPersonID == riderPersonID {
		return nil, apperr.Validation("a driver cannot ride with themselves")
	}
	activity, err := storage.RequireActivity(ctx, m.store, activityID)
	if err != nil {
		return nil, err
	}
	if callerID != activity.OrganizerID && callerID != driverPersonID {
		return nil, apperr.Forbidden("only the organizer or the driver may assign riders")
	}

	var rider *models.Participant
	err = m.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Status.Terminal() {
			return apperr.Conflict("activity %s is %s", activityID, activity.Status)
		}

		driver, err := tx.GetParticipant(ctx, activityID, driverPersonID)
		if err != nil {
			return err
		}
		if !driver.IsDriver() {
			return apperr.Conflict("%s is not a confirmed driver", driverPersonID)
		}

		rider, err = tx.GetParticipant(ctx, activityID, riderPersonID)
		if err != nil {
			return err
		}
		if rider.Status != models.StatusConfirmed || rider.Transport != models.TransportRider {
			return apperr.Conflict("%s is not a confirmed rider", riderPersonID)
		}
		if rider.DriverID != "" {
			return apperr.Conflict("%s already rides with %s", riderPersonID, rider.DriverID)
		}

		assigned, err := tx.CountRiders(ctx, activityID, driverPersonID)
		if err != nil {
			return err
		}
		if assigned >= driver.Seats {
			return apperr.Conflict("%s has no free seats", driverPersonID)
		}

		rider.DriverID = driverPersonID
		return tx.SaveParticipant(ctx, rider)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Rider assigned", "activity_id", activityID, "driver_id", driverPersonID, "rider_id", riderPersonID)
	events.Publish(ctx, m.events, events.Event{ActivityID: activityID, Kind: events.KindRide, PersonID: riderPersonID, Status: "assigned"})

	pickup := ""
	if rider.PickupNote != "" {
		pickup = fmt.Sprintf(" Pickup: %s.", rider.PickupNote)
	}
	notify.Send(ctx, m.notifier,
		notify.Notification{
			RecipientID: riderPersonID,
			Title:       "Ride assigned",
			Message:     fmt.Sprintf("You are riding with %s.", driverPersonID),
			Link:        "/activities/" + activityID,
		},
		notify.Notification{
			RecipientID: driverPersonID,
			Title:       "Rider assigned",
			Message:     fmt.Sprintf("%s is riding with you.%s", riderPersonID, pickup),
			Link:        "/activities/" + activityID,
		},
	)
	return rider, nil
}

// UnassignRider frees the rider's seat. The organizer, the driver and the
// rider may each do this.
func (m *Matcher) UnassignRider(ctx context.Context, callerID, activityID, riderPersonID string) (*models.Participant, error) {
	if strings.TrimSpace(riderPersonID) == "" {
		return nil, apperr.Validation("rider is required")
	}
	if _, err := storage.RequireActivity(ctx, m.store, activityID); err != nil {
		return nil, err
	}

	var rider *models.Participant
	var driverID string
	err := m.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Status.Terminal() {
			return apperr.Conflict("activity %s is %s", activityID, activity.Status)
		}

		rider, err = tx.GetParticipant(ctx, activityID, riderPersonID)
		if err != nil {
			return err
		}
		if callerID != activity.OrganizerID && callerID != riderPersonID && callerID != rider.DriverID {
			return apperr.Forbidden("only the organizer, the driver or the rider may release a seat")
		}
		if rider.DriverID == "" {
			return apperr.Conflict("%s has no assigned driver", riderPersonID)
		}

		driverID = rider.DriverID
		rider.DriverID = ""
		return tx.SaveParticipant(ctx, rider)
	})
	if err != nil {
		return nil, err
	}

	events.Publish(ctx, m.events, events.Event{ActivityID: activityID, Kind: events.KindRide, PersonID: riderPersonID, Status: "unassigned"})
	notify.Send(ctx, m.notifier, notify.Notification{
		RecipientID: driverID,
		Title:       "Rider released",
		Message:     fmt.Sprintf("%s no longer rides with you.", riderPersonID),
		Link:        "/activities/" + activityID,
	})
	return rider, nil
}
