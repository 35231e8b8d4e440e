package closure

import (
	"context"
	"strings"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

// AttachTicket links a support ticket to a meeting so it gates settlement.
func (g *Gate) AttachTicket(ctx context.Context, callerID, activityID, ticketRef string, internal bool) (*models.TicketLink, error) {
	ticketRef = strings.TrimSpace(ticketRef)
	if ticketRef == "" {
		return nil, apperr.Validation("ticket ref is required")
	}
	if _, err := storage.RequireOrganizer(ctx, g.store, activityID, callerID); err != nil {
		return nil, err
	}

	link := &models.TicketLink{ActivityID: activityID, TicketRef: ticketRef, Internal: internal}
	err := g.store.WithTx(ctx, func(tx storage.Tx) error {
		activity, err := tx.LockActivity(ctx, activityID)
		if err != nil {
			return err
		}
		if activity.Kind != models.KindMeeting {
			return apperr.Conflict("tickets can only be attached to meetings")
		}
		if activity.Status.Terminal() {
			return apperr.Conflict("activity %s is %s", activityID, activity.Status)
		}
		return tx.AttachTicket(ctx, link)
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RecordTicketStatus stores the latest status reported for a ticket.
// Only admins may call it; it stands in for the ticket system's webhook.
func (g *Gate) RecordTicketStatus(ctx context.Context, admin bool, ticketRef string, status models.TicketStatus) (*models.Ticket, error) {
	ticketRef = strings.TrimSpace(ticketRef)
	if ticketRef == "" {
		return nil, apperr.Validation("ticket ref is required")
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown ticket status %q", status)
	}
	if !admin {
		return nil, apperr.Forbidden("only admins may record ticket status")
	}

	ticket := &models.Ticket{Ref: ticketRef, Status: status}
	err := g.store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.UpsertTicket(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}
