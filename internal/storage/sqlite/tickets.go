package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mmynk/rollcall/internal/models"
)

// ListTicketLinks retrieves the tickets attached to an activity, left-joined
// with their last known status.
func (r reader) ListTicketLinks(ctx context.Context, activityID string) ([]*models.TicketLink, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT l.activity_id, l.ticket_ref, l.internal, l.created_at, t.status, t.updated_at
		 FROM ticket_links l LEFT JOIN tickets t ON t.ref = l.ticket_ref
		 WHERE l.activity_id = ? ORDER BY l.created_at, l.ticket_ref`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket links: %w", err)
	}
	defer rows.Close()

	var links []*models.TicketLink
	for rows.Next() {
		link := &models.TicketLink{}
		var status sql.NullString
		var updatedAt sql.NullInt64
		if err := rows.Scan(&link.ActivityID, &link.TicketRef, &link.Internal, &link.CreatedAt, &status, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket link: %w", err)
		}
		if status.Valid {
			link.Ticket = &models.Ticket{
				Ref:       link.TicketRef,
				Status:    models.TicketStatus(status.String),
				UpdatedAt: updatedAt.Int64,
			}
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket links: %w", err)
	}

	return links, nil
}

// AttachTicket links a ticket to an activity.
func (t *txStore) AttachTicket(ctx context.Context, link *models.TicketLink) error {
	if link.CreatedAt == 0 {
		link.CreatedAt = time.Now().Unix()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO ticket_links (activity_id, ticket_ref, internal, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (activity_id, ticket_ref) DO UPDATE SET internal = excluded.internal`,
		link.ActivityID, link.TicketRef, link.Internal, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to attach ticket: %w", err)
	}
	return nil
}

// UpsertTicket records the last known status of a ticket.
func (t *txStore) UpsertTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.UpdatedAt == 0 {
		ticket.UpdatedAt = time.Now().Unix()
	}
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO tickets (ref, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (ref) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		ticket.Ref, ticket.Status, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ticket: %w", err)
	}
	return nil
}
