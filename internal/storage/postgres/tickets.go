package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/rollcall/internal/models"
)

func (r reader) ListTicketLinks(ctx context.Context, activityID string) ([]*models.TicketLink, error) {
	rows, err := r.q.Query(ctx,
		`SELECT l.activity_id, l.ticket_ref, l.internal, l.created_at, t.status, t.updated_at
		 FROM ticket_links l LEFT JOIN tickets t ON t.ref = l.ticket_ref
		 WHERE l.activity_id = $1 ORDER BY l.created_at, l.ticket_ref`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticket links: %w", err)
	}
	defer rows.Close()

	var links []*models.TicketLink
	for rows.Next() {
		link := &models.TicketLink{}
		var status *string
		var updatedAt *int64
		if err := rows.Scan(&link.ActivityID, &link.TicketRef, &link.Internal, &link.CreatedAt, &status, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket link: %w", err)
		}
		if status != nil {
			link.Ticket = &models.Ticket{Ref: link.TicketRef, Status: models.TicketStatus(*status)}
			if updatedAt != nil {
				link.Ticket.UpdatedAt = *updatedAt
			}
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticket links: %w", err)
	}
	return links, nil
}

func (t *txStore) AttachTicket(ctx context.Context, link *models.TicketLink) error {
	if link.CreatedAt == 0 {
		link.CreatedAt = time.Now().Unix()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO ticket_links (activity_id, ticket_ref, internal, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (activity_id, ticket_ref) DO UPDATE SET internal = EXCLUDED.internal`,
		link.ActivityID, link.TicketRef, link.Internal, link.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to attach ticket: %w", err)
	}
	return nil
}

func (t *txStore) UpsertTicket(ctx context.Context, ticket *models.Ticket) error {
	if ticket.UpdatedAt == 0 {
		ticket.UpdatedAt = time.Now().Unix()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO tickets (ref, status, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (ref) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		ticket.Ref, string(ticket.Status), ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ticket: %w", err)
	}
	return nil
}
