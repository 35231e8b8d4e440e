package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
)

const participantColumns = `id, activity_id, person_id, status, amount_owed, payment_status, paid, paid_by,
    transport, seats, pickup_note, driver_id, status_changed_at, created_at, updated_at`

func scanParticipant(row pgx.Row) (*models.Participant, error) {
	p := &models.Participant{}
	var paidBy, pickupNote, driverID *string

	if err := row.Scan(&p.ID, &p.ActivityID, &p.PersonID, &p.Status, &p.AmountOwed, &p.PaymentStatus,
		&p.Paid, &paidBy, &p.Transport, &p.Seats, &pickupNote, &driverID,
		&p.StatusChangedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.PaidBy = deref(paidBy)
	p.PickupNote = deref(pickupNote)
	p.DriverID = deref(driverID)
	return p, nil
}

func (r reader) ListParticipants(ctx context.Context, activityID string) ([]*models.Participant, error) {
	rows, err := r.q.Query(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = $1 ORDER BY created_at, id",
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

func (t *txStore) GetParticipant(ctx context.Context, activityID, personID string) (*models.Participant, error) {
	p, err := scanParticipant(t.tx.QueryRow(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = $1 AND person_id = $2",
		activityID, personID,
	))
	if isNoRows(err) {
		return nil, apperr.NotFound("participant %s in activity %s", personID, activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (t *txStore) GetParticipantByID(ctx context.Context, activityID, participantID string) (*models.Participant, error) {
	p, err := scanParticipant(t.tx.QueryRow(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = $1 AND id = $2",
		activityID, participantID,
	))
	if isNoRows(err) {
		return nil, apperr.NotFound("participant %s in activity %s", participantID, activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

func (t *txStore) SaveParticipant(ctx context.Context, p *models.Participant) error {
	now := time.Now().Unix()
	p.UpdatedAt = now

	if p.ID == "" {
		p.ID = uuid.New().String()
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}
		_, err := t.tx.Exec(ctx,
			`INSERT INTO participants (`+participantColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			p.ID, p.ActivityID, p.PersonID, string(p.Status), int64(p.AmountOwed), string(p.PaymentStatus), p.Paid,
			nullString(p.PaidBy), string(p.Transport), p.Seats, nullString(p.PickupNote), nullString(p.DriverID),
			p.StatusChangedAt, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil
	}

	_, err := t.tx.Exec(ctx,
		`UPDATE participants SET status = $1, amount_owed = $2, payment_status = $3, paid = $4, paid_by = $5,
		 transport = $6, seats = $7, pickup_note = $8, driver_id = $9, status_changed_at = $10, updated_at = $11
		 WHERE id = $12`,
		string(p.Status), int64(p.AmountOwed), string(p.PaymentStatus), p.Paid, nullString(p.PaidBy),
		string(p.Transport), p.Seats, nullString(p.PickupNote), nullString(p.DriverID),
		p.StatusChangedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

func (t *txStore) CountConfirmed(ctx context.Context, activityID, excludePersonID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM participants WHERE activity_id = $1 AND status = $2 AND person_id <> $3",
		activityID, string(models.StatusConfirmed), excludePersonID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed participants: %w", err)
	}
	return n, nil
}

func (t *txStore) CountRiders(ctx context.Context, activityID, driverPersonID string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM participants WHERE activity_id = $1 AND driver_id = $2",
		activityID, driverPersonID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count riders: %w", err)
	}
	return n, nil
}
