package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
)

const participantColumns = `id, activity_id, person_id, status, amount_owed, payment_status, paid, paid_by,
    transport, seats, pickup_note, driver_id, status_changed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(row rowScanner) (*models.Participant, error) {
	p := &models.Participant{}
	var paidBy, pickupNote, driverID sql.NullString

	if err := row.Scan(&p.ID, &p.ActivityID, &p.PersonID, &p.Status, &p.AmountOwed, &p.PaymentStatus,
		&p.Paid, &paidBy, &p.Transport, &p.Seats, &pickupNote, &driverID,
		&p.StatusChangedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.PaidBy = paidBy.String
	p.PickupNote = pickupNote.String
	p.DriverID = driverID.String
	return p, nil
}

// ListParticipants retrieves all participants of an activity.
func (r reader) ListParticipants(ctx context.Context, activityID string) ([]*models.Participant, error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = ? ORDER BY created_at, id",
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

// GetParticipant retrieves the participant row for a person in an activity.
func (t *txStore) GetParticipant(ctx context.Context, activityID, personID string) (*models.Participant, error) {
	p, err := scanParticipant(t.tx.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = ? AND person_id = ?",
		activityID, personID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("participant %s in activity %s", personID, activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// GetParticipantByID retrieves a participant row by ID, scoped to the activity.
func (t *txStore) GetParticipantByID(ctx context.Context, activityID, participantID string) (*models.Participant, error) {
	p, err := scanParticipant(t.tx.QueryRowContext(ctx,
		"SELECT "+participantColumns+" FROM participants WHERE activity_id = ? AND id = ?",
		activityID, participantID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("participant %s in activity %s", participantID, activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// SaveParticipant inserts a new participant or updates an existing one.
func (t *txStore) SaveParticipant(ctx context.Context, p *models.Participant) error {
	now := time.Now().Unix()
	p.UpdatedAt = now

	if p.ID == "" {
		p.ID = uuid.New().String()
		if p.CreatedAt == 0 {
			p.CreatedAt = now
		}
		_, err := t.tx.ExecContext(ctx,
			"INSERT INTO participants ("+participantColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			p.ID, p.ActivityID, p.PersonID, p.Status, p.AmountOwed, p.PaymentStatus, p.Paid,
			nullString(p.PaidBy), p.Transport, p.Seats, nullString(p.PickupNote), nullString(p.DriverID),
			p.StatusChangedAt, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
		return nil
	}

	_, err := t.tx.ExecContext(ctx,
		`UPDATE participants SET status = ?, amount_owed = ?, payment_status = ?, paid = ?, paid_by = ?,
		 transport = ?, seats = ?, pickup_note = ?, driver_id = ?, status_changed_at = ?, updated_at = ?
		 WHERE id = ?`,
		p.Status, p.AmountOwed, p.PaymentStatus, p.Paid, nullString(p.PaidBy),
		p.Transport, p.Seats, nullString(p.PickupNote), nullString(p.DriverID),
		p.StatusChangedAt, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update participant: %w", err)
	}
	return nil
}

// CountConfirmed counts confirmed participants, excluding one person.
func (t *txStore) CountConfirmed(ctx context.Context, activityID, excludePersonID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE activity_id = ? AND status = ? AND person_id <> ?",
		activityID, models.StatusConfirmed, excludePersonID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count confirmed participants: %w", err)
	}
	return n, nil
}

// CountRiders counts riders currently assigned to a driver.
func (t *txStore) CountRiders(ctx context.Context, activityID, driverPersonID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM participants WHERE activity_id = ? AND driver_id = ?",
		activityID, driverPersonID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count riders: %w", err)
	}
	return n, nil
}
