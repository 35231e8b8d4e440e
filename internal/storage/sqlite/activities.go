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

const activityColumns = `id, kind, title, organizer_id, capacity, estimated_cost, actual_cost, final_cost,
    cost_locked, status, settled_at, created_at, updated_at`

// GetActivity retrieves an activity by ID.
func (r reader) GetActivity(ctx context.Context, activityID string) (*models.Activity, error) {
	activity := &models.Activity{}
	var estimated, actual, final sql.NullInt64

	err := r.q.QueryRowContext(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = ?",
		activityID,
	).Scan(&activity.ID, &activity.Kind, &activity.Title, &activity.OrganizerID, &activity.Capacity,
		&estimated, &actual, &final, &activity.CostLocked, &activity.Status, &activity.SettledAt,
		&activity.CreatedAt, &activity.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("activity %s", activityID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	activity.EstimatedCost = centsPtr(estimated)
	activity.ActualCost = centsPtr(actual)
	activity.FinalCost = centsPtr(final)
	return activity, nil
}

// CreateActivity persists a new activity.
func (t *txStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	// Generate IDs if not set
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt == 0 {
		activity.CreatedAt = time.Now().Unix()
	}
	activity.UpdatedAt = activity.CreatedAt

	_, err := t.tx.ExecContext(ctx,
		"INSERT INTO activities ("+activityColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		activity.ID, activity.Kind, activity.Title, activity.OrganizerID, activity.Capacity,
		nullCents(activity.EstimatedCost), nullCents(activity.ActualCost), nullCents(activity.FinalCost),
		activity.CostLocked, activity.Status, activity.SettledAt, activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// UpdateActivity writes back the mutable columns of an activity.
func (t *txStore) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	activity.Touch()

	result, err := t.tx.ExecContext(ctx,
		`UPDATE activities SET title = ?, capacity = ?, estimated_cost = ?, actual_cost = ?, final_cost = ?,
		 cost_locked = ?, status = ?, settled_at = ?, updated_at = ?
		 WHERE id = ?`,
		activity.Title, activity.Capacity,
		nullCents(activity.EstimatedCost), nullCents(activity.ActualCost), nullCents(activity.FinalCost),
		activity.CostLocked, activity.Status, activity.SettledAt, activity.UpdatedAt,
		activity.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return apperr.NotFound("activity %s", activity.ID)
	}
	return nil
}
