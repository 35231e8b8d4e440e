package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
)

const activityColumns = `id, kind, title, organizer_id, capacity, estimated_cost, actual_cost, final_cost,
    cost_locked, status, settled_at, created_at, updated_at`

func (r reader) GetActivity(ctx context.Context, activityID string) (*models.Activity, error) {
	return r.getActivity(ctx, activityID, "")
}

func (r reader) getActivity(ctx context.Context, activityID, suffix string) (*models.Activity, error) {
	activity := &models.Activity{}
	var estimated, actual, final *int64

	err := r.q.QueryRow(ctx,
		"SELECT "+activityColumns+" FROM activities WHERE id = $1"+suffix,
		activityID,
	).Scan(&activity.ID, &activity.Kind, &activity.Title, &activity.OrganizerID, &activity.Capacity,
		&estimated, &actual, &final, &activity.CostLocked, &activity.Status, &activity.SettledAt,
		&activity.CreatedAt, &activity.UpdatedAt)
	if isNoRows(err) {
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

func (t *txStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt == 0 {
		activity.CreatedAt = time.Now().Unix()
	}
	activity.UpdatedAt = activity.CreatedAt

	_, err := t.tx.Exec(ctx,
		`INSERT INTO activities (`+activityColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		activity.ID, string(activity.Kind), activity.Title, activity.OrganizerID, activity.Capacity,
		nullCents(activity.EstimatedCost), nullCents(activity.ActualCost), nullCents(activity.FinalCost),
		activity.CostLocked, string(activity.Status), activity.SettledAt, activity.CreatedAt, activity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

func (t *txStore) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	activity.Touch()

	tag, err := t.tx.Exec(ctx,
		`UPDATE activities SET title = $1, capacity = $2, estimated_cost = $3, actual_cost = $4, final_cost = $5,
		 cost_locked = $6, status = $7, settled_at = $8, updated_at = $9
		 WHERE id = $10`,
		activity.Title, activity.Capacity,
		nullCents(activity.EstimatedCost), nullCents(activity.ActualCost), nullCents(activity.FinalCost),
		activity.CostLocked, string(activity.Status), activity.SettledAt, activity.UpdatedAt,
		activity.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("activity %s", activity.ID)
	}
	return nil
}
