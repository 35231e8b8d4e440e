package storage

import (
	"context"
	"strings"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
)

// RequireActivity loads an activity outside any transaction, for the
// existence check that precedes a write.
func RequireActivity(ctx context.Context, r Reader, activityID string) (*models.Activity, error) {
	if strings.TrimSpace(activityID) == "" {
		return nil, apperr.Validation("activity id is required")
	}
	return r.GetActivity(ctx, activityID)
}

// RequireOrganizer loads an activity and checks that callerID organizes it.
func RequireOrganizer(ctx context.Context, r Reader, activityID, callerID string) (*models.Activity, error) {
	activity, err := RequireActivity(ctx, r, activityID)
	if err != nil {
		return nil, err
	}
	if activity.OrganizerID != callerID {
		return nil, apperr.Forbidden("only the organizer of activity %s may do this", activityID)
	}
	return activity, nil
}
