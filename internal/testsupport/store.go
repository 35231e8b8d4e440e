// Package testsupport builds SQLite-backed fixtures for package tests.
package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
	"github.com/mmynk/rollcall/internal/storage/sqlite"
)

// NewStore opens a fresh SQLite database in a temp dir.
func NewStore(t testing.TB) storage.Store {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "rollcall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Event creates an open event organized by organizerID.
func Event(t testing.TB, store storage.Store, organizerID string, capacity int) *models.Activity {
	t.Helper()
	return SaveActivity(t, store, &models.Activity{
		Kind:        models.KindEvent,
		Title:       "Test event",
		OrganizerID: organizerID,
		Capacity:    capacity,
		Status:      models.ActivityOpen,
	})
}

// Meeting creates an open meeting organized by organizerID.
func Meeting(t testing.TB, store storage.Store, organizerID string) *models.Activity {
	t.Helper()
	return SaveActivity(t, store, &models.Activity{
		Kind:        models.KindMeeting,
		Title:       "Test meeting",
		OrganizerID: organizerID,
		Status:      models.ActivityOpen,
	})
}

// SaveActivity inserts a new activity or updates an existing one.
func SaveActivity(t testing.TB, store storage.Store, activity *models.Activity) *models.Activity {
	t.Helper()
	ctx := context.Background()
	err := store.WithTx(ctx, func(tx storage.Tx) error {
		if activity.ID == "" {
			return tx.CreateActivity(ctx, activity)
		}
		return tx.UpdateActivity(ctx, activity)
	})
	require.NoError(t, err)
	return activity
}

// SaveParticipant inserts or updates a participant row as given, bypassing
// the ledger rules.
func SaveParticipant(t testing.TB, store storage.Store, p *models.Participant) *models.Participant {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.WithTx(ctx, func(tx storage.Tx) error {
		return tx.SaveParticipant(ctx, p)
	}))
	return p
}

// Confirmed inserts a confirmed, independently travelling participant.
func Confirmed(t testing.TB, store storage.Store, activityID, personID string) *models.Participant {
	t.Helper()
	p := models.NewParticipant(activityID, personID, models.StatusConfirmed)
	p.Transport = models.TransportIndependent
	return SaveParticipant(t, store, p)
}

// Participant reads the current row for a person.
func Participant(t testing.TB, store storage.Store, activityID, personID string) *models.Participant {
	t.Helper()
	participants, err := store.ListParticipants(context.Background(), activityID)
	require.NoError(t, err)
	for _, p := range participants {
		if p.PersonID == personID {
			return p
		}
	}
	t.Fatalf("participant %s not found in activity %s", personID, activityID)
	return nil
}

// Activity reads the current activity row.
func Activity(t testing.TB, store storage.Store, activityID string) *models.Activity {
	t.Helper()
	activity, err := store.GetActivity(context.Background(), activityID)
	require.NoError(t, err)
	return activity
}
