package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/testsupport"
)

func TestCreateActivity(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)

	estimated := models.MustCents("12.50")
	activity, err := l.CreateActivity(ctx, "alice", CreateRequest{
		Kind:          models.KindEvent,
		Title:         "  Bowling  ",
		Capacity:      6,
		EstimatedCost: &estimated,
	})
	require.NoError(t, err)
	assert.Equal(t, "Bowling", activity.Title)
	assert.Equal(t, "alice", activity.OrganizerID)
	assert.Equal(t, models.ActivityOpen, activity.Status)

	stored := testsupport.Activity(t, store, activity.ID)
	assert.Equal(t, estimated, stored.CurrentCost())

	draft, err := l.CreateActivity(ctx, "alice", CreateRequest{Kind: models.KindMeeting, Title: "Sync", Capacity: 9, Draft: true})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityDraft, draft.Status)
	assert.Equal(t, 0, draft.Capacity)

	invalid := []CreateRequest{
		{Kind: "party", Title: "x", Capacity: 1},
		{Kind: models.KindEvent, Title: " ", Capacity: 1},
		{Kind: models.KindEvent, Title: "x", Capacity: 0},
		{Kind: models.KindMeeting, Title: "x", Capacity: -1},
		{Kind: models.KindMeeting, Title: "x", EstimatedCost: &estimated},
	}
	for _, req := range invalid {
		_, err := l.CreateActivity(ctx, "alice", req)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", req)
	}
}

func TestTransition(t *testing.T) {
	ctx := context.Background()
	l, store, recorder := newLedger(t)

	activity, err := l.CreateActivity(ctx, "alice", CreateRequest{Kind: models.KindEvent, Title: "Trip", Capacity: 4, Draft: true})
	require.NoError(t, err)

	_, err = l.Transition(ctx, "alice", activity.ID, models.ActivityCompleted)
	require.ErrorIs(t, err, apperr.ErrConflict, "draft cannot complete")

	_, err = l.Transition(ctx, "bob", activity.ID, models.ActivityOpen)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = l.Transition(ctx, "alice", activity.ID, models.ActivitySettled)
	require.ErrorIs(t, err, apperr.ErrValidation, "settlement belongs to the gate")

	opened, err := l.Transition(ctx, "alice", activity.ID, models.ActivityOpen)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityOpen, opened.Status)

	testsupport.Confirmed(t, store, activity.ID, "bob")

	cancelled, err := l.Transition(ctx, "alice", activity.ID, models.ActivityCancelled)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCancelled, cancelled.Status)
	assert.Len(t, recorder.For("bob"), 1)

	_, err = l.Transition(ctx, "alice", activity.ID, models.ActivityOpen)
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestInvite(t *testing.T) {
	ctx := context.Background()
	l, store, recorder := newLedger(t)
	activity := testsupport.Event(t, store, "alice", 4)
	testsupport.Confirmed(t, store, activity.ID, "bob")

	rows, err := l.Invite(ctx, "alice", activity.ID, []string{"bob", "carol", "carol", " "})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.StatusConfirmed, rows[0].Status, "existing rows are untouched")
	assert.Equal(t, models.StatusInvited, rows[1].Status)

	assert.Empty(t, recorder.For("bob"))
	assert.Len(t, recorder.For("carol"), 1)

	_, err = l.Invite(ctx, "alice", activity.ID, nil)
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = l.Invite(ctx, "bob", activity.ID, []string{"dave"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	res, err := l.SubmitCommitment(ctx, "carol", confirm(activity.ID, "carol"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, res.Effective)
}
