package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/closure"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/storage"
	"github.com/mmynk/rollcall/internal/testsupport"
)

func newTracker(t *testing.T) (*Tracker, storage.Store, *notify.Recorder) {
	t.Helper()
	store := testsupport.NewStore(t)
	recorder := &notify.Recorder{}
	gate := closure.NewGate(store, recorder, nil)
	return New(store, gate, recorder, nil), store, recorder
}

func owedBy(t *testing.T, store storage.Store, activityID string) map[string]models.Cents {
	t.Helper()
	participants, err := store.ListParticipants(context.Background(), activityID)
	require.NoError(t, err)
	out := make(map[string]models.Cents, len(participants))
	for _, p := range participants {
		out[p.PersonID] = p.AmountOwed
	}
	return out
}

func TestLockCost(t *testing.T) {
	ctx := context.Background()

	t.Run("splits with the residue cent going to the organizer", func(t *testing.T) {
		tr, store, recorder := newTracker(t)
		activity := testsupport.Event(t, store, "alice", 5)
		testsupport.Confirmed(t, store, activity.ID, "bob")
		testsupport.Confirmed(t, store, activity.ID, "carol")
		testsupport.Confirmed(t, store, activity.ID, "alice")
		testsupport.SaveParticipant(t, store, models.NewParticipant(activity.ID, "dave", models.StatusWaitlist))

		result, err := tr.LockCost(ctx, "alice", activity.ID, models.MustCents("100.00"))
		require.NoError(t, err)
		assert.Equal(t, models.MustCents("33.33"), result.PerPersonShare)
		assert.Len(t, result.Participants, 3)
		assert.True(t, result.Activity.CostLocked)

		owed := owedBy(t, store, activity.ID)
		assert.Equal(t, models.MustCents("33.34"), owed["alice"])
		assert.Equal(t, models.MustCents("33.33"), owed["bob"])
		assert.Equal(t, models.MustCents("33.33"), owed["carol"])
		assert.Equal(t, models.Cents(0), owed["dave"])
		assert.Equal(t, models.MustCents("100.00"), owed["alice"]+owed["bob"]+owed["carol"])

		require.Len(t, recorder.For("bob"), 1)
		assert.Contains(t, recorder.For("bob")[0].Message, "33.33")
		assert.Empty(t, recorder.For("dave"))
	})

	t.Run("residue follows confirmation order without the organizer", func(t *testing.T) {
		tr, store, _ := newTracker(t)
		activity := testsupport.Event(t, store, "alice", 5)
		testsupport.Confirmed(t, store, activity.ID, "bob")
		testsupport.Confirmed(t, store, activity.ID, "carol")
		testsupport.Confirmed(t, store, activity.ID, "dave")

		_, err := tr.LockCost(ctx, "alice", activity.ID, models.MustCents("0.05"))
		require.NoError(t, err)

		owed := owedBy(t, store, activity.ID)
		assert.Equal(t, models.Cents(2), owed["bob"])
		assert.Equal(t, models.Cents(2), owed["carol"])
		assert.Equal(t, models.Cents(1), owed["dave"])
	})

	t.Run("rejections", func(t *testing.T) {
		tr, store, _ := newTracker(t)
		activity := testsupport.Event(t, store, "alice", 5)

		_, err := tr.LockCost(ctx, "alice", activity.ID, models.MustCents("-1.00"))
		require.ErrorIs(t, err, apperr.ErrValidation)

		_, err = tr.LockCost(ctx, "bob", activity.ID, models.MustCents("10.00"))
		require.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = tr.LockCost(ctx, "alice", "missing", models.MustCents("10.00"))
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = tr.LockCost(ctx, "alice", activity.ID, models.MustCents("10.00"))
		require.ErrorIs(t, err, apperr.ErrConflict, "nobody confirmed to split among")

		_, err = tr.LockCost(ctx, "alice", activity.ID, 0)
		require.NoError(t, err, "a zero cost can be locked with nobody confirmed")
	})

	t.Run("re-lock allowed until a payment is claimed", func(t *testing.T) {
		tr, store, _ := newTracker(t)
		activity := testsupport.Event(t, store, "alice", 5)
		testsupport.Confirmed(t, store, activity.ID, "bob")
		testsupport.Confirmed(t, store, activity.ID, "carol")

		_, err := tr.LockCost(ctx, "alice", activity.ID, models.MustCents("50.00"))
		require.NoError(t, err)
		_, err = tr.LockCost(ctx, "alice", activity.ID, models.MustCents("60.00"))
		require.NoError(t, err)
		assert.Equal(t, models.MustCents("30.00"), owedBy(t, store, activity.ID)["bob"])

		bob := testsupport.Participant(t, store, activity.ID, "bob")
		bob.SetPayment(models.PaymentInReview)
		testsupport.SaveParticipant(t, store, bob)

		_, err = tr.LockCost(ctx, "alice", activity.ID, models.MustCents("70.00"))
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, models.MustCents("30.00"), owedBy(t, store, activity.ID)["bob"])
	})
}

func TestSetCosts(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(t)
	activity := testsupport.Event(t, store, "alice", 5)
	testsupport.Confirmed(t, store, activity.ID, "bob")
	testsupport.Confirmed(t, store, activity.ID, "carol")

	updated, err := tr.SetEstimatedCost(ctx, "alice", activity.ID, models.MustCents("40.00"))
	require.NoError(t, err)
	assert.Equal(t, models.MustCents("40.00"), updated.CurrentCost())
	assert.Equal(t, models.MustCents("20.00"), owedBy(t, store, activity.ID)["bob"])

	updated, err = tr.SetActualCost(ctx, "alice", activity.ID, models.MustCents("45.01"))
	require.NoError(t, err)
	assert.Equal(t, models.MustCents("45.01"), updated.CurrentCost())
	owed := owedBy(t, store, activity.ID)
	assert.Equal(t, models.MustCents("45.01"), owed["bob"]+owed["carol"])

	_, err = tr.SetActualCost(ctx, "bob", activity.ID, models.MustCents("1.00"))
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = tr.LockCost(ctx, "alice", activity.ID, models.MustCents("50.00"))
	require.NoError(t, err)

	_, err = tr.SetEstimatedCost(ctx, "alice", activity.ID, models.MustCents("10.00"))
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = tr.SetActualCost(ctx, "alice", activity.ID, models.MustCents("10.00"))
	require.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAggregateAndCheckCollection(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(t)
	activity := testsupport.Event(t, store, "alice", 5)
	testsupport.Confirmed(t, store, activity.ID, "alice")
	testsupport.Confirmed(t, store, activity.ID, "bob")

	_, err := tr.LockCost(ctx, "alice", activity.ID, models.MustCents("60.00"))
	require.NoError(t, err)

	agg, err := tr.Aggregate(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MustCents("60.00"), agg.TotalDue)
	assert.Equal(t, models.Cents(0), agg.TotalCollected)
	assert.False(t, agg.CollectionComplete)

	tr.CheckCollection(ctx, activity.ID)
	assert.Equal(t, models.ActivityOpen, testsupport.Activity(t, store, activity.ID).Status)

	bob := testsupport.Participant(t, store, activity.ID, "bob")
	bob.SetPayment(models.PaymentPaid)
	testsupport.SaveParticipant(t, store, bob)

	agg, err = tr.Aggregate(ctx, activity.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MustCents("30.00"), agg.TotalCollected)
	assert.Equal(t, models.MustCents("30.00"), agg.Outstanding)
	assert.True(t, agg.CollectionComplete, "the organizer's own share is internal")

	tr.CheckCollection(ctx, activity.ID)
	assert.True(t, testsupport.Activity(t, store, activity.ID).IsSettled())

	_, err = tr.Aggregate(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMeetingsCarryNoCost(t *testing.T) {
	ctx := context.Background()
	tr, store, _ := newTracker(t)
	meeting := testsupport.Meeting(t, store, "alice")
	testsupport.Confirmed(t, store, meeting.ID, "bob")

	_, err := tr.SetEstimatedCost(ctx, "alice", meeting.ID, models.MustCents("40.00"))
	require.ErrorIs(t, err, apperr.ErrConflict)
	_, err = tr.SetActualCost(ctx, "alice", meeting.ID, models.MustCents("40.00"))
	require.ErrorIs(t, err, apperr.ErrConflict)

	assert.Equal(t, models.Cents(0), owedBy(t, store, meeting.ID)["bob"])
	assert.Equal(t, models.Cents(0), testsupport.Activity(t, store, meeting.ID).CurrentCost())
}
