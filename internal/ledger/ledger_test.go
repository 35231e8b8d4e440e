package ledger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/rollcall/internal/apperr"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/storage"
	"github.com/mmynk/rollcall/internal/testsupport"
)

func newLedger(t *testing.T) (*Ledger, storage.Store, *notify.Recorder) {
	t.Helper()
	store := testsupport.NewStore(t)
	recorder := &notify.Recorder{}
	return New(store, recorder, nil), store, recorder
}

func confirm(activityID, personID string) CommitmentRequest {
	return CommitmentRequest{
		ActivityID: activityID,
		PersonID:   personID,
		Status:     models.StatusConfirmed,
		Transport:  models.TransportIndependent,
	}
}

func countStatus(t *testing.T, store storage.Store, activityID string, status models.CommitmentStatus) int {
	t.Helper()
	participants, err := store.ListParticipants(context.Background(), activityID)
	require.NoError(t, err)
	n := 0
	for _, p := range participants {
		if p.Status == status {
			n++
		}
	}
	return n
}

func TestCommitmentRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  CommitmentRequest
	}{
		{"missing activity", CommitmentRequest{PersonID: "bob", Status: models.StatusMaybe}},
		{"missing person", CommitmentRequest{ActivityID: "a", Status: models.StatusMaybe}},
		{"invited cannot be requested", CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusInvited}},
		{"confirmed without transport", CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusConfirmed}},
		{"unknown transport", CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusConfirmed, Transport: "boat"}},
		{"driver without seats", CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusConfirmed, Transport: models.TransportDriver}},
		{"negative seats", CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusMaybe, Seats: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), apperr.ErrValidation)
		})
	}

	assert.NoError(t, CommitmentRequest{ActivityID: "a", PersonID: "bob", Status: models.StatusMaybe}.Validate())
}

func TestSubmitCommitment(t *testing.T) {
	ctx := context.Background()

	t.Run("grants until full then waitlists", func(t *testing.T) {
		l, store, recorder := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 2)

		for _, person := range []string{"bob", "carol"} {
			res, err := l.SubmitCommitment(ctx, person, confirm(activity.ID, person))
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, res.Effective)
		}

		res, err := l.SubmitCommitment(ctx, "dave", confirm(activity.ID, "dave"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, res.Requested)
		assert.Equal(t, models.StatusWaitlist, res.Effective)
		assert.Equal(t, models.StatusWaitlist, res.Participant.Status)

		assert.Equal(t, 2, countStatus(t, store, activity.ID, models.StatusConfirmed))
		assert.Len(t, recorder.For("alice"), 2)
	})

	t.Run("re-confirming does not count the requester twice", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 1)

		_, err := l.SubmitCommitment(ctx, "bob", confirm(activity.ID, "bob"))
		require.NoError(t, err)

		req := confirm(activity.ID, "bob")
		req.PickupNote = "running late"
		res, err := l.SubmitCommitment(ctx, "bob", req)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, res.Effective)
		assert.Equal(t, "running late", res.Participant.PickupNote)
	})

	t.Run("exact confirmation fails instead of waitlisting", func(t *testing.T) {
		l, store, recorder := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 1)
		_, err := l.SubmitCommitment(ctx, "bob", confirm(activity.ID, "bob"))
		require.NoError(t, err)
		_, err = l.SubmitCommitment(ctx, "carol", CommitmentRequest{ActivityID: activity.ID, PersonID: "carol", Status: models.StatusMaybe})
		require.NoError(t, err)
		before := len(recorder.All())

		req := confirm(activity.ID, "carol")
		req.Exact = true
		_, err = l.SubmitCommitment(ctx, "carol", req)
		require.ErrorIs(t, err, apperr.ErrConflict)

		carol := testsupport.Participant(t, store, activity.ID, "carol")
		assert.Equal(t, models.StatusMaybe, carol.Status)
		assert.Equal(t, models.TransportNone, carol.Transport)
		assert.Equal(t, 0, countStatus(t, store, activity.ID, models.StatusWaitlist))
		assert.Len(t, recorder.All(), before)

		req.PersonID = "dave"
		_, err = l.SubmitCommitment(ctx, "dave", req)
		require.ErrorIs(t, err, apperr.ErrConflict)
		participants, err := store.ListParticipants(ctx, activity.ID)
		require.NoError(t, err)
		assert.Len(t, participants, 2, "no row is created for a refused exact confirmation")
	})

	t.Run("exact confirmation succeeds while there is room", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 1)
		req := confirm(activity.ID, "bob")
		req.Exact = true
		res, err := l.SubmitCommitment(ctx, "bob", req)
		require.NoError(t, err)
		assert.Equal(t, models.StatusConfirmed, res.Effective)
	})

	t.Run("omitted pickup note keeps the stored one", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 3)

		req := CommitmentRequest{ActivityID: activity.ID, PersonID: "rob", Status: models.StatusConfirmed, Transport: models.TransportRider, PickupNote: "corner of 5th"}
		_, err := l.SubmitCommitment(ctx, "rob", req)
		require.NoError(t, err)

		req.PickupNote = ""
		req.Status = models.StatusConfirmed
		res, err := l.SubmitCommitment(ctx, "rob", req)
		require.NoError(t, err)
		assert.Equal(t, "corner of 5th", res.Participant.PickupNote)

		req.PickupNote = "train station"
		res, err = l.SubmitCommitment(ctx, "rob", req)
		require.NoError(t, err)
		assert.Equal(t, "train station", res.Participant.PickupNote)
	})

	t.Run("meetings are unbounded", func(t *testing.T) {
		l, store, _ := newLedger(t)
		meeting := testsupport.Meeting(t, store, "alice")
		for i := 0; i < 5; i++ {
			person := fmt.Sprintf("p%d", i)
			res, err := l.SubmitCommitment(ctx, person, confirm(meeting.ID, person))
			require.NoError(t, err)
			assert.Equal(t, models.StatusConfirmed, res.Effective)
		}
	})

	t.Run("non-confirmed requests are stored as-is", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 1)
		res, err := l.SubmitCommitment(ctx, "bob", CommitmentRequest{ActivityID: activity.ID, PersonID: "bob", Status: models.StatusMaybe})
		require.NoError(t, err)
		assert.Equal(t, models.StatusMaybe, res.Effective)
		assert.Equal(t, models.TransportNone, res.Participant.Transport)
	})

	t.Run("rejections", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 2)

		_, err := l.SubmitCommitment(ctx, "mallory", confirm(activity.ID, "bob"))
		require.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = l.SubmitCommitment(ctx, "bob", confirm("missing", "bob"))
		require.ErrorIs(t, err, apperr.ErrNotFound)

		activity.Status = models.ActivityCompleted
		testsupport.SaveActivity(t, store, activity)
		_, err = l.SubmitCommitment(ctx, "bob", confirm(activity.ID, "bob"))
		require.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("confirmed set is frozen once the cost is locked", func(t *testing.T) {
		l, store, _ := newLedger(t)
		activity := testsupport.Event(t, store, "alice", 3)
		testsupport.Confirmed(t, store, activity.ID, "bob")

		final := models.MustCents("30.00")
		activity.FinalCost = &final
		activity.CostLocked = true
		testsupport.SaveActivity(t, store, activity)

		_, err := l.SubmitCommitment(ctx, "carol", confirm(activity.ID, "carol"))
		require.ErrorIs(t, err, apperr.ErrConflict)

		_, err = l.SubmitCommitment(ctx, "bob", CommitmentRequest{ActivityID: activity.ID, PersonID: "bob", Status: models.StatusMaybe})
		require.ErrorIs(t, err, apperr.ErrConflict)

		_, err = l.Withdraw(ctx, "bob", activity.ID, "bob")
		require.ErrorIs(t, err, apperr.ErrConflict)

		res, err := l.SubmitCommitment(ctx, "dave", CommitmentRequest{ActivityID: activity.ID, PersonID: "dave", Status: models.StatusMaybe})
		require.NoError(t, err, "non-confirmed changes are still allowed")
		assert.Equal(t, models.StatusMaybe, res.Effective)
	})

	t.Run("shares follow the confirmed set", func(t *testing.T) {
		l, store, _ := newLedger(t)
		estimated := models.MustCents("90.00")
		activity := testsupport.Event(t, store, "alice", 5)
		activity.EstimatedCost = &estimated
		testsupport.SaveActivity(t, store, activity)

		for _, person := range []string{"bob", "carol", "dave"} {
			_, err := l.SubmitCommitment(ctx, person, confirm(activity.ID, person))
			require.NoError(t, err)
		}
		assert.Equal(t, models.MustCents("30.00"), testsupport.Participant(t, store, activity.ID, "bob").AmountOwed)

		withdrawn, err := l.Withdraw(ctx, "dave", activity.ID, "dave")
		require.NoError(t, err)
		assert.Equal(t, models.Cents(0), withdrawn.AmountOwed)
		assert.Equal(t, models.MustCents("45.00"), testsupport.Participant(t, store, activity.ID, "bob").AmountOwed)
	})
}

func TestCapacityUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)
	activity := testsupport.Event(t, store, "alice", 3)

	const submitters = 12
	results := make([]*CommitmentResult, submitters)

	var g errgroup.Group
	for i := 0; i < submitters; i++ {
		i := i
		person := fmt.Sprintf("person-%02d", i)
		g.Go(func() error {
			res, err := l.SubmitCommitment(ctx, person, confirm(activity.ID, person))
			results[i] = res
			return err
		})
	}
	require.NoError(t, g.Wait())

	granted := 0
	for _, res := range results {
		if res.Effective == models.StatusConfirmed {
			granted++
		} else {
			assert.Equal(t, models.StatusWaitlist, res.Effective)
		}
	}
	assert.Equal(t, 3, granted)
	assert.Equal(t, 3, countStatus(t, store, activity.ID, models.StatusConfirmed))
	assert.Equal(t, submitters-3, countStatus(t, store, activity.ID, models.StatusWaitlist))
}

func TestWithdrawDoesNotPromote(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)
	activity := testsupport.Event(t, store, "alice", 1)

	_, err := l.SubmitCommitment(ctx, "bob", confirm(activity.ID, "bob"))
	require.NoError(t, err)
	res, err := l.SubmitCommitment(ctx, "carol", confirm(activity.ID, "carol"))
	require.NoError(t, err)
	require.Equal(t, models.StatusWaitlist, res.Effective)

	p, err := l.Withdraw(ctx, "bob", activity.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, p.Status)

	assert.Equal(t, models.StatusWaitlist, testsupport.Participant(t, store, activity.ID, "carol").Status)
	assert.Equal(t, 0, countStatus(t, store, activity.ID, models.StatusConfirmed))

	again, err := l.Withdraw(ctx, "bob", activity.ID, "bob")
	require.NoError(t, err, "withdrawing twice is a no-op")
	assert.Equal(t, models.StatusDeclined, again.Status)

	_, err = l.Withdraw(ctx, "erin", activity.ID, "erin")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = l.Withdraw(ctx, "alice", activity.ID, "carol")
	require.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestPromoteWaitlisted(t *testing.T) {
	ctx := context.Background()
	l, store, recorder := newLedger(t)
	activity := testsupport.Event(t, store, "alice", 1)

	_, err := l.PromoteWaitlisted(ctx, "alice", activity.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "nobody waiting")

	_, err = l.SubmitCommitment(ctx, "bob", confirm(activity.ID, "bob"))
	require.NoError(t, err)
	for _, person := range []string{"carol", "dave"} {
		_, err = l.SubmitCommitment(ctx, person, confirm(activity.ID, person))
		require.NoError(t, err)
	}

	_, err = l.PromoteWaitlisted(ctx, "alice", activity.ID)
	require.ErrorIs(t, err, apperr.ErrConflict, "no free slot")

	_, err = l.PromoteWaitlisted(ctx, "bob", activity.ID)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = l.Withdraw(ctx, "bob", activity.ID, "bob")
	require.NoError(t, err)

	promoted, err := l.PromoteWaitlisted(ctx, "alice", activity.ID)
	require.NoError(t, err)
	assert.Equal(t, "carol", promoted.PersonID, "earliest waitlisted goes first")
	assert.Equal(t, models.StatusConfirmed, promoted.Status)
	assert.Equal(t, models.TransportIndependent, promoted.Transport)
	assert.Len(t, recorder.For("carol"), 1)

	assert.Equal(t, models.StatusWaitlist, testsupport.Participant(t, store, activity.ID, "dave").Status)
}

func TestDriverChangesReleaseRiders(t *testing.T) {
	ctx := context.Background()
	l, store, _ := newLedger(t)
	activity := testsupport.Event(t, store, "alice", 5)

	driverReq := CommitmentRequest{
		ActivityID: activity.ID, PersonID: "bob", Status: models.StatusConfirmed,
		Transport: models.TransportDriver, Seats: 2,
	}
	_, err := l.SubmitCommitment(ctx, "bob", driverReq)
	require.NoError(t, err)

	for _, person := range []string{"carol", "dave"} {
		rider := models.NewParticipant(activity.ID, person, models.StatusConfirmed)
		rider.Transport = models.TransportRider
		rider.DriverID = "bob"
		testsupport.SaveParticipant(t, store, rider)
	}

	driverReq.Seats = 1
	_, err = l.SubmitCommitment(ctx, "bob", driverReq)
	require.ErrorIs(t, err, apperr.ErrValidation)

	driverReq.Transport = models.TransportIndependent
	driverReq.Seats = 0
	res, err := l.SubmitCommitment(ctx, "bob", driverReq)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Participant.Seats)

	assert.Empty(t, testsupport.Participant(t, store, activity.ID, "carol").DriverID)
	assert.Empty(t, testsupport.Participant(t, store, activity.ID, "dave").DriverID)
}
