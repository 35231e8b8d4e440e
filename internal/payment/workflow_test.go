package payment

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
	"github.com/mmynk/rollcall/internal/tracker"
)

type fixture struct {
	workflow *Workflow
	store    storage.Store
	recorder *notify.Recorder
	activity *models.Activity
}

// newFixture builds an event organized by alice with the given confirmed
// people and the cost locked at final.
func newFixture(t *testing.T, final string, people ...string) *fixture {
	t.Helper()
	store := testsupport.NewStore(t)
	recorder := &notify.Recorder{}
	gate := closure.NewGate(store, recorder, nil)
	tr := tracker.New(store, gate, recorder, nil)

	activity := testsupport.Event(t, store, "alice", 10)
	for _, person := range people {
		testsupport.Confirmed(t, store, activity.ID, person)
	}
	if final != "" {
		_, err := tr.LockCost(context.Background(), "alice", activity.ID, models.MustCents(final))
		require.NoError(t, err)
	}

	return &fixture{
		workflow: New(store, tr, recorder, nil),
		store:    store,
		recorder: recorder,
		activity: activity,
	}
}

func (f *fixture) participant(t *testing.T, personID string) *models.Participant {
	return testsupport.Participant(t, f.store, f.activity.ID, personID)
}

func TestClaim(t *testing.T) {
	ctx := context.Background()

	t.Run("moves the claimant to review and notifies the organizer", func(t *testing.T) {
		f := newFixture(t, "60.00", "bob", "carol")

		claimed, err := f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, models.PaymentInReview, claimed[0].PaymentStatus)
		assert.False(t, claimed[0].Paid)

		notes := f.recorder.For("alice")
		require.NotEmpty(t, notes)
		assert.Equal(t, "Payment to review", notes[len(notes)-1].Title)
		assert.Contains(t, notes[len(notes)-1].Message, "30.00")
	})

	t.Run("covering others records who paid", func(t *testing.T) {
		f := newFixture(t, "90.00", "bob", "carol", "dave")

		claimed, err := f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", []string{"carol", "carol", "bob"})
		require.NoError(t, err)
		require.Len(t, claimed, 2)

		carol := f.participant(t, "carol")
		assert.Equal(t, models.PaymentInReview, carol.PaymentStatus)
		assert.Equal(t, "bob", carol.PaidBy)
		assert.Empty(t, f.participant(t, "bob").PaidBy)
		assert.Equal(t, models.PaymentUnpaid, f.participant(t, "dave").PaymentStatus)
	})

	t.Run("a failed cover claims nothing", func(t *testing.T) {
		f := newFixture(t, "60.00", "bob", "carol")
		_, err := f.workflow.Claim(ctx, "carol", f.activity.ID, "carol", nil)
		require.NoError(t, err)

		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", []string{"carol"})
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, models.PaymentUnpaid, f.participant(t, "bob").PaymentStatus)
	})

	t.Run("rejections", func(t *testing.T) {
		f := newFixture(t, "", "bob")
		_, err := f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.ErrorIs(t, err, apperr.ErrConflict, "cost not locked")

		f = newFixture(t, "60.00", "bob")
		_, err = f.workflow.Claim(ctx, "carol", f.activity.ID, "bob", nil)
		require.ErrorIs(t, err, apperr.ErrForbidden)

		_, err = f.workflow.Claim(ctx, "erin", f.activity.ID, "erin", nil)
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.workflow.Claim(ctx, "bob", "missing", "bob", nil)
		require.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.NoError(t, err)
		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.ErrorIs(t, err, apperr.ErrConflict, "already in review")
	})
}

func TestConfirmAndReject(t *testing.T) {
	ctx := context.Background()

	t.Run("reject twice is a conflict", func(t *testing.T) {
		f := newFixture(t, "60.00", "bob", "carol")
		_, err := f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.NoError(t, err)
		bob := f.participant(t, "bob")

		rejected, err := f.workflow.Reject(ctx, "alice", f.activity.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentUnpaid, rejected.PaymentStatus)
		assert.Empty(t, rejected.PaidBy)

		_, err = f.workflow.Reject(ctx, "alice", f.activity.ID, bob.ID)
		require.ErrorIs(t, err, apperr.ErrConflict)

		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.NoError(t, err, "a rejected payment can be claimed again")
	})

	t.Run("confirm is idempotent and cannot skip the claim", func(t *testing.T) {
		f := newFixture(t, "60.00", "bob", "carol")
		bob := f.participant(t, "bob")

		_, err := f.workflow.Confirm(ctx, "alice", f.activity.ID, bob.ID)
		require.ErrorIs(t, err, apperr.ErrConflict, "unpaid cannot be confirmed")

		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.NoError(t, err)

		_, err = f.workflow.Confirm(ctx, "bob", f.activity.ID, bob.ID)
		require.ErrorIs(t, err, apperr.ErrForbidden)

		confirmed, err := f.workflow.Confirm(ctx, "alice", f.activity.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentPaid, confirmed.PaymentStatus)
		assert.True(t, confirmed.Paid)

		again, err := f.workflow.Confirm(ctx, "alice", f.activity.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, again.Paid)
		assert.Len(t, f.recorder.For("bob"), 2, "cost finalized plus one confirmation")

		_, err = f.workflow.Reject(ctx, "alice", f.activity.ID, bob.ID)
		require.ErrorIs(t, err, apperr.ErrConflict, "paid cannot be rejected")

		_, err = f.workflow.Confirm(ctx, "alice", f.activity.ID, "missing")
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("last confirmation settles the activity", func(t *testing.T) {
		f := newFixture(t, "60.00", "bob", "carol")
		for _, person := range []string{"bob", "carol"} {
			_, err := f.workflow.Claim(ctx, person, f.activity.ID, person, nil)
			require.NoError(t, err)
		}

		_, err := f.workflow.Confirm(ctx, "alice", f.activity.ID, f.participant(t, "bob").ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActivityOpen, testsupport.Activity(t, f.store, f.activity.ID).Status)

		_, err = f.workflow.Confirm(ctx, "alice", f.activity.ID, f.participant(t, "carol").ID)
		require.NoError(t, err)
		assert.True(t, testsupport.Activity(t, f.store, f.activity.ID).IsSettled())

		_, err = f.workflow.Claim(ctx, "bob", f.activity.ID, "bob", nil)
		require.ErrorIs(t, err, apperr.ErrConflict, "settled is terminal")
	})
}
