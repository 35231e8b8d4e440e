// Package service exposes the rollcall domain over Connect RPC.
package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/carpool"
	"github.com/mmynk/rollcall/internal/closure"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/ledger"
	"github.com/mmynk/rollcall/internal/middleware"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/notify"
	"github.com/mmynk/rollcall/internal/payment"
	"github.com/mmynk/rollcall/internal/storage"
	"github.com/mmynk/rollcall/internal/tracker"
)

// ActivityService implements the Connect ActivityService.
type ActivityService struct {
	store    storage.Store
	hub      *events.Hub
	ledger   *ledger.Ledger
	tracker  *tracker.Tracker
	payments *payment.Workflow
	gate     *closure.Gate
	carpool  *carpool.Matcher
}

// NewActivityService wires the domain components around one store.
// notifier may be nil; hub must not be.
func NewActivityService(store storage.Store, notifier notify.Notifier, hub *events.Hub) *ActivityService {
	gate := closure.NewGate(store, notifier, hub)
	t := tracker.New(store, gate, notifier, hub)
	return &ActivityService{
		store:    store,
		hub:      hub,
		ledger:   ledger.New(store, notifier, hub),
		tracker:  t,
		payments: payment.New(store, t, notifier, hub),
		gate:     gate,
		carpool:  carpool.New(store, notifier, hub),
	}
}

// CreateActivity creates an event or meeting organized by the caller.
func (s *ActivityService) CreateActivity(ctx context.Context, req *connect.Request[CreateActivityRequest]) (*connect.Response[ActivityResponse], error) {
	slog.Info("CreateActivity request received", "kind", req.Msg.Kind, "title", req.Msg.Title)

	activity, err := s.ledger.CreateActivity(ctx, middleware.GetPersonID(ctx), ledger.CreateRequest{
		Kind:          models.ActivityKind(req.Msg.Kind),
		Title:         req.Msg.Title,
		Capacity:      req.Msg.Capacity,
		EstimatedCost: req.Msg.EstimatedCost,
		Draft:         req.Msg.Draft,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	slog.Info("Activity created", "activity_id", activity.ID)
	return connect.NewResponse(&ActivityResponse{Activity: toActivity(activity)}), nil
}

// GetActivity returns the activity with its participants, collection totals
// and whatever currently blocks settlement.
func (s *ActivityService) GetActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[GetActivityResponse], error) {
	activity, err := storage.RequireActivity(ctx, s.store, req.Msg.ActivityID)
	if err != nil {
		return nil, toConnectError(err)
	}
	participants, err := s.store.ListParticipants(ctx, activity.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	links, err := s.store.ListTicketLinks(ctx, activity.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	resp := &GetActivityResponse{
		Activity:     toActivity(activity),
		Participants: toParticipants(participants),
		Collection:   toCollection(tracker.Summarize(activity, participants)),
	}
	for _, l := range links {
		resp.Tickets = append(resp.Tickets, toTicketLink(l))
	}
	if !activity.Status.Terminal() {
		resp.BlockedBy = closure.Blocking(closure.Obligations(activity, participants, links))
	}
	return connect.NewResponse(resp), nil
}

// OpenActivity publishes a draft.
func (s *ActivityService) OpenActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return s.transition(ctx, req.Msg.ActivityID, models.ActivityOpen)
}

// CompleteActivity marks an open activity as having happened.
func (s *ActivityService) CompleteActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return s.transition(ctx, req.Msg.ActivityID, models.ActivityCompleted)
}

// CancelActivity cancels a draft, open or completed activity.
func (s *ActivityService) CancelActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return s.transition(ctx, req.Msg.ActivityID, models.ActivityCancelled)
}

func (s *ActivityService) transition(ctx context.Context, activityID string, to models.ActivityStatus) (*connect.Response[ActivityResponse], error) {
	activity, err := s.ledger.Transition(ctx, middleware.GetPersonID(ctx), activityID, to)
	if err != nil {
		slog.Warn("Transition failed", "activity_id", activityID, "to", to, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ActivityResponse{Activity: toActivity(activity)}), nil
}

// InviteParticipants adds invited rows for people not yet on the activity.
func (s *ActivityService) InviteParticipants(ctx context.Context, req *connect.Request[InviteParticipantsRequest]) (*connect.Response[ParticipantsResponse], error) {
	participants, err := s.ledger.Invite(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.PersonIDs)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantsResponse{Participants: toParticipants(participants)}), nil
}

// SubmitCommitment records a person's commitment. A confirmation that does
// not fit is answered with effectiveStatus "waitlist", not an error, unless
// the request sets exact.
func (s *ActivityService) SubmitCommitment(ctx context.Context, req *connect.Request[SubmitCommitmentRequest]) (*connect.Response[SubmitCommitmentResponse], error) {
	slog.Info("SubmitCommitment request received",
		"activity_id", req.Msg.ActivityID,
		"person_id", req.Msg.PersonID,
		"status", req.Msg.Status,
	)

	result, err := s.ledger.SubmitCommitment(ctx, middleware.GetPersonID(ctx), ledger.CommitmentRequest{
		ActivityID: req.Msg.ActivityID,
		PersonID:   req.Msg.PersonID,
		Status:     models.CommitmentStatus(req.Msg.Status),
		Transport:  models.TransportMode(req.Msg.TransportSelection),
		Seats:      req.Msg.Seats,
		PickupNote: req.Msg.PickupNote,
		Exact:      req.Msg.Exact,
	})
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&SubmitCommitmentResponse{
		RequestedStatus: string(result.Requested),
		EffectiveStatus: string(result.Effective),
		Participant:     toParticipant(result.Participant),
	}), nil
}

// Withdraw declines a person's participation.
func (s *ActivityService) Withdraw(ctx context.Context, req *connect.Request[WithdrawRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.ledger.Withdraw(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.PersonID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// PromoteWaitlisted confirms the longest-waiting waitlisted participant.
func (s *ActivityService) PromoteWaitlisted(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.ledger.PromoteWaitlisted(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// SetEstimatedCost records the organizer's estimate.
func (s *ActivityService) SetEstimatedCost(ctx context.Context, req *connect.Request[SetCostRequest]) (*connect.Response[ActivityResponse], error) {
	activity, err := s.tracker.SetEstimatedCost(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ActivityResponse{Activity: toActivity(activity)}), nil
}

// SetActualCost records the actual cost before it is locked.
func (s *ActivityService) SetActualCost(ctx context.Context, req *connect.Request[SetCostRequest]) (*connect.Response[ActivityResponse], error) {
	activity, err := s.tracker.SetActualCost(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.Amount)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ActivityResponse{Activity: toActivity(activity)}), nil
}

// LockCost fixes the final cost and splits it over the confirmed participants.
func (s *ActivityService) LockCost(ctx context.Context, req *connect.Request[LockCostRequest]) (*connect.Response[LockCostResponse], error) {
	slog.Info("LockCost request received", "activity_id", req.Msg.ActivityID, "final_amount", req.Msg.FinalAmount)

	result, err := s.tracker.LockCost(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.FinalAmount)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&LockCostResponse{
		Activity:       toActivity(result.Activity),
		PerPersonShare: result.PerPersonShare,
		Participants:   toParticipants(result.Participants),
	}), nil
}

// GetCollection reports collection totals.
func (s *ActivityService) GetCollection(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[CollectionResponse], error) {
	agg, err := s.tracker.Aggregate(ctx, req.Msg.ActivityID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CollectionResponse{Collection: toCollection(agg)}), nil
}

// ClaimPayment puts the claimant's payment, and any covered ones, in review.
func (s *ActivityService) ClaimPayment(ctx context.Context, req *connect.Request[ClaimPaymentRequest]) (*connect.Response[ClaimPaymentResponse], error) {
	claimed, err := s.payments.Claim(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.PersonID, req.Msg.CoveringPersonIDs)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ClaimPaymentResponse{
		PaymentStatus: string(models.PaymentInReview),
		Participants:  toParticipants(claimed),
	}), nil
}

// ConfirmPayment marks a claimed payment as paid.
func (s *ActivityService) ConfirmPayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.payments.Confirm(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// RejectPayment sends a claimed payment back to unpaid.
func (s *ActivityService) RejectPayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.payments.Reject(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// Settle closes the activity if no obligation blocks it. Refusals carry the
// blocking refs in the Blocked-By error metadata.
func (s *ActivityService) Settle(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[SettleResponse], error) {
	outcome, err := s.gate.Settle(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID)
	if err != nil {
		slog.Info("Settle refused", "activity_id", req.Msg.ActivityID, "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&SettleResponse{
		Closed:    true,
		Status:    string(outcome.Status),
		SettledAt: outcome.SettledAt,
	}), nil
}

// AssignRider puts a rider in a driver's car.
func (s *ActivityService) AssignRider(ctx context.Context, req *connect.Request[AssignRiderRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.carpool.AssignRider(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.DriverPersonID, req.Msg.RiderPersonID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// UnassignRider takes a rider out of their car.
func (s *ActivityService) UnassignRider(ctx context.Context, req *connect.Request[UnassignRiderRequest]) (*connect.Response[ParticipantResponse], error) {
	p, err := s.carpool.UnassignRider(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.RiderPersonID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&ParticipantResponse{Participant: toParticipant(p)}), nil
}

// AttachTicket links a support ticket to a meeting.
func (s *ActivityService) AttachTicket(ctx context.Context, req *connect.Request[AttachTicketRequest]) (*connect.Response[AttachTicketResponse], error) {
	link, err := s.gate.AttachTicket(ctx, middleware.GetPersonID(ctx), req.Msg.ActivityID, req.Msg.TicketRef, req.Msg.Internal)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&AttachTicketResponse{Link: toTicketLink(link)}), nil
}

// RecordTicketStatus is called by the ticket system integration. Admin only.
func (s *ActivityService) RecordTicketStatus(ctx context.Context, req *connect.Request[RecordTicketStatusRequest]) (*connect.Response[TicketResponse], error) {
	ticket, err := s.gate.RecordTicketStatus(ctx, middleware.IsAdmin(ctx), req.Msg.TicketRef, models.TicketStatus(req.Msg.Status))
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&TicketResponse{Ticket: &Ticket{
		Ref:       ticket.Ref,
		Status:    string(ticket.Status),
		UpdatedAt: ticket.UpdatedAt,
	}}), nil
}

// WatchActivity streams changes to one activity. Each subscription starts
// with a snapshot of the current status. A subscriber evicted for falling
// behind is resubscribed and sent a fresh snapshot. The stream ends when the
// activity settles or is cancelled, when the client goes away, or with
// Unavailable when the server shuts down.
func (s *ActivityService) WatchActivity(ctx context.Context, req *connect.Request[ActivityRequest], stream *connect.ServerStream[events.Event]) error {
	for {
		done, err := s.watchOnce(ctx, req.Msg.ActivityID, stream)
		if done || err != nil {
			return err
		}
		if s.hub.Closed() {
			return connect.NewError(connect.CodeUnavailable, errors.New("server shutting down"))
		}
		slog.Debug("Resubscribing watcher", "activity_id", req.Msg.ActivityID)
	}
}

// watchOnce serves one subscription. It reports done when the stream should
// end and false when the subscription was closed underneath it.
func (s *ActivityService) watchOnce(ctx context.Context, activityID string, stream *connect.ServerStream[events.Event]) (bool, error) {
	ch, cancel := s.hub.Subscribe(activityID)
	defer cancel()

	activity, err := storage.RequireActivity(ctx, s.store, activityID)
	if err != nil {
		return true, toConnectError(err)
	}
	snapshot := events.Event{
		ActivityID: activity.ID,
		Kind:       events.KindLifecycle,
		Status:     string(activity.Status),
		At:         activity.UpdatedAt,
	}
	if activity.Status == models.ActivitySettled {
		snapshot.Kind = events.KindSettled
	}
	if err := stream.Send(&snapshot); err != nil {
		return true, err
	}
	if activity.Status.Terminal() {
		return true, nil
	}

	for {
		select {
		case <-ctx.Done():
			return true, nil
		case e, ok := <-ch:
			if !ok {
				return false, nil
			}
			if err := stream.Send(&e); err != nil {
				return true, err
			}
			if e.Kind == events.KindSettled || (e.Kind == events.KindLifecycle && e.Status == string(models.ActivityCancelled)) {
				return true, nil
			}
		}
	}
}
