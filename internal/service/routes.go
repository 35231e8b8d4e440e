package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/events"
)

// ActivityServiceName is the fully-qualified name of the ActivityService.
const ActivityServiceName = "rollcall.v1.ActivityService"

// Procedure paths, one per RPC.
const (
	CreateActivityProcedure     = "/" + ActivityServiceName + "/CreateActivity"
	GetActivityProcedure        = "/" + ActivityServiceName + "/GetActivity"
	OpenActivityProcedure       = "/" + ActivityServiceName + "/OpenActivity"
	CompleteActivityProcedure   = "/" + ActivityServiceName + "/CompleteActivity"
	CancelActivityProcedure     = "/" + ActivityServiceName + "/CancelActivity"
	InviteParticipantsProcedure = "/" + ActivityServiceName + "/InviteParticipants"
	SubmitCommitmentProcedure   = "/" + ActivityServiceName + "/SubmitCommitment"
	WithdrawProcedure           = "/" + ActivityServiceName + "/Withdraw"
	PromoteWaitlistedProcedure  = "/" + ActivityServiceName + "/PromoteWaitlisted"
	SetEstimatedCostProcedure   = "/" + ActivityServiceName + "/SetEstimatedCost"
	SetActualCostProcedure      = "/" + ActivityServiceName + "/SetActualCost"
	LockCostProcedure           = "/" + ActivityServiceName + "/LockCost"
	GetCollectionProcedure      = "/" + ActivityServiceName + "/GetCollection"
	ClaimPaymentProcedure       = "/" + ActivityServiceName + "/ClaimPayment"
	ConfirmPaymentProcedure     = "/" + ActivityServiceName + "/ConfirmPayment"
	RejectPaymentProcedure      = "/" + ActivityServiceName + "/RejectPayment"
	SettleProcedure             = "/" + ActivityServiceName + "/Settle"
	AssignRiderProcedure        = "/" + ActivityServiceName + "/AssignRider"
	UnassignRiderProcedure      = "/" + ActivityServiceName + "/UnassignRider"
	AttachTicketProcedure       = "/" + ActivityServiceName + "/AttachTicket"
	RecordTicketStatusProcedure = "/" + ActivityServiceName + "/RecordTicketStatus"
	WatchActivityProcedure      = "/" + ActivityServiceName + "/WatchActivity"
)

// NewActivityServiceHandler builds an HTTP handler serving every
// ActivityService procedure. It returns the path to mount it on.
func NewActivityServiceHandler(svc *ActivityService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(CreateActivityProcedure, connect.NewUnaryHandler(CreateActivityProcedure, svc.CreateActivity, opts...))
	mux.Handle(GetActivityProcedure, connect.NewUnaryHandler(GetActivityProcedure, svc.GetActivity, opts...))
	mux.Handle(OpenActivityProcedure, connect.NewUnaryHandler(OpenActivityProcedure, svc.OpenActivity, opts...))
	mux.Handle(CompleteActivityProcedure, connect.NewUnaryHandler(CompleteActivityProcedure, svc.CompleteActivity, opts...))
	mux.Handle(CancelActivityProcedure, connect.NewUnaryHandler(CancelActivityProcedure, svc.CancelActivity, opts...))
	mux.Handle(InviteParticipantsProcedure, connect.NewUnaryHandler(InviteParticipantsProcedure, svc.InviteParticipants, opts...))
	mux.Handle(SubmitCommitmentProcedure, connect.NewUnaryHandler(SubmitCommitmentProcedure, svc.SubmitCommitment, opts...))
	mux.Handle(WithdrawProcedure, connect.NewUnaryHandler(WithdrawProcedure, svc.Withdraw, opts...))
	mux.Handle(PromoteWaitlistedProcedure, connect.NewUnaryHandler(PromoteWaitlistedProcedure, svc.PromoteWaitlisted, opts...))
	mux.Handle(SetEstimatedCostProcedure, connect.NewUnaryHandler(SetEstimatedCostProcedure, svc.SetEstimatedCost, opts...))
	mux.Handle(SetActualCostProcedure, connect.NewUnaryHandler(SetActualCostProcedure, svc.SetActualCost, opts...))
	mux.Handle(LockCostProcedure, connect.NewUnaryHandler(LockCostProcedure, svc.LockCost, opts...))
	mux.Handle(GetCollectionProcedure, connect.NewUnaryHandler(GetCollectionProcedure, svc.GetCollection, opts...))
	mux.Handle(ClaimPaymentProcedure, connect.NewUnaryHandler(ClaimPaymentProcedure, svc.ClaimPayment, opts...))
	mux.Handle(ConfirmPaymentProcedure, connect.NewUnaryHandler(ConfirmPaymentProcedure, svc.ConfirmPayment, opts...))
	mux.Handle(RejectPaymentProcedure, connect.NewUnaryHandler(RejectPaymentProcedure, svc.RejectPayment, opts...))
	mux.Handle(SettleProcedure, connect.NewUnaryHandler(SettleProcedure, svc.Settle, opts...))
	mux.Handle(AssignRiderProcedure, connect.NewUnaryHandler(AssignRiderProcedure, svc.AssignRider, opts...))
	mux.Handle(UnassignRiderProcedure, connect.NewUnaryHandler(UnassignRiderProcedure, svc.UnassignRider, opts...))
	mux.Handle(AttachTicketProcedure, connect.NewUnaryHandler(AttachTicketProcedure, svc.AttachTicket, opts...))
	mux.Handle(RecordTicketStatusProcedure, connect.NewUnaryHandler(RecordTicketStatusProcedure, svc.RecordTicketStatus, opts...))
	mux.Handle(WatchActivityProcedure, connect.NewServerStreamHandler(WatchActivityProcedure, svc.WatchActivity, opts...))
	return "/" + ActivityServiceName + "/", mux
}

// ActivityServiceClient calls the ActivityService.
type ActivityServiceClient struct {
	createActivity     *connect.Client[CreateActivityRequest, ActivityResponse]
	getActivity        *connect.Client[ActivityRequest, GetActivityResponse]
	openActivity       *connect.Client[ActivityRequest, ActivityResponse]
	completeActivity   *connect.Client[ActivityRequest, ActivityResponse]
	cancelActivity     *connect.Client[ActivityRequest, ActivityResponse]
	inviteParticipants *connect.Client[InviteParticipantsRequest, ParticipantsResponse]
	submitCommitment   *connect.Client[SubmitCommitmentRequest, SubmitCommitmentResponse]
	withdraw           *connect.Client[WithdrawRequest, ParticipantResponse]
	promoteWaitlisted  *connect.Client[ActivityRequest, ParticipantResponse]
	setEstimatedCost   *connect.Client[SetCostRequest, ActivityResponse]
	setActualCost      *connect.Client[SetCostRequest, ActivityResponse]
	lockCost           *connect.Client[LockCostRequest, LockCostResponse]
	getCollection      *connect.Client[ActivityRequest, CollectionResponse]
	claimPayment       *connect.Client[ClaimPaymentRequest, ClaimPaymentResponse]
	confirmPayment     *connect.Client[PaymentDecisionRequest, ParticipantResponse]
	rejectPayment      *connect.Client[PaymentDecisionRequest, ParticipantResponse]
	settle             *connect.Client[ActivityRequest, SettleResponse]
	assignRider        *connect.Client[AssignRiderRequest, ParticipantResponse]
	unassignRider      *connect.Client[UnassignRiderRequest, ParticipantResponse]
	attachTicket       *connect.Client[AttachTicketRequest, AttachTicketResponse]
	recordTicketStatus *connect.Client[RecordTicketStatusRequest, TicketResponse]
	watchActivity      *connect.Client[ActivityRequest, events.Event]
}

// NewActivityServiceClient creates a client for the service at baseURL,
// e.g. http://localhost:8080.
func NewActivityServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ActivityServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &ActivityServiceClient{
		createActivity:     connect.NewClient[CreateActivityRequest, ActivityResponse](httpClient, baseURL+CreateActivityProcedure, opts...),
		getActivity:        connect.NewClient[ActivityRequest, GetActivityResponse](httpClient, baseURL+GetActivityProcedure, opts...),
		openActivity:       connect.NewClient[ActivityRequest, ActivityResponse](httpClient, baseURL+OpenActivityProcedure, opts...),
		completeActivity:   connect.NewClient[ActivityRequest, ActivityResponse](httpClient, baseURL+CompleteActivityProcedure, opts...),
		cancelActivity:     connect.NewClient[ActivityRequest, ActivityResponse](httpClient, baseURL+CancelActivityProcedure, opts...),
		inviteParticipants: connect.NewClient[InviteParticipantsRequest, ParticipantsResponse](httpClient, baseURL+InviteParticipantsProcedure, opts...),
		submitCommitment:   connect.NewClient[SubmitCommitmentRequest, SubmitCommitmentResponse](httpClient, baseURL+SubmitCommitmentProcedure, opts...),
		withdraw:           connect.NewClient[WithdrawRequest, ParticipantResponse](httpClient, baseURL+WithdrawProcedure, opts...),
		promoteWaitlisted:  connect.NewClient[ActivityRequest, ParticipantResponse](httpClient, baseURL+PromoteWaitlistedProcedure, opts...),
		setEstimatedCost:   connect.NewClient[SetCostRequest, ActivityResponse](httpClient, baseURL+SetEstimatedCostProcedure, opts...),
		setActualCost:      connect.NewClient[SetCostRequest, ActivityResponse](httpClient, baseURL+SetActualCostProcedure, opts...),
		lockCost:           connect.NewClient[LockCostRequest, LockCostResponse](httpClient, baseURL+LockCostProcedure, opts...),
		getCollection:      connect.NewClient[ActivityRequest, CollectionResponse](httpClient, baseURL+GetCollectionProcedure, opts...),
		claimPayment:       connect.NewClient[ClaimPaymentRequest, ClaimPaymentResponse](httpClient, baseURL+ClaimPaymentProcedure, opts...),
		confirmPayment:     connect.NewClient[PaymentDecisionRequest, ParticipantResponse](httpClient, baseURL+ConfirmPaymentProcedure, opts...),
		rejectPayment:      connect.NewClient[PaymentDecisionRequest, ParticipantResponse](httpClient, baseURL+RejectPaymentProcedure, opts...),
		settle:             connect.NewClient[ActivityRequest, SettleResponse](httpClient, baseURL+SettleProcedure, opts...),
		assignRider:        connect.NewClient[AssignRiderRequest, ParticipantResponse](httpClient, baseURL+AssignRiderProcedure, opts...),
		unassignRider:      connect.NewClient[UnassignRiderRequest, ParticipantResponse](httpClient, baseURL+UnassignRiderProcedure, opts...),
		attachTicket:       connect.NewClient[AttachTicketRequest, AttachTicketResponse](httpClient, baseURL+AttachTicketProcedure, opts...),
		recordTicketStatus: connect.NewClient[RecordTicketStatusRequest, TicketResponse](httpClient, baseURL+RecordTicketStatusProcedure, opts...),
		watchActivity:      connect.NewClient[ActivityRequest, events.Event](httpClient, baseURL+WatchActivityProcedure, opts...),
	}
}

func (c *ActivityServiceClient) CreateActivity(ctx context.Context, req *connect.Request[CreateActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return c.createActivity.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) GetActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[GetActivityResponse], error) {
	return c.getActivity.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) OpenActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return c.openActivity.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) CompleteActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return c.completeActivity.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) CancelActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ActivityResponse], error) {
	return c.cancelActivity.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) InviteParticipants(ctx context.Context, req *connect.Request[InviteParticipantsRequest]) (*connect.Response[ParticipantsResponse], error) {
	return c.inviteParticipants.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) SubmitCommitment(ctx context.Context, req *connect.Request[SubmitCommitmentRequest]) (*connect.Response[SubmitCommitmentResponse], error) {
	return c.submitCommitment.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) Withdraw(ctx context.Context, req *connect.Request[WithdrawRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.withdraw.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) PromoteWaitlisted(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.promoteWaitlisted.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) SetEstimatedCost(ctx context.Context, req *connect.Request[SetCostRequest]) (*connect.Response[ActivityResponse], error) {
	return c.setEstimatedCost.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) SetActualCost(ctx context.Context, req *connect.Request[SetCostRequest]) (*connect.Response[ActivityResponse], error) {
	return c.setActualCost.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) LockCost(ctx context.Context, req *connect.Request[LockCostRequest]) (*connect.Response[LockCostResponse], error) {
	return c.lockCost.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) GetCollection(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[CollectionResponse], error) {
	return c.getCollection.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) ClaimPayment(ctx context.Context, req *connect.Request[ClaimPaymentRequest]) (*connect.Response[ClaimPaymentResponse], error) {
	return c.claimPayment.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) ConfirmPayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.confirmPayment.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) RejectPayment(ctx context.Context, req *connect.Request[PaymentDecisionRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.rejectPayment.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) Settle(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.Response[SettleResponse], error) {
	return c.settle.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) AssignRider(ctx context.Context, req *connect.Request[AssignRiderRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.assignRider.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) UnassignRider(ctx context.Context, req *connect.Request[UnassignRiderRequest]) (*connect.Response[ParticipantResponse], error) {
	return c.unassignRider.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) AttachTicket(ctx context.Context, req *connect.Request[AttachTicketRequest]) (*connect.Response[AttachTicketResponse], error) {
	return c.attachTicket.CallUnary(ctx, req)
}

func (c *ActivityServiceClient) RecordTicketStatus(ctx context.Context, req *connect.Request[RecordTicketStatusRequest]) (*connect.Response[TicketResponse], error) {
	return c.recordTicketStatus.CallUnary(ctx, req)
}

// WatchActivity opens a stream of changes to one activity.
func (c *ActivityServiceClient) WatchActivity(ctx context.Context, req *connect.Request[ActivityRequest]) (*connect.ServerStreamForClient[events.Event], error) {
	return c.watchActivity.CallServerStream(ctx, req)
}
