package app

import (
	"context"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/commands"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/queries"
)

type CommandBus interface {
	CheckEligibility(ctx context.Context, cmd commands.CheckEligibilityCommand) (commands.SubmissionResult, error)
	SubmitClaim(ctx context.Context, cmd commands.SubmitClaimCommand) (commands.SubmissionResult, error)
	SendCommunication(ctx context.Context, cmd commands.SendCommunicationCommand) (commands.SubmissionResult, error)
}

type QueryBus interface {
	GetSubmission(ctx context.Context, q queries.GetSubmissionQuery) (queries.GetSubmissionResult, error)
	RejectionReport(ctx context.Context, q queries.RejectionReportQuery) (queries.RejectionReportResult, error)
}

type commandBus struct {
	checkEligibility  commands.CheckEligibilityHandler
	submitClaim       commands.SubmitClaimHandler
	sendCommunication commands.SendCommunicationHandler
}

type queryBus struct {
	getSubmission   queries.GetSubmissionQueryHandler
	rejectionReport queries.RejectionReportQueryHandler
}

func NewCommandBus(
	eligibility commands.CheckEligibilityHandler,
	claim commands.SubmitClaimHandler,
	communication commands.SendCommunicationHandler,
) CommandBus {
	return &commandBus{
		checkEligibility:  eligibility,
		submitClaim:       claim,
		sendCommunication: communication,
	}
}

func NewQueryBus(
	get queries.GetSubmissionQueryHandler,
	report queries.RejectionReportQueryHandler,
) QueryBus {
	return &queryBus{
		getSubmission:   get,
		rejectionReport: report,
	}
}

func (b *commandBus) CheckEligibility(ctx context.Context, cmd commands.CheckEligibilityCommand) (commands.SubmissionResult, error) {
	return b.checkEligibility.Handle(ctx, cmd)
}

func (b *commandBus) SubmitClaim(ctx context.Context, cmd commands.SubmitClaimCommand) (commands.SubmissionResult, error) {
	return b.submitClaim.Handle(ctx, cmd)
}

func (b *commandBus) SendCommunication(ctx context.Context, cmd commands.SendCommunicationCommand) (commands.SubmissionResult, error) {
	return b.sendCommunication.Handle(ctx, cmd)
}

func (b *queryBus) GetSubmission(ctx context.Context, q queries.GetSubmissionQuery) (queries.GetSubmissionResult, error) {
	return b.getSubmission.Handle(ctx, q)
}

func (b *queryBus) RejectionReport(ctx context.Context, q queries.RejectionReportQuery) (queries.RejectionReportResult, error) {
	return b.rejectionReport.Handle(ctx, q)
}
