package commands

import (
	"context"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
)

type SubmitClaimCommand struct {
	Claim         fhir.ClaimData
	PayerCode     string
	CorrelationID string
}

type SubmitClaimHandler interface {
	Handle(ctx context.Context, cmd SubmitClaimCommand) (result SubmissionResult, err error)
}

func NewSubmitClaimHandler(composer *fhir.Composer, s *Submitter) SubmitClaimHandler {
	return &submitClaimCmdHandler{
		composer:  composer,
		submitter: s,
	}
}

type submitClaimCmdHandler struct {
	composer  *fhir.Composer
	submitter *Submitter
}

func (h *submitClaimCmdHandler) Handle(ctx context.Context, cmd SubmitClaimCommand) (SubmissionResult, error) {
	bundle, err := h.composer.BuildClaimBundle(cmd.Claim, cmd.PayerCode, cmd.CorrelationID)
	if err != nil {
		return SubmissionResult{}, err
	}
	return h.submitter.submit(ctx, bundle, fhir.KindClaim,
		cmd.CorrelationID, cmd.PayerCode, cmd.Claim.Patient.MemberID)
}
