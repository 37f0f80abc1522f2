package commands

import (
	"context"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
)

type CheckEligibilityCommand struct {
	Patient       fhir.PatientData
	PayerCode     string
	CorrelationID string
}

type CheckEligibilityHandler interface {
	Handle(ctx context.Context, cmd CheckEligibilityCommand) (result SubmissionResult, err error)
}

func NewCheckEligibilityHandler(composer *fhir.Composer, s *Submitter) CheckEligibilityHandler {
	return &checkEligibilityCmdHandler{
		composer:  composer,
		submitter: s,
	}
}

type checkEligibilityCmdHandler struct {
	composer  *fhir.Composer
	submitter *Submitter
}

func (h *checkEligibilityCmdHandler) Handle(ctx context.Context, cmd CheckEligibilityCommand) (SubmissionResult, error) {
	bundle, err := h.composer.BuildEligibilityRequest(cmd.Patient, cmd.PayerCode, cmd.CorrelationID)
	if err != nil {
		return SubmissionResult{}, err
	}
	return h.submitter.submit(ctx, bundle, fhir.KindCoverageEligibilityRequest,
		cmd.CorrelationID, cmd.PayerCode, cmd.Patient.MemberID)
}
