package commands

import (
	"context"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
)

type SendCommunicationCommand struct {
	Communication fhir.CommunicationData
	PayerCode     string
	CorrelationID string
}

type SendCommunicationHandler interface {
	Handle(ctx context.Context, cmd SendCommunicationCommand) (result SubmissionResult, err error)
}

func NewSendCommunicationHandler(composer *fhir.Composer, s *Submitter) SendCommunicationHandler {
	return &sendCommunicationCmdHandler{
		composer:  composer,
		submitter: s,
	}
}

type sendCommunicationCmdHandler struct {
	composer  *fhir.Composer
	submitter *Submitter
}

func (h *sendCommunicationCmdHandler) Handle(ctx context.Context, cmd SendCommunicationCommand) (SubmissionResult, error) {
	bundle, err := h.composer.BuildCommunicationBundle(cmd.Communication, cmd.PayerCode, cmd.CorrelationID)
	if err != nil {
		return SubmissionResult{}, err
	}
	return h.submitter.submit(ctx, bundle, fhir.KindCommunication,
		cmd.CorrelationID, cmd.PayerCode, cmd.Communication.Patient.MemberID)
}
