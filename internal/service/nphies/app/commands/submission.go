package commands

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/nphies"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

// Sender puts a message bundle on the wire.
type Sender interface {
	Submit(ctx context.Context, bundle *fhirmodel.Bundle) (nphies.Response, error)
}

type Notifier interface {
	NotifyRejection(ctx context.Context, s ledger.Submission) error
}

// SubmissionResult is what every submitting command returns.
type SubmissionResult struct {
	SubmissionID string
	BundleID     string
	Status       ledger.Status
	Response     fhir.ParsedResponse
	// Replayed is set when an accepted submission with the same correlation id
	// and business id already existed and nothing was sent.
	Replayed bool
}

// Submitter is the send-and-record pipeline shared by the submitting commands.
type Submitter struct {
	sender   Sender
	repo     ledger.Repository
	notifier Notifier
	parser   *fhir.Parser
	logger   zerolog.Logger
}

func NewSubmitter(sender Sender, repo ledger.Repository, notifier Notifier, logger zerolog.Logger) *Submitter {
	return &Submitter{
		sender:   sender,
		repo:     repo,
		notifier: notifier,
		parser:   fhir.NewParser(),
		logger:   logger,
	}
}

// submit sends bundle unless a request carrying the same correlation id was
// already accepted, then records the outcome in the ledger. Without a
// correlation id every call is sent. Transport failures are recorded with
// status error and returned.
func (s *Submitter) submit(ctx context.Context, bundle *fhirmodel.Bundle, kind, correlationID, payerCode, memberID string) (SubmissionResult, error) {
	focal := bundle.Find(kind)
	if focal == nil {
		return SubmissionResult{}, errors.New("bundle has no " + kind + " entry")
	}
	id := focal.ResourceID()
	log := s.logger.With().
		Str("submission_id", id).
		Str("kind", kind).
		Str("payer_code", payerCode).
		Str("correlation_id", correlationID).
		Logger()

	// only a caller-supplied correlation id marks a retry of the same request
	if correlationID != "" {
		prev, err := s.repo.Get(ctx, id)
		switch {
		case err == nil && prev.Status == ledger.StatusAccepted:
			log.Info().Msg("submission already accepted, not resending")
			return SubmissionResult{
				SubmissionID: id,
				BundleID:     prev.BundleID,
				Status:       prev.Status,
				Response:     s.parser.Parse(prev.Response),
				Replayed:     true,
			}, nil
		case err != nil && !errors.Is(err, ledger.ErrNotFound):
			return SubmissionResult{}, err
		}
	}

	if err := fhir.ValidateBundle(bundle); err != nil {
		return SubmissionResult{}, err
	}

	record := ledger.Submission{
		ID:            id,
		Kind:          kind,
		CorrelationID: correlationID,
		PayerCode:     payerCode,
		MemberID:      memberID,
		BundleID:      bundle.ID,
	}

	resp, sendErr := s.sender.Submit(ctx, bundle)
	if sendErr != nil {
		log.Error().Err(sendErr).Msg("submission failed")
		record.Status = ledger.StatusError
		record.Errors = []string{sendErr.Error()}
		if _, err := s.repo.Save(ctx, record); err != nil {
			log.Error().Err(err).Msg("failed to record failed submission")
		}
		return SubmissionResult{SubmissionID: id, BundleID: bundle.ID, Status: ledger.StatusError}, sendErr
	}

	parsed := s.parser.Parse(resp.Body)
	record.Status = ledger.StatusAccepted
	if !parsed.Success {
		record.Status = ledger.StatusRejected
	}
	record.Errors = parsed.Errors
	record.Response = resp.Body

	saved, err := s.repo.Save(ctx, record)
	if err != nil {
		return SubmissionResult{}, err
	}
	log.Info().Str("status", string(saved.Status)).Int("http_status", resp.StatusCode).Msg("submission recorded")

	if saved.Status == ledger.StatusRejected && s.notifier != nil {
		if err := s.notifier.NotifyRejection(ctx, saved); err != nil {
			log.Warn().Err(err).Msg("rejection notification failed")
		}
	}

	return SubmissionResult{
		SubmissionID: id,
		BundleID:     bundle.ID,
		Status:       saved.Status,
		Response:     parsed,
	}, nil
}
