package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"github.com/rcm-ksa/nphies-gateway/internal/service/notify"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir"
	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/http/openapi"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/nphies"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/commands"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/app/queries"
	"github.com/rcm-ksa/nphies-gateway/internal/service/nphies/ledger"
)

const maxBodyBytes = 1 << 20

var _ openapi.ServerInterface = (*Server)(nil)

type Server struct {
	cmdBus    app.CommandBus
	queryBus  app.QueryBus
	ackSecret string
	logger    zerolog.Logger
}

func NewServer(cmdBus app.CommandBus, queryBus app.QueryBus, ackSecret string, logger zerolog.Logger) *Server {
	return &Server{
		cmdBus:    cmdBus,
		queryBus:  queryBus,
		ackSecret: ackSecret,
		logger:    logger,
	}
}

func (s *Server) GetHealthStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, openapi.HealthStatus{Status: "ok"})
}

func (s *Server) CheckEligibility(w http.ResponseWriter, r *http.Request) {
	var in openapi.EligibilityRequest
	if !decodeBody(w, r, &in) {
		return
	}

	result, err := s.cmdBus.CheckEligibility(r.Context(), commands.CheckEligibilityCommand{
		Patient:       patientData(in.Patient),
		PayerCode:     in.PayerCode,
		CorrelationID: deref(in.CorrelationId),
	})
	s.renderSubmission(w, r, result, err)
}

func (s *Server) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var in openapi.ClaimRequest
	if !decodeBody(w, r, &in) {
		return
	}

	claim := fhir.ClaimData{
		Patient:      patientData(in.Patient),
		PolicyNumber: deref(in.PolicyNumber),
	}
	if in.ClaimType != nil {
		claim.ClaimType = string(*in.ClaimType)
	}
	if in.Items != nil {
		for _, it := range *in.Items {
			item := fhir.ServiceItem{Code: it.Code, Display: deref(it.Display)}
			if it.Quantity != nil {
				item.Quantity = *it.Quantity
			}
			if it.UnitPrice != nil {
				item.UnitPrice = *it.UnitPrice
			}
			if it.ServiceDate != nil {
				item.ServiceDate = it.ServiceDate.String()
			}
			claim.Items = append(claim.Items, item)
		}
	}

	result, err := s.cmdBus.SubmitClaim(r.Context(), commands.SubmitClaimCommand{
		Claim:         claim,
		PayerCode:     in.PayerCode,
		CorrelationID: deref(in.CorrelationId),
	})
	s.renderSubmission(w, r, result, err)
}

func (s *Server) SendCommunication(w http.ResponseWriter, r *http.Request) {
	var in openapi.CommunicationRequest
	if !decodeBody(w, r, &in) {
		return
	}

	comm := fhir.CommunicationData{
		Patient:         patientData(in.Patient),
		ClaimIdentifier: deref(in.ClaimIdentifier),
	}
	if in.Messages != nil {
		comm.Messages = *in.Messages
	}

	result, err := s.cmdBus.SendCommunication(r.Context(), commands.SendCommunicationCommand{
		Communication: comm,
		PayerCode:     in.PayerCode,
		CorrelationID: deref(in.CorrelationId),
	})
	s.renderSubmission(w, r, result, err)
}

func (s *Server) GetSubmissionById(w http.ResponseWriter, r *http.Request, submissionId string) {
	result, err := s.queryBus.GetSubmission(r.Context(), queries.GetSubmissionQuery{ID: submissionId})
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, submissionDTO(result.Submission))
}

func (s *Server) GetRejectionReport(w http.ResponseWriter, r *http.Request, params openapi.GetRejectionReportParams) {
	q := queries.RejectionReportQuery{PayerCode: deref(params.PayerCode)}
	if params.Since != nil {
		q.Since = params.Since.Time
	}

	report, err := s.queryBus.RejectionReport(r.Context(), q)
	if err != nil {
		s.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="rejections.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := report.WriteCSV(w); err != nil {
		s.logger.Error().Err(err).Msg("failed to write rejection report")
	}
}

func (s *Server) AcknowledgeNotification(w http.ResponseWriter, r *http.Request, params openapi.AcknowledgeNotificationParams) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		renderOutcome(w, r, http.StatusBadRequest, fhirmodel.IssueTypeInvalid, "unreadable body", "")
		return
	}
	if !notify.VerifySignatureHeader(body, params.XSignature, s.ackSecret) {
		renderOutcome(w, r, http.StatusUnauthorized, fhirmodel.IssueTypeSecurity, "signature mismatch", "X-Signature")
		return
	}

	var ack openapi.NotificationAck
	if err := json.Unmarshal(body, &ack); err != nil {
		renderOutcome(w, r, http.StatusBadRequest, fhirmodel.IssueTypeInvalid, "invalid json", "")
		return
	}
	if _, err := s.queryBus.GetSubmission(r.Context(), queries.GetSubmissionQuery{ID: ack.SubmissionId}); err != nil {
		s.renderError(w, r, err)
		return
	}

	s.logger.Info().
		Str("submission_id", ack.SubmissionId).
		Str("status", string(ack.Status)).
		Msg("notification acknowledged")

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, ack)
}

func (s *Server) renderSubmission(w http.ResponseWriter, r *http.Request, res commands.SubmissionResult, err error) {
	if err != nil {
		s.renderError(w, r, err)
		return
	}
	render.JSON(w, r, openapi.SubmissionResponse{
		SubmissionId: res.SubmissionID,
		BundleId:     res.BundleID,
		Status:       openapi.SubmissionStatus(res.Status),
		Replayed:     res.Replayed,
		Response:     parsedDTO(res.Response),
	})
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		missing   *fhir.MissingRequiredFieldError
		invalid   *fhir.InvalidFieldError
		transport *nphies.TransportError
	)
	switch {
	case errors.As(err, &missing):
		renderOutcome(w, r, http.StatusUnprocessableEntity, fhirmodel.IssueTypeRequired, err.Error(), missing.Field)
	case errors.As(err, &invalid):
		renderOutcome(w, r, http.StatusUnprocessableEntity, fhirmodel.IssueTypeInvalid, err.Error(), invalid.Field)
	case errors.As(err, &transport):
		renderOutcome(w, r, http.StatusBadGateway, fhirmodel.IssueTypeTransient, err.Error(), "")
	case errors.Is(err, ledger.ErrNotFound):
		renderOutcome(w, r, http.StatusNotFound, fhirmodel.IssueTypeNotFound, err.Error(), "")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		renderOutcome(w, r, http.StatusInternalServerError, fhirmodel.IssueTypeException, "internal error", "")
	}
}

func renderOutcome(w http.ResponseWriter, r *http.Request, status int, code, text, expression string) {
	b := fhirmodel.NewOutcomeBuilder()
	if expression != "" {
		b.AddIssueAt(fhirmodel.IssueSeverityError, code, text, expression)
	} else {
		b.AddIssue(fhirmodel.IssueSeverityError, code, text)
	}
	render.Status(r, status)
	render.JSON(w, r, b.Build())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		renderOutcome(w, r, http.StatusBadRequest, fhirmodel.IssueTypeInvalid, "invalid json: "+err.Error(), "")
		return false
	}
	return true
}

func patientData(p openapi.Patient) fhir.PatientData {
	out := fhir.PatientData{
		MemberID:   deref(p.MemberId),
		NationalID: deref(p.NationalId),
		GivenName:  deref(p.GivenName),
		FamilyName: deref(p.FamilyName),
	}
	if p.Gender != nil {
		out.Gender = string(*p.Gender)
	}
	if p.BirthDate != nil {
		out.BirthDate = p.BirthDate.String()
	}
	return out
}

func parsedDTO(p fhir.ParsedResponse) openapi.ParsedResponse {
	out := openapi.ParsedResponse{
		Success:   p.Success,
		Message:   p.Message,
		Errors:    p.Errors,
		BundleId:  p.BundleID,
		Timestamp: p.Timestamp,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if p.Data != nil {
		data := p.Data
		out.Data = &data
	}
	return out
}

func submissionDTO(s ledger.Submission) openapi.Submission {
	out := openapi.Submission{
		Id:            s.ID,
		Kind:          s.Kind,
		CorrelationId: ptr(s.CorrelationID),
		PayerCode:     s.PayerCode,
		MemberId:      ptr(s.MemberID),
		BundleId:      ptr(s.BundleID),
		Status:        openapi.SubmissionStatus(s.Status),
		Errors:        s.Errors,
		CreatedAt:     s.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:     s.UpdatedAt.UTC().Truncate(time.Millisecond),
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if len(s.Response) > 0 {
		var resp map[string]interface{}
		if err := json.Unmarshal(s.Response, &resp); err == nil {
			out.Response = &resp
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
