// Package openapi provides primitives to interact with the openapi HTTP API.
package openapi

import (
	"encoding/json"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

const (
	ApiKeyAuthScopes = "ApiKeyAuth.Scopes"
)

// Defines values for ClaimRequestClaimType.
const (
	Institutional ClaimRequestClaimType = "institutional"
	Oral          ClaimRequestClaimType = "oral"
	Pharmacy      ClaimRequestClaimType = "pharmacy"
	Professional  ClaimRequestClaimType = "professional"
	Vision        ClaimRequestClaimType = "vision"
)

// Defines values for NotificationAckStatus.
const (
	Acknowledged NotificationAckStatus = "acknowledged"
	Escalated    NotificationAckStatus = "escalated"
	Resolved     NotificationAckStatus = "resolved"
)

// Defines values for PatientGender.
const (
	Female  PatientGender = "female"
	Male    PatientGender = "male"
	Other   PatientGender = "other"
	Unknown PatientGender = "unknown"
)

// Defines values for SubmissionStatus.
const (
	SubmissionStatusAccepted SubmissionStatus = "accepted"
	SubmissionStatusError    SubmissionStatus = "error"
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// ClaimRequest defines model for ClaimRequest.
type ClaimRequest struct {
	ClaimType     *ClaimRequestClaimType `json:"claim_type,omitempty"`
	CorrelationId *string                `json:"correlation_id,omitempty"`
	Items         *[]ServiceItem         `json:"items,omitempty"`
	Patient       Patient                `json:"patient"`
	PayerCode     string                 `json:"payer_code"`
	PolicyNumber  *string                `json:"policy_number,omitempty"`
}

// ClaimRequestClaimType defines model for ClaimRequest.ClaimType.
type ClaimRequestClaimType string

// CommunicationRequest defines model for CommunicationRequest.
type CommunicationRequest struct {
	ClaimIdentifier *string   `json:"claim_identifier,omitempty"`
	CorrelationId   *string   `json:"correlation_id,omitempty"`
	Messages        *[]string `json:"messages,omitempty"`
	Patient         Patient   `json:"patient"`
	PayerCode       string    `json:"payer_code"`
}

// EligibilityRequest defines model for EligibilityRequest.
type EligibilityRequest struct {
	CorrelationId *string `json:"correlation_id,omitempty"`
	Patient       Patient `json:"patient"`
	PayerCode     string  `json:"payer_code"`
}

// HealthStatus defines model for HealthStatus.
type HealthStatus struct {
	Status string `json:"status"`
}

// NotificationAck defines model for NotificationAck.
type NotificationAck struct {
	Note         *string               `json:"note,omitempty"`
	Status       NotificationAckStatus `json:"status"`
	SubmissionId string                `json:"submission_id"`
}

// NotificationAckStatus defines model for NotificationAck.Status.
type NotificationAckStatus string

// OperationOutcome defines model for OperationOutcome.
type OperationOutcome struct {
	Issue        []map[string]interface{} `json:"issue"`
	ResourceType string                   `json:"resourceType"`
}

// ParsedResponse defines model for ParsedResponse.
type ParsedResponse struct {
	BundleId  *string                   `json:"bundle_id"`
	Data      *[]map[string]interface{} `json:"data"`
	Errors    []string                  `json:"errors"`
	Message   string                    `json:"message"`
	Success   bool                      `json:"success"`
	Timestamp string                    `json:"timestamp"`
}

// Patient defines model for Patient.
type Patient struct {
	BirthDate  *openapi_types.Date `json:"birth_date,omitempty"`
	FamilyName *string             `json:"family_name,omitempty"`
	Gender     *PatientGender      `json:"gender,omitempty"`
	GivenName  *string             `json:"given_name,omitempty"`
	MemberId   *string             `json:"member_id,omitempty"`
	NationalId *string             `json:"national_id,omitempty"`
}

// PatientGender defines model for Patient.Gender.
type PatientGender string

// ServiceItem defines model for ServiceItem.
type ServiceItem struct {
	Code        string              `json:"code"`
	Display     *string             `json:"display,omitempty"`
	Quantity    *json.Number        `json:"quantity,omitempty"`
	ServiceDate *openapi_types.Date `json:"service_date,omitempty"`
	UnitPrice   *json.Number        `json:"unit_price,omitempty"`
}

// Submission defines model for Submission.
type Submission struct {
	BundleId      *string                 `json:"bundle_id,omitempty"`
	CorrelationId *string                 `json:"correlation_id,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	Errors        []string                `json:"errors"`
	Id            string                  `json:"id"`
	Kind          string                  `json:"kind"`
	MemberId      *string                 `json:"member_id,omitempty"`
	PayerCode     string                  `json:"payer_code"`
	Response      *map[string]interface{} `json:"response,omitempty"`
	Status        SubmissionStatus        `json:"status"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// SubmissionStatus defines model for Submission.Status.
type SubmissionStatus string

// SubmissionResponse defines model for SubmissionResponse.
type SubmissionResponse struct {
	BundleId     string           `json:"bundle_id"`
	Replayed     bool             `json:"replayed"`
	Response     ParsedResponse   `json:"response"`
	Status       SubmissionStatus `json:"status"`
	SubmissionId string           `json:"submission_id"`
}

// GetRejectionReportParams defines parameters for GetRejectionReport.
type GetRejectionReportParams struct {
	PayerCode *string             `form:"payer_code,omitempty" json:"payer_code,omitempty"`
	Since     *openapi_types.Date `form:"since,omitempty" json:"since,omitempty"`
}

// AcknowledgeNotificationParams defines parameters for AcknowledgeNotification.
type AcknowledgeNotificationParams struct {
	XSignature string `json:"X-Signature"`
}

// CheckEligibilityJSONRequestBody defines body for CheckEligibility for application/json ContentType.
type CheckEligibilityJSONRequestBody = EligibilityRequest

// SubmitClaimJSONRequestBody defines body for SubmitClaim for application/json ContentType.
type SubmitClaimJSONRequestBody = ClaimRequest

// SendCommunicationJSONRequestBody defines body for SendCommunication for application/json ContentType.
type SendCommunicationJSONRequestBody = CommunicationRequest

// AcknowledgeNotificationJSONRequestBody defines body for AcknowledgeNotification for application/json ContentType.
type AcknowledgeNotificationJSONRequestBody = NotificationAck
