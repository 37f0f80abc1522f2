package fhir

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PatientData is the flat patient record callers hand to the builders.
// Only MemberID is required.
type PatientData struct {
	MemberID   string `json:"member_id" mapstructure:"member_id"`
	NationalID string `json:"national_id" mapstructure:"national_id"`
	GivenName  string `json:"given_name" mapstructure:"given_name"`
	FamilyName string `json:"family_name" mapstructure:"family_name"`
	Gender     string `json:"gender" mapstructure:"gender"`
	BirthDate  string `json:"birth_date" mapstructure:"birth_date"`
}

// ServiceItem is one billed service line. Quantity defaults to 1 and
// UnitPrice to 0 when absent.
type ServiceItem struct {
	Code        string      `json:"code" mapstructure:"code"`
	Display     string      `json:"display" mapstructure:"display"`
	Quantity    json.Number `json:"quantity" mapstructure:"quantity"`
	UnitPrice   json.Number `json:"unit_price" mapstructure:"unit_price"`
	ServiceDate string      `json:"service_date" mapstructure:"service_date"`
}

type ClaimData struct {
	Patient      PatientData   `json:"patient" mapstructure:"patient"`
	PolicyNumber string        `json:"policy_number" mapstructure:"policy_number"`
	ClaimType    string        `json:"claim_type" mapstructure:"claim_type"` // institutional|professional|pharmacy|oral|vision
	Items        []ServiceItem `json:"items" mapstructure:"items"`
}

// CommunicationData carries free-text messages about an earlier claim,
// typically answers to a payer's request for information.
type CommunicationData struct {
	Patient         PatientData `json:"patient" mapstructure:"patient"`
	ClaimIdentifier string      `json:"claim_identifier" mapstructure:"claim_identifier"`
	Messages        []string    `json:"messages" mapstructure:"messages"`
}

// MissingRequiredFieldError reports an identity-critical field that is absent
// from builder input.
type MissingRequiredFieldError struct {
	Resource string
	Field    string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", e.Resource, e.Field)
}

// InvalidFieldError reports a field that is present but cannot be used.
type InvalidFieldError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// DecodePatientData turns a plain mapping with snake_case keys into PatientData.
func DecodePatientData(in map[string]any) (PatientData, error) {
	var out PatientData
	err := decode(in, &out)
	return out, err
}

func DecodeClaimData(in map[string]any) (ClaimData, error) {
	var out ClaimData
	err := decode(in, &out)
	return out, err
}

func DecodeCommunicationData(in map[string]any) (CommunicationData, error) {
	var out CommunicationData
	err := decode(in, &out)
	return out, err
}

func decode(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(in); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	return nil
}
