package fhir

import (
	fhirmodel "github.com/rcm-ksa/nphies-gateway/internal/service/nphies/adapters/fhir/model"
)

const (
	KindBundle                     = "Bundle"
	KindMessageHeader              = "MessageHeader"
	KindPatient                    = "Patient"
	KindCoverage                   = "Coverage"
	KindClaim                      = "Claim"
	KindCoverageEligibilityRequest = "CoverageEligibilityRequest"
	KindCommunication              = "Communication"
	KindOperationOutcome           = "OperationOutcome"
)

const profileBase = "http://nphies.sa/fhir/ksa/nphies-fs/StructureDefinition/"

// profiles is the only place NPHIES structure-definition URLs are spelled out.
var profiles = map[string]string{
	KindBundle:                     profileBase + "bundle",
	KindMessageHeader:              profileBase + "message-header",
	KindPatient:                    profileBase + "patient",
	KindCoverage:                   profileBase + "coverage",
	KindCoverageEligibilityRequest: profileBase + "eligibility-request",
	KindClaim:                      profileBase + "claim",
	KindCommunication:              profileBase + "communication",
}

// ProfileFor returns the profile URL for kind, or "" for unprofiled kinds.
func ProfileFor(kind string) string {
	return profiles[kind]
}

// MetaFor returns the meta block carrying the profile for kind.
func MetaFor(kind string) *fhirmodel.Meta {
	p := ProfileFor(kind)
	if p == "" {
		return nil
	}
	return &fhirmodel.Meta{Profile: []string{p}}
}

const (
	// Code systems
	csMessageEvents  = "http://nphies.sa/terminology/CodeSystem/ksa-message-events"
	csClaimType      = "http://terminology.hl7.org/CodeSystem/claim-type"
	csProcessPrio    = "http://terminology.hl7.org/CodeSystem/processpriority"
	csCoverageType   = "http://terminology.hl7.org/CodeSystem/v3-ActCode"
	csSubscriberRel  = "http://terminology.hl7.org/CodeSystem/subscriber-relationship"
	csServices       = "http://nphies.sa/terminology/CodeSystem/services"
	csCommCategory   = "http://terminology.hl7.org/CodeSystem/communication-category"
	csIdentifierType = "http://terminology.hl7.org/CodeSystem/v2-0203"

	// Identifier systems
	sysPayerLicense    = "http://nphies.sa/license/payer-license"
	sysProviderLicense = "http://nphies.sa/license/provider-license"
	sysNationalID      = "http://nphies.sa/identifier/nationalid"
	sysMemberID        = "http://nphies.sa/identifier/memberid"
	sysPolicyNumber    = "http://nphies.sa/identifier/policynumber"

	// Message events
	eventEligibility   = "eligibility-request"
	eventClaim         = "claim-request"
	eventCommunication = "communication"

	nphiesEndpoint = "http://nphies.sa/license/payer-license/"
	currencySAR    = "SAR"
)

// provider-side request identifier systems, relative to the provider base URL
const (
	pathEligibilityRequest = "/coverageeligibilityrequest"
	pathClaim              = "/claim"
	pathCommunication      = "/communication"
)
